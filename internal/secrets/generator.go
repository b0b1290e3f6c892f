package secrets

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"
)

// Credential sizes. 80 bits of entropy for human-transcribable passwords,
// 256 bits for the API key.
const (
	passwordBits = 80
	apiKeyBits   = 256

	groupSize = 4
)

// crockfordAlphabet is Crockford base32: no I, L, O or U, so transcribed
// credentials survive ambiguous handwriting.
const (
	rfc4648Alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

var crockfordTranslation = func() map[rune]rune {
	m := make(map[rune]rune, len(rfc4648Alphabet))
	for i, r := range rfc4648Alphabet {
		m[r] = rune(crockfordAlphabet[i])
	}
	return m
}()

// randRead is swapped out in tests for deterministic output.
var randRead = rand.Read

// encodeCrockford encodes data as unpadded Crockford base32.
func encodeCrockford(data []byte) string {
	std := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(data)
	return strings.Map(func(r rune) rune {
		return crockfordTranslation[r]
	}, std)
}

// group splits s into dash-separated runs of four characters.
func group(s string) string {
	var parts []string
	for i := 0; i < len(s); i += groupSize {
		end := i + groupSize
		if end > len(s) {
			end = len(s)
		}
		parts = append(parts, s[i:end])
	}
	return strings.Join(parts, "-")
}

// randomBits draws n bits of entropy, rounded up to whole bytes.
func randomBits(n int) ([]byte, error) {
	data := make([]byte, (n+7)/8)
	if _, err := randRead(data); err != nil {
		return nil, fmt.Errorf("reading entropy: %w", err)
	}
	return data, nil
}

// groupedPassword draws an 80-bit password rendered as grouped Crockford
// base32, e.g. "C8XT-5Q2M-0J9V-4KPH".
func groupedPassword() (string, error) {
	data, err := randomBits(passwordBits)
	if err != nil {
		return "", err
	}
	return group(encodeCrockford(data)), nil
}

// genOTAPassword generates the firmware over-the-air update password.
func genOTAPassword() (string, error) {
	return groupedPassword()
}

// genHAKey generates the home-assistant API encryption key: 256 bits,
// base64 as the integration expects.
func genHAKey() (string, error) {
	data, err := randomBits(apiKeyBits)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// genAPSSID derives the captive-portal SSID from the product name.
func genAPSSID(product string) string {
	return product + "-AP"
}

// genAPPSK generates the captive-portal pre-shared key.
func genAPPSK() (string, error) {
	return groupedPassword()
}

// genWebUsername returns the web UI login name. Fixed: the password is the
// credential.
func genWebUsername() string {
	return "admin"
}

// genWebPassword generates the web UI password.
func genWebPassword() (string, error) {
	return groupedPassword()
}
