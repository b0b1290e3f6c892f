package secrets

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncodeCrockford(t *testing.T) {
	// RFC 4648 base32 of "hello" is "NBSWY3DP"; Crockford remaps the
	// letters positionally.
	got := encodeCrockford([]byte("hello"))
	if got != "D1JPRV3F" {
		t.Errorf("encodeCrockford(hello) = %q, want %q", got, "D1JPRV3F")
	}

	// Alphabet check: no padding, no ambiguous characters.
	if strings.ContainsAny(got, "ILOU=") {
		t.Errorf("encodeCrockford() output %q contains excluded characters", got)
	}
}

func TestGroup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "ABCD", want: "ABCD"},
		{in: "ABCDEFGH", want: "ABCD-EFGH"},
		{in: "ABCDEF", want: "ABCD-EF"},
	}
	for _, tt := range tests {
		if got := group(tt.in); got != tt.want {
			t.Errorf("group(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// withStubEntropy replaces the entropy source for the duration of a test.
func withStubEntropy(t *testing.T, data []byte) {
	t.Helper()
	orig := randRead
	randRead = func(p []byte) (int, error) {
		return copy(p, data), nil
	}
	t.Cleanup(func() { randRead = orig })
}

func TestGenOTAPassword(t *testing.T) {
	withStubEntropy(t, bytes.Repeat([]byte{0x00}, 10))

	got, err := genOTAPassword()
	if err != nil {
		t.Fatalf("genOTAPassword() error = %v", err)
	}
	// 80 bits -> 16 base32 characters -> four dash-separated groups.
	if got != "0000-0000-0000-0000" {
		t.Errorf("genOTAPassword() = %q, want %q", got, "0000-0000-0000-0000")
	}
}

func TestGenHAKey(t *testing.T) {
	withStubEntropy(t, bytes.Repeat([]byte{0xAB}, 32))

	got, err := genHAKey()
	if err != nil {
		t.Fatalf("genHAKey() error = %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(got)
	if err != nil {
		t.Fatalf("genHAKey() output is not base64: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("genHAKey() carries %d bytes, want 32", len(decoded))
	}
}

func TestDerivedProperties(t *testing.T) {
	if got := genAPSSID("hvac-panel"); got != "hvac-panel-AP" {
		t.Errorf("genAPSSID() = %q, want %q", got, "hvac-panel-AP")
	}
	if got := genWebUsername(); got != "admin" {
		t.Errorf("genWebUsername() = %q, want %q", got, "admin")
	}
}

func TestGroupedPasswordAlphabet(t *testing.T) {
	got, err := groupedPassword()
	if err != nil {
		t.Fatalf("groupedPassword() error = %v", err)
	}
	for _, r := range strings.ReplaceAll(got, "-", "") {
		if !strings.ContainsRune(crockfordAlphabet, r) {
			t.Errorf("groupedPassword() = %q contains %q outside the alphabet", got, r)
		}
	}
}
