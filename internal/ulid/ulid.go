package ulid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"
)

// EncodedLen is the length of an encoded ULID in characters.
const EncodedLen = 26

// alphabet is the Crockford base32 symbol set: digits and uppercase letters
// excluding I, L, O and U to avoid transcription ambiguity.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// timestampBytes is the size of the millisecond timestamp component.
const timestampBytes = 6

// Generator mints ULIDs for a single process.
//
// It keeps the timestamp and random tail of the most recently issued
// identifier so that calls landing in the same millisecond increment the
// tail instead of redrawing it. The read-modify-write sequence is a single
// critical section, making the Generator safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	lastMillis int64
	randHi     uint16 // high 16 bits of the 80-bit tail
	randLo     uint64 // low 64 bits of the 80-bit tail

	// Clock and entropy sources, replaceable in tests.
	now      func() time.Time
	readRand func([]byte) (int, error)
}

// New creates a Generator backed by the system clock and crypto/rand.
func New() *Generator {
	return &Generator{
		now:      time.Now,
		readRand: rand.Read,
	}
}

// Next returns a new ULID.
//
// Identifiers from one Generator are unique and sort in generation order:
// a fresh millisecond draws a new random tail, repeated calls within the
// same millisecond increment the previous tail. If the clock has not
// advanced past the last issued timestamp (same millisecond, or a clock
// step backwards) the increment path is taken so ordering still holds.
//
// Returns an error only if the entropy source fails; callers must treat
// that as fatal to the current operation.
func (g *Generator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if g.lastMillis > 0 && ms <= g.lastMillis {
		g.increment()
	} else {
		var tail [10]byte
		if _, err := g.readRand(tail[:]); err != nil {
			return "", fmt.Errorf("reading entropy: %w", err)
		}
		g.lastMillis = ms
		g.randHi = binary.BigEndian.Uint16(tail[0:2])
		g.randLo = binary.BigEndian.Uint64(tail[2:10])
	}

	return encode(uint64(g.lastMillis), g.randHi, g.randLo), nil
}

// increment advances the 80-bit tail by one. If the tail wraps around, the
// timestamp component is advanced instead so uniqueness and sort order are
// preserved even in that (practically unreachable) case.
func (g *Generator) increment() {
	g.randLo++
	if g.randLo != 0 {
		return
	}
	g.randHi++
	if g.randHi != 0 {
		return
	}
	g.lastMillis++
}

// encode renders (timestamp << 80) | tail as 26 Crockford base32 symbols,
// most significant symbol first, zero padded to full width.
func encode(ms uint64, hi uint16, lo uint64) string {
	var b [16]byte
	b[0] = byte(ms >> 40)
	b[1] = byte(ms >> 32)
	b[2] = byte(ms >> 24)
	b[3] = byte(ms >> 16)
	b[4] = byte(ms >> 8)
	b[5] = byte(ms)
	binary.BigEndian.PutUint16(b[6:8], hi)
	binary.BigEndian.PutUint64(b[8:16], lo)

	var out [EncodedLen]byte
	for i := EncodedLen - 1; i >= 0; i-- {
		out[i] = alphabet[b[15]&0x1f]
		shiftRight5(&b)
	}
	return string(out[:])
}

// shiftRight5 shifts a 128-bit big-endian value right by five bits.
func shiftRight5(b *[16]byte) {
	var carry byte
	for i := range b {
		cur := b[i]
		b[i] = cur>>5 | carry<<3
		carry = cur & 0x1f
	}
}

// Decode converts a ULID back into its 128-bit big-endian representation.
// It rejects strings of the wrong length, characters outside the Crockford
// alphabet, and values exceeding 128 bits (first symbol above '7').
func Decode(id string) ([16]byte, error) {
	var b [16]byte
	if len(id) != EncodedLen {
		return b, fmt.Errorf("ulid: invalid length %d", len(id))
	}
	if id[0] > '7' {
		return b, fmt.Errorf("ulid: value overflows 128 bits")
	}
	for i := 0; i < EncodedLen; i++ {
		v := strings.IndexByte(alphabet, id[i])
		if v < 0 {
			return b, fmt.Errorf("ulid: invalid character %q", id[i])
		}
		shiftLeft5(&b)
		b[15] |= byte(v)
	}
	return b, nil
}

// DecodeTime extracts the millisecond timestamp component of a ULID.
func DecodeTime(id string) (time.Time, error) {
	b, err := Decode(id)
	if err != nil {
		return time.Time{}, err
	}
	var ms uint64
	for i := 0; i < timestampBytes; i++ {
		ms = ms<<8 | uint64(b[i])
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// shiftLeft5 shifts a 128-bit big-endian value left by five bits.
func shiftLeft5(b *[16]byte) {
	var carry byte
	for i := len(b) - 1; i >= 0; i-- {
		cur := b[i]
		b[i] = cur<<5 | carry
		carry = cur >> 3
	}
}
