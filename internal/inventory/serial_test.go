package inventory

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSerialSpec(t *testing.T) {
	tests := []struct {
		name       string
		spec       string
		wantPrefix string
		wantWidth  int
		wantSuffix string
		wantErr    error
	}{
		{
			name:       "prefix and suffix",
			spec:       "SN-{4}-X",
			wantPrefix: "SN-",
			wantWidth:  4,
			wantSuffix: "-X",
		},
		{
			name:       "prefix only",
			spec:       "P{2}",
			wantPrefix: "P",
			wantWidth:  2,
			wantSuffix: "",
		},
		{
			name:       "placeholder only",
			spec:       "{6}",
			wantPrefix: "",
			wantWidth:  6,
			wantSuffix: "",
		},
		{
			name:       "regex metacharacters are literal",
			spec:       "A.B*{3}(C)",
			wantPrefix: "A.B*",
			wantWidth:  3,
			wantSuffix: "(C)",
		},
		{
			name:    "empty spec",
			spec:    "",
			wantErr: ErrNoSerialSpec,
		},
		{
			name:    "no placeholder",
			spec:    "SN-X",
			wantErr: ErrMalformedSerialSpec,
		},
		{
			name:    "zero width",
			spec:    "SN-{0}",
			wantErr: ErrMalformedSerialSpec,
		},
		{
			name:    "non-numeric placeholder",
			spec:    "SN-{x}",
			wantErr: ErrMalformedSerialSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSerialSpec(tt.spec)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseSerialSpec(%q) error = %v, want %v", tt.spec, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSerialSpec(%q) error = %v", tt.spec, err)
			}
			if got.Prefix != tt.wantPrefix {
				t.Errorf("Prefix = %q, want %q", got.Prefix, tt.wantPrefix)
			}
			if got.Width != tt.wantWidth {
				t.Errorf("Width = %d, want %d", got.Width, tt.wantWidth)
			}
			if got.Suffix != tt.wantSuffix {
				t.Errorf("Suffix = %q, want %q", got.Suffix, tt.wantSuffix)
			}
		})
	}
}

func TestParseSerialSpec_WidthBeyondRepeatLimit(t *testing.T) {
	// Widths above the regexp package's repeat-count cap (1000) must still
	// parse; the width check runs against the matched digit run instead.
	spec, err := ParseSerialSpec("SN-{1001}")
	if err != nil {
		t.Fatalf("ParseSerialSpec() error = %v", err)
	}
	if spec.Width != 1001 {
		t.Fatalf("Width = %d, want 1001", spec.Width)
	}

	if _, ok := spec.Match("SN-042"); ok {
		t.Error("Match() accepted a digit run shorter than the width")
	}
	wide := "SN-" + strings.Repeat("0", 1000) + "7"
	if n, ok := spec.Match(wide); !ok || n != 7 {
		t.Errorf("Match(%d-digit run) = %d, %v, want 7, true", 1001, n, ok)
	}
}

func TestParseSerialSpec_FirstPlaceholderWins(t *testing.T) {
	got, err := ParseSerialSpec("A{2}B{3}")
	if err != nil {
		t.Fatalf("ParseSerialSpec() error = %v", err)
	}
	if got.Prefix != "A" || got.Width != 2 || got.Suffix != "B{3}" {
		t.Errorf("parsed = %q/%d/%q, want A/2/B{3}", got.Prefix, got.Width, got.Suffix)
	}
}

func TestSerialSpec_Match(t *testing.T) {
	spec, err := ParseSerialSpec("SN-{3}-X")
	if err != nil {
		t.Fatalf("ParseSerialSpec() error = %v", err)
	}

	tests := []struct {
		serial string
		wantN  int
		wantOK bool
	}{
		{serial: "SN-001-X", wantN: 1, wantOK: true},
		{serial: "SN-042-X", wantN: 42, wantOK: true},
		{serial: "SN-10000-X", wantN: 10000, wantOK: true},
		{serial: "SN-01-X", wantOK: false},  // fewer digits than width
		{serial: "SN-001-Y", wantOK: false}, // wrong suffix
		{serial: "XSN-001-X", wantOK: false},
		{serial: "LEGACY-7", wantOK: false},
		{serial: "SN-001-X ", wantOK: false}, // trailing garbage, no partial match
	}

	for _, tt := range tests {
		n, ok := spec.Match(tt.serial)
		if ok != tt.wantOK {
			t.Errorf("Match(%q) ok = %v, want %v", tt.serial, ok, tt.wantOK)
			continue
		}
		if ok && n != tt.wantN {
			t.Errorf("Match(%q) = %d, want %d", tt.serial, n, tt.wantN)
		}
	}
}

func TestSerialSpec_Next(t *testing.T) {
	t.Run("skips gaps and ignores non-conforming serials", func(t *testing.T) {
		spec, err := ParseSerialSpec("SN-{3}-X")
		if err != nil {
			t.Fatalf("ParseSerialSpec() error = %v", err)
		}

		got := spec.Next([]string{"SN-001-X", "SN-003-X", "LEGACY-7"})
		if got != "SN-004-X" {
			t.Errorf("Next() = %q, want %q", got, "SN-004-X")
		}
	})

	t.Run("empty device type starts at one", func(t *testing.T) {
		spec, err := ParseSerialSpec("P{2}")
		if err != nil {
			t.Fatalf("ParseSerialSpec() error = %v", err)
		}

		got := spec.Next(nil)
		if got != "P01" {
			t.Errorf("Next() = %q, want %q", got, "P01")
		}
	})

	t.Run("overflow widens instead of truncating", func(t *testing.T) {
		spec, err := ParseSerialSpec("P{2}")
		if err != nil {
			t.Fatalf("ParseSerialSpec() error = %v", err)
		}

		got := spec.Next([]string{"P99"})
		if got != "P100" {
			t.Errorf("Next() = %q, want %q", got, "P100")
		}

		// And the widened serial feeds back into the next allocation.
		got = spec.Next([]string{"P99", "P100"})
		if got != "P101" {
			t.Errorf("Next() = %q, want %q", got, "P101")
		}
	})
}

func TestSerialSpec_Format(t *testing.T) {
	spec, err := ParseSerialSpec("SN-{4}-X")
	if err != nil {
		t.Fatalf("ParseSerialSpec() error = %v", err)
	}

	if got := spec.Format(7); got != "SN-0007-X" {
		t.Errorf("Format(7) = %q, want %q", got, "SN-0007-X")
	}
	if got := spec.Format(10000); got != "SN-10000-X" {
		t.Errorf("Format(10000) = %q, want %q", got, "SN-10000-X")
	}
}
