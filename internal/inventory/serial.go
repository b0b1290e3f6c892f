package inventory

import (
	"fmt"
	"regexp"
	"strconv"
)

// placeholderPattern matches the numeric placeholder of a serial spec:
// "{n}" where n is the minimum zero-padded field width.
var placeholderPattern = regexp.MustCompile(`\{(\d+)\}`)

// SerialSpec is a parsed serial-number template.
//
// A spec like "SN-{4}-X" splits into fixed prefix "SN-", width 4, and fixed
// suffix "-X". Prefix and suffix are literal text; only the digit run in the
// middle varies. The first placeholder in the template wins.
type SerialSpec struct {
	Prefix string
	Width  int
	Suffix string

	pattern *regexp.Regexp
}

// ParseSerialSpec parses a device type's serial_number_spec.
//
// An empty spec yields ErrNoSerialSpec (the type was registered without
// automatic allocation in mind); a non-empty spec without a valid
// placeholder yields ErrMalformedSerialSpec.
func ParseSerialSpec(spec string) (*SerialSpec, error) {
	if spec == "" {
		return nil, ErrNoSerialSpec
	}

	loc := placeholderPattern.FindStringSubmatchIndex(spec)
	if loc == nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedSerialSpec, spec)
	}

	width, err := strconv.Atoi(spec[loc[2]:loc[3]])
	if err != nil || width < 1 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedSerialSpec, spec)
	}

	s := &SerialSpec{
		Prefix: spec[:loc[0]],
		Width:  width,
		Suffix: spec[loc[1]:],
	}
	// Full match: literal prefix, a digit run, literal suffix. The minimum
	// width is checked in Match rather than as a regexp repeat count, which
	// the regexp package caps at 1000.
	s.pattern = regexp.MustCompile(
		`^` + regexp.QuoteMeta(s.Prefix) + `(\d+)` + regexp.QuoteMeta(s.Suffix) + `$`,
	)
	return s, nil
}

// Match reports whether a serial conforms to the spec and, if so, returns
// its numeric component. A conforming serial carries at least Width digits.
func (s *SerialSpec) Match(serial string) (int, bool) {
	m := s.pattern.FindStringSubmatch(serial)
	if m == nil || len(m[1]) < s.Width {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Digit run exceeds the int range; treat as non-conforming.
		return 0, false
	}
	return n, true
}

// Next computes the next free serial given every existing serial of the
// device type.
//
// Serials that do not conform to the spec (legacy serials from an earlier
// template, or hand-assigned ones) are silently ignored: they are not
// counted and do not block allocation. The result is max(observed)+1,
// zero-padded to at least Width digits. Overflow widens the number rather
// than truncating it: width 2 with a maximum of 99 allocates "…100…".
func (s *SerialSpec) Next(existing []string) string {
	maxSeen := 0
	for _, serial := range existing {
		if n, ok := s.Match(serial); ok && n > maxSeen {
			maxSeen = n
		}
	}
	return s.Format(maxSeen + 1)
}

// Format renders a serial for the given number.
func (s *SerialSpec) Format(n int) string {
	return fmt.Sprintf("%s%0*d%s", s.Prefix, s.Width, n, s.Suffix)
}
