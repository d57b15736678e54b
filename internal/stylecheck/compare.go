package stylecheck

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jordan/design-validator/internal/types"
)

// Attribute classes. Discrete attributes compare as normalized strings,
// continuous ones within a numeric tolerance, colors per channel. The
// exact set is a tuning choice exposed through Options, not a contract.

var continuousAttributes = map[string]bool{
	"font-size":      true,
	"line-height":    true,
	"letter-spacing": true,
	"width":          true,
	"height":         true,
}

var colorAttributes = map[string]bool{
	"color":            true,
	"background-color": true,
	"border-color":     true,
}

var numberRe = regexp.MustCompile(`^-?\d*\.?\d+`)

var rgbRe = regexp.MustCompile(`rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)`)

// compareAttribute applies the attribute-specific equality rule.
func compareAttribute(attr, expected, actual string, opts Options) types.AttributeComparison {
	cmp := types.AttributeComparison{
		Attribute: attr,
		Expected:  expected,
		Actual:    actual,
	}

	switch {
	case colorAttributes[attr]:
		cmp.Match = colorsMatch(expected, actual, opts.ColorChannelTolerance)
	case continuousAttributes[attr]:
		cmp.Match = numericMatch(expected, actual, opts.NumericTolerancePx)
	case attr == "font-weight":
		cmp.Match = weightsMatch(expected, actual)
	case attr == "font-family":
		cmp.Match = fontFamiliesMatch(expected, actual)
	default:
		cmp.Match = normalizeDiscrete(expected) == normalizeDiscrete(actual)
	}
	return cmp
}

// numericMatch parses the leading number of both values and compares
// within tolerance. The check is symmetric: |expected-actual| <= tol.
// Values that don't parse (e.g. line-height "normal") fall back to
// string equality.
func numericMatch(expected, actual string, tolerance float64) bool {
	e, okE := leadingNumber(expected)
	a, okA := leadingNumber(actual)
	if !okE || !okA {
		return normalizeDiscrete(expected) == normalizeDiscrete(actual)
	}
	return math.Abs(e-a) <= tolerance
}

func leadingNumber(s string) (float64, bool) {
	m := numberRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// colorsMatch parses both values as colors and compares each RGB
// channel within tolerance. Unparseable values compare as strings.
func colorsMatch(expected, actual string, tolerance int) bool {
	er, eg, eb, okE := parseColor(expected)
	ar, ag, ab, okA := parseColor(actual)
	if !okE || !okA {
		return normalizeDiscrete(expected) == normalizeDiscrete(actual)
	}
	return absInt(er-ar) <= tolerance && absInt(eg-ag) <= tolerance && absInt(eb-ab) <= tolerance
}

// parseColor understands rgb()/rgba() and #rgb/#rrggbb notations, the
// two forms that occur in Zeplin styles and computed CSS.
func parseColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimSpace(strings.ToLower(s))

	if m := rgbRe.FindStringSubmatch(s); m != nil {
		r, _ = strconv.Atoi(m[1])
		g, _ = strconv.Atoi(m[2])
		b, _ = strconv.Atoi(m[3])
		return r, g, b, true
	}

	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = fmt.Sprintf("%c%c%c%c%c%c", hex[0], hex[0], hex[1], hex[1], hex[2], hex[2])
		}
		if len(hex) != 6 {
			return 0, 0, 0, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
	}

	return 0, 0, 0, false
}

// weightsMatch compares font weights numerically, mapping the CSS
// keywords onto their numeric values.
func weightsMatch(expected, actual string) bool {
	return weightValue(expected) == weightValue(actual)
}

func weightValue(s string) int {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "normal", "regular":
		return 400
	case "bold":
		return 700
	}
	if v, ok := leadingNumber(s); ok {
		return int(v)
	}
	return 0
}

// fontFamiliesMatch reports whether the declared family appears in the
// computed font-family list. Computed values carry the full fallback
// stack ("Roboto", sans-serif); the design declares a single family.
func fontFamiliesMatch(expected, actual string) bool {
	want := normalizeFamily(expected)
	if want == "" {
		return false
	}
	for _, fam := range strings.Split(actual, ",") {
		if normalizeFamily(fam) == want {
			return true
		}
	}
	return false
}

func normalizeFamily(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

func normalizeDiscrete(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
