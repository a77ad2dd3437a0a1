package insight

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Year is a year value that the source data stores either as a
// JSON number or as a string. The input spelling is kept so
// it round-trips unchanged.
type Year struct {
	text    string
	numeric bool
}

// NumberYear returns a Year that was stored as a JSON number.
func NumberYear(y int) Year {
	return Year{text: strconv.Itoa(y), numeric: true}
}

// TextYear returns a Year that was stored as a JSON string.
// Surrounding whitespace is trimmed; an empty string is the
// zero Year.
func TextYear(s string) Year {
	return Year{text: strings.TrimSpace(s)}
}

// ParseStoredYear rebuilds a Year from its text and whether it
// was decoded from a JSON number.
func ParseStoredYear(s string, numeric bool) Year {
	y := TextYear(s)
	y.numeric = numeric && y.text != ""
	return y
}

// IsZero reports whether the year is absent.
func (y Year) IsZero() bool { return y.text == "" }

// IsNumeric reports whether the year was stored as a JSON number.
func (y Year) IsNumeric() bool { return y.numeric }

// String returns the year as text.
func (y Year) String() string { return y.text }

// Number returns the year as a number when its text parses as one.
func (y Year) Number() (float64, bool) {
	if y.text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(y.text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MarshalJSON writes numeric years as numbers and all others as
// strings.
func (y Year) MarshalJSON() ([]byte, error) {
	if y.text == "" {
		return []byte("null"), nil
	}
	if y.numeric {
		if _, ok := y.Number(); ok {
			return []byte(y.text), nil
		}
	}
	return []byte(strconv.Quote(y.text)), nil
}

// UnmarshalJSON accepts a number, a string, or null. Any other
// JSON type decodes as the zero Year.
func (y *Year) UnmarshalJSON(data []byte) error {
	*y = yearFrom(gjson.ParseBytes(data))
	return nil
}

func yearFrom(v gjson.Result) Year {
	switch v.Type {
	case gjson.Number:
		return Year{text: strings.TrimSpace(v.Raw), numeric: true}
	case gjson.String:
		return TextYear(v.Str)
	}
	return Year{}
}
