package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"tabular-qa/cdmcheck/pkg/schema"
)

// Tag is the canonical type of a runtime value. The closed set is the five
// schema kinds plus TagNull; any other value is tagged with its Go type name.
type Tag string

const (
	TagNull     Tag = "null"
	TagInteger  Tag = Tag(schema.KindInteger)
	TagFloat    Tag = Tag(schema.KindFloat)
	TagString   Tag = Tag(schema.KindString)
	TagBool     Tag = Tag(schema.KindBool)
	TagDatetime Tag = Tag(schema.KindDatetime)
)

// IsCanonical reports whether t is one of the closed set of tags.
func (t Tag) IsCanonical() bool {
	switch t {
	case TagNull, TagInteger, TagFloat, TagString, TagBool, TagDatetime:
		return true
	}
	return false
}

// Matches reports whether a value tagged t satisfies kind.
func (t Tag) Matches(kind schema.Kind) bool {
	return string(t) == string(kind)
}

// DefaultDatetimeLayouts are the layouts a string must match to count as a
// datetime: ISO-8601 variants and their YYYY/MM/DD counterparts.
var DefaultDatetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// Normalizer maps runtime values to canonical tags.
type Normalizer struct {
	layouts []string
}

// NewNormalizer creates a normalizer that recognises datetime strings under
// layouts. With no layouts, DefaultDatetimeLayouts is used.
func NewNormalizer(layouts ...string) *Normalizer {
	if len(layouts) == 0 {
		layouts = DefaultDatetimeLayouts
	}
	return &Normalizer{layouts: append([]string(nil), layouts...)}
}

// Layouts returns the datetime layouts in use.
func (n *Normalizer) Layouts() []string {
	return append([]string(nil), n.layouts...)
}

// Classify returns the tag of v. expected is the declared kind of the column
// the value came from; strings are only tried as datetimes when the column is
// declared datetime, so that "2024-01-01" in a string column stays a string.
//
// Precedence: null, bool, integral number, non-integral number, datetime,
// string, then the Go type name. Classify never fails.
func (n *Normalizer) Classify(v any, expected schema.Kind) Tag {
	switch val := v.(type) {
	case nil:
		return TagNull
	case bool:
		return TagBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TagInteger
	case float32:
		return classifyFloat(float64(val))
	case float64:
		return classifyFloat(val)
	case json.Number:
		return classifyNumber(val)
	case *big.Int:
		if val == nil {
			return TagNull
		}
		return TagInteger
	case time.Time:
		return TagDatetime
	case *time.Time:
		if val == nil {
			return TagNull
		}
		return TagDatetime
	case string:
		if expected == schema.KindDatetime && n.isDatetime(val) {
			return TagDatetime
		}
		return TagString
	default:
		return Tag(fmt.Sprintf("%T", v))
	}
}

// classifyFloat tags NaN as null, matching how dataframe readers represent
// missing numeric cells. Integral floats stay floats.
func classifyFloat(f float64) Tag {
	if math.IsNaN(f) {
		return TagNull
	}
	return TagFloat
}

func classifyNumber(num json.Number) Tag {
	s := num.String()
	if _, err := num.Int64(); err == nil {
		return TagInteger
	}
	if !strings.ContainsAny(s, ".eE") {
		// Integer literal too large for int64.
		if _, ok := new(big.Int).SetString(s, 10); ok {
			return TagInteger
		}
	}
	// Any other literal has a fraction or exponent and reads as a float,
	// integral or not.
	if _, err := num.Float64(); err != nil {
		return TagString
	}
	return TagFloat
}

func (n *Normalizer) isDatetime(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, layout := range n.layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// IsNull reports whether v is classified as null.
func IsNull(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	case *time.Time:
		return val == nil
	case *big.Int:
		return val == nil
	}
	return false
}
