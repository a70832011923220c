package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"
)

// valueKey returns the identity of v for key comparisons. Numerically equal
// integers and integral floats share a key so that 1 and 1.0 are the same
// primary-key or foreign-key value; strings never collide with numbers.
func valueKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "b:" + strconv.FormatBool(val)
	case int:
		return intKey(int64(val))
	case int8:
		return intKey(int64(val))
	case int16:
		return intKey(int64(val))
	case int32:
		return intKey(int64(val))
	case int64:
		return intKey(val)
	case uint:
		return uintKey(uint64(val))
	case uint8:
		return uintKey(uint64(val))
	case uint16:
		return uintKey(uint64(val))
	case uint32:
		return uintKey(uint64(val))
	case uint64:
		return uintKey(val)
	case float32:
		return floatKey(float64(val))
	case float64:
		return floatKey(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return intKey(i)
		}
		if f, err := val.Float64(); err == nil {
			return floatKey(f)
		}
		return "n:" + val.String()
	case *big.Int:
		if val == nil {
			return "null"
		}
		if val.IsInt64() {
			return intKey(val.Int64())
		}
		return "n:" + val.String()
	case string:
		return "s:" + val
	case time.Time:
		return "t:" + val.UTC().Format(time.RFC3339Nano)
	case []byte:
		return "s:" + string(val)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

func intKey(i int64) string {
	return "n:" + strconv.FormatInt(i, 10)
}

func uintKey(u uint64) string {
	return "n:" + strconv.FormatUint(u, 10)
}

func floatKey(f float64) string {
	if math.IsNaN(f) {
		return "null"
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return intKey(int64(f))
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// keyedValue is a distinct value and how often it occurs, in first-occurrence
// order.
type keyedValue struct {
	key   string
	value any
	count int
}

// countDistinct counts the occurrences of each distinct value, preserving the
// order in which values were first seen.
func countDistinct(values []any) []keyedValue {
	index := make(map[string]int, len(values))
	var out []keyedValue
	for _, v := range values {
		k := valueKey(v)
		if i, ok := index[k]; ok {
			out[i].count++
			continue
		}
		index[k] = len(out)
		out = append(out, keyedValue{key: k, value: v, count: 1})
	}
	return out
}
