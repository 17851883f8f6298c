package singer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// jsonNumber makes a decimal marshal as a bare JSON number, preserving the
// full input precision instead of routing through a binary float.
type jsonNumber struct{ decimal.Decimal }

func (n jsonNumber) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// Encode marshals a value with the extractor's encoding policy: exact
// decimals become full-precision JSON numbers and any value kind with no
// native JSON representation falls back to its canonical string form, so
// encoding can never fail on an unexpected driver type.
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(sanitize(v))
}

func sanitize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]byte, time.Time:
		return val
	case decimal.Decimal:
		return jsonNumber{val}
	case map[string]interface{}:
		return sanitizeMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sanitize(item)
		}
		return out
	case RecordMessage:
		val.Record = sanitizeMap(val.Record)
		return val
	case SchemaMessage:
		return val
	case StateMessage:
		val.Value = sanitizeMap(val.Value)
		return val
	case json.Marshaler:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = sanitize(v)
	}
	return out
}

// Decode mirrors Encode: numeric literals that look fractional decode as
// exact decimals, never as binary floats, so a serialize/deserialize round
// trip loses no precision. Integral literals decode as int64, overflowing
// ones as decimals.
func Decode(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return reviveMap(m), nil
}

func reviveMap(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		m[k] = revive(v)
	}
	return m
}

func revive(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		return reviveNumber(val)
	case map[string]interface{}:
		return reviveMap(val)
	case []interface{}:
		for i, item := range val {
			val[i] = revive(item)
		}
		return val
	default:
		return v
	}
}

func reviveNumber(n json.Number) interface{} {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	return s
}

// LineEncoder encodes messages as newline-terminated JSON lines, reusing a
// single growable buffer across calls. Each call fully overwrites the
// buffer's prior contents. Not safe for concurrent use; callers must copy
// the returned bytes before the next call.
type LineEncoder struct {
	buf bytes.Buffer
}

// EncodeLine returns the message as one JSON line. The returned slice
// aliases the encoder's internal buffer and is only valid until the next
// call.
func (e *LineEncoder) EncodeLine(v interface{}) ([]byte, error) {
	data, err := Encode(v)
	if err != nil {
		return nil, err
	}
	e.buf.Reset()
	e.buf.Write(data)
	e.buf.WriteByte('\n')
	return e.buf.Bytes(), nil
}
