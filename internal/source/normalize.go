package source

import (
	"encoding/base64"
	"time"

	"github.com/nikolay-makurin/extractor/internal/schema"
)

// Normalize rewrites one raw row into JSON-representable values: calendar
// instants become ISO-8601 strings and binary values in base64-hinted
// fields become base64 strings. Everything else passes through unchanged;
// exact decimals are intentionally left for the serializer, which encodes
// them as full-precision JSON numbers. The boolean result is a suppression
// hook: false drops the row from output.
func Normalize(row RawRow, stream *schema.Table) (map[string]interface{}, bool) {
	out := make(map[string]interface{}, len(row))
	for name, v := range row {
		if v == nil {
			out[name] = nil
			continue
		}
		t := stream.Types[name]
		switch val := v.(type) {
		case time.Time:
			out[name] = formatTemporal(val, t.Format)
		case []byte:
			if t.ContentEncoding == schema.EncodingBase64 {
				out[name] = base64.StdEncoding.EncodeToString(val)
			} else {
				out[name] = string(val)
			}
		default:
			out[name] = v
		}
	}
	return out, true
}

// formatTemporal renders an instant per the column's format hint. The
// fractional layout trims trailing zeros, so sub-second components round
// trip exactly when present and stay absent otherwise.
func formatTemporal(ts time.Time, format string) string {
	switch format {
	case schema.FormatDate:
		return ts.Format("2006-01-02")
	case schema.FormatTime:
		return ts.Format("15:04:05.999999999")
	default:
		return ts.Format("2006-01-02T15:04:05.999999999-07:00")
	}
}
