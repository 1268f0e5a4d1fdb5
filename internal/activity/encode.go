package activity

import "encoding/json"

// encodeFieldValue renders an arbitrary mapped value into the flat string
// representation a JobRecord.Fields entry holds; strings are stored
// unchanged, every other value as its JSON encoding.
func encodeFieldValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
