package masking

import "strings"

const maskToken = "****"

// SensitiveKeys lists metadata keys whose values are masked before an
// activity entry is stored.
var SensitiveKeys = []string{"phone"}

// MaskPhone keeps only the last four characters of a phone number.
func MaskPhone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskFields returns a copy of input with the listed keys masked. Nested maps
// are walked; other values are copied as-is.
func MaskFields(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}

	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[strings.ToLower(key)] = struct{}{}
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		out[trimmedKey] = maskValue(trimmedKey, value, sensitive)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func maskValue(key string, value any, sensitive map[string]struct{}) any {
	switch cast := value.(type) {
	case string:
		if _, ok := sensitive[strings.ToLower(key)]; ok {
			return MaskPhone(cast)
		}
		return cast
	case map[string]any:
		keys := make([]string, 0, len(sensitive))
		for k := range sensitive {
			keys = append(keys, k)
		}
		return MaskFields(cast, keys...)
	default:
		return value
	}
}
