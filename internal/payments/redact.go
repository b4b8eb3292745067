package payments

import "strings"

const redacted = "[redacted]"

var sensitiveKeys = []string{
	"master_key",
	"private_key",
	"public_key",
	"secret",
	"password",
	"authorization",
	"source_id",
	"card",
	"cvv",
}

// redact copies data with sensitive values masked, descending into nested maps.
func redact(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for key, value := range data {
		if isSensitive(key) {
			out[key] = redacted
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			out[key] = redact(v)
		case []any:
			items := make([]any, len(v))
			for i, item := range v {
				if nested, ok := item.(map[string]any); ok {
					items[i] = redact(nested)
					continue
				}
				items[i] = item
			}
			out[key] = items
		default:
			out[key] = value
		}
	}
	return out
}

func isSensitive(key string) bool {
	lowered := strings.ToLower(key)
	lowered = strings.ReplaceAll(lowered, "-", "_")
	for _, candidate := range sensitiveKeys {
		if strings.Contains(lowered, candidate) {
			return true
		}
	}
	return false
}
