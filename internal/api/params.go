package api

import (
	"encoding/json"
	"fmt"
)

// parseParams decodes JSON-RPC params into a map, accepting the
// single-object form.
func parseParams(params json.RawMessage) (map[string]interface{}, error) {
	p := make(map[string]interface{})
	if len(params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters format")
	}
	return p, nil
}

func paramString(p map[string]interface{}, key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

func paramInt64(p map[string]interface{}, key string) int64 {
	if f, ok := p[key].(float64); ok {
		return int64(f)
	}
	return 0
}

func paramInt(p map[string]interface{}, key string, defaultValue int) int {
	if f, ok := p[key].(float64); ok {
		return int(f)
	}
	return defaultValue
}

func paramBool(p map[string]interface{}, key string, defaultValue bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return defaultValue
}

func paramStringSlice(p map[string]interface{}, key string) []string {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
