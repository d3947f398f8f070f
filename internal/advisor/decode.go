package advisor

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Fallback sentences substituted when a free-text capability returns nothing.
const (
	fallbackAdvice    = "Unable to generate advice."
	fallbackDiagnosis = "Diagnosis failed."
)

// decodeJSON leniently parses raw model output into T. Empty and malformed
// payloads yield the zero value instead of an error: model output is untyped
// external input and a half-empty result beats a crashed caller. Markdown
// code fences around the JSON are tolerated.
func decodeJSON[T any](capability Capability, raw string) T {
	var out T
	s := stripFences(raw)
	if strings.TrimSpace(s) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		slog.Warn("discarding malformed structured response", "capability", capability.String(), "error", err)
		var zero T
		return zero
	}
	return out
}

// decodeText substitutes the capability's fallback sentence for empty payloads.
func decodeText(capability Capability, raw string) string {
	if strings.TrimSpace(raw) == "" {
		if capability == CropDiagnosis {
			return fallbackDiagnosis
		}
		return fallbackAdvice
	}
	return raw
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, from model output that was asked for bare JSON.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.Index(t, "\n"); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
