package advisor

import "testing"

func TestDecodeJSONEmptyPayload(t *testing.T) {
	out := decodeJSON[SoilAnalysisResult](SoilAnalysis, "")
	if out.Analysis != nil || out.HealthScore != nil || out.Nutrients != nil || out.Texture != nil {
		t.Errorf("expected all fields absent, got %+v", out)
	}
}

func TestDecodeJSONMalformedPayload(t *testing.T) {
	out := decodeJSON[MarketAnalysisResult](MarketAnalysis, "I could not produce JSON, sorry")
	if out.Analysis != nil || out.Prices != nil {
		t.Errorf("expected zero result for malformed payload, got %+v", out)
	}
}

func TestDecodeJSONPartialFields(t *testing.T) {
	out := decodeJSON[SoilAnalysisResult](SoilAnalysis, `{"health_score": 72}`)
	if out.HealthScore == nil || *out.HealthScore != 72 {
		t.Fatalf("health_score = %v, want 72", out.HealthScore)
	}
	// Missing is distinguishable from zero.
	if out.Analysis != nil {
		t.Errorf("analysis should be absent, got %q", *out.Analysis)
	}
}

func TestDecodeJSONFencedPayload(t *testing.T) {
	raw := "```json\n{\"analysis\":\"prices are up\",\"prices\":[{\"label\":\"maize 90kg\",\"price\":41.5}]}\n```"
	out := decodeJSON[MarketAnalysisResult](MarketAnalysis, raw)
	if out.Analysis == nil || *out.Analysis != "prices are up" {
		t.Fatalf("analysis = %v", out.Analysis)
	}
	if len(out.Prices) != 1 || out.Prices[0].Price == nil || *out.Prices[0].Price != 41.5 {
		t.Errorf("prices = %+v", out.Prices)
	}
}

func TestDecodeTextFallbacks(t *testing.T) {
	if got := decodeText(WeatherTip, "  \n"); got != fallbackAdvice {
		t.Errorf("empty weather tip = %q, want fallback", got)
	}
	if got := decodeText(CropDiagnosis, ""); got != fallbackDiagnosis {
		t.Errorf("empty diagnosis = %q, want diagnosis fallback", got)
	}
	if got := decodeText(Chat, "use mulch"); got != "use mulch" {
		t.Errorf("non-empty payload altered: %q", got)
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
