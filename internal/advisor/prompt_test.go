package advisor

import (
	"strings"
	"testing"
)

var testPlace = &Location{Latitude: -1.28333, Longitude: 36.81667}

func TestEveryCapabilityHasSpec(t *testing.T) {
	for _, c := range Capabilities {
		spec, err := Describe(c)
		if err != nil {
			t.Errorf("Describe(%s): %v", c, err)
		}
		if spec.Task == "" {
			t.Errorf("Describe(%s): empty task template", c)
		}
	}
}

func TestDescribeUnknownCapability(t *testing.T) {
	if _, err := Describe(Capability(99)); err == nil {
		t.Error("expected configuration error for unknown capability")
	}
}

func TestSearchAndSchemaNeverCombined(t *testing.T) {
	// The API rejects an enforced response schema together with tools.
	for _, c := range Capabilities {
		spec, err := Describe(c)
		if err != nil {
			t.Fatalf("Describe(%s): %v", c, err)
		}
		if spec.AllowSearch && spec.Mode == ModeJSONSchema {
			t.Errorf("%s enables search together with an enforced schema", c)
		}
		if spec.Mode == ModeJSONSchema && spec.Schema == nil {
			t.Errorf("%s declares ModeJSONSchema without a schema", c)
		}
	}
}

func TestSystemInstructionCarriesFramingAndLocale(t *testing.T) {
	prompts := map[string]Prompt{
		"soil":       BuildSoilPrompt(CallContext{Locale: "sw-KE"}, SoilInput{PH: 6.5, OrganicMatter: 3, Texture: "Loam"}),
		"diagnosis":  BuildDiagnosisPrompt(CallContext{Locale: "sw-KE"}, DiagnosisInput{Crop: "maize"}),
		"market":     BuildMarketPrompt(CallContext{Locale: "sw-KE", Location: testPlace}, MarketInput{Query: "maize"}),
		"plan":       BuildPlanPrompt(CallContext{Locale: "sw-KE", Location: testPlace}, PlanInput{SoilType: "Loam", Season: "long rains"}),
		"irrigation": BuildIrrigationPrompt(CallContext{Locale: "sw-KE", Location: testPlace}, IrrigationInput{Crop: "tomato", GrowthStage: "flowering"}),
		"suppliers":  BuildSupplierPrompt(CallContext{Locale: "sw-KE", Location: testPlace}, SupplierInput{Query: "drip lines"}),
		"weather":    BuildWeatherPrompt(CallContext{Locale: "sw-KE", Location: testPlace}),
	}
	for name, p := range prompts {
		if !strings.Contains(p.System, "organic/regenerative") {
			t.Errorf("%s: system instruction missing comparison framing", name)
		}
		if !strings.Contains(p.System, `"sw-KE"`) {
			t.Errorf("%s: system instruction missing locale directive", name)
		}
	}
	if sys := BuildChatSystem(CallContext{Locale: "sw-KE"}); !strings.Contains(sys, "organic/regenerative") {
		t.Error("chat system instruction missing comparison framing")
	}
}

func TestSoilPromptPhotoConditional(t *testing.T) {
	in := SoilInput{PH: 6.5, OrganicMatter: 3.0, Texture: "Loam"}

	plain := BuildSoilPrompt(CallContext{}, in)
	if strings.Contains(plain.System, "visual indicators") {
		t.Error("visual indicator clause present without a photo")
	}
	if len(plain.Parts) != 1 {
		t.Fatalf("expected 1 part without photo, got %d", len(plain.Parts))
	}
	if !strings.Contains(plain.Parts[0].Text, "pH: 6.5") {
		t.Errorf("readings missing from prompt text: %q", plain.Parts[0].Text)
	}

	in.Photo = &Attachment{MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	withPhoto := BuildSoilPrompt(CallContext{}, in)
	if !strings.Contains(withPhoto.System, "visual indicators") {
		t.Error("visual indicator clause missing with a photo attached")
	}
	if len(withPhoto.Parts) != 2 || withPhoto.Parts[1].InlineData == nil {
		t.Fatalf("expected text part then inline data, got %+v", withPhoto.Parts)
	}
	if withPhoto.Parts[1].InlineData.MimeType != "image/jpeg" {
		t.Errorf("mime type = %q", withPhoto.Parts[1].InlineData.MimeType)
	}
}

func TestMarketPromptOrganicPremiumConditional(t *testing.T) {
	cc := CallContext{Location: testPlace}

	organic := BuildMarketPrompt(cc, MarketInput{Query: "Organic tomato prices"})
	if !strings.Contains(organic.System, "organic premium") {
		t.Error("organic query missing organic-premium section instruction")
	}

	plain := BuildMarketPrompt(cc, MarketInput{Query: "tomato prices"})
	if strings.Contains(plain.System, "organic premium") {
		t.Error("organic-premium instruction injected for a non-organic query")
	}
}

func TestPlanPromptPestResistanceConditional(t *testing.T) {
	cc := CallContext{Location: testPlace}
	in := PlanInput{SoilType: "Clay", Season: "short rains"}

	plain := BuildPlanPrompt(cc, in)
	if strings.Contains(plain.System, "pest-resistant") {
		t.Error("pest-resistance clause present without the filter")
	}

	in.PestResistant = true
	filtered := BuildPlanPrompt(cc, in)
	if !strings.Contains(filtered.System, "pest-resistant") {
		t.Error("pest-resistance clause missing with the filter set")
	}
}

func TestPromptBuildingDeterministic(t *testing.T) {
	cc := CallContext{Locale: "en-IN", Location: testPlace}
	in := MarketInput{Query: "organic wheat"}

	a := BuildMarketPrompt(cc, in)
	b := BuildMarketPrompt(cc, in)
	if a.System != b.System {
		t.Error("system instruction differs between identical builds")
	}
	if len(a.Parts) != len(b.Parts) || a.Parts[0].Text != b.Parts[0].Text {
		t.Error("parts differ between identical builds")
	}
}
