package advisor

import (
	"fmt"
	"strings"

	"github.com/fieldhand/fieldhand/internal/gemini"
)

const persona = `You are an experienced agronomist advising smallholder and mid-size farms. Be practical, specific and concise.`

// Every capability's instruction carries this framing; it is a fixed domain
// requirement, not an optional style hint.
const comparisonFraming = `Whenever you recommend inputs or practices, compare organic/regenerative options against synthetic/conventional ones: expected outcome, cost and soil impact of each.`

const (
	taskSoil = `Analyze the provided soil readings and return the structured soil assessment. Score overall health from 0 to 100 and rate each major nutrient with a textual level and a normalized 0-100 value.`

	taskDiagnosis = `Diagnose the crop problem shown in the attached photo. Name the most likely disease, pest or deficiency, how confident you are, and a treatment plan.`

	taskMarket = `Analyze current market conditions for the requested goods near the given coordinates. Respond with ONLY a single valid JSON object: {"analysis": markdown string, "prices": [{"label": string, "price": number}]}. No prose outside the JSON.`

	taskPlan = `Propose a crop plan for the coming season at the given coordinates. Respond with ONLY a single valid JSON object: {"analysis": markdown string, "recommendations": [string], "rotation_plan": [string]}. No prose outside the JSON.`

	taskIrrigation = `Advise on irrigation for the given crop and growth stage at the given coordinates, taking seasonal weather into account. Give amounts, timing and method.`

	taskSuppliers = `Find agricultural input suppliers matching the query near the given coordinates. List names, what they stock and how to reach them.`

	taskWeather = `Give one short, actionable farming tip for today's weather conditions. Two sentences at most.`

	taskChat = `Answer the farmer's questions in an ongoing conversation. Stay on farming topics and ask for missing details when needed.`
)

// Prompt is the builder output: a system-level instruction plus the ordered
// content parts to send. Building is pure; the same input always produces the
// same prompt.
type Prompt struct {
	System string
	Parts  []gemini.Part
}

// systemInstruction assembles persona, comparison framing, localization and
// the capability task with any conditional clauses, in that fixed order.
func systemInstruction(task, locale string, extra ...string) string {
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\n")
	sb.WriteString(comparisonFraming)
	if locale != "" {
		fmt.Fprintf(&sb, "\n\nRespond in the language with locale code %q.", locale)
	}
	sb.WriteString("\n\n")
	sb.WriteString(task)
	for _, e := range extra {
		sb.WriteString("\n")
		sb.WriteString(e)
	}
	return sb.String()
}

func locationLine(loc *Location) string {
	if loc == nil {
		return "Location: unknown."
	}
	return fmt.Sprintf("Location: latitude %.5f, longitude %.5f.", loc.Latitude, loc.Longitude)
}

// BuildSoilPrompt produces the soil-analysis prompt. When a photo is attached
// the instruction also asks for visual indicator extraction.
func BuildSoilPrompt(cc CallContext, in SoilInput) Prompt {
	spec, _ := Describe(SoilAnalysis)

	var extra []string
	if in.Photo != nil {
		extra = append(extra, `A soil photo is attached: extract visual indicators (color, structure, surface condition) and estimate the texture with a confidence between 0 and 1.`)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Soil readings:\n- pH: %.1f\n- Organic matter: %.1f%%\n- Texture: %s\n", in.PH, in.OrganicMatter, in.Texture)
	sb.WriteString(locationLine(cc.Location))
	if in.ReportText != "" {
		fmt.Fprintf(&sb, "\n\nLab report extract:\n%s", in.ReportText)
	}

	parts := []gemini.Part{{Text: sb.String()}}
	if in.Photo != nil {
		parts = append(parts, in.Photo.part())
	}
	return Prompt{System: systemInstruction(spec.Task, cc.Locale, extra...), Parts: parts}
}

// BuildDiagnosisPrompt produces the crop-diagnosis prompt.
func BuildDiagnosisPrompt(cc CallContext, in DiagnosisInput) Prompt {
	spec, _ := Describe(CropDiagnosis)

	text := fmt.Sprintf("Crop: %s.\n%s", in.Crop, locationLine(cc.Location))
	parts := []gemini.Part{{Text: text}}
	if in.Photo != nil {
		parts = append(parts, in.Photo.part())
	}
	return Prompt{System: systemInstruction(spec.Task, cc.Locale), Parts: parts}
}

// BuildMarketPrompt produces the market-analysis prompt. Queries mentioning
// organic goods get an explicit organic-premium comparison section.
func BuildMarketPrompt(cc CallContext, in MarketInput) Prompt {
	spec, _ := Describe(MarketAnalysis)

	var extra []string
	if strings.Contains(strings.ToLower(in.Query), "organic") {
		extra = append(extra, `The query concerns organic goods: include an "organic premium" section comparing organic and conventional prices for the same goods.`)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Market query: %s\n%s", in.Query, locationLine(cc.Location))
	if in.BulletinText != "" {
		fmt.Fprintf(&sb, "\n\nMarket bulletin extract:\n%s", in.BulletinText)
	}
	return Prompt{System: systemInstruction(spec.Task, cc.Locale, extra...), Parts: []gemini.Part{{Text: sb.String()}}}
}

// BuildPlanPrompt produces the crop-plan prompt. The pest-resistance clause is
// injected only when the caller selected that filter.
func BuildPlanPrompt(cc CallContext, in PlanInput) Prompt {
	spec, _ := Describe(CropPlan)

	var extra []string
	if in.PestResistant {
		extra = append(extra, `Only recommend pest-resistant varieties and note which pests each variety resists.`)
	}

	text := fmt.Sprintf("Soil type: %s\nSeason: %s\n%s", in.SoilType, in.Season, locationLine(cc.Location))
	return Prompt{System: systemInstruction(spec.Task, cc.Locale, extra...), Parts: []gemini.Part{{Text: text}}}
}

// BuildIrrigationPrompt produces the irrigation-advice prompt.
func BuildIrrigationPrompt(cc CallContext, in IrrigationInput) Prompt {
	spec, _ := Describe(IrrigationAdvice)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Crop: %s\nGrowth stage: %s\n", in.Crop, in.GrowthStage)
	if in.SoilMoisture != nil {
		fmt.Fprintf(&sb, "Measured soil moisture: %.1f%%\n", *in.SoilMoisture)
	}
	sb.WriteString(locationLine(cc.Location))
	return Prompt{System: systemInstruction(spec.Task, cc.Locale), Parts: []gemini.Part{{Text: sb.String()}}}
}

// BuildSupplierPrompt produces the supplier-search prompt.
func BuildSupplierPrompt(cc CallContext, in SupplierInput) Prompt {
	spec, _ := Describe(SupplierSearch)
	text := fmt.Sprintf("Looking for: %s\n%s", in.Query, locationLine(cc.Location))
	return Prompt{System: systemInstruction(spec.Task, cc.Locale), Parts: []gemini.Part{{Text: text}}}
}

// BuildWeatherPrompt produces the weather-tip prompt. Without a location the
// tip degrades to region-generic advice instead of refusing.
func BuildWeatherPrompt(cc CallContext) Prompt {
	spec, _ := Describe(WeatherTip)
	return Prompt{System: systemInstruction(spec.Task, cc.Locale), Parts: []gemini.Part{{Text: locationLine(cc.Location)}}}
}

// BuildChatSystem produces the system instruction for the chat capability;
// the content parts come from the conversation session itself.
func BuildChatSystem(cc CallContext) string {
	spec, _ := Describe(Chat)
	return systemInstruction(spec.Task, cc.Locale)
}
