package advisor

import (
	"fmt"

	"github.com/fieldhand/fieldhand/internal/gemini"
)

// ResponseMode says how a capability's response payload is decoded.
type ResponseMode int

const (
	// ModeMarkdown: free-text Markdown, returned as-is.
	ModeMarkdown ResponseMode = iota
	// ModeJSON: JSON requested by instruction, decoded leniently. Used by
	// capabilities that also need the search tool, which the API refuses to
	// combine with an enforced response schema.
	ModeJSON
	// ModeJSONSchema: JSON enforced via generationConfig.responseSchema.
	ModeJSONSchema
)

// Spec is the registry entry for one capability: its task template and the
// model configuration the façade applies when calling.
type Spec struct {
	Task   string // capability task instructions, appended to the system instruction
	Mode   ResponseMode
	Schema *gemini.Schema // non-nil only for ModeJSONSchema

	AllowSearch bool // external-search grounding tool
	NeedsImage  bool // capability accepts (or requires) an image attachment
	NeedsPlace  bool // refuses to run without a location
}

// Describe returns the registry entry for c. It is a pure lookup; an unknown
// capability is a configuration error, not a runtime condition to tolerate.
func Describe(c Capability) (Spec, error) {
	switch c {
	case SoilAnalysis:
		return Spec{
			Task:       taskSoil,
			Mode:       ModeJSONSchema,
			Schema:     soilSchema(),
			NeedsImage: true,
		}, nil
	case CropDiagnosis:
		return Spec{
			Task:       taskDiagnosis,
			Mode:       ModeMarkdown,
			NeedsImage: true,
		}, nil
	case MarketAnalysis:
		return Spec{
			Task:        taskMarket,
			Mode:        ModeJSON,
			AllowSearch: true,
			NeedsPlace:  true,
		}, nil
	case CropPlan:
		return Spec{
			Task:        taskPlan,
			Mode:        ModeJSON,
			AllowSearch: true,
			NeedsPlace:  true,
		}, nil
	case IrrigationAdvice:
		return Spec{
			Task:        taskIrrigation,
			Mode:        ModeMarkdown,
			AllowSearch: true,
			NeedsPlace:  true,
		}, nil
	case SupplierSearch:
		return Spec{
			Task:        taskSuppliers,
			Mode:        ModeMarkdown,
			AllowSearch: true,
			NeedsPlace:  true,
		}, nil
	case WeatherTip:
		return Spec{
			Task:        taskWeather,
			Mode:        ModeMarkdown,
			AllowSearch: true,
		}, nil
	case Chat:
		return Spec{
			Task:        taskChat,
			Mode:        ModeMarkdown,
			AllowSearch: true,
		}, nil
	default:
		return Spec{}, fmt.Errorf("advisor: unknown capability %d", int(c))
	}
}

func soilSchema() *gemini.Schema {
	return &gemini.Schema{
		Type: "object",
		Properties: map[string]*gemini.Schema{
			"analysis":     {Type: "string", Description: "Markdown assessment of the soil"},
			"health_score": {Type: "number", Description: "Overall soil health, 0-100"},
			"nutrients": {
				Type: "array",
				Items: &gemini.Schema{
					Type: "object",
					Properties: map[string]*gemini.Schema{
						"name":  {Type: "string"},
						"level": {Type: "string", Description: "low, adequate or high"},
						"value": {Type: "number", Description: "normalized 0-100"},
					},
				},
			},
			"visual_indicators": {
				Type:        "array",
				Items:       &gemini.Schema{Type: "string"},
				Description: "Observations from the photo, when one was provided",
			},
			"texture": {
				Type: "object",
				Properties: map[string]*gemini.Schema{
					"type":       {Type: "string"},
					"confidence": {Type: "number"},
				},
			},
		},
	}
}
