package advisor

import (
	"encoding/base64"
	"errors"

	"github.com/fieldhand/fieldhand/internal/gemini"
)

// ErrLocationRequired is returned before any remote call when a capability
// needs coordinates and none were supplied.
var ErrLocationRequired = errors.New("location required: provide coordinates to get this advice")

// ErrServiceBusy wraps a transient remote fault that survived all retries.
var ErrServiceBusy = errors.New("advice service is busy, try again shortly")

// Location is a caller-supplied coordinate pair. The core never acquires
// location itself; absence means "location unknown".
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CallContext carries the per-call ambient parameters. These are explicit
// arguments rather than process-global state so calls stay independent.
type CallContext struct {
	Locale   string
	Location *Location
}

// Attachment is a binary payload (typically a photo) sent alongside a prompt.
type Attachment struct {
	MimeType string
	Data     []byte
}

func (a *Attachment) part() gemini.Part {
	return gemini.Part{InlineData: &gemini.InlineData{
		MimeType: a.MimeType,
		Data:     base64.StdEncoding.EncodeToString(a.Data),
	}}
}

// SoilInput is the payload for soil analysis.
type SoilInput struct {
	PH            float64
	OrganicMatter float64
	Texture       string
	ReportText    string // optional extracted lab-report text
	Photo         *Attachment
}

// DiagnosisInput is the payload for crop diagnosis. Photo is mandatory.
type DiagnosisInput struct {
	Crop  string
	Photo *Attachment
}

// MarketInput is the payload for market analysis.
type MarketInput struct {
	Query        string
	BulletinText string // optional extracted market-bulletin text
}

// PlanInput is the payload for crop planning.
type PlanInput struct {
	SoilType      string
	Season        string
	PestResistant bool
}

// IrrigationInput is the payload for irrigation advice.
type IrrigationInput struct {
	Crop         string
	GrowthStage  string
	SoilMoisture *float64 // volumetric %, when the caller has a reading
}

// SupplierInput is the payload for supplier search.
type SupplierInput struct {
	Query string
}

/// Result field types are pointers so callers can tell "missing" from "zero":
// model output is untyped external input and any field may be absent.

// NutrientLevel is one nutrient reading extracted by the model.
type NutrientLevel struct {
	Name  *string  `json:"name"`
	Level *string  `json:"level"`
	Value *float64 `json:"value"` // normalized 0-100
}

// TextureEstimate is the model's visual texture guess with its confidence.
type TextureEstimate struct {
	Type       *string  `json:"type"`
	Confidence *float64 `json:"confidence"`
}

// SoilAnalysisResult is the decoded soil analysis response.
type SoilAnalysisResult struct {
	Analysis         *string          `json:"analysis"`
	HealthScore      *float64         `json:"health_score"` // 0-100
	Nutrients        []NutrientLevel  `json:"nutrients"`
	VisualIndicators []string         `json:"visual_indicators"`
	Texture          *TextureEstimate `json:"texture"`

	Sources []gemini.GroundingChunk `json:"-"`
}

// PricePoint is one labelled price in a market analysis.
type PricePoint struct {
	Label *string  `json:"label"`
	Price *float64 `json:"price"`
}

// MarketAnalysisResult is the decoded market analysis response.
type MarketAnalysisResult struct {
	Analysis *string      `json:"analysis"`
	Prices   []PricePoint `json:"prices"`

	Sources []gemini.GroundingChunk `json:"-"`
}

// CropPlanResult is the decoded crop plan response.
type CropPlanResult struct {
	Analysis        *string  `json:"analysis"`
	Recommendations []string `json:"recommendations"`
	RotationPlan    []string `json:"rotation_plan"`

	Sources []gemini.GroundingChunk `json:"-"`
}

// Advice is a free-text response with its grounding sources.
type Advice struct {
	Text    string
	Sources []gemini.GroundingChunk
}
