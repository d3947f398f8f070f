package advisor

import "fmt"

// Capability identifies one advisory operation. The set is closed: every
// switch over Capability in this package enumerates all values and treats
// anything else as a configuration error.
type Capability int

const (
	SoilAnalysis Capability = iota
	SupplierSearch
	Chat
	CropDiagnosis
	WeatherTip
	MarketAnalysis
	CropPlan
	IrrigationAdvice
)

// Capabilities lists every defined capability.
var Capabilities = []Capability{
	SoilAnalysis, SupplierSearch, Chat, CropDiagnosis,
	WeatherTip, MarketAnalysis, CropPlan, IrrigationAdvice,
}

func (c Capability) String() string {
	switch c {
	case SoilAnalysis:
		return "soil_analysis"
	case SupplierSearch:
		return "supplier_search"
	case Chat:
		return "chat"
	case CropDiagnosis:
		return "crop_diagnosis"
	case WeatherTip:
		return "weather_tip"
	case MarketAnalysis:
		return "market_analysis"
	case CropPlan:
		return "crop_plan"
	case IrrigationAdvice:
		return "irrigation_advice"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}
