// Package advisor turns typed farm inputs into advice from a remote
// generative model: it builds capability-specific prompts, executes the call
// with bounded retry, and decodes the answer leniently into typed results.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldhand/fieldhand/internal/gemini"
	"github.com/fieldhand/fieldhand/internal/retry"
)

// ModelCaller performs one remote generateContent invocation.
type ModelCaller interface {
	Generate(ctx context.Context, req *gemini.Request) (*gemini.Response, error)
}

// Service is the advisory façade: one method per capability. Calls are fully
// independent and safe to run concurrently; the service holds no per-call state.
type Service struct {
	model ModelCaller
	exec  *retry.Executor
}

// New creates a Service calling the given model with the default retry policy.
func New(model ModelCaller) *Service {
	return &Service{model: model, exec: retry.New()}
}

// NewWithExecutor creates a Service with a custom executor (used by tests to
// avoid real retry delays).
func NewWithExecutor(model ModelCaller, exec *retry.Executor) *Service {
	return &Service{model: model, exec: exec}
}

// call runs one prompt through the executor and returns the raw response.
// Transient faults that survive every retry surface as ErrServiceBusy.
func (s *Service) call(ctx context.Context, c Capability, spec Spec, contents []gemini.Content, system string) (*gemini.Response, error) {
	req := &gemini.Request{
		Contents:          contents,
		SystemInstruction: &gemini.SystemInstruction{Parts: []gemini.Part{{Text: system}}},
	}
	if spec.AllowSearch {
		req.Tools = []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}}
	}
	if spec.Mode == ModeJSONSchema {
		req.GenerationConfig = &gemini.GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   spec.Schema,
		}
	}

	resp, err := retry.Do(ctx, s.exec, func(ctx context.Context) (*gemini.Response, error) {
		return s.model.Generate(ctx, req)
	})
	if err != nil {
		if retry.Retryable(err) {
			slog.Warn("advice call exhausted retries", "capability", c.String(), "error", err)
			return nil, fmt.Errorf("%w: %v", ErrServiceBusy, err)
		}
		return nil, fmt.Errorf("%s: %w", c.String(), err)
	}
	return resp, nil
}

func userContent(p Prompt) []gemini.Content {
	return []gemini.Content{{Role: "user", Parts: p.Parts}}
}

func requirePlace(spec Spec, cc CallContext) error {
	if spec.NeedsPlace && cc.Location == nil {
		return ErrLocationRequired
	}
	return nil
}

// AnalyzeSoil analyzes soil readings (and an optional photo) into a
// structured assessment.
func (s *Service) AnalyzeSoil(ctx context.Context, cc CallContext, in SoilInput) (SoilAnalysisResult, error) {
	spec, err := Describe(SoilAnalysis)
	if err != nil {
		return SoilAnalysisResult{}, err
	}
	prompt := BuildSoilPrompt(cc, in)
	resp, err := s.call(ctx, SoilAnalysis, spec, userContent(prompt), prompt.System)
	if err != nil {
		return SoilAnalysisResult{}, err
	}
	out := decodeJSON[SoilAnalysisResult](SoilAnalysis, resp.Text())
	out.Sources = resp.Grounding()
	return out, nil
}

// DiagnoseCrop diagnoses a crop problem from a photo. The photo is the whole
// point of the capability, so its absence is a precondition fault.
func (s *Service) DiagnoseCrop(ctx context.Context, cc CallContext, in DiagnosisInput) (Advice, error) {
	spec, err := Describe(CropDiagnosis)
	if err != nil {
		return Advice{}, err
	}
	if in.Photo == nil {
		return Advice{}, errors.New("crop diagnosis requires a photo")
	}
	prompt := BuildDiagnosisPrompt(cc, in)
	resp, err := s.call(ctx, CropDiagnosis, spec, userContent(prompt), prompt.System)
	if err != nil {
		return Advice{}, err
	}
	return Advice{Text: decodeText(CropDiagnosis, resp.Text()), Sources: resp.Grounding()}, nil
}

// AnalyzeMarket analyzes market conditions near the caller's location.
func (s *Service) AnalyzeMarket(ctx context.Context, cc CallContext, in MarketInput) (MarketAnalysisResult, error) {
	spec, err := Describe(MarketAnalysis)
	if err != nil {
		return MarketAnalysisResult{}, err
	}
	if err := requirePlace(spec, cc); err != nil {
		return MarketAnalysisResult{}, err
	}
	prompt := BuildMarketPrompt(cc, in)
	resp, err := s.call(ctx, MarketAnalysis, spec, userContent(prompt), prompt.System)
	if err != nil {
		return MarketAnalysisResult{}, err
	}
	out := decodeJSON[MarketAnalysisResult](MarketAnalysis, resp.Text())
	out.Sources = resp.Grounding()
	return out, nil
}

// PlanCrop proposes a seasonal crop plan for the caller's location.
func (s *Service) PlanCrop(ctx context.Context, cc CallContext, in PlanInput) (CropPlanResult, error) {
	spec, err := Describe(CropPlan)
	if err != nil {
		return CropPlanResult{}, err
	}
	if err := requirePlace(spec, cc); err != nil {
		return CropPlanResult{}, err
	}
	prompt := BuildPlanPrompt(cc, in)
	resp, err := s.call(ctx, CropPlan, spec, userContent(prompt), prompt.System)
	if err != nil {
		return CropPlanResult{}, err
	}
	out := decodeJSON[CropPlanResult](CropPlan, resp.Text())
	out.Sources = resp.Grounding()
	return out, nil
}

// AdviseIrrigation advises on irrigation for a crop at the caller's location.
func (s *Service) AdviseIrrigation(ctx context.Context, cc CallContext, in IrrigationInput) (Advice, error) {
	spec, err := Describe(IrrigationAdvice)
	if err != nil {
		return Advice{}, err
	}
	if err := requirePlace(spec, cc); err != nil {
		return Advice{}, err
	}
	prompt := BuildIrrigationPrompt(cc, in)
	resp, err := s.call(ctx, IrrigationAdvice, spec, userContent(prompt), prompt.System)
	if err != nil {
		return Advice{}, err
	}
	return Advice{Text: decodeText(IrrigationAdvice, resp.Text()), Sources: resp.Grounding()}, nil
}

// FindSuppliers searches for input suppliers near the caller's location.
func (s *Service) FindSuppliers(ctx context.Context, cc CallContext, in SupplierInput) (Advice, error) {
	spec, err := Describe(SupplierSearch)
	if err != nil {
		return Advice{}, err
	}
	if err := requirePlace(spec, cc); err != nil {
		return Advice{}, err
	}
	prompt := BuildSupplierPrompt(cc, in)
	resp, err := s.call(ctx, SupplierSearch, spec, userContent(prompt), prompt.System)
	if err != nil {
		return Advice{}, err
	}
	return Advice{Text: decodeText(SupplierSearch, resp.Text()), Sources: resp.Grounding()}, nil
}

// GetWeatherTip returns a short weather-driven tip. Works without a location,
// degrading to region-generic advice.
func (s *Service) GetWeatherTip(ctx context.Context, cc CallContext) (Advice, error) {
	spec, err := Describe(WeatherTip)
	if err != nil {
		return Advice{}, err
	}
	prompt := BuildWeatherPrompt(cc)
	resp, err := s.call(ctx, WeatherTip, spec, userContent(prompt), prompt.System)
	if err != nil {
		return Advice{}, err
	}
	return Advice{Text: decodeText(WeatherTip, resp.Text()), Sources: resp.Grounding()}, nil
}

// Converse appends the farmer's message to session as the newest turn, sends
// the whole log (history first, newest last) and returns the model's reply.
// The model turn is NOT appended; the caller decides whether to keep it.
func (s *Service) Converse(ctx context.Context, cc CallContext, session *Session, message string) (Advice, error) {
	spec, err := Describe(Chat)
	if err != nil {
		return Advice{}, err
	}
	session.Append(UserTurn(message))

	resp, err := s.call(ctx, Chat, spec, session.contents(), BuildChatSystem(cc))
	if err != nil {
		return Advice{}, err
	}
	return Advice{Text: decodeText(Chat, resp.Text()), Sources: resp.Grounding()}, nil
}
