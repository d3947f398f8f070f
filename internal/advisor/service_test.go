package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldhand/fieldhand/internal/gemini"
	"github.com/fieldhand/fieldhand/internal/retry"
)

// fakeModel scripts per-call responses and records the requests it saw.
type fakeModel struct {
	requests []*gemini.Request
	results  []func() (*gemini.Response, error)
}

func (f *fakeModel) Generate(_ context.Context, req *gemini.Request) (*gemini.Response, error) {
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return textResponse(""), nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next()
}

func textResponse(text string) *gemini.Response {
	return &gemini.Response{Candidates: []gemini.Candidate{{
		Content: gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}},
	}}}
}

func ok(text string) func() (*gemini.Response, error) {
	return func() (*gemini.Response, error) { return textResponse(text), nil }
}

func fail(code int) func() (*gemini.Response, error) {
	return func() (*gemini.Response, error) { return nil, &gemini.StatusError{Code: code} }
}

func newTestService(model *fakeModel) *Service {
	return NewWithExecutor(model, &retry.Executor{
		MaxRetries: retry.DefaultMaxRetries,
		Sleep:      func(time.Duration) {},
	})
}

func TestAnalyzeSoilRetriesThenSucceeds(t *testing.T) {
	model := &fakeModel{results: []func() (*gemini.Response, error){
		fail(429),
		fail(429),
		ok(`{"analysis":"slightly acidic loam","health_score":68}`),
	}}
	svc := newTestService(model)

	out, err := svc.AnalyzeSoil(context.Background(), CallContext{}, SoilInput{PH: 6.5, OrganicMatter: 3.0, Texture: "Loam"})
	if err != nil {
		t.Fatalf("AnalyzeSoil: %v", err)
	}
	if len(model.requests) != 3 {
		t.Errorf("attempts = %d, want 3", len(model.requests))
	}
	if out.HealthScore == nil || *out.HealthScore != 68 {
		t.Errorf("health_score = %v, want 68", out.HealthScore)
	}

	// Structured capability without search: schema enforced, no tools.
	req := model.requests[0]
	if req.GenerationConfig == nil || req.GenerationConfig.ResponseSchema == nil {
		t.Error("soil analysis request missing enforced response schema")
	}
	if len(req.Tools) != 0 {
		t.Error("soil analysis request must not carry the search tool")
	}
}

func TestAnalyzeSoilEmptyPayloadIsNotAnError(t *testing.T) {
	model := &fakeModel{results: []func() (*gemini.Response, error){ok("")}}
	svc := newTestService(model)

	out, err := svc.AnalyzeSoil(context.Background(), CallContext{}, SoilInput{PH: 6.5, OrganicMatter: 3.0, Texture: "Loam"})
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}
	if out.Analysis != nil || out.HealthScore != nil {
		t.Errorf("expected empty result, got %+v", out)
	}
}

func TestPermanentFaultPropagates(t *testing.T) {
	model := &fakeModel{results: []func() (*gemini.Response, error){fail(404)}}
	svc := newTestService(model)

	_, err := svc.GetWeatherTip(context.Background(), CallContext{})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrServiceBusy) {
		t.Errorf("404 misclassified as transient: %v", err)
	}
	if len(model.requests) != 1 {
		t.Errorf("attempts = %d, want 1", len(model.requests))
	}
}

func TestExhaustedRetriesSurfaceAsBusy(t *testing.T) {
	model := &fakeModel{results: []func() (*gemini.Response, error){
		fail(500), fail(500), fail(500), fail(500),
	}}
	svc := newTestService(model)

	_, err := svc.GetWeatherTip(context.Background(), CallContext{})
	if !errors.Is(err, ErrServiceBusy) {
		t.Fatalf("expected ErrServiceBusy, got %v", err)
	}
	if len(model.requests) != 4 {
		t.Errorf("attempts = %d, want 4 (initial + 3 retries)", len(model.requests))
	}
}

func TestLocationPreconditions(t *testing.T) {
	svc := newTestService(&fakeModel{})
	ctx := context.Background()
	cc := CallContext{} // no location

	if _, err := svc.AnalyzeMarket(ctx, cc, MarketInput{Query: "maize"}); !errors.Is(err, ErrLocationRequired) {
		t.Errorf("market without location: %v", err)
	}
	if _, err := svc.PlanCrop(ctx, cc, PlanInput{}); !errors.Is(err, ErrLocationRequired) {
		t.Errorf("plan without location: %v", err)
	}
	if _, err := svc.AdviseIrrigation(ctx, cc, IrrigationInput{}); !errors.Is(err, ErrLocationRequired) {
		t.Errorf("irrigation without location: %v", err)
	}
	if _, err := svc.FindSuppliers(ctx, cc, SupplierInput{Query: "seed"}); !errors.Is(err, ErrLocationRequired) {
		t.Errorf("suppliers without location: %v", err)
	}
	// No remote call was made for any precondition fault.
	if _, err := svc.GetWeatherTip(ctx, cc); err != nil {
		t.Errorf("weather tip must tolerate a missing location: %v", err)
	}
}

func TestSearchEnabledCapabilities(t *testing.T) {
	model := &fakeModel{}
	svc := newTestService(model)
	cc := CallContext{Location: testPlace}

	if _, err := svc.AnalyzeMarket(context.Background(), cc, MarketInput{Query: "beans"}); err != nil {
		t.Fatalf("AnalyzeMarket: %v", err)
	}
	req := model.requests[len(model.requests)-1]
	if len(req.Tools) != 1 || req.Tools[0].GoogleSearch == nil {
		t.Error("market analysis request missing search tool")
	}
	if req.GenerationConfig != nil {
		t.Error("search-enabled capability must not enforce a response schema")
	}
}

func TestConverseAppendsUserTurnLast(t *testing.T) {
	model := &fakeModel{results: []func() (*gemini.Response, error){ok("try drip irrigation")}}
	svc := newTestService(model)

	session := &Session{}
	session.Append(UserTurn("what should I plant?"))
	session.Append(ModelTurn("consider beans"))

	reply, err := svc.Converse(context.Background(), CallContext{}, session, "and how do I water them?")
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if reply.Text != "try drip irrigation" {
		t.Errorf("reply = %q", reply.Text)
	}

	turns := session.Turns()
	if len(turns) != 3 {
		t.Fatalf("session length = %d, want 3 (model turn is the caller's to append)", len(turns))
	}
	if turns[2].Role != RoleUser || turns[2].Parts[0].Text != "and how do I water them?" {
		t.Errorf("newest turn not appended last: %+v", turns[2])
	}
	if turns[0].Parts[0].Text != "what should I plant?" || turns[1].Parts[0].Text != "consider beans" {
		t.Error("prior turn order disturbed")
	}

	// Wire contents mirror the session order exactly.
	sent := model.requests[0].Contents
	if len(sent) != 3 || sent[2].Parts[0].Text != "and how do I water them?" || sent[0].Role != "user" || sent[1].Role != "model" {
		t.Errorf("wire contents out of order: %+v", sent)
	}
}

func TestDiagnoseCropRequiresPhoto(t *testing.T) {
	svc := newTestService(&fakeModel{})
	if _, err := svc.DiagnoseCrop(context.Background(), CallContext{}, DiagnosisInput{Crop: "maize"}); err == nil {
		t.Error("expected error for missing photo")
	}
}

func TestGroundingPassedThrough(t *testing.T) {
	resp := textResponse("nearby agrovet stocks certified seed")
	resp.Candidates[0].GroundingMetadata = &gemini.GroundingMetadata{
		GroundingChunks: []gemini.GroundingChunk{
			{Maps: &gemini.MapsSource{URI: "https://maps.example/x", Title: "Agrovet", Reviews: []string{"helpful staff"}}},
		},
	}
	model := &fakeModel{results: []func() (*gemini.Response, error){
		func() (*gemini.Response, error) { return resp, nil },
	}}
	svc := newTestService(model)

	out, err := svc.FindSuppliers(context.Background(), CallContext{Location: testPlace}, SupplierInput{Query: "seed"})
	if err != nil {
		t.Fatalf("FindSuppliers: %v", err)
	}
	if len(out.Sources) != 1 || out.Sources[0].Maps == nil || out.Sources[0].Maps.Title != "Agrovet" {
		t.Errorf("grounding not passed through: %+v", out.Sources)
	}
}
