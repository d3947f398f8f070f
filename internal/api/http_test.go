package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldhand/fieldhand/internal/advisor"
	"github.com/fieldhand/fieldhand/internal/storage"
)

// fakeAdviser returns canned results and records conversation sessions.
type fakeAdviser struct {
	soil    advisor.SoilAnalysisResult
	advice  advisor.Advice
	err     error
	session *advisor.Session
}

func (f *fakeAdviser) AnalyzeSoil(context.Context, advisor.CallContext, advisor.SoilInput) (advisor.SoilAnalysisResult, error) {
	return f.soil, f.err
}
func (f *fakeAdviser) DiagnoseCrop(context.Context, advisor.CallContext, advisor.DiagnosisInput) (advisor.Advice, error) {
	return f.advice, f.err
}
func (f *fakeAdviser) AnalyzeMarket(_ context.Context, cc advisor.CallContext, _ advisor.MarketInput) (advisor.MarketAnalysisResult, error) {
	if cc.Location == nil {
		return advisor.MarketAnalysisResult{}, advisor.ErrLocationRequired
	}
	return advisor.MarketAnalysisResult{}, f.err
}
func (f *fakeAdviser) PlanCrop(context.Context, advisor.CallContext, advisor.PlanInput) (advisor.CropPlanResult, error) {
	return advisor.CropPlanResult{}, f.err
}
func (f *fakeAdviser) AdviseIrrigation(context.Context, advisor.CallContext, advisor.IrrigationInput) (advisor.Advice, error) {
	return f.advice, f.err
}
func (f *fakeAdviser) FindSuppliers(context.Context, advisor.CallContext, advisor.SupplierInput) (advisor.Advice, error) {
	return f.advice, f.err
}
func (f *fakeAdviser) GetWeatherTip(context.Context, advisor.CallContext) (advisor.Advice, error) {
	return f.advice, f.err
}
func (f *fakeAdviser) Converse(_ context.Context, _ advisor.CallContext, session *advisor.Session, message string) (advisor.Advice, error) {
	session.Append(advisor.UserTurn(message))
	f.session = session
	return f.advice, f.err
}

func newTestHandler(t *testing.T, fake *fakeAdviser) http.Handler {
	t.Helper()
	store := storage.New(":memory:", storage.CurrentSchema())
	t.Cleanup(func() { store.Close() })
	return NewHandler(Deps{Adviser: fake, Store: store, Locale: "en-US"})
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSoilAdviceEndpoint(t *testing.T) {
	score := 68.0
	fake := &fakeAdviser{soil: advisor.SoilAnalysisResult{HealthScore: &score}}
	h := newTestHandler(t, fake)

	w := postJSON(t, h, "/v1/advice/soil", map[string]any{
		"ph": 6.5, "organic_matter": 3.0, "texture": "Loam",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var out advisor.SoilAnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.HealthScore == nil || *out.HealthScore != 68 {
		t.Errorf("health_score = %v", out.HealthScore)
	}
}

func TestMarketWithoutLocationIs400(t *testing.T) {
	h := newTestHandler(t, &fakeAdviser{})

	w := postJSON(t, h, "/v1/advice/market", map[string]any{"query": "maize"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body %s", w.Code, w.Body.String())
	}
}

func TestBusyAdviceIs503(t *testing.T) {
	h := newTestHandler(t, &fakeAdviser{err: advisor.ErrServiceBusy})

	w := postJSON(t, h, "/v1/advice/weather", map[string]any{})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestChatPreservesHistoryOrder(t *testing.T) {
	fake := &fakeAdviser{advice: advisor.Advice{Text: "mulch heavily"}}
	h := newTestHandler(t, fake)

	w := postJSON(t, h, "/v1/advice/chat", map[string]any{
		"message": "how do I retain moisture?",
		"history": []map[string]string{
			{"role": "user", "text": "it is dry here"},
			{"role": "model", "text": "what crop do you grow?"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var out struct {
		Reply   string `json:"reply"`
		History []struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Reply != "mulch heavily" {
		t.Errorf("reply = %q", out.Reply)
	}
	if len(out.History) != 4 {
		t.Fatalf("history length = %d, want 4", len(out.History))
	}
	if out.History[2].Text != "how do I retain moisture?" || out.History[3].Text != "mulch heavily" {
		t.Errorf("history order wrong: %+v", out.History)
	}
	if out.History[0].Text != "it is dry here" || out.History[1].Role != "model" {
		t.Errorf("prior history disturbed: %+v", out.History)
	}
}

func TestSoilLogCRUD(t *testing.T) {
	h := newTestHandler(t, &fakeAdviser{})

	w := postJSON(t, h, "/v1/logs/soil", map[string]any{"ph": 6.1, "texture": "Clay"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created storage.SoilLog
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created log: %v", err)
	}
	if created.ID == "" {
		t.Fatal("server did not assign an id")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/logs/soil", nil)
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("list status = %d", w2.Code)
	}
	var logs []storage.SoilLog
	if err := json.Unmarshal(w2.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(logs) != 1 || logs[0].Texture != "Clay" {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/logs/soil/"+created.ID, nil)
	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, req)
	if w3.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w3.Code)
	}

	w4 := httptest.NewRecorder()
	h.ServeHTTP(w4, httptest.NewRequest(http.MethodGet, "/v1/logs/soil", nil))
	logs = nil
	if err := json.Unmarshal(w4.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decoding list after delete: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("log not deleted: %+v", logs)
	}
}

func TestBearerAuth(t *testing.T) {
	store := storage.New(":memory:", storage.CurrentSchema())
	t.Cleanup(func() { store.Close() })
	h := NewHandler(Deps{Adviser: &fakeAdviser{}, Store: store, Token: "sekrit"})

	req := httptest.NewRequest(http.MethodGet, "/v1/logs/tasks", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/logs/tasks", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", w.Code)
	}

	// Health stays open.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestDiagnoseRequiresPhoto(t *testing.T) {
	h := newTestHandler(t, &fakeAdviser{})
	w := postJSON(t, h, "/v1/advice/diagnose", map[string]any{"crop": "maize"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
