// Package api exposes the advisory façade and the local store over HTTP and
// MCP for UI callers.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldhand/fieldhand/internal/advisor"
	"github.com/fieldhand/fieldhand/internal/gemini"
	"github.com/fieldhand/fieldhand/internal/storage"
)

const maxRequestBodySize = 16 << 20 // room for an inline photo

// Adviser is the capability façade the API dispatches to.
type Adviser interface {
	AnalyzeSoil(ctx context.Context, cc advisor.CallContext, in advisor.SoilInput) (advisor.SoilAnalysisResult, error)
	DiagnoseCrop(ctx context.Context, cc advisor.CallContext, in advisor.DiagnosisInput) (advisor.Advice, error)
	AnalyzeMarket(ctx context.Context, cc advisor.CallContext, in advisor.MarketInput) (advisor.MarketAnalysisResult, error)
	PlanCrop(ctx context.Context, cc advisor.CallContext, in advisor.PlanInput) (advisor.CropPlanResult, error)
	AdviseIrrigation(ctx context.Context, cc advisor.CallContext, in advisor.IrrigationInput) (advisor.Advice, error)
	FindSuppliers(ctx context.Context, cc advisor.CallContext, in advisor.SupplierInput) (advisor.Advice, error)
	GetWeatherTip(ctx context.Context, cc advisor.CallContext) (advisor.Advice, error)
	Converse(ctx context.Context, cc advisor.CallContext, session *advisor.Session, message string) (advisor.Advice, error)
}

// Deps holds the handler dependencies.
type Deps struct {
	Adviser Adviser
	Store   *storage.Store
	Token   string
	// Locale is the default locale applied when a request specifies none.
	Locale string
}

// NewHandler builds the HTTP API router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Route("/v1/advice", func(r chi.Router) {
			r.Post("/soil", handleSoil(deps))
			r.Post("/diagnose", handleDiagnose(deps))
			r.Post("/market", handleMarket(deps))
			r.Post("/plan", handlePlan(deps))
			r.Post("/irrigation", handleIrrigation(deps))
			r.Post("/suppliers", handleSuppliers(deps))
			r.Post("/weather", handleWeather(deps))
			r.Post("/chat", handleChat(deps))
		})

		r.Route("/v1/logs", func(r chi.Router) {
			r.Get("/soil", handleListSoilLogs(deps))
			r.Post("/soil", handleAddSoilLog(deps))
			r.Delete("/soil/{id}", handleDelete(deps.Store.DeleteSoilLog))
			r.Get("/tasks", handleListTasks(deps))
			r.Post("/tasks", handleAddTask(deps))
			r.Delete("/tasks/{id}", handleDelete(deps.Store.DeleteTask))
			r.Get("/irrigation", handleListIrrigationLogs(deps))
			r.Post("/irrigation", handleAddIrrigationLog(deps))
			r.Delete("/irrigation/{id}", handleDelete(deps.Store.DeleteIrrigationLog))
		})

		r.Get("/v1/profile", handleGetProfile(deps))
		r.Put("/v1/profile", handlePutProfile(deps))
	})

	return r
}

type ctxKey int

const requestIDKey ctxKey = 0

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"request_id", r.Context().Value(requestIDKey),
		)
	})
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func httpError(w http.ResponseWriter, status int, errType, format string, args ...any) {
	var resp errorResponse
	resp.Error.Type = errType
	resp.Error.Message = fmt.Sprintf(format, args...)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// adviceError maps façade errors onto the HTTP taxonomy: precondition faults
// are the caller's to fix, busy means retry later, the rest is upstream.
func adviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, advisor.ErrLocationRequired):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, advisor.ErrServiceBusy):
		httpError(w, http.StatusServiceUnavailable, "service_busy", "%v", err)
	default:
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// callContext applies the default locale for requests that carry none.
type callEnvelope struct {
	Locale   string            `json:"locale"`
	Location *advisor.Location `json:"location"`
}

func (d Deps) callContext(e callEnvelope) advisor.CallContext {
	locale := e.Locale
	if locale == "" {
		locale = d.Locale
	}
	return advisor.CallContext{Locale: locale, Location: e.Location}
}

func decodePhoto(w http.ResponseWriter, mime, data string) (*advisor.Attachment, bool) {
	if data == "" {
		return nil, true
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid photo encoding: %v", err)
		return nil, false
	}
	if mime == "" {
		mime = http.DetectContentType(raw)
	}
	return &advisor.Attachment{MimeType: mime, Data: raw}, true
}

func handleSoil(deps Deps) http.HandlerFunc {
	type request struct {
		callEnvelope
		PH            float64 `json:"ph"`
		OrganicMatter float64 `json:"organic_matter"`
		Texture       string  `json:"texture"`
		ReportText    string  `json:"report_text"`
		PhotoMime     string  `json:"photo_mime"`
		PhotoBase64   string  `json:"photo_base64"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		photo, ok := decodePhoto(w, req.PhotoMime, req.PhotoBase64)
		if !ok {
			return
		}
		out, err := deps.Adviser.AnalyzeSoil(r.Context(), deps.callContext(req.callEnvelope), advisor.SoilInput{
			PH:            req.PH,
			OrganicMatter: req.OrganicMatter,
			Texture:       req.Texture,
			ReportText:    req.ReportText,
			Photo:         photo,
		})
		if err != nil {
			adviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleDiagnose(deps Deps) http.HandlerFunc {
	type request struct {
		callEnvelope
		Crop        string `json:"crop"`
		PhotoMime   string `json:"photo_mime"`
		PhotoBase64 string `json:"photo_base64"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		photo, ok := decodePhoto(w, req.PhotoMime, req.PhotoBase64)
		if !ok {
			return
		}
		if photo == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "photo_base64 is required")
			return
		}
		out, err := deps.Adviser.DiagnoseCrop(r.Context(), deps.callContext(req.callEnvelope), advisor.DiagnosisInput{
			Crop:  req.Crop,
			Photo: photo,
		})
		if err != nil {
			adviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, adviceResponse(out))
	}
}

func handleMarket(deps Deps) http.HandlerFunc {
	type request struct {
		callEnvelope
		Query        string `json:"query"`
		BulletinText string `json:"bulletin_text"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := deps.Adviser.AnalyzeMarket(r.Context(), deps.callContext(req.callEnvelope), advisor.MarketInput{
			Query:        req.Query,
			BulletinText: req.BulletinText,
		})
		if err != nil {
			adviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handlePlan(deps Deps) http.HandlerFunc {
	type request struct {
		callEnvelope
		SoilType      string `json:"soil_type"`
		Season        string `json:"season"`
		PestResistant bool   `json:"pest_resistant"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := deps.Adviser.PlanCrop(r.Context(), deps.callContext(req.callEnvelope), advisor.PlanInput{
			SoilType:      req.SoilType,
			Season:        req.Season,
			PestResistant: req.PestResistant,
		})
		if err != nil {
			adviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleIrrigation(deps Deps) http.HandlerFunc {
	type request struct {
		callEnvelope
		Crop         string   `json:"crop"`
		GrowthStage  string   `json:"growth_stage"`
		SoilMoisture *float64 `json:"soil_moisture"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := deps.Adviser.AdviseIrrigation(r.Context(), deps.callContext(req.callEnvelope), advisor.IrrigationInput{
			Crop:         req.Crop,
			GrowthStage:  req.GrowthStage,
			SoilMoisture: req.SoilMoisture,
		})
		if err != nil {
			adviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, adviceResponse(out))
	}
}

func handleSuppliers(deps Deps) http.HandlerFunc {
	type request struct {
		callEnvelope
		Query string `json:"query"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := deps.Adviser.FindSuppliers(r.Context(), deps.callContext(req.callEnvelope), advisor.SupplierInput{Query: req.Query})
		if err != nil {
			adviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, adviceResponse(out))
	}
}

func handleWeather(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req callEnvelope
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := deps.Adviser.GetWeatherTip(r.Context(), deps.callContext(req))
		if err != nil {
			adviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, adviceResponse(out))
	}
}

type chatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func handleChat(deps Deps) http.HandlerFunc {
	type request struct {
		callEnvelope
		Message string     `json:"message"`
		History []chatTurn `json:"history"`
	}
	type response struct {
		Reply   string     `json:"reply"`
		History []chatTurn `json:"history"`
		Sources any        `json:"sources,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		session := &advisor.Session{}
		for _, t := range req.History {
			role := advisor.RoleUser
			if t.Role == string(advisor.RoleModel) {
				role = advisor.RoleModel
			}
			session.Append(advisor.Turn{Role: role, Parts: []gemini.Part{{Text: t.Text}}})
		}

		out, err := deps.Adviser.Converse(r.Context(), deps.callContext(req.callEnvelope), session, req.Message)
		if err != nil {
			adviceError(w, err)
			return
		}
		session.Append(advisor.ModelTurn(out.Text))

		history := make([]chatTurn, 0, session.Len())
		for _, t := range session.Turns() {
			text := ""
			if len(t.Parts) > 0 {
				text = t.Parts[0].Text
			}
			history = append(history, chatTurn{Role: string(t.Role), Text: text})
		}
		resp := response{Reply: out.Text, History: history}
		if len(out.Sources) > 0 {
			resp.Sources = out.Sources
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func adviceResponse(a advisor.Advice) map[string]any {
	out := map[string]any{"text": a.Text}
	if len(a.Sources) > 0 {
		out["sources"] = a.Sources
	}
	return out
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotInitialized) {
		httpError(w, http.StatusServiceUnavailable, "store_error", "%v", err)
		return
	}
	httpError(w, http.StatusInternalServerError, "store_error", "%v", err)
}

func handleDelete(del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), chi.URLParam(r, "id")); err != nil {
			storeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListSoilLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := deps.Store.SoilLogs(r.Context())
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

func handleAddSoilLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var log storage.SoilLog
		if !decodeBody(w, r, &log) {
			return
		}
		if log.ID == "" {
			log.ID = storage.NewID()
		}
		if log.CreatedAt.IsZero() {
			log.CreatedAt = time.Now().UTC()
		}
		if err := deps.Store.SaveSoilLog(r.Context(), log); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, log)
	}
}

func handleListTasks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := deps.Store.Tasks(r.Context())
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func handleAddTask(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var task storage.Task
		if !decodeBody(w, r, &task) {
			return
		}
		if task.ID == "" {
			task.ID = storage.NewID()
		}
		if task.CreatedAt.IsZero() {
			task.CreatedAt = time.Now().UTC()
		}
		if err := deps.Store.SaveTask(r.Context(), task); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func handleListIrrigationLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := deps.Store.IrrigationLogs(r.Context())
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

func handleAddIrrigationLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var log storage.IrrigationLog
		if !decodeBody(w, r, &log) {
			return
		}
		if log.ID == "" {
			log.ID = storage.NewID()
		}
		if log.CreatedAt.IsZero() {
			log.CreatedAt = time.Now().UTC()
		}
		if err := deps.Store.SaveIrrigationLog(r.Context(), log); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, log)
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Store.GetProfile(r.Context())
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handlePutProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p storage.Profile
		if !decodeBody(w, r, &p) {
			return
		}
		if err := deps.Store.SaveProfile(r.Context(), p); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
