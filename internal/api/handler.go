package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/catalert/catalert/internal/agent"
	"github.com/catalert/catalert/internal/petdata"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	orch   *agent.Orchestrator
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(orch *agent.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{orch: orch, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/api/health", h.healthCheck)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ai/chat", h.chat)
		r.Get("/cats/{catID}/insights", h.dailyInsights)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "catalert"})
}

type chatRequest struct {
	UserID    string `json:"user_id"`
	CatID     string `json:"cat_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.UserID == "" || req.CatID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id, cat_id and message are required"})
		return
	}

	reply, err := h.orch.Process(r.Context(), req.UserID, req.CatID, req.Message, req.SessionID)
	if err != nil {
		if errors.Is(err, petdata.ErrCatNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cat not found"})
			return
		}
		h.logger.Error("chat processing failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) dailyInsights(w http.ResponseWriter, r *http.Request) {
	catID := chi.URLParam(r, "catID")
	insights, err := h.orch.DailyInsights(r.Context(), catID)
	if err != nil {
		if errors.Is(err, petdata.ErrCatNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cat not found"})
			return
		}
		h.logger.Error("daily insights failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cat_id":   catID,
		"insights": insights,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
