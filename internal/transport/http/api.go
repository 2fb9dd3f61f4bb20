package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/domain"
)

// APIHandler serves the JSON endpoints for quizzes, history and stats. Quiz
// deletion is mounted only when a catalog is given.
type APIHandler struct {
	quizzes *app.QuizService
	stats   *app.StatsService
	catalog *app.Catalog
	log     logrus.FieldLogger
}

func NewAPIHandler(quizzes *app.QuizService, stats *app.StatsService, catalog *app.Catalog, log logrus.FieldLogger) *APIHandler {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &APIHandler{quizzes: quizzes, stats: stats, catalog: catalog, log: log}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quizzes", h.listQuizzes)
	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/sessions", h.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.getSession)
	mux.HandleFunc("GET /api/stats", h.overview)
	if h.catalog != nil {
		mux.HandleFunc("DELETE /api/quizzes/{id}", h.deleteQuiz)
	}
}

func (h *APIHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.Quizzes(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *APIHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorPayload{Reason: "InvalidQuizID", Message: "quiz id must be a positive integer"})
		return
	}
	if err := h.catalog.DeleteQuiz(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.quizzes.Categories(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *APIHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	history, err := h.stats.History(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *APIHandler) getSession(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.SessionSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *APIHandler) overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.stats.Overview(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Reason: "SessionNotFound", Message: err.Error()})
		return
	case errors.Is(err, domain.ErrQuizNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Reason: "QuizNotFound", Message: err.Error()})
		return
	}
	h.log.WithError(err).Error("api request failed")
	writeJSON(w, http.StatusInternalServerError, errorPayload{Reason: "InternalError", Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
