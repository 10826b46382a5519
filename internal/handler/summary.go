package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/offtimeapp/offtime/internal/auth"
	"github.com/offtimeapp/offtime/internal/summary"
)

type SummaryHandler struct {
	provider *summary.Provider
	logger   *slog.Logger
}

func NewSummaryHandler(provider *summary.Provider, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{provider: provider, logger: logger}
}

// Get returns the caller's daily summary, generating it on first request.
// The date query parameter defaults to today.
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(summary.DateFormat)
	} else if _, err := time.Parse(summary.DateFormat, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	result, err := h.provider.GetOrGenerate(r.Context(), userID, date)
	if err != nil {
		switch {
		case errors.Is(err, summary.ErrNoData):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, summary.ErrGeneration):
			h.logger.Error("generate summary", "user_id", userID, "date", date, "error", err)
			writeError(w, http.StatusNotFound, "failed to generate summary")
		default:
			h.logger.Error("get summary", "user_id", userID, "date", date, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get summary")
		}
		return
	}

	writeJSON(w, http.StatusOK, "daily summary", result)
}
