package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/offtimeapp/offtime/internal/auth"
	"github.com/offtimeapp/offtime/internal/model"
	"github.com/offtimeapp/offtime/internal/store"
	"github.com/offtimeapp/offtime/internal/summary"
)

type UsageHandler struct {
	usage  *store.UsageStore
	logger *slog.Logger
}

func NewUsageHandler(usage *store.UsageStore, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, logger: logger}
}

func (h *UsageHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		PackageName string `json:"package_name"`
		AppName     string `json:"app_name"`
		UsageMS     int64  `json:"usage_ms"`
		StartTime   int64  `json:"start_time"`
		EndTime     int64  `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.PackageName = strings.TrimSpace(req.PackageName)
	if req.PackageName == "" {
		writeError(w, http.StatusBadRequest, "package_name is required")
		return
	}
	if req.UsageMS < 0 {
		writeError(w, http.StatusBadRequest, "usage_ms cannot be negative")
		return
	}
	if req.AppName == "" {
		req.AppName = req.PackageName
	}

	app, err := h.usage.GetOrCreateApp(req.PackageName, req.AppName)
	if err != nil {
		h.logger.Error("get or create app", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record usage")
		return
	}

	record, err := h.usage.CreateRecord(userID, app.ID, req.UsageMS, req.StartTime, req.EndTime)
	if err != nil {
		h.logger.Error("create usage record", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record usage")
		return
	}

	writeJSON(w, http.StatusCreated, "usage recorded", record)
}

// usageView renders a record with the app name and human-readable times for
// client display.
type usageView struct {
	ID        int64   `json:"id"`
	AppName   string  `json:"app_name"`
	UsageMS   int64   `json:"usage_ms"`
	Duration  string  `json:"duration"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Memo      *string `json:"memo"`
}

const recordTimeFormat = "2006-01-02 15:04:05"

func (h *UsageHandler) newUsageView(r model.UsageRecord, appNames map[int64]string) usageView {
	name, ok := appNames[r.AppID]
	if !ok {
		name = "Unknown"
	}
	return usageView{
		ID:        r.ID,
		AppName:   name,
		UsageMS:   r.UsageMS,
		Duration:  summary.FormatMinutes(r.UsageMS),
		StartTime: time.UnixMilli(r.StartTime).Format(recordTimeFormat),
		EndTime:   time.UnixMilli(r.EndTime).Format(recordTimeFormat),
		Memo:      r.Memo,
	}
}

func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var records []model.UsageRecord
	var err error
	if date := r.URL.Query().Get("date"); date != "" {
		if _, perr := time.Parse(summary.DateFormat, date); perr != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
		startMS, endMS, berr := summary.DayBounds(date)
		if berr != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
		records, err = h.usage.ListForUserRange(userID, startMS, endMS)
		// Range queries come back oldest first; the list view is newest first.
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	} else {
		records, err = h.usage.ListForUser(userID)
	}
	if err != nil {
		h.logger.Error("list usage records", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list usage")
		return
	}

	appNames := make(map[int64]string)
	for _, rec := range records {
		if _, ok := appNames[rec.AppID]; ok {
			continue
		}
		app, err := h.usage.GetApp(rec.AppID)
		if err != nil {
			h.logger.Error("get app", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list usage")
			return
		}
		if app != nil {
			appNames[rec.AppID] = app.AppName
		}
	}

	views := make([]usageView, len(records))
	for i, rec := range records {
		views[i] = h.newUsageView(rec, appNames)
	}
	writeJSON(w, http.StatusOK, "usage records", map[string]any{"records": views})
}

// ownedRecord loads the record from the path and hides records the caller
// does not own behind a 404.
func (h *UsageHandler) ownedRecord(w http.ResponseWriter, r *http.Request) (*model.UsageRecord, bool) {
	id, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return nil, false
	}
	record, err := h.usage.GetRecord(id)
	if err != nil {
		h.logger.Error("get usage record", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load record")
		return nil, false
	}
	if record == nil || record.UserID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "record not found")
		return nil, false
	}
	return record, true
}

func (h *UsageHandler) SetMemo(w http.ResponseWriter, r *http.Request) {
	record, ok := h.ownedRecord(w, r)
	if !ok {
		return
	}

	var req struct {
		Memo string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Memo) == "" {
		writeError(w, http.StatusBadRequest, "memo is required")
		return
	}

	if err := h.usage.SetMemo(record.ID, req.Memo); err != nil {
		h.logger.Error("set memo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set memo")
		return
	}
	record.Memo = &req.Memo
	writeJSON(w, http.StatusOK, "memo saved", record)
}

func (h *UsageHandler) GetMemo(w http.ResponseWriter, r *http.Request) {
	record, ok := h.ownedRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, "memo", map[string]any{"memo": record.Memo})
}

func (h *UsageHandler) ClearMemo(w http.ResponseWriter, r *http.Request) {
	record, ok := h.ownedRecord(w, r)
	if !ok {
		return
	}
	if err := h.usage.ClearMemo(record.ID); err != nil {
		h.logger.Error("clear memo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear memo")
		return
	}
	writeJSON(w, http.StatusOK, "memo cleared", nil)
}
