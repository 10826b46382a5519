package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/offtimeapp/offtime/internal/auth"
	"github.com/offtimeapp/offtime/internal/model"
	"github.com/offtimeapp/offtime/internal/store"
	"github.com/offtimeapp/offtime/internal/summary"
	ws "github.com/offtimeapp/offtime/internal/websocket"
)

const notMemberMessage = "not a member of this group"

type GroupHandler struct {
	groups    *store.GroupStore
	users     *store.UserStore
	summaries *store.SummaryStore
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewGroupHandler(groups *store.GroupStore, users *store.UserStore, summaries *store.SummaryStore, hub *ws.Hub, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{
		groups:    groups,
		users:     users,
		summaries: summaries,
		hub:       hub,
		logger:    logger,
	}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	group, err := h.groups.Create(req.Name, req.Description)
	if err != nil {
		h.logger.Error("create group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create group")
		return
	}

	// The creator is always the first member.
	if _, err := h.groups.AddMember(group.ID, userID); err != nil {
		h.logger.Error("add creator to group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create group")
		return
	}

	h.logger.Info("group created", "group_id", group.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, "group created", group)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list groups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []model.Group{}
	}
	writeJSON(w, http.StatusOK, "your groups", map[string]any{"groups": groups})
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	groupID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	// Membership is checked before the group's own existence.
	isMember, err := h.groups.IsMember(groupID, userID)
	if err != nil {
		h.logger.Error("check membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update group")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, notMemberMessage)
		return
	}

	group, err := h.groups.GetByID(groupID)
	if err != nil {
		h.logger.Error("get group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update group")
		return
	}
	if group == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := group.Name
	description := group.Description
	changed := false
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		changed = true
	}
	if req.Description != nil {
		description = *req.Description
		changed = true
	}

	if !changed {
		writeJSON(w, http.StatusOK, "group unchanged", group)
		return
	}

	updated, err := h.groups.Update(groupID, name, description)
	if err != nil {
		h.logger.Error("update group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update group")
		return
	}
	writeJSON(w, http.StatusOK, "group updated", updated)
}

// memberView pairs a member with their cached summary for today, if any.
type memberView struct {
	User    userView `json:"user"`
	Summary *string  `json:"summary"`
}

func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	groupID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	isMember, err := h.groups.IsMember(groupID, userID)
	if err != nil {
		h.logger.Error("check membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, notMemberMessage)
		return
	}

	members, err := h.groups.ListMemberUsers(groupID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	today := time.Now().Format(summary.DateFormat)
	memberIDs := make([]int64, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	summaries, err := h.summaries.GetForUsers(memberIDs, today)
	if err != nil {
		h.logger.Error("get member summaries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	views := make([]memberView, len(members))
	for i, m := range members {
		views[i] = memberView{User: newUserView(m)}
		if msg, ok := summaries[m.ID]; ok {
			views[i].Summary = &msg
		}
	}
	writeJSON(w, http.StatusOK, "group members", map[string]any{"members": views})
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	callerID := auth.UserID(r.Context())

	groupID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	targetID, err := parsePathID(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	isMember, err := h.groups.IsMember(groupID, callerID)
	if err != nil {
		h.logger.Error("check membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, notMemberMessage)
		return
	}

	group, err := h.groups.GetByID(groupID)
	if err != nil {
		h.logger.Error("get group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}
	if group == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}

	user, err := h.users.GetByID(targetID)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if _, err := h.groups.AddMember(groupID, targetID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "user is already a member of this group")
			return
		}
		h.logger.Error("add member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}

	h.broadcastMembership(groupID, "added", targetID)
	h.logger.Info("member added", "group_id", groupID, "user_id", targetID, "by", callerID)
	writeJSON(w, http.StatusCreated, "member added", newUserView(*user))
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID := auth.UserID(r.Context())

	groupID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	targetID, err := parsePathID(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	isMember, err := h.groups.IsMember(groupID, callerID)
	if err != nil {
		h.logger.Error("check membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, notMemberMessage)
		return
	}

	membership, err := h.groups.GetMember(groupID, targetID)
	if err != nil {
		h.logger.Error("get membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	if membership == nil {
		writeError(w, http.StatusNotFound, "membership not found")
		return
	}

	if err := h.groups.RemoveMember(groupID, targetID); err != nil {
		h.logger.Error("remove member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}

	h.broadcastMembership(groupID, "removed", targetID)
	h.logger.Info("member removed", "group_id", groupID, "user_id", targetID, "by", callerID)
	writeJSON(w, http.StatusOK, "member removed", nil)
}

func (h *GroupHandler) broadcastMembership(groupID int64, action string, targetID int64) {
	if h.hub == nil {
		return
	}
	members, err := h.groups.ListMemberUsers(groupID)
	if err != nil {
		h.logger.Warn("broadcast membership", "error", err)
		return
	}
	ids := make([]int64, 0, len(members)+1)
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	// A removed member still gets told about their own removal.
	ids = append(ids, targetID)
	h.hub.BroadcastUsers(ids, ws.NewMessage("member", action, groupID, map[string]any{"user_id": targetID}))
}
