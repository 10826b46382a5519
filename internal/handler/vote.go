package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/offtimeapp/offtime/internal/auth"
	"github.com/offtimeapp/offtime/internal/store"
	"github.com/offtimeapp/offtime/internal/summary"
	ws "github.com/offtimeapp/offtime/internal/websocket"
)

const noSummaryPlaceholder = "no summary yet"

type VoteHandler struct {
	votes     *store.VoteStore
	groups    *store.GroupStore
	summaries *store.SummaryStore
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewVoteHandler(votes *store.VoteStore, groups *store.GroupStore, summaries *store.SummaryStore, hub *ws.Hub, logger *slog.Logger) *VoteHandler {
	return &VoteHandler{
		votes:     votes,
		groups:    groups,
		summaries: summaries,
		hub:       hub,
		logger:    logger,
	}
}

// requireMember resolves the group id from the path and rejects callers who
// are not in the group. A nil return with ok=false means the response has
// already been written.
func (h *VoteHandler) requireMember(w http.ResponseWriter, r *http.Request) (int64, bool) {
	groupID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return 0, false
	}
	isMember, err := h.groups.IsMember(groupID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("check membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return 0, false
	}
	if !isMember {
		writeError(w, http.StatusForbidden, notMemberMessage)
		return 0, false
	}
	return groupID, true
}

type candidateView struct {
	User    userView `json:"user"`
	Summary string   `json:"summary"`
}

func (h *VoteHandler) Info(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	groupID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	today := time.Now().Format(summary.DateFormat)
	voted, err := h.votes.HasVoted(groupID, userID, today)
	if err != nil {
		h.logger.Error("check vote", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load vote info")
		return
	}

	members, err := h.groups.ListMemberUsers(groupID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load vote info")
		return
	}
	memberIDs := make([]int64, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	summaries, err := h.summaries.GetForUsers(memberIDs, today)
	if err != nil {
		h.logger.Error("get summaries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load vote info")
		return
	}

	candidates := make([]candidateView, len(members))
	for i, m := range members {
		msg, ok := summaries[m.ID]
		if !ok {
			msg = noSummaryPlaceholder
		}
		candidates[i] = candidateView{User: newUserView(m), Summary: msg}
	}

	writeJSON(w, http.StatusOK, "vote info", map[string]any{
		"vote_date":   today,
		"today_voted": voted,
		"candidates":  candidates,
	})
}

func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	groupID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	var req struct {
		TargetUserID int64 `json:"target_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.TargetUserID == userID {
		writeError(w, http.StatusForbidden, "cannot vote for yourself")
		return
	}

	today := time.Now().Format(summary.DateFormat)
	voted, err := h.votes.HasVoted(groupID, userID, today)
	if err != nil {
		h.logger.Error("check vote", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cast vote")
		return
	}
	if voted {
		writeError(w, http.StatusForbidden, "already voted today")
		return
	}

	targetIsMember, err := h.groups.IsMember(groupID, req.TargetUserID)
	if err != nil {
		h.logger.Error("check target membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cast vote")
		return
	}
	if !targetIsMember {
		writeError(w, http.StatusNotFound, "user is not in this group")
		return
	}

	vote, err := h.votes.Create(groupID, userID, req.TargetUserID, today)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusForbidden, "already voted today")
			return
		}
		h.logger.Error("create vote", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cast vote")
		return
	}

	h.broadcastVote(groupID)
	h.logger.Info("vote cast", "group_id", groupID, "voter_id", userID, "target_id", req.TargetUserID)
	writeJSON(w, http.StatusOK, "vote cast", vote)
}

type tallyView struct {
	User  userView `json:"user"`
	Count int      `json:"count"`
}

func (h *VoteHandler) Result(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	members, err := h.groups.ListMemberUsers(groupID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}

	today := time.Now().Format(summary.DateFormat)
	counts, err := h.votes.CountByTarget(groupID, today)
	if err != nil {
		h.logger.Error("count votes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}

	results := make([]tallyView, len(members))
	for i, m := range members {
		results[i] = tallyView{User: newUserView(m), Count: counts[m.ID]}
	}
	// Ties keep the membership order from ListMemberUsers.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})

	writeJSON(w, http.StatusOK, "vote results", map[string]any{
		"vote_date": today,
		"results":   results,
	})
}

type historyView struct {
	GroupName string   `json:"group_name"`
	VoteDate  string   `json:"vote_date"`
	VotedFor  userView `json:"voted_for"`
}

func (h *VoteHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	groupID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	voteDate := r.URL.Query().Get("vote_date")
	if voteDate != "" {
		if _, err := time.Parse(summary.DateFormat, voteDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
	}

	entries, err := h.votes.ListByVoter(groupID, userID, voteDate)
	if err != nil {
		h.logger.Error("list vote history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	views := make([]historyView, len(entries))
	for i, e := range entries {
		views[i] = historyView{
			GroupName: e.GroupName,
			VoteDate:  e.VoteDate,
			VotedFor:  newUserView(e.VotedFor),
		}
	}
	writeJSON(w, http.StatusOK, "vote history", map[string]any{"votes": views})
}

func (h *VoteHandler) broadcastVote(groupID int64) {
	if h.hub == nil {
		return
	}
	members, err := h.groups.ListMemberUsers(groupID)
	if err != nil {
		h.logger.Warn("broadcast vote", "error", err)
		return
	}
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	h.hub.BroadcastUsers(ids, ws.NewMessage("vote", "cast", groupID, nil))
}
