package model

import "time"

// MVPVote records one member's daily vote within a group. VoteDate is a
// YYYY-MM-DD string; a voter gets at most one row per group per day.
type MVPVote struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	VoterID   int64     `json:"voter_id"`
	TargetID  int64     `json:"target_id"`
	VoteDate  string    `json:"vote_date"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteHistoryEntry is one row of a voter's own vote history, joined with the
// group name and the user they voted for.
type VoteHistoryEntry struct {
	GroupName string `json:"group_name"`
	VoteDate  string `json:"vote_date"`
	VotedFor  User   `json:"voted_for"`
}
