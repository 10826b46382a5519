package store

import (
	"database/sql"
	"fmt"

	"github.com/offtimeapp/offtime/internal/model"
)

type VoteStore struct {
	db *sql.DB
}

func NewVoteStore(db *sql.DB) *VoteStore {
	return &VoteStore{db: db}
}

// Create inserts a vote. A second vote by the same voter in the same group
// on the same day fails the UNIQUE constraint and surfaces as ErrDuplicate.
func (s *VoteStore) Create(groupID, voterID, targetID int64, voteDate string) (*model.MVPVote, error) {
	result, err := s.db.Exec(
		`INSERT INTO mvp_votes (group_id, voter_id, target_id, vote_date) VALUES (?, ?, ?, ?)`,
		groupID, voterID, targetID, voteDate,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("insert vote: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("insert vote: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var v model.MVPVote
	err = s.db.QueryRow(
		`SELECT id, group_id, voter_id, target_id, vote_date, created_at FROM mvp_votes WHERE id = ?`,
		id,
	).Scan(&v.ID, &v.GroupID, &v.VoterID, &v.TargetID, &v.VoteDate, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get vote: %w", err)
	}
	return &v, nil
}

// HasVoted reports whether the voter already has a vote row for the group
// and day.
func (s *VoteStore) HasVoted(groupID, voterID int64, voteDate string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM mvp_votes WHERE group_id = ? AND voter_id = ? AND vote_date = ?`,
		groupID, voterID, voteDate,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return count > 0, nil
}

// CountByTarget tallies the day's votes per target within the group.
// Targets with zero votes are absent from the map.
func (s *VoteStore) CountByTarget(groupID int64, voteDate string) (map[int64]int, error) {
	rows, err := s.db.Query(
		`SELECT target_id, COUNT(*) FROM mvp_votes
		 WHERE group_id = ? AND vote_date = ?
		 GROUP BY target_id`,
		groupID, voteDate,
	)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var targetID int64
		var count int
		if err := rows.Scan(&targetID, &count); err != nil {
			return nil, fmt.Errorf("scan vote count: %w", err)
		}
		counts[targetID] = count
	}
	return counts, rows.Err()
}

// ListByVoter returns the voter's own votes in the group, newest first,
// joined with the group name and target user. voteDate filters to one exact
// day when non-empty.
func (s *VoteStore) ListByVoter(groupID, voterID int64, voteDate string) ([]model.VoteHistoryEntry, error) {
	query := `SELECT g.name, v.vote_date, u.id, u.username, u.password_hash, u.profile_image, u.created_at, u.updated_at
		 FROM mvp_votes v
		 JOIN groups g ON g.id = v.group_id
		 JOIN users u ON u.id = v.target_id
		 WHERE v.group_id = ? AND v.voter_id = ?`
	args := []any{groupID, voterID}
	if voteDate != "" {
		query += ` AND v.vote_date = ?`
		args = append(args, voteDate)
	}
	query += ` ORDER BY v.vote_date DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var entries []model.VoteHistoryEntry
	for rows.Next() {
		var e model.VoteHistoryEntry
		var profileImage sql.NullString
		err := rows.Scan(&e.GroupName, &e.VoteDate,
			&e.VotedFor.ID, &e.VotedFor.Username, &e.VotedFor.PasswordHash,
			&profileImage, &e.VotedFor.CreatedAt, &e.VotedFor.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan vote history: %w", err)
		}
		e.VotedFor.ProfileImage = profileImage.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
