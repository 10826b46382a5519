package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/offtimeapp/offtime/internal/model"
)

type SummaryStore struct {
	db *sql.DB
}

func NewSummaryStore(db *sql.DB) *SummaryStore {
	return &SummaryStore{db: db}
}

func scanSummary(scanner interface{ Scan(...any) error }) (*model.DailySummary, error) {
	var ds model.DailySummary
	err := scanner.Scan(&ds.ID, &ds.UserID, &ds.Date, &ds.Message, &ds.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

const summaryCols = `id, user_id, date, message, created_at`

func (s *SummaryStore) Get(userID int64, date string) (*model.DailySummary, error) {
	row := s.db.QueryRow(
		`SELECT `+summaryCols+` FROM daily_summaries WHERE user_id = ? AND date = ?`,
		userID, date,
	)
	ds, err := scanSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return ds, nil
}

// Create inserts the summary row for (user, date). A concurrent insert for
// the same key fails the UNIQUE constraint and surfaces as ErrDuplicate.
func (s *SummaryStore) Create(userID int64, date, message string) (*model.DailySummary, error) {
	result, err := s.db.Exec(
		`INSERT INTO daily_summaries (user_id, date, message) VALUES (?, ?, ?)`,
		userID, date, message,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("insert summary: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+summaryCols+` FROM daily_summaries WHERE id = ?`, id)
	return scanSummary(row)
}

// GetForUsers returns a user_id -> message map of summaries for the given
// date, limited to the given users. Users without a summary are absent.
func (s *SummaryStore) GetForUsers(userIDs []int64, date string) (map[int64]string, error) {
	summaries := make(map[int64]string)
	if len(userIDs) == 0 {
		return summaries, nil
	}

	placeholders := strings.Repeat("?,", len(userIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(userIDs)+1)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, date)

	rows, err := s.db.Query(
		`SELECT user_id, message FROM daily_summaries WHERE user_id IN (`+placeholders+`) AND date = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get summaries for users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var message string
		if err := rows.Scan(&userID, &message); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries[userID] = message
	}
	return summaries, rows.Err()
}
