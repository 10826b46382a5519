package store

import (
	"database/sql"
	"fmt"

	"github.com/offtimeapp/offtime/internal/model"
)

type UsageStore struct {
	db *sql.DB
}

func NewUsageStore(db *sql.DB) *UsageStore {
	return &UsageStore{db: db}
}

func scanUsageRecord(scanner interface{ Scan(...any) error }) (*model.UsageRecord, error) {
	var r model.UsageRecord
	err := scanner.Scan(&r.ID, &r.UserID, &r.AppID, &r.UsageMS, &r.StartTime, &r.EndTime, &r.Memo, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const usageRecordCols = `id, user_id, app_id, usage_ms, start_time, end_time, memo, created_at`

// GetOrCreateApp looks up an app by package name, inserting it if missing.
func (s *UsageStore) GetOrCreateApp(packageName, appName string) (*model.App, error) {
	var a model.App
	err := s.db.QueryRow(
		`SELECT id, package_name, app_name FROM apps WHERE package_name = ?`,
		packageName,
	).Scan(&a.ID, &a.PackageName, &a.AppName)
	if err == nil {
		return &a, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get app: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO apps (package_name, app_name) VALUES (?, ?)`,
		packageName, appName,
	)
	if isUniqueViolation(err) {
		// Lost a race with a concurrent insert; read the winner.
		return s.GetOrCreateApp(packageName, appName)
	}
	if err != nil {
		return nil, fmt.Errorf("insert app: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.App{ID: id, PackageName: packageName, AppName: appName}, nil
}

func (s *UsageStore) GetApp(id int64) (*model.App, error) {
	var a model.App
	err := s.db.QueryRow(
		`SELECT id, package_name, app_name FROM apps WHERE id = ?`, id,
	).Scan(&a.ID, &a.PackageName, &a.AppName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get app: %w", err)
	}
	return &a, nil
}

func (s *UsageStore) CreateRecord(userID, appID, usageMS, startTime, endTime int64) (*model.UsageRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO usage_records (user_id, app_id, usage_ms, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
		userID, appID, usageMS, startTime, endTime,
	)
	if err != nil {
		return nil, fmt.Errorf("insert usage record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRecord(id)
}

func (s *UsageStore) GetRecord(id int64) (*model.UsageRecord, error) {
	row := s.db.QueryRow(`SELECT `+usageRecordCols+` FROM usage_records WHERE id = ?`, id)
	r, err := scanUsageRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage record: %w", err)
	}
	return r, nil
}

// ListForUserRange returns the user's records with start_time in
// [startMS, endMS), oldest first. Used to build the daily digest.
func (s *UsageStore) ListForUserRange(userID, startMS, endMS int64) ([]model.UsageRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+usageRecordCols+` FROM usage_records
		 WHERE user_id = ? AND start_time >= ? AND start_time < ?
		 ORDER BY start_time ASC`,
		userID, startMS, endMS,
	)
	if err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	return collectUsageRecords(rows)
}

// ListForUser returns all of the user's records, newest first.
func (s *UsageStore) ListForUser(userID int64) ([]model.UsageRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+usageRecordCols+` FROM usage_records WHERE user_id = ? ORDER BY start_time DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	return collectUsageRecords(rows)
}

func collectUsageRecords(rows *sql.Rows) ([]model.UsageRecord, error) {
	defer rows.Close()
	var records []model.UsageRecord
	for rows.Next() {
		r, err := scanUsageRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func (s *UsageStore) SetMemo(id int64, memo string) error {
	_, err := s.db.Exec(`UPDATE usage_records SET memo = ? WHERE id = ?`, memo, id)
	if err != nil {
		return fmt.Errorf("set memo: %w", err)
	}
	return nil
}

func (s *UsageStore) ClearMemo(id int64) error {
	_, err := s.db.Exec(`UPDATE usage_records SET memo = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear memo: %w", err)
	}
	return nil
}
