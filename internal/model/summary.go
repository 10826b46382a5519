package model

import "time"

// DailySummary is the cached AI summary for one user on one calendar day.
// Date is a YYYY-MM-DD string; at most one row exists per (user, date).
type DailySummary struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Date      string    `json:"date"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
