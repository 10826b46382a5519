package model

import "time"

type App struct {
	ID          int64  `json:"id"`
	PackageName string `json:"package_name"`
	AppName     string `json:"app_name"`
}

// UsageRecord is one logged stretch of app usage. StartTime and EndTime are
// Unix epoch milliseconds as reported by the device.
type UsageRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	AppID     int64     `json:"app_id"`
	UsageMS   int64     `json:"usage_ms"`
	StartTime int64     `json:"start_time"`
	EndTime   int64     `json:"end_time"`
	Memo      *string   `json:"memo"`
	CreatedAt time.Time `json:"created_at"`
}
