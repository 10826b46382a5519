// Package summary builds the daily usage digest and turns it into a cached
// AI-generated summary, one per user per calendar day.
package summary

import (
	"fmt"
	"strings"

	"github.com/offtimeapp/offtime/internal/model"
)

// BuildDigest renders usage records as one line per record:
// "app_name - N minutes (memo)", with the parenthetical omitted when the
// record has no memo. Records are expected in start_time order.
func BuildDigest(records []model.UsageRecord, appNames map[int64]string) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		name := appNames[r.AppID]
		if name == "" {
			name = "Unknown"
		}
		line := fmt.Sprintf("%s - %s", name, FormatMinutes(r.UsageMS))
		if r.Memo != nil {
			if memo := strings.TrimSpace(*r.Memo); memo != "" {
				line += fmt.Sprintf(" (%s)", memo)
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// FormatMinutes renders a millisecond duration as whole minutes, rounded to
// the nearest minute.
func FormatMinutes(ms int64) string {
	return fmt.Sprintf("%d minutes", (ms+30_000)/60_000)
}
