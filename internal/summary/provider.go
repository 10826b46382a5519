package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/offtimeapp/offtime/internal/model"
	"github.com/offtimeapp/offtime/internal/store"
)

// ErrNoData means the user has no usage records for the requested day, so
// there is nothing to summarize.
var ErrNoData = errors.New("no usage records")

// DateFormat is the calendar-day key used for summaries and votes.
const DateFormat = "2006-01-02"

// Provider implements get-or-generate semantics over the summary cache: the
// first read for a (user, date) generates and persists the summary; every
// later read returns the stored row unchanged.
type Provider struct {
	summaries *store.SummaryStore
	usage     *store.UsageStore
	generator Generator
	logger    *slog.Logger
}

func NewProvider(summaries *store.SummaryStore, usage *store.UsageStore, generator Generator, logger *slog.Logger) *Provider {
	return &Provider{
		summaries: summaries,
		usage:     usage,
		generator: generator,
		logger:    logger,
	}
}

// GetOrGenerate returns the cached summary for (user, date), generating and
// persisting one on the first call. Returns ErrNoData when the user logged
// nothing that day, and ErrGeneration when the model call or parse fails.
func (p *Provider) GetOrGenerate(ctx context.Context, userID int64, date string) (*model.DailySummary, error) {
	cached, err := p.summaries.Get(userID, date)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	startMS, endMS, err := DayBounds(date)
	if err != nil {
		return nil, err
	}

	records, err := p.usage.ListForUserRange(userID, startMS, endMS)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, date)
	}

	appNames, err := p.appNames(records)
	if err != nil {
		return nil, err
	}

	result, err := p.generator.Generate(ctx, BuildDigest(records, appNames))
	if err != nil {
		return nil, err
	}
	message := result.Summary + " " + result.Feedback

	created, err := p.summaries.Create(userID, date, message)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent request; the winner's row is the
		// cache entry from now on.
		p.logger.Debug("summary already created concurrently", "user_id", userID, "date", date)
		return p.summaries.Get(userID, date)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("summary generated", "user_id", userID, "date", date)
	return created, nil
}

func (p *Provider) appNames(records []model.UsageRecord) (map[int64]string, error) {
	names := make(map[int64]string)
	for _, r := range records {
		if _, ok := names[r.AppID]; ok {
			continue
		}
		app, err := p.usage.GetApp(r.AppID)
		if err != nil {
			return nil, err
		}
		if app != nil {
			names[r.AppID] = app.AppName
		}
	}
	return names, nil
}

// DayBounds converts a YYYY-MM-DD date to the [start, end) epoch-millisecond
// range of that local calendar day.
func DayBounds(date string) (int64, int64, error) {
	day, err := time.ParseInLocation(DateFormat, date, time.Local)
	if err != nil {
		return 0, 0, fmt.Errorf("parse date: %w", err)
	}
	start := day.UnixMilli()
	end := day.AddDate(0, 0, 1).UnixMilli()
	return start, end, nil
}
