package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the analytics snapshot.
type Repository interface {
	Totals(ctx context.Context) (Totals, error)
	CountByFlowType(ctx context.Context) (map[string]int64, error)
	CountByVariant(ctx context.Context) (map[string]int64, error)
	FoundJobStats(ctx context.Context) (FoundJobStats, error)
	WindowCounts(ctx context.Context, since time.Time) (WindowCounts, error)
}

// Totals are the headline cancellation counters.
type Totals struct {
	Total            int64 `json:"total"`
	Resolved         int64 `json:"resolved"`
	Active           int64 `json:"active"`
	DownsellAccepted int64 `json:"downsellAccepted"`
}

// FoundJobStats summarizes the exit surveys.
type FoundJobStats struct {
	Surveys           int64   `json:"surveys"`
	ViaMigrateMate    int64   `json:"viaMigrateMate"`
	WithVisaLawyer    int64   `json:"withVisaLawyer"`
	AvgFeedbackLength float64 `json:"avgFeedbackLength"`
}

// WindowCounts are per-trend-window counters.
type WindowCounts struct {
	Started  int64 `json:"started"`
	Resolved int64 `json:"resolved"`
	Accepted int64 `json:"accepted"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an analytics repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) cancellations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Cancellation{})
}

func (r *repository) surveys(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.FoundJobSurvey{})
}

func (r *repository) Totals(ctx context.Context) (Totals, error) {
	var totals Totals
	if err := r.cancellations(ctx).Count(&totals.Total).Error; err != nil {
		return totals, err
	}
	if err := r.cancellations(ctx).Where("resolved_at IS NOT NULL").Count(&totals.Resolved).Error; err != nil {
		return totals, err
	}
	totals.Active = totals.Total - totals.Resolved
	err := r.cancellations(ctx).
		Where("accepted_downsell = ? AND resolved_at IS NOT NULL", true).
		Count(&totals.DownsellAccepted).Error
	return totals, err
}

func (r *repository) CountByFlowType(ctx context.Context) (map[string]int64, error) {
	return r.groupCount(ctx, "flow_type")
}

func (r *repository) CountByVariant(ctx context.Context) (map[string]int64, error) {
	return r.groupCount(ctx, "downsell_variant")
}

func (r *repository) groupCount(ctx context.Context, column string) (map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}
	var rows []row
	err := r.cancellations(ctx).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, item := range rows {
		counts[item.Key] = item.Count
	}
	return counts, nil
}

func (r *repository) FoundJobStats(ctx context.Context) (FoundJobStats, error) {
	var stats FoundJobStats
	if err := r.surveys(ctx).Count(&stats.Surveys).Error; err != nil {
		return stats, err
	}
	if err := r.surveys(ctx).
		Where("via_migrate_mate = ?", enums.YesNoYes).
		Count(&stats.ViaMigrateMate).Error; err != nil {
		return stats, err
	}
	if err := r.surveys(ctx).
		Where("visa_lawyer = ?", enums.YesNoYes).
		Count(&stats.WithVisaLawyer).Error; err != nil {
		return stats, err
	}
	var avg *float64
	err := r.surveys(ctx).
		Select("AVG(LENGTH(feedback))").
		Where("feedback IS NOT NULL").
		Scan(&avg).Error
	if err != nil {
		return stats, err
	}
	if avg != nil {
		stats.AvgFeedbackLength = *avg
	}
	return stats, nil
}

func (r *repository) WindowCounts(ctx context.Context, since time.Time) (WindowCounts, error) {
	var counts WindowCounts
	if err := r.cancellations(ctx).
		Where("created_at >= ?", since).
		Count(&counts.Started).Error; err != nil {
		return counts, err
	}
	if err := r.cancellations(ctx).
		Where("resolved_at >= ?", since).
		Count(&counts.Resolved).Error; err != nil {
		return counts, err
	}
	err := r.cancellations(ctx).
		Where("resolved_at >= ? AND accepted_downsell = ?", since, true).
		Count(&counts.Accepted).Error
	return counts, err
}
