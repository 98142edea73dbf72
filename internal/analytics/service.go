package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
	"github.com/migratemate/retention-backend/pkg/logger"
	redispkg "github.com/migratemate/retention-backend/pkg/redis"
)

const snapshotCacheScope = "snapshot"

var trendWindows = []int{7, 30, 90}

// Snapshot is the admin analytics payload: cancellation history aggregates,
// conversion, and recent-window trends.
type Snapshot struct {
	GeneratedAt    time.Time               `json:"generatedAt"`
	Totals         Totals                  `json:"totals"`
	ByFlowType     map[string]int64        `json:"byFlowType"`
	ByVariant      map[string]int64        `json:"byVariant"`
	ConversionRate float64                 `json:"conversionRate"`
	FoundJob       FoundJobStats           `json:"foundJob"`
	Trends         map[string]WindowCounts `json:"trends"`
}

// Service computes the analytics snapshot, serving from the Redis cache
// while the snapshot is fresh.
type Service interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// ServiceParams groups dependencies for the analytics service.
type ServiceParams struct {
	Repo     Repository
	Cache    redispkg.Cache
	CacheTTL time.Duration
	Logger   *logger.Logger
}

type service struct {
	repo  Repository
	cache redispkg.Cache
	ttl   time.Duration
	logg  *logger.Logger
	nowFn func() time.Time
}

// NewService builds an analytics service. Cache may be nil; snapshots are
// then recomputed on every call.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("analytics repo required")
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &service{
		repo:  params.Repo,
		cache: params.Cache,
		ttl:   ttl,
		logg:  params.Logger,
		nowFn: time.Now,
	}, nil
}

func (s *service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	snapshot, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, snapshot)
	return snapshot, nil
}

func (s *service) compute(ctx context.Context) (*Snapshot, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating totals")
	}
	byFlowType, err := s.repo.CountByFlowType(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating flow types")
	}
	byVariant, err := s.repo.CountByVariant(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating variants")
	}
	foundJob, err := s.repo.FoundJobStats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating surveys")
	}

	now := s.nowFn().UTC()
	trends := make(map[string]WindowCounts, len(trendWindows))
	for _, days := range trendWindows {
		counts, err := s.repo.WindowCounts(ctx, now.AddDate(0, 0, -days))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating trend window")
		}
		trends[fmt.Sprintf("%dd", days)] = counts
	}

	conversion := 0.0
	if totals.Resolved > 0 {
		conversion = float64(totals.DownsellAccepted) / float64(totals.Resolved)
	}

	return &Snapshot{
		GeneratedAt:    now,
		Totals:         totals,
		ByFlowType:     byFlowType,
		ByVariant:      byVariant,
		ConversionRate: conversion,
		FoundJob:       foundJob,
		Trends:         trends,
	}, nil
}

// Cache reads and writes are best-effort; a broken cache degrades to
// recomputation, never to a failed request.
func (s *service) fromCache(ctx context.Context) *Snapshot {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.AnalyticsKey(snapshotCacheScope))
	if err != nil {
		if !errors.Is(err, redispkg.ErrCacheMiss) && s.logg != nil {
			s.logg.Warn(ctx, "analytics cache read failed")
		}
		return nil
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil
	}
	return &snapshot
}

func (s *service) toCache(ctx context.Context, snapshot *Snapshot) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.AnalyticsKey(snapshotCacheScope), string(raw), s.ttl); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "analytics cache write failed")
	}
}
