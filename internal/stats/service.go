package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/user"
)

const (
	snapshotKey     = "stats:dashboard"
	DefaultCacheTTL = 24 * time.Hour
	fallbackTimeout = time.Second

	NoticeStale       = "Live statistics are unavailable; showing the last known figures."
	NoticeUnavailable = "Statistics are temporarily unavailable."
)

type Service struct {
	repo   RepositoryAPI
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, cache Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Dashboard recomputes the counters. When the store fails it falls back to the
// cached snapshot, or to an empty view, and says so in Notice.
func (s *Service) Dashboard(ctx context.Context, identity *internal.Identity) (*DashboardStats, error) {
	if identity == nil {
		return nil, internal.ErrMissingToken
	}
	fleet := user.Role(identity.Role) == user.RoleSuperAdmin

	snap, err := s.repo.Snapshot(ctx)
	if err == nil {
		snap.ComputedAt = s.now().UTC()
		s.remember(ctx, snap)
		return toDashboard(snap, fleet), nil
	}

	s.logger.Error("failed to compute stats", "error", err)

	// the request context may already be done; the cache read gets its own budget
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
	defer cancel()

	if cached := s.recall(fctx); cached != nil {
		s.logger.Warn("serving cached stats snapshot", "computed_at", cached.ComputedAt)
		d := toDashboard(cached, fleet)
		d.Stale = true
		d.Notice = NoticeStale
		return d, nil
	}

	d := toDashboard(&Snapshot{}, fleet)
	d.Stale = true
	d.Notice = NoticeUnavailable
	return d, nil
}

// Refresh recomputes the snapshot and stores it as the fallback copy.
func (s *Service) Refresh(ctx context.Context) error {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("refresh stats: %w", err)
	}
	snap.ComputedAt = s.now().UTC()
	s.remember(ctx, snap)
	return nil
}

func (s *Service) remember(ctx context.Context, snap *Snapshot) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("failed to encode stats snapshot", "error", err)
		return
	}
	_ = s.cache.Set(ctx, snapshotKey, payload, s.ttl)
}

func (s *Service) recall(ctx context.Context) *Snapshot {
	if s.cache == nil {
		return nil
	}
	payload, _ := s.cache.Get(ctx, snapshotKey)
	if payload == nil {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		s.logger.Warn("discarding unreadable stats snapshot", "error", err)
		return nil
	}
	return &snap
}
