package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/catalog"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/gallery"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/transaction"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/salon-portal/internal/core/events"
)

const RefreshInterval = 30 * time.Second

// Snapshot is the last successfully applied aggregation.
type Snapshot struct {
	Stats
	Sequence    uint64    `json:"sequence"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// View is what callers render: the snapshot plus the outcome of the latest refresh.
type View struct {
	Snapshot  *Snapshot `json:"snapshot"`
	Stale     bool      `json:"stale"`
	LastError string    `json:"last_error,omitempty"`
}

type Service struct {
	source   Source
	interval time.Duration
	bus      *events.EventBus
	logger   *slog.Logger

	started atomic.Uint64

	mu      sync.RWMutex
	current *Snapshot
	lastErr error
}

func NewService(source Source, interval time.Duration, bus *events.EventBus, logger *slog.Logger) *Service {
	if interval <= 0 {
		interval = RefreshInterval
	}
	return &Service{
		source:   source,
		interval: interval,
		bus:      bus,
		logger:   logger,
	}
}

// Refresh fetches all collections in parallel. Any failure aborts the whole refresh and the
// previous snapshot stays in place. A refresh that started before the applied snapshot's
// refresh is dropped when it completes.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	seq := s.started.Add(1)
	start := time.Now()

	var (
		appointments []appointment.Appointment
		users        []user.User
		services     []catalog.Service
		galleryItems []gallery.Item
		transactions []transaction.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		appointments, err = s.source.Appointments(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.source.Users(gctx)
		return err
	})
	g.Go(func() (err error) {
		services, err = s.source.Services(gctx)
		return err
	})
	g.Go(func() (err error) {
		galleryItems, err = s.source.Gallery(gctx)
		return err
	})
	g.Go(func() (err error) {
		transactions, err = s.source.Transactions(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.mu.Lock()
		if s.current == nil || s.current.Sequence < seq {
			s.lastErr = err
		}
		s.mu.Unlock()
		s.logger.Error("dashboard refresh failed", "sequence", seq, "error", err)
		s.publish(seq, time.Since(start), false)
		return nil, err
	}

	snap := &Snapshot{
		Stats:       Aggregate(appointments, users, services, galleryItems, transactions),
		Sequence:    seq,
		RefreshedAt: time.Now(),
	}

	s.mu.Lock()
	if s.current != nil && s.current.Sequence > seq {
		current := s.current
		s.mu.Unlock()
		s.logger.Debug("dropping out-of-order dashboard refresh",
			"sequence", seq,
			"applied_sequence", current.Sequence)
		return current, nil
	}
	s.current = snap
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("dashboard refreshed",
		"sequence", seq,
		"appointments", snap.TotalAppointments,
		"revenue", snap.TotalRevenue.String(),
		"duration_ms", time.Since(start).Milliseconds())
	s.publish(seq, time.Since(start), true)
	return snap, nil
}

func (s *Service) Current() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := View{Snapshot: s.current, Stale: s.lastErr != nil}
	if s.lastErr != nil {
		view.LastError = s.lastErr.Error()
	}
	return view
}

// Run refreshes immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = s.Refresh(ctx)
		}
	}
}

func (s *Service) publish(seq uint64, took time.Duration, ok bool) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), events.NewDashboardRefreshedEvent(seq, took, ok)); err != nil {
		s.logger.Error("failed to publish dashboard event", "error", err)
	}
}
