// Package scheduler drives the day-boundary sweep: a periodic pass that
// closes out every reporting date that has ended since the last successful
// sweep, for every tracked pair.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cdr.dev/slog/v3"
	"github.com/cenkalti/backoff/v4"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/fardannozami/ghostwatch/internal/app/usecase"
	"github.com/fardannozami/ghostwatch/internal/calendar"
	"github.com/fardannozami/ghostwatch/internal/domain"
	"github.com/fardannozami/ghostwatch/internal/notify"
)

type Options struct {
	Tracking   domain.TrackingRepository
	Sweeps     domain.SweepRepository
	CloseDay   *usecase.CloseDayUsecase
	Calendar   *calendar.Calendar
	Dispatcher *notify.Dispatcher
	Sender     notify.Sender
	Logger     slog.Logger

	// Interval is how often the sweeper checks whether the reporting date
	// advanced. Defaults to five minutes.
	Interval time.Duration
	// Workers bounds concurrent per-pair closes within one date. Defaults
	// to eight.
	Workers int
	// Clock defaults to the real clock; tests inject a mock.
	Clock quartz.Clock
}

type Sweeper struct {
	tracking   domain.TrackingRepository
	sweeps     domain.SweepRepository
	closeDay   *usecase.CloseDayUsecase
	cal        *calendar.Calendar
	dispatcher *notify.Dispatcher
	sender     notify.Sender
	logger     slog.Logger
	interval   time.Duration
	workers    int
	clock      quartz.Clock

	// sweepMu serializes sweep passes: the ticker and the admin trigger
	// must not interleave date closes.
	sweepMu sync.Mutex
}

func New(opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	return &Sweeper{
		tracking:   opts.Tracking,
		sweeps:     opts.Sweeps,
		closeDay:   opts.CloseDay,
		cal:        opts.Calendar,
		dispatcher: opts.Dispatcher,
		sender:     opts.Sender,
		logger:     opts.Logger,
		interval:   opts.Interval,
		workers:    opts.Workers,
		clock:      opts.Clock,
	}
}

// Run blocks until ctx is canceled. It seeds the persisted sweep state on a
// fresh install, then sweeps on every tick. A failed pass is logged and
// retried on the next tick, never fatal.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.seed(ctx); err != nil {
		return xerrors.Errorf("seed sweep state: %w", err)
	}

	waiter := s.clock.TickerFunc(ctx, s.interval, func() error {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error(ctx, "boundary sweep failed, will retry next tick", slog.Error(err))
		}
		return nil
	}, "boundarySweep")

	return waiter.Wait()
}

// seed initializes the last-swept-date to yesterday on a fresh install.
// Days before the install are unknowable and must not be marked as lapses.
func (s *Sweeper) seed(ctx context.Context) error {
	last, err := s.sweeps.LastSweptDate(ctx)
	if err != nil {
		return err
	}
	if last != nil {
		return nil
	}
	yesterday := s.cal.PrevDate(s.cal.DateOf(s.clock.Now()))
	return s.sweeps.SetLastSweptDate(ctx, yesterday)
}

// Sweep closes every reporting date between the persisted last-swept-date
// and today. The state only advances past a date once it closed for every
// tracked pair, so stragglers are retried on the next pass; closing is
// idempotent, re-running an already-closed date is safe.
func (s *Sweeper) Sweep(ctx context.Context) error {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	last, err := s.sweeps.LastSweptDate(ctx)
	if err != nil {
		return xerrors.Errorf("load sweep state: %w", err)
	}
	if last == nil {
		return xerrors.New("sweep state not seeded")
	}

	today := s.cal.DateOf(s.clock.Now())
	for date := s.cal.NextDate(*last); date.Before(today); date = s.cal.NextDate(date) {
		if err := s.sweepDate(ctx, date); err != nil {
			return err
		}
		if err := s.sweeps.SetLastSweptDate(ctx, date); err != nil {
			return xerrors.Errorf("advance sweep state: %w", err)
		}
	}
	return nil
}

func (s *Sweeper) sweepDate(ctx context.Context, date time.Time) error {
	pairs, err := s.listPairs(ctx)
	if err != nil {
		return xerrors.Errorf("list tracked pairs: %w", err)
	}

	s.logger.Info(ctx, "closing reporting date",
		slog.F("date", s.cal.FormatDate(date)),
		slog.F("pairs", len(pairs)),
	)

	var failed atomic.Int64
	eg := &errgroup.Group{}
	eg.SetLimit(s.workers)
	for _, pair := range pairs {
		eg.Go(func() error {
			res, err := s.closeDay.Execute(ctx, pair.ChatID, pair.UserID, date)
			if err != nil {
				// One pair's failure never aborts the batch.
				failed.Add(1)
				s.logger.Warn(ctx, "failed to close date for pair",
					slog.F("chat_id", pair.ChatID),
					slog.F("user_id", pair.UserID),
					slog.F("date", s.cal.FormatDate(date)),
					slog.Error(err),
				)
				return nil
			}
			if res.Lapsed {
				s.notifyLapse(ctx, pair, res.FailureStreak)
			}
			return nil
		})
	}
	_ = eg.Wait()

	if n := failed.Load(); n > 0 {
		return xerrors.Errorf("%d of %d pairs failed to close %s", n, len(pairs), s.cal.FormatDate(date))
	}
	return nil
}

// listPairs retries transient store failures with exponential backoff so a
// briefly unavailable store does not cost a whole sweep interval.
func (s *Sweeper) listPairs(ctx context.Context) ([]*domain.TrackedPair, error) {
	var pairs []*domain.TrackedPair
	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(func() error {
		var err error
		pairs, err = s.tracking.ListPairs(ctx)
		if err != nil && !xerrors.Is(err, domain.ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *Sweeper) notifyLapse(ctx context.Context, pair *domain.TrackedPair, failureStreak int) {
	name := pair.Username
	if name == "" {
		name = fmt.Sprintf("user %d", pair.UserID)
	}
	text := s.dispatcher.LapseNotice(name, failureStreak)
	if err := s.sender.Send(ctx, pair.ChatID, text); err != nil {
		s.logger.Warn(ctx, "failed to deliver lapse notice",
			slog.F("chat_id", pair.ChatID),
			slog.F("user_id", pair.UserID),
			slog.Error(err),
		)
	}
}
