package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tripbot/internal/models"
	"tripbot/internal/tripbot/flow"
	"tripbot/internal/tripbot/fsm"
	"tripbot/internal/tripbot/identity"
	"tripbot/internal/tripbot/metrics"
	"tripbot/internal/tripbot/reminder"
	"tripbot/internal/tripbot/timeutil"
)

// Logger is a minimal logger interface required by dispatcher.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Store is the record store the dispatcher reads and writes trips through.
type Store interface {
	LoadAll(ctx context.Context) ([]models.Trip, error)
	Get(ctx context.Context, id string) (models.Trip, error)
	Save(ctx context.Context, t models.Trip) error
}

// Messenger delivers outbound chat messages.
type Messenger interface {
	Send(ctx context.Context, to, text string) error
}

// Locker serializes work on one trip.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Config holds the dispatcher tunables.
type Config struct {
	SweepTick   time.Duration
	SendTimeout time.Duration
	QueueSize   int
	Location    *time.Location
}

type taskKind int

const (
	taskSweep taskKind = iota
	taskMessage
)

type task struct {
	kind taskKind
	id   string
	msg  identity.Message
}

// Dispatcher owns the sweep loop and the inbound message loop. Both feed one
// bounded queue drained by a single worker.
type Dispatcher struct {
	store     Store
	messenger Messenger
	locker    Locker
	clock     timeutil.Clock
	scheduler *reminder.Scheduler
	logger    Logger
	metrics   *metrics.Metrics
	cfg       Config

	queue        chan task
	sweepPending atomic.Bool
}

// New creates a dispatcher instance.
func New(store Store, messenger Messenger, locker Locker, clock timeutil.Clock, logger Logger, m *metrics.Metrics, cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.SweepTick <= 0 {
		cfg.SweepTick = 30 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &Dispatcher{
		store:     store,
		messenger: messenger,
		locker:    locker,
		clock:     clock,
		scheduler: reminder.New(clock, cfg.Location),
		logger:    logger,
		metrics:   m,
		cfg:       cfg,
		queue:     make(chan task, cfg.QueueSize),
	}
}

// Run starts the dispatcher loop and blocks until ctx is done. A sweep is
// queued immediately and then on every tick.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.SweepTick)
	defer ticker.Stop()

	d.enqueueSweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.enqueueSweep()
		case t := <-d.queue:
			d.metrics.QueueDepth(len(d.queue))
			d.process(ctx, t)
		}
	}
}

// enqueueSweep coalesces ticks: at most one sweep waits in the queue.
func (d *Dispatcher) enqueueSweep() {
	if !d.sweepPending.CompareAndSwap(false, true) {
		return
	}
	select {
	case d.queue <- task{kind: taskSweep}:
		d.metrics.QueueDepth(len(d.queue))
	default:
		d.sweepPending.Store(false)
		d.logger.Errorf("dispatch: queue full, sweep skipped")
	}
}

// Submit queues an inbound message. It never blocks; a full queue yields ErrQueueFull.
func (d *Dispatcher) Submit(ctx context.Context, senderID, body string) error {
	t := task{kind: taskMessage, id: uuid.NewString(), msg: identity.Message{SenderID: senderID, Text: body}}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.queue <- t:
		d.metrics.QueueDepth(len(d.queue))
		return nil
	default:
		d.metrics.Inbound("queue_full")
		return models.ErrQueueFull
	}
}

// QueueDepth reports how many units of work are waiting.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

func (d *Dispatcher) process(ctx context.Context, t task) {
	switch t.kind {
	case taskSweep:
		d.sweepPending.Store(false)
		if err := d.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Errorf("dispatch: sweep failed: %v", err)
		}
	case taskMessage:
		if err := d.HandleMessage(ctx, t.msg); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Errorf("dispatch: message %s from %s failed: %v", t.id, t.msg.SenderID, err)
		}
	}
}

// Sweep evaluates the time-driven transitions of every active trip. A read
// failure aborts the whole tick; any single-trip failure only skips that trip.
func (d *Dispatcher) Sweep(ctx context.Context) error {
	trips, err := d.store.LoadAll(ctx)
	if err != nil {
		d.metrics.Sweep("store_error")
		return err
	}
	for _, snap := range trips {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fsm.Active(snap) {
			continue
		}
		if err := d.sweepTrip(ctx, snap); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			d.logger.Errorf("dispatch: sweep trip %s: %v", snap.ID, err)
		}
	}
	d.metrics.Sweep("ok")
	return nil
}

func (d *Dispatcher) sweepTrip(ctx context.Context, snap models.Trip) error {
	// dry run on the snapshot so idle trips cost no lock or re-read
	probe := snap.Clone()
	fired, err := d.scheduler.Evaluate(&probe)
	if err != nil {
		return err
	}
	if len(fired) == 0 {
		return nil
	}

	release, err := d.locker.Lock(ctx, snap.ID)
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	defer release()

	trip, err := d.store.Get(ctx, snap.ID)
	if err != nil {
		return err
	}
	fired, err = d.scheduler.Evaluate(&trip)
	if err != nil {
		return err
	}
	if len(fired) == 0 {
		return nil
	}
	if err := d.store.Save(ctx, trip); err != nil {
		d.metrics.SaveError()
		return err
	}
	for _, f := range fired {
		d.metrics.Transition(f.Track, f.Rule)
		d.logger.Infof("dispatch: trip %s %s track: %s", trip.ID, f.Track, f.Rule)
		for _, s := range f.Sends {
			d.send(ctx, trip.ID, f.Track, s.To, s.Text)
		}
	}
	return nil
}

// HandleMessage resolves an inbound message to a trip track and applies it.
// Unresolved messages are logged and dropped without any write or reply.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg identity.Message) error {
	trips, err := d.store.LoadAll(ctx)
	if err != nil {
		d.metrics.Inbound("store_error")
		return err
	}
	match, ok := identity.Resolve(msg, trips)
	if !ok {
		d.metrics.Inbound("unresolved")
		d.logger.Infof("dispatch: no trip for sender %s, message dropped", msg.SenderID)
		return nil
	}

	release, err := d.locker.Lock(ctx, match.TripID)
	if err != nil {
		return fmt.Errorf("lock trip %s: %w", match.TripID, err)
	}
	defer release()

	trip, err := d.store.Get(ctx, match.TripID)
	if err != nil {
		return err
	}
	in := flow.NewInput(msg.SenderID, msg.Text)

	var res flow.Result
	switch match.Track {
	case models.TrackPassenger:
		if trip.PassengerChatID != "" && trip.PassengerChatID != in.SenderID {
			d.metrics.Inbound("rebound")
			d.logger.Infof("dispatch: trip %s passenger already bound to another sender, message from %s dropped", trip.ID, in.SenderID)
			return nil
		}
		res = flow.Passenger(&trip, in)
	case models.TrackDriver:
		if match.Bind && trip.DriverChatID == "" && trip.DriverFlow == models.DriverAwaitingAccept {
			trip.DriverChatID = in.SenderID
		}
		res = flow.Driver(&trip, in)
	}

	now := d.clock.Now().Truncate(time.Second)
	trip.LastInteractionAt = &now
	if err := d.store.Save(ctx, trip); err != nil {
		d.metrics.SaveError()
		return err
	}
	d.metrics.Inbound("resolved_" + match.Tier.String())
	if res.Advanced {
		d.metrics.Transition(match.Track, "message")
		d.logger.Infof("dispatch: trip %s %s track advanced via %s", trip.ID, match.Track, match.Tier)
	}
	for _, text := range res.Replies {
		d.send(ctx, trip.ID, match.Track, in.SenderID, text)
	}
	return nil
}

// send delivers one message under the send timeout. Failures are logged and
// never retried; the persisted state already reflects the transition.
func (d *Dispatcher) send(ctx context.Context, tripID string, track models.Track, to, text string) {
	sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	err := d.messenger.Send(sctx, to, text)
	d.metrics.Send(err)
	if err != nil {
		d.logger.Errorf("dispatch: trip %s %s send to %s failed: %v", tripID, track, to, err)
	}
}
