// Package reminder applies the time-driven transitions of both trip tracks.
package reminder

import (
	"time"

	"golang.org/x/exp/slices"

	"tripbot/internal/models"
	"tripbot/internal/tripbot/fsm"
	"tripbot/internal/tripbot/messages"
	"tripbot/internal/tripbot/timeutil"
)

// Send is one outbound message produced by a transition.
type Send struct {
	Track models.Track
	To    string
	Text  string
}

// Fired records a rule that matched during evaluation.
type Fired struct {
	Track models.Track
	Rule  string
	Sends []Send
}

// window is the time context a rule is checked against. Until is
// scheduledAt-now and Since is now-scheduledAt.
type window struct {
	Until time.Duration
	Since time.Duration
}

type passengerRule struct {
	name  string
	when  func(t models.Trip, w window) bool
	apply func(t *models.Trip) []string
}

type driverRule struct {
	name  string
	when  func(t models.Trip, w window) bool
	to    models.DriverState
	texts func(t models.Trip) []string
	// raw sends to the driver phone even when a chat id is bound.
	raw bool
}

var passengerRules = []passengerRule{
	{
		name: "first_contact",
		when: func(t models.Trip, w window) bool {
			return t.PassengerFlow == models.PassengerUnset && w.Until > 0 && w.Until <= 24*time.Hour
		},
		apply: func(t *models.Trip) []string {
			t.PassengerFlow = models.PassengerRecognition
			return []string{messages.PassengerTripConfirmation(*t), messages.PassengerCodeRequest(*t)}
		},
	},
	reminderRule("reminder_1h", 1, 30*time.Minute, time.Hour, "1 hora"),
	reminderRule("reminder_30m", 2, 10*time.Minute, 30*time.Minute, "30 minutos"),
	reminderRule("reminder_10m", 3, 0, 10*time.Minute, "10 minutos"),
	{
		name: "rating_request",
		when: func(t models.Trip, w window) bool {
			return t.RatingStatus == models.RatingUnset && t.PassengerChatID != "" && w.Since >= 24*time.Hour &&
				fsm.CanTransitionPassenger(t.PassengerFlow, models.PassengerRatingPending)
		},
		apply: func(t *models.Trip) []string {
			t.PassengerFlow = models.PassengerRatingPending
			t.RatingStatus = models.RatingSent
			return []string{messages.PassengerRatingRequest(*t)}
		},
	},
}

// reminderRule fires when the level is below target and Until falls in (from, to].
// A level whose window already passed is skipped, never sent late.
func reminderRule(name string, target int, from, to time.Duration, lead string) passengerRule {
	return passengerRule{
		name: name,
		when: func(t models.Trip, w window) bool {
			return t.PassengerChatID != "" && t.ReminderLevel < target && w.Until > from && w.Until <= to
		},
		apply: func(t *models.Trip) []string {
			t.ReminderLevel = target
			return []string{messages.PassengerReminder(*t, lead)}
		},
	}
}

func driverIn(states ...models.DriverState) func(models.DriverState) bool {
	return func(s models.DriverState) bool { return slices.Contains(states, s) }
}

var (
	beforeOneHour  = driverIn(models.DriverAccepted, models.DriverReminder12h)
	awaitingTrip   = driverIn(models.DriverReminder1h, models.DriverAccepted, models.DriverReminder12h)
	ratingEligible = driverIn(models.DriverReminder1h, models.DriverAccepted, models.DriverReminder12h, models.DriverCompletionDone)
)

var driverRules = []driverRule{
	{
		name: "assignment",
		when: func(t models.Trip, w window) bool {
			return t.DriverFlow == models.DriverUnset && w.Until > 0 && w.Until <= 24*time.Hour
		},
		to: models.DriverAwaitingAccept,
		texts: func(t models.Trip) []string {
			return []string{messages.DriverAssignment(t), messages.DriverCodeRequest(t)}
		},
		raw: true,
	},
	{
		name: "reminder_12h",
		when: func(t models.Trip, w window) bool {
			return t.DriverFlow == models.DriverAccepted && w.Until > time.Hour && w.Until <= 12*time.Hour
		},
		to:    models.DriverReminder12h,
		texts: func(t models.Trip) []string { return []string{messages.DriverReminder12h(t)} },
	},
	{
		name: "reminder_1h",
		when: func(t models.Trip, w window) bool {
			return beforeOneHour(t.DriverFlow) && w.Until > 0 && w.Until <= time.Hour
		},
		to:    models.DriverReminder1h,
		texts: func(t models.Trip) []string { return []string{messages.DriverReminder1h(t)} },
	},
	{
		name: "request_distance",
		when: func(t models.Trip, w window) bool {
			return awaitingTrip(t.DriverFlow) && t.DistanceKm == nil && w.Since >= 4*time.Hour && w.Since < 24*time.Hour
		},
		to:    models.DriverRequestDistance,
		texts: func(t models.Trip) []string { return []string{messages.DriverDistanceRequest(t)} },
	},
	{
		name: "rating_request",
		when: func(t models.Trip, w window) bool {
			return t.DistanceKm != nil && ratingEligible(t.DriverFlow) && w.Since >= 24*time.Hour
		},
		to:    models.DriverRatingSent,
		texts: func(t models.Trip) []string { return []string{messages.DriverRatingRequest(t)} },
	},
}

// Scheduler evaluates the rule tables against a clock in the operator's zone.
type Scheduler struct {
	clock timeutil.Clock
	loc   *time.Location
}

// New creates a scheduler.
func New(clock timeutil.Clock, loc *time.Location) *Scheduler {
	return &Scheduler{clock: clock, loc: loc}
}

// Evaluate applies at most one transition per active track to t and returns
// the messages to send once the mutated trip is persisted. A malformed
// schedule leaves t untouched and returns ErrMalformedSchedule.
func (s *Scheduler) Evaluate(t *models.Trip) ([]Fired, error) {
	at, err := timeutil.ParseSchedule(t.Date, t.Time, s.loc)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	w := window{Until: at.Sub(now), Since: now.Sub(at)}

	var fired []Fired
	if fsm.PassengerActive(*t) && t.PassengerConfirmed != models.ConfirmedNo {
		if f, ok := evaluatePassenger(t, w); ok {
			fired = append(fired, f)
		}
	}
	if fsm.DriverActive(*t) {
		if f, ok := evaluateDriver(t, w); ok {
			fired = append(fired, f)
		}
	}
	return fired, nil
}

func evaluatePassenger(t *models.Trip, w window) (Fired, bool) {
	for _, r := range passengerRules {
		if !r.when(*t, w) {
			continue
		}
		to := t.PassengerChatID
		if to == "" {
			to = t.PassengerPhone
		}
		texts := r.apply(t)
		return Fired{Track: models.TrackPassenger, Rule: r.name, Sends: sends(models.TrackPassenger, to, texts)}, true
	}
	return Fired{}, false
}

func evaluateDriver(t *models.Trip, w window) (Fired, bool) {
	for _, r := range driverRules {
		if !r.when(*t, w) || !fsm.CanTransitionDriver(t.DriverFlow, r.to) {
			continue
		}
		to := t.DriverChatID
		if r.raw || to == "" {
			to = t.DriverPhone
		}
		t.DriverFlow = r.to
		return Fired{Track: models.TrackDriver, Rule: r.name, Sends: sends(models.TrackDriver, to, r.texts(*t))}, true
	}
	return Fired{}, false
}

func sends(track models.Track, to string, texts []string) []Send {
	out := make([]Send, 0, len(texts))
	for _, text := range texts {
		out = append(out, Send{Track: track, To: to, Text: text})
	}
	return out
}
