package fsm

import (
	"golang.org/x/exp/slices"

	"tripbot/internal/models"
)

var passengerTransitions = map[models.PassengerState]map[models.PassengerState]struct{}{
	models.PassengerUnset:       {models.PassengerRecognition: {}, models.PassengerRatingPending: {}},
	models.PassengerRecognition: {models.PassengerCount: {}, models.PassengerRatingPending: {}},
	models.PassengerCount:       {models.PassengerLuggage: {}, models.PassengerRatingPending: {}},
	models.PassengerLuggage:     {models.PassengerTripConfirmed: {}, models.PassengerRatingPending: {}},
	models.PassengerTripConfirmed: {
		models.PassengerRatingPending: {},
	},
	models.PassengerRatingPending: {models.PassengerFinalized: {}},
	models.PassengerFinalized:     {},
}

var driverTransitions = map[models.DriverState]map[models.DriverState]struct{}{
	models.DriverUnset:          {models.DriverAwaitingAccept: {}},
	models.DriverAwaitingAccept: {models.DriverAccepted: {}},
	models.DriverAccepted: {
		models.DriverReminder12h:     {},
		models.DriverReminder1h:      {},
		models.DriverRequestDistance: {},
		models.DriverRatingSent:      {},
	},
	models.DriverReminder12h: {
		models.DriverReminder1h:      {},
		models.DriverRequestDistance: {},
		models.DriverRatingSent:      {},
	},
	models.DriverReminder1h: {
		models.DriverRequestDistance: {},
		models.DriverRatingSent:      {},
	},
	models.DriverRequestDistance: {models.DriverRequestFare: {}},
	models.DriverRequestFare:     {models.DriverRequestDuration: {}},
	models.DriverRequestDuration: {models.DriverRequestNote: {}},
	models.DriverRequestNote:     {models.DriverCompletionDone: {}},
	models.DriverCompletionDone:  {models.DriverRatingSent: {}},
	models.DriverRatingSent:      {models.DriverRatingAnswered: {}},
	models.DriverRatingAnswered:  {},
	models.DriverUnavailable:     {},
}

// CanTransitionPassenger returns whether the passenger track may move from one state to another.
func CanTransitionPassenger(from, to models.PassengerState) bool {
	if from == to {
		return true
	}
	allowed, ok := passengerTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// CanTransitionDriver returns whether the driver track may move from one state to another.
func CanTransitionDriver(from, to models.DriverState) bool {
	if from == to {
		return true
	}
	allowed, ok := driverTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// States in which the passenger is expected to answer a prompt.
var passengerAwaitingReply = []models.PassengerState{
	models.PassengerRecognition,
	models.PassengerCount,
	models.PassengerLuggage,
	models.PassengerRatingPending,
}

// States in which the driver is expected to answer a prompt.
var driverAwaitingReply = []models.DriverState{
	models.DriverAwaitingAccept,
	models.DriverRatingSent,
	models.DriverRequestDistance,
	models.DriverRequestFare,
	models.DriverRequestDuration,
	models.DriverRequestNote,
}

// PassengerAwaitingReply reports whether inbound passenger text can advance the state.
func PassengerAwaitingReply(s models.PassengerState) bool {
	return slices.Contains(passengerAwaitingReply, s)
}

// DriverAwaitingReply reports whether inbound driver text can advance the state.
func DriverAwaitingReply(s models.DriverState) bool {
	return slices.Contains(driverAwaitingReply, s)
}

// DriverTerminal reports whether the driver track has reached a state the
// sweep never leaves.
func DriverTerminal(s models.DriverState) bool {
	return s == models.DriverRatingAnswered || s == models.DriverUnavailable
}

// PassengerActive reports whether the sweep still evaluates the passenger track.
func PassengerActive(t models.Trip) bool {
	return t.PassengerFlow != models.PassengerFinalized && t.RatingStatus != models.RatingAnswered
}

// DriverActive reports whether the sweep still evaluates the driver track.
func DriverActive(t models.Trip) bool {
	return t.HasDriver() && !DriverTerminal(t.DriverFlow)
}

// Active reports whether at least one track is still live.
func Active(t models.Trip) bool {
	return PassengerActive(t) || DriverActive(t)
}
