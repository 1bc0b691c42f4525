// Package flow holds the message-driven transitions of the passenger and driver tracks.
package flow

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"tripbot/internal/models"
	"tripbot/internal/tripbot/fsm"
	"tripbot/internal/tripbot/messages"
	"tripbot/internal/tripbot/phoneutil"
)

var errInvalidNumber = errors.New("flow: invalid number")

// Input is an inbound message as seen by a track handler. Text is trimmed and
// lower-cased for matching, Raw keeps the trimmed original.
type Input struct {
	SenderID string
	Text     string
	Raw      string
}

// NewInput normalizes an inbound message body.
func NewInput(senderID, body string) Input {
	raw := strings.TrimSpace(body)
	return Input{SenderID: strings.TrimSpace(senderID), Text: strings.ToLower(raw), Raw: raw}
}

// Result reports what a handler did. Replies go back to the sender.
type Result struct {
	Replies []string
	// Advanced is true when the track moved to a new state.
	Advanced bool
}

func reply(texts ...string) Result { return Result{Replies: texts} }

func advanced(texts ...string) Result { return Result{Replies: texts, Advanced: true} }

type passengerHandler func(t *models.Trip, in Input) Result

type driverHandler func(t *models.Trip, in Input) Result

var passengerHandlers = map[models.PassengerState]passengerHandler{
	models.PassengerRecognition:   passengerRecognition,
	models.PassengerCount:         passengerCount,
	models.PassengerLuggage:       passengerLuggage,
	models.PassengerRatingPending: passengerRating,
}

var driverHandlers = map[models.DriverState]driverHandler{
	models.DriverAwaitingAccept:  driverAcceptance,
	models.DriverAccepted:        driverLateAcceptance,
	models.DriverReminder12h:     driverLateAcceptance,
	models.DriverReminder1h:      driverLateAcceptance,
	models.DriverRequestDistance: driverDistance,
	models.DriverRequestFare:     driverFare,
	models.DriverRequestDuration: driverDuration,
	models.DriverRequestNote:     driverNote,
	models.DriverRatingSent:      driverRating,
}

// Passenger applies an inbound message to the passenger track of t.
func Passenger(t *models.Trip, in Input) Result {
	h, ok := passengerHandlers[t.PassengerFlow]
	if !ok {
		return Result{}
	}
	return h(t, in)
}

// Driver applies an inbound message to the driver track of t.
func Driver(t *models.Trip, in Input) Result {
	h, ok := driverHandlers[t.DriverFlow]
	if !ok {
		return Result{}
	}
	return h(t, in)
}

func setPassenger(t *models.Trip, to models.PassengerState) bool {
	if !fsm.CanTransitionPassenger(t.PassengerFlow, to) {
		return false
	}
	t.PassengerFlow = to
	return true
}

func setDriver(t *models.Trip, to models.DriverState) bool {
	if !fsm.CanTransitionDriver(t.DriverFlow, to) {
		return false
	}
	t.DriverFlow = to
	return true
}

func passengerRecognition(t *models.Trip, in Input) Result {
	if in.Text != phoneutil.LastFour(t.PassengerPhone) {
		return reply(messages.InvalidCode)
	}
	if t.PassengerChatID != "" && t.PassengerChatID != in.SenderID {
		return Result{}
	}
	if !setPassenger(t, models.PassengerCount) {
		return Result{}
	}
	t.PassengerConfirmed = models.ConfirmedYes
	if t.PassengerChatID == "" {
		t.PassengerChatID = in.SenderID
	}
	return advanced(messages.PassengerCountPrompt)
}

func passengerCount(t *models.Trip, in Input) Result {
	label, ok := messages.PassengerCountOptions[in.Text]
	if !ok {
		return reply(messages.InvalidOption)
	}
	if !setPassenger(t, models.PassengerLuggage) {
		return Result{}
	}
	t.PassengerCount = label
	return advanced(messages.LuggagePrompt)
}

func passengerLuggage(t *models.Trip, in Input) Result {
	label, ok := messages.LuggageOptions[in.Text]
	if !ok {
		return reply(messages.InvalidOption)
	}
	if !setPassenger(t, models.PassengerTripConfirmed) {
		return Result{}
	}
	t.Luggage = label
	return advanced(messages.PassengerDataThanks)
}

func passengerRating(t *models.Trip, in Input) Result {
	rating, ok := parseRating(in.Text)
	if !ok {
		return reply(messages.InvalidOption)
	}
	if !setPassenger(t, models.PassengerFinalized) {
		return Result{}
	}
	t.PassengerRating = rating
	t.RatingStatus = models.RatingAnswered
	return advanced(messages.PassengerRatingThanks(*t, rating))
}

// driverAcceptance binds the sender as the trip's driver on a correct code.
// A code that arrives after another sender was bound is rejected.
func driverAcceptance(t *models.Trip, in Input) Result {
	if in.Text != phoneutil.LastFour(t.DriverPhone) {
		return reply(messages.InvalidCode)
	}
	if t.DriverChatID != "" && t.DriverChatID != in.SenderID {
		return reply(messages.DriverAlreadyConfirmed)
	}
	if !setDriver(t, models.DriverAccepted) {
		return Result{}
	}
	if t.DriverChatID == "" {
		t.DriverChatID = in.SenderID
	}
	return advanced(messages.DriverAccepted(*t))
}

// driverLateAcceptance handles a correct code reaching a trip that another
// sender accepted between resolution and processing.
func driverLateAcceptance(t *models.Trip, in Input) Result {
	if in.SenderID == t.DriverChatID || in.Text != phoneutil.LastFour(t.DriverPhone) {
		return Result{}
	}
	return reply(messages.DriverAlreadyConfirmed)
}

func driverDistance(t *models.Trip, in Input) Result {
	v, err := ParseDecimal(in.Text)
	if err != nil {
		return reply(messages.InvalidDistance)
	}
	if !setDriver(t, models.DriverRequestFare) {
		return Result{}
	}
	t.DistanceKm = &v
	return advanced(messages.DriverFarePrompt)
}

func driverFare(t *models.Trip, in Input) Result {
	v, err := ParseDecimal(in.Text)
	if err != nil {
		return reply(messages.InvalidFare)
	}
	if !setDriver(t, models.DriverRequestDuration) {
		return Result{}
	}
	t.FinalFare = &v
	return advanced(messages.DriverDurationPrompt)
}

func driverDuration(t *models.Trip, in Input) Result {
	v, err := ParseMinutes(in.Text)
	if err != nil {
		return reply(messages.InvalidDuration)
	}
	if !setDriver(t, models.DriverRequestNote) {
		return Result{}
	}
	t.DurationMinutes = &v
	return advanced(messages.DriverNotePrompt)
}

func driverNote(t *models.Trip, in Input) Result {
	if !setDriver(t, models.DriverCompletionDone) {
		return Result{}
	}
	t.DriverNote = in.Raw
	return advanced(messages.DriverCompletionThanks(*t))
}

func driverRating(t *models.Trip, in Input) Result {
	rating, ok := parseRating(in.Text)
	if !ok {
		return reply(messages.InvalidOption)
	}
	if !setDriver(t, models.DriverRatingAnswered) {
		return Result{}
	}
	t.DriverRating = rating
	return advanced(messages.DriverRatingThanks(*t, rating))
}

func parseRating(s string) (int, bool) {
	switch s {
	case "1":
		return 1, true
	case "2":
		return 2, true
	case "3":
		return 3, true
	}
	return 0, false
}

// ParseDecimal reads a non-negative decimal written with a dot or a comma
// and rounds it to two places.
func ParseDecimal(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, s)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, s)
	}
	return math.Round(v*100) / 100, nil
}

// ParseMinutes keeps the digits of s, so "45 min" reads as 45.
func ParseMinutes(s string) (int, error) {
	d := phoneutil.Digits(s)
	if d == "" {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, s)
	}
	v, err := strconv.Atoi(d)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, s)
	}
	return v, nil
}
