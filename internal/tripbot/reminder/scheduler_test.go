package reminder

import (
	"errors"
	"testing"
	"time"

	"tripbot/internal/models"
	"tripbot/internal/tripbot/timeutil"
)

var loc = time.FixedZone("BRT", -3*60*60)

// departure is the schedule every test trip uses.
var departure = time.Date(2025, 3, 10, 14, 0, 0, 0, loc)

func newScheduler(offset time.Duration) (*Scheduler, *timeutil.Fixed) {
	clock := &timeutil.Fixed{T: departure.Add(offset)}
	return New(clock, loc), clock
}

func baseTrip() models.Trip {
	return models.Trip{
		ID:             "7",
		PassengerName:  "Ana",
		PassengerPhone: "11987654321",
		DriverName:     "Carlos",
		DriverPhone:    "11912345678",
		Date:           "2025-03-10",
		Time:           "14:00",
		Origin:         "GRU",
		Destination:    "Centro",
	}
}

func totalSends(fired []Fired) int {
	n := 0
	for _, f := range fired {
		n += len(f.Sends)
	}
	return n
}

func TestFirstContactBothTracks(t *testing.T) {
	s, _ := newScheduler(-20 * time.Hour)
	trip := baseTrip()

	fired, err := s.Evaluate(&trip)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(fired) != 2 {
		t.Fatalf("expected both tracks to fire, got %+v", fired)
	}
	if trip.PassengerFlow != models.PassengerRecognition {
		t.Fatalf("passenger flow = %q", trip.PassengerFlow)
	}
	if trip.DriverFlow != models.DriverAwaitingAccept {
		t.Fatalf("driver flow = %q", trip.DriverFlow)
	}
	for _, f := range fired {
		if len(f.Sends) != 2 {
			t.Fatalf("first contact must send two messages, got %d", len(f.Sends))
		}
	}
	if fired[0].Sends[0].To != "11987654321" || fired[1].Sends[0].To != "11912345678" {
		t.Fatalf("first contact must use raw phones, got %q and %q", fired[0].Sends[0].To, fired[1].Sends[0].To)
	}
}

func TestFirstContactOutsideWindow(t *testing.T) {
	s, _ := newScheduler(-25 * time.Hour)
	trip := baseTrip()
	fired, err := s.Evaluate(&trip)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(fired) != 0 || trip.PassengerFlow != models.PassengerUnset {
		t.Fatalf("expected no transition 25h ahead, got %+v", fired)
	}
}

func TestDeclinedPassengerIsNotContacted(t *testing.T) {
	s, _ := newScheduler(-2 * time.Hour)
	trip := baseTrip()
	trip.PassengerConfirmed = models.ConfirmedNo
	trip.DriverPhone = ""

	fired, err := s.Evaluate(&trip)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(fired) != 0 {
		t.Fatalf("expected nothing for declined passenger, got %+v", fired)
	}
}

func TestReminderFiresOnceInWindow(t *testing.T) {
	s, _ := newScheduler(-45 * time.Minute)
	trip := baseTrip()
	trip.DriverPhone = ""
	trip.PassengerFlow = models.PassengerTripConfirmed
	trip.PassengerChatID = "5511987654321@c.us"

	fired, err := s.Evaluate(&trip)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if trip.ReminderLevel != 1 || totalSends(fired) != 1 {
		t.Fatalf("expected level 1 and one send, got level %d sends %d", trip.ReminderLevel, totalSends(fired))
	}
	if fired[0].Sends[0].To != trip.PassengerChatID {
		t.Fatalf("reminder must go to the bound chat id")
	}

	fired, err = s.Evaluate(&trip)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if trip.ReminderLevel != 1 || totalSends(fired) != 0 {
		t.Fatalf("second tick must be a no-op, got level %d sends %d", trip.ReminderLevel, totalSends(fired))
	}
}

func TestReminderRequiresBoundChat(t *testing.T) {
	s, _ := newScheduler(-45 * time.Minute)
	trip := baseTrip()
	trip.DriverPhone = ""
	trip.PassengerFlow = models.PassengerRecognition

	fired, _ := s.Evaluate(&trip)
	if len(fired) != 0 || trip.ReminderLevel != 0 {
		t.Fatalf("reminder must wait for a bound chat, got %+v", fired)
	}
}

func TestReminderLevelMonotonic(t *testing.T) {
	s, clock := newScheduler(-2 * time.Hour)
	trip := baseTrip()
	trip.DriverPhone = ""
	trip.PassengerFlow = models.PassengerTripConfirmed
	trip.PassengerChatID = "p@c.us"

	last := trip.ReminderLevel
	for i := 0; i < 200; i++ {
		fired, err := s.Evaluate(&trip)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		for _, f := range fired {
			if len(f.Sends) > 1 {
				t.Fatalf("more than one reminder in a tick: %+v", f)
			}
		}
		if trip.ReminderLevel < last {
			t.Fatalf("reminder level decreased from %d to %d", last, trip.ReminderLevel)
		}
		last = trip.ReminderLevel
		clock.Advance(time.Minute)
	}
	if last != 3 {
		t.Fatalf("expected final level 3, got %d", last)
	}
}

func TestMissedReminderWindowIsSkipped(t *testing.T) {
	s, _ := newScheduler(-20 * time.Minute)
	trip := baseTrip()
	trip.DriverPhone = ""
	trip.PassengerFlow = models.PassengerTripConfirmed
	trip.PassengerChatID = "p@c.us"

	fired, _ := s.Evaluate(&trip)
	if trip.ReminderLevel != 2 || totalSends(fired) != 1 {
		t.Fatalf("expected jump to level 2 with a single send, got level %d sends %d", trip.ReminderLevel, totalSends(fired))
	}
}

func TestPassengerRatingRequest(t *testing.T) {
	s, _ := newScheduler(25 * time.Hour)
	trip := baseTrip()
	trip.DriverPhone = ""
	trip.PassengerFlow = models.PassengerTripConfirmed
	trip.PassengerChatID = "p@c.us"
	trip.ReminderLevel = 3

	fired, _ := s.Evaluate(&trip)
	if trip.PassengerFlow != models.PassengerRatingPending || trip.RatingStatus != models.RatingSent {
		t.Fatalf("expected rating pending, got %q/%q", trip.PassengerFlow, trip.RatingStatus)
	}
	if totalSends(fired) != 1 {
		t.Fatalf("expected one send, got %d", totalSends(fired))
	}

	fired, _ = s.Evaluate(&trip)
	if totalSends(fired) != 0 {
		t.Fatalf("rating request must be sent once")
	}
}

func TestDriverLadder(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		from   models.DriverState
		km     *float64
		want   models.DriverState
		sends  int
	}{
		{"12h reminder", -6 * time.Hour, models.DriverAccepted, nil, models.DriverReminder12h, 1},
		{"12h too early", -13 * time.Hour, models.DriverAccepted, nil, models.DriverAccepted, 0},
		{"1h from accepted", -30 * time.Minute, models.DriverAccepted, nil, models.DriverReminder1h, 1},
		{"1h from 12h", -30 * time.Minute, models.DriverReminder12h, nil, models.DriverReminder1h, 1},
		{"12h not repeated", -6 * time.Hour, models.DriverReminder12h, nil, models.DriverReminder12h, 0},
		{"distance request", 5 * time.Hour, models.DriverReminder1h, nil, models.DriverRequestDistance, 1},
		{"distance too soon", 3 * time.Hour, models.DriverReminder1h, nil, models.DriverReminder1h, 0},
		{"rating needs distance", 30 * time.Hour, models.DriverReminder1h, nil, models.DriverReminder1h, 0},
		{"rating after completion", 30 * time.Hour, models.DriverCompletionDone, floatPtr(12), models.DriverRatingSent, 1},
		{"awaiting acceptance idle", -6 * time.Hour, models.DriverAwaitingAccept, nil, models.DriverAwaitingAccept, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newScheduler(tt.offset)
			trip := baseTrip()
			trip.PassengerConfirmed = models.ConfirmedNo
			trip.DriverFlow = tt.from
			trip.DriverChatID = "d@c.us"
			trip.DistanceKm = tt.km

			fired, err := s.Evaluate(&trip)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if trip.DriverFlow != tt.want {
				t.Fatalf("driver flow = %q, want %q", trip.DriverFlow, tt.want)
			}
			if got := totalSends(fired); got != tt.sends {
				t.Fatalf("sends = %d, want %d", got, tt.sends)
			}
			if tt.sends > 0 && fired[0].Sends[0].To != "d@c.us" {
				t.Fatalf("driver send must prefer the bound chat id, got %q", fired[0].Sends[0].To)
			}
		})
	}
}

func TestTerminalDriverIgnored(t *testing.T) {
	s, _ := newScheduler(30 * time.Hour)
	trip := baseTrip()
	trip.PassengerConfirmed = models.ConfirmedNo
	trip.DriverFlow = models.DriverRatingAnswered
	trip.DistanceKm = floatPtr(3)

	fired, _ := s.Evaluate(&trip)
	if len(fired) != 0 {
		t.Fatalf("terminal driver track must not fire, got %+v", fired)
	}
}

func TestMalformedSchedule(t *testing.T) {
	s, _ := newScheduler(0)
	trip := baseTrip()
	trip.Time = "amanhã"
	before := trip.Clone()

	_, err := s.Evaluate(&trip)
	if !errors.Is(err, models.ErrMalformedSchedule) {
		t.Fatalf("expected malformed schedule, got %v", err)
	}
	if trip != before {
		t.Fatalf("trip must be untouched")
	}
}

func floatPtr(v float64) *float64 { return &v }
