// Package identity maps an inbound sender to the trip and track it is talking about.
package identity

import (
	"strings"

	"golang.org/x/exp/slices"

	"tripbot/internal/models"
	"tripbot/internal/tripbot/fsm"
	"tripbot/internal/tripbot/phoneutil"
)

// Tier identifies which resolution rule produced a match.
type Tier int

const (
	TierPassengerBinding Tier = iota + 1
	TierDriverBinding
	TierDriverPhone
	TierPassengerPhone
	TierSharedCode
)

func (t Tier) String() string {
	switch t {
	case TierPassengerBinding:
		return "passenger_binding"
	case TierDriverBinding:
		return "driver_binding"
	case TierDriverPhone:
		return "driver_phone"
	case TierPassengerPhone:
		return "passenger_phone"
	case TierSharedCode:
		return "shared_code"
	}
	return "none"
}

// Match is the outcome of a successful resolution. Bind asks the caller to
// record the sender as the track's chat id if none is bound yet.
type Match struct {
	TripID string
	Track  models.Track
	Tier   Tier
	Bind   bool
}

// Message is one inbound chat message.
type Message struct {
	SenderID string
	Text     string
}

type rule struct {
	tier  Tier
	apply func(msg Message, trips []models.Trip) (Match, bool)
}

// Rules are tried in order; the first match wins.
var rules = []rule{
	{TierPassengerBinding, byPassengerBinding},
	{TierDriverBinding, byDriverBinding},
	{TierDriverPhone, byDriverPhone},
	{TierPassengerPhone, byPassengerPhone},
	{TierSharedCode, bySharedCode},
}

// Resolve finds the trip and track an inbound message belongs to. It never
// mutates trips; ok is false when no tier matches and the message must be dropped.
func Resolve(msg Message, trips []models.Trip) (Match, bool) {
	msg.SenderID = strings.TrimSpace(msg.SenderID)
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.SenderID == "" {
		return Match{}, false
	}
	for _, r := range rules {
		if m, ok := r.apply(msg, trips); ok {
			m.Tier = r.tier
			return m, true
		}
	}
	return Match{}, false
}

func byPassengerBinding(msg Message, trips []models.Trip) (Match, bool) {
	i := slices.IndexFunc(trips, func(t models.Trip) bool {
		return t.PassengerChatID == msg.SenderID && fsm.PassengerAwaitingReply(t.PassengerFlow)
	})
	if i < 0 {
		return Match{}, false
	}
	return Match{TripID: trips[i].ID, Track: models.TrackPassenger}, true
}

func byDriverBinding(msg Message, trips []models.Trip) (Match, bool) {
	i := slices.IndexFunc(trips, func(t models.Trip) bool {
		return t.DriverChatID == msg.SenderID && fsm.DriverAwaitingReply(t.DriverFlow)
	})
	if i < 0 {
		return Match{}, false
	}
	return Match{TripID: trips[i].ID, Track: models.TrackDriver}, true
}

func byDriverPhone(msg Message, trips []models.Trip) (Match, bool) {
	phone, ok := phoneutil.SenderPhone(msg.SenderID)
	if !ok || phone == "" {
		return Match{}, false
	}
	i := slices.IndexFunc(trips, func(t models.Trip) bool {
		return t.DriverChatID == "" &&
			t.DriverFlow == models.DriverAwaitingAccept &&
			phoneutil.Normalize(t.DriverPhone) == phone
	})
	if i < 0 {
		return Match{}, false
	}
	return Match{TripID: trips[i].ID, Track: models.TrackDriver, Bind: true}, true
}

func byPassengerPhone(msg Message, trips []models.Trip) (Match, bool) {
	phone, ok := phoneutil.SenderPhone(msg.SenderID)
	if !ok || phone == "" {
		return Match{}, false
	}
	var found []models.Trip
	for _, t := range trips {
		if t.PassengerChatID == "" &&
			t.PassengerFlow == models.PassengerRecognition &&
			phoneutil.Normalize(t.PassengerPhone) == phone {
			found = append(found, t)
		}
	}
	// ambiguous matches are refused
	if len(found) != 1 {
		return Match{}, false
	}
	return Match{TripID: found[0].ID, Track: models.TrackPassenger}, true
}

// bySharedCode only serves senders whose id carries no phone number. The
// four-digit code can collide across pending trips; the first candidate in
// store order wins.
func bySharedCode(msg Message, trips []models.Trip) (Match, bool) {
	if !phoneutil.IsOpaqueID(msg.SenderID) || msg.Text == "" {
		return Match{}, false
	}
	code := msg.Text
	i := slices.IndexFunc(trips, func(t models.Trip) bool {
		return t.DriverChatID == "" &&
			t.DriverFlow == models.DriverAwaitingAccept &&
			t.HasDriver() &&
			phoneutil.LastFour(t.DriverPhone) == code
	})
	if i >= 0 {
		return Match{TripID: trips[i].ID, Track: models.TrackDriver, Bind: true}, true
	}
	i = slices.IndexFunc(trips, func(t models.Trip) bool {
		return t.PassengerChatID == "" &&
			t.PassengerFlow == models.PassengerRecognition &&
			phoneutil.LastFour(t.PassengerPhone) == code
	})
	if i >= 0 {
		return Match{TripID: trips[i].ID, Track: models.TrackPassenger}, true
	}
	return Match{}, false
}
