package models

import (
	"fmt"
	"strings"
	"time"
)

// PassengerState is the passenger-facing flow state of a trip.
type PassengerState string

// Passenger flow states. Values are stored verbatim in the record store.
const (
	PassengerUnset         PassengerState = ""
	PassengerRecognition   PassengerState = "reconhecimento"
	PassengerCount         PassengerState = "passageiros"
	PassengerLuggage       PassengerState = "malas"
	PassengerTripConfirmed PassengerState = "viagem"
	PassengerRatingPending PassengerState = "avaliacao"
	PassengerFinalized     PassengerState = "finalizado"
)

// DriverState is the driver-facing flow state of a trip.
type DriverState string

// Driver flow states. Values are stored verbatim in the record store.
const (
	DriverUnset           DriverState = ""
	DriverAwaitingAccept  DriverState = "aguardando_aceite_24h"
	DriverAccepted        DriverState = "aceito"
	DriverReminder12h     DriverState = "lembrete_12h"
	DriverReminder1h      DriverState = "lembrete_1h"
	DriverRequestDistance DriverState = "solicitar_km"
	DriverRequestFare     DriverState = "solicitar_valor"
	DriverRequestDuration DriverState = "solicitar_tempo"
	DriverRequestNote     DriverState = "solicitar_justificativa"
	DriverCompletionDone  DriverState = "info_viagem_concluida"
	DriverRatingSent      DriverState = "avaliacao_enviada"
	DriverRatingAnswered  DriverState = "avaliacao_respondida"
	DriverUnavailable     DriverState = "indisponivel"
)

// RatingStatus tracks the passenger rating request.
type RatingStatus string

const (
	RatingUnset    RatingStatus = ""
	RatingSent     RatingStatus = "enviado"
	RatingAnswered RatingStatus = "respondido"
)

// ConfirmedFlag is the tri-state passenger confirmation column.
type ConfirmedFlag string

const (
	ConfirmedUnset ConfirmedFlag = ""
	ConfirmedYes   ConfirmedFlag = "true"
	ConfirmedNo    ConfirmedFlag = "nao"
)

// Track names one of the two per-trip state machines.
type Track string

const (
	TrackPassenger Track = "passenger"
	TrackDriver    Track = "driver"
)

var passengerStates = []PassengerState{
	PassengerUnset, PassengerRecognition, PassengerCount, PassengerLuggage,
	PassengerTripConfirmed, PassengerRatingPending, PassengerFinalized,
}

var driverStates = []DriverState{
	DriverUnset, DriverAwaitingAccept, DriverAccepted, DriverReminder12h, DriverReminder1h,
	DriverRequestDistance, DriverRequestFare, DriverRequestDuration, DriverRequestNote,
	DriverCompletionDone, DriverRatingSent, DriverRatingAnswered, DriverUnavailable,
}

// ParsePassengerState validates a stored passenger flow value.
func ParsePassengerState(v string) (PassengerState, error) {
	v = strings.TrimSpace(v)
	for _, s := range passengerStates {
		if string(s) == v {
			return s, nil
		}
	}
	return PassengerUnset, fmt.Errorf("unknown passenger state %q", v)
}

// ParseDriverState validates a stored driver flow value.
func ParseDriverState(v string) (DriverState, error) {
	v = strings.TrimSpace(v)
	for _, s := range driverStates {
		if string(s) == v {
			return s, nil
		}
	}
	return DriverUnset, fmt.Errorf("unknown driver state %q", v)
}

// ParseRatingStatus validates a stored rating status value.
func ParseRatingStatus(v string) (RatingStatus, error) {
	switch RatingStatus(strings.TrimSpace(v)) {
	case RatingUnset:
		return RatingUnset, nil
	case RatingSent:
		return RatingSent, nil
	case RatingAnswered:
		return RatingAnswered, nil
	}
	return RatingUnset, fmt.Errorf("unknown rating status %q", v)
}

// ParseConfirmedFlag accepts the spellings operators type into the sheet.
func ParseConfirmedFlag(v string) (ConfirmedFlag, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false":
		return ConfirmedUnset, nil
	case "true":
		return ConfirmedYes, nil
	case "nao", "não", "no":
		return ConfirmedNo, nil
	}
	return ConfirmedUnset, fmt.Errorf("unknown confirmation flag %q", v)
}

// Trip is one scheduled transport job with a passenger track and a driver track.
type Trip struct {
	ID string `json:"id"`

	PassengerName   string `json:"passenger_name"`
	PassengerPhone  string `json:"passenger_phone"`
	PassengerChatID string `json:"passenger_chat_id,omitempty"`

	DriverName   string `json:"driver_name,omitempty"`
	DriverPhone  string `json:"driver_phone,omitempty"`
	DriverChatID string `json:"driver_chat_id,omitempty"`

	// Date is YYYY-MM-DD and Time is HH:MM, both in the operator's time zone.
	Date        string `json:"date"`
	Time        string `json:"time"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	PassengerConfirmed ConfirmedFlag  `json:"passenger_confirmed,omitempty"`
	PassengerFlow      PassengerState `json:"passenger_flow,omitempty"`
	ReminderLevel      int            `json:"reminder_level"`
	RatingStatus       RatingStatus   `json:"rating_status,omitempty"`
	PassengerRating    int            `json:"passenger_rating,omitempty"`

	DriverFlow DriverState `json:"driver_flow,omitempty"`

	PassengerCount string `json:"passenger_count,omitempty"`
	Luggage        string `json:"luggage,omitempty"`

	DistanceKm      *float64 `json:"distance_km,omitempty"`
	FinalFare       *float64 `json:"final_fare,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	DriverNote      string   `json:"driver_note,omitempty"`
	DriverRating    int      `json:"driver_rating,omitempty"`

	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
}

// Clone returns a deep copy so a snapshot can be mutated without aliasing.
func (t Trip) Clone() Trip {
	c := t
	if t.DistanceKm != nil {
		v := *t.DistanceKm
		c.DistanceKm = &v
	}
	if t.FinalFare != nil {
		v := *t.FinalFare
		c.FinalFare = &v
	}
	if t.DurationMinutes != nil {
		v := *t.DurationMinutes
		c.DurationMinutes = &v
	}
	if t.LastInteractionAt != nil {
		v := *t.LastInteractionAt
		c.LastInteractionAt = &v
	}
	return c
}

// HasDriver reports whether a driver phone has been assigned.
func (t Trip) HasDriver() bool {
	return strings.TrimSpace(t.DriverPhone) != ""
}

// TripDraft is the payload for creating a new trip row.
type TripDraft struct {
	PassengerName  string `json:"passenger_name"`
	PassengerPhone string `json:"passenger_phone"`
	DriverName     string `json:"driver_name"`
	DriverPhone    string `json:"driver_phone"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
}

// Validate checks the fields every trip row needs.
func (d TripDraft) Validate() error {
	switch {
	case strings.TrimSpace(d.PassengerName) == "":
		return fmt.Errorf("passenger_name is required")
	case strings.TrimSpace(d.PassengerPhone) == "":
		return fmt.Errorf("passenger_phone is required")
	case strings.TrimSpace(d.Date) == "":
		return fmt.Errorf("date is required")
	case strings.TrimSpace(d.Time) == "":
		return fmt.Errorf("time is required")
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(d.Date)); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(d.Time)); err != nil {
		return fmt.Errorf("time must be HH:MM")
	}
	return nil
}

// Trip converts the draft into an unsaved trip with empty flow state.
func (d TripDraft) Trip() Trip {
	return Trip{
		PassengerName:  strings.TrimSpace(d.PassengerName),
		PassengerPhone: strings.TrimSpace(d.PassengerPhone),
		DriverName:     strings.TrimSpace(d.DriverName),
		DriverPhone:    strings.TrimSpace(d.DriverPhone),
		Date:           strings.TrimSpace(d.Date),
		Time:           strings.TrimSpace(d.Time),
		Origin:         strings.TrimSpace(d.Origin),
		Destination:    strings.TrimSpace(d.Destination),
	}
}
