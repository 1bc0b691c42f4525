// Package repo implements the trip record stores.
package repo

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"tripbot/internal/models"
)

// Logger is the minimal logger stores report rejected rows to.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// field is one persisted Trip attribute. header is the spreadsheet column
// title and column the SQL column name. Mutable fields are written by Save.
type field struct {
	name    string
	header  string
	column  string
	mutable bool
}

const (
	fName               = "name"
	fPhone              = "phone"
	fPassengerChatID    = "passenger_chat_id"
	fDriverName         = "driver_name"
	fDriverPhone        = "driver_phone"
	fDriverChatID       = "driver_chat_id"
	fDate               = "date"
	fTime               = "time"
	fOrigin             = "origin"
	fDestination        = "destination"
	fPassengerConfirmed = "passenger_confirmed"
	fPassengerFlow      = "passenger_flow"
	fReminderLevel      = "reminder_level"
	fRatingStatus       = "rating_status"
	fPassengerRating    = "passenger_rating"
	fDriverFlow         = "driver_flow"
	fPassengerCount     = "passenger_count"
	fLuggage            = "luggage"
	fDistanceKm         = "distance_km"
	fFinalFare          = "final_fare"
	fDurationMinutes    = "duration_minutes"
	fDriverNote         = "driver_note"
	fDriverRating       = "driver_rating"
	fLastInteractionAt  = "last_interaction_at"
)

var fields = []field{
	{fName, "Nome", "name", false},
	{fPhone, "Telefone", "phone", false},
	{fPassengerChatID, "LID", "passenger_chat_id", true},
	{fDriverName, "Motorista", "driver_name", false},
	{fDriverPhone, "TelefoneMotorista", "driver_phone", false},
	{fDriverChatID, "LIDMotorista", "driver_chat_id", true},
	{fDate, "Data", "trip_date", false},
	{fTime, "Hora", "trip_time", false},
	{fOrigin, "Origem", "origin", false},
	{fDestination, "Destino", "destination", false},
	{fPassengerConfirmed, "StatusPassageiroConfirmado", "passenger_confirmed", true},
	{fPassengerFlow, "FluxoPassageiro", "passenger_flow", true},
	{fReminderLevel, "StatusLembrete", "reminder_level", true},
	{fRatingStatus, "StatusAvaliacao", "rating_status", true},
	{fPassengerRating, "Avaliacao", "passenger_rating", true},
	{fDriverFlow, "FluxoMotorista", "driver_flow", true},
	{fPassengerCount, "Passageiros", "passenger_count", true},
	{fLuggage, "Malas", "luggage", true},
	{fDistanceKm, "KmPercorrida", "distance_km", true},
	{fFinalFare, "ValorFinal", "final_fare", true},
	{fDurationMinutes, "TempoDuracao", "duration_minutes", true},
	{fDriverNote, "Justificativa", "driver_note", true},
	{fDriverRating, "AvaliacaoMotorista", "driver_rating", true},
	{fLastInteractionAt, "DataUltimaInteracao", "last_interaction_at", true},
}

// record is a Trip flattened to strings keyed by field name.
type record map[string]string

func formatDecimal(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func encodeTrip(t models.Trip) record {
	r := record{
		fName:               t.PassengerName,
		fPhone:              t.PassengerPhone,
		fPassengerChatID:    t.PassengerChatID,
		fDriverName:         t.DriverName,
		fDriverPhone:        t.DriverPhone,
		fDriverChatID:       t.DriverChatID,
		fDate:               t.Date,
		fTime:               t.Time,
		fOrigin:             t.Origin,
		fDestination:        t.Destination,
		fPassengerConfirmed: string(t.PassengerConfirmed),
		fPassengerFlow:      string(t.PassengerFlow),
		fReminderLevel:      strconv.Itoa(t.ReminderLevel),
		fRatingStatus:       string(t.RatingStatus),
		fPassengerRating:    formatInt(t.PassengerRating),
		fDriverFlow:         string(t.DriverFlow),
		fPassengerCount:     t.PassengerCount,
		fLuggage:            t.Luggage,
		fDistanceKm:         formatDecimal(t.DistanceKm),
		fFinalFare:          formatDecimal(t.FinalFare),
		fDriverNote:         t.DriverNote,
		fDriverRating:       formatInt(t.DriverRating),
	}
	if t.DurationMinutes != nil {
		r[fDurationMinutes] = strconv.Itoa(*t.DurationMinutes)
	} else {
		r[fDurationMinutes] = ""
	}
	if t.LastInteractionAt != nil {
		r[fLastInteractionAt] = t.LastInteractionAt.Format(time.RFC3339)
	} else {
		r[fLastInteractionAt] = ""
	}
	return r
}

func encodeDraft(d models.TripDraft) record {
	t := d.Trip()
	r := encodeTrip(t)
	r[fReminderLevel] = "0"
	return r
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "02/01/2006 15:04:05"}

// decodeTrip parses a stored row. Unknown enum values and unparsable numbers
// are rejected with a RecordError rather than passed through.
func decodeTrip(id string, r record) (models.Trip, error) {
	get := func(name string) string { return strings.TrimSpace(r[name]) }
	bad := func(name string, err error) error {
		return models.RecordError{Row: id, Field: name, Value: r[name], Err: err}
	}

	t := models.Trip{
		ID:              id,
		PassengerName:   get(fName),
		PassengerPhone:  get(fPhone),
		PassengerChatID: get(fPassengerChatID),
		DriverName:      get(fDriverName),
		DriverPhone:     get(fDriverPhone),
		DriverChatID:    get(fDriverChatID),
		Date:            get(fDate),
		Time:            get(fTime),
		Origin:          get(fOrigin),
		Destination:     get(fDestination),
		PassengerCount:  get(fPassengerCount),
		Luggage:         get(fLuggage),
		DriverNote:      get(fDriverNote),
	}

	var err error
	if t.PassengerConfirmed, err = models.ParseConfirmedFlag(get(fPassengerConfirmed)); err != nil {
		return models.Trip{}, bad(fPassengerConfirmed, err)
	}
	if t.PassengerFlow, err = models.ParsePassengerState(get(fPassengerFlow)); err != nil {
		return models.Trip{}, bad(fPassengerFlow, err)
	}
	if t.DriverFlow, err = models.ParseDriverState(get(fDriverFlow)); err != nil {
		return models.Trip{}, bad(fDriverFlow, err)
	}
	if t.RatingStatus, err = models.ParseRatingStatus(get(fRatingStatus)); err != nil {
		return models.Trip{}, bad(fRatingStatus, err)
	}
	if t.ReminderLevel, err = parseOptionalInt(get(fReminderLevel)); err != nil {
		return models.Trip{}, bad(fReminderLevel, err)
	}
	if t.ReminderLevel < 0 || t.ReminderLevel > 3 {
		return models.Trip{}, bad(fReminderLevel, errors.New("out of range"))
	}
	if t.PassengerRating, err = parseOptionalInt(get(fPassengerRating)); err != nil {
		return models.Trip{}, bad(fPassengerRating, err)
	}
	if t.DriverRating, err = parseOptionalInt(get(fDriverRating)); err != nil {
		return models.Trip{}, bad(fDriverRating, err)
	}
	if t.DistanceKm, err = parseOptionalDecimal(get(fDistanceKm)); err != nil {
		return models.Trip{}, bad(fDistanceKm, err)
	}
	if t.FinalFare, err = parseOptionalDecimal(get(fFinalFare)); err != nil {
		return models.Trip{}, bad(fFinalFare, err)
	}
	if v := get(fDurationMinutes); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.Trip{}, bad(fDurationMinutes, err)
		}
		t.DurationMinutes = &n
	}
	if v := get(fLastInteractionAt); v != "" {
		ts, err := parseTimestamp(v)
		if err != nil {
			return models.Trip{}, bad(fLastInteractionAt, err)
		}
		t.LastInteractionAt = &ts
	}
	return t, nil
}

func parseOptionalInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func parseOptionalDecimal(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp")
}

func fieldByHeader(header string) (field, bool) {
	header = strings.TrimSpace(header)
	for _, f := range fields {
		if strings.EqualFold(f.header, header) {
			return f, true
		}
	}
	return field{}, false
}
