package repo

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"tripbot/internal/models"
)

type testLogger struct {
	errors int
}

func (l *testLogger) Infof(string, ...interface{})  {}
func (l *testLogger) Errorf(string, ...interface{}) { l.errors++ }

func tripColumns() []string {
	cols := []string{"id"}
	for _, f := range fields {
		cols = append(cols, f.column)
	}
	return cols
}

func tripRow(id int64, rec record) []driver.Value {
	vals := []driver.Value{id}
	for _, f := range fields {
		if v := rec[f.name]; v != "" {
			vals = append(vals, v)
		} else {
			vals = append(vals, nil)
		}
	}
	return vals
}

func TestSQLStoreLoadAllSkipsMalformedRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	good := encodeTrip(fullTrip())
	bad := encodeTrip(fullTrip())
	bad[fDriverFlow] = "desconhecido"

	mock.ExpectQuery(`SELECT id, name, phone, .* FROM trips ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(tripRow(1, good)...).
			AddRow(tripRow(2, bad)...))

	logger := &testLogger{}
	store := NewSQLStore(db, "mysql", logger)
	trips, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(trips) != 1 || trips[0].ID != "1" {
		t.Fatalf("expected only trip 1, got %+v", trips)
	}
	if logger.errors != 1 {
		t.Fatalf("expected the malformed row to be logged")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSQLStoreLoadAllUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery(`SELECT .* FROM trips`).WillReturnError(errors.New("connection refused"))

	_, err = NewSQLStore(db, "mysql", nil).LoadAll(context.Background())
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestSQLStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery(`SELECT .* FROM trips WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(tripColumns()))

	_, err = NewSQLStore(db, "pgx", nil).Get(context.Background(), "42")
	if !errors.Is(err, models.ErrTripNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSQLStoreSaveRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	trip := fullTrip()
	trip.ID = "9"
	rec := encodeTrip(trip)

	var args []driver.Value
	for _, f := range fields {
		if f.mutable {
			args = append(args, rec[f.name])
		}
	}
	args = append(args, int64(9))

	mock.ExpectExec(`UPDATE trips SET passenger_chat_id = \?, driver_chat_id = \?, .* WHERE id = \?`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM trips WHERE id = \?`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(tripColumns()).AddRow(tripRow(9, rec)...))

	store := NewSQLStore(db, "mysql", nil)
	if err := store.Save(context.Background(), trip); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(context.Background(), "9")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertTripsEqual(t, trip, got)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSQLStoreSaveFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectExec(`UPDATE trips`).WillReturnError(errors.New("deadlock"))

	err = NewSQLStore(db, "mysql", nil).Save(context.Background(), fullTrip())
	if !errors.Is(err, models.ErrStoreWrite) {
		t.Fatalf("expected store write error, got %v", err)
	}
}

func TestSQLStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO trips \(name, phone, .*\) VALUES \(\?, .*\)`).
		WillReturnResult(sqlmock.NewResult(17, 1))
	mock.ExpectQuery(`INSERT INTO trips .* VALUES \(\$1, .*\$24\) RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(18)))

	draft := models.TripDraft{PassengerName: "Ana", PassengerPhone: "11987654321", Date: "2025-03-10", Time: "14:00"}
	id, err := NewSQLStore(db, "mysql", nil).Append(context.Background(), draft)
	if err != nil || id != "17" {
		t.Fatalf("mysql append: id=%q err=%v", id, err)
	}
	id, err = NewSQLStore(db, "pgx", nil).Append(context.Background(), draft)
	if err != nil || id != "18" {
		t.Fatalf("postgres append: id=%q err=%v", id, err)
	}
}
