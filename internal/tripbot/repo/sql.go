package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tripbot/internal/models"
)

// SQLStore keeps trips in a "trips" table on MySQL or PostgreSQL. All value
// columns are text so the stored vocabulary matches the spreadsheet.
type SQLStore struct {
	db       *sql.DB
	postgres bool
	logger   Logger
}

// NewSQLStore wraps db. driver is the database/sql driver name ("mysql" or "pgx").
func NewSQLStore(db *sql.DB, driver string, logger Logger) *SQLStore {
	return &SQLStore{db: db, postgres: driver == "pgx" || driver == "postgres", logger: logger}
}

func selectColumns() string {
	cols := make([]string, 0, len(fields)+1)
	cols = append(cols, "id")
	for _, f := range fields {
		cols = append(cols, f.column)
	}
	return strings.Join(cols, ", ")
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrip(sc rowScanner) (string, record, error) {
	var id int64
	vals := make([]sql.NullString, len(fields))
	dest := make([]interface{}, 0, len(fields)+1)
	dest = append(dest, &id)
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := sc.Scan(dest...); err != nil {
		return "", nil, err
	}
	rec := make(record, len(fields))
	for i, f := range fields {
		rec[f.name] = vals[i].String
	}
	return strconv.FormatInt(id, 10), rec, nil
}

// LoadAll returns every decodable trip ordered by id.
func (s *SQLStore) LoadAll(ctx context.Context) ([]models.Trip, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns()+" FROM trips ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		id, rec, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		trip, err := decodeTrip(id, rec)
		if err != nil {
			if s.logger != nil {
				s.logger.Errorf("sql: skip trip %s: %v", id, err)
			}
			continue
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return trips, nil
}

// Get loads one trip by id.
func (s *SQLStore) Get(ctx context.Context, id string) (models.Trip, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return models.Trip{}, fmt.Errorf("%w: %q", models.ErrTripNotFound, id)
	}
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+selectColumns()+" FROM trips WHERE id = ?"), n)
	rid, rec, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Trip{}, fmt.Errorf("%w: %q", models.ErrTripNotFound, id)
	}
	if err != nil {
		return models.Trip{}, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return decodeTrip(rid, rec)
}

// Save updates the mutable columns of t.
func (s *SQLStore) Save(ctx context.Context, t models.Trip) error {
	n, err := strconv.ParseInt(t.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid id %q", models.ErrStoreWrite, t.ID)
	}
	rec := encodeTrip(t)
	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for _, f := range fields {
		if !f.mutable {
			continue
		}
		sets = append(sets, f.column+" = ?")
		args = append(args, rec[f.name])
	}
	args = append(args, n)

	query := s.rebind("UPDATE trips SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: trip %s: %v", models.ErrStoreWrite, t.ID, err)
	}
	return nil
}

// Append inserts d and returns the new id.
func (s *SQLStore) Append(ctx context.Context, d models.TripDraft) (string, error) {
	rec := encodeDraft(d)
	cols := make([]string, 0, len(fields))
	marks := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, f.column)
		marks = append(marks, "?")
		args = append(args, rec[f.name])
	}
	query := "INSERT INTO trips (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

	if s.postgres {
		var id int64
		if err := s.db.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return "", fmt.Errorf("%w: insert: %v", models.ErrStoreWrite, err)
		}
		return strconv.FormatInt(id, 10), nil
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("%w: insert: %v", models.ErrStoreWrite, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%w: insert id: %v", models.ErrStoreWrite, err)
	}
	return strconv.FormatInt(id, 10), nil
}

// EnsureSchema creates the trips table when it does not exist yet.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	idCol := "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	textType := "VARCHAR(255)"
	if s.postgres {
		idCol = "id BIGSERIAL PRIMARY KEY"
	}
	cols := []string{idCol}
	for _, f := range fields {
		typ := textType
		if f.name == fDriverNote {
			typ = "TEXT"
		}
		cols = append(cols, f.column+" "+typ+" NULL")
	}
	query := "CREATE TABLE IF NOT EXISTS trips (" + strings.Join(cols, ", ") + ")"
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create trips table: %w", err)
	}
	return nil
}
