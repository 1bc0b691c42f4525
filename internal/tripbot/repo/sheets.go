package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tripbot/internal/models"
)

// DefaultTab is the worksheet trips live in.
const DefaultTab = "viagens"

// SheetsStore keeps trips as rows of a Google Sheets worksheet. A trip's id
// is its 1-based row number; row 1 holds the column headers.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	tab           string
	logger        Logger
}

// NewSheetsService builds a Sheets client from a service account file.
// Extra options are appended, so tests can point it at a fake endpoint.
func NewSheetsService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*sheets.Service, error) {
	base := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		base = append(base, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return svc, nil
}

// NewSheetsStore wraps svc for one spreadsheet tab.
func NewSheetsStore(svc *sheets.Service, spreadsheetID, tab string, logger Logger) *SheetsStore {
	if tab == "" {
		tab = DefaultTab
	}
	return &SheetsStore{svc: svc, spreadsheetID: spreadsheetID, tab: tab, logger: logger}
}

func (s *SheetsStore) rangeOf(a1 string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(s.tab, "'", "''"), a1)
}

// LoadAll returns every decodable trip row. Rows with invalid values are
// logged and left out of the snapshot.
func (s *SheetsStore) LoadAll(ctx context.Context) ([]models.Trip, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:ZZ")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	header := headerIndex(resp.Values[0])

	trips := make([]models.Trip, 0, len(resp.Values)-1)
	for i, row := range resp.Values[1:] {
		if blankRow(row) {
			continue
		}
		id := strconv.Itoa(i + 2)
		trip, err := decodeTrip(id, rowRecord(header, row))
		if err != nil {
			s.logf("sheets: skip row %s: %v", id, err)
			continue
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

// Get re-reads a single row.
func (s *SheetsStore) Get(ctx context.Context, id string) (models.Trip, error) {
	row, err := strconv.Atoi(id)
	if err != nil || row < 2 {
		return models.Trip{}, fmt.Errorf("%w: %q", models.ErrTripNotFound, id)
	}
	resp, err := s.svc.Spreadsheets.Values.BatchGet(s.spreadsheetID).
		Ranges(s.rangeOf("1:1"), s.rangeOf(fmt.Sprintf("%d:%d", row, row))).
		Context(ctx).Do()
	if err != nil {
		return models.Trip{}, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if len(resp.ValueRanges) != 2 || len(resp.ValueRanges[0].Values) == 0 {
		return models.Trip{}, fmt.Errorf("%w: sheet has no header", models.ErrStoreUnavailable)
	}
	values := resp.ValueRanges[1].Values
	if len(values) == 0 || blankRow(values[0]) {
		return models.Trip{}, fmt.Errorf("%w: %q", models.ErrTripNotFound, id)
	}
	return decodeTrip(id, rowRecord(headerIndex(resp.ValueRanges[0].Values[0]), values[0]))
}

// Save writes the mutable cells of t's row one by one, leaving every other
// column untouched.
func (s *SheetsStore) Save(ctx context.Context, t models.Trip) error {
	row, err := strconv.Atoi(t.ID)
	if err != nil || row < 2 {
		return fmt.Errorf("%w: invalid row id %q", models.ErrStoreWrite, t.ID)
	}
	header, err := s.header(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}

	rec := encodeTrip(t)
	data := make([]*sheets.ValueRange, 0, len(fields))
	for _, f := range fields {
		if !f.mutable {
			continue
		}
		col, ok := header[f.name]
		if !ok {
			return fmt.Errorf("%w: sheet has no %q column", models.ErrStoreWrite, f.header)
		}
		data = append(data, &sheets.ValueRange{
			Range:  s.rangeOf(fmt.Sprintf("%s%d", columnName(col), row)),
			Values: [][]interface{}{{rec[f.name]}},
		})
	}

	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: row %s: %v", models.ErrStoreWrite, t.ID, err)
	}
	return nil
}

// Append adds a new row for d and returns its id.
func (s *SheetsStore) Append(ctx context.Context, d models.TripDraft) (string, error) {
	header, err := s.header(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}
	width := 0
	for _, col := range header {
		if col+1 > width {
			width = col + 1
		}
	}
	rec := encodeDraft(d)
	row := make([]interface{}, width)
	for i := range row {
		row[i] = ""
	}
	for name, col := range header {
		row[col] = rec[name]
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: append: %v", models.ErrStoreWrite, err)
	}
	if resp.Updates == nil {
		return "", nil
	}
	return rowFromRange(resp.Updates.UpdatedRange), nil
}

// header maps field names to zero-based column indexes.
func (s *SheetsStore) header(ctx context.Context) (map[string]int, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("1:1")).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return nil, errors.New("sheet has no header row")
	}
	return headerIndex(resp.Values[0]), nil
}

func (s *SheetsStore) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, args...)
	}
}

func headerIndex(row []interface{}) map[string]int {
	idx := make(map[string]int, len(row))
	for i, cell := range row {
		if f, ok := fieldByHeader(fmt.Sprint(cell)); ok {
			if _, dup := idx[f.name]; !dup {
				idx[f.name] = i
			}
		}
	}
	return idx
}

func rowRecord(header map[string]int, row []interface{}) record {
	rec := make(record, len(header))
	for name, col := range header {
		if col < len(row) && row[col] != nil {
			rec[name] = fmt.Sprint(row[col])
		}
	}
	return rec
}

func blankRow(row []interface{}) bool {
	for _, cell := range row {
		if cell != nil && strings.TrimSpace(fmt.Sprint(cell)) != "" {
			return false
		}
	}
	return true
}

// columnName converts a zero-based index to A1 column letters.
func columnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

// rowFromRange extracts the first row number from "'viagens'!A7:X7".
func rowFromRange(a1 string) string {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	return strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
}
