package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eventseat/ticketing/internal/auth"
	"github.com/eventseat/ticketing/internal/domain"
	"github.com/sirupsen/logrus"
)

// SeatUpserter writes imported seats keyed by (event, section, row, number).
type SeatUpserter interface {
	EventExists(ctx context.Context, eventID string) (bool, error)
	UpsertSeatByNaturalKey(ctx context.Context, seat domain.Seat) (string, error)
}

// ImportService ingests seat inventory from CSV uploads. Uploads are
// idempotent on (key, file contents): replaying the same file under the
// same key returns the original report without touching the database.
type ImportService struct {
	seats SeatUpserter
	keys  IdempotencyStore
	log   *logrus.Logger
}

func NewImportService(seats SeatUpserter, keys IdempotencyStore, log *logrus.Logger) *ImportService {
	return &ImportService{seats: seats, keys: keys, log: log}
}

type ImportInput struct {
	Key      string
	EventID  string
	Filename string
	Body     []byte
}

type ImportRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportReport struct {
	EventID  string           `json:"event_id"`
	Total    int              `json:"total"`
	Imported int              `json:"imported"`
	Errors   []ImportRowError `json:"errors,omitempty"`
	Replayed bool             `json:"-"`
}

// Expected CSV columns, header row optional.
const importColumns = 5

// Import parses the upload and upserts one seat per row. Row failures are
// collected into the report instead of aborting the file: a partially bad
// file still imports its good rows, and the report says which lines failed.
func (s *ImportService) Import(ctx context.Context, p auth.Principal, in ImportInput) (ImportReport, error) {
	if !p.IsAdmin() {
		return ImportReport{}, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Key) == "" {
		return ImportReport{}, domain.ErrIdempotencyKeyRequired
	}

	exists, err := s.seats.EventExists(ctx, in.EventID)
	if err != nil {
		return ImportReport{}, err
	}
	if !exists {
		return ImportReport{}, domain.ErrEventNotFound
	}

	hash := importFingerprint(in.Filename, in.EventID, in.Body)
	inserted, err := s.keys.TryInsert(ctx, in.Key, hash)
	if err != nil {
		return ImportReport{}, err
	}
	if !inserted {
		return s.replay(ctx, in.Key, hash)
	}

	report := s.run(ctx, in)

	body, err := json.Marshal(report)
	if err != nil {
		return ImportReport{}, fmt.Errorf("encode import report: %w", err)
	}
	if err := s.keys.StoreResponse(ctx, in.Key, in.EventID, string(body)); err != nil {
		return ImportReport{}, err
	}
	s.log.WithFields(logrus.Fields{
		"event_id": in.EventID,
		"total":    report.Total,
		"imported": report.Imported,
		"failed":   len(report.Errors),
	}).Info("inventory import complete")
	return report, nil
}

func (s *ImportService) replay(ctx context.Context, key, hash string) (ImportReport, error) {
	rec, err := s.keys.FindByKey(ctx, key)
	if err != nil {
		return ImportReport{}, err
	}
	if rec == nil {
		return ImportReport{}, domain.ErrIdempotencyInFlight
	}
	if rec.RequestHash != hash {
		return ImportReport{}, domain.ErrIdempotencyReused
	}
	if rec.ResponseJSON == "" {
		return ImportReport{}, domain.ErrIdempotencyInFlight
	}

	var report ImportReport
	if err := json.Unmarshal([]byte(rec.ResponseJSON), &report); err != nil {
		return ImportReport{}, fmt.Errorf("decode cached import report: %w", err)
	}
	report.Replayed = true
	return report, nil
}

func (s *ImportService) run(ctx context.Context, in ImportInput) ImportReport {
	report := ImportReport{EventID: in.EventID}

	reader := csv.NewReader(strings.NewReader(string(in.Body)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Total++
			report.Errors = append(report.Errors, ImportRowError{Line: line, Message: err.Error()})
			continue
		}
		if line == 1 && isHeaderRow(record) {
			continue
		}
		report.Total++

		seat, err := parseSeatRow(in.EventID, record)
		if err != nil {
			report.Errors = append(report.Errors, ImportRowError{Line: line, Message: err.Error()})
			continue
		}
		if _, err := s.seats.UpsertSeatByNaturalKey(ctx, seat); err != nil {
			report.Errors = append(report.Errors, ImportRowError{Line: line, Message: err.Error()})
			continue
		}
		report.Imported++
	}
	return report
}

func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "section")
}

func parseSeatRow(eventID string, record []string) (domain.Seat, error) {
	if len(record) != importColumns {
		return domain.Seat{}, fmt.Errorf("expected %d columns, got %d", importColumns, len(record))
	}
	section := strings.TrimSpace(record[0])
	rowLabel := strings.TrimSpace(record[1])
	seatNumber := strings.TrimSpace(record[2])
	if section == "" || rowLabel == "" || seatNumber == "" {
		return domain.Seat{}, fmt.Errorf("section, row and seat number are required")
	}
	cents, err := parsePriceCents(record[3])
	if err != nil {
		return domain.Seat{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(record[4]))
	if len(currency) != 3 {
		return domain.Seat{}, fmt.Errorf("invalid currency %q", record[4])
	}

	return domain.Seat{
		EventID:        eventID,
		Section:        section,
		RowLabel:       rowLabel,
		SeatNumber:     seatNumber,
		BasePriceCents: cents,
		Currency:       currency,
	}, nil
}

// parsePriceCents converts a decimal price like "12.50" to cents without
// going through floating point.
func parsePriceCents(raw string) (int64, error) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "-") {
		return 0, fmt.Errorf("invalid price %q", raw)
	}

	whole, frac, _ := strings.Cut(text, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", raw)
	}

	var cents int64
	switch len(frac) {
	case 0:
	case 1:
		frac += "0"
		fallthrough
	case 2:
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid price %q", raw)
		}
	default:
		return 0, fmt.Errorf("invalid price %q: more than two decimal places", raw)
	}
	return units*100 + cents, nil
}
