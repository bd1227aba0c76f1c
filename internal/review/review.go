// Package review keeps a CSV log of transactions that need a manual look
// after a run: shortfalls, unmatched deposits and failed price lookups.
package review

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/costbasis/internal/classify"
	"github.com/cleared-dev/costbasis/internal/model"
)

// Kind classifies a review entry.
type Kind string

const (
	KindNoAvailablePurchase  Kind = "no_available_purchase"
	KindNoMatchingWithdrawal Kind = "no_matching_withdrawal"
	KindPriceError           Kind = "price_error"
)

// Entry is one row in the review log.
type Entry struct {
	RunID     string
	Timestamp time.Time
	Kind      Kind
	Row       int
	Date      string // trade day, YYYY-MM-DD
	Message   string
}

// Header is the CSV header for the review log.
const Header = "run_id,timestamp,kind,row,date,message"

const (
	numFields    = 6
	colRunID     = 0
	colTimestamp = 1
	colKind      = 2
	colRow       = 3
	colDate      = 4
	colMessage   = 5
)

// NewRunID returns a fresh identifier grouping the entries of one run.
func NewRunID() string {
	return uuid.NewString()
}

// FromResult turns the diagnostics of r into entries stamped with runID and now.
func FromResult(runID string, now time.Time, r *classify.Result) []Entry {
	var entries []Entry
	add := func(kind Kind, tx model.Transaction, msg string) {
		entries = append(entries, Entry{
			RunID:     runID,
			Timestamp: now,
			Kind:      kind,
			Row:       tx.Row,
			Date:      tx.DayKey(),
			Message:   msg,
		})
	}
	for _, f := range r.NoAvailablePurchases {
		add(KindNoAvailablePurchase, f.Tx, f.Err.Error())
	}
	for _, tx := range r.NoMatchingWithdrawals {
		add(KindNoMatchingWithdrawal, tx,
			fmt.Sprintf("no matching withdrawal for deposit of %s %s", tx.Buy, tx.CurBuy))
	}
	for _, f := range r.PriceErrors {
		add(KindPriceError, f.Tx, f.Err.Error())
	}
	return entries
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colRunID] = e.RunID
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colKind] = string(e.Kind)
	row[colRow] = strconv.Itoa(e.Row)
	row[colDate] = e.Date
	row[colMessage] = e.Message
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	row, err := strconv.Atoi(record[colRow])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing row %q: %w", record[colRow], err)
	}

	return Entry{
		RunID:     record[colRunID],
		Timestamp: ts,
		Kind:      Kind(record[colKind]),
		Row:       row,
		Date:      record[colDate],
		Message:   record[colMessage],
	}, nil
}

// Append writes entries to the log at path, creating the file and header if needed.
func Append(path string, entries []Entry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating review log dir: %w", err)
		}
	}

	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening review log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries in the log at path.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening review log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading review log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
