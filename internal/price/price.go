// Package price looks up historical USD prices for crypto assets.
package price

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/costbasis/internal/model"
)

// ErrPriceUnavailable means the upstream has no price for the symbol on that day.
var ErrPriceUnavailable = errors.New("price unavailable")

// UpstreamError is any other failure talking to a price source.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("price upstream: %s: %v", e.Message, e.Err)
	}
	return "price upstream: " + e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Provider returns the unit price of from denominated in to on a given day.
// An empty venue selects the provider's default.
type Provider interface {
	Price(ctx context.Context, from, to string, day time.Time, venue string) (decimal.Decimal, error)
}

// Key is the canonical memoization key for a lookup.
func Key(from, to string, day time.Time, venue string) string {
	return fmt.Sprintf("%s|%s|%s|%s", from, to, day.Format(model.DayFormat), venue)
}

// Zero prices everything at zero. It backs the --mock-prices run mode.
type Zero struct{}

// Price implements Provider.
func (Zero) Price(context.Context, string, string, time.Time, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// Static serves fixed prices and counts lookups. Prices registered with an
// empty venue match any venue.
type Static struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  int
}

// NewStatic creates an empty Static provider.
func NewStatic() *Static {
	return &Static{
		prices: make(map[string]decimal.Decimal),
		errs:   make(map[string]error),
	}
}

// Set registers a price.
func (s *Static) Set(from, to string, day time.Time, venue string, p decimal.Decimal) *Static {
	s.prices[Key(from, to, day, venue)] = p
	return s
}

// SetError makes a lookup fail with err.
func (s *Static) SetError(from, to string, day time.Time, venue string, err error) *Static {
	s.errs[Key(from, to, day, venue)] = err
	return s
}

// Calls returns how many lookups were made.
func (s *Static) Calls() int { return s.calls }

// Price implements Provider.
func (s *Static) Price(_ context.Context, from, to string, day time.Time, venue string) (decimal.Decimal, error) {
	s.calls++
	for _, k := range []string{Key(from, to, day, venue), Key(from, to, day, "")} {
		if err, ok := s.errs[k]; ok {
			return decimal.Zero, err
		}
		if p, ok := s.prices[k]; ok {
			return p, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrPriceUnavailable, from, day.Format(model.DayFormat))
}
