package portfolio

import "fmt"

// ValidationError reports malformed input (empty symbol, non-positive
// shares). Caller's fault, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// InsufficientSharesError reports a sell request that exceeds the shares
// currently owned.
type InsufficientSharesError struct {
	Symbol    string
	Requested int
	Owned     int
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("not enough shares to sell: you own %d shares of %s", e.Owned, e.Symbol)
}

// PriceUnavailableError reports that the price oracle could not resolve a
// current price for a symbol. May be a bad symbol or an upstream outage; the
// engine does not distinguish the two and does not retry.
type PriceUnavailableError struct {
	Symbol string
	Err    error
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("could not fetch price for symbol %s: %v", e.Symbol, e.Err)
}

func (e *PriceUnavailableError) Unwrap() error { return e.Err }

// StoreError reports a persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("portfolio store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
