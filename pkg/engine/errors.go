package engine

import "errors"

var (
	// ErrUnknownSymbol is returned when an operation names a symbol that was
	// never added to the engine.
	ErrUnknownSymbol = errors.New("engine: unknown symbol")

	// ErrNoQuote is returned by relative price moves before any quote exists.
	ErrNoQuote = errors.New("engine: symbol has no quote yet")

	// ErrCrossedQuote guards the bid < ask invariant at every construction
	// site.
	ErrCrossedQuote = errors.New("engine: bid must be below ask")

	// ErrSymbolFrozen rejects history mutation after the freeze point.
	ErrSymbolFrozen = errors.New("engine: symbol history is frozen")

	// ErrInsufficientHistory is returned by entry-candle generation when the
	// warm-up window is missing.
	ErrInsufficientHistory = errors.New("engine: not enough committed history")

	// ErrContractUnsatisfied is a fatal generation failure: the statistical
	// contract could not be met within the attempt budget. It indicates a
	// broken fixture, not a recoverable runtime state.
	ErrContractUnsatisfied = errors.New("engine: candle contract unsatisfied")

	// ErrGenerationDeadline is reported when generation ran out of wall time
	// before running out of attempts.
	ErrGenerationDeadline = errors.New("engine: generation deadline exceeded")
)
