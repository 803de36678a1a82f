package sct

// EqualityFunc decides whether two outcomes are duplicates for the purposes
// of result deduplication (§4.K). The default compares results with == when
// comparable, and failures by FailureKind via SameKind.
type EqualityFunc func(a, b Outcome) bool

// DiscardFunc reports whether an outcome should be dropped before being
// returned to the caller (§4.K) — e.g. to ignore a known-benign failure.
type DiscardFunc func(Outcome) bool

// EarlyExitFunc reports whether Explore should stop searching immediately
// after observing outcome (§4.K), e.g. "stop at the first failure".
type EarlyExitFunc func(Outcome) bool

// settings holds the resolved configuration for one Explore call.
type settings struct {
	memType MemType

	preemptionBound int
	fairBound       int
	lengthBound     int

	equality  EqualityFunc
	discard   DiscardFunc
	earlyExit EarlyExitFunc

	simplify bool

	debugPrint bool
	debugFatal bool

	logger Logger

	numCapabilities int
}

func defaultEquality(a, b Outcome) bool {
	if a.Failure != nil || b.Failure != nil {
		return SameKind(a.Failure, b.Failure)
	}
	if isComparable(a.Result) && isComparable(b.Result) {
		return a.Result == b.Result
	}
	return false
}

func isComparable(v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return v == v //nolint:staticcheck // probes comparability; panics for uncomparable dynamic types
}

func resolveSettings(opts []Option) *settings {
	cfg := &settings{
		memType:         SC,
		equality:        defaultEquality,
		simplify:        true,
		numCapabilities: 1,
		logger:          noopLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	return cfg
}

// Option configures an Explore call (§4.K, §4.P).
type Option interface {
	apply(*settings)
}

type optionFunc func(*settings)

func (f optionFunc) apply(s *settings) { f(s) }

// WithMemType selects the relaxed memory model to simulate (§4.B). Default
// SC.
func WithMemType(m MemType) Option {
	return optionFunc(func(s *settings) { s.memType = m })
}

// WithPreemptionBound caps the number of preemptive context switches a
// single schedule may contain. Zero disables the bound.
func WithPreemptionBound(n int) Option {
	return optionFunc(func(s *settings) { s.preemptionBound = n })
}

// WithFairBound caps how long any runnable thread may be starved, in
// consecutive steps taken by other threads. Zero disables the bound.
func WithFairBound(n int) Option {
	return optionFunc(func(s *settings) { s.fairBound = n })
}

// WithLengthBound caps the total number of steps a single schedule may take.
// Zero disables the bound.
func WithLengthBound(n int) Option {
	return optionFunc(func(s *settings) { s.lengthBound = n })
}

// WithEquality overrides the default outcome-deduplication predicate.
func WithEquality(f EqualityFunc) Option {
	return optionFunc(func(s *settings) { s.equality = f })
}

// WithDiscard configures a predicate for dropping uninteresting outcomes.
func WithDiscard(f DiscardFunc) Option {
	return optionFunc(func(s *settings) { s.discard = f })
}

// WithEarlyExit configures a predicate that stops the search as soon as it
// is satisfied.
func WithEarlyExit(f EarlyExitFunc) Option {
	return optionFunc(func(s *settings) { s.earlyExit = f })
}

// WithSimplify enables or disables trace simplification of failing outcomes
// (§4.J). Default enabled.
func WithSimplify(enabled bool) Option {
	return optionFunc(func(s *settings) { s.simplify = enabled })
}

// WithDebugPrint enables verbose per-step logging of the schedule under
// exploration.
func WithDebugPrint(enabled bool) Option {
	return optionFunc(func(s *settings) { s.debugPrint = enabled })
}

// WithDebugFatal causes FailureInternalError outcomes to panic immediately
// instead of being returned, useful for catching interpreter bugs while
// developing new primitives.
func WithDebugFatal(enabled bool) Option {
	return optionFunc(func(s *settings) { s.debugFatal = enabled })
}

// WithLogger installs a structured Logger (§4.L). Default discards.
func WithLogger(l Logger) Option {
	return optionFunc(func(s *settings) {
		if l != nil {
			s.logger = l
		}
	})
}

// WithNumCapabilities sets the initial advisory capability count reported by
// GetNumCapabilities. Default 1.
func WithNumCapabilities(n int) Option {
	return optionFunc(func(s *settings) { s.numCapabilities = n })
}
