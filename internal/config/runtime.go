package config

import "time"

// Runtime carries the guideline constants named throughout the component
// design (§4, §5): provider/prompt/subagent timeouts, retry backoff
// parameters, the EventStore ring buffer size, and compaction budgets.
// All fields are overridable; the zero value of Runtime is never
// used directly — callers get DefaultRuntime() and override as needed.
type Runtime struct {
	// ProviderStreamTimeout bounds a single provider stream call (§5:
	// "guideline 10 min, configurable per call").
	ProviderStreamTimeout time.Duration

	// PromptResponseTimeout bounds how long the actor waits for a
	// question/permission/plan response before timing out the call
	// (§5: "guideline 5 min"; §4.C step 2; §7 "permission ask timeout").
	PromptResponseTimeout time.Duration

	// SubagentTimeout bounds one subagent run (§4.E step 3: "guideline
	// 5 min").
	SubagentTimeout time.Duration

	// MaxRetries bounds provider stream retry attempts (§4.D: "design
	// guideline 3").
	MaxRetries int

	// InitialRetryDelay / MaxRetryDelay parametrize invariant 6:
	// delay(n) = min(MaxRetryDelay, InitialRetryDelay*2^n).
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration

	// RingBufferSize bounds the per-subscriber EventStore queue (§4.B:
	// "design guideline 1000 envelopes").
	RingBufferSize int

	// TokenBudget is the compaction trigger threshold in estimated
	// tokens (§4.D Compaction).
	TokenBudget int

	// PruneProtectBytes is the window of recent turns' tool output that
	// tool-output pruning leaves untouched (§4.D Compaction).
	PruneProtectBytes int

	// MaxSteps bounds how many provider round-trips a single turn may
	// take before the actor force-stops (safety backstop, not named as
	// a numeric guideline by the spec but required so a misbehaving
	// agent cannot loop forever).
	MaxSteps int

	// SubagentMaxAttempts bounds the SubagentRunner's bounded retry
	// count on transient SubagentError (§4.E step 3).
	SubagentMaxAttempts int
}

// DefaultRuntime returns the spec's guideline values.
func DefaultRuntime() Runtime {
	return Runtime{
		ProviderStreamTimeout: 10 * time.Minute,
		PromptResponseTimeout: 5 * time.Minute,
		SubagentTimeout:       5 * time.Minute,
		MaxRetries:            3,
		InitialRetryDelay:     1 * time.Second,
		MaxRetryDelay:         30 * time.Second,
		RingBufferSize:        1000,
		TokenBudget:           150000,
		PruneProtectBytes:     20000,
		MaxSteps:              50,
		SubagentMaxAttempts:   2,
	}
}
