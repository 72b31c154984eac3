// Package actor implements the AgentActor and AgentLoop components: the
// per-(session,branch) turn loop that drives a streaming provider, dispatches
// tool calls through the ToolRunner, and the registry that schedules and
// steers those turns.
//
// Actor is grounded on the teacher's internal/session package — Processor's
// runLoop (the step loop, retry/backoff via cenkalti/backoff, stream
// processing), compact.go (token-budget compaction), and system.go (system
// prompt assembly) — generalized from the teacher's flat session model to
// the Session/Branch split and reworked to stream through eventstore.EventStore
// and dispatch tools through toolrunner.Runner instead of the teacher's
// inline executeToolCalls and global event bus.
//
// Loop is new: the teacher runs one processor goroutine per HTTP request
// and has no steering concept beyond Abort. AgentLoop adds the registry of
// live actor handles, queue/interject submit modes, and the requestId→slot
// deferred maps for permission/question/plan responses that the teacher
// does not model at all.
package actor
