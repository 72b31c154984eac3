// Package toolrunner executes ToolCallParts emitted by an AgentActor's turn
// loop (§4.C). It gates every call through the permission Checker, runs
// Serial-class tools (writes, edits, bash) one at a time per session while
// letting Parallel-class tools (reads, searches) overlap, and publishes
// ToolCallStarted/ToolCallCompleted events to the EventStore so subscribers
// see tool progress as it happens rather than only on completion.
//
// Grounded on the teacher's internal/session/tools.go (executeSingleTool,
// checkToolPermission, checkDoomLoop), generalized from the teacher's single
// always-serial execution path to the spec's two-class concurrency model and
// from the teacher's ad hoc types.ToolPart to the ToolCallPart/ToolResultPart
// discriminated pair.
package toolrunner
