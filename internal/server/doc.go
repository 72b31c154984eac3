// Package server provides the HTTP surface for the agent runtime: a
// Chi-based router exposing the RPC operations of §6 (createSession,
// sendMessage, listMessages/listSessions/listBranches, getBranchTree,
// createBranch/switchBranch/forkBranch, compactBranch, getSessionState,
// subscribeEvents, steer, respondQuestions/respondPermission/respondPlan,
// updateSessionBypass, listModels), wired to Storage, the EventStore,
// CheckpointService, and the actor package's AgentLoop.
//
// Middleware (request id, logging, recovery, CORS) and the chi routing
// style are carried from the teacher's internal/server unchanged; the
// handlers themselves are rewritten against the Session/Branch-split data
// model and the actor/eventstore/checkpoint components instead of the
// teacher's flat session.Service and global event bus.
package server
