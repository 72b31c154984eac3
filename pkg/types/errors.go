package types

import "fmt"

// The error taxonomy from §6: every RPC call fails with exactly one of
// these tagged types. Each wraps an optional underlying cause so
// errors.As/errors.Is compose normally, following the teacher's
// permission.RejectedError precedent of a small hand-rolled error struct
// per failure domain rather than a single generic error type.

type StorageError struct {
	Message string
	Cause   error
}

func (e *StorageError) Error() string { return "storage: " + e.Message }
func (e *StorageError) Unwrap() error { return e.Cause }

type EventStoreError struct {
	Message string
	Cause   error
}

func (e *EventStoreError) Error() string { return "event store: " + e.Message }
func (e *EventStoreError) Unwrap() error { return e.Cause }

type AgentLoopError struct {
	Message string
	Cause   error
}

func (e *AgentLoopError) Error() string { return "agent loop: " + e.Message }
func (e *AgentLoopError) Unwrap() error { return e.Cause }

type ProviderError struct {
	Model   string
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Model, e.Message)
}
func (e *ProviderError) Unwrap() error { return e.Cause }

type CheckpointError struct {
	Message string
	Cause   error
}

func (e *CheckpointError) Error() string { return "checkpoint: " + e.Message }
func (e *CheckpointError) Unwrap() error { return e.Cause }

type BadArgument struct {
	Module      string
	Method      string
	Description string
}

func (e *BadArgument) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("bad argument in %s.%s: %s", e.Module, e.Method, e.Description)
	}
	return fmt.Sprintf("bad argument in %s.%s", e.Module, e.Method)
}

type SystemError struct {
	Module           string
	Method           string
	Reason           string
	PathOrDescriptor string
}

func (e *SystemError) Error() string {
	if e.PathOrDescriptor != "" {
		return fmt.Sprintf("system error in %s.%s: %s (%s)", e.Module, e.Method, e.Reason, e.PathOrDescriptor)
	}
	return fmt.Sprintf("system error in %s.%s: %s", e.Module, e.Method, e.Reason)
}

// FormatError produces the single-line diagnostic §7 requires
// ("Storage: <msg>", "<model>: <msg>") for user-visible surfaces.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	switch e := err.(type) {
	case *StorageError:
		return "Storage: " + e.Message
	case *EventStoreError:
		return "EventStore: " + e.Message
	case *AgentLoopError:
		return "AgentLoop: " + e.Message
	case *ProviderError:
		return e.Model + ": " + e.Message
	case *CheckpointError:
		return "Checkpoint: " + e.Message
	case *BadArgument:
		return e.Error()
	case *SystemError:
		return e.Error()
	default:
		return err.Error()
	}
}
