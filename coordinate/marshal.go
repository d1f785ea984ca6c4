// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package coordinate

import (
	"fmt"
)

// MarshalText renders a unit status as its wire name.
func (status UnitStatus) MarshalText() ([]byte, error) {
	switch status {
	case AnyUnit:
		return []byte("any"), nil
	case UnitPending:
		return []byte("pending"), nil
	case UnitAssigned:
		return []byte("assigned"), nil
	case UnitProcessing:
		return []byte("processing"), nil
	case UnitCompleted:
		return []byte("completed"), nil
	case UnitFailed:
		return []byte("failed"), nil
	default:
		return nil, fmt.Errorf("invalid unit status (%d)", status)
	}
}

// UnmarshalText reads a unit status from its wire name.
func (status *UnitStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "any":
		*status = AnyUnit
	case "pending":
		*status = UnitPending
	case "assigned":
		*status = UnitAssigned
	case "processing":
		*status = UnitProcessing
	case "completed":
		*status = UnitCompleted
	case "failed":
		*status = UnitFailed
	default:
		return fmt.Errorf("invalid unit status %q", string(text))
	}
	return nil
}

func (status UnitStatus) String() string {
	text, err := status.MarshalText()
	if err != nil {
		return fmt.Sprintf("UnitStatus(%d)", int(status))
	}
	return string(text)
}

// MarshalText renders a worker status as its wire name.
func (status WorkerStatus) MarshalText() ([]byte, error) {
	switch status {
	case WorkerIdle:
		return []byte("idle"), nil
	case WorkerWorking:
		return []byte("working"), nil
	case WorkerError:
		return []byte("error"), nil
	case WorkerOffline:
		return []byte("offline"), nil
	default:
		return nil, fmt.Errorf("invalid worker status (%d)", status)
	}
}

// UnmarshalText reads a worker status from its wire name.
func (status *WorkerStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*status = WorkerIdle
	case "working":
		*status = WorkerWorking
	case "error":
		*status = WorkerError
	case "offline":
		*status = WorkerOffline
	default:
		return fmt.Errorf("invalid worker status %q", string(text))
	}
	return nil
}

func (status WorkerStatus) String() string {
	text, err := status.MarshalText()
	if err != nil {
		return fmt.Sprintf("WorkerStatus(%d)", int(status))
	}
	return string(text)
}
