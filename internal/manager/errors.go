/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"fmt"
	"time"
)

// InvalidPKError indicates a primary key that does not match the shape a
// manager expects, such as a service pk missing its cluster half.
type InvalidPKError struct {
	Kind string
	PK   string
	Want string
}

func (e *InvalidPKError) Error() string {
	return fmt.Sprintf("invalid %s identifier %q: want %s", e.Kind, e.PK, e.Want)
}

// WaitTimeoutError indicates a poll loop gave up before the watched
// resource reached its terminal state.
type WaitTimeoutError struct {
	Kind    string
	PK      string
	Timeout time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("%s %q did not settle within %s", e.Kind, e.PK, e.Timeout)
}

// TaskFailuresError indicates ECS rejected some or all of a RunTask
// invocation.
type TaskFailuresError struct {
	Reasons []string
}

func (e *TaskFailuresError) Error() string {
	return fmt.Sprintf("failed to start tasks: %v", e.Reasons)
}
