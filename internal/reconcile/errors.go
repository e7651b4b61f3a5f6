/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package reconcile

import (
	"fmt"
	"time"
)

// CommandNotFoundError indicates no helper task of the service defines
// the requested command.
type CommandNotFoundError struct {
	Service string
	Command string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("service %q defines no command %q", e.Service, e.Command)
}

// AmbiguousCommandError indicates more than one helper task of the
// service defines the requested command.
type AmbiguousCommandError struct {
	Service  string
	Command  string
	Families []string
}

func (e *AmbiguousCommandError) Error() string {
	return fmt.Sprintf(
		"command %q on service %q is ambiguous: defined by helper tasks %v",
		e.Command, e.Service, e.Families,
	)
}

// HelperTaskNotBoundError indicates the service's live task definition
// carries no binding label for the helper task's family: the service was
// never deployed with that helper attached.
type HelperTaskNotBoundError struct {
	Service string
	Family  string
}

func (e *HelperTaskNotBoundError) Error() string {
	return fmt.Sprintf(
		"helper task %q is not bound to the deployed revision of service %q; deploy the service first",
		e.Family, e.Service,
	)
}

// DeploymentTimeoutError indicates a deploy did not stabilize within the
// wait window.  The service is left in whatever state ECS has it; there
// is no automatic rollback.
type DeploymentTimeoutError struct {
	Service string
	Timeout time.Duration
}

func (e *DeploymentTimeoutError) Error() string {
	return fmt.Sprintf(
		"service %q did not stabilize within %s; it is left as-is, no rollback is performed",
		e.Service, e.Timeout,
	)
}
