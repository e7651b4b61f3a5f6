/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package terraform

import "fmt"

// StatefileFetchError indicates the remote state could not be retrieved or
// parsed.  Fetching is attempted once per process; there are no retries.
type StatefileFetchError struct {
	Location string
	Err      error
}

func (e *StatefileFetchError) Error() string {
	return fmt.Sprintf("failed to fetch terraform state %s: %v", e.Location, e.Err)
}

func (e *StatefileFetchError) Unwrap() error { return e.Err }

// OutputNotFoundError indicates the state was fetched successfully but
// holds no output with the requested name.
type OutputNotFoundError struct {
	Key      string
	Location string
}

func (e *OutputNotFoundError) Error() string {
	return fmt.Sprintf("terraform state %s has no output named %q", e.Location, e.Key)
}
