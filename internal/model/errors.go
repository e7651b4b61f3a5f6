/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

import "fmt"

// DoesNotExistError indicates a resource was not found in AWS.  An ECS
// service in status INACTIVE is reported as nonexistent too: ECS keeps
// the record around but nothing can be done with it.
type DoesNotExistError struct {
	Kind string
	PK   string
}

func (e *DoesNotExistError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.PK)
}

// ReadOnlyError indicates a write operation on a resource this tool never
// mutates, such as clusters or externally owned secrets.
type ReadOnlyError struct {
	Kind      string
	PK        string
	Operation string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("%s %q is read-only: refusing to %s", e.Kind, e.PK, e.Operation)
}

// UnresolvedError indicates a lazily loaded model was asked for a
// dependent resource but was constructed without a Resolver.
type UnresolvedError struct {
	Kind string
	PK   string
	Dep  string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s %q: cannot resolve %s without a resolver", e.Kind, e.PK, e.Dep)
}
