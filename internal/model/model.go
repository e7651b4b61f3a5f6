/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/

// Package model holds the normalized resource models this tool reconciles:
// ECS services, task definitions, secrets, scaling resources, service
// discovery entries and clusters.  Each model carries a data struct shaped
// like the corresponding AWS describe response, regardless of whether the
// model was built from deployfish.yml or from live AWS state.  That shared
// shape is what makes config and live state directly comparable.
package model

import "context"

// Source records where a model was constructed from.
type Source string

const (
	// SourceConfig marks models built from deployfish.yml.
	SourceConfig Source = "deployfish"
	// SourceAWS marks models built from live AWS state.
	SourceAWS Source = "aws"
)

// Ref is a reference to a dependent resource: either already resolved to
// a value, or holding only the identifier needed to fetch one.  Models
// built from config carry resolved refs; models built from AWS carry
// unresolved refs that are satisfied through a Resolver on first access
// and then cached.
type Ref[T any] struct {
	id    string
	value T
	ok    bool
}

// UnresolvedRef returns a Ref holding only an identifier.
func UnresolvedRef[T any](id string) Ref[T] {
	return Ref[T]{id: id}
}

// ResolvedRef returns a Ref already holding a value.
func ResolvedRef[T any](id string, value T) Ref[T] {
	return Ref[T]{id: id, value: value, ok: true}
}

// ID returns the identifier the ref was created with.
func (r Ref[T]) ID() string { return r.id }

// Value returns the held value and whether the ref is resolved.
func (r Ref[T]) Value() (T, bool) { return r.value, r.ok }

// Resolve stores a fetched value in the ref.
func (r *Ref[T]) Resolve(value T) {
	r.value = value
	r.ok = true
}

// Resolver fetches dependent resources for lazily constructed models.
// The manager layer implements it; tests substitute fakes.
type Resolver interface {
	ResolveTaskDefinition(ctx context.Context, pk string) (*TaskDefinition, error)
	ResolveScalableTarget(ctx context.Context, pk string) (*ScalableTarget, error)
	ResolveServiceDiscovery(ctx context.Context, arn string) (*ServiceDiscoveryService, error)
	ResolveSecrets(ctx context.Context, names []string) ([]*Secret, error)
}
