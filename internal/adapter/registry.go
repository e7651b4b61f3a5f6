/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/

// Package adapter converts external representations of resources, either
// deployfish.yml stanzas or AWS API responses, into the normalized models
// in internal/model.  A registry keyed on (kind, source) picks the
// converter; both sources produce identically shaped data, which is the
// property the whole reconciliation approach rests on.
package adapter

import (
	"context"
	"fmt"

	"github.com/caltechads/deployfish/internal/model"
)

// Kind names a convertible resource kind.
type Kind string

const (
	KindService          Kind = "Service"
	KindStandaloneTask   Kind = "StandaloneTask"
	KindTaskDefinition   Kind = "TaskDefinition"
	KindSecret           Kind = "Secret"
	KindScalableTarget   Kind = "ScalableTarget"
	KindServiceDiscovery Kind = "ServiceDiscoveryService"
	KindCluster          Kind = "Cluster"
)

// Converter turns one raw representation into model data plus the extra
// satellite models that ride along with it.  Conversion never mutates
// AWS: a conversion failure aborts before any API write.
type Converter interface {
	Convert(ctx context.Context) (data any, extras any, err error)
}

// Factory builds a Converter for one raw input.
type Factory func(raw any) Converter

// NotRegisteredError indicates a Lookup for a (kind, source) pair nothing
// registered a factory for.  This is a programming error, not user error.
type NotRegisteredError struct {
	Kind   Kind
	Source model.Source
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no adapter registered for kind %q from source %q", e.Kind, e.Source)
}

// ConversionError indicates raw input that cannot be converted.  Path
// locates the offending key, dotted from the section item root.
type ConversionError struct {
	Kind Kind
	Path string
	Msg  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s: %s: %s", e.Kind, e.Path, e.Msg)
}

func convErr(kind Kind, path, format string, args ...any) *ConversionError {
	return &ConversionError{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Registry maps (kind, source) pairs to converter factories.  It is a
// plain value wired explicitly into the loader and managers; there is no
// package-global mutable registry.
type Registry struct {
	factories map[Kind]map[model.Source]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]map[model.Source]Factory)}
}

// Register installs a factory, replacing any previous registration for
// the same pair.
func (r *Registry) Register(kind Kind, source model.Source, factory Factory) {
	if r.factories[kind] == nil {
		r.factories[kind] = make(map[model.Source]Factory)
	}
	r.factories[kind][source] = factory
}

// Lookup finds the factory for a pair.
func (r *Registry) Lookup(kind Kind, source model.Source) (Factory, error) {
	if factory, ok := r.factories[kind][source]; ok {
		return factory, nil
	}
	return nil, &NotRegisteredError{Kind: kind, Source: source}
}

// convert runs the registered converter for one raw input.
func (r *Registry) convert(ctx context.Context, kind Kind, source model.Source, raw any) (any, any, error) {
	factory, err := r.Lookup(kind, source)
	if err != nil {
		return nil, nil, err
	}
	return factory(raw).Convert(ctx)
}

// Default returns a registry with every converter this tool ships.
func Default() *Registry {
	r := NewRegistry()
	r.Register(KindService, model.SourceConfig, newServiceConfigConverter)
	r.Register(KindService, model.SourceAWS, newServiceAWSConverter)
	r.Register(KindStandaloneTask, model.SourceConfig, newTaskConfigConverter)
	r.Register(KindTaskDefinition, model.SourceAWS, newTaskDefinitionAWSConverter)
	r.Register(KindSecret, model.SourceAWS, newSecretAWSConverter)
	r.Register(KindScalableTarget, model.SourceAWS, newScalableTargetAWSConverter)
	r.Register(KindServiceDiscovery, model.SourceAWS, newServiceDiscoveryAWSConverter)
	r.Register(KindCluster, model.SourceAWS, newClusterAWSConverter)
	return r
}
