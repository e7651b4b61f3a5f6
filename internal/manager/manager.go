/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/

// Package manager implements the per-kind CRUD surface against AWS:
// services, task definitions, secrets, scaling, service discovery,
// schedule rules and clusters.  Managers fetch raw API records, route
// them through the adapter registry and hand back models; writes
// translate models into API inputs.
package manager

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

// Registry bundles every manager over one AWS client set.  It implements
// model.Resolver, so lazily loaded models pull their satellites through
// the same managers the reconciler uses.
type Registry struct {
	Service        *ServiceManager
	TaskDefinition *TaskDefinitionManager
	Secret         *SecretManager
	Scaling        *ScalingManager
	Discovery      *ServiceDiscoveryManager
	Schedule       *ScheduleManager
	Cluster        *ClusterManager
	Runner         *TaskRunner
}

var _ model.Resolver = (*Registry)(nil)

// New wires the managers over the given clients and adapter registry.
func New(clients aws.Clients, adapters *adapter.Registry, log zerolog.Logger) *Registry {
	r := &Registry{}
	r.TaskDefinition = &TaskDefinitionManager{
		ecs: clients.ECS(), adapters: adapters, log: log.With().Str("manager", "task-definition").Logger(),
	}
	r.Secret = &SecretManager{
		ssm: clients.SSM(), adapters: adapters, log: log.With().Str("manager", "secret").Logger(),
	}
	r.Scaling = &ScalingManager{
		autoscaling: clients.AutoScaling(), cloudwatch: clients.CloudWatch(),
		adapters: adapters, log: log.With().Str("manager", "scaling").Logger(),
	}
	r.Discovery = &ServiceDiscoveryManager{
		sd: clients.ServiceDiscovery(), adapters: adapters, log: log.With().Str("manager", "service-discovery").Logger(),
	}
	r.Schedule = &ScheduleManager{
		events: clients.EventBridge(), log: log.With().Str("manager", "schedule").Logger(),
	}
	r.Cluster = &ClusterManager{
		ecs: clients.ECS(), adapters: adapters, log: log.With().Str("manager", "cluster").Logger(),
	}
	r.Service = &ServiceManager{
		ecs: clients.ECS(), adapters: adapters, resolver: r,
		log: log.With().Str("manager", "service").Logger(),
	}
	r.Runner = &TaskRunner{
		ecs: clients.ECS(), log: log.With().Str("manager", "runner").Logger(),
	}
	return r
}

// ResolveTaskDefinition implements model.Resolver.
func (r *Registry) ResolveTaskDefinition(ctx context.Context, pk string) (*model.TaskDefinition, error) {
	return r.TaskDefinition.Get(ctx, pk)
}

// ResolveScalableTarget implements model.Resolver.
func (r *Registry) ResolveScalableTarget(ctx context.Context, pk string) (*model.ScalableTarget, error) {
	return r.Scaling.Get(ctx, pk)
}

// ResolveServiceDiscovery implements model.Resolver.
func (r *Registry) ResolveServiceDiscovery(ctx context.Context, arn string) (*model.ServiceDiscoveryService, error) {
	return r.Discovery.GetByArn(ctx, arn)
}

// ResolveSecrets implements model.Resolver.
func (r *Registry) ResolveSecrets(ctx context.Context, names []string) ([]*model.Secret, error) {
	return r.Secret.GetMany(ctx, names)
}

const (
	readRetries      = 3
	readRetryBackoff = 250 * time.Millisecond
)

// retryRead runs a read-only API call, retrying transient transport
// failures a bounded number of times with doubling backoff.  Typed API
// errors (access denied, validation, not found) never retry; neither do
// writes, which go through the clients directly.
func retryRead[T any](ctx context.Context, log zerolog.Logger, op string, fn func() (T, error)) (T, error) {
	var zero T
	backoff := readRetryBackoff
	for attempt := 1; ; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) || attempt >= readRetries {
			return zero, err
		}
		log.Debug().
			Str("operation", op).
			Int("attempt", attempt).
			Err(err).
			Msg("transient error, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		backoff *= 2
	}
}
