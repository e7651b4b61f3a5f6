/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

import (
	"context"
	"errors"
	"fmt"
)

// ServiceData mirrors the ECS service fields this tool manages.
type ServiceData struct {
	ClusterName              string
	ServiceName              string
	Arn                      string
	Status                   string
	TaskDefinition           string
	DesiredCount             int32
	LaunchType               string
	SchedulingStrategy       string
	PlatformVersion          string
	Role                     string
	ClientToken              string
	EnableExecuteCommand     bool
	LoadBalancers            []LoadBalancer
	ServiceRegistries        []ServiceRegistry
	NetworkConfiguration     *NetworkConfiguration
	DeploymentConfiguration  *DeploymentConfiguration
	CapacityProviderStrategy []CapacityProviderStrategyItem
	PlacementConstraints     []PlacementConstraint
	PlacementStrategy        []PlacementStrategyItem
	Tags                     map[string]string
}

// LoadBalancer attaches a container port to either a classic ELB or an
// ALB/NLB target group.
type LoadBalancer struct {
	LoadBalancerName string
	TargetGroupArn   string
	ContainerName    string
	ContainerPort    int32
}

// ServiceRegistry links the service to a Cloud Map service.
type ServiceRegistry struct {
	RegistryArn   string
	ContainerName string
	ContainerPort int32
}

// NetworkConfiguration is the awsvpc configuration for services and
// tasks.
type NetworkConfiguration struct {
	Subnets        []string
	SecurityGroups []string
	AssignPublicIP string
}

// DeploymentConfiguration bounds how far a rolling deploy may over- and
// under-shoot the desired count.
type DeploymentConfiguration struct {
	MaximumPercent        int32
	MinimumHealthyPercent int32
}

// CapacityProviderStrategyItem weights one capacity provider.  A service
// uses either a launch type or a capacity provider strategy, never both.
type CapacityProviderStrategyItem struct {
	Provider string
	Weight   int32
	Base     int32
}

// PlacementConstraint restricts which container instances may host the
// service's tasks.
type PlacementConstraint struct {
	Type       string
	Expression string
}

// PlacementStrategyItem orders task placement across instances.
type PlacementStrategyItem struct {
	Type  string
	Field string
}

// Service models one ECS service together with its owned satellites: the
// task definition, secrets, application scaling, service discovery and
// helper tasks.
//
// Config-sourced services hold all satellites eagerly.  AWS-sourced
// services hold identifiers and resolve each satellite through their
// Resolver on first access, caching the result.  Either way the accessor
// surface is identical.
type Service struct {
	Source      Source
	Data        ServiceData
	Environment string

	resolver Resolver

	taskDefinition Ref[*TaskDefinition]
	appscaling     Ref[*ScalableTarget]
	discovery      Ref[*ServiceDiscoveryService]

	secrets        []*Secret
	secretsFetched bool

	helperTasks []*HelperTask
}

// NewService builds a bare service model; the loader and adapters attach
// satellites afterwards.
func NewService(source Source, data ServiceData) *Service {
	return &Service{Source: source, Data: data}
}

// PK identifies the service as "cluster:service".
func (s *Service) PK() string {
	return fmt.Sprintf("%s:%s", s.Data.ClusterName, s.Data.ServiceName)
}

// Name is the bare service name.
func (s *Service) Name() string { return s.Data.ServiceName }

// Cluster is the cluster the service runs in.
func (s *Service) Cluster() string { return s.Data.ClusterName }

// SetResolver wires the manager layer in for lazy satellite loading.
func (s *Service) SetResolver(r Resolver) { s.resolver = r }

// SetTaskDefinition attaches an eagerly built task definition.
func (s *Service) SetTaskDefinition(td *TaskDefinition) {
	s.taskDefinition = ResolvedRef(td.PK(), td)
	s.Data.TaskDefinition = td.PK()
}

// SetTaskDefinitionRef records the identifier of a task definition to be
// resolved on first access.
func (s *Service) SetTaskDefinitionRef(pk string) {
	s.taskDefinition = UnresolvedRef[*TaskDefinition](pk)
}

// SetAppScaling attaches an eagerly built scalable target.
func (s *Service) SetAppScaling(st *ScalableTarget) {
	if st == nil {
		s.appscaling = ResolvedRef[*ScalableTarget]("", nil)
		return
	}
	s.appscaling = ResolvedRef(st.PK(), st)
}

// SetAppScalingRef records the scalable target resource id to be resolved
// on first access.
func (s *Service) SetAppScalingRef(resourceID string) {
	s.appscaling = UnresolvedRef[*ScalableTarget](resourceID)
}

// SetServiceDiscovery attaches an eagerly built service discovery entry.
func (s *Service) SetServiceDiscovery(sd *ServiceDiscoveryService) {
	if sd == nil {
		s.discovery = ResolvedRef[*ServiceDiscoveryService]("", nil)
		return
	}
	s.discovery = ResolvedRef(sd.PK(), sd)
}

// SetServiceDiscoveryRef records the Cloud Map registry ARN to be
// resolved on first access.
func (s *Service) SetServiceDiscoveryRef(arn string) {
	s.discovery = UnresolvedRef[*ServiceDiscoveryService](arn)
}

// SetSecrets attaches eagerly built secrets.
func (s *Service) SetSecrets(secrets []*Secret) {
	s.secrets = secrets
	s.secretsFetched = true
}

// SetHelperTasks attaches the helper tasks defined alongside the service.
func (s *Service) SetHelperTasks(tasks []*HelperTask) {
	s.helperTasks = tasks
	for _, t := range tasks {
		t.Service = s
	}
}

// HelperTasks returns the helper tasks defined alongside the service.
// AWS-sourced services have none: helper tasks exist in config, only
// their bindings live in AWS.
func (s *Service) HelperTasks() []*HelperTask { return s.helperTasks }

// TaskDefinition returns the service's task definition, fetching it
// through the resolver on first access for AWS-sourced models.
func (s *Service) TaskDefinition(ctx context.Context) (*TaskDefinition, error) {
	if td, ok := s.taskDefinition.Value(); ok {
		return td, nil
	}
	id := s.taskDefinition.ID()
	if id == "" {
		id = s.Data.TaskDefinition
	}
	if id == "" {
		return nil, fmt.Errorf("service %s has no task definition", s.PK())
	}
	if s.resolver == nil {
		return nil, &UnresolvedError{Kind: "service", PK: s.PK(), Dep: "task definition"}
	}
	td, err := s.resolver.ResolveTaskDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	s.taskDefinition = ResolvedRef(id, td)
	return td, nil
}

// AppScaling returns the service's scalable target, or nil when the
// service has none.
func (s *Service) AppScaling(ctx context.Context) (*ScalableTarget, error) {
	if st, ok := s.appscaling.Value(); ok {
		return st, nil
	}
	id := s.appscaling.ID()
	if id == "" {
		id = fmt.Sprintf("service/%s/%s", s.Data.ClusterName, s.Data.ServiceName)
	}
	if s.resolver == nil {
		if s.Source == SourceConfig {
			return nil, nil
		}
		return nil, &UnresolvedError{Kind: "service", PK: s.PK(), Dep: "application scaling"}
	}
	st, err := s.resolver.ResolveScalableTarget(ctx, id)
	if err != nil {
		var notFound *DoesNotExistError
		if errors.As(err, &notFound) {
			s.appscaling = ResolvedRef[*ScalableTarget](id, nil)
			return nil, nil
		}
		return nil, err
	}
	s.appscaling = ResolvedRef(id, st)
	return st, nil
}

// ServiceDiscovery returns the service's Cloud Map entry, or nil when the
// service has none.
func (s *Service) ServiceDiscovery(ctx context.Context) (*ServiceDiscoveryService, error) {
	if sd, ok := s.discovery.Value(); ok {
		return sd, nil
	}
	arn := s.discovery.ID()
	if arn == "" && len(s.Data.ServiceRegistries) > 0 {
		arn = s.Data.ServiceRegistries[0].RegistryArn
	}
	if arn == "" {
		s.discovery = ResolvedRef[*ServiceDiscoveryService]("", nil)
		return nil, nil
	}
	if s.resolver == nil {
		return nil, &UnresolvedError{Kind: "service", PK: s.PK(), Dep: "service discovery"}
	}
	sd, err := s.resolver.ResolveServiceDiscovery(ctx, arn)
	if err != nil {
		return nil, err
	}
	s.discovery = ResolvedRef(arn, sd)
	return sd, nil
}

// Secrets returns the service's secrets.  For AWS-sourced models they are
// derived from the task definition's secret references and fetched from
// Parameter Store on first access.
func (s *Service) Secrets(ctx context.Context) ([]*Secret, error) {
	if s.secretsFetched {
		return s.secrets, nil
	}
	if s.resolver == nil {
		return nil, &UnresolvedError{Kind: "service", PK: s.PK(), Dep: "secrets"}
	}
	td, err := s.TaskDefinition(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	seen := make(map[string]bool)
	for _, c := range td.Containers {
		for _, ref := range c.Secrets {
			if !seen[ref.ValueFrom] {
				seen[ref.ValueFrom] = true
				names = append(names, ref.ValueFrom)
			}
		}
	}
	if len(names) == 0 {
		s.secrets = nil
		s.secretsFetched = true
		return nil, nil
	}
	secrets, err := s.resolver.ResolveSecrets(ctx, names)
	if err != nil {
		return nil, err
	}
	s.secrets = secrets
	s.secretsFetched = true
	return secrets, nil
}
