/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"errors"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

const defaultStablePollInterval = 15 * time.Second

// ServiceManager reads and writes ECS services.  Services loaded here are
// AWS-sourced models that resolve their satellites lazily through the
// manager registry.
type ServiceManager struct {
	ecs      aws.ECSClient
	adapters *adapter.Registry
	resolver model.Resolver
	log      zerolog.Logger

	// PollInterval paces WaitUntilStable; tests shorten it.
	PollInterval time.Duration
}

// splitServicePK splits "cluster:service".
func splitServicePK(pk string) (cluster, service string, err error) {
	cluster, service, found := strings.Cut(pk, ":")
	if !found || cluster == "" || service == "" {
		return "", "", &InvalidPKError{Kind: "service", PK: pk, Want: "cluster:service"}
	}
	return cluster, service, nil
}

// Get loads one service by "cluster:service".  Services ECS reports as
// INACTIVE are treated as nonexistent.
func (m *ServiceManager) Get(ctx context.Context, pk string) (*model.Service, error) {
	cluster, service, err := splitServicePK(pk)
	if err != nil {
		return nil, err
	}
	out, err := retryRead(ctx, m.log, "DescribeServices", func() (*ecs.DescribeServicesOutput, error) {
		return m.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
			Cluster:  awssdk.String(cluster),
			Services: []string{service},
			Include:  []ecstypes.ServiceField{ecstypes.ServiceFieldTags},
		})
	})
	if err != nil {
		return nil, err
	}
	if len(out.Services) == 0 {
		return nil, &model.DoesNotExistError{Kind: "service", PK: pk}
	}
	raw := out.Services[0]
	if awssdk.ToString(raw.Status) == "INACTIVE" {
		return nil, &model.DoesNotExistError{Kind: "service", PK: pk}
	}
	return adapter.NewServiceFromAWS(ctx, m.adapters, raw, m.resolver)
}

// Exists reports whether the service exists and is not INACTIVE.
func (m *ServiceManager) Exists(ctx context.Context, pk string) (bool, error) {
	_, err := m.Get(ctx, pk)
	if err != nil {
		var notFound *model.DoesNotExistError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List loads every service in a cluster.
func (m *ServiceManager) List(ctx context.Context, cluster string) ([]*model.Service, error) {
	var arns []string
	var nextToken *string
	for {
		out, err := retryRead(ctx, m.log, "ListServices", func() (*ecs.ListServicesOutput, error) {
			return m.ecs.ListServices(ctx, &ecs.ListServicesInput{
				Cluster:   awssdk.String(cluster),
				NextToken: nextToken,
			})
		})
		if err != nil {
			return nil, err
		}
		arns = append(arns, out.ServiceArns...)
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	var services []*model.Service
	// DescribeServices accepts at most 10 services per call.
	for start := 0; start < len(arns); start += 10 {
		end := min(start+10, len(arns))
		out, err := retryRead(ctx, m.log, "DescribeServices", func() (*ecs.DescribeServicesOutput, error) {
			return m.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
				Cluster:  awssdk.String(cluster),
				Services: arns[start:end],
				Include:  []ecstypes.ServiceField{ecstypes.ServiceFieldTags},
			})
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Services {
			if awssdk.ToString(raw.Status) == "INACTIVE" {
				continue
			}
			svc, err := adapter.NewServiceFromAWS(ctx, m.adapters, raw, m.resolver)
			if err != nil {
				return nil, err
			}
			services = append(services, svc)
		}
	}
	return services, nil
}

// Create creates the service in ECS.  The service's task definition must
// already be registered.
func (m *ServiceManager) Create(ctx context.Context, svc *model.Service) error {
	data := svc.Data
	input := &ecs.CreateServiceInput{
		Cluster:              awssdk.String(data.ClusterName),
		ServiceName:          awssdk.String(data.ServiceName),
		TaskDefinition:       awssdk.String(data.TaskDefinition),
		EnableExecuteCommand: data.EnableExecuteCommand,
	}
	if data.SchedulingStrategy == "DAEMON" {
		input.SchedulingStrategy = ecstypes.SchedulingStrategyDaemon
	} else {
		input.DesiredCount = awssdk.Int32(data.DesiredCount)
	}
	if data.LaunchType != "" {
		input.LaunchType = ecstypes.LaunchType(data.LaunchType)
	}
	if data.PlatformVersion != "" {
		input.PlatformVersion = awssdk.String(data.PlatformVersion)
	}
	if data.Role != "" {
		input.Role = awssdk.String(data.Role)
	}
	if data.ClientToken != "" {
		input.ClientToken = awssdk.String(data.ClientToken)
	}
	input.LoadBalancers = sdkLoadBalancers(data.LoadBalancers)
	input.ServiceRegistries = sdkServiceRegistries(data.ServiceRegistries)
	input.NetworkConfiguration = sdkNetworkConfiguration(data.NetworkConfiguration)
	input.DeploymentConfiguration = sdkDeploymentConfiguration(data.DeploymentConfiguration)
	input.CapacityProviderStrategy = sdkCapacityProviderStrategy(data.CapacityProviderStrategy)
	input.PlacementConstraints = sdkPlacementConstraints(data.PlacementConstraints)
	input.PlacementStrategy = sdkPlacementStrategy(data.PlacementStrategy)
	input.Tags = sdkTags(data.Tags)

	m.log.Info().Str("service", svc.PK()).Msg("creating service")
	_, err := m.ecs.CreateService(ctx, input)
	return err
}

// Update pushes the updatable fields of the service to ECS.  Load
// balancers, service registries and placement cannot change on a live
// service; those require delete and recreate.
func (m *ServiceManager) Update(ctx context.Context, svc *model.Service) error {
	data := svc.Data
	input := &ecs.UpdateServiceInput{
		Cluster:              awssdk.String(data.ClusterName),
		Service:              awssdk.String(data.ServiceName),
		TaskDefinition:       awssdk.String(data.TaskDefinition),
		EnableExecuteCommand: awssdk.Bool(data.EnableExecuteCommand),
	}
	if data.SchedulingStrategy != "DAEMON" {
		input.DesiredCount = awssdk.Int32(data.DesiredCount)
	}
	if data.PlatformVersion != "" {
		input.PlatformVersion = awssdk.String(data.PlatformVersion)
	}
	input.NetworkConfiguration = sdkNetworkConfiguration(data.NetworkConfiguration)
	input.DeploymentConfiguration = sdkDeploymentConfiguration(data.DeploymentConfiguration)
	input.CapacityProviderStrategy = sdkCapacityProviderStrategy(data.CapacityProviderStrategy)

	m.log.Info().
		Str("service", svc.PK()).
		Str("task_definition", data.TaskDefinition).
		Msg("updating service")
	_, err := m.ecs.UpdateService(ctx, input)
	return err
}

// Scale sets the service's desired count.
func (m *ServiceManager) Scale(ctx context.Context, pk string, count int32) error {
	cluster, service, err := splitServicePK(pk)
	if err != nil {
		return err
	}
	m.log.Info().Str("service", pk).Int32("count", count).Msg("scaling service")
	_, err = m.ecs.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      awssdk.String(cluster),
		Service:      awssdk.String(service),
		DesiredCount: awssdk.Int32(count),
	})
	return err
}

// Restart forces a new deployment of the service's current task
// definition, replacing every running task.
func (m *ServiceManager) Restart(ctx context.Context, pk string) error {
	cluster, service, err := splitServicePK(pk)
	if err != nil {
		return err
	}
	m.log.Info().Str("service", pk).Msg("restarting service")
	_, err = m.ecs.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:            awssdk.String(cluster),
		Service:            awssdk.String(service),
		ForceNewDeployment: true,
	})
	return err
}

// Delete scales the service to zero, then deletes it.
func (m *ServiceManager) Delete(ctx context.Context, pk string) error {
	cluster, service, err := splitServicePK(pk)
	if err != nil {
		return err
	}
	m.log.Info().Str("service", pk).Msg("scaling service to zero before delete")
	if _, err := m.ecs.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      awssdk.String(cluster),
		Service:      awssdk.String(service),
		DesiredCount: awssdk.Int32(0),
	}); err != nil {
		return err
	}
	m.log.Info().Str("service", pk).Msg("deleting service")
	_, err = m.ecs.DeleteService(ctx, &ecs.DeleteServiceInput{
		Cluster: awssdk.String(cluster),
		Service: awssdk.String(service),
		Force:   awssdk.Bool(true),
	})
	return err
}

// WaitUntilStable polls the service until it has exactly one deployment
// and its running count matches its desired count, or the timeout
// elapses.  ECS performs no automatic rollback; a timeout means the
// deploy is stuck, not reverted.
func (m *ServiceManager) WaitUntilStable(ctx context.Context, pk string, timeout time.Duration) error {
	cluster, service, err := splitServicePK(pk)
	if err != nil {
		return err
	}
	interval := m.PollInterval
	if interval <= 0 {
		interval = defaultStablePollInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		out, err := m.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
			Cluster:  awssdk.String(cluster),
			Services: []string{service},
		})
		if err != nil {
			return err
		}
		if len(out.Services) == 0 {
			return &model.DoesNotExistError{Kind: "service", PK: pk}
		}
		raw := out.Services[0]
		if len(raw.Deployments) == 1 && raw.RunningCount == raw.DesiredCount {
			m.log.Info().Str("service", pk).Msg("service is stable")
			return nil
		}
		m.log.Debug().
			Str("service", pk).
			Int("deployments", len(raw.Deployments)).
			Int32("running", raw.RunningCount).
			Int32("desired", raw.DesiredCount).
			Msg("waiting for service to stabilize")
		if time.Now().Add(interval).After(deadline) {
			return &WaitTimeoutError{Kind: "service", PK: pk, Timeout: timeout}
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
