/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package adapter

import (
	"context"

	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	sdtypes "github.com/aws/aws-sdk-go-v2/service/servicediscovery/types"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/caltechads/deployfish/internal/model"
)

// The typed constructors are the registry's public face: they run the
// registered converter for a (kind, source) pair and assemble the final
// model, satellites attached in order and helper tasks last so the
// back-reference to the finished service is valid.

// NewServiceFromConfig builds an eager service model from a services:
// stanza.
func NewServiceFromConfig(ctx context.Context, reg *Registry, item map[string]any) (*model.Service, error) {
	data, extras, err := reg.convert(ctx, KindService, model.SourceConfig, item)
	if err != nil {
		return nil, err
	}
	svc := model.NewService(model.SourceConfig, data.(model.ServiceData))
	ex := extras.(*ServiceExtras)
	svc.Environment = ex.Environment
	svc.SetTaskDefinition(ex.TaskDefinition)
	svc.SetSecrets(ex.Secrets)
	svc.SetAppScaling(ex.AppScaling)
	svc.SetServiceDiscovery(ex.ServiceDiscovery)
	svc.SetHelperTasks(ex.HelperTasks)
	return svc, nil
}

// NewServiceFromAWS builds a lazy service model from a DescribeServices
// record.  Satellites resolve through the resolver on first access.
func NewServiceFromAWS(ctx context.Context, reg *Registry, raw ecstypes.Service, resolver model.Resolver) (*model.Service, error) {
	data, _, err := reg.convert(ctx, KindService, model.SourceAWS, raw)
	if err != nil {
		return nil, err
	}
	serviceData := data.(model.ServiceData)
	svc := model.NewService(model.SourceAWS, serviceData)
	svc.SetResolver(resolver)
	svc.SetTaskDefinitionRef(serviceData.TaskDefinition)
	if tags := serviceData.Tags; tags != nil {
		svc.Environment = tags["Environment"]
	}
	return svc, nil
}

// NewStandaloneTaskFromConfig builds an eager task model from a tasks:
// stanza.
func NewStandaloneTaskFromConfig(ctx context.Context, reg *Registry, item map[string]any) (*model.StandaloneTask, error) {
	data, extras, err := reg.convert(ctx, KindStandaloneTask, model.SourceConfig, item)
	if err != nil {
		return nil, err
	}
	task := model.NewStandaloneTask(model.SourceConfig, data.(model.TaskData))
	ex := extras.(*TaskExtras)
	task.SetTaskDefinition(ex.TaskDefinition)
	task.SetSecrets(ex.Secrets)
	return task, nil
}

// NewTaskDefinitionFromAWS builds a task definition model from a
// DescribeTaskDefinition record.
func NewTaskDefinitionFromAWS(ctx context.Context, reg *Registry, raw ecstypes.TaskDefinition) (*model.TaskDefinition, error) {
	data, extras, err := reg.convert(ctx, KindTaskDefinition, model.SourceAWS, raw)
	if err != nil {
		return nil, err
	}
	return &model.TaskDefinition{
		Source:     model.SourceAWS,
		Data:       data.(model.TaskDefinitionData),
		Containers: extras.([]model.ContainerData),
	}, nil
}

// NewSecretFromAWS builds a secret model from a Parameter Store record.
func NewSecretFromAWS(ctx context.Context, reg *Registry, raw ssmtypes.Parameter) (*model.Secret, error) {
	data, _, err := reg.convert(ctx, KindSecret, model.SourceAWS, raw)
	if err != nil {
		return nil, err
	}
	return data.(*model.Secret), nil
}

// NewScalableTargetFromAWS builds a scalable target model, policies and
// alarms included, from the bundled API responses.
func NewScalableTargetFromAWS(ctx context.Context, reg *Registry, raw ScalableTargetAWS) (*model.ScalableTarget, error) {
	data, _, err := reg.convert(ctx, KindScalableTarget, model.SourceAWS, raw)
	if err != nil {
		return nil, err
	}
	return data.(*model.ScalableTarget), nil
}

// NewServiceDiscoveryFromAWS builds a service discovery model from a
// Cloud Map record.
func NewServiceDiscoveryFromAWS(ctx context.Context, reg *Registry, raw sdtypes.Service) (*model.ServiceDiscoveryService, error) {
	data, _, err := reg.convert(ctx, KindServiceDiscovery, model.SourceAWS, raw)
	if err != nil {
		return nil, err
	}
	return data.(*model.ServiceDiscoveryService), nil
}

// NewClusterFromAWS builds a cluster model from a DescribeClusters
// record.
func NewClusterFromAWS(ctx context.Context, reg *Registry, raw ecstypes.Cluster) (*model.Cluster, error) {
	data, _, err := reg.convert(ctx, KindCluster, model.SourceAWS, raw)
	if err != nil {
		return nil, err
	}
	return data.(*model.Cluster), nil
}
