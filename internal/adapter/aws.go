/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package adapter

import (
	"context"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	aastypes "github.com/aws/aws-sdk-go-v2/service/applicationautoscaling/types"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	sdtypes "github.com/aws/aws-sdk-go-v2/service/servicediscovery/types"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/caltechads/deployfish/internal/model"
)

// The AWS-source converters accept the SDK response types the managers
// fetch and produce the same data shapes the config converters do.

type serviceAWSConverter struct {
	raw any
}

func newServiceAWSConverter(raw any) Converter { return &serviceAWSConverter{raw: raw} }

func (c *serviceAWSConverter) Convert(_ context.Context) (any, any, error) {
	svc, ok := c.raw.(ecstypes.Service)
	if !ok {
		return nil, nil, convErr(KindService, "aws", "raw input is not an ECS service")
	}

	data := model.ServiceData{
		ClusterName:          arnResourceName(awssdk.ToString(svc.ClusterArn)),
		ServiceName:          awssdk.ToString(svc.ServiceName),
		Arn:                  awssdk.ToString(svc.ServiceArn),
		Status:               awssdk.ToString(svc.Status),
		TaskDefinition:       taskDefinitionPK(awssdk.ToString(svc.TaskDefinition)),
		DesiredCount:         svc.DesiredCount,
		LaunchType:           string(svc.LaunchType),
		SchedulingStrategy:   string(svc.SchedulingStrategy),
		PlatformVersion:      awssdk.ToString(svc.PlatformVersion),
		Role:                 awssdk.ToString(svc.RoleArn),
		EnableExecuteCommand: svc.EnableExecuteCommand,
	}

	for _, lb := range svc.LoadBalancers {
		data.LoadBalancers = append(data.LoadBalancers, model.LoadBalancer{
			LoadBalancerName: awssdk.ToString(lb.LoadBalancerName),
			TargetGroupArn:   awssdk.ToString(lb.TargetGroupArn),
			ContainerName:    awssdk.ToString(lb.ContainerName),
			ContainerPort:    awssdk.ToInt32(lb.ContainerPort),
		})
	}
	for _, reg := range svc.ServiceRegistries {
		data.ServiceRegistries = append(data.ServiceRegistries, model.ServiceRegistry{
			RegistryArn:   awssdk.ToString(reg.RegistryArn),
			ContainerName: awssdk.ToString(reg.ContainerName),
			ContainerPort: awssdk.ToInt32(reg.ContainerPort),
		})
	}
	data.NetworkConfiguration = networkConfigurationFromAWS(svc.NetworkConfiguration)
	if dc := svc.DeploymentConfiguration; dc != nil {
		data.DeploymentConfiguration = &model.DeploymentConfiguration{
			MaximumPercent:        awssdk.ToInt32(dc.MaximumPercent),
			MinimumHealthyPercent: awssdk.ToInt32(dc.MinimumHealthyPercent),
		}
	}
	for _, cp := range svc.CapacityProviderStrategy {
		data.CapacityProviderStrategy = append(data.CapacityProviderStrategy,
			model.CapacityProviderStrategyItem{
				Provider: awssdk.ToString(cp.CapacityProvider),
				Weight:   cp.Weight,
				Base:     cp.Base,
			})
	}
	for _, pc := range svc.PlacementConstraints {
		data.PlacementConstraints = append(data.PlacementConstraints, model.PlacementConstraint{
			Type:       string(pc.Type),
			Expression: awssdk.ToString(pc.Expression),
		})
	}
	for _, ps := range svc.PlacementStrategy {
		data.PlacementStrategy = append(data.PlacementStrategy, model.PlacementStrategyItem{
			Type:  string(ps.Type),
			Field: awssdk.ToString(ps.Field),
		})
	}
	if len(svc.Tags) > 0 {
		data.Tags = make(map[string]string, len(svc.Tags))
		for _, tag := range svc.Tags {
			data.Tags[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
		}
	}
	return data, nil, nil
}

func networkConfigurationFromAWS(nc *ecstypes.NetworkConfiguration) *model.NetworkConfiguration {
	if nc == nil || nc.AwsvpcConfiguration == nil {
		return nil
	}
	vpc := nc.AwsvpcConfiguration
	return &model.NetworkConfiguration{
		Subnets:        vpc.Subnets,
		SecurityGroups: vpc.SecurityGroups,
		AssignPublicIP: string(vpc.AssignPublicIp),
	}
}

// arnResourceName strips everything up to the final '/' of an ARN, which
// for clusters and services yields the bare name.
func arnResourceName(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// taskDefinitionPK converts a task definition ARN into "family:revision".
func taskDefinitionPK(arn string) string {
	return arnResourceName(arn)
}

type taskDefinitionAWSConverter struct {
	raw any
}

func newTaskDefinitionAWSConverter(raw any) Converter {
	return &taskDefinitionAWSConverter{raw: raw}
}

func (c *taskDefinitionAWSConverter) Convert(_ context.Context) (any, any, error) {
	td, ok := c.raw.(ecstypes.TaskDefinition)
	if !ok {
		return nil, nil, convErr(KindTaskDefinition, "aws", "raw input is not an ECS task definition")
	}

	data := model.TaskDefinitionData{
		Family:           awssdk.ToString(td.Family),
		Revision:         td.Revision,
		Arn:              awssdk.ToString(td.TaskDefinitionArn),
		Status:           string(td.Status),
		NetworkMode:      string(td.NetworkMode),
		TaskRoleArn:      awssdk.ToString(td.TaskRoleArn),
		ExecutionRoleArn: awssdk.ToString(td.ExecutionRoleArn),
		CPU:              awssdk.ToString(td.Cpu),
		Memory:           awssdk.ToString(td.Memory),
	}
	for _, compat := range td.RequiresCompatibilities {
		data.RequiresCompatibilities = append(data.RequiresCompatibilities, string(compat))
	}
	for _, vol := range td.Volumes {
		v := model.Volume{Name: awssdk.ToString(vol.Name)}
		if vol.Host != nil {
			v.SourcePath = awssdk.ToString(vol.Host.SourcePath)
		}
		if vol.DockerVolumeConfiguration != nil {
			v.Driver = awssdk.ToString(vol.DockerVolumeConfiguration.Driver)
			v.DriverOpts = vol.DockerVolumeConfiguration.DriverOpts
		}
		data.Volumes = append(data.Volumes, v)
	}

	containers := make([]model.ContainerData, 0, len(td.ContainerDefinitions))
	for _, cd := range td.ContainerDefinitions {
		containers = append(containers, containerFromAWS(cd))
	}
	return data, containers, nil
}

func containerFromAWS(cd ecstypes.ContainerDefinition) model.ContainerData {
	container := model.ContainerData{
		Name:              awssdk.ToString(cd.Name),
		Image:             awssdk.ToString(cd.Image),
		CPU:               cd.Cpu,
		Memory:            awssdk.ToInt32(cd.Memory),
		MemoryReservation: awssdk.ToInt32(cd.MemoryReservation),
		Essential:         cd.Essential == nil || *cd.Essential,
		EntryPoint:        cd.EntryPoint,
		Command:           cd.Command,
		Links:             cd.Links,
		DockerLabels:      cd.DockerLabels,
	}
	for _, pm := range cd.PortMappings {
		container.PortMappings = append(container.PortMappings, model.PortMapping{
			ContainerPort: awssdk.ToInt32(pm.ContainerPort),
			HostPort:      awssdk.ToInt32(pm.HostPort),
			Protocol:      string(pm.Protocol),
		})
	}
	if len(cd.Environment) > 0 {
		container.Environment = make(map[string]string, len(cd.Environment))
		for _, kv := range cd.Environment {
			container.Environment[awssdk.ToString(kv.Name)] = awssdk.ToString(kv.Value)
		}
	}
	for _, s := range cd.Secrets {
		container.Secrets = append(container.Secrets, model.SecretRef{
			Name:      awssdk.ToString(s.Name),
			ValueFrom: awssdk.ToString(s.ValueFrom),
		})
	}
	for _, mp := range cd.MountPoints {
		container.MountPoints = append(container.MountPoints, model.MountPoint{
			SourceVolume:  awssdk.ToString(mp.SourceVolume),
			ContainerPath: awssdk.ToString(mp.ContainerPath),
			ReadOnly:      awssdk.ToBool(mp.ReadOnly),
		})
	}
	for _, vf := range cd.VolumesFrom {
		container.VolumesFrom = append(container.VolumesFrom, model.VolumeFrom{
			SourceContainer: awssdk.ToString(vf.SourceContainer),
			ReadOnly:        awssdk.ToBool(vf.ReadOnly),
		})
	}
	for _, host := range cd.ExtraHosts {
		container.ExtraHosts = append(container.ExtraHosts,
			awssdk.ToString(host.Hostname)+":"+awssdk.ToString(host.IpAddress))
	}
	for _, ul := range cd.Ulimits {
		container.Ulimits = append(container.Ulimits, model.Ulimit{
			Name: string(ul.Name),
			Soft: ul.SoftLimit,
			Hard: ul.HardLimit,
		})
	}
	if cd.LinuxParameters != nil && cd.LinuxParameters.Capabilities != nil {
		container.CapAdd = cd.LinuxParameters.Capabilities.Add
		container.CapDrop = cd.LinuxParameters.Capabilities.Drop
	}
	if cd.LogConfiguration != nil {
		container.LogConfiguration = &model.LogConfiguration{
			Driver:  string(cd.LogConfiguration.LogDriver),
			Options: cd.LogConfiguration.Options,
		}
	}
	return container
}

type secretAWSConverter struct {
	raw any
}

func newSecretAWSConverter(raw any) Converter { return &secretAWSConverter{raw: raw} }

func (c *secretAWSConverter) Convert(_ context.Context) (any, any, error) {
	param, ok := c.raw.(ssmtypes.Parameter)
	if !ok {
		return nil, nil, convErr(KindSecret, "aws", "raw input is not an SSM parameter")
	}
	name := awssdk.ToString(param.Name)
	secret := &model.Secret{
		Source:  model.SourceAWS,
		EnvName: envNameFromParameter(name),
		Name:    name,
		Value:   awssdk.ToString(param.Value),
		Arn:     awssdk.ToString(param.ARN),
		Secure:  param.Type == ssmtypes.ParameterTypeSecureString,
	}
	return secret, nil, nil
}

// envNameFromParameter recovers the environment variable name from a
// parameter named "<cluster>.<service>.<KEY>".  Foreign names are used
// whole.
func envNameFromParameter(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ScalableTargetAWS bundles the API responses that together describe a
// service's scaling setup.  The manager assembles it from three calls.
type ScalableTargetAWS struct {
	Target   aastypes.ScalableTarget
	Policies []ScalingPolicyAWS
}

// ScalingPolicyAWS pairs a scaling policy with its triggering alarm.
type ScalingPolicyAWS struct {
	Policy aastypes.ScalingPolicy
	Alarm  *cwtypes.MetricAlarm
}

type scalableTargetAWSConverter struct {
	raw any
}

func newScalableTargetAWSConverter(raw any) Converter {
	return &scalableTargetAWSConverter{raw: raw}
}

func (c *scalableTargetAWSConverter) Convert(_ context.Context) (any, any, error) {
	bundle, ok := c.raw.(ScalableTargetAWS)
	if !ok {
		return nil, nil, convErr(KindScalableTarget, "aws", "raw input is not a scalable target bundle")
	}

	target := &model.ScalableTarget{
		Source: model.SourceAWS,
		Data: model.ScalableTargetData{
			ServiceNamespace:  string(bundle.Target.ServiceNamespace),
			ResourceID:        awssdk.ToString(bundle.Target.ResourceId),
			ScalableDimension: string(bundle.Target.ScalableDimension),
			MinCapacity:       awssdk.ToInt32(bundle.Target.MinCapacity),
			MaxCapacity:       awssdk.ToInt32(bundle.Target.MaxCapacity),
			RoleArn:           awssdk.ToString(bundle.Target.RoleARN),
		},
	}
	for _, p := range bundle.Policies {
		policy := &model.ScalingPolicy{
			Source: model.SourceAWS,
			Data: model.ScalingPolicyData{
				PolicyName:        awssdk.ToString(p.Policy.PolicyName),
				PolicyType:        string(p.Policy.PolicyType),
				ResourceID:        awssdk.ToString(p.Policy.ResourceId),
				ScalableDimension: string(p.Policy.ScalableDimension),
				ServiceNamespace:  string(p.Policy.ServiceNamespace),
				Arn:               awssdk.ToString(p.Policy.PolicyARN),
			},
		}
		if cfg := p.Policy.StepScalingPolicyConfiguration; cfg != nil {
			policy.Data.AdjustmentType = string(cfg.AdjustmentType)
			policy.Data.Cooldown = awssdk.ToInt32(cfg.Cooldown)
			policy.Data.MetricAggregationType = string(cfg.MetricAggregationType)
			if len(cfg.StepAdjustments) > 0 {
				policy.Data.ScalingAdjustment = awssdk.ToInt32(cfg.StepAdjustments[0].ScalingAdjustment)
			}
		}
		if p.Alarm != nil {
			policy.Alarm = alarmFromAWS(*p.Alarm)
		}
		target.Policies = append(target.Policies, policy)
	}
	return target, nil, nil
}

func alarmFromAWS(alarm cwtypes.MetricAlarm) *model.Alarm {
	data := model.AlarmData{
		AlarmName:          awssdk.ToString(alarm.AlarmName),
		MetricName:         awssdk.ToString(alarm.MetricName),
		Namespace:          awssdk.ToString(alarm.Namespace),
		Statistic:          string(alarm.Statistic),
		ComparisonOperator: string(alarm.ComparisonOperator),
		Threshold:          awssdk.ToFloat64(alarm.Threshold),
		Period:             awssdk.ToInt32(alarm.Period),
		EvaluationPeriods:  awssdk.ToInt32(alarm.EvaluationPeriods),
		AlarmActions:       alarm.AlarmActions,
	}
	for _, dim := range alarm.Dimensions {
		switch awssdk.ToString(dim.Name) {
		case "ClusterName":
			data.Cluster = awssdk.ToString(dim.Value)
		case "ServiceName":
			data.Service = awssdk.ToString(dim.Value)
		}
	}
	return &model.Alarm{Source: model.SourceAWS, Data: data}
}

type serviceDiscoveryAWSConverter struct {
	raw any
}

func newServiceDiscoveryAWSConverter(raw any) Converter {
	return &serviceDiscoveryAWSConverter{raw: raw}
}

func (c *serviceDiscoveryAWSConverter) Convert(_ context.Context) (any, any, error) {
	svc, ok := c.raw.(sdtypes.Service)
	if !ok {
		return nil, nil, convErr(KindServiceDiscovery, "aws", "raw input is not a Cloud Map service")
	}
	data := model.ServiceDiscoveryData{
		Arn:  awssdk.ToString(svc.Arn),
		ID:   awssdk.ToString(svc.Id),
		Name: awssdk.ToString(svc.Name),
	}
	if svc.DnsConfig != nil {
		data.NamespaceID = awssdk.ToString(svc.DnsConfig.NamespaceId)
		if len(svc.DnsConfig.DnsRecords) > 0 {
			data.DNSType = string(svc.DnsConfig.DnsRecords[0].Type)
			data.DNSTTL = awssdk.ToInt64(svc.DnsConfig.DnsRecords[0].TTL)
		}
	}
	if data.NamespaceID == "" {
		data.NamespaceID = awssdk.ToString(svc.NamespaceId)
	}
	return &model.ServiceDiscoveryService{Source: model.SourceAWS, Data: data}, nil, nil
}

type clusterAWSConverter struct {
	raw any
}

func newClusterAWSConverter(raw any) Converter { return &clusterAWSConverter{raw: raw} }

func (c *clusterAWSConverter) Convert(_ context.Context) (any, any, error) {
	cluster, ok := c.raw.(ecstypes.Cluster)
	if !ok {
		return nil, nil, convErr(KindCluster, "aws", "raw input is not an ECS cluster")
	}
	return &model.Cluster{
		Source: model.SourceAWS,
		Data: model.ClusterData{
			Name:                              awssdk.ToString(cluster.ClusterName),
			Arn:                               awssdk.ToString(cluster.ClusterArn),
			Status:                            awssdk.ToString(cluster.Status),
			ActiveServicesCount:               cluster.ActiveServicesCount,
			RunningTasksCount:                 cluster.RunningTasksCount,
			PendingTasksCount:                 cluster.PendingTasksCount,
			RegisteredContainerInstancesCount: cluster.RegisteredContainerInstancesCount,
		},
	}, nil, nil
}

// InvokedTaskFromAWS converts a RunTask / DescribeTasks task record.
func InvokedTaskFromAWS(task ecstypes.Task) *model.InvokedTask {
	invoked := &model.InvokedTask{
		Arn:           awssdk.ToString(task.TaskArn),
		LastStatus:    awssdk.ToString(task.LastStatus),
		StoppedReason: awssdk.ToString(task.StoppedReason),
	}
	for _, container := range task.Containers {
		if container.ExitCode != nil {
			code := *container.ExitCode
			if invoked.ExitCode == nil || code != 0 {
				invoked.ExitCode = &code
			}
		}
	}
	return invoked
}
