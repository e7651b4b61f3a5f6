/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"sort"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/caltechads/deployfish/internal/model"
)

// Builders that turn model data back into SDK inputs.  They are the
// mirror image of the adapter package's AWS converters.

func sdkNetworkConfiguration(nc *model.NetworkConfiguration) *ecstypes.NetworkConfiguration {
	if nc == nil {
		return nil
	}
	return &ecstypes.NetworkConfiguration{
		AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
			Subnets:        nc.Subnets,
			SecurityGroups: nc.SecurityGroups,
			AssignPublicIp: ecstypes.AssignPublicIp(nc.AssignPublicIP),
		},
	}
}

func sdkLoadBalancers(lbs []model.LoadBalancer) []ecstypes.LoadBalancer {
	var out []ecstypes.LoadBalancer
	for _, lb := range lbs {
		entry := ecstypes.LoadBalancer{
			ContainerName: awssdk.String(lb.ContainerName),
			ContainerPort: awssdk.Int32(lb.ContainerPort),
		}
		if lb.TargetGroupArn != "" {
			entry.TargetGroupArn = awssdk.String(lb.TargetGroupArn)
		}
		if lb.LoadBalancerName != "" {
			entry.LoadBalancerName = awssdk.String(lb.LoadBalancerName)
		}
		out = append(out, entry)
	}
	return out
}

func sdkServiceRegistries(regs []model.ServiceRegistry) []ecstypes.ServiceRegistry {
	var out []ecstypes.ServiceRegistry
	for _, reg := range regs {
		entry := ecstypes.ServiceRegistry{
			RegistryArn: awssdk.String(reg.RegistryArn),
		}
		if reg.ContainerName != "" {
			entry.ContainerName = awssdk.String(reg.ContainerName)
			entry.ContainerPort = awssdk.Int32(reg.ContainerPort)
		}
		out = append(out, entry)
	}
	return out
}

func sdkDeploymentConfiguration(dc *model.DeploymentConfiguration) *ecstypes.DeploymentConfiguration {
	if dc == nil {
		return nil
	}
	return &ecstypes.DeploymentConfiguration{
		MaximumPercent:        awssdk.Int32(dc.MaximumPercent),
		MinimumHealthyPercent: awssdk.Int32(dc.MinimumHealthyPercent),
	}
}

func sdkCapacityProviderStrategy(items []model.CapacityProviderStrategyItem) []ecstypes.CapacityProviderStrategyItem {
	var out []ecstypes.CapacityProviderStrategyItem
	for _, item := range items {
		out = append(out, ecstypes.CapacityProviderStrategyItem{
			CapacityProvider: awssdk.String(item.Provider),
			Weight:           item.Weight,
			Base:             item.Base,
		})
	}
	return out
}

func sdkPlacementConstraints(items []model.PlacementConstraint) []ecstypes.PlacementConstraint {
	var out []ecstypes.PlacementConstraint
	for _, item := range items {
		entry := ecstypes.PlacementConstraint{
			Type: ecstypes.PlacementConstraintType(item.Type),
		}
		if item.Expression != "" {
			entry.Expression = awssdk.String(item.Expression)
		}
		out = append(out, entry)
	}
	return out
}

func sdkPlacementStrategy(items []model.PlacementStrategyItem) []ecstypes.PlacementStrategy {
	var out []ecstypes.PlacementStrategy
	for _, item := range items {
		entry := ecstypes.PlacementStrategy{
			Type: ecstypes.PlacementStrategyType(item.Type),
		}
		if item.Field != "" {
			entry.Field = awssdk.String(item.Field)
		}
		out = append(out, entry)
	}
	return out
}

func sdkTags(tags map[string]string) []ecstypes.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ecstypes.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, ecstypes.Tag{Key: awssdk.String(k), Value: awssdk.String(tags[k])})
	}
	return out
}

// registerTaskDefinitionInput builds the RegisterTaskDefinition call for
// a task definition model.
func registerTaskDefinitionInput(td *model.TaskDefinition) *ecs.RegisterTaskDefinitionInput {
	input := &ecs.RegisterTaskDefinitionInput{
		Family: awssdk.String(td.Data.Family),
	}
	if td.Data.NetworkMode != "" {
		input.NetworkMode = ecstypes.NetworkMode(td.Data.NetworkMode)
	}
	if td.Data.TaskRoleArn != "" {
		input.TaskRoleArn = awssdk.String(td.Data.TaskRoleArn)
	}
	if td.Data.ExecutionRoleArn != "" {
		input.ExecutionRoleArn = awssdk.String(td.Data.ExecutionRoleArn)
	}
	if td.Data.CPU != "" {
		input.Cpu = awssdk.String(td.Data.CPU)
	}
	if td.Data.Memory != "" {
		input.Memory = awssdk.String(td.Data.Memory)
	}
	for _, compat := range td.Data.RequiresCompatibilities {
		input.RequiresCompatibilities = append(input.RequiresCompatibilities,
			ecstypes.Compatibility(compat))
	}
	for _, vol := range td.Data.Volumes {
		input.Volumes = append(input.Volumes, sdkVolume(vol))
	}
	for _, c := range td.Containers {
		input.ContainerDefinitions = append(input.ContainerDefinitions,
			sdkContainerDefinition(c))
	}
	return input
}

func sdkVolume(vol model.Volume) ecstypes.Volume {
	out := ecstypes.Volume{Name: awssdk.String(vol.Name)}
	if vol.SourcePath != "" {
		out.Host = &ecstypes.HostVolumeProperties{SourcePath: awssdk.String(vol.SourcePath)}
	}
	if vol.Driver != "" {
		out.DockerVolumeConfiguration = &ecstypes.DockerVolumeConfiguration{
			Driver:     awssdk.String(vol.Driver),
			DriverOpts: vol.DriverOpts,
		}
	}
	return out
}

func sdkContainerDefinition(c model.ContainerData) ecstypes.ContainerDefinition {
	def := ecstypes.ContainerDefinition{
		Name:       awssdk.String(c.Name),
		Image:      awssdk.String(c.Image),
		Cpu:        c.CPU,
		Essential:  awssdk.Bool(c.Essential),
		EntryPoint: c.EntryPoint,
		Command:    c.Command,
		Links:      c.Links,
	}
	if c.Memory > 0 {
		def.Memory = awssdk.Int32(c.Memory)
	}
	if c.MemoryReservation > 0 {
		def.MemoryReservation = awssdk.Int32(c.MemoryReservation)
	}
	for _, pm := range c.PortMappings {
		mapping := ecstypes.PortMapping{
			ContainerPort: awssdk.Int32(pm.ContainerPort),
			Protocol:      ecstypes.TransportProtocol(pm.Protocol),
		}
		if pm.HostPort > 0 {
			mapping.HostPort = awssdk.Int32(pm.HostPort)
		}
		def.PortMappings = append(def.PortMappings, mapping)
	}
	// Environment sorted by name so registered revisions are stable.
	if len(c.Environment) > 0 {
		keys := make([]string, 0, len(c.Environment))
		for k := range c.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			def.Environment = append(def.Environment, ecstypes.KeyValuePair{
				Name:  awssdk.String(k),
				Value: awssdk.String(c.Environment[k]),
			})
		}
	}
	for _, s := range c.Secrets {
		def.Secrets = append(def.Secrets, ecstypes.Secret{
			Name:      awssdk.String(s.Name),
			ValueFrom: awssdk.String(s.ValueFrom),
		})
	}
	for _, mp := range c.MountPoints {
		def.MountPoints = append(def.MountPoints, ecstypes.MountPoint{
			SourceVolume:  awssdk.String(mp.SourceVolume),
			ContainerPath: awssdk.String(mp.ContainerPath),
			ReadOnly:      awssdk.Bool(mp.ReadOnly),
		})
	}
	for _, vf := range c.VolumesFrom {
		def.VolumesFrom = append(def.VolumesFrom, ecstypes.VolumeFrom{
			SourceContainer: awssdk.String(vf.SourceContainer),
			ReadOnly:        awssdk.Bool(vf.ReadOnly),
		})
	}
	for _, host := range c.ExtraHosts {
		name, addr, found := strings.Cut(host, ":")
		if !found {
			continue
		}
		def.ExtraHosts = append(def.ExtraHosts, ecstypes.HostEntry{
			Hostname:  awssdk.String(name),
			IpAddress: awssdk.String(addr),
		})
	}
	for _, ul := range c.Ulimits {
		def.Ulimits = append(def.Ulimits, ecstypes.Ulimit{
			Name:      ecstypes.UlimitName(ul.Name),
			SoftLimit: ul.Soft,
			HardLimit: ul.Hard,
		})
	}
	if len(c.CapAdd) > 0 || len(c.CapDrop) > 0 {
		def.LinuxParameters = &ecstypes.LinuxParameters{
			Capabilities: &ecstypes.KernelCapabilities{
				Add:  c.CapAdd,
				Drop: c.CapDrop,
			},
		}
	}
	if len(c.DockerLabels) > 0 {
		def.DockerLabels = c.DockerLabels
	}
	if c.LogConfiguration != nil {
		def.LogConfiguration = &ecstypes.LogConfiguration{
			LogDriver: ecstypes.LogDriver(c.LogConfiguration.Driver),
			Options:   c.LogConfiguration.Options,
		}
	}
	return def
}
