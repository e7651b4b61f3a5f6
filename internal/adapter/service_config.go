/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package adapter

import (
	"context"
	"fmt"

	"github.com/caltechads/deployfish/internal/model"
)

// ServiceExtras carries the satellite models built alongside a service's
// data during conversion.  They are attached to the Service model after
// construction.
type ServiceExtras struct {
	TaskDefinition   *model.TaskDefinition
	Secrets          []*model.Secret
	AppScaling       *model.ScalableTarget
	ServiceDiscovery *model.ServiceDiscoveryService
	HelperTasks      []*model.HelperTask
	Environment      string
}

// serviceConfigConverter converts one services: stanza.
type serviceConfigConverter struct {
	raw map[string]any
}

func newServiceConfigConverter(raw any) Converter {
	item, _ := raw.(map[string]any)
	return &serviceConfigConverter{raw: item}
}

func (c *serviceConfigConverter) Convert(_ context.Context) (any, any, error) {
	item := c.raw
	if item == nil {
		return nil, nil, convErr(KindService, "services", "service stanza is not a mapping")
	}
	name := getString(item, "name")
	if name == "" {
		return nil, nil, convErr(KindService, "services", "service has no name")
	}
	path := "services." + name
	cluster := getString(item, "cluster")
	if cluster == "" {
		return nil, nil, convErr(KindService, path+".cluster", "service has no cluster")
	}

	data := model.ServiceData{
		ClusterName:        cluster,
		ServiceName:        name,
		DesiredCount:       getInt32(item, "count", 1),
		LaunchType:         getString(item, "launch_type"),
		SchedulingStrategy: getString(item, "scheduling_strategy"),
		PlatformVersion:    getString(item, "platform_version"),
		Role:               getString(item, "service_role_arn"),
		ClientToken:        clientToken(cluster, name),
	}
	environment := getString(item, "environment")

	// DAEMON services place one task per instance; a desired count makes
	// no sense there and ECS rejects it.
	if data.SchedulingStrategy == "DAEMON" {
		data.DesiredCount = 0
	}

	if len(getMapSlice(item, "capacity_provider_strategy")) > 0 && data.LaunchType != "" {
		return nil, nil, convErr(KindService, path,
			"launch_type and capacity_provider_strategy are mutually exclusive")
	}
	for _, cp := range getMapSlice(item, "capacity_provider_strategy") {
		data.CapacityProviderStrategy = append(data.CapacityProviderStrategy,
			model.CapacityProviderStrategyItem{
				Provider: getString(cp, "provider"),
				Weight:   getInt32(cp, "weight", 0),
				Base:     getInt32(cp, "base", 0),
			})
	}

	if maximum, minimum := getInt32(item, "maximum_percent", 0), getInt32(item, "minimum_healthy_percent", 0); maximum != 0 || minimum != 0 {
		data.DeploymentConfiguration = &model.DeploymentConfiguration{
			MaximumPercent:        maximum,
			MinimumHealthyPercent: minimum,
		}
	}

	if lb := getMap(item, "load_balancer"); lb != nil {
		balancers, err := loadBalancersFromConfig(lb, path+".load_balancer")
		if err != nil {
			return nil, nil, err
		}
		data.LoadBalancers = balancers
	}

	if vpc := getMap(item, "vpc_configuration"); vpc != nil {
		data.NetworkConfiguration = networkConfigurationFromConfig(vpc)
	}

	for _, pc := range getMapSlice(item, "placement_constraints") {
		data.PlacementConstraints = append(data.PlacementConstraints, model.PlacementConstraint{
			Type:       getString(pc, "type"),
			Expression: getString(pc, "expression"),
		})
	}
	for _, ps := range getMapSlice(item, "placement_strategy") {
		data.PlacementStrategy = append(data.PlacementStrategy, model.PlacementStrategyItem{
			Type:  getString(ps, "type"),
			Field: getString(ps, "field"),
		})
	}

	data.EnableExecuteCommand = getBool(item, "enable_exec")
	if environment != "" {
		data.Tags = map[string]string{"Environment": environment}
	}

	extras := &ServiceExtras{Environment: environment}

	secrets, err := secretsFromConfig(item, cluster, name, path)
	if err != nil {
		return nil, nil, err
	}
	extras.Secrets = secrets

	opts := taskDefOptions{
		kind:        KindService,
		path:        path,
		serviceName: name,
		environment: environment,
		cluster:     cluster,
		secrets:     secrets,
	}
	td, err := taskDefinitionFromConfig(item, opts)
	if err != nil {
		return nil, nil, err
	}
	extras.TaskDefinition = td

	if scaling := getMap(item, "application_scaling"); scaling != nil {
		target, err := scalableTargetFromConfig(scaling, cluster, name, path+".application_scaling")
		if err != nil {
			return nil, nil, err
		}
		extras.AppScaling = target
	}

	if sd := getMap(item, "service_discovery"); sd != nil {
		if td.Data.NetworkMode != "awsvpc" {
			return nil, nil, convErr(KindService, path+".service_discovery",
				"service discovery requires network_mode awsvpc")
		}
		entry, err := serviceDiscoveryFromConfig(sd, name, path+".service_discovery")
		if err != nil {
			return nil, nil, err
		}
		extras.ServiceDiscovery = entry
	}

	for i, stanza := range getMapSlice(item, "tasks") {
		helper, err := helperTaskFromConfig(stanza, item, environment, fmt.Sprintf("%s.tasks[%d]", path, i))
		if err != nil {
			return nil, nil, err
		}
		extras.HelperTasks = append(extras.HelperTasks, helper)
	}

	return data, extras, nil
}

// clientToken derives the idempotency token ECS uses to dedupe service
// creation.  ECS caps it at 32 characters.
func clientToken(cluster, name string) string {
	token := fmt.Sprintf("token-%s-%s", name, cluster)
	if len(token) > 32 {
		token = token[:32]
	}
	return token
}

func loadBalancersFromConfig(lb map[string]any, path string) ([]model.LoadBalancer, error) {
	if groups := getMapSlice(lb, "target_groups"); len(groups) > 0 {
		out := make([]model.LoadBalancer, 0, len(groups))
		for _, group := range groups {
			out = append(out, model.LoadBalancer{
				TargetGroupArn: getString(group, "target_group_arn"),
				ContainerName:  getString(group, "container_name"),
				ContainerPort:  getInt32(group, "container_port", 0),
			})
		}
		return out, nil
	}
	balancer := model.LoadBalancer{
		LoadBalancerName: getString(lb, "load_balancer_name"),
		TargetGroupArn:   getString(lb, "target_group_arn"),
		ContainerName:    getString(lb, "container_name"),
		ContainerPort:    getInt32(lb, "container_port", 0),
	}
	if balancer.LoadBalancerName == "" && balancer.TargetGroupArn == "" {
		return nil, convErr(KindService, path,
			"load balancer needs either load_balancer_name or target_group_arn")
	}
	if balancer.ContainerName == "" || balancer.ContainerPort == 0 {
		return nil, convErr(KindService, path,
			"load balancer needs container_name and container_port")
	}
	return []model.LoadBalancer{balancer}, nil
}

func networkConfigurationFromConfig(vpc map[string]any) *model.NetworkConfiguration {
	nc := &model.NetworkConfiguration{
		Subnets:        getStringSlice(vpc, "subnets"),
		SecurityGroups: getStringSlice(vpc, "security_groups"),
	}
	if getBool(vpc, "public_ip") || getString(vpc, "public_ip") == "ENABLED" {
		nc.AssignPublicIP = "ENABLED"
	} else {
		nc.AssignPublicIP = "DISABLED"
	}
	return nc
}

func secretsFromConfig(item map[string]any, cluster, name, path string) ([]*model.Secret, error) {
	specs := getStringSlice(item, "config")
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]*model.Secret, 0, len(specs))
	for i, spec := range specs {
		secret, err := model.ParseSecret(spec, cluster, name)
		if err != nil {
			return nil, convErr(KindService, fmt.Sprintf("%s.config[%d]", path, i), "%v", err)
		}
		out = append(out, secret)
	}
	return out, nil
}

// helperTaskFromConfig builds one tasks: entry under a service.  The
// helper inherits cluster, launch type, network configuration and roles
// from the service unless the stanza overrides them.
func helperTaskFromConfig(stanza, service map[string]any, environment, path string) (*model.HelperTask, error) {
	merged := make(map[string]any, len(stanza))
	for _, key := range []string{
		"cluster", "launch_type", "platform_version", "vpc_configuration",
		"network_mode", "task_role_arn", "execution_role", "cpu", "memory",
	} {
		if v, ok := service[key]; ok {
			merged[key] = v
		}
	}
	for k, v := range stanza {
		merged[k] = v
	}

	family := getString(merged, "family")
	if family == "" {
		return nil, convErr(KindService, path+".family", "helper task has no family")
	}
	name := getString(merged, "name")
	if name == "" {
		name = family
	}

	data, err := taskDataFromConfig(merged, name, path)
	if err != nil {
		return nil, err
	}

	opts := taskDefOptions{
		kind:        KindService,
		path:        path,
		taskName:    name,
		environment: environment,
		cluster:     data.ClusterName,
	}
	td, err := taskDefinitionFromConfig(merged, opts)
	if err != nil {
		return nil, err
	}

	if data.Schedule != "" && data.ScheduleRole == "" {
		return nil, convErr(KindService, path+".schedule_role",
			"scheduled tasks need a schedule_role")
	}

	command := getCommand(merged, "command")
	commands := make(map[string][]string)
	for cmdName, line := range getStringMap(merged, "commands") {
		commands[cmdName] = splitCommand(line)
	}
	if len(command) > 0 {
		if _, ok := commands[name]; !ok {
			commands[name] = command
		}
	}

	return &model.HelperTask{
		Source:         model.SourceConfig,
		Data:           data,
		TaskDefinition: td,
		Command:        command,
		Commands:       commands,
	}, nil
}

// taskDataFromConfig reads the run-time task settings shared by helper
// and standalone tasks.
func taskDataFromConfig(item map[string]any, name, path string) (model.TaskData, error) {
	data := model.TaskData{
		Name:            name,
		ClusterName:     getString(item, "cluster"),
		Count:           getInt32(item, "count", 1),
		LaunchType:      getString(item, "launch_type"),
		PlatformVersion: getString(item, "platform_version"),
		Group:           getString(item, "group"),
		Schedule:        getString(item, "schedule"),
		ScheduleRole:    getString(item, "schedule_role"),
	}
	if data.ClusterName == "" {
		return data, convErr(KindStandaloneTask, path+".cluster", "task has no cluster")
	}
	if vpc := getMap(item, "vpc_configuration"); vpc != nil {
		data.NetworkConfiguration = networkConfigurationFromConfig(vpc)
	}
	for _, cp := range getMapSlice(item, "capacity_provider_strategy") {
		data.CapacityProviderStrategy = append(data.CapacityProviderStrategy,
			model.CapacityProviderStrategyItem{
				Provider: getString(cp, "provider"),
				Weight:   getInt32(cp, "weight", 0),
				Base:     getInt32(cp, "base", 0),
			})
	}
	return data, nil
}
