/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package adapter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caltechads/deployfish/internal/model"
)

// Container-level defaults applied when the config is silent.  ECS
// requires a memory bound on EC2 launch types, so an unbounded container
// stanza still produces a registrable definition.
const (
	defaultContainerCPU    = 256
	defaultContainerMemory = 512
)

// taskDefOptions carries the owning context into task definition
// conversion: names for the injected environment, secrets to reference,
// and the error path prefix.
type taskDefOptions struct {
	kind        Kind
	path        string
	serviceName string
	taskName    string
	environment string
	cluster     string
	secrets     []*model.Secret
}

// taskDefinitionFromConfig builds a task definition model from a service
// or task stanza.  The stanza holds task-level settings directly and the
// container definitions under containers:.
func taskDefinitionFromConfig(item map[string]any, opts taskDefOptions) (*model.TaskDefinition, error) {
	family := getString(item, "family")
	if family == "" {
		family = getString(item, "name")
	}
	if family == "" {
		return nil, convErr(opts.kind, opts.path, "neither family nor name is set")
	}

	td := &model.TaskDefinition{
		Source: model.SourceConfig,
		Data: model.TaskDefinitionData{
			Family:           family,
			NetworkMode:      getString(item, "network_mode"),
			TaskRoleArn:      getString(item, "task_role_arn"),
			ExecutionRoleArn: getString(item, "execution_role"),
			CPU:              getString(item, "cpu"),
			Memory:           getString(item, "memory"),
		},
	}

	launchType := getString(item, "launch_type")
	if launchType == "FARGATE" {
		td.Data.RequiresCompatibilities = []string{"FARGATE"}
		if td.Data.NetworkMode == "" {
			td.Data.NetworkMode = "awsvpc"
		}
	}

	for _, vol := range getMapSlice(item, "volumes") {
		v := model.Volume{
			Name:       getString(vol, "name"),
			SourcePath: getString(vol, "path"),
		}
		if docker := getMap(vol, "docker"); docker != nil {
			v.Driver = getString(docker, "driver")
			v.DriverOpts = getStringMap(docker, "driver_opts")
		}
		td.Data.Volumes = append(td.Data.Volumes, v)
	}

	containers := getMapSlice(item, "containers")
	if len(containers) == 0 {
		return nil, convErr(opts.kind, opts.path+".containers", "at least one container is required")
	}
	for i, stanza := range containers {
		container, volumes, err := containerFromConfig(stanza, opts, fmt.Sprintf("%s.containers[%d]", opts.path, i))
		if err != nil {
			return nil, err
		}
		if launchType == "FARGATE" && container.LogConfiguration == nil {
			container.LogConfiguration = &model.LogConfiguration{
				Driver: "awslogs",
				Options: map[string]string{
					"awslogs-group":         "/" + family,
					"awslogs-stream-prefix": container.Name,
				},
			}
		}
		injectStandardEnvironment(&container, opts)
		injectSecretRefs(&container, opts.secrets)
		td.Containers = append(td.Containers, container)
		td.Data.Volumes = mergeVolumes(td.Data.Volumes, volumes)
	}

	if err := td.Validate(); err != nil {
		return nil, convErr(opts.kind, opts.path, "%v", err)
	}
	return td, nil
}

func containerFromConfig(stanza map[string]any, opts taskDefOptions, path string) (model.ContainerData, []model.Volume, error) {
	name := getString(stanza, "name")
	if name == "" {
		return model.ContainerData{}, nil, convErr(opts.kind, path+".name", "container has no name")
	}
	image := getString(stanza, "image")
	if image == "" {
		return model.ContainerData{}, nil, convErr(opts.kind, path+".image", "container %s has no image", name)
	}

	container := model.ContainerData{
		Name:              name,
		Image:             image,
		CPU:               getInt32(stanza, "cpu", defaultContainerCPU),
		Memory:            getInt32(stanza, "memory", 0),
		MemoryReservation: getInt32(stanza, "memoryReservation", 0),
		Essential:         true,
		EntryPoint:        getCommand(stanza, "entrypoint"),
		Command:           getCommand(stanza, "command"),
		Links:             getStringSlice(stanza, "links"),
		Environment:       getStringMap(stanza, "environment"),
		ExtraHosts:        getStringSlice(stanza, "extra_hosts"),
		CapAdd:            getStringSlice(stanza, "cap_add"),
		CapDrop:           getStringSlice(stanza, "cap_drop"),
		DockerLabels:      getStringMap(stanza, "labels"),
	}
	if v, ok := stanza["essential"].(bool); ok {
		container.Essential = v
	}
	if container.Memory == 0 && container.MemoryReservation == 0 {
		container.Memory = defaultContainerMemory
	}

	for _, port := range getStringSlice(stanza, "ports") {
		mapping, err := parsePort(port)
		if err != nil {
			return model.ContainerData{}, nil, convErr(opts.kind, path+".ports", "%v", err)
		}
		container.PortMappings = append(container.PortMappings, mapping)
	}

	var volumes []model.Volume
	for _, spec := range getStringSlice(stanza, "volumes") {
		mount, volume, err := parseVolumeMount(spec)
		if err != nil {
			return model.ContainerData{}, nil, convErr(opts.kind, path+".volumes", "%v", err)
		}
		container.MountPoints = append(container.MountPoints, mount)
		if volume != nil {
			volumes = append(volumes, *volume)
		}
	}

	for _, from := range getStringSlice(stanza, "volumes_from") {
		vf := model.VolumeFrom{SourceContainer: from}
		if src, mode, found := strings.Cut(from, ":"); found {
			vf.SourceContainer = src
			vf.ReadOnly = mode == "ro"
		}
		container.VolumesFrom = append(container.VolumesFrom, vf)
	}

	if ulimits := getMap(stanza, "ulimits"); ulimits != nil {
		for limit, raw := range ulimits {
			switch v := raw.(type) {
			case map[string]any:
				container.Ulimits = append(container.Ulimits, model.Ulimit{
					Name: limit,
					Soft: getInt32(v, "soft", 0),
					Hard: getInt32(v, "hard", 0),
				})
			default:
				n := int32(getInt64(ulimits, limit, 0))
				container.Ulimits = append(container.Ulimits, model.Ulimit{Name: limit, Soft: n, Hard: n})
			}
		}
	}

	if logging := getMap(stanza, "logging"); logging != nil {
		driver := getString(logging, "driver")
		if driver == "" {
			return model.ContainerData{}, nil, convErr(opts.kind, path+".logging", "logging needs a driver")
		}
		container.LogConfiguration = &model.LogConfiguration{
			Driver:  driver,
			Options: getStringMap(logging, "options"),
		}
	}

	return container, volumes, nil
}

// parsePort parses the port shorthand: "80", "host:container" or
// "host:container/proto".  A bare port maps host and container alike.
func parsePort(spec string) (model.PortMapping, error) {
	mapping := model.PortMapping{Protocol: "tcp"}
	ports := spec
	if p, proto, found := strings.Cut(spec, "/"); found {
		if proto != "tcp" && proto != "udp" {
			return mapping, fmt.Errorf("port %q: protocol must be tcp or udp", spec)
		}
		ports = p
		mapping.Protocol = proto
	}
	host, container, found := strings.Cut(ports, ":")
	hostPort, err := strconv.ParseInt(host, 10, 32)
	if err != nil {
		return mapping, fmt.Errorf("port %q is not numeric", spec)
	}
	mapping.HostPort = int32(hostPort)
	if found {
		containerPort, err := strconv.ParseInt(container, 10, 32)
		if err != nil {
			return mapping, fmt.Errorf("port %q is not numeric", spec)
		}
		mapping.ContainerPort = int32(containerPort)
	} else {
		mapping.ContainerPort = mapping.HostPort
	}
	return mapping, nil
}

// parseVolumeMount parses "hostpath:containerpath[:ro]".  A host path
// produces a named task volume; a bare volume name references one
// declared at the task level.
func parseVolumeMount(spec string) (model.MountPoint, *model.Volume, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return model.MountPoint{}, nil, fmt.Errorf("volume %q: want source:containerpath[:ro]", spec)
	}
	source := parts[0]
	mount := model.MountPoint{ContainerPath: parts[1]}
	if len(parts) == 3 {
		if parts[2] != "ro" && parts[2] != "rw" {
			return model.MountPoint{}, nil, fmt.Errorf("volume %q: mode must be ro or rw", spec)
		}
		mount.ReadOnly = parts[2] == "ro"
	}
	if strings.HasPrefix(source, "/") {
		name := strings.Trim(strings.ReplaceAll(source, "/", "_"), "_")
		mount.SourceVolume = name
		return mount, &model.Volume{Name: name, SourcePath: source}, nil
	}
	mount.SourceVolume = source
	return mount, nil, nil
}

func mergeVolumes(existing, extra []model.Volume) []model.Volume {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v.Name] = true
	}
	for _, v := range extra {
		if !seen[v.Name] {
			existing = append(existing, v)
			seen[v.Name] = true
		}
	}
	return existing
}

// injectStandardEnvironment gives every container the identity of its
// owner, so application code can tell where it is running.
func injectStandardEnvironment(container *model.ContainerData, opts taskDefOptions) {
	if container.Environment == nil {
		container.Environment = make(map[string]string)
	}
	if opts.serviceName != "" {
		container.Environment["DEPLOYFISH_SERVICE_NAME"] = opts.serviceName
	}
	if opts.taskName != "" {
		container.Environment["DEPLOYFISH_TASK_NAME"] = opts.taskName
	}
	if opts.environment != "" {
		container.Environment["DEPLOYFISH_ENVIRONMENT"] = opts.environment
	}
	if opts.cluster != "" {
		container.Environment["DEPLOYFISH_CLUSTER_NAME"] = opts.cluster
	}
}

// injectSecretRefs points every container at the owned and external
// parameters declared in config:.  Wildcard externals are skipped here;
// they are expanded against Parameter Store at deploy time.
func injectSecretRefs(container *model.ContainerData, secrets []*model.Secret) {
	for _, s := range secrets {
		if s.Wildcard {
			continue
		}
		valueFrom := s.Arn
		if valueFrom == "" {
			valueFrom = s.Name
		}
		container.Secrets = append(container.Secrets, model.SecretRef{
			Name:      s.EnvName,
			ValueFrom: valueFrom,
		})
	}
}
