/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// HelperTaskLabelPrefix prefixes the docker labels that bind a service's
// task definition to the exact helper task revisions deployed with it.
// The full label is "deployfish.task.<family>.id" with value
// "<family>:<revision>".  Labels live on the first container because ECS
// has no task-definition-level label field.
const HelperTaskLabelPrefix = "deployfish.task."

const helperTaskLabelSuffix = ".id"

// TaskDefinitionData mirrors the fields of an ECS task definition that
// this tool manages.
type TaskDefinitionData struct {
	Family                  string
	Revision                int32
	Arn                     string
	Status                  string
	NetworkMode             string
	TaskRoleArn             string
	ExecutionRoleArn        string
	RequiresCompatibilities []string
	CPU                     string
	Memory                  string
	Volumes                 []Volume
}

// Volume is a task definition volume, either host-path or docker-driver
// backed.
type Volume struct {
	Name       string
	SourcePath string
	Driver     string
	DriverOpts map[string]string
}

// ContainerData mirrors an ECS container definition.
type ContainerData struct {
	Name              string
	Image             string
	CPU               int32
	Memory            int32
	MemoryReservation int32
	Essential         bool
	EntryPoint        []string
	Command           []string
	Links             []string
	PortMappings      []PortMapping
	Environment       map[string]string
	Secrets           []SecretRef
	MountPoints       []MountPoint
	VolumesFrom       []VolumeFrom
	ExtraHosts        []string
	Ulimits           []Ulimit
	CapAdd            []string
	CapDrop           []string
	DockerLabels      map[string]string
	LogConfiguration  *LogConfiguration
}

// PortMapping is a container port exposure.  HostPort zero means
// dynamically assigned.
type PortMapping struct {
	ContainerPort int32
	HostPort      int32
	Protocol      string
}

// SecretRef injects an SSM parameter into a container environment
// variable at task start.
type SecretRef struct {
	Name      string
	ValueFrom string
}

// MountPoint mounts a task volume into a container.
type MountPoint struct {
	SourceVolume  string
	ContainerPath string
	ReadOnly      bool
}

// VolumeFrom mounts another container's volumes.
type VolumeFrom struct {
	SourceContainer string
	ReadOnly        bool
}

// Ulimit is a container resource limit.
type Ulimit struct {
	Name string
	Soft int32
	Hard int32
}

// LogConfiguration selects a log driver and its options.  A nil
// LogConfiguration on a container means the ECS default, which on EC2
// launch types is no logging at all; deployfish only configures logging
// when the config asks for it.
type LogConfiguration struct {
	Driver  string
	Options map[string]string
}

// fargateLogDrivers are the only drivers FARGATE tasks may use.
var fargateLogDrivers = map[string]bool{
	"awslogs":     true,
	"splunk":      true,
	"awsfirelens": true,
}

// TaskDefinition models one ECS task definition, registered or not.
// Registered revisions are immutable: Save always registers a new
// revision, never updates one in place.
type TaskDefinition struct {
	Source     Source
	Data       TaskDefinitionData
	Containers []ContainerData
}

// PK identifies the task definition: "family:revision" once registered,
// the bare family before.
func (td *TaskDefinition) PK() string {
	if td.Data.Revision > 0 {
		return fmt.Sprintf("%s:%d", td.Data.Family, td.Data.Revision)
	}
	return td.Data.Family
}

// Registered reports whether this model corresponds to a registered
// revision.
func (td *TaskDefinition) Registered() bool {
	return td.Data.Revision > 0
}

// AttachSecretRefs points every container at the given parameters,
// preferring the ARN when known.  Environment names already referenced
// keep their existing ref; wildcard entries are skipped because they
// name a prefix, not a parameter.
func (td *TaskDefinition) AttachSecretRefs(secrets []*Secret) {
	for i := range td.Containers {
		container := &td.Containers[i]
		seen := make(map[string]bool, len(container.Secrets))
		for _, ref := range container.Secrets {
			seen[ref.Name] = true
		}
		for _, s := range secrets {
			if s.Wildcard || seen[s.EnvName] {
				continue
			}
			valueFrom := s.Arn
			if valueFrom == "" {
				valueFrom = s.Name
			}
			container.Secrets = append(container.Secrets, SecretRef{
				Name:      s.EnvName,
				ValueFrom: valueFrom,
			})
			seen[s.EnvName] = true
		}
	}
}

// RequiresFargate reports whether the task definition targets FARGATE.
func (td *TaskDefinition) RequiresFargate() bool {
	for _, compat := range td.Data.RequiresCompatibilities {
		if compat == "FARGATE" {
			return true
		}
	}
	return false
}

// Validate enforces the structural rules ECS would reject anyway, so
// failures surface before any AWS call is made.
func (td *TaskDefinition) Validate() error {
	if td.Data.Family == "" {
		return fmt.Errorf("task definition has no family name")
	}
	if len(td.Containers) == 0 {
		return fmt.Errorf("task definition %s has no containers", td.Data.Family)
	}
	if td.RequiresFargate() {
		if td.Data.ExecutionRoleArn == "" {
			return fmt.Errorf(
				"task definition %s: FARGATE tasks require an execution role", td.Data.Family)
		}
		if td.Data.CPU == "" || td.Data.Memory == "" {
			return fmt.Errorf(
				"task definition %s: FARGATE tasks require task-level cpu and memory", td.Data.Family)
		}
		for _, c := range td.Containers {
			if c.LogConfiguration != nil && !fargateLogDrivers[c.LogConfiguration.Driver] {
				return fmt.Errorf(
					"task definition %s: container %s: log driver %q is not supported on FARGATE",
					td.Data.Family, c.Name, c.LogConfiguration.Driver)
			}
		}
	}
	return nil
}

// SetHelperBindings records the registered revision of each helper task
// as docker labels on the first container.  Existing binding labels are
// replaced wholesale so stale families disappear.
func (td *TaskDefinition) SetHelperBindings(bindings map[string]string) {
	if len(td.Containers) == 0 {
		return
	}
	first := &td.Containers[0]
	labels := make(map[string]string, len(first.DockerLabels)+len(bindings))
	for k, v := range first.DockerLabels {
		if !strings.HasPrefix(k, HelperTaskLabelPrefix) {
			labels[k] = v
		}
	}
	for family, pk := range bindings {
		labels[HelperTaskLabelPrefix+family+helperTaskLabelSuffix] = pk
	}
	first.DockerLabels = labels
}

// HelperBindings extracts the helper task bindings from the first
// container's docker labels: family name to registered pk.
func (td *TaskDefinition) HelperBindings() map[string]string {
	bindings := make(map[string]string)
	if len(td.Containers) == 0 {
		return bindings
	}
	for k, v := range td.Containers[0].DockerLabels {
		if !strings.HasPrefix(k, HelperTaskLabelPrefix) || !strings.HasSuffix(k, helperTaskLabelSuffix) {
			continue
		}
		family := strings.TrimSuffix(strings.TrimPrefix(k, HelperTaskLabelPrefix), helperTaskLabelSuffix)
		if family != "" {
			bindings[family] = v
		}
	}
	return bindings
}

// InvalidBindingError indicates a binding label whose value does not
// parse as family:revision.
type InvalidBindingError struct {
	Value string
}

func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("helper task binding %q is not of the form family:revision", e.Value)
}

// ParseBinding validates and splits a "family:revision" binding value.
func ParseBinding(value string) (family string, revision int32, err error) {
	name, rev, found := strings.Cut(value, ":")
	if !found || name == "" {
		return "", 0, &InvalidBindingError{Value: value}
	}
	n, err := strconv.ParseInt(rev, 10, 32)
	if err != nil || n <= 0 {
		return "", 0, &InvalidBindingError{Value: value}
	}
	return name, int32(n), nil
}
