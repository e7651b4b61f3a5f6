/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/caltechads/deployfish/internal/model"
)

// ServiceDescription bundles everything the info command shows about a
// service.  The satellites are optional; nil means not fetched or not
// configured.
type ServiceDescription struct {
	Service        *model.Service
	TaskDefinition *model.TaskDefinition
	AppScaling     *model.ScalableTarget
	Discovery      *model.ServiceDiscoveryService
	Secrets        []*model.Secret
}

// FormatServiceDescription formats service information for display
func FormatServiceDescription(desc *ServiceDescription) string {
	var output strings.Builder
	data := desc.Service.Data

	output.WriteString(fmt.Sprintf("Service: %s\n", data.ServiceName))
	output.WriteString(fmt.Sprintf("Cluster: %s\n", data.ClusterName))
	if data.Status != "" {
		output.WriteString(fmt.Sprintf("Status: %s\n", data.Status))
	}
	if data.TaskDefinition != "" {
		output.WriteString(fmt.Sprintf("Task definition: %s\n", data.TaskDefinition))
	}
	if data.SchedulingStrategy == "DAEMON" {
		output.WriteString("Scheduling: DAEMON\n")
	} else {
		output.WriteString(fmt.Sprintf("Desired count: %d\n", data.DesiredCount))
	}
	if data.LaunchType != "" {
		output.WriteString(fmt.Sprintf("Launch type: %s\n", data.LaunchType))
	}
	if desc.Service.Environment != "" {
		output.WriteString(fmt.Sprintf("Environment: %s\n", desc.Service.Environment))
	}

	if len(data.LoadBalancers) > 0 {
		output.WriteString("\nLoad balancers:\n")
		for _, lb := range data.LoadBalancers {
			target := lb.TargetGroupArn
			if target == "" {
				target = lb.LoadBalancerName
			}
			output.WriteString(fmt.Sprintf("  %s:%d -> %s\n", lb.ContainerName, lb.ContainerPort, target))
		}
	}

	if sd := desc.Discovery; sd != nil {
		output.WriteString("\nService discovery:\n")
		output.WriteString(fmt.Sprintf("  Namespace: %s\n", sd.Data.NamespaceID))
		output.WriteString(fmt.Sprintf("  Name: %s\n", sd.Data.Name))
		if sd.Data.Arn != "" {
			output.WriteString(fmt.Sprintf("  ARN: %s\n", sd.Data.Arn))
		}
	}

	if st := desc.AppScaling; st != nil {
		output.WriteString("\nApplication scaling:\n")
		output.WriteString(fmt.Sprintf("  Capacity: %d-%d\n", st.Data.MinCapacity, st.Data.MaxCapacity))
		for _, policy := range st.Policies {
			output.WriteString(fmt.Sprintf("  Policy: %s (adjustment %+d, cooldown %ds)\n",
				policy.Data.PolicyName, policy.Data.ScalingAdjustment, policy.Data.Cooldown))
		}
	}

	if td := desc.TaskDefinition; td != nil {
		output.WriteString("\n")
		output.WriteString(FormatTaskDefinition(td))
	}

	if len(desc.Secrets) > 0 {
		output.WriteString("\nConfig parameters:\n")
		names := make([]string, 0, len(desc.Secrets))
		byName := make(map[string]*model.Secret, len(desc.Secrets))
		for _, secret := range desc.Secrets {
			names = append(names, secret.Name)
			byName[secret.Name] = secret
		}
		sort.Strings(names)
		for _, name := range names {
			secret := byName[name]
			attrs := ""
			if secret.Secure {
				attrs += " [secure]"
			}
			if secret.External {
				attrs += " [external]"
			}
			output.WriteString(fmt.Sprintf("  %s%s\n", name, attrs))
		}
	}

	helpers := desc.Service.HelperTasks()
	if len(helpers) > 0 {
		output.WriteString("\nHelper tasks:\n")
		for _, helper := range helpers {
			output.WriteString(fmt.Sprintf("  %s (family %s)\n", helper.Data.Name, helper.Family()))
			commands := make([]string, 0, len(helper.Commands))
			for command := range helper.Commands {
				commands = append(commands, command)
			}
			sort.Strings(commands)
			for _, command := range commands {
				output.WriteString(fmt.Sprintf("    %s: %s\n", command, strings.Join(helper.Commands[command], " ")))
			}
		}
	}

	return output.String()
}

// FormatTaskDefinition formats a task definition and its containers for
// display
func FormatTaskDefinition(td *model.TaskDefinition) string {
	var output strings.Builder
	output.WriteString(fmt.Sprintf("Task definition: %s\n", td.PK()))
	if td.Data.CPU != "" || td.Data.Memory != "" {
		output.WriteString(fmt.Sprintf("  CPU/Memory: %s/%s\n", td.Data.CPU, td.Data.Memory))
	}
	if td.Data.NetworkMode != "" {
		output.WriteString(fmt.Sprintf("  Network mode: %s\n", td.Data.NetworkMode))
	}
	for _, c := range td.Containers {
		output.WriteString(fmt.Sprintf("  Container: %s\n", c.Name))
		output.WriteString(fmt.Sprintf("    Image: %s\n", c.Image))
		if len(c.Command) > 0 {
			output.WriteString(fmt.Sprintf("    Command: %s\n", strings.Join(c.Command, " ")))
		}
		for _, port := range c.PortMappings {
			if port.HostPort > 0 {
				output.WriteString(fmt.Sprintf("    Port: %d:%d\n", port.HostPort, port.ContainerPort))
			} else {
				output.WriteString(fmt.Sprintf("    Port: %d\n", port.ContainerPort))
			}
		}
		writeKeyValueMap(&output, "    Environment", c.Environment)
	}
	return output.String()
}

// FormatStandaloneTask formats a standalone task for display
func FormatStandaloneTask(task *model.StandaloneTask, td *model.TaskDefinition) string {
	var output strings.Builder
	output.WriteString(fmt.Sprintf("Task: %s\n", task.Data.Name))
	output.WriteString(fmt.Sprintf("Cluster: %s\n", task.Data.ClusterName))
	if task.Scheduled() {
		output.WriteString(fmt.Sprintf("Schedule: %s (rule %s)\n",
			task.Data.Schedule, model.ScheduleRuleName(task.Data.Name)))
	}
	if task.Data.LaunchType != "" {
		output.WriteString(fmt.Sprintf("Launch type: %s\n", task.Data.LaunchType))
	}
	if td != nil {
		output.WriteString("\n")
		output.WriteString(FormatTaskDefinition(td))
	}
	return output.String()
}

// writeKeyValueMap writes a sorted map as key-value pairs under a header,
// skipping empty maps entirely
func writeKeyValueMap(output *strings.Builder, header string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	output.WriteString(header + ":\n")
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(output, "      %s: %s\n", key, m[key])
	}
}
