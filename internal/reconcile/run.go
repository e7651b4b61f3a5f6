/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package reconcile

import (
	"context"
	"sort"

	"github.com/caltechads/deployfish/internal/manager"
	"github.com/caltechads/deployfish/internal/model"
)

// RunHelper invokes a named command of one of the service's helper
// tasks against the revision bound to the currently deployed service,
// never the revision the local config would produce:
//
//  1. find the single helper task whose commands map defines command
//  2. read the binding label for that helper's family off the live
//     service's task definition
//  3. parse the label value as family:revision
//  4. invoke exactly that revision with the command override
//
// The config on disk may be newer than what is deployed; running the
// bound revision keeps "run" in lockstep with the last deploy.
func (r *Reconciler) RunHelper(ctx context.Context, svc *model.Service, command string) ([]*model.InvokedTask, error) {
	owner, err := findCommandOwner(svc, command)
	if err != nil {
		return nil, err
	}

	live, err := r.managers.Service.Get(ctx, svc.PK())
	if err != nil {
		return nil, err
	}
	liveTD, err := live.TaskDefinition(ctx)
	if err != nil {
		return nil, err
	}
	binding, ok := liveTD.HelperBindings()[owner.Family()]
	if !ok {
		return nil, &HelperTaskNotBoundError{Service: svc.PK(), Family: owner.Family()}
	}
	family, revision, err := model.ParseBinding(binding)
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("service", svc.PK()).
		Str("command", command).
		Str("task_definition", binding).
		Msg("running helper task command")
	return r.managers.Runner.Run(ctx, runInputFor(owner.Data, family, revision, runOverride{
		ContainerName: owner.TaskDefinition.Containers[0].Name,
		Command:       owner.Commands[command],
	}))
}

// WaitForTasks blocks until the invoked tasks stop, reusing the deploy
// timeout as the outer bound.
func (r *Reconciler) WaitForTasks(ctx context.Context, cluster string, tasks []*model.InvokedTask) ([]*model.InvokedTask, error) {
	timeout := r.DeployTimeout
	if timeout <= 0 {
		timeout = DefaultDeployTimeout
	}
	arns := make([]string, 0, len(tasks))
	for _, task := range tasks {
		arns = append(arns, task.Arn)
	}
	return r.managers.Runner.WaitUntilStopped(ctx, cluster, arns, timeout)
}

// findCommandOwner locates the one helper task defining command.  More
// than one owner is an error the caller must resolve in config.
func findCommandOwner(svc *model.Service, command string) (*model.HelperTask, error) {
	var owners []*model.HelperTask
	for _, helper := range svc.HelperTasks() {
		if _, ok := helper.Commands[command]; ok {
			owners = append(owners, helper)
		}
	}
	switch len(owners) {
	case 0:
		return nil, &CommandNotFoundError{Service: svc.PK(), Command: command}
	case 1:
		return owners[0], nil
	default:
		families := make([]string, 0, len(owners))
		for _, owner := range owners {
			families = append(families, owner.Family())
		}
		sort.Strings(families)
		return nil, &AmbiguousCommandError{Service: svc.PK(), Command: command, Families: families}
	}
}

// runOverride carries the container command override for an invocation.
type runOverride struct {
	ContainerName string
	Command       []string
}

// runInputFor maps a task's run-time settings onto a runner invocation
// of one exact task definition revision.
func runInputFor(data model.TaskData, family string, revision int32, override runOverride) manager.RunInput {
	return manager.RunInput{
		Cluster:                  data.ClusterName,
		TaskDefinition:           taskDefinitionPK(family, revision),
		Count:                    data.Count,
		LaunchType:               data.LaunchType,
		PlatformVersion:          data.PlatformVersion,
		Group:                    data.Group,
		NetworkConfiguration:     data.NetworkConfiguration,
		CapacityProviderStrategy: data.CapacityProviderStrategy,
		ContainerName:            override.ContainerName,
		Command:                  override.Command,
	}
}

func taskDefinitionPK(family string, revision int32) string {
	td := model.TaskDefinition{Data: model.TaskDefinitionData{Family: family, Revision: revision}}
	return td.PK()
}
