/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package reconcile

import (
	"context"

	"github.com/caltechads/deployfish/internal/manager"
	"github.com/caltechads/deployfish/internal/model"
)

// SaveStandaloneTask registers the task's definition and writes or
// deletes its schedule rule.  Unlike services there is nothing else to
// reconcile: a standalone task has no live resource between runs.
func (r *Reconciler) SaveStandaloneTask(ctx context.Context, task *model.StandaloneTask) error {
	td, err := task.TaskDefinition(ctx)
	if err != nil {
		return err
	}
	if err := r.managers.TaskDefinition.Save(ctx, td); err != nil {
		return err
	}
	if err := r.reconcileSchedule(ctx, task.Data, td.Data.Arn); err != nil {
		return err
	}
	r.log.Info().Str("task", task.PK()).Str("task_definition", td.PK()).Msg("task saved")
	return nil
}

// DeleteStandaloneTask removes the task's schedule rule.  Registered
// task definition revisions are immutable and stay behind.
func (r *Reconciler) DeleteStandaloneTask(ctx context.Context, task *model.StandaloneTask) error {
	return r.managers.Schedule.Delete(ctx, model.ScheduleRuleName(task.Data.Name))
}

// RunStandaloneTask invokes the task's family, which resolves to its
// latest registered revision.  A non-empty command overrides the first
// container's command.
func (r *Reconciler) RunStandaloneTask(ctx context.Context, task *model.StandaloneTask, command []string) ([]*model.InvokedTask, error) {
	td, err := task.TaskDefinition(ctx)
	if err != nil {
		return nil, err
	}
	in := manager.RunInput{
		Cluster:                  task.Data.ClusterName,
		TaskDefinition:           td.Data.Family,
		Count:                    task.Data.Count,
		LaunchType:               task.Data.LaunchType,
		PlatformVersion:          task.Data.PlatformVersion,
		Group:                    task.Data.Group,
		NetworkConfiguration:     task.Data.NetworkConfiguration,
		CapacityProviderStrategy: task.Data.CapacityProviderStrategy,
	}
	if len(command) > 0 {
		in.ContainerName = td.Containers[0].Name
		in.Command = command
	}
	return r.managers.Runner.Run(ctx, in)
}
