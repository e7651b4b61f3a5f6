/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

const defaultTaskPollInterval = 6 * time.Second

// startedBy tags tasks started through this tool so they can be told
// apart from service tasks in the console.
const startedBy = "deployfish"

// RunInput describes one task invocation: where to run, what revision to
// run and the command override, if any.
type RunInput struct {
	Cluster                  string
	TaskDefinition           string
	Count                    int32
	LaunchType               string
	PlatformVersion          string
	Group                    string
	NetworkConfiguration     *model.NetworkConfiguration
	CapacityProviderStrategy []model.CapacityProviderStrategyItem
	// ContainerName and Command override the named container's command at
	// invocation; both empty means run the registered command.
	ContainerName string
	Command       []string
}

// TaskRunner starts one-off ECS tasks and waits for them to stop.
type TaskRunner struct {
	ecs aws.ECSClient
	log zerolog.Logger

	// PollInterval paces WaitUntilStopped; tests shorten it.
	PollInterval time.Duration
}

// Run starts the task and returns one InvokedTask per started task.
func (r *TaskRunner) Run(ctx context.Context, in RunInput) ([]*model.InvokedTask, error) {
	count := in.Count
	if count <= 0 {
		count = 1
	}
	input := &ecs.RunTaskInput{
		Cluster:        awssdk.String(in.Cluster),
		TaskDefinition: awssdk.String(in.TaskDefinition),
		Count:          awssdk.Int32(count),
		StartedBy:      awssdk.String(startedBy),
	}
	if in.LaunchType != "" {
		input.LaunchType = ecstypes.LaunchType(in.LaunchType)
	}
	if in.PlatformVersion != "" {
		input.PlatformVersion = awssdk.String(in.PlatformVersion)
	}
	if in.Group != "" {
		input.Group = awssdk.String(in.Group)
	}
	input.NetworkConfiguration = sdkNetworkConfiguration(in.NetworkConfiguration)
	input.CapacityProviderStrategy = sdkCapacityProviderStrategy(in.CapacityProviderStrategy)
	if len(in.Command) > 0 {
		input.Overrides = &ecstypes.TaskOverride{
			ContainerOverrides: []ecstypes.ContainerOverride{
				{
					Name:    awssdk.String(in.ContainerName),
					Command: in.Command,
				},
			},
		}
	}

	r.log.Info().
		Str("cluster", in.Cluster).
		Str("task_definition", in.TaskDefinition).
		Strs("command", in.Command).
		Msg("running task")
	out, err := r.ecs.RunTask(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(out.Failures) > 0 {
		reasons := make([]string, 0, len(out.Failures))
		for _, failure := range out.Failures {
			reasons = append(reasons, awssdk.ToString(failure.Reason))
		}
		return nil, &TaskFailuresError{Reasons: reasons}
	}
	tasks := make([]*model.InvokedTask, 0, len(out.Tasks))
	for _, task := range out.Tasks {
		tasks = append(tasks, adapter.InvokedTaskFromAWS(task))
	}
	return tasks, nil
}

// WaitUntilStopped polls the tasks until every one has stopped or the
// timeout elapses, returning their final states.
func (r *TaskRunner) WaitUntilStopped(ctx context.Context, cluster string, arns []string, timeout time.Duration) ([]*model.InvokedTask, error) {
	interval := r.PollInterval
	if interval <= 0 {
		interval = defaultTaskPollInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		out, err := r.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
			Cluster: awssdk.String(cluster),
			Tasks:   arns,
		})
		if err != nil {
			return nil, err
		}
		tasks := make([]*model.InvokedTask, 0, len(out.Tasks))
		stopped := 0
		for _, raw := range out.Tasks {
			task := adapter.InvokedTaskFromAWS(raw)
			tasks = append(tasks, task)
			if task.Stopped() {
				stopped++
			}
		}
		if stopped == len(tasks) {
			return tasks, nil
		}
		r.log.Debug().
			Int("stopped", stopped).
			Int("total", len(tasks)).
			Msg("waiting for tasks to stop")
		if time.Now().Add(interval).After(deadline) {
			return tasks, &WaitTimeoutError{Kind: "task", PK: cluster, Timeout: timeout}
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return tasks, ctx.Err()
		}
	}
}
