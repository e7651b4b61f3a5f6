/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

import (
	"context"
	"fmt"
)

// TaskData holds the run-time parameters shared by standalone tasks and
// helper tasks: where and how the task runs when invoked.
type TaskData struct {
	Name                     string
	ClusterName              string
	Count                    int32
	LaunchType               string
	PlatformVersion          string
	Group                    string
	NetworkConfiguration     *NetworkConfiguration
	CapacityProviderStrategy []CapacityProviderStrategyItem
	Schedule                 string
	ScheduleRole             string
}

// HelperTask is a task declared under a service's tasks: stanza.  It has
// its own task definition, registered in lockstep with the service's so
// that "run" always invokes code from the same deploy.
type HelperTask struct {
	Source  Source
	Service *Service
	Data    TaskData
	// TaskDefinition is always eager: helper tasks only exist in config.
	TaskDefinition *TaskDefinition
	// Command overrides the container command at invocation.
	Command []string
	// Commands maps invocable command names to their command lines.  The
	// default Command, when present, is registered under the task's name.
	Commands map[string][]string
}

// Family is the helper task's task definition family.
func (t *HelperTask) Family() string {
	if t.TaskDefinition == nil {
		return ""
	}
	return t.TaskDefinition.Data.Family
}

// StandaloneTask is a top-level tasks: entry, deployed and invoked
// independently of any service.
type StandaloneTask struct {
	Source Source
	Data   TaskData

	resolver       Resolver
	taskDefinition Ref[*TaskDefinition]
	secrets        []*Secret
}

// NewStandaloneTask builds a bare standalone task model.
func NewStandaloneTask(source Source, data TaskData) *StandaloneTask {
	return &StandaloneTask{Source: source, Data: data}
}

// PK is the task name.
func (t *StandaloneTask) PK() string { return t.Data.Name }

// SetResolver wires the manager layer in for lazy loading.
func (t *StandaloneTask) SetResolver(r Resolver) { t.resolver = r }

// SetTaskDefinition attaches an eagerly built task definition.
func (t *StandaloneTask) SetTaskDefinition(td *TaskDefinition) {
	t.taskDefinition = ResolvedRef(td.PK(), td)
}

// SetTaskDefinitionRef records a task definition identifier to resolve on
// first access.
func (t *StandaloneTask) SetTaskDefinitionRef(pk string) {
	t.taskDefinition = UnresolvedRef[*TaskDefinition](pk)
}

// SetSecrets attaches eagerly built secrets.
func (t *StandaloneTask) SetSecrets(secrets []*Secret) { t.secrets = secrets }

// Secrets returns the task's secrets.
func (t *StandaloneTask) Secrets() []*Secret { return t.secrets }

// TaskDefinition returns the task's task definition, resolving it on
// first access for AWS-sourced models.
func (t *StandaloneTask) TaskDefinition(ctx context.Context) (*TaskDefinition, error) {
	if td, ok := t.taskDefinition.Value(); ok {
		return td, nil
	}
	id := t.taskDefinition.ID()
	if id == "" {
		id = t.Data.Name
	}
	if t.resolver == nil {
		return nil, &UnresolvedError{Kind: "task", PK: t.PK(), Dep: "task definition"}
	}
	td, err := t.resolver.ResolveTaskDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	t.taskDefinition = ResolvedRef(id, td)
	return td, nil
}

// Scheduled reports whether the task carries a schedule expression.
func (t *StandaloneTask) Scheduled() bool { return t.Data.Schedule != "" }

// ScheduleRuleData mirrors the EventBridge rule and ECS target that run a
// task on a schedule.
type ScheduleRuleData struct {
	Name                 string
	ScheduleExpression   string
	State                string
	TaskDefinitionArn    string
	ClusterArn           string
	Count                int32
	LaunchType           string
	PlatformVersion      string
	Group                string
	RoleArn              string
	NetworkConfiguration *NetworkConfiguration
}

// ScheduleRule models the EventBridge rule that fires a scheduled task.
type ScheduleRule struct {
	Source Source
	Data   ScheduleRuleData
}

// PK is the rule name, "deployfish-<task-name>".
func (r *ScheduleRule) PK() string { return r.Data.Name }

// ScheduleRuleName derives the EventBridge rule name for a task.
func ScheduleRuleName(taskName string) string {
	return fmt.Sprintf("deployfish-%s", taskName)
}

// InvokedTask is one running (or stopped) ECS task returned by an
// invocation.
type InvokedTask struct {
	Arn           string
	LastStatus    string
	StoppedReason string
	ExitCode      *int32
}

// Stopped reports whether the task has reached its terminal state.
func (t *InvokedTask) Stopped() bool { return t.LastStatus == "STOPPED" }

// Succeeded reports whether the task stopped with every container exiting
// zero.
func (t *InvokedTask) Succeeded() bool {
	return t.Stopped() && t.ExitCode != nil && *t.ExitCode == 0
}
