/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package adapter

import (
	"context"

	"github.com/caltechads/deployfish/internal/model"
)

// TaskExtras carries the satellites of a standalone task.
type TaskExtras struct {
	TaskDefinition *model.TaskDefinition
	Secrets        []*model.Secret
	Environment    string
}

// taskConfigConverter converts one top-level tasks: stanza.
type taskConfigConverter struct {
	raw map[string]any
}

func newTaskConfigConverter(raw any) Converter {
	item, _ := raw.(map[string]any)
	return &taskConfigConverter{raw: item}
}

func (c *taskConfigConverter) Convert(_ context.Context) (any, any, error) {
	item := c.raw
	if item == nil {
		return nil, nil, convErr(KindStandaloneTask, "tasks", "task stanza is not a mapping")
	}
	name := getString(item, "name")
	if name == "" {
		name = getString(item, "family")
	}
	if name == "" {
		return nil, nil, convErr(KindStandaloneTask, "tasks", "task has no name")
	}
	path := "tasks." + name

	data, err := taskDataFromConfig(item, name, path)
	if err != nil {
		return nil, nil, err
	}
	if data.Schedule != "" && data.ScheduleRole == "" {
		return nil, nil, convErr(KindStandaloneTask, path+".schedule_role",
			"scheduled tasks need a schedule_role")
	}

	environment := getString(item, "environment")

	secrets, err := secretsFromConfig(item, data.ClusterName, name, path)
	if err != nil {
		return nil, nil, err
	}

	opts := taskDefOptions{
		kind:        KindStandaloneTask,
		path:        path,
		taskName:    name,
		environment: environment,
		cluster:     data.ClusterName,
		secrets:     secrets,
	}
	td, err := taskDefinitionFromConfig(item, opts)
	if err != nil {
		return nil, nil, err
	}

	return data, &TaskExtras{
		TaskDefinition: td,
		Secrets:        secrets,
		Environment:    environment,
	}, nil
}
