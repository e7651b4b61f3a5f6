/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caltechads/deployfish/internal/model"
	"github.com/caltechads/deployfish/internal/prompt"
	"github.com/caltechads/deployfish/internal/render"
)

var (
	taskRunNoWait   bool
	taskDeleteForce bool
)

// taskCmd groups the standalone task subcommands
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage standalone ECS tasks",
	Long: `Manage the standalone tasks declared in the tasks: section of
deployfish.yml.

Standalone tasks are task definitions that run outside any service:
cron-style scheduled jobs, ad-hoc batch work, one-off scripts.  Deploying
a task registers a new task definition revision and, if the task has a
schedule, upserts the EventBridge rule that starts it.`,
}

// taskDeployCmd represents the task deploy command
var taskDeployCmd = &cobra.Command{
	Use:   "deploy <task-name>",
	Short: "Register a standalone task's task definition",
	Long: `Register a new task definition revision for a standalone task.

If the task has a schedule, the matching EventBridge rule is created or
updated to run the new revision.  If the schedule was removed from the
config file, a live rule is deleted.

Examples:
  deployfish task deploy nightly-report`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return deployStandaloneTask(ctx, args[0])
	},
}

// taskDeleteCmd represents the task delete command
var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-name>",
	Short: "Remove a standalone task's schedule rule",
	Long: `Remove the EventBridge schedule rule of a standalone task.

Task definition revisions are never deregistered; only the schedule
rule is deleted, so the task stops being started automatically.

Examples:
  deployfish task delete nightly-report`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return deleteStandaloneTask(ctx, args[0])
	},
}

// taskRunCmd represents the task run command
var taskRunCmd = &cobra.Command{
	Use:   "run <task-name> [command...]",
	Short: "Run a standalone task now",
	Long: `Run a standalone task immediately, regardless of any schedule.

The latest registered task definition revision is used.  Any extra
arguments override the command of the task's first container.

Examples:
  deployfish task run sweeper                    # Run with the configured command
  deployfish task run sweeper python sweep.py -n # Override the command`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return runStandaloneTask(ctx, args[0], args[1:])
	},
}

// taskInfoCmd represents the task info command
var taskInfoCmd = &cobra.Command{
	Use:   "info <task-name>",
	Short: "Display detailed information about a standalone task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return showStandaloneTaskInfo(ctx, args[0])
	},
}

func deployStandaloneTask(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	task, err := s.loader.StandaloneTaskFromConfig(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", name, err)
	}

	if err := s.reconciler.SaveStandaloneTask(ctx, task); err != nil {
		return fmt.Errorf("error deploying task %s: %w", name, err)
	}
	fmt.Printf("Deployed task %s\n", task.Data.Name)
	if task.Scheduled() {
		fmt.Printf("Schedule rule %s: %s\n",
			model.ScheduleRuleName(task.Data.Name), task.Data.Schedule)
	}
	return nil
}

func deleteStandaloneTask(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	task, err := s.loader.StandaloneTaskFromConfig(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", name, err)
	}

	if !taskDeleteForce {
		confirmed, err := prompt.Confirm(fmt.Sprintf(
			"Remove the schedule rule for task %s?", task.Data.Name))
		if err != nil {
			return fmt.Errorf("failed to get confirmation: %w", err)
		}
		if !confirmed {
			fmt.Println("Delete cancelled")
			return nil
		}
	}

	if err := s.reconciler.DeleteStandaloneTask(ctx, task); err != nil {
		return fmt.Errorf("error deleting task %s: %w", name, err)
	}
	fmt.Printf("Removed schedule rule for task %s\n", task.Data.Name)
	return nil
}

func runStandaloneTask(ctx context.Context, name string, command []string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	task, err := s.loader.StandaloneTaskFromConfig(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", name, err)
	}

	tasks, err := s.reconciler.RunStandaloneTask(ctx, task, command)
	if err != nil {
		return fmt.Errorf("error running task %s: %w", name, err)
	}
	for _, invoked := range tasks {
		fmt.Printf("Started task %s\n", invoked.Arn)
	}

	if taskRunNoWait {
		return nil
	}

	tasks, err = s.reconciler.WaitForTasks(ctx, task.Data.ClusterName, tasks)
	if err != nil {
		return err
	}
	return reportStoppedTasks(task.Data.Name, tasks)
}

func showStandaloneTaskInfo(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	task, err := s.loader.StandaloneTaskFromConfig(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", name, err)
	}
	td, err := task.TaskDefinition(ctx)
	if err != nil {
		return err
	}

	fmt.Print(render.FormatStandaloneTask(task, td))
	return nil
}

func init() {
	taskRunCmd.Flags().BoolVar(&taskRunNoWait, "no-wait", false,
		"do not wait for the task to stop")
	taskDeleteCmd.Flags().BoolVar(&taskDeleteForce, "force", false,
		"delete without prompting for confirmation")
	taskCmd.AddCommand(taskDeployCmd, taskDeleteCmd, taskRunCmd, taskInfoCmd)
	rootCmd.AddCommand(taskCmd)
}
