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
)

var (
	runNoWait bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <service-name> <command>",
	Short: "Run a helper command against a deployed service",
	Long: `Run one of a service's helper commands as a one-off ECS task.

Helper tasks declare named commands in deployfish.yml (migrations,
maintenance scripts and the like).  When a service is deployed, the
exact helper task definition revisions that were registered alongside
it are recorded on the service's task definition.  This command reads
those recorded revisions from the live service, so the command always
runs against the code that is actually deployed, even if the config
file has changed since.

The command name must be unambiguous across the service's helper tasks,
and the service must have been deployed at least once.

Examples:
  deployfish run web migrate           # Run the migrate helper command
  deployfish run --no-wait web reindex # Start the task and return`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return runHelperCommand(ctx, args[0], args[1])
	},
}

// runHelperCommand starts a helper command and reports how it finished.
func runHelperCommand(ctx context.Context, name, command string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	svc, err := s.loader.ServiceFromConfig(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load service %s: %w", name, err)
	}

	tasks, err := s.reconciler.RunHelper(ctx, svc, command)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		fmt.Printf("Started task %s\n", task.Arn)
	}

	if runNoWait {
		return nil
	}

	tasks, err = s.reconciler.WaitForTasks(ctx, svc.Cluster(), tasks)
	if err != nil {
		return err
	}
	return reportStoppedTasks(command, tasks)
}

// reportStoppedTasks prints the terminal state of each task and returns
// an error if any container exited non-zero.
func reportStoppedTasks(command string, tasks []*model.InvokedTask) error {
	failed := 0
	for _, task := range tasks {
		if task.Succeeded() {
			fmt.Printf("Task %s finished successfully\n", task.Arn)
			continue
		}
		failed++
		if task.StoppedReason != "" {
			fmt.Printf("Task %s failed: %s\n", task.Arn, task.StoppedReason)
		} else if task.ExitCode != nil {
			fmt.Printf("Task %s exited with code %d\n", task.Arn, *task.ExitCode)
		} else {
			fmt.Printf("Task %s stopped without an exit code\n", task.Arn)
		}
	}
	if failed > 0 {
		return fmt.Errorf("command %q failed on %d of %d tasks", command, failed, len(tasks))
	}
	return nil
}

func init() {
	runCmd.Flags().BoolVar(&runNoWait, "no-wait", false,
		"do not wait for the task to stop")
	rootCmd.AddCommand(runCmd)
}
