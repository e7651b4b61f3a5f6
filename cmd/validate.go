/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the deployfish.yml config file",
	Long: `Validate the config file without touching any AWS resources.

The file is parsed, ${env.VAR} and ${terraform.KEY} references are
resolved, and every service and standalone task is converted to its
normalized form.  This catches undefined environment variables, missing
terraform outputs, malformed config parameters, bad scaling expressions
and structurally invalid service definitions before a deploy does.

Examples:
  deployfish validate                 # Validate deployfish.yml
  deployfish validate -f staging.yml  # Validate another file`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return validateConfig(ctx)
	},
}

// validateConfig loads and converts every item in the config file.
func validateConfig(ctx context.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	services, err := s.loader.Services(ctx)
	if err != nil {
		return fmt.Errorf("config file %s is invalid: %w", s.cfg.Filename(), err)
	}
	tasks, err := s.loader.StandaloneTasks(ctx)
	if err != nil {
		return fmt.Errorf("config file %s is invalid: %w", s.cfg.Filename(), err)
	}

	for _, svc := range services {
		fmt.Printf("✓ service %s (cluster %s)\n", svc.Name(), svc.Cluster())
	}
	for _, task := range tasks {
		fmt.Printf("✓ task %s (cluster %s)\n", task.Data.Name, task.Data.ClusterName)
	}
	fmt.Printf("Config file %s is valid: %d services, %d tasks\n",
		s.cfg.Filename(), len(services), len(tasks))
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
