/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flag values, bound in init
var (
	configFilename string
	envFile        string
	importEnv      bool
	tfeTokenFlag   string
	awsRegion      string
	awsProfile     string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deployfish",
	Short: "A command-line tool for managing AWS ECS services as code",
	Long: `Deployfish is a CLI tool that manages the full lifecycle of ECS services
and one-off tasks from a single deployfish.yml file:

• Declarative service, task definition and container configuration
• ${env.VAR} and ${terraform.KEY} interpolation from env files and
  remote Terraform state
• Application autoscaling, service discovery and scheduled tasks
  reconciled alongside the service itself
• AWS Parameter Store backed per-service configuration
• One-off helper commands run against the exact deployed revision

Use deployfish to deploy, inspect, scale, restart and delete your ECS
services across multiple environments with consistent, repeatable
configurations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFilename, "filename", "f", "",
		"config file (default is deployfish.yml, or $DEPLOYFISH_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env_file", "",
		"file of KEY=VALUE lines that seeds ${env.VAR} interpolation")
	rootCmd.PersistentFlags().BoolVar(&importEnv, "import_env", false,
		"merge the process environment into ${env.VAR} interpolation")
	rootCmd.PersistentFlags().StringVar(&tfeTokenFlag, "tfe_token", "",
		"Terraform Enterprise API token (default is $ATLAS_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&awsRegion, "region", "",
		"AWS region (overrides environment and shared config)")
	rootCmd.PersistentFlags().StringVar(&awsProfile, "profile", "",
		"AWS shared-credentials profile")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}
