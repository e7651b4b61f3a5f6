/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caltechads/deployfish/internal/model"
	"github.com/caltechads/deployfish/internal/render"
)

var (
	infoTemplate string
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <service-name>",
	Short: "Display detailed information about an ECS service",
	Long: `Display comprehensive information about a service from deployfish.yml.

This command shows what the config file declares for a service, merged
with the live deployment state where the service exists in AWS:

• Service status, deployed task definition and desired count
• Load balancers and service discovery
• Application autoscaling capacity and policies
• Task definition containers (image, command, ports, environment)
• AWS Parameter Store config parameter names
• Helper tasks and their runnable commands

Output can be customised with a Go template via --template; the full
Sprig function set is available and the template is executed against
the service description.

Examples:
  deployfish info web                                  # Show everything about web
  deployfish info --template '{{ .Service.PK }}' web   # Just the primary key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return showServiceInfo(ctx, args[0])
	},
}

// showServiceInfo assembles and prints the description of one service.
func showServiceInfo(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	desc, err := describeService(ctx, s, name)
	if err != nil {
		return err
	}

	if infoTemplate != "" {
		out, err := render.NewTemplateRenderer().Render(infoTemplate, desc)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	fmt.Print(render.FormatServiceDescription(desc))
	return nil
}

// describeService builds a service description from the config file,
// overlaying live state when the service is deployed.
func describeService(ctx context.Context, s *session, name string) (*render.ServiceDescription, error) {
	svc, err := s.loader.ServiceFromConfig(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load service %s: %w", name, err)
	}

	live, err := s.managers.Service.Get(ctx, svc.PK())
	if err != nil {
		var notFound *model.DoesNotExistError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read live state of service %s: %w", name, err)
		}
	} else {
		svc.Data.Status = live.Data.Status
		svc.Data.TaskDefinition = live.Data.TaskDefinition
	}

	desc := &render.ServiceDescription{Service: svc}
	if desc.TaskDefinition, err = svc.TaskDefinition(ctx); err != nil {
		return nil, err
	}
	if desc.AppScaling, err = svc.AppScaling(ctx); err != nil {
		return nil, err
	}
	if desc.Discovery, err = svc.ServiceDiscovery(ctx); err != nil {
		return nil, err
	}
	if desc.Secrets, err = svc.Secrets(ctx); err != nil {
		return nil, err
	}
	return desc, nil
}

func init() {
	infoCmd.Flags().StringVar(&infoTemplate, "template", "",
		"Go template to render instead of the default output")
	rootCmd.AddCommand(infoCmd)
}
