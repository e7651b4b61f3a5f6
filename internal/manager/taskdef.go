/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

// TaskDefinitionManager reads and registers ECS task definitions.
// Registered revisions are immutable, so Save always registers a new
// revision and Delete is refused outright.
type TaskDefinitionManager struct {
	ecs      aws.ECSClient
	adapters *adapter.Registry
	log      zerolog.Logger
}

// Get loads a task definition by "family:revision", bare family (latest
// active revision) or full ARN.
func (m *TaskDefinitionManager) Get(ctx context.Context, pk string) (*model.TaskDefinition, error) {
	out, err := retryRead(ctx, m.log, "DescribeTaskDefinition", func() (*ecs.DescribeTaskDefinitionOutput, error) {
		return m.ecs.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{
			TaskDefinition: awssdk.String(pk),
		})
	})
	if err != nil {
		// ECS reports unknown task definitions as a ClientException rather
		// than a dedicated not-found error.
		var clientErr *ecstypes.ClientException
		if errors.As(err, &clientErr) {
			return nil, &model.DoesNotExistError{Kind: "task definition", PK: pk}
		}
		return nil, err
	}
	if out.TaskDefinition == nil {
		return nil, &model.DoesNotExistError{Kind: "task definition", PK: pk}
	}
	return adapter.NewTaskDefinitionFromAWS(ctx, m.adapters, *out.TaskDefinition)
}

// List returns the ARNs of every registered revision in a family, oldest
// first.
func (m *TaskDefinitionManager) List(ctx context.Context, family string) ([]string, error) {
	var arns []string
	var nextToken *string
	for {
		out, err := retryRead(ctx, m.log, "ListTaskDefinitions", func() (*ecs.ListTaskDefinitionsOutput, error) {
			return m.ecs.ListTaskDefinitions(ctx, &ecs.ListTaskDefinitionsInput{
				FamilyPrefix: awssdk.String(family),
				NextToken:    nextToken,
			})
		})
		if err != nil {
			return nil, err
		}
		arns = append(arns, out.TaskDefinitionArns...)
		if out.NextToken == nil {
			return arns, nil
		}
		nextToken = out.NextToken
	}
}

// Save registers the task definition as a new revision and updates the
// model in place with the assigned revision, ARN and status.
func (m *TaskDefinitionManager) Save(ctx context.Context, td *model.TaskDefinition) error {
	if err := td.Validate(); err != nil {
		return err
	}
	m.log.Info().Str("family", td.Data.Family).Msg("registering task definition")
	out, err := m.ecs.RegisterTaskDefinition(ctx, registerTaskDefinitionInput(td))
	if err != nil {
		return err
	}
	registered := out.TaskDefinition
	td.Data.Revision = registered.Revision
	td.Data.Arn = awssdk.ToString(registered.TaskDefinitionArn)
	td.Data.Status = string(registered.Status)
	m.log.Info().Str("task_definition", td.PK()).Msg("registered task definition")
	return nil
}

// Delete is refused: revisions are immutable and deregistering old ones
// would break the helper task bindings recorded on older deploys.
func (m *TaskDefinitionManager) Delete(_ context.Context, pk string) error {
	return &model.ReadOnlyError{Kind: "task definition", PK: pk, Operation: "delete"}
}
