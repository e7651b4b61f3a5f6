/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caltechads/deployfish/internal/model"
)

func TestScheduleGet(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockEventBridge.On("DescribeRule", mock.Anything, mock.Anything).Return(
		&eventbridge.DescribeRuleOutput{
			Name:               awssdk.String("deployfish-nightly-report"),
			ScheduleExpression: awssdk.String("cron(0 4 * * ? *)"),
			State:              ebtypes.RuleStateEnabled,
		}, nil)
	clients.MockEventBridge.On("ListTargetsByRule", mock.Anything, mock.Anything).Return(
		&eventbridge.ListTargetsByRuleOutput{
			Targets: []ebtypes.Target{
				{
					Id:      awssdk.String(scheduleTargetID),
					Arn:     awssdk.String("arn:aws:ecs:us-west-2:1:cluster/prod-cluster"),
					RoleArn: awssdk.String("arn:aws:iam::1:role/schedule"),
					EcsParameters: &ebtypes.EcsParameters{
						TaskDefinitionArn: awssdk.String("arn:aws:ecs:us-west-2:1:task-definition/nightly-report:4"),
						TaskCount:         awssdk.Int32(1),
						LaunchType:        ebtypes.LaunchTypeFargate,
					},
				},
			},
		}, nil)

	rule, err := reg.Schedule.Get(context.Background(), "deployfish-nightly-report")
	require.NoError(t, err)
	assert.Equal(t, "cron(0 4 * * ? *)", rule.Data.ScheduleExpression)
	assert.Equal(t, "FARGATE", rule.Data.LaunchType)
	assert.Contains(t, rule.Data.TaskDefinitionArn, "nightly-report:4")
}

func TestScheduleGetMissing(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockEventBridge.On("DescribeRule", mock.Anything, mock.Anything).Return(
		nil, &ebtypes.ResourceNotFoundException{Message: awssdk.String("rule not found")})

	_, err := reg.Schedule.Get(context.Background(), "deployfish-nope")
	var notFound *model.DoesNotExistError
	require.ErrorAs(t, err, &notFound)
}

func TestScheduleSaveWritesRuleAndTarget(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockEventBridge.On("PutRule", mock.Anything, mock.MatchedBy(
		func(in *eventbridge.PutRuleInput) bool {
			return awssdk.ToString(in.Name) == "deployfish-nightly-report" &&
				in.State == ebtypes.RuleStateEnabled
		},
	)).Return(&eventbridge.PutRuleOutput{}, nil)
	clients.MockEventBridge.On("PutTargets", mock.Anything, mock.MatchedBy(
		func(in *eventbridge.PutTargetsInput) bool {
			target := in.Targets[0]
			return awssdk.ToString(target.Id) == scheduleTargetID &&
				awssdk.ToInt32(target.EcsParameters.TaskCount) == 1
		},
	)).Return(&eventbridge.PutTargetsOutput{}, nil)

	rule := &model.ScheduleRule{
		Source: model.SourceConfig,
		Data: model.ScheduleRuleData{
			Name:               model.ScheduleRuleName("nightly-report"),
			ScheduleExpression: "cron(0 4 * * ? *)",
			TaskDefinitionArn:  "arn:aws:ecs:us-west-2:1:task-definition/nightly-report:5",
			ClusterArn:         "arn:aws:ecs:us-west-2:1:cluster/prod-cluster",
			RoleArn:            "arn:aws:iam::1:role/schedule",
		},
	}
	require.NoError(t, reg.Schedule.Save(context.Background(), rule))
	clients.MockEventBridge.AssertExpectations(t)
}

func TestScheduleDeleteToleratesMissingRule(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockEventBridge.On("RemoveTargets", mock.Anything, mock.Anything).Return(
		nil, &ebtypes.ResourceNotFoundException{Message: awssdk.String("rule not found")})

	require.NoError(t, reg.Schedule.Delete(context.Background(), "deployfish-nope"))
	clients.MockEventBridge.AssertNotCalled(t, "DeleteRule", mock.Anything, mock.Anything)
}
