/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

// scheduleTargetID identifies the single ECS target each schedule rule
// carries.
const scheduleTargetID = "deployfish"

// ScheduleManager reads and writes the EventBridge rules that run tasks
// on a schedule.
type ScheduleManager struct {
	events aws.EventBridgeClient
	log    zerolog.Logger
}

// Get loads a schedule rule and its ECS target.
func (m *ScheduleManager) Get(ctx context.Context, name string) (*model.ScheduleRule, error) {
	rule, err := retryRead(ctx, m.log, "DescribeRule", func() (*eventbridge.DescribeRuleOutput, error) {
		return m.events.DescribeRule(ctx, &eventbridge.DescribeRuleInput{
			Name: awssdk.String(name),
		})
	})
	if err != nil {
		var notFound *ebtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, &model.DoesNotExistError{Kind: "schedule rule", PK: name}
		}
		return nil, err
	}

	data := model.ScheduleRuleData{
		Name:               awssdk.ToString(rule.Name),
		ScheduleExpression: awssdk.ToString(rule.ScheduleExpression),
		State:              string(rule.State),
	}
	targets, err := retryRead(ctx, m.log, "ListTargetsByRule", func() (*eventbridge.ListTargetsByRuleOutput, error) {
		return m.events.ListTargetsByRule(ctx, &eventbridge.ListTargetsByRuleInput{
			Rule: awssdk.String(name),
		})
	})
	if err != nil {
		return nil, err
	}
	if len(targets.Targets) > 0 {
		target := targets.Targets[0]
		data.ClusterArn = awssdk.ToString(target.Arn)
		data.RoleArn = awssdk.ToString(target.RoleArn)
		if ecsParams := target.EcsParameters; ecsParams != nil {
			data.TaskDefinitionArn = awssdk.ToString(ecsParams.TaskDefinitionArn)
			data.Count = awssdk.ToInt32(ecsParams.TaskCount)
			data.LaunchType = string(ecsParams.LaunchType)
			data.PlatformVersion = awssdk.ToString(ecsParams.PlatformVersion)
			data.Group = awssdk.ToString(ecsParams.Group)
			if nc := ecsParams.NetworkConfiguration; nc != nil && nc.AwsvpcConfiguration != nil {
				data.NetworkConfiguration = &model.NetworkConfiguration{
					Subnets:        nc.AwsvpcConfiguration.Subnets,
					SecurityGroups: nc.AwsvpcConfiguration.SecurityGroups,
					AssignPublicIP: string(nc.AwsvpcConfiguration.AssignPublicIp),
				}
			}
		}
	}
	return &model.ScheduleRule{Source: model.SourceAWS, Data: data}, nil
}

// Save writes the rule and its ECS target.  PutRule and PutTargets both
// upsert, so Save handles create and update alike.
func (m *ScheduleManager) Save(ctx context.Context, rule *model.ScheduleRule) error {
	data := rule.Data
	m.log.Info().
		Str("rule", data.Name).
		Str("schedule", data.ScheduleExpression).
		Msg("writing schedule rule")
	if _, err := m.events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               awssdk.String(data.Name),
		ScheduleExpression: awssdk.String(data.ScheduleExpression),
		State:              ebtypes.RuleStateEnabled,
	}); err != nil {
		return err
	}

	count := data.Count
	if count <= 0 {
		count = 1
	}
	ecsParams := &ebtypes.EcsParameters{
		TaskDefinitionArn: awssdk.String(data.TaskDefinitionArn),
		TaskCount:         awssdk.Int32(count),
	}
	if data.LaunchType != "" {
		ecsParams.LaunchType = ebtypes.LaunchType(data.LaunchType)
	}
	if data.PlatformVersion != "" {
		ecsParams.PlatformVersion = awssdk.String(data.PlatformVersion)
	}
	if data.Group != "" {
		ecsParams.Group = awssdk.String(data.Group)
	}
	if nc := data.NetworkConfiguration; nc != nil {
		ecsParams.NetworkConfiguration = &ebtypes.NetworkConfiguration{
			AwsvpcConfiguration: &ebtypes.AwsVpcConfiguration{
				Subnets:        nc.Subnets,
				SecurityGroups: nc.SecurityGroups,
				AssignPublicIp: ebtypes.AssignPublicIp(nc.AssignPublicIP),
			},
		}
	}
	_, err := m.events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: awssdk.String(data.Name),
		Targets: []ebtypes.Target{
			{
				Id:            awssdk.String(scheduleTargetID),
				Arn:           awssdk.String(data.ClusterArn),
				RoleArn:       awssdk.String(data.RoleArn),
				EcsParameters: ecsParams,
			},
		},
	})
	return err
}

// Delete removes the rule's target and then the rule.  A rule that does
// not exist is not an error.
func (m *ScheduleManager) Delete(ctx context.Context, name string) error {
	m.log.Info().Str("rule", name).Msg("deleting schedule rule")
	if _, err := m.events.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
		Rule: awssdk.String(name),
		Ids:  []string{scheduleTargetID},
	}); err != nil {
		var notFound *ebtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	if _, err := m.events.DeleteRule(ctx, &eventbridge.DeleteRuleInput{
		Name: awssdk.String(name),
	}); err != nil {
		var notFound *ebtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}
