/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	aastypes "github.com/aws/aws-sdk-go-v2/service/applicationautoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caltechads/deployfish/internal/model"
)

const testResourceID = "service/prod-cluster/web"

func TestScalingGetAssemblesTargetPoliciesAndAlarms(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockAutoScaling.On("DescribeScalableTargets", mock.Anything, mock.Anything).Return(
		&applicationautoscaling.DescribeScalableTargetsOutput{
			ScalableTargets: []aastypes.ScalableTarget{
				{
					ResourceId:  awssdk.String(testResourceID),
					MinCapacity: awssdk.Int32(2),
					MaxCapacity: awssdk.Int32(6),
				},
			},
		}, nil)
	clients.MockAutoScaling.On("DescribeScalingPolicies", mock.Anything, mock.Anything).Return(
		&applicationautoscaling.DescribeScalingPoliciesOutput{
			ScalingPolicies: []aastypes.ScalingPolicy{
				{
					PolicyName: awssdk.String("scale-up"),
					ResourceId: awssdk.String(testResourceID),
				},
			},
		}, nil)
	clients.MockCloudWatch.On("DescribeAlarms", mock.Anything, mock.MatchedBy(
		func(in *cloudwatch.DescribeAlarmsInput) bool {
			return in.AlarmNames[0] == "prod-cluster-web-scale-up"
		},
	)).Return(&cloudwatch.DescribeAlarmsOutput{
		MetricAlarms: []cwtypes.MetricAlarm{
			{AlarmName: awssdk.String("prod-cluster-web-scale-up")},
		},
	}, nil)

	target, err := reg.Scaling.Get(context.Background(), testResourceID)
	require.NoError(t, err)
	assert.Equal(t, int32(6), target.Data.MaxCapacity)
	require.Len(t, target.Policies, 1)
	require.NotNil(t, target.Policies[0].Alarm)
	assert.Equal(t, "prod-cluster-web-scale-up", target.Policies[0].Alarm.PK())
}

func TestScalingGetMissingTarget(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockAutoScaling.On("DescribeScalableTargets", mock.Anything, mock.Anything).Return(
		&applicationautoscaling.DescribeScalableTargetsOutput{}, nil)

	_, err := reg.Scaling.Get(context.Background(), testResourceID)
	var notFound *model.DoesNotExistError
	require.ErrorAs(t, err, &notFound)
}

func TestScalingSavePointsAlarmAtPolicyArn(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockAutoScaling.On("RegisterScalableTarget", mock.Anything, mock.MatchedBy(
		func(in *applicationautoscaling.RegisterScalableTargetInput) bool {
			return awssdk.ToInt32(in.MinCapacity) == 2 && awssdk.ToInt32(in.MaxCapacity) == 6
		},
	)).Return(&applicationautoscaling.RegisterScalableTargetOutput{}, nil)
	clients.MockAutoScaling.On("PutScalingPolicy", mock.Anything, mock.MatchedBy(
		func(in *applicationautoscaling.PutScalingPolicyInput) bool {
			cfg := in.StepScalingPolicyConfiguration
			// A positive adjustment steps above the threshold.
			return awssdk.ToString(in.PolicyName) == "scale-up" &&
				cfg.StepAdjustments[0].MetricIntervalLowerBound != nil
		},
	)).Return(&applicationautoscaling.PutScalingPolicyOutput{
		PolicyARN: awssdk.String("arn:policy:scale-up"),
	}, nil)
	clients.MockCloudWatch.On("PutMetricAlarm", mock.Anything, mock.MatchedBy(
		func(in *cloudwatch.PutMetricAlarmInput) bool {
			return in.AlarmActions[0] == "arn:policy:scale-up" &&
				awssdk.ToFloat64(in.Threshold) == 60.5
		},
	)).Return(&cloudwatch.PutMetricAlarmOutput{}, nil)

	target := &model.ScalableTarget{
		Source: model.SourceConfig,
		Data: model.ScalableTargetData{
			ResourceID:  testResourceID,
			MinCapacity: 2,
			MaxCapacity: 6,
		},
		Policies: []*model.ScalingPolicy{
			{
				Source: model.SourceConfig,
				Data: model.ScalingPolicyData{
					PolicyName:        "scale-up",
					ResourceID:        testResourceID,
					AdjustmentType:    "ChangeInCapacity",
					ScalingAdjustment: 1,
					Cooldown:          60,
				},
				Alarm: &model.Alarm{
					Source: model.SourceConfig,
					Data: model.AlarmData{
						AlarmName:          "prod-cluster-web-scale-up",
						MetricName:         "CPUUtilization",
						Namespace:          "AWS/ECS",
						Statistic:          "Average",
						ComparisonOperator: "GreaterThanOrEqualToThreshold",
						Threshold:          60.5,
						Period:             60,
						EvaluationPeriods:  5,
						Cluster:            "prod-cluster",
						Service:            "web",
					},
				},
			},
		},
	}
	require.NoError(t, reg.Scaling.Save(context.Background(), target))
	assert.Equal(t, "arn:policy:scale-up", target.Policies[0].Data.Arn)
	clients.MockCloudWatch.AssertExpectations(t)
}

func TestScalingDeleteMissingTargetIsNoop(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockAutoScaling.On("DescribeScalableTargets", mock.Anything, mock.Anything).Return(
		&applicationautoscaling.DescribeScalableTargetsOutput{}, nil)

	require.NoError(t, reg.Scaling.Delete(context.Background(), testResourceID))
	clients.MockAutoScaling.AssertNotCalled(t, "DeregisterScalableTarget", mock.Anything, mock.Anything)
}

func TestScalingDeleteTearsDownInOrder(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockAutoScaling.On("DescribeScalableTargets", mock.Anything, mock.Anything).Return(
		&applicationautoscaling.DescribeScalableTargetsOutput{
			ScalableTargets: []aastypes.ScalableTarget{
				{ResourceId: awssdk.String(testResourceID)},
			},
		}, nil)
	clients.MockAutoScaling.On("DescribeScalingPolicies", mock.Anything, mock.Anything).Return(
		&applicationautoscaling.DescribeScalingPoliciesOutput{
			ScalingPolicies: []aastypes.ScalingPolicy{
				{PolicyName: awssdk.String("scale-down"), ResourceId: awssdk.String(testResourceID)},
			},
		}, nil)
	clients.MockCloudWatch.On("DescribeAlarms", mock.Anything, mock.Anything).Return(
		&cloudwatch.DescribeAlarmsOutput{
			MetricAlarms: []cwtypes.MetricAlarm{
				{AlarmName: awssdk.String("prod-cluster-web-scale-down")},
			},
		}, nil)
	clients.MockCloudWatch.On("DeleteAlarms", mock.Anything, mock.MatchedBy(
		func(in *cloudwatch.DeleteAlarmsInput) bool {
			return in.AlarmNames[0] == "prod-cluster-web-scale-down"
		},
	)).Return(&cloudwatch.DeleteAlarmsOutput{}, nil)
	clients.MockAutoScaling.On("DeleteScalingPolicy", mock.Anything, mock.Anything).Return(
		&applicationautoscaling.DeleteScalingPolicyOutput{}, nil)
	clients.MockAutoScaling.On("DeregisterScalableTarget", mock.Anything, mock.Anything).Return(
		&applicationautoscaling.DeregisterScalableTargetOutput{}, nil)

	require.NoError(t, reg.Scaling.Delete(context.Background(), testResourceID))
	clients.MockAutoScaling.AssertExpectations(t)
	clients.MockCloudWatch.AssertExpectations(t)
}
