/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	aastypes "github.com/aws/aws-sdk-go-v2/service/applicationautoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

// ScalingManager reads and writes the Application Auto Scaling target,
// step scaling policies and CloudWatch alarms of a service as one unit.
type ScalingManager struct {
	autoscaling aws.AutoScalingClient
	cloudwatch  aws.CloudWatchClient
	adapters    *adapter.Registry
	log         zerolog.Logger
}

// splitResourceID splits "service/<cluster>/<service>".
func splitResourceID(resourceID string) (cluster, service string, err error) {
	parts := strings.Split(resourceID, "/")
	if len(parts) != 3 || parts[0] != "service" || parts[1] == "" || parts[2] == "" {
		return "", "", &InvalidPKError{
			Kind: "scalable target", PK: resourceID, Want: "service/cluster/service",
		}
	}
	return parts[1], parts[2], nil
}

// alarmName is the naming convention binding a policy's alarm to its
// service.
func alarmName(cluster, service, policy string) string {
	return fmt.Sprintf("%s-%s-%s", cluster, service, policy)
}

// Get assembles the full scaling setup of a service from the scalable
// target, its policies and their alarms.
func (m *ScalingManager) Get(ctx context.Context, resourceID string) (*model.ScalableTarget, error) {
	cluster, service, err := splitResourceID(resourceID)
	if err != nil {
		return nil, err
	}
	targets, err := retryRead(ctx, m.log, "DescribeScalableTargets",
		func() (*applicationautoscaling.DescribeScalableTargetsOutput, error) {
			return m.autoscaling.DescribeScalableTargets(ctx, &applicationautoscaling.DescribeScalableTargetsInput{
				ServiceNamespace: aastypes.ServiceNamespaceEcs,
				ResourceIds:      []string{resourceID},
			})
		})
	if err != nil {
		return nil, err
	}
	if len(targets.ScalableTargets) == 0 {
		return nil, &model.DoesNotExistError{Kind: "scalable target", PK: resourceID}
	}
	bundle := adapter.ScalableTargetAWS{Target: targets.ScalableTargets[0]}

	policies, err := retryRead(ctx, m.log, "DescribeScalingPolicies",
		func() (*applicationautoscaling.DescribeScalingPoliciesOutput, error) {
			return m.autoscaling.DescribeScalingPolicies(ctx, &applicationautoscaling.DescribeScalingPoliciesInput{
				ServiceNamespace: aastypes.ServiceNamespaceEcs,
				ResourceId:       awssdk.String(resourceID),
			})
		})
	if err != nil {
		return nil, err
	}
	for _, policy := range policies.ScalingPolicies {
		entry := adapter.ScalingPolicyAWS{Policy: policy}
		name := alarmName(cluster, service, awssdk.ToString(policy.PolicyName))
		alarms, err := retryRead(ctx, m.log, "DescribeAlarms",
			func() (*cloudwatch.DescribeAlarmsOutput, error) {
				return m.cloudwatch.DescribeAlarms(ctx, &cloudwatch.DescribeAlarmsInput{
					AlarmNames: []string{name},
				})
			})
		if err != nil {
			return nil, err
		}
		if len(alarms.MetricAlarms) > 0 {
			entry.Alarm = &alarms.MetricAlarms[0]
		}
		bundle.Policies = append(bundle.Policies, entry)
	}
	return adapter.NewScalableTargetFromAWS(ctx, m.adapters, bundle)
}

// Save registers the scalable target, then writes each policy and its
// alarm, pointing the alarm's action at the policy's assigned ARN.
func (m *ScalingManager) Save(ctx context.Context, target *model.ScalableTarget) error {
	data := target.Data
	m.log.Info().Str("resource", data.ResourceID).Msg("registering scalable target")
	input := &applicationautoscaling.RegisterScalableTargetInput{
		ServiceNamespace:  aastypes.ServiceNamespaceEcs,
		ResourceId:        awssdk.String(data.ResourceID),
		ScalableDimension: aastypes.ScalableDimensionECSServiceDesiredCount,
		MinCapacity:       awssdk.Int32(data.MinCapacity),
		MaxCapacity:       awssdk.Int32(data.MaxCapacity),
	}
	if data.RoleArn != "" {
		input.RoleARN = awssdk.String(data.RoleArn)
	}
	if _, err := m.autoscaling.RegisterScalableTarget(ctx, input); err != nil {
		return err
	}
	for _, policy := range target.Policies {
		if err := m.savePolicy(ctx, policy); err != nil {
			return err
		}
	}
	return nil
}

func (m *ScalingManager) savePolicy(ctx context.Context, policy *model.ScalingPolicy) error {
	data := policy.Data
	step := aastypes.StepAdjustment{
		ScalingAdjustment: awssdk.Int32(data.ScalingAdjustment),
	}
	// Scale-up policies step above the alarm threshold, scale-down
	// policies below it.
	if data.ScalingAdjustment >= 0 {
		step.MetricIntervalLowerBound = awssdk.Float64(0)
	} else {
		step.MetricIntervalUpperBound = awssdk.Float64(0)
	}
	out, err := m.autoscaling.PutScalingPolicy(ctx, &applicationautoscaling.PutScalingPolicyInput{
		PolicyName:        awssdk.String(data.PolicyName),
		PolicyType:        aastypes.PolicyTypeStepScaling,
		ServiceNamespace:  aastypes.ServiceNamespaceEcs,
		ResourceId:        awssdk.String(data.ResourceID),
		ScalableDimension: aastypes.ScalableDimensionECSServiceDesiredCount,
		StepScalingPolicyConfiguration: &aastypes.StepScalingPolicyConfiguration{
			AdjustmentType:        aastypes.AdjustmentType(data.AdjustmentType),
			Cooldown:              awssdk.Int32(data.Cooldown),
			MetricAggregationType: aastypes.MetricAggregationType(data.MetricAggregationType),
			StepAdjustments:       []aastypes.StepAdjustment{step},
		},
	})
	if err != nil {
		return err
	}
	policy.Data.Arn = awssdk.ToString(out.PolicyARN)
	m.log.Info().
		Str("policy", policy.PK()).
		Str("arn", policy.Data.Arn).
		Msg("wrote scaling policy")

	if policy.Alarm == nil {
		return nil
	}
	alarm := policy.Alarm.Data
	_, err = m.cloudwatch.PutMetricAlarm(ctx, &cloudwatch.PutMetricAlarmInput{
		AlarmName:          awssdk.String(alarm.AlarmName),
		MetricName:         awssdk.String(alarm.MetricName),
		Namespace:          awssdk.String(alarm.Namespace),
		Statistic:          cwtypes.Statistic(alarm.Statistic),
		ComparisonOperator: cwtypes.ComparisonOperator(alarm.ComparisonOperator),
		Threshold:          awssdk.Float64(alarm.Threshold),
		Period:             awssdk.Int32(alarm.Period),
		EvaluationPeriods:  awssdk.Int32(alarm.EvaluationPeriods),
		Unit:               cwtypes.StandardUnitPercent,
		AlarmActions:       []string{policy.Data.Arn},
		Dimensions: []cwtypes.Dimension{
			{Name: awssdk.String("ClusterName"), Value: awssdk.String(alarm.Cluster)},
			{Name: awssdk.String("ServiceName"), Value: awssdk.String(alarm.Service)},
		},
	})
	if err != nil {
		return err
	}
	m.log.Info().Str("alarm", alarm.AlarmName).Msg("wrote alarm")
	return nil
}

// Delete tears the scaling setup down: alarms first, then policies, then
// the scalable target itself.  A target that does not exist is not an
// error.
func (m *ScalingManager) Delete(ctx context.Context, resourceID string) error {
	target, err := m.Get(ctx, resourceID)
	if err != nil {
		var notFound *model.DoesNotExistError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	var alarms []string
	for _, policy := range target.Policies {
		if policy.Alarm != nil {
			alarms = append(alarms, policy.Alarm.Data.AlarmName)
		}
	}
	if len(alarms) > 0 {
		m.log.Info().Strs("alarms", alarms).Msg("deleting alarms")
		if _, err := m.cloudwatch.DeleteAlarms(ctx, &cloudwatch.DeleteAlarmsInput{
			AlarmNames: alarms,
		}); err != nil {
			return err
		}
	}
	for _, policy := range target.Policies {
		m.log.Info().Str("policy", policy.PK()).Msg("deleting scaling policy")
		if _, err := m.autoscaling.DeleteScalingPolicy(ctx, &applicationautoscaling.DeleteScalingPolicyInput{
			PolicyName:        awssdk.String(policy.Data.PolicyName),
			ServiceNamespace:  aastypes.ServiceNamespaceEcs,
			ResourceId:        awssdk.String(resourceID),
			ScalableDimension: aastypes.ScalableDimensionECSServiceDesiredCount,
		}); err != nil {
			return err
		}
	}
	m.log.Info().Str("resource", resourceID).Msg("deregistering scalable target")
	_, err = m.autoscaling.DeregisterScalableTarget(ctx, &applicationautoscaling.DeregisterScalableTargetInput{
		ServiceNamespace:  aastypes.ServiceNamespaceEcs,
		ResourceId:        awssdk.String(resourceID),
		ScalableDimension: aastypes.ScalableDimensionECSServiceDesiredCount,
	})
	return err
}
