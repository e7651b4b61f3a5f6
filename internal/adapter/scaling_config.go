/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package adapter

import (
	"fmt"

	"github.com/caltechads/deployfish/internal/model"
)

const (
	ecsServiceNamespace  = "ecs"
	desiredCountDim      = "ecs:service:DesiredCount"
	defaultCooldown      = 60
	defaultCheckInterval = 60
	defaultCheckCount    = 5
)

// scalableTargetFromConfig builds the scaling envelope for a service:
// one scalable target, exactly two step scaling policies named scale-up
// and scale-down, and one CPU alarm per policy.
func scalableTargetFromConfig(scaling map[string]any, cluster, service, path string) (*model.ScalableTarget, error) {
	resourceID := fmt.Sprintf("service/%s/%s", cluster, service)
	target := &model.ScalableTarget{
		Source: model.SourceConfig,
		Data: model.ScalableTargetData{
			ServiceNamespace:  ecsServiceNamespace,
			ResourceID:        resourceID,
			ScalableDimension: desiredCountDim,
			MinCapacity:       getInt32(scaling, "min_capacity", 1),
			MaxCapacity:       getInt32(scaling, "max_capacity", 1),
			RoleArn:           getString(scaling, "role_arn"),
		},
	}
	if target.Data.MaxCapacity < target.Data.MinCapacity {
		return nil, convErr(KindService, path, "max_capacity is below min_capacity")
	}

	for _, direction := range []string{"scale-up", "scale-down"} {
		sign := int32(1)
		if direction == "scale-down" {
			sign = -1
		}
		stanza := getMap(scaling, direction)
		if stanza == nil {
			return nil, convErr(KindService, path+"."+direction,
				"application_scaling needs both scale-up and scale-down")
		}
		policy, err := scalingPolicyFromConfig(stanza, direction, sign, cluster, service, resourceID, path+"."+direction)
		if err != nil {
			return nil, err
		}
		target.Policies = append(target.Policies, policy)
	}
	return target, nil
}

func scalingPolicyFromConfig(stanza map[string]any, name string, sign int32, cluster, service, resourceID, path string) (*model.ScalingPolicy, error) {
	expr := getString(stanza, "cpu")
	if expr == "" {
		return nil, convErr(KindService, path+".cpu", "scaling policy has no cpu expression")
	}
	operator, threshold, err := model.ParseScalingExpression(expr)
	if err != nil {
		return nil, convErr(KindService, path+".cpu", "%v", err)
	}

	// scale_by is signed in the config (scale-down stanzas say -1); the
	// direction decides the sign of the applied adjustment.
	scaleBy := getInt32(stanza, "scale_by", 1)
	if scaleBy < 0 {
		scaleBy = -scaleBy
	}

	policy := &model.ScalingPolicy{
		Source: model.SourceConfig,
		Data: model.ScalingPolicyData{
			PolicyName:            name,
			PolicyType:            "StepScaling",
			ResourceID:            resourceID,
			ScalableDimension:     desiredCountDim,
			ServiceNamespace:      ecsServiceNamespace,
			AdjustmentType:        "ChangeInCapacity",
			ScalingAdjustment:     sign * scaleBy,
			Cooldown:              getInt32(stanza, "cooldown", defaultCooldown),
			MetricAggregationType: "Average",
		},
	}
	policy.Alarm = &model.Alarm{
		Source: model.SourceConfig,
		Data: model.AlarmData{
			AlarmName:          fmt.Sprintf("%s-%s-%s", cluster, service, name),
			MetricName:         "CPUUtilization",
			Namespace:          "AWS/ECS",
			Statistic:          "Average",
			ComparisonOperator: operator,
			Threshold:          threshold,
			Period:             getInt32(stanza, "check_every_seconds", defaultCheckInterval),
			EvaluationPeriods:  getInt32(stanza, "periods", defaultCheckCount),
			Cluster:            cluster,
			Service:            service,
		},
	}
	return policy, nil
}

// serviceDiscoveryFromConfig builds the Cloud Map entry for a service.
func serviceDiscoveryFromConfig(sd map[string]any, service, path string) (*model.ServiceDiscoveryService, error) {
	namespace := getString(sd, "namespace_id")
	if namespace == "" {
		namespace = getString(sd, "namespace")
	}
	if namespace == "" {
		return nil, convErr(KindService, path+".namespace", "service discovery needs a namespace")
	}
	name := getString(sd, "name")
	if name == "" {
		name = service
	}
	return &model.ServiceDiscoveryService{
		Source: model.SourceConfig,
		Data: model.ServiceDiscoveryData{
			Name:        name,
			NamespaceID: namespace,
			DNSType:     "A",
			DNSTTL:      getInt64(sd, "dns_ttl", 10),
		},
	}, nil
}
