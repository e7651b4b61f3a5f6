/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// InvalidScalingExpressionError indicates an application_scaling cpu
// expression that does not match "(<=|<|>=|>)FLOAT".
type InvalidScalingExpressionError struct {
	Expression string
}

func (e *InvalidScalingExpressionError) Error() string {
	return fmt.Sprintf(
		"invalid scaling expression %q: want comparison operator followed by a number, like \">=60.5\"",
		e.Expression,
	)
}

var scalingExpression = regexp.MustCompile(`^(<=|>=|<|>)([0-9]+(?:\.[0-9]+)?)$`)

// comparisonOperators maps expression operators to the CloudWatch alarm
// comparison operators they turn into.
var comparisonOperators = map[string]string{
	">":  "GreaterThanThreshold",
	">=": "GreaterThanOrEqualToThreshold",
	"<":  "LessThanThreshold",
	"<=": "LessThanOrEqualToThreshold",
}

// ParseScalingExpression splits a scaling trigger expression into its
// CloudWatch comparison operator and threshold.
func ParseScalingExpression(expr string) (operator string, threshold float64, err error) {
	m := scalingExpression.FindStringSubmatch(expr)
	if m == nil {
		return "", 0, &InvalidScalingExpressionError{Expression: expr}
	}
	threshold, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return "", 0, &InvalidScalingExpressionError{Expression: expr}
	}
	return comparisonOperators[m[1]], threshold, nil
}

// ScalableTargetData mirrors an Application Auto Scaling scalable target
// for an ECS service.
type ScalableTargetData struct {
	ServiceNamespace  string
	ResourceID        string
	ScalableDimension string
	MinCapacity       int32
	MaxCapacity       int32
	RoleArn           string
}

// ScalableTarget models the scaling envelope of one service, together
// with its two step scaling policies.
type ScalableTarget struct {
	Source   Source
	Data     ScalableTargetData
	Policies []*ScalingPolicy
}

// PK is the Application Auto Scaling resource id,
// "service/<cluster>/<service>".
func (st *ScalableTarget) PK() string { return st.Data.ResourceID }

// ScalingPolicyData mirrors a step scaling policy.
type ScalingPolicyData struct {
	PolicyName            string
	PolicyType            string
	ResourceID            string
	ScalableDimension     string
	ServiceNamespace      string
	AdjustmentType        string
	ScalingAdjustment     int32
	Cooldown              int32
	MetricAggregationType string
	Arn                   string
}

// ScalingPolicy models one step scaling policy and the CloudWatch alarm
// that triggers it.
type ScalingPolicy struct {
	Source Source
	Data   ScalingPolicyData
	Alarm  *Alarm
}

// PK is "<resource-id>:<policy-name>".
func (sp *ScalingPolicy) PK() string {
	return fmt.Sprintf("%s:%s", sp.Data.ResourceID, sp.Data.PolicyName)
}

// AlarmData mirrors a CloudWatch metric alarm on service CPU.
type AlarmData struct {
	AlarmName          string
	MetricName         string
	Namespace          string
	Statistic          string
	ComparisonOperator string
	Threshold          float64
	Period             int32
	EvaluationPeriods  int32
	Cluster            string
	Service            string
	AlarmActions       []string
}

// Alarm models the CloudWatch alarm attached to a scaling policy.
type Alarm struct {
	Source Source
	Data   AlarmData
}

// PK is the alarm name.
func (a *Alarm) PK() string { return a.Data.AlarmName }
