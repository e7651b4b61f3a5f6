/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDeployCommand_CreatesService(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	clients.MockSSM.On("PutParameter", mock.Anything,
		mock.MatchedBy(func(in *ssm.PutParameterInput) bool {
			return strings.HasPrefix(awssdk.ToString(in.Name), "prod-cluster.web.")
		})).Return(&ssm.PutParameterOutput{}, nil).Twice()

	clients.MockECS.On("RegisterTaskDefinition", mock.Anything,
		mock.MatchedBy(func(in *ecs.RegisterTaskDefinitionInput) bool {
			return awssdk.ToString(in.Family) == "prod-web"
		})).Return(&ecs.RegisterTaskDefinitionOutput{
		TaskDefinition: &ecstypes.TaskDefinition{
			Family:            awssdk.String("prod-web"),
			Revision:          12,
			TaskDefinitionArn: awssdk.String("arn:aws:ecs:us-west-2:123456789012:task-definition/prod-web:12"),
			Status:            ecstypes.TaskDefinitionStatusActive,
		},
	}, nil).Once()

	// The service does not exist yet: the live reads find nothing.
	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).
		Return(&ecs.DescribeServicesOutput{}, nil)
	clients.MockECS.On("CreateService", mock.Anything,
		mock.MatchedBy(func(in *ecs.CreateServiceInput) bool {
			return awssdk.ToString(in.TaskDefinition) == "prod-web:12" &&
				awssdk.ToString(in.Cluster) == "prod-cluster"
		})).Return(&ecs.CreateServiceOutput{Service: &ecstypes.Service{}}, nil).Once()

	// No application_scaling in config: the reconciler checks for live
	// scaling to remove and finds none.
	clients.MockAutoScaling.On("DescribeScalableTargets", mock.Anything, mock.Anything).
		Return(&applicationautoscaling.DescribeScalableTargetsOutput{}, nil)

	err := executeCommand("deploy", "--no-wait", "web")
	require.NoError(t, err)
	clients.MockECS.AssertExpectations(t)
	clients.MockSSM.AssertExpectations(t)
}

func TestDeployCommand_UnknownService(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	err := executeCommand("deploy", "--no-wait", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	clients.MockECS.AssertNotCalled(t, "CreateService", mock.Anything, mock.Anything)
}
