/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScaleCommand_SetsDesiredCount(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	clients.MockECS.On("UpdateService", mock.Anything,
		mock.MatchedBy(func(in *ecs.UpdateServiceInput) bool {
			return awssdk.ToString(in.Cluster) == "prod-cluster" &&
				awssdk.ToString(in.Service) == "web" &&
				awssdk.ToInt32(in.DesiredCount) == 4
		})).Return(&ecs.UpdateServiceOutput{}, nil).Once()

	err := executeCommand("scale", "--no-wait", "web", "4")
	require.NoError(t, err)
	clients.MockECS.AssertExpectations(t)
}

func TestScaleCommand_RejectsBadCount(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	err := executeCommand("scale", "--no-wait", "web", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a non-negative integer")
	clients.MockECS.AssertNotCalled(t, "UpdateService", mock.Anything, mock.Anything)
}

func TestRestartCommand_ForcesNewDeployment(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	clients.MockECS.On("UpdateService", mock.Anything,
		mock.MatchedBy(func(in *ecs.UpdateServiceInput) bool {
			return awssdk.ToString(in.Cluster) == "prod-cluster" &&
				awssdk.ToString(in.Service) == "web" &&
				in.ForceNewDeployment
		})).Return(&ecs.UpdateServiceOutput{}, nil).Once()

	err := executeCommand("restart", "--no-wait", "web")
	require.NoError(t, err)
	clients.MockECS.AssertExpectations(t)
}

func TestScaleCommand_DereferencesEnvironment(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	// "prod" matches the service's environment, not its name.
	clients.MockECS.On("UpdateService", mock.Anything,
		mock.MatchedBy(func(in *ecs.UpdateServiceInput) bool {
			return awssdk.ToString(in.Service) == "web"
		})).Return(&ecs.UpdateServiceOutput{}, nil).Once()

	err := executeCommand("scale", "--no-wait", "prod", "2")
	require.NoError(t, err)
	clients.MockECS.AssertExpectations(t)
}
