/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConfigWriteCommand_WritesOwnedParameters(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	clients.MockSSM.On("PutParameter", mock.Anything,
		mock.MatchedBy(func(in *ssm.PutParameterInput) bool {
			return strings.HasPrefix(awssdk.ToString(in.Name), "prod-cluster.web.")
		})).Return(&ssm.PutParameterOutput{}, nil).Twice()

	err := executeCommand("config", "write", "web")
	require.NoError(t, err)
	clients.MockSSM.AssertExpectations(t)
}

func TestConfigShowCommand_ComparesAgainstLive(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	clients.MockSSM.On("DescribeParameters", mock.Anything,
		mock.MatchedBy(func(in *ssm.DescribeParametersInput) bool {
			return in.ParameterFilters[0].Values[0] == "prod-cluster.web."
		})).Return(&ssm.DescribeParametersOutput{
		Parameters: []ssmtypes.ParameterMetadata{
			{Name: awssdk.String("prod-cluster.web.DB_HOST")},
		},
	}, nil).Once()
	clients.MockSSM.On("GetParameters", mock.Anything, mock.Anything).
		Return(&ssm.GetParametersOutput{
			Parameters: []ssmtypes.Parameter{
				{
					Name:  awssdk.String("prod-cluster.web.DB_HOST"),
					Value: awssdk.String("db.internal"),
					Type:  ssmtypes.ParameterTypeString,
				},
			},
		}, nil).Once()

	err := executeCommand("config", "show", "web")
	require.NoError(t, err)
	clients.MockSSM.AssertExpectations(t)
	clients.MockSSM.AssertNotCalled(t, "PutParameter", mock.Anything, mock.Anything)
}

func TestConfigShowCommand_ExpandsWildcardParameters(t *testing.T) {
	s, clients := newMockSession(t, `
services:
  - name: web
    cluster: prod-cluster
    family: prod-web
    count: 1
    launch_type: FARGATE
    execution_role: arn:aws:iam::123456789012:role/ecsTaskExecutionRole
    cpu: "256"
    memory: "512"
    vpc_configuration:
      subnets:
        - subnet-aaa
    containers:
      - name: web
        image: example/web:1.2.3
    config:
      - DB_HOST=db.internal
      - shared.db.*:external
`)
	withSession(t, s)

	// The wildcard is resolved against Parameter Store before comparing.
	clients.MockSSM.On("DescribeParameters", mock.Anything,
		mock.MatchedBy(func(in *ssm.DescribeParametersInput) bool {
			return in.ParameterFilters[0].Values[0] == "shared.db."
		})).Return(&ssm.DescribeParametersOutput{
		Parameters: []ssmtypes.ParameterMetadata{
			{Name: awssdk.String("shared.db.HOST")},
		},
	}, nil).Once()
	clients.MockSSM.On("GetParameters", mock.Anything,
		mock.MatchedBy(func(in *ssm.GetParametersInput) bool {
			return len(in.Names) == 1 && in.Names[0] == "shared.db.HOST"
		})).Return(&ssm.GetParametersOutput{
		Parameters: []ssmtypes.Parameter{
			{
				Name:  awssdk.String("shared.db.HOST"),
				Value: awssdk.String("db.shared.internal"),
				Type:  ssmtypes.ParameterTypeString,
			},
		},
	}, nil).Once()
	clients.MockSSM.On("DescribeParameters", mock.Anything,
		mock.MatchedBy(func(in *ssm.DescribeParametersInput) bool {
			return in.ParameterFilters[0].Values[0] == "prod-cluster.web."
		})).Return(&ssm.DescribeParametersOutput{}, nil).Once()

	err := executeCommand("config", "show", "web")
	require.NoError(t, err)
	clients.MockSSM.AssertExpectations(t)
}
