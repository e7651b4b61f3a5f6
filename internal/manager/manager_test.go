/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

func newTestRegistry() (*Registry, *aws.MockClients) {
	clients := aws.NewMockClients()
	return New(clients, adapter.Default(), zerolog.Nop()), clients
}

func TestRetryReadRetriesTransientFailures(t *testing.T) {
	calls := 0
	out, err := retryRead(context.Background(), zerolog.Nop(), "op", func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestRetryReadDoesNotRetryAPIErrors(t *testing.T) {
	calls := 0
	apiErr := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "nope"}
	_, err := retryRead(context.Background(), zerolog.Nop(), "op", func() (string, error) {
		calls++
		return "", apiErr
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryReadGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := retryRead(context.Background(), zerolog.Nop(), "op", func() (string, error) {
		calls++
		return "", errors.New("still broken")
	})
	require.Error(t, err)
	assert.Equal(t, readRetries, calls)
}

func TestRegistryResolvesTaskDefinitionsForLazyServices(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).Return(
		&ecs.DescribeServicesOutput{
			Services: []ecstypes.Service{
				{
					ClusterArn:     awssdk.String("arn:aws:ecs:us-west-2:1:cluster/prod-cluster"),
					ServiceName:    awssdk.String("web"),
					Status:         awssdk.String("ACTIVE"),
					TaskDefinition: awssdk.String("arn:aws:ecs:us-west-2:1:task-definition/prod-web:3"),
					DesiredCount:   2,
				},
			},
		}, nil)
	clients.MockECS.On("DescribeTaskDefinition", mock.Anything, mock.MatchedBy(
		func(in *ecs.DescribeTaskDefinitionInput) bool {
			return awssdk.ToString(in.TaskDefinition) == "prod-web:3"
		},
	)).Return(&ecs.DescribeTaskDefinitionOutput{
		TaskDefinition: &ecstypes.TaskDefinition{
			Family:   awssdk.String("prod-web"),
			Revision: 3,
			ContainerDefinitions: []ecstypes.ContainerDefinition{
				{Name: awssdk.String("web"), Image: awssdk.String("example/web:1")},
			},
		},
	}, nil)

	svc, err := reg.Service.Get(context.Background(), "prod-cluster:web")
	require.NoError(t, err)
	assert.Equal(t, model.SourceAWS, svc.Source)

	td, err := svc.TaskDefinition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prod-web:3", td.PK())
	clients.MockECS.AssertExpectations(t)
}

func TestClusterGetAndReadOnly(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockECS.On("DescribeClusters", mock.Anything, mock.Anything).Return(
		&ecs.DescribeClustersOutput{
			Clusters: []ecstypes.Cluster{
				{
					ClusterName:         awssdk.String("prod-cluster"),
					Status:              awssdk.String("ACTIVE"),
					ActiveServicesCount: 3,
				},
			},
		}, nil)

	cluster, err := reg.Cluster.Get(context.Background(), "prod-cluster")
	require.NoError(t, err)
	assert.Equal(t, "prod-cluster", cluster.PK())

	var readOnly *model.ReadOnlyError
	require.ErrorAs(t, reg.Cluster.Delete(context.Background(), "prod-cluster"), &readOnly)
	require.ErrorAs(t, reg.Cluster.Save(context.Background(), "prod-cluster"), &readOnly)
}

func TestClusterGetMissing(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockECS.On("DescribeClusters", mock.Anything, mock.Anything).Return(
		&ecs.DescribeClustersOutput{}, nil)

	_, err := reg.Cluster.Get(context.Background(), "nope")
	var notFound *model.DoesNotExistError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "cluster", notFound.Kind)
}
