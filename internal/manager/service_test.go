/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caltechads/deployfish/internal/model"
)

func activeService(name string) ecstypes.Service {
	return ecstypes.Service{
		ClusterArn:   awssdk.String("arn:aws:ecs:us-west-2:1:cluster/prod-cluster"),
		ServiceName:  awssdk.String(name),
		Status:       awssdk.String("ACTIVE"),
		DesiredCount: 2,
	}
}

func TestServiceGetInactiveIsMissing(t *testing.T) {
	reg, clients := newTestRegistry()

	inactive := activeService("web")
	inactive.Status = awssdk.String("INACTIVE")
	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).Return(
		&ecs.DescribeServicesOutput{Services: []ecstypes.Service{inactive}}, nil)

	_, err := reg.Service.Get(context.Background(), "prod-cluster:web")
	var notFound *model.DoesNotExistError
	require.ErrorAs(t, err, &notFound)

	exists, err := reg.Service.Exists(context.Background(), "prod-cluster:web")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestServiceGetRejectsBarePK(t *testing.T) {
	reg, _ := newTestRegistry()
	_, err := reg.Service.Get(context.Background(), "web")
	var invalid *InvalidPKError
	require.ErrorAs(t, err, &invalid)
}

func TestServiceListSkipsInactive(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockECS.On("ListServices", mock.Anything, mock.Anything).Return(
		&ecs.ListServicesOutput{ServiceArns: []string{
			"arn:aws:ecs:us-west-2:1:service/prod-cluster/web",
			"arn:aws:ecs:us-west-2:1:service/prod-cluster/old",
		}}, nil)
	old := activeService("old")
	old.Status = awssdk.String("INACTIVE")
	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).Return(
		&ecs.DescribeServicesOutput{Services: []ecstypes.Service{activeService("web"), old}}, nil)

	services, err := reg.Service.List(context.Background(), "prod-cluster")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "prod-cluster:web", services[0].PK())
}

func TestServiceScale(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockECS.On("UpdateService", mock.Anything, mock.MatchedBy(
		func(in *ecs.UpdateServiceInput) bool {
			return awssdk.ToString(in.Cluster) == "prod-cluster" &&
				awssdk.ToString(in.Service) == "web" &&
				awssdk.ToInt32(in.DesiredCount) == 4
		},
	)).Return(&ecs.UpdateServiceOutput{}, nil)

	require.NoError(t, reg.Service.Scale(context.Background(), "prod-cluster:web", 4))
	clients.MockECS.AssertExpectations(t)
}

func TestServiceRestartForcesNewDeployment(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockECS.On("UpdateService", mock.Anything, mock.MatchedBy(
		func(in *ecs.UpdateServiceInput) bool {
			return in.ForceNewDeployment && in.DesiredCount == nil
		},
	)).Return(&ecs.UpdateServiceOutput{}, nil)

	require.NoError(t, reg.Service.Restart(context.Background(), "prod-cluster:web"))
	clients.MockECS.AssertExpectations(t)
}

func TestServiceDeleteScalesToZeroFirst(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockECS.On("UpdateService", mock.Anything, mock.MatchedBy(
		func(in *ecs.UpdateServiceInput) bool {
			return awssdk.ToInt32(in.DesiredCount) == 0
		},
	)).Return(&ecs.UpdateServiceOutput{}, nil)
	clients.MockECS.On("DeleteService", mock.Anything, mock.MatchedBy(
		func(in *ecs.DeleteServiceInput) bool {
			return awssdk.ToString(in.Service) == "web" && awssdk.ToBool(in.Force)
		},
	)).Return(&ecs.DeleteServiceOutput{}, nil)

	require.NoError(t, reg.Service.Delete(context.Background(), "prod-cluster:web"))
	clients.MockECS.AssertExpectations(t)
}

func TestServiceCreateDaemonOmitsDesiredCount(t *testing.T) {
	reg, clients := newTestRegistry()

	clients.MockECS.On("CreateService", mock.Anything, mock.MatchedBy(
		func(in *ecs.CreateServiceInput) bool {
			return in.SchedulingStrategy == ecstypes.SchedulingStrategyDaemon &&
				in.DesiredCount == nil
		},
	)).Return(&ecs.CreateServiceOutput{}, nil)

	svc := model.NewService(model.SourceConfig, model.ServiceData{
		ClusterName:        "prod-cluster",
		ServiceName:        "agent",
		TaskDefinition:     "prod-agent:1",
		SchedulingStrategy: "DAEMON",
	})
	require.NoError(t, reg.Service.Create(context.Background(), svc))
	clients.MockECS.AssertExpectations(t)
}

func TestServiceWaitUntilStable(t *testing.T) {
	reg, clients := newTestRegistry()
	reg.Service.PollInterval = time.Millisecond

	unstable := activeService("web")
	unstable.RunningCount = 1
	unstable.Deployments = []ecstypes.Deployment{{}, {}}
	stable := activeService("web")
	stable.RunningCount = 2
	stable.Deployments = []ecstypes.Deployment{{}}

	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).Return(
		&ecs.DescribeServicesOutput{Services: []ecstypes.Service{unstable}}, nil).Once()
	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).Return(
		&ecs.DescribeServicesOutput{Services: []ecstypes.Service{stable}}, nil)

	err := reg.Service.WaitUntilStable(context.Background(), "prod-cluster:web", time.Second)
	require.NoError(t, err)
}

func TestServiceWaitUntilStableTimesOut(t *testing.T) {
	reg, clients := newTestRegistry()
	reg.Service.PollInterval = 5 * time.Millisecond

	unstable := activeService("web")
	unstable.RunningCount = 0
	unstable.Deployments = []ecstypes.Deployment{{}, {}}
	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).Return(
		&ecs.DescribeServicesOutput{Services: []ecstypes.Service{unstable}}, nil)

	err := reg.Service.WaitUntilStable(context.Background(), "prod-cluster:web", 20*time.Millisecond)
	var timeout *WaitTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "prod-cluster:web", timeout.PK)
}
