/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package reconcile

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caltechads/deployfish/internal/model"
)

func describeWebService(taskDefinitionArn string) *ecs.DescribeServicesOutput {
	return &ecs.DescribeServicesOutput{
		Services: []ecstypes.Service{
			{
				ClusterArn:     awssdk.String("arn:aws:ecs:us-west-2:123456789012:cluster/prod-cluster"),
				ServiceName:    awssdk.String("web"),
				Status:         awssdk.String("ACTIVE"),
				TaskDefinition: awssdk.String(taskDefinitionArn),
			},
		},
	}
}

func describeWebTaskDefinition(labels map[string]string) *ecs.DescribeTaskDefinitionOutput {
	return &ecs.DescribeTaskDefinitionOutput{
		TaskDefinition: &ecstypes.TaskDefinition{
			Family:            awssdk.String("prod-web"),
			Revision:          12,
			TaskDefinitionArn: awssdk.String("arn:aws:ecs:us-west-2:123456789012:task-definition/prod-web:12"),
			Status:            ecstypes.TaskDefinitionStatusActive,
			ContainerDefinitions: []ecstypes.ContainerDefinition{
				{
					Name:         awssdk.String("web"),
					Image:        awssdk.String("example/web:1.2.3"),
					DockerLabels: labels,
				},
			},
		},
	}
}

func TestRunHelperInvokesBoundRevision(t *testing.T) {
	r, _, clients := newTestReconciler()
	svc := configService(t, webServiceYAML)

	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).
		Return(describeWebService("arn:aws:ecs:us-west-2:123456789012:task-definition/prod-web:12"), nil)
	clients.MockECS.On("DescribeTaskDefinition", mock.Anything,
		mock.MatchedBy(func(in *ecs.DescribeTaskDefinitionInput) bool {
			return awssdk.ToString(in.TaskDefinition) == "prod-web:12"
		})).Return(describeWebTaskDefinition(map[string]string{
		"deployfish.task.prod-web-migrate.id": "prod-web-migrate:7",
	}), nil)

	// The invocation targets the bound revision, not the latest, with the
	// named command substituted into the helper's container.
	clients.MockECS.On("RunTask", mock.Anything,
		mock.MatchedBy(func(in *ecs.RunTaskInput) bool {
			override := in.Overrides.ContainerOverrides[0]
			return awssdk.ToString(in.TaskDefinition) == "prod-web-migrate:7" &&
				awssdk.ToString(in.Cluster) == "prod-cluster" &&
				awssdk.ToString(override.Name) == "migrate" &&
				assert.ObjectsAreEqual([]string{"python", "manage.py", "makemigrations"}, override.Command)
		})).Return(&ecs.RunTaskOutput{
		Tasks: []ecstypes.Task{
			{
				TaskArn:    awssdk.String("arn:aws:ecs:us-west-2:123456789012:task/prod-cluster/abc"),
				LastStatus: awssdk.String("PROVISIONING"),
			},
		},
	}, nil)

	tasks, err := r.RunHelper(context.Background(), svc, "makemigrations")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.False(t, tasks[0].Stopped())
	clients.MockECS.AssertExpectations(t)
}

func TestRunHelperUnknownCommand(t *testing.T) {
	r, _, clients := newTestReconciler()
	svc := configService(t, webServiceYAML)

	_, err := r.RunHelper(context.Background(), svc, "frobnicate")
	var notFound *CommandNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "frobnicate", notFound.Command)
	clients.MockECS.AssertNotCalled(t, "RunTask", mock.Anything, mock.Anything)
}

func TestRunHelperAmbiguousCommand(t *testing.T) {
	r, _, _ := newTestReconciler()
	svc := configService(t, webServiceYAML)
	svc.SetHelperTasks(append(svc.HelperTasks(), &model.HelperTask{
		Source: model.SourceConfig,
		Data:   model.TaskData{Name: "other", ClusterName: "prod-cluster"},
		TaskDefinition: &model.TaskDefinition{
			Data:       model.TaskDefinitionData{Family: "prod-web-other"},
			Containers: []model.ContainerData{{Name: "other"}},
		},
		Commands: map[string][]string{"makemigrations": {"echo", "hi"}},
	}))

	_, err := r.RunHelper(context.Background(), svc, "makemigrations")
	var ambiguous *AmbiguousCommandError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []string{"prod-web-migrate", "prod-web-other"}, ambiguous.Families)
}

func TestRunHelperNotBound(t *testing.T) {
	r, _, clients := newTestReconciler()
	svc := configService(t, webServiceYAML)

	// The live task definition carries no binding labels: the service was
	// deployed before the helper existed.
	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).
		Return(describeWebService("arn:aws:ecs:us-west-2:123456789012:task-definition/prod-web:12"), nil)
	clients.MockECS.On("DescribeTaskDefinition", mock.Anything, mock.Anything).
		Return(describeWebTaskDefinition(nil), nil)

	_, err := r.RunHelper(context.Background(), svc, "migrate")
	var notBound *HelperTaskNotBoundError
	require.ErrorAs(t, err, &notBound)
	assert.Equal(t, "prod-web-migrate", notBound.Family)
	assert.Contains(t, err.Error(), "deploy the service first")
	clients.MockECS.AssertNotCalled(t, "RunTask", mock.Anything, mock.Anything)
}

func TestRunHelperRejectsMalformedBinding(t *testing.T) {
	r, _, clients := newTestReconciler()
	svc := configService(t, webServiceYAML)

	clients.MockECS.On("DescribeServices", mock.Anything, mock.Anything).
		Return(describeWebService("arn:aws:ecs:us-west-2:123456789012:task-definition/prod-web:12"), nil)
	clients.MockECS.On("DescribeTaskDefinition", mock.Anything, mock.Anything).
		Return(describeWebTaskDefinition(map[string]string{
			"deployfish.task.prod-web-migrate.id": "garbage",
		}), nil)

	_, err := r.RunHelper(context.Background(), svc, "migrate")
	var invalid *model.InvalidBindingError
	require.ErrorAs(t, err, &invalid)
	clients.MockECS.AssertNotCalled(t, "RunTask", mock.Anything, mock.Anything)
}

const nightlyTaskYAML = `
name: nightly-report
family: nightly-report
cluster: prod-cluster
schedule: cron(0 4 * * ? *)
schedule_role: arn:aws:iam::123456789012:role/events
containers:
  - name: report
    image: example/report:2
`

func TestSaveStandaloneTaskWritesScheduleRule(t *testing.T) {
	r, _, clients := newTestReconciler()
	task := configTask(t, nightlyTaskYAML)

	clients.MockECS.On("RegisterTaskDefinition", mock.Anything, mock.Anything).
		Return(registeredTD("nightly-report", 4), nil)
	clients.MockECS.On("DescribeClusters", mock.Anything, mock.Anything).
		Return(&ecs.DescribeClustersOutput{
			Clusters: []ecstypes.Cluster{
				{
					ClusterName: awssdk.String("prod-cluster"),
					ClusterArn:  awssdk.String("arn:aws:ecs:us-west-2:123456789012:cluster/prod-cluster"),
					Status:      awssdk.String("ACTIVE"),
				},
			},
		}, nil)
	clients.MockEventBridge.On("PutRule", mock.Anything,
		mock.MatchedBy(func(in *eventbridge.PutRuleInput) bool {
			return awssdk.ToString(in.Name) == "deployfish-nightly-report" &&
				awssdk.ToString(in.ScheduleExpression) == "cron(0 4 * * ? *)"
		})).Return(&eventbridge.PutRuleOutput{}, nil)
	clients.MockEventBridge.On("PutTargets", mock.Anything,
		mock.MatchedBy(func(in *eventbridge.PutTargetsInput) bool {
			target := in.Targets[0]
			return awssdk.ToString(target.Arn) == "arn:aws:ecs:us-west-2:123456789012:cluster/prod-cluster" &&
				awssdk.ToString(target.RoleArn) == "arn:aws:iam::123456789012:role/events" &&
				awssdk.ToString(target.EcsParameters.TaskDefinitionArn) == "arn:aws:ecs:us-west-2:123456789012:task-definition/nightly-report"
		})).Return(&eventbridge.PutTargetsOutput{}, nil)

	require.NoError(t, r.SaveStandaloneTask(context.Background(), task))
	clients.MockECS.AssertExpectations(t)
	clients.MockEventBridge.AssertExpectations(t)
}

func TestDeleteStandaloneTaskRemovesRule(t *testing.T) {
	r, _, clients := newTestReconciler()
	task := configTask(t, nightlyTaskYAML)

	clients.MockEventBridge.On("RemoveTargets", mock.Anything,
		mock.MatchedBy(func(in *eventbridge.RemoveTargetsInput) bool {
			return awssdk.ToString(in.Rule) == "deployfish-nightly-report"
		})).Return(&eventbridge.RemoveTargetsOutput{}, nil)
	clients.MockEventBridge.On("DeleteRule", mock.Anything, mock.Anything).
		Return(&eventbridge.DeleteRuleOutput{}, nil)

	require.NoError(t, r.DeleteStandaloneTask(context.Background(), task))
	clients.MockEventBridge.AssertExpectations(t)
}

func TestRunStandaloneTaskRunsLatestRevision(t *testing.T) {
	r, _, clients := newTestReconciler()
	task := configTask(t, nightlyTaskYAML)

	clients.MockECS.On("RunTask", mock.Anything,
		mock.MatchedBy(func(in *ecs.RunTaskInput) bool {
			return awssdk.ToString(in.TaskDefinition) == "nightly-report" && in.Overrides == nil
		})).Return(&ecs.RunTaskOutput{
		Tasks: []ecstypes.Task{
			{
				TaskArn:    awssdk.String("arn:aws:ecs:us-west-2:123456789012:task/prod-cluster/def"),
				LastStatus: awssdk.String("RUNNING"),
			},
		},
	}, nil)

	tasks, err := r.RunStandaloneTask(context.Background(), task, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	clients.MockECS.AssertExpectations(t)
}
