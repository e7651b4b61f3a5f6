/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver counts resolutions so tests can assert laziness and
// caching.
type fakeResolver struct {
	taskDefinitions map[string]*TaskDefinition
	scalableTargets map[string]*ScalableTarget
	discovery       map[string]*ServiceDiscoveryService
	secrets         map[string]*Secret

	taskDefinitionCalls int
	scalableTargetCalls int
}

func (f *fakeResolver) ResolveTaskDefinition(_ context.Context, pk string) (*TaskDefinition, error) {
	f.taskDefinitionCalls++
	if td, ok := f.taskDefinitions[pk]; ok {
		return td, nil
	}
	return nil, &DoesNotExistError{Kind: "task definition", PK: pk}
}

func (f *fakeResolver) ResolveScalableTarget(_ context.Context, pk string) (*ScalableTarget, error) {
	f.scalableTargetCalls++
	if st, ok := f.scalableTargets[pk]; ok {
		return st, nil
	}
	return nil, &DoesNotExistError{Kind: "scalable target", PK: pk}
}

func (f *fakeResolver) ResolveServiceDiscovery(_ context.Context, arn string) (*ServiceDiscoveryService, error) {
	if sd, ok := f.discovery[arn]; ok {
		return sd, nil
	}
	return nil, &DoesNotExistError{Kind: "service discovery service", PK: arn}
}

func (f *fakeResolver) ResolveSecrets(_ context.Context, names []string) ([]*Secret, error) {
	var out []*Secret
	for _, name := range names {
		if s, ok := f.secrets[name]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func awsService(resolver Resolver) *Service {
	svc := NewService(SourceAWS, ServiceData{
		ClusterName:    "prod-cluster",
		ServiceName:    "web",
		TaskDefinition: "prod-web:14",
	})
	svc.SetResolver(resolver)
	svc.SetTaskDefinitionRef("prod-web:14")
	return svc
}

func TestServicePK(t *testing.T) {
	svc := NewService(SourceConfig, ServiceData{ClusterName: "prod-cluster", ServiceName: "web"})
	assert.Equal(t, "prod-cluster:web", svc.PK())
}

func TestLazyTaskDefinitionResolvedOnceAndCached(t *testing.T) {
	resolver := &fakeResolver{taskDefinitions: map[string]*TaskDefinition{
		"prod-web:14": {Data: TaskDefinitionData{Family: "prod-web", Revision: 14}},
	}}
	svc := awsService(resolver)
	ctx := context.Background()

	td, err := svc.TaskDefinition(ctx)
	require.NoError(t, err)
	assert.Equal(t, "prod-web:14", td.PK())

	_, err = svc.TaskDefinition(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.taskDefinitionCalls)
}

func TestEagerTaskDefinitionNeverHitsResolver(t *testing.T) {
	resolver := &fakeResolver{}
	svc := NewService(SourceConfig, ServiceData{ClusterName: "prod-cluster", ServiceName: "web"})
	svc.SetResolver(resolver)
	svc.SetTaskDefinition(&TaskDefinition{Data: TaskDefinitionData{Family: "prod-web"}})

	td, err := svc.TaskDefinition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prod-web", td.PK())
	assert.Equal(t, 0, resolver.taskDefinitionCalls)
}

func TestAppScalingAbsentIsNilNotError(t *testing.T) {
	resolver := &fakeResolver{}
	svc := awsService(resolver)
	ctx := context.Background()

	st, err := svc.AppScaling(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	// The negative result is cached too.
	_, err = svc.AppScaling(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.scalableTargetCalls)
}

func TestAppScalingResolvedByDerivedResourceID(t *testing.T) {
	resolver := &fakeResolver{scalableTargets: map[string]*ScalableTarget{
		"service/prod-cluster/web": {Data: ScalableTargetData{
			ResourceID: "service/prod-cluster/web", MinCapacity: 1, MaxCapacity: 5,
		}},
	}}
	svc := awsService(resolver)

	st, err := svc.AppScaling(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, int32(5), st.Data.MaxCapacity)
}

func TestServiceDiscoveryFromRegistryArn(t *testing.T) {
	arn := "arn:aws:servicediscovery:us-west-2:123456789012:service/srv-abc"
	resolver := &fakeResolver{discovery: map[string]*ServiceDiscoveryService{
		arn: {Data: ServiceDiscoveryData{Arn: arn, Name: "web"}},
	}}
	svc := awsService(resolver)
	svc.Data.ServiceRegistries = []ServiceRegistry{{RegistryArn: arn}}

	sd, err := svc.ServiceDiscovery(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sd)
	assert.Equal(t, "web", sd.Data.Name)
}

func TestServiceDiscoveryAbsentIsNil(t *testing.T) {
	svc := awsService(&fakeResolver{})

	sd, err := svc.ServiceDiscovery(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sd)
}

func TestSecretsDerivedFromTaskDefinition(t *testing.T) {
	resolver := &fakeResolver{
		taskDefinitions: map[string]*TaskDefinition{
			"prod-web:14": {
				Data: TaskDefinitionData{Family: "prod-web", Revision: 14},
				Containers: []ContainerData{{
					Name: "web",
					Secrets: []SecretRef{
						{Name: "DB_PASSWORD", ValueFrom: "prod-cluster.web.DB_PASSWORD"},
					},
				}},
			},
		},
		secrets: map[string]*Secret{
			"prod-cluster.web.DB_PASSWORD": {
				Name: "prod-cluster.web.DB_PASSWORD", Value: "hunter2", Secure: true,
			},
		},
	}
	svc := awsService(resolver)

	secrets, err := svc.Secrets(context.Background())
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, "hunter2", secrets[0].Value)
}

func TestUnresolvedWithoutResolver(t *testing.T) {
	svc := NewService(SourceAWS, ServiceData{
		ClusterName: "prod-cluster", ServiceName: "web", TaskDefinition: "prod-web:14",
	})

	_, err := svc.TaskDefinition(context.Background())
	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "task definition", unresolved.Dep)
}

func TestHelperTasksBackReference(t *testing.T) {
	svc := NewService(SourceConfig, ServiceData{ClusterName: "prod-cluster", ServiceName: "web"})
	task := &HelperTask{
		Data:           TaskData{Name: "migrate"},
		TaskDefinition: &TaskDefinition{Data: TaskDefinitionData{Family: "prod-web-migrate"}},
	}
	svc.SetHelperTasks([]*HelperTask{task})

	require.Len(t, svc.HelperTasks(), 1)
	assert.Same(t, svc, svc.HelperTasks()[0].Service)
	assert.Equal(t, "prod-web-migrate", task.Family())
}
