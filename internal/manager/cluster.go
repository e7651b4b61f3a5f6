/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

// ClusterManager reads ECS clusters.  Clusters are infrastructure this
// tool deploys into, never something it creates or destroys.
type ClusterManager struct {
	ecs      aws.ECSClient
	adapters *adapter.Registry
	log      zerolog.Logger
}

// Get loads one cluster by name.
func (m *ClusterManager) Get(ctx context.Context, name string) (*model.Cluster, error) {
	out, err := retryRead(ctx, m.log, "DescribeClusters", func() (*ecs.DescribeClustersOutput, error) {
		return m.ecs.DescribeClusters(ctx, &ecs.DescribeClustersInput{
			Clusters: []string{name},
		})
	})
	if err != nil {
		return nil, err
	}
	if len(out.Clusters) == 0 {
		return nil, &model.DoesNotExistError{Kind: "cluster", PK: name}
	}
	raw := out.Clusters[0]
	if awssdk.ToString(raw.Status) == "INACTIVE" {
		return nil, &model.DoesNotExistError{Kind: "cluster", PK: name}
	}
	return adapter.NewClusterFromAWS(ctx, m.adapters, raw)
}

// Exists reports whether the cluster exists.
func (m *ClusterManager) Exists(ctx context.Context, name string) (bool, error) {
	_, err := m.Get(ctx, name)
	if err != nil {
		var notFound *model.DoesNotExistError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save is refused: clusters are read-only.
func (m *ClusterManager) Save(_ context.Context, name string) error {
	return &model.ReadOnlyError{Kind: "cluster", PK: name, Operation: "save"}
}

// Delete is refused: clusters are read-only.
func (m *ClusterManager) Delete(_ context.Context, name string) error {
	return &model.ReadOnlyError{Kind: "cluster", PK: name, Operation: "delete"}
}
