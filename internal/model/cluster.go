/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

// ClusterData mirrors the ECS cluster fields shown by the info command.
type ClusterData struct {
	Name                              string
	Arn                               string
	Status                            string
	ActiveServicesCount               int32
	RunningTasksCount                 int32
	PendingTasksCount                 int32
	RegisteredContainerInstancesCount int32
}

// Cluster models an ECS cluster.  Clusters are read-only: deployfish
// deploys into them but never creates or deletes them.
type Cluster struct {
	Source Source
	Data   ClusterData
}

// PK is the cluster name.
func (c *Cluster) PK() string { return c.Data.Name }
