/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

import "fmt"

// ServiceDiscoveryData mirrors a Cloud Map service used for ECS service
// discovery.
type ServiceDiscoveryData struct {
	Arn         string
	ID          string
	Name        string
	NamespaceID string
	DNSType     string
	DNSTTL      int64
}

// ServiceDiscoveryService models the Cloud Map service registered for an
// ECS service.  Only awsvpc-mode services can use service discovery.
type ServiceDiscoveryService struct {
	Source Source
	Data   ServiceDiscoveryData
}

// PK is "<namespace-id>:<name>" before registration and the service ARN
// after.
func (sd *ServiceDiscoveryService) PK() string {
	if sd.Data.Arn != "" {
		return sd.Data.Arn
	}
	return fmt.Sprintf("%s:%s", sd.Data.NamespaceID, sd.Data.Name)
}
