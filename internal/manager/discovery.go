/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"errors"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/servicediscovery"
	sdtypes "github.com/aws/aws-sdk-go-v2/service/servicediscovery/types"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

// ServiceDiscoveryManager reads and writes Cloud Map services backing ECS
// service discovery.
type ServiceDiscoveryManager struct {
	sd       aws.ServiceDiscoveryClient
	adapters *adapter.Registry
	log      zerolog.Logger
}

// GetByArn loads a Cloud Map service by the registry ARN recorded on an
// ECS service.
func (m *ServiceDiscoveryManager) GetByArn(ctx context.Context, arn string) (*model.ServiceDiscoveryService, error) {
	// The service id is the final path segment of the ARN.
	id := arn
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		id = arn[i+1:]
	}
	return m.getByID(ctx, id, arn)
}

func (m *ServiceDiscoveryManager) getByID(ctx context.Context, id, pk string) (*model.ServiceDiscoveryService, error) {
	out, err := retryRead(ctx, m.log, "GetService", func() (*servicediscovery.GetServiceOutput, error) {
		return m.sd.GetService(ctx, &servicediscovery.GetServiceInput{Id: awssdk.String(id)})
	})
	if err != nil {
		var notFound *sdtypes.ServiceNotFound
		if errors.As(err, &notFound) {
			return nil, &model.DoesNotExistError{Kind: "service discovery service", PK: pk}
		}
		return nil, err
	}
	if out.Service == nil {
		return nil, &model.DoesNotExistError{Kind: "service discovery service", PK: pk}
	}
	return adapter.NewServiceDiscoveryFromAWS(ctx, m.adapters, *out.Service)
}

// FindByName looks a Cloud Map service up by namespace and name, the
// identity config-sourced models carry before registration.
func (m *ServiceDiscoveryManager) FindByName(ctx context.Context, namespaceID, name string) (*model.ServiceDiscoveryService, error) {
	pk := namespaceID + ":" + name
	var nextToken *string
	for {
		out, err := retryRead(ctx, m.log, "ListServices", func() (*servicediscovery.ListServicesOutput, error) {
			return m.sd.ListServices(ctx, &servicediscovery.ListServicesInput{
				Filters: []sdtypes.ServiceFilter{
					{
						Name:      sdtypes.ServiceFilterNameNamespaceId,
						Values:    []string{namespaceID},
						Condition: sdtypes.FilterConditionEq,
					},
				},
				NextToken: nextToken,
			})
		})
		if err != nil {
			return nil, err
		}
		for _, summary := range out.Services {
			if awssdk.ToString(summary.Name) == name {
				return m.getByID(ctx, awssdk.ToString(summary.Id), pk)
			}
		}
		if out.NextToken == nil {
			return nil, &model.DoesNotExistError{Kind: "service discovery service", PK: pk}
		}
		nextToken = out.NextToken
	}
}

// Create registers the Cloud Map service and records the assigned id and
// ARN on the model.
func (m *ServiceDiscoveryManager) Create(ctx context.Context, sd *model.ServiceDiscoveryService) error {
	data := sd.Data
	m.log.Info().
		Str("namespace", data.NamespaceID).
		Str("name", data.Name).
		Msg("creating service discovery service")
	out, err := m.sd.CreateService(ctx, &servicediscovery.CreateServiceInput{
		Name:        awssdk.String(data.Name),
		NamespaceId: awssdk.String(data.NamespaceID),
		DnsConfig: &sdtypes.DnsConfig{
			DnsRecords: []sdtypes.DnsRecord{
				{
					Type: sdtypes.RecordType(data.DNSType),
					TTL:  awssdk.Int64(data.DNSTTL),
				},
			},
		},
	})
	if err != nil {
		return err
	}
	sd.Data.ID = awssdk.ToString(out.Service.Id)
	sd.Data.Arn = awssdk.ToString(out.Service.Arn)
	return nil
}

// Delete removes the Cloud Map service by id.
func (m *ServiceDiscoveryManager) Delete(ctx context.Context, id string) error {
	m.log.Info().Str("id", id).Msg("deleting service discovery service")
	_, err := m.sd.DeleteService(ctx, &servicediscovery.DeleteServiceInput{
		Id: awssdk.String(id),
	})
	return err
}
