/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/

// Package aws aggregates the AWS SDK clients this tool talks to behind
// narrow interfaces so that the manager layer can be tested with mocks.
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/servicediscovery"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Config holds options for constructing a DefaultClient.
type Config struct {
	// Region overrides the region from the environment or shared config.
	Region string
	// Profile selects a shared-credentials profile.
	Profile string
}

// DefaultClient is the production implementation of Clients, built on a
// single shared aws.Config.
type DefaultClient struct {
	cfg              awssdk.Config
	ecs              ECSClient
	ssm              SSMClient
	autoscaling      AutoScalingClient
	cloudwatch       CloudWatchClient
	servicediscovery ServiceDiscoveryClient
	eventbridge      EventBridgeClient
	s3               S3Client
}

var _ Clients = (*DefaultClient)(nil)

// NewDefaultClient loads the default AWS configuration (environment,
// shared config files, instance metadata) and constructs the per-service
// clients from it.
func NewDefaultClient(ctx context.Context, cfg Config) (*DefaultClient, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &DefaultClient{
		cfg:              awsCfg,
		ecs:              ecs.NewFromConfig(awsCfg),
		ssm:              ssm.NewFromConfig(awsCfg),
		autoscaling:      applicationautoscaling.NewFromConfig(awsCfg),
		cloudwatch:       cloudwatch.NewFromConfig(awsCfg),
		servicediscovery: servicediscovery.NewFromConfig(awsCfg),
		eventbridge:      eventbridge.NewFromConfig(awsCfg),
		s3:               s3.NewFromConfig(awsCfg),
	}, nil
}

// ECS returns the ECS client.
func (c *DefaultClient) ECS() ECSClient { return c.ecs }

// SSM returns the Systems Manager client.
func (c *DefaultClient) SSM() SSMClient { return c.ssm }

// AutoScaling returns the Application Auto Scaling client.
func (c *DefaultClient) AutoScaling() AutoScalingClient { return c.autoscaling }

// CloudWatch returns the CloudWatch client.
func (c *DefaultClient) CloudWatch() CloudWatchClient { return c.cloudwatch }

// ServiceDiscovery returns the Cloud Map client.
func (c *DefaultClient) ServiceDiscovery() ServiceDiscoveryClient { return c.servicediscovery }

// EventBridge returns the EventBridge client.
func (c *DefaultClient) EventBridge() EventBridgeClient { return c.eventbridge }

// S3 returns the S3 client.
func (c *DefaultClient) S3() S3Client { return c.s3 }

// Region reports the region the clients were configured with.
func (c *DefaultClient) Region() string { return c.cfg.Region }
