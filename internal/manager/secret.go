/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package manager

import (
	"context"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/model"
)

// getParametersBatchSize is the GetParameters API limit.
const getParametersBatchSize = 10

// SecretManager reads and writes service secrets in SSM Parameter Store.
// Secrets marked external are owned by someone else: they are read and
// listed but never written or deleted.
type SecretManager struct {
	ssm      aws.SSMClient
	adapters *adapter.Registry
	log      zerolog.Logger
}

// Get loads one parameter by its full name.
func (m *SecretManager) Get(ctx context.Context, name string) (*model.Secret, error) {
	secrets, err := m.GetMany(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	if len(secrets) == 0 {
		return nil, &model.DoesNotExistError{Kind: "secret", PK: name}
	}
	return secrets[0], nil
}

// GetMany loads parameters by name, decrypted, in API-sized batches.
// Names that do not exist are simply absent from the result; the caller
// decides whether absence matters.
func (m *SecretManager) GetMany(ctx context.Context, names []string) ([]*model.Secret, error) {
	var secrets []*model.Secret
	for start := 0; start < len(names); start += getParametersBatchSize {
		end := min(start+getParametersBatchSize, len(names))
		out, err := retryRead(ctx, m.log, "GetParameters", func() (*ssm.GetParametersOutput, error) {
			return m.ssm.GetParameters(ctx, &ssm.GetParametersInput{
				Names:          names[start:end],
				WithDecryption: awssdk.Bool(true),
			})
		})
		if err != nil {
			return nil, err
		}
		for _, missing := range out.InvalidParameters {
			m.log.Debug().Str("parameter", missing).Msg("parameter does not exist")
		}
		for _, param := range out.Parameters {
			secret, err := adapter.NewSecretFromAWS(ctx, m.adapters, param)
			if err != nil {
				return nil, err
			}
			secrets = append(secrets, secret)
		}
	}
	return secrets, nil
}

// List loads every parameter whose name begins with prefix.
func (m *SecretManager) List(ctx context.Context, prefix string) ([]*model.Secret, error) {
	var names []string
	var nextToken *string
	for {
		out, err := retryRead(ctx, m.log, "DescribeParameters", func() (*ssm.DescribeParametersOutput, error) {
			return m.ssm.DescribeParameters(ctx, &ssm.DescribeParametersInput{
				ParameterFilters: []ssmtypes.ParameterStringFilter{
					{
						Key:    awssdk.String("Name"),
						Option: awssdk.String("BeginsWith"),
						Values: []string{prefix},
					},
				},
				NextToken: nextToken,
			})
		})
		if err != nil {
			return nil, err
		}
		for _, meta := range out.Parameters {
			names = append(names, awssdk.ToString(meta.Name))
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return m.GetMany(ctx, names)
}

// ListForService loads every parameter owned by a service, that is every
// parameter named "<cluster>.<service>.*".
func (m *SecretManager) ListForService(ctx context.Context, cluster, service string) ([]*model.Secret, error) {
	return m.List(ctx, cluster+"."+service+".")
}

// Expand replaces wildcard external secrets with the concrete parameters
// sharing their prefix, leaving everything else untouched.
func (m *SecretManager) Expand(ctx context.Context, secrets []*model.Secret) ([]*model.Secret, error) {
	var out []*model.Secret
	for _, secret := range secrets {
		if !secret.Wildcard {
			out = append(out, secret)
			continue
		}
		matches, err := m.List(ctx, strings.TrimSuffix(secret.Name, "*"))
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			match.External = true
			out = append(out, match)
		}
	}
	return out, nil
}

// Save writes the parameter, overwriting any previous value.  External
// secrets are refused.
func (m *SecretManager) Save(ctx context.Context, secret *model.Secret) error {
	if secret.ReadOnly() {
		return &model.ReadOnlyError{Kind: "secret", PK: secret.PK(), Operation: "save"}
	}
	input := &ssm.PutParameterInput{
		Name:      awssdk.String(secret.Name),
		Value:     awssdk.String(secret.Value),
		Overwrite: awssdk.Bool(true),
		Type:      ssmtypes.ParameterTypeString,
	}
	if secret.Secure {
		input.Type = ssmtypes.ParameterTypeSecureString
		input.KeyId = awssdk.String(secret.KMSKeyID)
	}
	m.log.Info().Str("parameter", secret.Name).Bool("secure", secret.Secure).Msg("writing parameter")
	_, err := m.ssm.PutParameter(ctx, input)
	return err
}

// Delete removes the parameter.  External secrets are refused.
func (m *SecretManager) Delete(ctx context.Context, secret *model.Secret) error {
	if secret.ReadOnly() {
		return &model.ReadOnlyError{Kind: "secret", PK: secret.PK(), Operation: "delete"}
	}
	m.log.Info().Str("parameter", secret.Name).Msg("deleting parameter")
	_, err := m.ssm.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: awssdk.String(secret.Name),
	})
	return err
}
