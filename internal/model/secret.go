/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package model

import (
	"fmt"
	"strings"
)

// DefaultKMSKey encrypts secure secrets when no key is named explicitly.
const DefaultKMSKey = "alias/aws/ssm"

// InvalidSecretError indicates a config: entry that does not match the
// secret shorthand grammar.
type InvalidSecretError struct {
	Spec   string
	Reason string
}

func (e *InvalidSecretError) Error() string {
	return fmt.Sprintf("invalid secret definition %q: %s", e.Spec, e.Reason)
}

// Secret models one SSM parameter attached to a service or task.
//
// Owned secrets live under "<cluster>.<service>.<KEY>" and are written by
// deployfish; external secrets are referenced by their full parameter
// name and never written or deleted.  An external name ending in '*'
// pulls in every parameter sharing that prefix.
type Secret struct {
	Source Source

	// EnvName is the environment variable the secret is surfaced as.
	EnvName string
	// Name is the full SSM parameter name.
	Name string
	// Value is the parameter value; empty for references that are only
	// ever read from AWS.
	Value string
	// Arn is set on models loaded from AWS.
	Arn string

	Secure   bool
	KMSKeyID string
	External bool
	Wildcard bool
}

// PK is the full parameter name.
func (s *Secret) PK() string { return s.Name }

// ReadOnly reports whether deployfish may write this parameter.
func (s *Secret) ReadOnly() bool { return s.External }

// ParseSecret parses one entry of a service's config: list.
//
// Grammar, all parts after the name optional:
//
//	NAME[:external][:secure[:KMS_KEY_ARN]][=VALUE]
//
// "secure" stores the parameter as a SecureString, encrypted with the
// named KMS key or the account default SSM key.  "external" marks the
// parameter as owned elsewhere; the name is then used verbatim instead
// of being namespaced under cluster and service, and a trailing '*'
// requests a prefix listing.
func ParseSecret(spec, cluster, service string) (*Secret, error) {
	nameSpec, value, hasValue := strings.Cut(spec, "=")
	nameSpec = strings.TrimSpace(nameSpec)
	if nameSpec == "" {
		return nil, &InvalidSecretError{Spec: spec, Reason: "empty name"}
	}

	parts := strings.Split(nameSpec, ":")
	secret := &Secret{
		Source:  SourceConfig,
		EnvName: parts[0],
	}
	if hasValue {
		secret.Value = strings.TrimSpace(value)
	}

	mods := parts[1:]
	for i := 0; i < len(mods); i++ {
		switch mods[i] {
		case "external":
			secret.External = true
		case "secure":
			secret.Secure = true
			// Anything after "secure" is a KMS key id, which may itself
			// contain colons (it is usually an ARN).
			if i+1 < len(mods) {
				secret.KMSKeyID = strings.Join(mods[i+1:], ":")
				i = len(mods)
			}
		default:
			return nil, &InvalidSecretError{
				Spec:   spec,
				Reason: fmt.Sprintf("unknown modifier %q", mods[i]),
			}
		}
	}
	if secret.Secure && secret.KMSKeyID == "" {
		secret.KMSKeyID = DefaultKMSKey
	}

	if strings.HasSuffix(secret.EnvName, "*") {
		if !secret.External {
			return nil, &InvalidSecretError{
				Spec:   spec,
				Reason: "wildcard names are only valid on external secrets",
			}
		}
		secret.Wildcard = true
	}
	if secret.External && hasValue {
		return nil, &InvalidSecretError{
			Spec:   spec,
			Reason: "external secrets are read-only and cannot carry a value",
		}
	}

	if secret.External {
		secret.Name = secret.EnvName
	} else {
		secret.Name = fmt.Sprintf("%s.%s.%s", cluster, service, secret.EnvName)
	}
	return secret, nil
}
