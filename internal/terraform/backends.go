/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package terraform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/config"
)

// DefaultEnterpriseHost is the hosted Terraform Enterprise endpoint used
// when the config names a workspace without a host.
const DefaultEnterpriseHost = "app.terraform.io"

// s3Fetcher downloads a statefile from an s3://bucket/key URL.
type s3Fetcher struct {
	client aws.S3Client
	bucket string
	key    string
	url    string
}

func newS3Fetcher(client aws.S3Client, statefileURL string) (*s3Fetcher, error) {
	parsed, err := url.Parse(statefileURL)
	if err != nil || parsed.Scheme != "s3" || parsed.Host == "" || parsed.Path == "" {
		return nil, fmt.Errorf("statefile %q is not an s3://bucket/key URL", statefileURL)
	}
	return &s3Fetcher{
		client: client,
		bucket: parsed.Host,
		key:    strings.TrimPrefix(parsed.Path, "/"),
		url:    statefileURL,
	}, nil
}

func (f *s3Fetcher) Location() string { return f.url }

func (f *s3Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(f.bucket),
		Key:    awssdk.String(f.key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// enterpriseFetcher downloads the current state version of a Terraform
// Enterprise workspace: one API call to find the hosted state download
// URL, one plain GET to retrieve the statefile itself.
type enterpriseFetcher struct {
	client       *http.Client
	host         string
	organization string
	workspace    string
	token        string
}

func (f *enterpriseFetcher) Location() string {
	return fmt.Sprintf("tfe://%s/%s/%s", f.host, f.organization, f.workspace)
}

func (f *enterpriseFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if f.token == "" {
		return nil, fmt.Errorf("no Terraform Enterprise token: set --tfe_token or ATLAS_TOKEN")
	}

	query := url.Values{}
	query.Set("filter[organization][name]", f.organization)
	query.Set("filter[workspace][name]", f.workspace)
	listURL := fmt.Sprintf("https://%s/api/v2/state-versions?%s", f.host, query.Encode())

	body, err := f.get(ctx, listURL, true)
	if err != nil {
		return nil, err
	}

	var versions struct {
		Data []struct {
			Attributes struct {
				DownloadURL string `json:"hosted-state-download-url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &versions); err != nil {
		return nil, fmt.Errorf("bad state-versions response: %w", err)
	}
	if len(versions.Data) == 0 || versions.Data[0].Attributes.DownloadURL == "" {
		return nil, fmt.Errorf("workspace %s/%s has no state versions", f.organization, f.workspace)
	}

	// The download URL is pre-signed; no auth header needed.
	return f.get(ctx, versions.Data[0].Attributes.DownloadURL, false)
}

func (f *enterpriseFetcher) get(ctx context.Context, rawURL string, authed bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// StateLoader builds State values from a config file's terraform section.
// It satisfies the config package's StateLoader interface.
type StateLoader struct {
	// S3 is used for statefile backends.
	S3 aws.S3Client
	// HTTPClient is used for Terraform Enterprise backends.  Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
	// Token authenticates against Terraform Enterprise.
	Token string
	// Host overrides the Terraform Enterprise endpoint.
	Host string
}

var _ config.StateLoader = (*StateLoader)(nil)

// Load inspects the terraform section and constructs the matching backend.
// A "statefile" key selects S3; "workspace" plus "organization" selects
// Terraform Enterprise.  Loading does not fetch: the first Output call
// does.
func (l *StateLoader) Load(_ context.Context, section map[string]any) (config.OutputSource, error) {
	if statefile, ok := section["statefile"].(string); ok && statefile != "" {
		f, err := newS3Fetcher(l.S3, statefile)
		if err != nil {
			return nil, err
		}
		return NewState(f), nil
	}

	workspace, _ := section["workspace"].(string)
	organization, _ := section["organization"].(string)
	if workspace != "" && organization != "" {
		host := l.Host
		if h, ok := section["host"].(string); ok && h != "" {
			host = h
		}
		if host == "" {
			host = DefaultEnterpriseHost
		}
		client := l.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		return NewState(&enterpriseFetcher{
			client:       client,
			host:         host,
			organization: organization,
			workspace:    workspace,
			token:        l.Token,
		}), nil
	}

	return nil, fmt.Errorf(
		"terraform section needs either a statefile URL or a workspace and organization")
}
