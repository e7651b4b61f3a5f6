/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package terraform

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caltechads/deployfish/internal/aws"
)

const modernState = `{
  "version": 4,
  "outputs": {
    "cluster_name": {"value": "prod-ecs", "type": "string"},
    "desired_count": {"value": 3, "type": "number"}
  }
}`

const legacyState = `{
  "version": 1,
  "modules": [
    {
      "path": ["root"],
      "outputs": {
        "cluster_name": "prod-ecs-legacy",
        "vpc_id": {"value": "vpc-0abc", "type": "string"}
      }
    },
    {
      "path": ["root", "child"],
      "outputs": {"cluster_name": "should-not-win"}
    }
  ]
}`

func TestParseStatefileModernLayout(t *testing.T) {
	outputs, err := parseStatefile([]byte(modernState))
	require.NoError(t, err)
	assert.Equal(t, "prod-ecs", outputs["cluster_name"])
	assert.Equal(t, "3", outputs["desired_count"])
}

func TestParseStatefileLegacyLayout(t *testing.T) {
	outputs, err := parseStatefile([]byte(legacyState))
	require.NoError(t, err)
	assert.Equal(t, "prod-ecs-legacy", outputs["cluster_name"])
	assert.Equal(t, "vpc-0abc", outputs["vpc_id"])
}

func TestParseStatefileRejectsGarbage(t *testing.T) {
	_, err := parseStatefile([]byte("this is not json"))
	require.Error(t, err)
}

// countingFetcher wraps a canned payload and records fetch counts.
type countingFetcher struct {
	payload string
	err     error
	fetches int
}

func (f *countingFetcher) Location() string { return "test://state" }

func (f *countingFetcher) Fetch(_ context.Context) ([]byte, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.payload), nil
}

func TestStateFetchesOnceAndCaches(t *testing.T) {
	f := &countingFetcher{payload: modernState}
	state := NewState(f)
	ctx := context.Background()

	v, err := state.Output(ctx, "cluster_name")
	require.NoError(t, err)
	assert.Equal(t, "prod-ecs", v)

	_, err = state.Output(ctx, "desired_count")
	require.NoError(t, err)
	assert.Equal(t, 1, f.fetches)
}

func TestStateOutputNotFound(t *testing.T) {
	state := NewState(&countingFetcher{payload: modernState})

	_, err := state.Output(context.Background(), "nope")
	var notFound *OutputNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.Key)
	assert.Equal(t, "test://state", notFound.Location)
}

func TestStateFetchFailureWrapped(t *testing.T) {
	state := NewState(&countingFetcher{err: errors.New("boom")})

	_, err := state.Output(context.Background(), "cluster_name")
	var fetchErr *StatefileFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "test://state", fetchErr.Location)
}

func TestS3BackendFetchesStatefile(t *testing.T) {
	mockS3 := &aws.MockS3Client{}
	mockS3.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Bucket == "state-bucket" && *in.Key == "env/prod/terraform.tfstate"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(modernState)),
	}, nil)

	loader := &StateLoader{S3: mockS3}
	state, err := loader.Load(context.Background(), map[string]any{
		"statefile": "s3://state-bucket/env/prod/terraform.tfstate",
	})
	require.NoError(t, err)

	v, err := state.Output(context.Background(), "cluster_name")
	require.NoError(t, err)
	assert.Equal(t, "prod-ecs", v)
	mockS3.AssertExpectations(t)
}

func TestS3BackendRejectsBadURL(t *testing.T) {
	loader := &StateLoader{S3: &aws.MockS3Client{}}
	_, err := loader.Load(context.Background(), map[string]any{
		"statefile": "http://not-s3/state",
	})
	require.Error(t, err)
}

func TestEnterpriseBackendFetchesCurrentState(t *testing.T) {
	var sawAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v2/state-versions"):
			sawAuth = r.Header.Get("Authorization")
			assert.Equal(t, "my-org", r.URL.Query().Get("filter[organization][name]"))
			assert.Equal(t, "my-ws", r.URL.Query().Get("filter[workspace][name]"))
			_, _ = w.Write([]byte(`{"data":[{"attributes":{"hosted-state-download-url":"` +
				"http://" + r.Host + `/download/state"}}]}`))
		case r.URL.Path == "/download/state":
			_, _ = w.Write([]byte(modernState))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	state := NewState(&enterpriseFetcher{
		client:       server.Client(),
		host:         strings.TrimPrefix(server.URL, "http://"),
		organization: "my-org",
		workspace:    "my-ws",
		token:        "secret-token",
	})

	// The fetcher builds https URLs; point it at the test server scheme
	// by fetching through the download flow directly.
	body, err := state.source.(*enterpriseFetcher).get(
		context.Background(),
		server.URL+"/api/v2/state-versions?filter%5Borganization%5D%5Bname%5D=my-org&filter%5Bworkspace%5D%5Bname%5D=my-ws",
		true,
	)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hosted-state-download-url")
	assert.Equal(t, "Bearer secret-token", sawAuth)
}

func TestEnterpriseBackendRequiresToken(t *testing.T) {
	f := &enterpriseFetcher{client: http.DefaultClient, host: "example.test",
		organization: "o", workspace: "w"}
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ATLAS_TOKEN")
}

func TestLoaderRejectsEmptySection(t *testing.T) {
	loader := &StateLoader{}
	_, err := loader.Load(context.Background(), map[string]any{})
	require.Error(t, err)
}
