package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurepulse/featurepulse/pkg/config"
	"github.com/featurepulse/featurepulse/pkg/provider"
)

func newTestClient(t *testing.T, handler http.Handler) provider.Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return provider.NewAzure(log, &config.ProviderConfig{
		BaseURL:           srv.URL,
		APIVersion:        "7.1-preview.1",
		AccessToken:       "token",
		RequestsPerMinute: 6000,
	})
}

func testRef() provider.RepoRef {
	return provider.RepoRef{
		Organization: "acme",
		Project:      "shop",
		PipelineID:   "Checkout=42",
	}
}

func TestListRuns_DecodesAndNormalizesBranch(t *testing.T) {
	var gotPath, gotAuth string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		payload := map[string]any{
			"count": 2,
			"value": []map[string]any{
				{
					"id":     101,
					"state":  "completed",
					"result": "succeeded",
					"resources": map[string]any{
						"repositories": map[string]any{
							"refName": "refs/heads/main",
						},
					},
				},
				{
					"id":    102,
					"state": "inProgress",
				},
			},
		}

		require.NoError(t, json.NewEncoder(w).Encode(payload))
	})

	client := newTestClient(t, handler)

	runs, err := client.ListRuns(context.Background(), testRef(), 20)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// The display-name prefix of the pipeline id is stripped from the URL.
	assert.Equal(t, "/acme/shop/_apis/pipelines/42/runs", gotPath)
	assert.Contains(t, gotAuth, "Basic ")

	assert.Equal(t, 101, runs[0].RunID)
	assert.Equal(t, "completed", runs[0].State)
	assert.Equal(t, "main", runs[0].Branch)

	// A run without branch metadata is kept, not dropped.
	assert.Equal(t, "unknown", runs[1].Branch)
}

func TestListRuns_ErrorStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such pipeline", http.StatusNotFound)
	})

	client := newTestClient(t, handler)

	_, err := client.ListRuns(context.Background(), testRef(), 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGetRunTestOutcomes_CollectsAllTestRuns(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/acme/shop/_apis/test/runs":
			assert.Contains(t, r.URL.Query().Get("buildUri"),
				"vstfs:///Build/Build/101")

			payload := map[string]any{
				"value": []map[string]any{{"id": 7}, {"id": 8}},
			}
			require.NoError(t, json.NewEncoder(w).Encode(payload))

		case "/acme/shop/_apis/test/runs/7/results":
			payload := map[string]any{
				"value": []map[string]any{{
					"automatedTestName": "login.feature.Login",
					"outcome":           "Passed",
					"durationInMs":      120.0,
				}},
			}
			require.NoError(t, json.NewEncoder(w).Encode(payload))

		case "/acme/shop/_apis/test/runs/8/results":
			payload := map[string]any{
				"value": []map[string]any{{
					"testCaseTitle": "Logout",
					"outcome":       "Failed",
					"durationInMs":  80.0,
				}},
			}
			require.NoError(t, json.NewEncoder(w).Encode(payload))

		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	client := newTestClient(t, handler)

	outcomes, err := client.GetRunTestOutcomes(context.Background(), testRef(), 101)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "login.feature.Login", outcomes[0].TestName)
	require.NotNil(t, outcomes[0].DurationMillis)
	assert.Equal(t, int64(120), *outcomes[0].DurationMillis)

	// Falls back to the test case title when no automated name exists.
	assert.Equal(t, "Logout", outcomes[1].TestName)
	assert.Equal(t, "Failed", outcomes[1].Outcome)
}

func TestPipelineNumericID(t *testing.T) {
	assert.Equal(t, "42", provider.PipelineNumericID("Checkout=42"))
	assert.Equal(t, "42", provider.PipelineNumericID("42"))
	assert.Equal(t, "7", provider.PipelineNumericID("a=b=7"))
}
