package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/featurepulse/featurepulse/pkg/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const requestTimeout = 30 * time.Second

// Compile-time interface check.
var _ Provider = (*azureClient)(nil)

type azureClient struct {
	log        logrus.FieldLogger
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiVersion string
	authHeader string
}

// NewAzure creates a Provider backed by the Azure DevOps REST API.
// Requests are rate limited to the configured budget so sweeps across
// many repositories cannot trip the provider's throttling.
func NewAzure(log logrus.FieldLogger, cfg *config.ProviderConfig) Provider {
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)

	return &azureClient{
		log:        log.WithField("component", "provider"),
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(perSecond, 1),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiVersion: cfg.APIVersion,
		authHeader: basicAuth(cfg.AccessToken),
	}
}

// basicAuth builds the PAT authorization header. Azure DevOps expects
// an empty username with the token as password.
func basicAuth(token string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(":" + token))

	return "Basic " + encoded
}

type runListResponse struct {
	Count int        `json:"count"`
	Value []azureRun `json:"value"`
}

type azureRun struct {
	ID           int                    `json:"id"`
	State        string                 `json:"state"`
	Result       string                 `json:"result"`
	CreatedDate  time.Time              `json:"createdDate"`
	FinishedDate time.Time              `json:"finishedDate"`
	Resources    map[string]azureRepoRz `json:"resources"`
	Variables    map[string]azureVar    `json:"variables"`
}

type azureRepoRz struct {
	RefName string `json:"refName"`
}

type azureVar struct {
	Value string `json:"value"`
}

type testRunListResponse struct {
	Value []azureTestRun `json:"value"`
}

type azureTestRun struct {
	ID int `json:"id"`
}

type testResultListResponse struct {
	Value []azureTestResult `json:"value"`
}

type azureTestResult struct {
	TestCaseTitle     string    `json:"testCaseTitle"`
	AutomatedTestName string    `json:"automatedTestName"`
	Outcome           string    `json:"outcome"`
	DurationMillis    float64   `json:"durationInMs"`
	CompletedDate     time.Time `json:"completedDate"`
}

// ListRuns lists the pipeline's most recent runs, newest first as
// returned by the provider.
func (c *azureClient) ListRuns(
	ctx context.Context, ref RepoRef, limit int,
) ([]RunSummary, error) {
	endpoint := fmt.Sprintf(
		"%s/%s/%s/_apis/pipelines/%s/runs?api-version=%s&$top=%d",
		c.baseURL,
		url.PathEscape(ref.Organization),
		url.PathEscape(ref.Project),
		url.PathEscape(PipelineNumericID(ref.PipelineID)),
		c.apiVersion,
		limit,
	)

	var payload runListResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]RunSummary, 0, len(payload.Value))

	for _, r := range payload.Value {
		runs = append(runs, RunSummary{
			RunID:        r.ID,
			State:        r.State,
			Result:       r.Result,
			Branch:       branchOf(r),
			CreatedDate:  r.CreatedDate,
			FinishedDate: r.FinishedDate,
		})
	}

	return runs, nil
}

// GetRunTestOutcomes fetches every test result attached to the build of
// one pipeline run.
func (c *azureClient) GetRunTestOutcomes(
	ctx context.Context, ref RepoRef, runID int,
) ([]TestOutcome, error) {
	buildURI := fmt.Sprintf("vstfs:///Build/Build/%d", runID)
	listEndpoint := fmt.Sprintf(
		"%s/%s/%s/_apis/test/runs?api-version=%s&buildUri=%s",
		c.baseURL,
		url.PathEscape(ref.Organization),
		url.PathEscape(ref.Project),
		c.apiVersion,
		url.QueryEscape(buildURI),
	)

	var testRuns testRunListResponse
	if err := c.getJSON(ctx, listEndpoint, &testRuns); err != nil {
		return nil, fmt.Errorf("listing test runs: %w", err)
	}

	var outcomes []TestOutcome

	for _, tr := range testRuns.Value {
		resultsEndpoint := fmt.Sprintf(
			"%s/%s/%s/_apis/test/runs/%d/results?api-version=%s",
			c.baseURL,
			url.PathEscape(ref.Organization),
			url.PathEscape(ref.Project),
			tr.ID,
			c.apiVersion,
		)

		var results testResultListResponse
		if err := c.getJSON(ctx, resultsEndpoint, &results); err != nil {
			return nil, fmt.Errorf("fetching results of test run %d: %w", tr.ID, err)
		}

		for _, r := range results.Value {
			name := r.AutomatedTestName
			if name == "" {
				name = r.TestCaseTitle
			}

			duration := int64(r.DurationMillis)
			outcomes = append(outcomes, TestOutcome{
				TestName:       name,
				Outcome:        r.Outcome,
				DurationMillis: &duration,
				CompletedDate:  r.CompletedDate,
			})
		}
	}

	return outcomes, nil
}

func (c *azureClient) getJSON(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// branchOf extracts the run's source branch, preferring the pipeline
// repository resource. Unknown branches fall back to "unknown" rather
// than being dropped.
func branchOf(r azureRun) string {
	ref := ""

	if rz, ok := r.Resources["repositories"]; ok {
		ref = rz.RefName
	}

	if ref == "" {
		if v, ok := r.Variables["Build.SourceBranch"]; ok {
			ref = v.Value
		}
	}

	if ref == "" {
		return "unknown"
	}

	return strings.TrimPrefix(ref, "refs/heads/")
}

// PipelineNumericID strips a display-name prefix from configured
// pipeline ids of the form "Name=123", keeping plain ids untouched.
func PipelineNumericID(pipelineID string) string {
	if idx := strings.LastIndex(pipelineID, "="); idx >= 0 {
		return pipelineID[idx+1:]
	}

	return pipelineID
}
