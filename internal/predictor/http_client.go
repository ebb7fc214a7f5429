package predictor

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"

	"marketpulse/internal/logging"
	"marketpulse/internal/model"
)

// CallDeadline is the per-call deadline mandated by spec §6.3.
const CallDeadline = 2 * time.Second

// HealthCheckInterval is how long a cached health() result stays valid.
const HealthCheckInterval = 30 * time.Second

// HTTPClient is the reference Client adapter: a fasthttp POST to an
// external win-probability service, with a 30s-cached health check.
type HTTPClient struct {
	BaseURL string
	client  *fasthttp.Client
	json    jsoniter.API
	logger  *logging.Logger

	mu          sync.Mutex
	lastHealthy bool
	lastChecked time.Time
}

// NewHTTPClient creates a reference Predictor adapter against baseURL.
func NewHTTPClient(baseURL string, logger *logging.Logger) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		client:  &fasthttp.Client{},
		json:    jsoniter.ConfigCompatibleWithStandardLibrary,
		logger:  logger,
	}
}

type predictRequest struct {
	Features [35]float64 `json:"features"`
}

type predictResponse struct {
	WinProbability float64 `json:"win_probability"`
	QualityTier    string  `json:"quality_tier"`
	Confidence     float64 `json:"confidence"`
	ModelVersion   string  `json:"model_version"`
}

// Predict implements Client.
func (c *HTTPClient) Predict(ctx context.Context, features model.Features) (PredictionResult, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	body, err := c.json.Marshal(predictRequest{Features: features.Columns()})
	if err != nil {
		return PredictionResult{}, fmt.Errorf("predictor marshal request: %w", err)
	}

	req.SetRequestURI(c.BaseURL + "/predict")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := CallDeadline
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < deadline {
			deadline = remaining
		}
	}

	if err := c.client.DoTimeout(req, resp, deadline); err != nil {
		return PredictionResult{}, fmt.Errorf("predictor predict: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return PredictionResult{}, fmt.Errorf("predictor predict: status %d", resp.StatusCode())
	}

	var raw predictResponse
	if err := c.json.Unmarshal(resp.Body(), &raw); err != nil {
		return PredictionResult{}, fmt.Errorf("predictor unmarshal response: %w", err)
	}

	return PredictionResult{
		WinProbability: raw.WinProbability,
		QualityTier:    model.QualityTier(raw.QualityTier),
		Confidence:     raw.Confidence,
		ModelVersion:   raw.ModelVersion,
	}, nil
}

// Healthy implements Client, caching the result for HealthCheckInterval so a
// degraded predictor is not probed on every signal evaluation.
func (c *HTTPClient) Healthy(ctx context.Context) bool {
	c.mu.Lock()
	if time.Since(c.lastChecked) < HealthCheckInterval {
		healthy := c.lastHealthy
		c.mu.Unlock()
		return healthy
	}
	c.mu.Unlock()

	healthy := c.probe(ctx)

	c.mu.Lock()
	c.lastHealthy = healthy
	c.lastChecked = time.Now()
	c.mu.Unlock()

	if !healthy {
		c.logger.Warn("predictor health check failed, disabling ML enhancement")
	}
	return healthy
}

func (c *HTTPClient) probe(ctx context.Context) bool {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.BaseURL + "/health")
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline := CallDeadline
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < deadline {
			deadline = remaining
		}
	}

	if err := c.client.DoTimeout(req, resp, deadline); err != nil {
		return false
	}
	return resp.StatusCode() == fasthttp.StatusOK
}
