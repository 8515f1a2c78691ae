package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"farm_service/internal/domain/model"
)

const defaultTimeout = 10 * time.Second

// HTTPClient serves risk predictions from a remote farm_service instance.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Predict posts features to the remote predictor.
func (c *HTTPClient) Predict(ctx context.Context, features model.FeatureVector) (model.Prediction, error) {
	var pred model.Prediction
	err := c.do(ctx, http.MethodPost, "/api/predict", PredictRequest{Features: &features}, &pred)
	if err != nil {
		return model.Prediction{}, err
	}
	if !pred.Label.Valid() {
		return model.Prediction{}, fmt.Errorf("farm service returned unknown label %d", pred.Label)
	}
	return pred, nil
}

// PredictValues posts a raw feature slice. Length checking is left to the server.
func (c *HTTPClient) PredictValues(ctx context.Context, values []float64) (model.Prediction, error) {
	var pred model.Prediction
	if err := c.do(ctx, http.MethodPost, "/api/predict", PredictRequest{Values: values}, &pred); err != nil {
		return model.Prediction{}, err
	}
	if !pred.Label.Valid() {
		return model.Prediction{}, fmt.Errorf("farm service returned unknown label %d", pred.Label)
	}
	return pred, nil
}

// ModelStatus fetches the remote predictor state.
func (c *HTTPClient) ModelStatus(ctx context.Context) (model.ModelStatus, error) {
	var resp ModelResponse
	if err := c.do(ctx, http.MethodGet, "/api/model", nil, &resp); err != nil {
		return model.ModelStatus{}, err
	}
	return resp.Status, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("farm service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("farm service returned status %d", e.Code)
	}
	return fmt.Sprintf("farm service returned status %d: %s", e.Code, e.Message)
}
