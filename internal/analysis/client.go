// Package analysis calls the external sentiment analysis endpoint.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// Analyzer turns text into emotion scores.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (sentiment.Scores, error)
}

// Client is a stateless wrapper around POST /analyze.
// It performs no retries and sets no timeout beyond the caller's context.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for the endpoint at baseURL.
// A nil httpClient uses a fresh http.Client with transport defaults.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/analyze",
		http:     httpClient,
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Emotions sentiment.Scores `json:"emotions"`
}

// Analyze posts text and returns the emotion scores.
// Errors: NETWORK on transport failure, API on a non-2xx status or an
// undecodable body, EMPTY_RESULT when the response has no emotions.
func (c *Client) Analyze(ctx context.Context, text string) (sentiment.Scores, error) {
	buf, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return sentiment.Scores{}, errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return sentiment.Scores{}, errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return sentiment.Scores{}, errors.NewNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return sentiment.Scores{}, errors.NewAPI(resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return sentiment.Scores{}, errors.NewNetwork(err)
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		apiErr := errors.NewAPI(resp.Status)
		apiErr.Message = fmt.Sprintf("malformed response: %v", err)
		apiErr.Cause = err
		return sentiment.Scores{}, apiErr
	}
	if parsed.Emotions.Len() == 0 {
		return sentiment.Scores{}, errors.NewEmptyResult()
	}

	return parsed.Emotions, nil
}
