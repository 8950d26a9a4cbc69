// Package relay forwards analysis records to the persistence relay service.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hpungsan/emolens/internal/docstore"
	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/history"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// Client talks to POST /save-sentiment and GET /get-sentiments.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the relay at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SaveRequest is the POST /save-sentiment body.
type SaveRequest struct {
	Text     string            `json:"text"`
	Emotions *sentiment.Scores `json:"emotions"`
}

// SaveResponse is the POST /save-sentiment success body.
type SaveResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Save relays one record and returns the remote document ID.
// Blank text or empty emotions fail with VALIDATION before any request is made.
func (c *Client) Save(ctx context.Context, text string, emotions sentiment.Scores) (string, error) {
	if strings.TrimSpace(text) == "" || emotions.Len() == 0 {
		return "", errors.NewValidation("No sentiment available to save.")
	}

	body, err := json.Marshal(SaveRequest{Text: text, Emotions: &emotions})
	if err != nil {
		return "", errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/save-sentiment", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out SaveResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// SaveRecord relays a history record. Records without scores fail with VALIDATION.
func (c *Client) SaveRecord(ctx context.Context, rec history.Record) (string, error) {
	if !rec.Valid() {
		return c.Save(ctx, rec.SelectedText, sentiment.Scores{})
	}
	return c.Save(ctx, rec.SelectedText, *rec.Result)
}

// List returns the saved documents, newest first.
func (c *Client) List(ctx context.Context) ([]docstore.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get-sentiments", nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("Accept", "application/json")

	var docs []docstore.Document
	if err := c.do(req, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return docs, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		srvErr := errors.NewServer(resp.StatusCode, resp.Status)
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			srvErr.Details["error"] = body.Error
		}
		return srvErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		srvErr := errors.NewServer(resp.StatusCode, resp.Status)
		srvErr.Message = fmt.Sprintf("malformed response: %v", err)
		srvErr.Cause = err
		return srvErr
	}
	return nil
}
