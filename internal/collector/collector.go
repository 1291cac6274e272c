// Package collector pulls call records from the upstream intake
// platform and caches the raw JSON per call. Recording URLs inside the
// payloads are signed and must never be logged.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rohrwerk/callaudit/internal/call"
	"github.com/rohrwerk/callaudit/internal/config"
	"github.com/rohrwerk/callaudit/pkg/logger"
)

// CollectedCall pairs a decoded record with its cached raw path.
type CollectedCall struct {
	CallID  string
	Record  *call.Record
	RawPath string
}

// Options selects which calls to collect: explicit ids, or the most
// recent Last calls.
type Options struct {
	IDs  []string
	Last int
}

// Collector fetches call data from the upstream API.
type Collector struct {
	baseURL string
	apiKey  string
	rawDir  string
	client  *http.Client
	logger  *logger.Logger
}

// New creates a collector. The API key is read from the environment
// variable named in the config; a missing key is a hard failure because
// nothing downstream can run without input.
func New(cfg config.UpstreamConfig, rawDir string, logger *logger.Logger) (*Collector, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s not set", cfg.APIKeyEnv)
	}
	return &Collector{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		rawDir:  rawDir,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger:  logger.Named("collector"),
	}, nil
}

// Collect fetches the selected calls, caches each raw payload under the
// raw dir keyed by short call id, and returns the decoded records.
func (c *Collector) Collect(ctx context.Context, opts Options) ([]CollectedCall, error) {
	if err := os.MkdirAll(c.rawDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create raw dir: %w", err)
	}

	callIDs := opts.IDs
	if len(callIDs) == 0 {
		last := opts.Last
		if last <= 0 {
			last = 2
		}
		listed, err := c.listCalls(ctx, last)
		if err != nil {
			return nil, err
		}
		for _, rec := range listed {
			if rec.CallID != "" {
				callIDs = append(callIDs, rec.CallID)
			}
		}
		if len(callIDs) == 0 {
			return nil, fmt.Errorf("no calls found in upstream call history")
		}
	}

	results := make([]CollectedCall, 0, len(callIDs))
	for _, id := range callIDs {
		raw, err := c.getCall(ctx, id)
		if err != nil {
			return nil, err
		}
		rec, err := call.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode call %s: %w", id, err)
		}
		rawPath := filepath.Join(c.rawDir, rec.ShortID()+".json")
		if err := os.WriteFile(rawPath, raw, 0o644); err != nil {
			return nil, fmt.Errorf("failed to cache raw call: %w", err)
		}
		c.logger.Debug("Collected call",
			logger.String("call_id", rec.ShortID()),
			logger.Bool("audio_available", rec.RecordingAvailable()))
		results = append(results, CollectedCall{CallID: id, Record: rec, RawPath: rawPath})
	}
	return results, nil
}

// listCalls fetches the most recent calls, newest first.
func (c *Collector) listCalls(ctx context.Context, limit int) ([]*call.Record, error) {
	body, err := json.Marshal(map[string]any{
		"sort_order":      "descending",
		"limit":           limit,
		"filter_criteria": map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/v2/list-calls", body)
	if err != nil {
		return nil, err
	}

	// The API returns either a bare array or a wrapped object.
	var listed []*call.Record
	if err := json.Unmarshal(data, &listed); err == nil {
		return listed, nil
	}
	var wrapped struct {
		Calls []*call.Record `json:"calls"`
		Data  []*call.Record `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode call list: %w", err)
	}
	if len(wrapped.Calls) > 0 {
		return wrapped.Calls, nil
	}
	return wrapped.Data, nil
}

// getCall fetches the full detail for one call.
func (c *Collector) getCall(ctx context.Context, callID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/v2/get-call/"+callID, nil)
}

func (c *Collector) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream %s returned %d: %s", path, resp.StatusCode, string(data))
	}
	return data, nil
}
