package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"raggy/internal/contextutil"
)

// ProbeTimeout bounds the primary /api/tags request before falling back.
const ProbeTimeout = 2 * time.Second

// ProbeResult describes the reachability of the embedding backend.
type ProbeResult struct {
	OK           bool     `json:"ok"`
	Status       int      `json:"status"`
	BaseURL      string   `json:"baseUrl"`
	Endpoint     string   `json:"endpoint,omitempty"`
	Models       *int     `json:"models,omitempty"`
	ModelsList   []string `json:"modelsList,omitempty"`
	UsedFallback bool     `json:"usedFallback"`
	Error        string   `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
		Tag   string `json:"tag"`
	} `json:"models"`
}

// Probe checks connectivity with GET /api/tags, falling back to
// GET /api/version when the first request fails or is not 2xx. The error is
// non-nil only when the fallback request could not be sent at all.
func (c *EmbeddingsClient) Probe(ctx context.Context) (ProbeResult, error) {
	logger := contextutil.LoggerFromContext(ctx)
	res := ProbeResult{BaseURL: c.BaseURL}
	start := time.Now()

	tagsCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	endpoint := c.BaseURL + "/api/tags"
	status, body, err := c.get(tagsCtx, endpoint)
	if err != nil || status < 200 || status > 299 {
		if err != nil {
			logger.WarnContext(ctx, "probe primary endpoint failed", "endpoint", endpoint, "error", err)
		}
		endpoint = c.BaseURL + "/api/version"
		res.UsedFallback = true
		status, body, err = c.get(ctx, endpoint)
		if err != nil {
			res.Error = err.Error()
			return res, fmt.Errorf("failed to reach embedding backend: %w", err)
		}
	}

	res.Status = status
	res.Endpoint = endpoint
	res.OK = status >= 200 && status <= 299

	var tags tagsResponse
	if json.Unmarshal(body, &tags) == nil && tags.Models != nil {
		list := make([]string, 0, len(tags.Models))
		for _, m := range tags.Models {
			switch {
			case m.Name != "":
				list = append(list, m.Name)
			case m.Model != "":
				list = append(list, m.Model)
			case m.Tag != "":
				list = append(list, m.Tag)
			}
		}
		n := len(list)
		res.Models = &n
		res.ModelsList = list
	}

	logger.InfoContext(ctx, "probed embedding backend",
		"ok", res.OK,
		"status", res.Status,
		"used_fallback", res.UsedFallback,
		"duration", time.Since(start))
	return res, nil
}

func (c *EmbeddingsClient) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
