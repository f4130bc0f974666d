package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vk/qcdist/internal/ctxlog"
)

// HTTPPartitioner talks to an out-of-process partitioning service over a
// JSON POST endpoint.
type HTTPPartitioner struct {
	URL    string
	Client *http.Client
}

// NewHTTPPartitioner returns a partitioner for the given endpoint with a
// default client timeout.
func NewHTTPPartitioner(url string) *HTTPPartitioner {
	return &HTTPPartitioner{
		URL:    url,
		Client: &http.Client{Timeout: 120 * time.Second},
	}
}

type partitionResponse struct {
	Partition []int  `json:"partition"`
	Error     string `json:"error,omitempty"`
}

// Partition posts the problem and decodes the block assignment.
func (h *HTTPPartitioner) Partition(ctx context.Context, p *Problem) ([]int, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Calling external partitioner.", "url", h.URL, "vertices", p.VertexCount(), "blocks", p.Blocks)

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode problem: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partitioner request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read partitioner response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("partitioner returned status %s: %s", resp.Status, respBody)
	}

	var out partitionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode partitioner response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("partitioner error: %s", out.Error)
	}
	if len(out.Partition) != p.VertexCount() {
		return nil, fmt.Errorf("partitioner returned %d assignments for %d vertices", len(out.Partition), p.VertexCount())
	}
	for v, b := range out.Partition {
		if b < 0 || b >= p.Blocks {
			return nil, fmt.Errorf("vertex %d assigned to block %d outside [0,%d)", v, b, p.Blocks)
		}
	}

	logger.Debug("Partitioner call finished.")
	return out.Partition, nil
}
