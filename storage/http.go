package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/janelia-flyem/octview/octview"
)

// HTTPSource fetches tiles from an octview tile server.  Tiles travel in
// serialized form (compression + checksum) and are deserialized on arrival.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source against a tile server base URL, e.g.
// "http://localhost:8000".
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// GetTile implements TileSource.
func (s *HTTPSource) GetTile(ctx context.Context, k TileKey) ([]byte, error) {
	url := fmt.Sprintf("%s/api/tile/%d/%d_%d", s.baseURL, k.Scale, k.Row, k.Col)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrTileNotFound
	default:
		return nil, fmt.Errorf("tile server returned status %d for %s", resp.StatusCode, url)
	}
	serialized, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return octview.DeserializeData(serialized)
}

func (s *HTTPSource) Close() {
	s.client.CloseIdleConnections()
}
