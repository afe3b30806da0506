package clientstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/markaspall/svdagworld/internal/voxel"
)

// fetcher fetches chunk bytes over HTTP. A thin interface lets tests
// substitute an in-memory fetcher instead of standing up a real server.
type fetcher interface {
	Fetch(ctx context.Context, worldID string, coord voxel.ChunkCoord) ([]byte, error)
}

type httpFetcher struct {
	client  *http.Client
	baseURL string
}

func newHTTPFetcher(baseURL string) *httpFetcher {
	return &httpFetcher{client: &http.Client{Timeout: 10 * time.Second}, baseURL: baseURL}
}

func (f *httpFetcher) Fetch(ctx context.Context, worldID string, coord voxel.ChunkCoord) ([]byte, error) {
	url := fmt.Sprintf("%s/api/worlds/%s/chunks/%d/%d/%d", f.baseURL, worldID, coord.X, coord.Y, coord.Z)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("clientstream: fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type fetchResult struct {
	coord voxel.ChunkCoord
	data  []byte
	err   error
}

// runFetchWorkers drains tasks with concurrency goroutines, pushing
// each completion to results. The tasks/results-channel-plus-worker-pool
// shape follows the firestar example's column-generation fan-out,
// adapted from CPU-bound noise sampling to network-bound HTTP fetches.
func runFetchWorkers(ctx context.Context, f fetcher, worldID string, coords []voxel.ChunkCoord, concurrency int, results chan<- fetchResult) {
	if concurrency < 1 {
		concurrency = 1
	}
	tasks := make(chan voxel.ChunkCoord, len(coords))
	for _, c := range coords {
		tasks <- c
	}
	close(tasks)

	done := make(chan struct{})
	for i := 0; i < concurrency; i++ {
		go func() {
			for coord := range tasks {
				data, err := f.Fetch(ctx, worldID, coord)
				select {
				case results <- fetchResult{coord: coord, data: data, err: err}:
				case <-ctx.Done():
				}
			}
			done <- struct{}{}
		}()
	}
	go func() {
		for i := 0; i < concurrency; i++ {
			<-done
		}
	}()
}
