package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/flatfhir/bulkexport/internal/clock"
	"github.com/rs/zerolog"
)

// downloadResult is one worker's outcome, matched back to its input index
// so the caller can preserve input order regardless of completion order
// (spec.md §4.4, §8).
type downloadResult struct {
	size int64
	err  error
}

// runDownloads implements C7: it fans entries out across a bounded worker
// pool, fails fast on the first error by cancelling the rest, and enforces
// the remaining deadline through a context deadline shared by all workers —
// mirroring UrlDownloadTemplate.download's Future.isDone polling
// (original_source/) translated into Go's native idiom: goroutines,
// a context for cancellation, a semaphore channel bounding concurrency, and
// a per-index results slice instead of a list of Futures polled by hand.
func runDownloads(httpClient *http.Client, entries []downloadEntry, deadline clock.Deadline, maxConcurrent int, log zerolog.Logger) ([]FileResult, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if deadline.Bounded() {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithDeadline(ctx, deadline.At())
		defer timeoutCancel()
	}

	results := make([]downloadResult, len(entries))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry downloadEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			size, err := downloadOne(ctx, httpClient, entry)
			results[i] = downloadResult{size: size, err: err}
			if err != nil {
				once.Do(func() {
					firstErr = err
					log.Error().Str("url", entry.source).Err(err).Msg("download failed, cancelling remaining workers")
					cancel()
				})
			}
		}(i, entry)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Either a worker failed (firstErr will be set) or the deadline
		// expired; either way wait for in-flight workers to unwind before
		// reading results.
		<-done
	}

	// A worker cancelled by the expiring deadline also records its error in
	// firstErr, so the deadline is checked on the context itself first.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (ctx.Err() != nil && firstErr == nil) {
		return nil, &TimeoutError{Elapsed: -deadline.Remaining()}
	}
	if firstErr != nil {
		return nil, &DownloadError{Cause: firstErr}
	}

	fileResults := make([]FileResult, len(entries))
	for i, entry := range entries {
		fileResults[i] = FileResult{
			Source:      entry.source,
			Destination: entry.destination.URI(),
			Size:        results[i].size,
		}
	}
	return fileResults, nil
}

func downloadOne(ctx context.Context, httpClient *http.Client, entry downloadEntry) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.source, nil)
	if err != nil {
		return 0, fmt.Errorf("building download request for %s: %w", entry.source, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", entry.source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, &HttpError{Status: resp.StatusCode, Message: fmt.Sprintf("downloading %s", entry.source)}
	}

	n, err := entry.destination.WriteAll(ctx, resp.Body)
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", entry.source, err)
	}
	return n, nil
}
