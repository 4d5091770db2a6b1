package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/flatfhir/bulkexport/internal/clock"
	"github.com/flatfhir/bulkexport/internal/filestore"
	"github.com/rs/zerolog"
)

// orchestrator implements C6: the three-phase protocol state machine
// (kick-off -> polling -> manifest -> downloading -> done/failed), sharing
// one global deadline across polling and downloading (spec.md §4.1).
type orchestrator struct {
	transport *transport
	store     filestore.Store
	log       zerolog.Logger
}

func (o *orchestrator) run(ctx context.Context, req *Request) (*Result, error) {
	deadline := clock.New(req.Timeout)

	root := o.store.Root()
	exists, err := root.Exists(ctx)
	if err != nil {
		return nil, &SystemError{Cause: err}
	}
	if exists {
		return nil, &ConfigurationError{Message: fmt.Sprintf("destination %s already exists", root.URI())}
	}

	statusURL, err := o.kickOff(ctx, req)
	if err != nil {
		return nil, err
	}

	manifest, err := o.poll(ctx, req, statusURL, deadline)
	if err != nil {
		return nil, err
	}

	if err := root.Mkdir(ctx); err != nil {
		return nil, &SystemError{Cause: err}
	}

	entries, err := expandManifest(manifest, root, req.OutputExtension)
	if err != nil {
		return nil, err
	}

	files, err := runDownloads(o.transport.httpClient, entries, deadline, req.MaxConcurrentDownloads, o.log)
	if err != nil {
		if te, ok := err.(*TimeoutError); ok {
			te.Elapsed = req.Timeout
		}
		return nil, err
	}

	if _, err := root.Child("_SUCCESS").WriteAll(ctx, emptyReader{}); err != nil {
		return nil, &SystemError{Cause: err}
	}

	transactionTime, err := parseLooseTransactionTime(manifest.TransactionTime)
	if err != nil {
		return nil, &ProtocolError{Message: fmt.Sprintf("parsing transaction_time: %v", err)}
	}

	return &Result{TransactionTime: transactionTime, Files: files}, nil
}

// kickOff implements the INIT -> POLLING transition: submit the kick-off
// request and extract the status URL from the Accepted response.
func (o *orchestrator) kickOff(ctx context.Context, req *Request) (string, error) {
	httpReq, err := buildKickOffRequest(req)
	if err != nil {
		return "", err
	}
	httpReq = httpReq.WithContext(ctx)

	resp, err := o.transport.kickOff(ctx, httpReq)
	if err != nil {
		return "", err
	}

	switch resp.kind {
	case asyncAccepted:
		if !resp.hasContentLoc {
			return "", &ProtocolError{Message: "Accepted kick-off response is missing Content-Location"}
		}
		return resp.contentLocation, nil
	case asyncFinal:
		// A synchronous Final from kick-off is not used as a manifest:
		// the export stops here with a protocol error (see DESIGN.md).
		return "", &ProtocolError{Message: "kick-off returned a Final response directly; expected Accepted"}
	default:
		return "", &ProtocolError{Message: "kick-off returned an unrecognized response kind"}
	}
}

// poll implements the POLLING state, including adaptive delay and the
// transient-error budget.
func (o *orchestrator) poll(ctx context.Context, req *Request, statusURL string, deadline clock.Deadline) (*Manifest, error) {
	transientCount := 0

	for {
		if deadline.Expired() {
			return nil, &TimeoutError{Elapsed: req.Timeout}
		}

		resp, err := o.transport.checkStatus(ctx, statusURL)
		if err != nil {
			if te, ok := err.(*transientError); ok {
				transientCount++
				if transientCount > req.AsyncConfig.MaxTransientErrors {
					return nil, &HttpError{
						Status:     te.status,
						Outcome:    te.outcome,
						RetryAfter: te.retryAfter,
						HasRetry:   te.hasRetry,
						Message:    "transient error budget exhausted",
					}
				}
				delay := pollDelay(te.hasRetry, te.retryAfter, req.AsyncConfig)
				o.log.Debug().Int("transientCount", transientCount).Dur("delay", delay).Msg("transient status error, retrying")
				if !sleepOrCancel(ctx, delay) {
					return nil, &SystemError{Cause: ctx.Err()}
				}
				continue
			}
			return nil, err
		}

		switch resp.kind {
		case asyncAccepted:
			delay := pollDelay(resp.hasRetryAfter, resp.retryAfter, req.AsyncConfig)
			if resp.progress != "" {
				o.log.Debug().Str("progress", resp.progress).Msg("export in progress")
			}
			if !sleepOrCancel(ctx, delay) {
				return nil, &SystemError{Cause: ctx.Err()}
			}
		case asyncFinal:
			return resp.manifest, nil
		}
	}
}

func pollDelay(hasRetryAfter bool, retryAfter time.Duration, cfg AsyncConfig) time.Duration {
	delay := cfg.MinPollingDelay
	if hasRetryAfter {
		delay = retryAfter
	}
	if delay > cfg.MaxPollingDelay {
		delay = cfg.MaxPollingDelay
	}
	return delay
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// expandManifest implements the manifest -> []downloadEntry expansion: URLs
// are grouped by resource type in the order they appear in manifest.Output
// (an insertion-order-preserving grouping, the Go equivalent of the
// source's LinkedHashMap<String, List<URI>>), then numbered densely per
// type starting at 0000 (spec.md §3, §8).
func expandManifest(manifest *Manifest, root filestore.Handle, extension string) ([]downloadEntry, error) {
	order := make([]string, 0)
	grouped := make(map[string][]FileItem)
	for _, item := range manifest.Output {
		if _, seen := grouped[item.Type]; !seen {
			order = append(order, item.Type)
		}
		grouped[item.Type] = append(grouped[item.Type], item)
	}

	var entries []downloadEntry
	for _, resourceType := range order {
		for i, item := range grouped[resourceType] {
			name := fmt.Sprintf("%s.%04d.%s", resourceType, i, extension)
			entries = append(entries, downloadEntry{
				source:      item.URL,
				destination: root.Child(name),
			})
		}
	}
	return entries, nil
}

type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, io.EOF }
