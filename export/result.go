package export

import (
	"time"

	"github.com/flatfhir/bulkexport/internal/filestore"
)

// downloadEntry pairs a manifest URL with the file-store handle it should
// be written to (spec.md §3, "Download Entry").
type downloadEntry struct {
	source      string
	destination filestore.Handle
}

// FileResult describes one successfully downloaded file.
type FileResult struct {
	Source      string
	Destination string
	Size        int64
}

// Result is what a successful export returns.
type Result struct {
	TransactionTime time.Time
	Files           []FileResult
}
