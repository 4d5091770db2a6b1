// Package filestore implements the C3 file-store handle contract: a small
// set of operations — exists, mkdir, child, write-all, and URI — that the
// download engine and orchestrator use to materialize downloaded manifest
// entries without knowing whether the destination is a local directory or a
// remote object store. The contract itself is what's specified; Local and S3
// are two concrete implementations of it.
package filestore

import (
	"context"
	"errors"
	"io"
)

// ErrAlreadyExists is returned by Mkdir (through the orchestrator's
// pre-download check) when a destination directory is already present. An
// export refuses to write into an existing directory.
var ErrAlreadyExists = errors.New("filestore: destination already exists")

// Handle is a single file or directory location within a FileStore. All
// paths are store-relative; resolving them to an absolute URI is the store's
// job, not the caller's.
type Handle interface {
	// Exists reports whether this handle refers to an existing file or
	// directory.
	Exists(ctx context.Context) (bool, error)

	// Mkdir creates this handle as a directory. It is an error to call Mkdir
	// on a handle that already exists.
	Mkdir(ctx context.Context) error

	// Child returns a handle for a path nested under this one. Child does
	// not touch the store; it is pure path composition.
	Child(name string) Handle

	// WriteAll copies src to this handle in full, creating or truncating the
	// underlying object, and returns the number of bytes written.
	WriteAll(ctx context.Context, src io.Reader) (int64, error)

	// URI returns a store-specific absolute identifier for this handle,
	// suitable for logging or for reporting in a FileResult.
	URI() string
}

// Store is a pluggable file-store backend. Two concrete implementations ship
// with this package: Local (the filesystem) and S3 (an S3-compatible object
// store via minio-go). Callers obtain a root Handle with Root and navigate
// from there using Handle.Child.
type Store interface {
	// Root returns the handle for the store's configured root location.
	Root() Handle
}
