// Package store provides batch-scoped blob storage for uploaded datasets and
// rendered slices. Two backends implement the same interface: a process-local
// temporary directory and an S3-compatible object store.
package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Store is the storage collaborator the pipeline boundary writes to. Uploads
// are staged in their own namespace; rendered slices live under a batch
// namespace owned by one pipeline run. The core treats both as opaque.
type Store interface {
	// SaveUpload stages a raw uploaded dataset under name.
	SaveUpload(ctx context.Context, name string, r io.Reader, size int64) error
	// OpenUpload reads back a staged upload. The returned size is the blob
	// length in bytes.
	OpenUpload(ctx context.Context, name string) (io.ReadCloser, int64, error)
	// RemoveUpload discards a staged upload, e.g. after a failed decode.
	RemoveUpload(ctx context.Context, name string) error

	// Put writes one named blob into a batch namespace, creating the
	// namespace on first write.
	Put(ctx context.Context, batch, name string, r io.Reader, size int64) error
	// Open reads back one blob of a batch.
	Open(ctx context.Context, batch, name string) (io.ReadCloser, error)
	// List returns the sorted blob names of a batch.
	List(ctx context.Context, batch string) ([]string, error)
	// RemoveBatch deletes an entire batch namespace. Removing a batch that
	// does not exist is not an error.
	RemoveBatch(ctx context.Context, batch string) error

	// Sweep removes uploads and batch namespaces older than maxAge and
	// reports how many entries were removed.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)

	// Close releases the backing storage. For the local backend this deletes
	// the temporary root, discarding every upload and batch.
	Close() error
}

// checkName rejects names that could escape their namespace.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}
