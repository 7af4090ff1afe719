// Package archive streams stored slice batches as zip files for download.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"dicomslicer/internal/store"
)

// ErrEmptyBatch reports that the requested batch holds no matching slices.
var ErrEmptyBatch = fmt.Errorf("archive: batch is empty")

// WriteZip streams every slice of batch into w as a zip whose entries live
// under a top-level folder named after the batch, matching the layout a user
// gets from extracting next to other downloads. Thumbnails are never
// included. When only is non-empty it acts as an allow-list of slice names;
// names not present in the batch are skipped silently.
func WriteZip(ctx context.Context, w io.Writer, st store.Store, batch string, only []string) error {
	names, err := st.List(ctx, batch)
	if err != nil {
		return fmt.Errorf("list batch %s: %w", batch, err)
	}

	var allow map[string]bool
	if len(only) > 0 {
		allow = make(map[string]bool, len(only))
		for _, n := range only {
			allow[n] = true
		}
	}

	zw := zip.NewWriter(w)
	written := 0
	for _, name := range names {
		if strings.HasPrefix(name, "thumb_") {
			continue
		}
		if allow != nil && !allow[name] {
			continue
		}

		if err := copyEntry(ctx, zw, st, batch, name); err != nil {
			_ = zw.Close()
			return err
		}
		written++
	}

	if written == 0 {
		_ = zw.Close()
		return ErrEmptyBatch
	}
	return zw.Close()
}

func copyEntry(ctx context.Context, zw *zip.Writer, st store.Store, batch, name string) error {
	rc, err := st.Open(ctx, batch, name)
	if err != nil {
		return fmt.Errorf("open %s/%s: %w", batch, name, err)
	}
	defer func() { _ = rc.Close() }()

	entry, err := zw.Create(path.Join(batch, name))
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.Copy(entry, rc); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}
