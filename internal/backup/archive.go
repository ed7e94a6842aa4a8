// Package backup writes compressed archives of profile save data.
//
// Archives are tar streams compressed with zstd, stored per profile as
// <root>/<profile>/<profile>_<timestamp>.tar.zst. Older archives beyond the
// retention count are pruned after each backup.
package backup

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/zstd"
)

const (
	archiveExt      = ".tar.zst"
	timestampLayout = "20060102-150405"
)

// Archive is a backup archive on disk.
type Archive struct {
	Path    string
	Created time.Time
	Size    int64
}

// Result describes a freshly written archive.
type Result struct {
	Archive
	Files int
	Bytes int64
}

// Archiver manages the backups below one root directory.
type Archiver struct {
	root string
	now  func() time.Time
}

// New creates an Archiver rooted at dir.
func New(dir string) *Archiver {
	return &Archiver{root: dir, now: time.Now}
}

// Dir returns the backup folder of a profile.
func (a *Archiver) Dir(profileID string) string {
	return filepath.Join(a.root, strings.ToLower(profileID))
}

// Create archives sourceDir for profileID.
func (a *Archiver) Create(ctx context.Context, profileID, sourceDir string) (*Result, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("save directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("save directory %s is not a directory", sourceDir)
	}

	dir := a.Dir(profileID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	created := a.now().UTC()
	path := filepath.Join(dir, fmt.Sprintf("%s_%s%s", strings.ToLower(profileID), created.Format(timestampLayout), archiveExt))

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc, err := zstd.NewWriter(pending, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}

	files, bytes, err := writeTar(ctx, enc, sourceDir)
	if err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd close: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return nil, fmt.Errorf("failed to commit archive: %w", err)
	}

	size := int64(0)
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	}
	return &Result{
		Archive: Archive{Path: path, Created: created, Size: size},
		Files:   files,
		Bytes:   bytes,
	}, nil
}

func writeTar(ctx context.Context, w io.Writer, sourceDir string) (int, int64, error) {
	tw := tar.NewWriter(w)
	files := 0
	var total int64

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == sourceDir {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		n, err := io.Copy(tw, in)
		if err != nil {
			return err
		}
		files++
		total += n
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to archive %s: %w", sourceDir, err)
	}
	if err := tw.Close(); err != nil {
		return 0, 0, err
	}
	return files, total, nil
}

// List returns the archives of profileID, newest first.
func (a *Archiver) List(profileID string) ([]Archive, error) {
	dir := a.Dir(profileID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prefix := strings.ToLower(profileID) + "_"
	var archives []Archive
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, archiveExt) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), archiveExt)
		created, err := time.Parse(timestampLayout, stamp)
		if err != nil {
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		archives = append(archives, Archive{Path: filepath.Join(dir, name), Created: created, Size: size})
	}
	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Created.After(archives[j].Created)
	})
	return archives, nil
}

// Prune deletes all but the newest retain archives and returns the removed paths.
func (a *Archiver) Prune(profileID string, retain int) ([]string, error) {
	if retain <= 0 {
		return nil, nil
	}
	archives, err := a.List(profileID)
	if err != nil {
		return nil, err
	}
	if len(archives) <= retain {
		return nil, nil
	}

	var removed []string
	var errs []error
	for _, archive := range archives[retain:] {
		if err := os.Remove(archive.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, archive.Path)
	}
	return removed, errors.Join(errs...)
}

// Extract restores archivePath into destDir.
func Extract(ctx context.Context, archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("corrupt archive %s: %w", archivePath, err)
		}

		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes the destination", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode)&fs.ModePerm)
			if err != nil {
				return err
			}
			_, copyErr := io.Copy(out, tr)
			closeErr := out.Close()
			if copyErr != nil {
				return copyErr
			}
			if closeErr != nil {
				return closeErr
			}
		}
	}
}
