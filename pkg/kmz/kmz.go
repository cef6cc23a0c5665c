// Package kmz bundles the waylines and template documents into the
// mission archive.
package kmz

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"

	"github.com/stronnag/ges2wpmz/pkg/types"
)

const (
	WAYLINES_ENTRY = "wpmz/waylines.wpml"
	TEMPLATE_ENTRY = "wpmz/template.kml"
)

func add_entry(zw *zip.Writer, name string, data []byte, mod time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Write creates the archive at path. The archive is assembled in a
// temporary file beside path and renamed into place, so path either
// holds a complete archive or is untouched. Failures wrap ErrPackaging.
func Write(path string, waylines, template []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(types.ErrPackaging, "create %s: %v", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(types.ErrPackaging, "create %s: %v", path, err)
	}
	tfn := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tfn)
		return errors.Wrapf(types.ErrPackaging, "%s: %v", path, err)
	}

	now := time.Now()
	zw := zip.NewWriter(tmp)
	if err := add_entry(zw, WAYLINES_ENTRY, waylines, now); err != nil {
		return fail(err)
	}
	if err := add_entry(zw, TEMPLATE_ENTRY, template, now); err != nil {
		return fail(err)
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tfn)
		return errors.Wrapf(types.ErrPackaging, "%s: %v", path, err)
	}
	if err := os.Chmod(tfn, 0644); err != nil {
		os.Remove(tfn)
		return errors.Wrapf(types.ErrPackaging, "%s: %v", path, err)
	}
	if err := os.Rename(tfn, path); err != nil {
		os.Remove(tfn)
		return errors.Wrapf(types.ErrPackaging, "%s: %v", path, err)
	}
	return nil
}

// Read returns the two documents of an archive written by Write.
func Read(path string) ([]byte, []byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, errors.Wrapf(types.ErrInputNotFound, "%s: %v", path, err)
	}
	defer r.Close()
	var waylines, template []byte
	for _, f := range r.File {
		if f.Name != WAYLINES_ENTRY && f.Name != TEMPLATE_ENTRY {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, nil, errors.Wrapf(types.ErrSchema, "%s: %s: %v", path, f.Name, err)
		}
		dat, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, errors.Wrapf(types.ErrSchema, "%s: %s: %v", path, f.Name, err)
		}
		if f.Name == WAYLINES_ENTRY {
			waylines = dat
		} else {
			template = dat
		}
	}
	if waylines == nil || template == nil {
		return nil, nil, errors.Wrapf(types.ErrSchema, "%s: not a waylines archive", path)
	}
	return waylines, template, nil
}
