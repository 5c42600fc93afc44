package plugin

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Candidate is one loadable package. Location is empty for built-in addons.
type Candidate struct {
	Location string
	Manifest Manifest
}

// Builtin returns a candidate for an entry point compiled into the binary.
func Builtin(entry string) Candidate {
	return Candidate{Manifest: Manifest{ID: entry, Name: entry, Main: entry}}
}

// IsArchive reports whether the package is a zip archive.
func (c Candidate) IsArchive() bool {
	return strings.EqualFold(filepath.Ext(c.Location), ".zip")
}

// Open returns the package contents. Zip archives stay open for the life of
// the process, matching the load path they are mounted on.
func (c Candidate) Open() (fs.FS, error) {
	if c.Location == "" {
		return nil, errors.New("built-in candidate has no package")
	}
	if c.IsArchive() {
		r, err := zip.OpenReader(c.Location)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return os.DirFS(c.Location), nil
}

// Scan lists the packages in dir. Each call re-reads the directory. Entries
// without a manifest are skipped silently; broken ones are skipped and
// reported. A missing dir yields no candidates and no errors.
func Scan(dir string) ([]Candidate, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, []error{&DiscoveryError{Path: dir, Err: err}}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var cands []Candidate
	var errs []error
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		var manifest Manifest
		var err error
		switch {
		case entry.IsDir():
			manifest, err = readManifest(os.DirFS(path))
		case strings.EqualFold(filepath.Ext(entry.Name()), ".zip"):
			manifest, err = readZipManifest(path)
		default:
			continue
		}

		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			errs = append(errs, &DiscoveryError{Path: path, Err: err})
			continue
		}
		cands = append(cands, Candidate{Location: path, Manifest: manifest})
	}
	return cands, errs
}

func readZipManifest(path string) (Manifest, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()
	return readManifest(r)
}
