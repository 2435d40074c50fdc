// Package patch serves client patch files: it indexes <build>-<locale>.mpq
// files of the patch directory and streams them over XFER_DATA.
package patch

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
)

// ErrNoPatch is returned when no patch exists for a build and locale.
var ErrNoPatch = errors.New("no patch for client build")

const patchExt = ".mpq"

// Info describes one patch file.
type Info struct {
	Build  uint32
	Locale string
	Size   int64
	MD5    [md5.Size]byte
	Path   string
}

type key struct {
	build  uint32
	locale string
}

// Patcher holds the patch table. The table is immutable and swapped
// atomically by Load, so lookups never lock.
type Patcher struct {
	dir   string
	table atomic.Pointer[map[key]Info]
}

// NewPatcher creates a Patcher for <dataDir>/patches. Call Load to index it.
func NewPatcher(dataDir string) *Patcher {
	p := &Patcher{dir: filepath.Join(dataDir, "patches")}
	empty := map[key]Info{}
	p.table.Store(&empty)
	return p
}

// Dir returns the indexed directory.
func (p *Patcher) Dir() string {
	return p.dir
}

// Load rebuilds the table from disk and returns the number of patches.
// A missing or unreadable directory results in an empty table.
func (p *Patcher) Load() int {
	table := map[key]Info{}

	entries, err := os.ReadDir(p.dir)
	if err != nil {
		slog.Warn("patch directory unavailable, no patches", "dir", p.dir, "err", err)
		p.table.Store(&table)
		return 0
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		build, locale, ok := parseFileName(e.Name())
		if !ok {
			continue
		}

		path := filepath.Join(p.dir, e.Name())
		size, sum, err := hashFile(path)
		if err != nil {
			slog.Warn("skipping patch", "path", path, "err", err)
			continue
		}

		table[key{build, locale}] = Info{
			Build:  build,
			Locale: locale,
			Size:   size,
			MD5:    sum,
			Path:   path,
		}
		slog.Info("added patch", "build", build, "locale", locale, "size", size)
	}

	p.table.Store(&table)
	return len(table)
}

// Lookup returns the patch for build and locale.
func (p *Patcher) Lookup(build uint32, locale string) (Info, bool) {
	info, ok := (*p.table.Load())[key{build, locale}]
	return info, ok
}

// PossiblePatching reports whether a patch exists for build and locale.
func (p *Patcher) PossiblePatching(build uint32, locale string) bool {
	_, ok := p.Lookup(build, locale)
	return ok
}

// Open opens the patch file for build and locale.
func (p *Patcher) Open(build uint32, locale string) (*os.File, Info, error) {
	info, ok := p.Lookup(build, locale)
	if !ok {
		return nil, Info{}, fmt.Errorf("build %d locale %s: %w", build, locale, ErrNoPatch)
	}
	f, err := os.Open(info.Path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("opening patch: %w", err)
	}
	return f, info, nil
}

// parseFileName parses "<build>-<locale>.mpq" with a four-character locale.
func parseFileName(name string) (uint32, string, bool) {
	base, ok := strings.CutSuffix(name, patchExt)
	if !ok {
		return 0, "", false
	}
	buildStr, locale, ok := strings.Cut(base, "-")
	if !ok || len(locale) != 4 {
		return 0, "", false
	}
	build, err := strconv.ParseUint(buildStr, 10, 32)
	if err != nil {
		return 0, "", false
	}
	return uint32(build), locale, true
}

func hashFile(path string) (int64, [md5.Size]byte, error) {
	var sum [md5.Size]byte

	f, err := os.Open(path)
	if err != nil {
		return 0, sum, err
	}
	defer f.Close()

	h := md5.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, sum, fmt.Errorf("hashing: %w", err)
	}
	copy(sum[:], h.Sum(nil))
	return n, sum, nil
}
