package apk

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/models"
	"github.com/huanfeng/apkset-cli/pkg/modules"
)

// TOCEntry is the name of the table of contents inside an APK set.
const TOCEntry = "toc.pb"

// Archive is an opened APK set (.apks): a zip container with a toc.pb entry
// describing every APK it holds.
type Archive struct {
	path    string
	reader  *zip.ReadCloser
	entries map[string]*zip.File
}

// Open opens the APK set at path read-only.
func Open(path string) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.NewFileNotFoundError(path)
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedArchive, "NOT_A_ZIP",
			fmt.Sprintf("File '%s' is not a valid APK set archive.", path))
	}
	a := &Archive{path: path, reader: reader, entries: make(map[string]*zip.File, len(reader.File))}
	for _, f := range reader.File {
		a.entries[f.Name] = f
	}
	return a, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.reader.Close()
}

// Path returns the archive location on disk.
func (a *Archive) Path() string {
	return a.path
}

// Has reports whether the archive contains an entry.
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// TOC reads, decodes and validates the table of contents.
func (a *Archive) TOC() (*models.BuildApksResult, error) {
	f, ok := a.entries[TOCEntry]
	if !ok {
		return nil, errors.NewMalformedArchiveError("%s: APK set should have %s entry.", a.path, TOCEntry)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedArchive, "TOC_UNREADABLE", "Unable to read "+TOCEntry+".")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedArchive, "TOC_UNREADABLE", "Unable to read "+TOCEntry+".")
	}
	toc, err := UnmarshalTOC(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedArchive, "TOC_INVALID", "Unable to decode "+TOCEntry+".")
	}
	if err := Validate(toc); err != nil {
		return nil, err
	}
	return toc, nil
}

// Validate checks the structural invariants of a table of contents: every
// installable variant has a base module, unique module names, known and
// acyclic dependencies, exactly one master split per split module, and no
// APK targeted on a dimension that cannot be matched. Instant variants are
// skipped.
func Validate(toc *models.BuildApksResult) error {
	if len(toc.Variants) == 0 {
		return errors.NewMalformedArchiveError("The archive contains no variants.")
	}
	installable := 0
	for i := range toc.Variants {
		v := &toc.Variants[i]
		if v.Instant() {
			continue
		}
		installable++
		if _, err := modules.NewGraph(v); err != nil {
			return err
		}
		if v.Targeting.TextureCompressionFormat != nil {
			return errors.NewMalformedArchiveError(
				"Variant %d is targeted on %s, which is not supported.", v.Number, models.DimensionTextureCompression)
		}
		for _, set := range v.ApkSets {
			if len(set.Apks) == 0 {
				return errors.NewMalformedArchiveError(
					"Module '%s' of variant %d has no APKs.", set.ModuleName, v.Number)
			}
			for _, apk := range set.Apks {
				for _, dim := range apk.Targeting.Dimensions() {
					if !dim.Selectable() {
						return errors.NewMalformedArchiveError(
							"APK '%s' of module '%s' is targeted on %s, which is not supported.", apk.Path, set.ModuleName, dim)
					}
				}
			}
			if set.Standalone() {
				continue
			}
			if n := len(set.MasterSplits()); n != 1 {
				return errors.NewMalformedArchiveError(
					"Module '%s' of variant %d has %d master splits, expected exactly one.", set.ModuleName, v.Number, n)
			}
		}
	}
	if installable == 0 {
		return errors.NewMalformedArchiveError("The archive contains only instant variants.")
	}
	return nil
}

// ProgressFunc is told how many of total entries have been extracted.
type ProgressFunc func(done, total int)

// ExtractWithProgress copies the given APKs into dir and returns their
// local paths in the same order, reporting to progress after each entry
// when it is not nil. The context is checked between entries.
func (a *Archive) ExtractWithProgress(ctx context.Context, apks []models.ApkDescription, dir string, progress ProgressFunc) ([]string, error) {
	paths := make([]string, 0, len(apks))
	for _, apk := range apks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, ok := a.entries[apk.Path]
		if !ok {
			return nil, errors.NewMalformedArchiveError(
				"APK '%s' listed in %s is missing from the archive.", apk.Path, TOCEntry)
		}

		dest := filepath.Join(dir, filepath.FromSlash(apk.Path))
		if rel, err := filepath.Rel(dir, dest); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, errors.NewMalformedArchiveError("APK path '%s' escapes the extraction directory.", apk.Path)
		}
		if err := extractFile(f, dest); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "EXTRACT_FAILED",
				fmt.Sprintf("Failed to extract '%s'.", apk.Path))
		}
		paths = append(paths, dest)
		if progress != nil {
			progress(len(paths), len(apks))
		}
	}
	return paths, nil
}

// UncompressedSize returns the bytes ExtractWithProgress would write for apks.
// Entries missing from the archive are ignored.
func (a *Archive) UncompressedSize(apks []models.ApkDescription) uint64 {
	var total uint64
	for _, apk := range apks {
		if f, ok := a.entries[apk.Path]; ok {
			total += f.UncompressedSize64
		}
	}
	return total
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WorkDir is a temporary directory removed with everything in it on Close.
type WorkDir struct {
	Path string
}

// NewWorkDir creates a fresh temporary directory.
func NewWorkDir(pattern string) (*WorkDir, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "TEMP_DIR", "Failed to create temporary directory.")
	}
	return &WorkDir{Path: dir}, nil
}

// Close removes the directory. It is safe to call more than once.
func (w *WorkDir) Close() error {
	if w == nil || w.Path == "" {
		return nil
	}
	return os.RemoveAll(w.Path)
}
