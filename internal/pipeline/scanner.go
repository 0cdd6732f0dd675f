package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Source represents a discovered image file.
type Source struct {
	// AbsPath is the absolute path to the file on disk.
	AbsPath string
	// RelPath is the path relative to the input directory.
	RelPath string
	// Key is the photo key (relpath without extension, forward slashes).
	Key string
	// Format is the source format by extension (png, jpeg, webp, ...).
	Format string
	// Size is the file size in bytes.
	Size int64
}

var imageExtensions = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".webp": "webp",
	".gif":  "gif",
	".bmp":  "bmp",
	".tiff": "tiff",
	".tif":  "tiff",
}

// ScanImages walks inputDir and returns every image source in lexical
// order. Hidden directories and any directory listed in skip are pruned,
// so an output directory nested inside the input is not re-processed.
func ScanImages(inputDir string, skip ...string) ([]Source, error) {
	pruned := make(map[string]bool, len(skip))
	for _, s := range skip {
		if abs, err := filepath.Abs(s); err == nil {
			pruned[abs] = true
		}
	}

	var sources []Source
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != inputDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if abs, err := filepath.Abs(path); err == nil && pruned[abs] && path != inputDir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		format, ok := imageExtensions[ext]
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}

		sources = append(sources, Source{
			AbsPath: path,
			RelPath: filepath.ToSlash(relPath),
			Key:     filepath.ToSlash(strings.TrimSuffix(relPath, filepath.Ext(relPath))),
			Format:  format,
			Size:    info.Size(),
		})
		return nil
	})

	return sources, err
}

// dedupeKeys keeps the first source for each key. Later sources with the
// same key (a.jpg next to a.png) are returned as failures keyed by their
// relative path, since their outputs would replace each other in the
// manifest.
func dedupeKeys(sources []Source) ([]Source, map[string]string) {
	owner := make(map[string]string, len(sources))
	kept := sources[:0:0]
	var dups map[string]string
	for _, s := range sources {
		if prev, taken := owner[s.Key]; taken {
			if dups == nil {
				dups = make(map[string]string)
			}
			dups[s.RelPath] = fmt.Sprintf("duplicate key %q, already used by %s", s.Key, prev)
			continue
		}
		owner[s.Key] = s.RelPath
		kept = append(kept, s)
	}
	return kept, dups
}
