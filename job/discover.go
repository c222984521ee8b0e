package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"

	"pixscale/logger"
	"pixscale/models"
)

var ErrInputNotFound = errors.New("input directory does not exist")

// Discover lists the regular files directly inside inputRoot whose extension
// matches fileType (case-insensitive). Names are returned sorted.
func Discover(inputRoot, fileType string) ([]string, error) {
	info, err := os.Stat(inputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputRoot)
		}
		return nil, fmt.Errorf("stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputNotFound, inputRoot)
	}

	dirents, err := godirwalk.ReadDirents(inputRoot, nil)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	want := "." + strings.ToLower(strings.TrimPrefix(fileType, "."))
	var files []string
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		if de.IsSymlink() {
			// follow the link; dangling links and links to directories are skipped
			target, err := os.Stat(filepath.Join(inputRoot, de.Name()))
			if err != nil || !target.Mode().IsRegular() {
				continue
			}
		} else if !de.IsRegular() {
			continue
		}
		if strings.ToLower(filepath.Ext(de.Name())) == want {
			files = append(files, de.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// PrepareOutputDirs creates the output root and one folder per scale
func PrepareOutputDirs(layout Layout, scales []models.ScaleEntry) error {
	if _, err := os.Stat(layout.OutputRoot); os.IsNotExist(err) {
		logger.Infof("Output directory %s is missing, creating it...", layout.OutputRoot)
	}
	if err := os.MkdirAll(layout.OutputRoot, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, s := range scales {
		dir := layout.ScaleDir(s.Name)
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		logger.Infof("Output directory for %s is missing, creating it...", s.Name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory for %s: %w", s.Name, err)
		}
	}
	return nil
}
