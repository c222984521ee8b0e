package job

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"pixscale/models"
)

var ErrInvalidTargetSize = errors.New("invalid target size")

// Layout describes where sources are read from and where rasters are written
type Layout struct {
	InputRoot  string `json:"input_root"`
	OutputRoot string `json:"output_root"`
	SizePrefix string `json:"size_prefix"` // prepended to every scale name, e.g. "drawable-"
	FileType   string `json:"file_type"`   // source extension without the dot
}

// ScaleDir returns the destination folder for one scale
func (l Layout) ScaleDir(scaleName string) string {
	return filepath.Join(l.OutputRoot, l.SizePrefix+scaleName)
}

// DestinationName maps a source file name to its PNG name by stripping the
// source extension. Two sources that differ only by extension collide.
func DestinationName(file, fileType string) string {
	base := filepath.Base(file)
	ext := filepath.Ext(base)
	if ext != "" && (fileType == "" || strings.EqualFold(ext, "."+fileType)) {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".png"
}

// TargetSize computes round(baseSize * multiplier) and rejects sizes that
// cannot produce an image
func TargetSize(baseSize int, multiplier float64) (int, error) {
	size := math.Round(float64(baseSize) * multiplier)
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 || size > math.MaxInt32 {
		return 0, fmt.Errorf("%w: base %d × %v = %v", ErrInvalidTargetSize, baseSize, multiplier, size)
	}
	return int(size), nil
}

// Build expands files × scales into job descriptors. Scales are the outer
// loop and files the inner one, both in their given order, so identical
// inputs always yield the identical list. Any invalid target size fails the
// whole build.
func Build(files []string, scales []models.ScaleEntry, baseSize int, layout Layout) ([]models.JobDescriptor, error) {
	jobs := make([]models.JobDescriptor, 0, len(files)*len(scales))

	for _, s := range scales {
		size, err := TargetSize(baseSize, s.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("scale %s: %w", s.Name, err)
		}
		dir := layout.ScaleDir(s.Name)

		for _, file := range files {
			source := file
			if !filepath.IsAbs(source) {
				source = filepath.Join(layout.InputRoot, file)
			}
			jobs = append(jobs, models.JobDescriptor{
				SourcePath:      source,
				Scale:           s.Name,
				TargetSize:      size,
				DestinationPath: filepath.Join(dir, DestinationName(file, layout.FileType)),
				FileType:        layout.FileType,
			})
		}
	}
	return jobs, nil
}

// Collisions returns destination paths claimed by more than one job, mapped
// to the sources that write them in job order. The last source wins on disk.
func Collisions(jobs []models.JobDescriptor) map[string][]string {
	bySource := make(map[string][]string)
	for _, j := range jobs {
		bySource[j.DestinationPath] = append(bySource[j.DestinationPath], j.SourcePath)
	}
	collisions := make(map[string][]string)
	for dest, sources := range bySource {
		if len(sources) > 1 {
			collisions[dest] = sources
		}
	}
	return collisions
}
