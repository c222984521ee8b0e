// Package scale holds the density table: named multipliers applied to the base icon size.
package scale

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pixscale/models"
)

var ErrInvalidScale = errors.New("invalid scale table")

// Default returns the Android launcher density table in declaration order
func Default() []models.ScaleEntry {
	return []models.ScaleEntry{
		{Name: "mdpi", Multiplier: 1},
		{Name: "hdpi", Multiplier: 1.5},
		{Name: "xhdpi", Multiplier: 2},
		{Name: "xxhdpi", Multiplier: 3},
		{Name: "xxxhdpi", Multiplier: 4},
	}
}

// Parse reads a table written as "name=multiplier" pairs separated by commas,
// e.g. "mdpi=1,hdpi=1.5". Order is preserved.
func Parse(list string) ([]models.ScaleEntry, error) {
	var entries []models.ScaleEntry
	seen := make(map[string]bool)

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: entry %q is not name=multiplier", ErrInvalidScale, part)
		}
		if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return nil, fmt.Errorf("%w: scale name %q must not be a path", ErrInvalidScale, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate scale %q", ErrInvalidScale, name)
		}
		multiplier, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: multiplier for %q: %v", ErrInvalidScale, name, err)
		}
		if err := validateMultiplier(multiplier); err != nil {
			return nil, fmt.Errorf("%w: scale %q %v", ErrInvalidScale, name, err)
		}
		seen[name] = true
		entries = append(entries, models.ScaleEntry{Name: name, Multiplier: multiplier})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries in %q", ErrInvalidScale, list)
	}
	return entries, nil
}

func validateMultiplier(m float64) error {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return errors.New("multiplier must be finite")
	}
	if m <= 0 {
		return errors.New("multiplier must be positive")
	}
	return nil
}

// Format renders a table back into the form accepted by Parse
func Format(entries []models.ScaleEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Name + "=" + strconv.FormatFloat(e.Multiplier, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
