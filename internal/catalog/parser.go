package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/star/ballistics/internal/ballistics"
)

const minFields = 6

// Parse reads catalog CSV from r and returns the profiles it contains.
// Columns: name,drag,bc,velocity,sight_height,zero_range[,y_intercept[,weight]].
// Lines starting with '#' and a header row are ignored. Malformed rows and
// duplicate names are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]Profile, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var profiles []Profile
	seen := make(map[string]bool)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				logger.Warn("skipping unreadable catalog row", "line", pe.Line, "error", pe.Err)
				continue
			}
			return nil, fmt.Errorf("reading catalog: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}

		p, err := parseRecord(record)
		if err != nil {
			logger.Warn("skipping malformed catalog row", "line", line, "error", err)
			logger.Debug("malformed catalog row", "record", spew.Sdump(record))
			continue
		}
		if seen[p.Name] {
			logger.Warn("skipping duplicate catalog profile", "line", line, "name", p.Name)
			continue
		}
		seen[p.Name] = true
		profiles = append(profiles, p)
	}

	return profiles, nil
}

func parseRecord(record []string) (Profile, error) {
	if len(record) < minFields {
		return Profile{}, fmt.Errorf("expected at least %d fields, got %d", minFields, len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	name := record[0]
	if !validName(name) {
		return Profile{}, fmt.Errorf("invalid profile name %q", name)
	}

	drag, err := ballistics.ParseDragFunction(record[1])
	if err != nil {
		return Profile{}, err
	}
	if !drag.Supported() {
		return Profile{}, fmt.Errorf("drag function %s has no retardation table", drag)
	}

	fields := []struct {
		name     string
		dst      *float64
		positive bool
	}{
		{"bc", new(float64), true},
		{"velocity", new(float64), true},
		{"sight_height", new(float64), false},
		{"zero_range", new(float64), true},
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(record[2+i], 64)
		if err != nil {
			return Profile{}, fmt.Errorf("%s: %w", f.name, err)
		}
		if f.positive && !(v > 0) {
			return Profile{}, fmt.Errorf("%s must be positive, got %v", f.name, v)
		}
		*f.dst = v
	}

	p := Profile{
		Name: name,
		Load: ballistics.Load{
			Drag:           drag,
			Coefficient:    *fields[0].dst,
			MuzzleVelocity: *fields[1].dst,
			SightHeight:    *fields[2].dst,
		},
		ZeroRange: *fields[3].dst,
	}

	if len(record) > 6 && record[6] != "" {
		v, err := strconv.ParseFloat(record[6], 64)
		if err != nil {
			return Profile{}, fmt.Errorf("y_intercept: %w", err)
		}
		p.YIntercept = v
	}
	if len(record) > 7 && record[7] != "" {
		v, err := strconv.ParseFloat(record[7], 64)
		if err != nil || v < 0 {
			return Profile{}, fmt.Errorf("weight: invalid value %q", record[7])
		}
		p.Load.WeightGrains = v
	}

	return p, nil
}

// validName accepts lower-case names safe to use as a URL path segment.
func validName(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '.', c == '_':
		default:
			return false
		}
	}
	return true
}
