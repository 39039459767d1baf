// Package dataset reads the two CSV-backed artifacts the certification
// engine consumes (spec §6): a test split (row-major features with named
// columns) and the model's predictions (argmax index per row), plus the
// per-feature domains derived from a training set. Grounded on
// internal/ingest's csv.Reader + header-validation + per-line wrapped-error
// idiom (internal/ingest/homeassistant.go).
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"explainer/internal/interval"
)

// FeatureDomains is the per-column [min, max] interval derived from a
// training set (spec's FeatureDomain).
type FeatureDomains struct {
	Columns []string
	Domains []interval.Interval
}

// ComputeFeatureDomains reads a header row followed by numeric rows and
// returns the per-column min/max interval.
func ComputeFeatureDomains(r io.Reader) (FeatureDomains, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return FeatureDomains{}, fmt.Errorf("reading CSV header: %w", err)
	}

	domains := make([]interval.Interval, len(header))
	seen := false
	lineNum := 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return FeatureDomains{}, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		row, err := parseRow(record, lineNum)
		if err != nil {
			return FeatureDomains{}, err
		}
		for i, v := range row {
			if !seen {
				domains[i] = interval.Interval{Lo: v, Hi: v}
				continue
			}
			if v < domains[i].Lo {
				domains[i].Lo = v
			}
			if v > domains[i].Hi {
				domains[i].Hi = v
			}
		}
		seen = true
	}

	return FeatureDomains{Columns: header, Domains: domains}, nil
}

// Split is a test split: named feature columns, row-major feature values,
// and (once attached) the model's predicted class per row.
type Split struct {
	Columns []string
	XTest   [][]float64
	YPred   []int
}

// ReadXTest reads a header row of feature names followed by numeric rows.
func ReadXTest(r io.Reader) (Split, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return Split{}, fmt.Errorf("reading CSV header: %w", err)
	}

	var rows [][]float64
	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Split{}, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		row, err := parseRow(record, lineNum)
		if err != nil {
			return Split{}, err
		}
		rows = append(rows, row)
	}

	return Split{Columns: header, XTest: rows}, nil
}

// ReadYPred reads a single-column CSV of predicted class indices (one
// header row, then one integer per line).
func ReadYPred(r io.Reader) ([]int, error) {
	cr := csv.NewReader(r)
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	var preds []int
	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		if len(record) != 1 {
			return nil, fmt.Errorf("line %d: expected 1 column, got %d", lineNum, len(record))
		}
		v, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid class index %q: %w", lineNum, record[0], err)
		}
		preds = append(preds, v)
	}
	return preds, nil
}

// AttachYPred sets s.YPred after checking it has one prediction per row.
func (s *Split) AttachYPred(y []int) error {
	if len(y) != len(s.XTest) {
		return fmt.Errorf("dataset: %d predictions for %d rows", len(y), len(s.XTest))
	}
	s.YPred = y
	return nil
}

func parseRow(record []string, lineNum int) ([]float64, error) {
	row := make([]float64, len(record))
	for i, field := range record {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d, column %d: invalid number %q: %w", lineNum, i, field, err)
		}
		row[i] = v
	}
	return row, nil
}
