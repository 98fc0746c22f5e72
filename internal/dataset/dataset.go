// Package dataset reads the delimited artifacts collaborators hand to
// the controller: a header-row CSV of new observations and an optional
// CSV of per-row class probabilities.
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
)

// #region numeric-columns
// NumericColumns loads the numeric columns of a header-row CSV keyed
// by column name. Cells that do not parse as finite numbers are
// dropped; columns that end up empty are omitted entirely, so text
// columns simply disappear from the result.
func NumericColumns(path string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	// An unreadable path is the caller's fatal error; corrupt content
	// is not. A file whose header cannot be parsed simply contributes
	// no columns, which skews drift toward zero instead of crashing.
	header, err := r.Read()
	if err != nil {
		return map[string][]float64{}, nil
	}

	cols := make(map[string][]float64, len(header))
	for {
		record, err := r.Read()
		if err != nil {
			break // EOF or a malformed tail row; keep what parsed
		}
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			cols[header[i]] = append(cols[header[i]], v)
		}
	}
	return cols, nil
}

// #endregion numeric-columns

// #region prob-matrix
// ProbMatrix loads a CSV of per-row class probabilities. No header is
// expected. Rows whose cells fail to parse are dropped; ragged width
// is preserved and left for the entropy check to reject.
func ProbMatrix(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open probs: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]float64
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		row := make([]float64, 0, len(record))
		ok := true
		for _, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
			row = append(row, v)
		}
		if ok && len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// #endregion prob-matrix

// #region file-size
// FileSizeMB returns the on-disk size of path in megabytes, 0 when the
// file cannot be stat'ed.
func FileSizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / (1024 * 1024)
}

// #endregion file-size
