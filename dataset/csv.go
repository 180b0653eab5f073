// Package dataset parses uploaded tabular data into feature rows.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"exoserve/ml"
)

// ReadRows parses CSV input into feature rows. The first record is the
// header; columns may appear in any order. Only the required feature
// columns are read, so KOI catalog exports with identifier or label
// columns pass through untouched. Spreadsheet exports often carry a
// UTF-8 or UTF-16 BOM, so the stream is normalized to plain UTF-8
// before parsing. Presence of every required feature is enforced later
// at vectorization.
func ReadRows(r io.Reader) ([]ml.FeatureRow, error) {
	decoder := unicode.UTF8BOM.NewDecoder()
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(decoder)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("csv input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	required := make(map[string]bool, len(ml.RequiredFeatures))
	for _, name := range ml.RequiredFeatures {
		required[name] = true
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if !required[header[i]] {
			header[i] = ""
		}
	}

	rows := make([]ml.FeatureRow, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		row := make(ml.FeatureRow, len(ml.RequiredFeatures))
		for i, field := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d column %q: invalid number %q", line, header[i], field)
			}
			row[header[i]] = value
		}
		rows = append(rows, row)
	}

	return rows, nil
}
