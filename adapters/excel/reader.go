package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gofunnel/domain/core"
	"gofunnel/domain/funnel"
	"gofunnel/internal/errors"

	"github.com/xuri/excelize/v2"
)

// ObservationReader reads numerator/denominator/group observation rows from
// Excel and CSV files. The first row is a header; columns are matched by
// name, falling back to the first three columns in order.
type ObservationReader struct{}

// NewObservationReader creates a reader for both file types
func NewObservationReader() *ObservationReader {
	return &ObservationReader{}
}

// Read loads observations from the file at path
func (r *ObservationReader) Read(ctx context.Context, path string) ([]funnel.RawObservation, error) {
	log.Printf("[ObservationReader] reading %s", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, core.NewInputError("file", fmt.Sprintf("not found: %s", path))
	}

	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSVRows(path)
	case ".xlsx", ".xlsm":
		rows, err = readExcelRows(path)
	default:
		return nil, core.NewInputError("file", fmt.Sprintf("unsupported extension %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, err
	}

	obs, err := parseRows(rows)
	if err != nil {
		return nil, err
	}

	log.Printf("[ObservationReader] parsed %d observations from %s", len(obs), path)
	return obs, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IngestFailed("failed to open CSV", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.IngestFailed("failed to parse CSV", err)
	}
	return rows, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.IngestFailed("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewInputError("file", "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.IngestFailed(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}
	return rows, nil
}

// parseRows maps header names to columns and converts the data rows.
// Recognised headers: numerator, denominator, group (case-insensitive);
// without them the first three columns are used in that order.
func parseRows(rows [][]string) ([]funnel.RawObservation, error) {
	if len(rows) < 2 {
		return nil, core.NewInputError("file", "no data rows below the header")
	}

	numCol, denCol, groupCol := 0, 1, 2
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "numerator", "num":
			numCol = i
		case "denominator", "den", "denom":
			denCol = i
		case "group", "unit", "organisation":
			groupCol = i
		}
	}

	maxCol := max(numCol, max(denCol, groupCol))
	obs := make([]funnel.RawObservation, 0, len(rows)-1)

	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue // trailing blank rows are common in exports
		}
		if len(row) <= maxCol {
			return nil, core.NewInputError("file", fmt.Sprintf("row %d has %d columns, need %d", i+2, len(row), maxCol+1))
		}

		num, err := strconv.ParseFloat(strings.TrimSpace(row[numCol]), 64)
		if err != nil {
			return nil, core.NewInputError("numerator", fmt.Sprintf("row %d: %q is not numeric", i+2, row[numCol]))
		}
		den, err := strconv.ParseFloat(strings.TrimSpace(row[denCol]), 64)
		if err != nil {
			return nil, core.NewInputError("denominator", fmt.Sprintf("row %d: %q is not numeric", i+2, row[denCol]))
		}
		group := strings.TrimSpace(row[groupCol])
		if group == "" {
			return nil, core.NewInputError("group", fmt.Sprintf("row %d: empty group", i+2))
		}

		obs = append(obs, funnel.RawObservation{
			Numerator:   num,
			Denominator: den,
			Group:       core.GroupKey(group),
		})
	}

	if len(obs) == 0 {
		return nil, core.NewInputError("file", "no usable data rows")
	}
	return obs, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
