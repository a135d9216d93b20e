// Package export writes the prepared tables to an Excel workbook.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/casevote/internal/prep"
)

const (
	joinedSheet    = "Joined"
	electionSheet  = "Elections"
	warningsSheet  = "Warnings"
	defaultSheet   = "Sheet1"
	headerColWidth = 16
)

// Workbook builds the workbook for ds. The caller must Close it.
func Workbook(ds *prep.Dataset) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(defaultSheet, joinedSheet); err != nil {
		f.Close()
		return nil, err
	}

	joinedHeaders := []string{"State", "Name", "Cases", "Deaths", "DEM", "REP", "Winner", "Ratio cases", "REP/DEM ratio"}
	if err := writeHeaders(f, joinedSheet, joinedHeaders); err != nil {
		f.Close()
		return nil, err
	}
	for i, r := range ds.Joined {
		row := i + 2
		values := []interface{}{r.State, r.Name, r.Cases, r.Deaths, r.DEM, r.REP, string(r.Winner),
			cellFloat(r.RatioCases), cellFloat(r.RepDemRatio)}
		if err := writeRow(f, joinedSheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, err := f.NewSheet(electionSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeHeaders(f, electionSheet, []string{"State", "Name", "DEM", "REP", "Winner"}); err != nil {
		f.Close()
		return nil, err
	}
	for i, e := range ds.Elections {
		if err := writeRow(f, electionSheet, i+2, []interface{}{e.State, e.Name, e.DEM, e.REP, string(e.Winner)}); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, err := f.NewSheet(warningsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeHeaders(f, warningsSheet, []string{"Kind", "Detail", "Keys"}); err != nil {
		f.Close()
		return nil, err
	}
	for i, w := range ds.Warnings {
		keys := strings.Join(w.Keys, ", ")
		if err := writeRow(f, warningsSheet, i+2, []interface{}{string(w.Kind), w.Detail, keys}); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetCellValue(warningsSheet, "E1", "Snapshot date")
	f.SetCellValue(warningsSheet, "F1", ds.SnapshotDate)
	return f, nil
}

// Write streams the workbook for ds to w.
func Write(w io.Writer, ds *prep.Dataset) error {
	f, err := Workbook(ds)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveAs writes the workbook for ds to path.
func SaveAs(path string, ds *prep.Dataset) error {
	f, err := Workbook(ds)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		col, _, err := excelize.SplitCellName(cell)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, headerColWidth); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// Spreadsheets have no NaN; such cells are written as "NaN" text.
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	return v
}
