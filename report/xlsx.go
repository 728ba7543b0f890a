package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/clarion/rfid-validate/agreement"
)

const (
	summarySheet    = "Summary"
	mismatchSheet   = "Mismatches"
	xlsxTimeLayout  = "2006-01-02 15:04"
	mismatchRowsCap = 100000 // keep workbooks openable; the console still has the full counts
)

// WriteXLSX writes all reports of a run into one workbook: a Summary sheet
// with every metric as numerator/denominator/value, and a Mismatches sheet
// listing the joined rows where the two sources disagreed.
func WriteXLSX(path string, reps []*agreement.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("xlsx report: %w", err)
	}
	if _, err := f.NewSheet(mismatchSheet); err != nil {
		return fmt.Errorf("xlsx report: %w", err)
	}

	if err := writeSummary(f, reps); err != nil {
		return err
	}
	if err := writeMismatches(f, reps); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx report: save %s: %w", path, err)
	}
	return nil
}

func writeSummary(f *excelize.File, reps []*agreement.Report) error {
	if err := setRow(f, summarySheet, 1,
		"Entity", "Metric", "Numerator", "Denominator", "Value"); err != nil {
		return err
	}

	row := 2
	put := func(entity, metric string, frac agreement.Fraction) error {
		err := setRow(f, summarySheet, row, entity, metric, frac.Num, frac.Den, frac.String())
		row++
		return err
	}

	for _, rep := range reps {
		entity := string(rep.Entity)
		if err := put(entity, "Agreement", rep.Agreement); err != nil {
			return err
		}
		if rep.CoverageStart != nil {
			if err := put(entity, "Coverage Time >= ClarityStart", *rep.CoverageStart); err != nil {
				return err
			}
		}
		if rep.CoverageEnd != nil {
			if err := put(entity, "Coverage Time <= ClarityEnd", *rep.CoverageEnd); err != nil {
				return err
			}
		}
		for _, room := range rep.Rooms {
			if err := put(entity, "Room "+room.Room, room.Rate()); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeMismatches(f *excelize.File, reps []*agreement.Report) error {
	if err := setRow(f, mismatchSheet, 1,
		"Entity", "TagId", "Time", "Predicted", "Reference"); err != nil {
		return err
	}

	row := 2
	for _, rep := range reps {
		for _, m := range rep.Mismatches {
			if row > mismatchRowsCap {
				return nil
			}
			err := setRow(f, mismatchSheet, row,
				string(rep.Entity), m.TagID, m.Time.Format(xlsxTimeLayout), m.Predicted, m.Reference)
			if err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for col, v := range values {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("xlsx report: %w", err)
		}
		if err := f.SetCellValue(sheet, name, v); err != nil {
			return fmt.Errorf("xlsx report: %w", err)
		}
	}
	return nil
}
