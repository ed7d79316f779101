package services

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

var resultsHeaders = []string{
	"Submission ID", "User ID", "Attempt", "Status", "Obtained Marks", "Total Marks",
	"Percentage", "Passed", "Reviewed", "Checked By", "Started At", "Submitted At", "Time Spent (s)",
}

// writeResultsWorkbook renders one row per submission, in the given order.
func writeResultsWorkbook(assessment *models.Assessment, submissions []*models.Submission) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   assessment.Title,
		Creator: "lms-service",
	}); err != nil {
		return nil, fmt.Errorf("failed to set workbook properties: %w", err)
	}

	if err := writeRow(f, 1, toCells(resultsHeaders)); err != nil {
		return nil, err
	}
	for i, sub := range submissions {
		if err := writeRow(f, i+2, resultRow(sub)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func resultRow(sub *models.Submission) []interface{} {
	checkedBy := ""
	if sub.CheckedBy != nil {
		checkedBy = *sub.CheckedBy
	}
	submittedAt := ""
	if sub.EndTime != nil {
		submittedAt = sub.EndTime.UTC().Format(time.RFC3339)
	}
	return []interface{}{
		sub.ID,
		sub.UserID,
		sub.AttemptNumber,
		string(sub.Status),
		sub.ObtainedMarks,
		sub.TotalMarks,
		sub.Percentage,
		sub.IsPassed,
		sub.IsCheckedByTeacher,
		checkedBy,
		sub.StartTime.UTC().Format(time.RFC3339),
		submittedAt,
		sub.TimeSpent,
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
