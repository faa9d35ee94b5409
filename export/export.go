/*
Package export renders a batch's student roster into downloadable reports.

Every row is derived from crm.ComputeStatus: the status engine is the
single source of truth for this view too. Columns are Name, Phone,
Status, Amount/Info, Next Due.
*/
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/coachdesk/crm-engine/crm"
)

var header = []string{"Name", "Phone", "Status", "Amount/Info", "Next Due"}

// Filename returns the download name for a batch report, e.g.
// "Evening_Physics_students.csv".
func Filename(batch crm.Batch, ext string) string {
	name := strings.Join(strings.Fields(batch.Name), "_")
	if name == "" {
		name = "batch"
	}
	return fmt.Sprintf("%s_students.%s", name, ext)
}

// Row builds the report columns for one student.
func Row(batch crm.Batch, student crm.Student, today crm.Date) []string {
	v := crm.ComputeStatus(batch, student, today)
	return []string{student.Name, student.Phone, v.Label, infoColumn(batch, student), v.NextDue.String()}
}

// infoColumn summarizes payment state per billing model for the
// Amount/Info column.
func infoColumn(batch crm.Batch, student crm.Student) string {
	switch p := student.Payment.(type) {
	case crm.MonthlyPayment:
		if p.LastPaidMonth.IsZero() {
			return "—"
		}
		return "Paid " + p.LastPaidMonth.String()
	case crm.CoursePayment:
		if p.Paid {
			return "Paid"
		}
		return "Unpaid"
	case crm.InstallmentPayment:
		return fmt.Sprintf("Paid %s/%s", p.PaidTotal.String(), batch.TotalFee.String())
	default:
		return "—"
	}
}

// WriteCSV writes the roster report as CSV.
func WriteCSV(w io.Writer, batch crm.Batch, students []crm.Student, today crm.Date) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range students {
		if err := cw.Write(Row(batch, s, today)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the roster report as an Excel workbook.
func WriteXLSX(w io.Writer, batch crm.Batch, students []crm.Student, today crm.Date) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Students"
	f.SetSheetName("Sheet1", sheet)

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, s := range students {
		row := Row(batch, s, today)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
