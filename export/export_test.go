package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/coachdesk/crm-engine/crm"
	"github.com/coachdesk/crm-engine/export"
)

func today() crm.Date { return crm.NewDate(2025, time.September, 14) }

func TestFilename_SanitizesSpaces(t *testing.T) {
	b := crm.Batch{Name: "Evening  Physics Batch"}
	assert.Equal(t, "Evening_Physics_Batch_students.csv", export.Filename(b, "csv"))

	assert.Equal(t, "batch_students.xlsx", export.Filename(crm.Batch{}, "xlsx"))
}

func TestWriteCSV_RowsPerStudent(t *testing.T) {
	// GIVEN: A monthly batch with a paid and a never-paid student
	// WHEN: Writing the CSV report
	// THEN: Header plus one row per student, with status and info columns

	batch, err := crm.NewBatch("Morning Maths", crm.FeeMonthly, crm.Rupees(1500), nil)
	require.NoError(t, err)

	paid, err := crm.NewStudent(batch, "Asha", "9876500001", crm.Date{})
	require.NoError(t, err)
	require.NoError(t, paid.MarkMonthPaid(crm.YearMonth{Year: 2025, Month: time.September}))

	fresh, err := crm.NewStudent(batch, "Rohan", "9876500002", crm.Date{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, batch, []crm.Student{paid, fresh}, today()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Name", "Phone", "Status", "Amount/Info", "Next Due"}, records[0])
	assert.Equal(t, []string{"Asha", "9876500001", "Ok", "Paid 2025-09", ""}, records[1])
	assert.Equal(t, "Rohan", records[2][0])
	assert.Equal(t, "Due", records[2][2])
}

func TestWriteCSV_InstallmentInfoColumn(t *testing.T) {
	batch, err := crm.NewBatch("Evening Chem", crm.FeeInstallment, decimal.Zero,
		[]decimal.Decimal{crm.Rupees(4000), crm.Rupees(4000)})
	require.NoError(t, err)

	s, err := crm.NewStudent(batch, "Meera", "9876500003", crm.NewDate(2025, time.September, 30))
	require.NoError(t, err)
	require.NoError(t, s.AddPayment(crm.Rupees(3000)))

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, batch, []crm.Student{s}, today()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Paid 3000/8000", records[1][3])
	assert.Equal(t, "2025-09-30", records[1][4])
}

func TestWriteXLSX_RoundTrips(t *testing.T) {
	batch, err := crm.NewBatch("Crash Course", crm.FeeCourse, crm.Rupees(8000), nil)
	require.NoError(t, err)

	s, err := crm.NewStudent(batch, "Priya", "9876500004", crm.Date{})
	require.NoError(t, err)
	require.NoError(t, s.MarkCoursePaid())

	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, batch, []crm.Student{s}, today()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Students")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Priya", rows[1][0])
	assert.Equal(t, "Paid", rows[1][2])
	assert.Equal(t, "Paid", rows[1][3])
}
