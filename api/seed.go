/*
seed.go - Demo data loader

PURPOSE:
  Populates the store with a small, realistic data set covering all
  three billing models, so a fresh install shows a meaningful dashboard.
  Seeding an already-populated store adds another copy of everything, so
  the endpoint is meant for dev databases.
*/
package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/coachdesk/crm-engine/crm"
)

// LoadSeedData inserts the demo batches and students.
func (h *Handler) LoadSeedData(w http.ResponseWriter, r *http.Request) {
	if err := h.seed(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seeded": true})
}

func (h *Handler) seed(ctx context.Context) error {
	today := h.Now()
	thisMonth := crm.YearMonthOf(today)

	monthly, _ := crm.NewBatch("Morning Maths", crm.FeeMonthly, crm.Rupees(1500), nil)
	monthly.Course = "Mathematics"
	monthly.Time = "7:00 AM"
	monthly.StartDate = thisMonth.First()

	course, _ := crm.NewBatch("Crash Course Physics", crm.FeeCourse, crm.Rupees(8000), nil)
	course.Course = "Physics"

	installment, _ := crm.NewBatch("Evening Chemistry", crm.FeeInstallment, crm.Rupees(0),
		[]decimal.Decimal{crm.Rupees(4000), crm.Rupees(4000), crm.Rupees(4000)})
	installment.Course = "Chemistry"
	installment.Time = "6:30 PM"

	for _, b := range []crm.Batch{monthly, course, installment} {
		if err := h.Store.SaveBatch(ctx, b); err != nil {
			return err
		}
	}

	// Monthly: one student paid up, one never paid.
	paidUp, _ := crm.NewStudent(monthly, "Asha Verma", "9876500001", crm.Date{})
	_ = paidUp.MarkMonthPaid(thisMonth)
	neverPaid, _ := crm.NewStudent(monthly, "Rohan Gupta", "9876500002", crm.Date{})

	// Course: one settled, one overdue since last month.
	settled, _ := crm.NewStudent(course, "Priya Nair", "9876500003", crm.Date{})
	_ = settled.MarkCoursePaid()
	overdue, _ := crm.NewStudent(course, "Kabir Shah", "9876500004", thisMonth.First())

	// Installment: part-paid with a due date this month, and a dropout.
	partPaid, _ := crm.NewStudent(installment, "Meera Iyer", "9876500005", thisMonth.First())
	_ = partPaid.AddPayment(crm.Rupees(4000))
	dropped, _ := crm.NewStudent(installment, "Vikram Rao", "9876500006", crm.Date{})
	dropped.Dropped = true

	saves := []struct {
		batchID string
		student crm.Student
	}{
		{monthly.ID, paidUp},
		{monthly.ID, neverPaid},
		{course.ID, settled},
		{course.ID, overdue},
		{installment.ID, partPaid},
		{installment.ID, dropped},
	}
	for _, s := range saves {
		if err := h.Store.SaveStudent(ctx, s.batchID, s.student); err != nil {
			return err
		}
	}
	return nil
}
