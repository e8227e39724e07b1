// Package payslip renders payroll lines for people. It sits outside the
// engine: payroll computes values, this package only formats them.
package payslip

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
)

var shiftColumns = []struct {
	title string
	width float64
}{
	{"Date", 28}, {"Shift", 34}, {"Type", 22}, {"Minutes", 22}, {"Break", 20}, {"Gross", 30}, {"Night", 30},
}

// Write renders a payroll line as a one-page A4 PDF.
func Write(w io.Writer, companyID generic.CompanyID, line payroll.PayrollLine) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Company: %s", companyID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Driver: %s", line.DriverID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", line.Period.Start.Format("2006-01-02"), line.Period.End.Format("2006-01-02")))
	pdf.Ln(10)

	pdf.Cell(0, 8, fmt.Sprintf("Worked: %s (break %s, paid %s)",
		hoursMinutes(line.TotalWorkMinutes), hoursMinutes(line.TotalBreakMinutes), hoursMinutes(line.ActualWorkMinutes)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Early: %s  Night: %s  Neutral: %s",
		hoursMinutes(line.EarlyShiftMinutes), hoursMinutes(line.NightShiftMinutes), hoursMinutes(line.NeutralMinutes)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	for _, c := range shiftColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, s := range line.Shifts {
		cells := []string{
			s.Date.Format("2006-01-02"),
			string(s.ShiftID),
			string(s.Type),
			fmt.Sprint(s.ActualMinutes),
			fmt.Sprint(s.BreakMinutes),
			s.GrossWage.StringFixed(2),
			s.NightSupplement.StringFixed(2),
		}
		for i, c := range shiftColumns {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %s", line.GrossWage.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Night supplement: %s", line.NightSupplement.StringFixed(2)))
	pdf.Ln(7)
	for _, c := range []struct {
		label  string
		amount decimal.Decimal
	}{
		{fmt.Sprintf("Overtime (%s h)", hoursMinutes(line.OvertimeMinutes)), line.OvertimeSupplement},
		{"Weekend supplement", line.WeekendSupplement},
		{"Holiday supplement", line.HolidaySupplement},
		{fmt.Sprintf("Performance bonus (%s%% compliant)", line.ComplianceRate.StringFixed(2)), line.PerformanceBonus},
	} {
		// Components the wage config does not use stay off the slip.
		if c.amount.IsZero() {
			continue
		}
		pdf.Cell(0, 8, fmt.Sprintf("%s: %s", c.label, c.amount.StringFixed(2)))
		pdf.Ln(7)
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %s", line.TotalPay.StringFixed(2)))
	pdf.Ln(10)

	if m := line.MinimumWage; m != nil {
		pdf.SetFont("Helvetica", "", 10)
		status := "met"
		if !m.Compliant() {
			status = "shortfall " + m.Shortfall.StringFixed(2)
		}
		pdf.Cell(0, 6, fmt.Sprintf("Minimum wage %s/h: required %s, %s", m.HourlyMinimum.StringFixed(2), m.Required.StringFixed(2), status))
		pdf.Ln(6)
	}

	return pdf.Output(w)
}

func hoursMinutes(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
