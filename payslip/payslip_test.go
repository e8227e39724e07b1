package payslip_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
	"github.com/warp/ride-engine/payslip"
)

var march = generic.MonthPeriod(2025, time.March)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

func shift(id string, start, end time.Time, breakMinutes int) generic.ShiftRecord {
	return generic.ShiftRecord{ID: generic.ShiftID(id), DriverID: "drv-1", StartAt: start, EndAt: end, BreakMinutes: breakMinutes}
}

func TestWrite(t *testing.T) {
	// GIVEN: an aggregated line with a minimum wage configured
	schedule, err := payroll.NewWageSchedule(payroll.WageConfig{
		ID:                     "wage-2025",
		HourlyWage:             decimal.RequireFromString("12.41"),
		NightSupplementPercent: decimal.NewFromInt(25),
		NightWindow:            generic.NightWindow{Start: generic.NewClockTime(22, 0), End: generic.NewClockTime(6, 0)},
		EarlyShiftBoundary:     generic.NewClockTime(12, 0),
		MinimumHourlyWage:      decimal.RequireFromString("13.00"),
		EffectiveFrom:          generic.Date(2025, 1, 1),
		Version:                1,
	})
	require.NoError(t, err)
	line, err := payroll.Aggregate(context.Background(), "drv-1", march, []generic.ShiftRecord{
		shift("s1", at(10, 6, 0), at(10, 14, 30), 30),
		shift("s2", at(11, 22, 0), at(12, 6, 0), 0),
	}, schedule, payroll.Performance{})
	require.NoError(t, err)
	require.NotNil(t, line.MinimumWage)

	// WHEN: rendering
	var buf bytes.Buffer
	err = payslip.Write(&buf, "acme", line)

	// THEN: a PDF document is written
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestWrite_NoShifts(t *testing.T) {
	line := payroll.PayrollLine{DriverID: "drv-1", Period: march}

	var buf bytes.Buffer
	require.NoError(t, payslip.Write(&buf, "acme", line))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWrite_PayComponents(t *testing.T) {
	// GIVEN: a line carrying overtime and a performance bonus
	line := payroll.PayrollLine{
		DriverID:           "drv-1",
		Period:             march,
		OvertimeMinutes:    150,
		OvertimeSupplement: decimal.RequireFromString("15.51"),
		PerformanceBonus:   decimal.RequireFromString("4.65"),
		ComplianceRate:     decimal.NewFromInt(100),
		TotalPay:           decimal.RequireFromString("20.16"),
	}

	// WHEN: rendering
	var buf bytes.Buffer
	err := payslip.Write(&buf, "acme", line)

	// THEN: the document is still a single valid PDF
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
