package main

import (
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/de"
)

// ---------------------------------------------------------------------------
// Business Calendar
// ---------------------------------------------------------------------------

// regionHolidays maps holiday regions to their holiday slices. "AT" is the
// Austrian national calendar, the rest are German state abbreviations.
var regionHolidays = map[string][]*cal.Holiday{
	"AT": at.Holidays, // Österreich
	"BW": de.HolidaysBW,
	"BY": de.HolidaysBY,
	"BE": de.HolidaysBE,
	"BB": de.HolidaysBB,
	"HB": de.HolidaysHB,
	"HH": de.HolidaysHH,
	"HE": de.HolidaysHE,
	"MV": de.HolidaysMV,
	"NI": de.HolidaysNI,
	"NW": de.HolidaysNW,
	"RP": de.HolidaysRP,
	"SL": de.HolidaysSL,
	"SN": de.HolidaysSN,
	"ST": de.HolidaysST,
	"SH": de.HolidaysSH,
	"TH": de.HolidaysTH,
}

// newBusinessCalendar creates a calendar with the holidays of the given region.
func newBusinessCalendar(region string) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.Name = "Wisehomes.at"
	c.Description = "Letter dating calendar"

	holidays, ok := regionHolidays[region]
	if !ok {
		// Default to Austria if unknown region
		holidays = at.Holidays
	}
	c.AddHoliday(holidays...)
	return c
}

// letterDate returns the first business day on or after now. Letters written
// on a weekend or holiday carry the date they are posted.
func letterDate(c *cal.BusinessCalendar, now time.Time) time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14 && !c.IsWorkday(d); i++ {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// formatDate formats a date as DD.MM.YYYY.
func formatDate(year int, month time.Month, day int) string {
	return fmt.Sprintf("%02d.%02d.%d", day, month, year)
}

// dateLine renders the place and date line, e.g. "Wien, 19.10.2026".
func dateLine(place string, d time.Time) string {
	date := formatDate(d.Year(), d.Month(), d.Day())
	if place == "" {
		return date
	}
	return place + ", " + date
}
