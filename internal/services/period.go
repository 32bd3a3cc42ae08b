package services

import (
	"strings"
	"time"
)

const (
	PeriodToday        = "Today"
	PeriodCurrentWeek  = "Current Week"
	PeriodCurrentMonth = "Current Month"
	PeriodCurrentYear  = "Current Year"
	PeriodLastWeek     = "Last Week"
	PeriodLastMonth    = "Last Month"
	PeriodLastYear     = "Last Year"
	PeriodCustomRange  = "Custom Range"
)

const dateLayout = "2006-01-02"

// periodAliases maps lowercased tokens, in both the English and the
// Spanish spelling used by the web client, to the canonical token.
var periodAliases = map[string]string{
	"today":               PeriodToday,
	"hoy":                 PeriodToday,
	"current week":        PeriodCurrentWeek,
	"semana actual":       PeriodCurrentWeek,
	"current month":       PeriodCurrentMonth,
	"mes actual":          PeriodCurrentMonth,
	"current year":        PeriodCurrentYear,
	"año actual":          PeriodCurrentYear,
	"last week":           PeriodLastWeek,
	"semana pasada":       PeriodLastWeek,
	"last month":          PeriodLastMonth,
	"mes pasado":          PeriodLastMonth,
	"last year":           PeriodLastYear,
	"año pasado":          PeriodLastYear,
	"custom range":        PeriodCustomRange,
	"rango personalizado": PeriodCustomRange,
}

// Period is an inclusive [Start, End] range.
type Period struct {
	Name  string
	Start time.Time
	End   time.Time
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// ResolvePeriod turns a period token into concrete bounds anchored on now,
// in now's location. Weeks start on Monday. customStart and customEnd are
// YYYY-MM-DD dates and are only read for the custom range token.
func ResolvePeriod(now time.Time, token, customStart, customEnd string) (Period, error) {
	name, ok := periodAliases[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return Period{}, newValidationError("period", "unknown period %q", token)
	}

	today := startOfDay(now)
	p := Period{Name: name}
	switch name {
	case PeriodToday:
		p.Start, p.End = today, endOfDay(today)
	case PeriodCurrentWeek:
		monday := startOfWeek(today)
		p.Start, p.End = monday, endOfDay(monday.AddDate(0, 0, 6))
	case PeriodLastWeek:
		monday := startOfWeek(today).AddDate(0, 0, -7)
		p.Start, p.End = monday, endOfDay(monday.AddDate(0, 0, 6))
	case PeriodCurrentMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		p.Start, p.End = first, endOfDay(first.AddDate(0, 1, -1))
	case PeriodLastMonth:
		first := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, today.Location())
		p.Start, p.End = first, endOfDay(first.AddDate(0, 1, -1))
	case PeriodCurrentYear:
		first := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		p.Start, p.End = first, endOfDay(first.AddDate(1, 0, -1))
	case PeriodLastYear:
		first := time.Date(today.Year()-1, time.January, 1, 0, 0, 0, 0, today.Location())
		p.Start, p.End = first, endOfDay(first.AddDate(1, 0, -1))
	case PeriodCustomRange:
		return resolveCustomRange(now.Location(), customStart, customEnd)
	}
	return p, nil
}

func resolveCustomRange(loc *time.Location, rawStart, rawEnd string) (Period, error) {
	verr := new(ValidationError)
	if rawStart == "" {
		verr.add("start", "is required for a custom range")
	}
	if rawEnd == "" {
		verr.add("end", "is required for a custom range")
	}
	if err := verr.err(); err != nil {
		return Period{}, err
	}

	start, err := time.ParseInLocation(dateLayout, rawStart, loc)
	if err != nil {
		verr.add("start", "must be a YYYY-MM-DD date")
	}
	end, err := time.ParseInLocation(dateLayout, rawEnd, loc)
	if err != nil {
		verr.add("end", "must be a YYYY-MM-DD date")
	}
	if err := verr.err(); err != nil {
		return Period{}, err
	}
	if end.Before(start) {
		return Period{}, newValidationError("end", "must not be before start")
	}

	return Period{
		Name:  PeriodCustomRange,
		Start: start,
		End:   endOfDay(end),
	}, nil
}

// DayBounds returns local midnight and 23:59:59.999 of t's calendar day in
// the server's time zone, whatever zone t was given in.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := startOfDay(t.In(time.Local))
	return start, endOfDay(start)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func startOfWeek(day time.Time) time.Time {
	// Weekday counts from Sunday; shift so that Monday is 0.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
