package services

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolvePeriod_Tokens(t *testing.T) {
	// Wednesday.
	now := time.Date(2024, time.May, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		token     string
		wantName  string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"Today", PeriodToday, date(2024, time.May, 15), endOfDay(date(2024, time.May, 15))},
		{"hoy", PeriodToday, date(2024, time.May, 15), endOfDay(date(2024, time.May, 15))},
		{"Current Week", PeriodCurrentWeek, date(2024, time.May, 13), endOfDay(date(2024, time.May, 19))},
		{"Semana Actual", PeriodCurrentWeek, date(2024, time.May, 13), endOfDay(date(2024, time.May, 19))},
		{"Last Week", PeriodLastWeek, date(2024, time.May, 6), endOfDay(date(2024, time.May, 12))},
		{"semana pasada", PeriodLastWeek, date(2024, time.May, 6), endOfDay(date(2024, time.May, 12))},
		{"Current Month", PeriodCurrentMonth, date(2024, time.May, 1), endOfDay(date(2024, time.May, 31))},
		{"Mes Actual", PeriodCurrentMonth, date(2024, time.May, 1), endOfDay(date(2024, time.May, 31))},
		{"Last Month", PeriodLastMonth, date(2024, time.April, 1), endOfDay(date(2024, time.April, 30))},
		{"Mes Pasado", PeriodLastMonth, date(2024, time.April, 1), endOfDay(date(2024, time.April, 30))},
		{"Current Year", PeriodCurrentYear, date(2024, time.January, 1), endOfDay(date(2024, time.December, 31))},
		{"Año Actual", PeriodCurrentYear, date(2024, time.January, 1), endOfDay(date(2024, time.December, 31))},
		{"Last Year", PeriodLastYear, date(2023, time.January, 1), endOfDay(date(2023, time.December, 31))},
		{"año pasado", PeriodLastYear, date(2023, time.January, 1), endOfDay(date(2023, time.December, 31))},
		{"  today  ", PeriodToday, date(2024, time.May, 15), endOfDay(date(2024, time.May, 15))},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p, err := ResolvePeriod(now, tt.token, "", "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name != tt.wantName {
				t.Fatalf("name: got %q, want %q", p.Name, tt.wantName)
			}
			if !p.Start.Equal(tt.wantStart) {
				t.Fatalf("start: got %v, want %v", p.Start, tt.wantStart)
			}
			if !p.End.Equal(tt.wantEnd) {
				t.Fatalf("end: got %v, want %v", p.End, tt.wantEnd)
			}
		})
	}
}

func TestResolvePeriod_CurrentWeekOnSunday(t *testing.T) {
	now := time.Date(2024, time.May, 19, 23, 0, 0, 0, time.UTC)

	p, err := ResolvePeriod(now, "Current Week", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(date(2024, time.May, 13)) {
		t.Fatalf("expected week to start on Monday 13th, got %v", p.Start)
	}
	if !p.Contains(now) {
		t.Fatalf("expected current week to contain %v", now)
	}
}

func TestResolvePeriod_LastMonthInJanuary(t *testing.T) {
	now := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

	p, err := ResolvePeriod(now, "Last Month", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(date(2023, time.December, 1)) || !p.End.Equal(endOfDay(date(2023, time.December, 31))) {
		t.Fatalf("unexpected bounds: %v - %v", p.Start, p.End)
	}
}

func TestResolvePeriod_EndOfDayIsInclusive(t *testing.T) {
	now := time.Date(2024, time.May, 15, 8, 0, 0, 0, time.UTC)

	p, err := ResolvePeriod(now, "Today", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, time.May, 15, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !p.End.Equal(want) {
		t.Fatalf("end: got %v, want %v", p.End, want)
	}
	if !p.Contains(want) {
		t.Fatalf("expected period to contain its own end")
	}
	if p.Contains(date(2024, time.May, 16)) {
		t.Fatalf("expected next midnight to be outside the period")
	}
}

func TestResolvePeriod_UnknownToken(t *testing.T) {
	_, err := ResolvePeriod(time.Now(), "Next Decade", "", "")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Violations[0].Field != "period" {
		t.Fatalf("expected violation on period, got %q", verr.Violations[0].Field)
	}
}

func TestResolvePeriod_CustomRange(t *testing.T) {
	now := time.Date(2024, time.May, 15, 14, 30, 0, 0, time.UTC)

	p, err := ResolvePeriod(now, "Rango Personalizado", "2024-03-01", "2024-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != PeriodCustomRange {
		t.Fatalf("name: got %q", p.Name)
	}
	if !p.Start.Equal(date(2024, time.March, 1)) || !p.End.Equal(endOfDay(date(2024, time.March, 10))) {
		t.Fatalf("unexpected bounds: %v - %v", p.Start, p.End)
	}

	// A single day range is valid.
	_, err = ResolvePeriod(now, "Custom Range", "2024-03-01", "2024-03-01")
	if err != nil {
		t.Fatalf("unexpected error for single day range: %v", err)
	}
}

func TestResolvePeriod_CustomRangeErrors(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		start, end string
		wantFields []string
	}{
		{"missing both", "", "", []string{"start", "end"}},
		{"missing end", "2024-03-01", "", []string{"end"}},
		{"bad start", "03/01/2024", "2024-03-10", []string{"start"}},
		{"end before start", "2024-03-10", "2024-03-01", []string{"end"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolvePeriod(now, "Custom Range", tt.start, tt.end)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(verr.Violations) != len(tt.wantFields) {
				t.Fatalf("expected %d violations, got %v", len(tt.wantFields), verr.Violations)
			}
			for i, field := range tt.wantFields {
				if verr.Violations[i].Field != field {
					t.Fatalf("violation %d: got field %q, want %q", i, verr.Violations[i].Field, field)
				}
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	setLocalZone(t, loc)
	ts := time.Date(2024, time.May, 15, 22, 15, 0, 0, loc)

	start, end := DayBounds(ts)
	if !start.Equal(time.Date(2024, time.May, 15, 0, 0, 0, 0, loc)) {
		t.Fatalf("start: got %v", start)
	}
	if !end.Equal(time.Date(2024, time.May, 15, 23, 59, 59, int(999*time.Millisecond), loc)) {
		t.Fatalf("end: got %v", end)
	}
}

func TestDayBounds_UsesServerDay(t *testing.T) {
	loc := time.FixedZone("UTC-4", -4*60*60)
	setLocalZone(t, loc)

	// 02:00 UTC on June 1st is still May 31st at 22:00 on the server.
	start, end := DayBounds(time.Date(2025, time.June, 1, 2, 0, 0, 0, time.UTC))

	wantStart := time.Date(2025, time.May, 31, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2025, time.May, 31, 23, 59, 59, int(999*time.Millisecond), loc)
	if !start.Equal(wantStart) {
		t.Fatalf("start: got %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("end: got %v, want %v", end, wantEnd)
	}
}
