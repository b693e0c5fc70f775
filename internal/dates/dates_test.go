package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		months int
		want   time.Time
	}{
		{"plain month", date(2024, 3, 15), 1, date(2024, 4, 15)},
		{"jan 31 to feb in leap year", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"jan 31 to feb", date(2025, 1, 31), 1, date(2025, 2, 28)},
		{"may 31 to june", date(2024, 5, 31), 1, date(2024, 6, 30)},
		{"quarterly across year end", date(2024, 11, 30), 3, date(2025, 2, 28)},
		{"annual from feb 29", date(2024, 2, 29), 12, date(2025, 2, 28)},
		{"month rollover past december", date(2024, 10, 15), 4, date(2025, 2, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonthsClamped(tt.from, tt.months))
		})
	}
}

func TestAddMonthsClamped_KeepsTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 31, 9, 30, 15, 0, time.UTC)
	got := AddMonthsClamped(from, 1)
	assert.Equal(t, time.Date(2024, 2, 29, 9, 30, 15, 0, time.UTC), got)
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", date(2024, 8, 1), date(2024, 8, 1), 0},
		{"one day apart", date(2024, 8, 1), date(2024, 8, 2), 1},
		{"negative when b precedes a", date(2024, 8, 10), date(2024, 8, 1), -9},
		{"across months", date(2024, 7, 25), date(2024, 8, 5), 11},
		{"time of day ignored", time.Date(2024, 8, 1, 23, 59, 0, 0, time.UTC), time.Date(2024, 8, 2, 0, 1, 0, 0, time.UTC), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.a, tt.b))
		})
	}
}
