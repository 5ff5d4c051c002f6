package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalDaysExcludesWeekends(t *testing.T) {
	// 2026-07-03 is a Friday, 2026-07-06 is a Monday: the weekend between
	// them must be skipped.
	days := naturalDays("2026-07-03", "2026-07-06")
	assert.Equal(t, []string{"2026-07-03", "2026-07-06"}, days)
}

func TestNaturalDaysEmptyOnInvertedRange(t *testing.T) {
	days := naturalDays("2026-07-10", "2026-07-01")
	assert.Nil(t, days)
}

func TestNaturalDaysSingleDay(t *testing.T) {
	days := naturalDays("2026-07-01", "2026-07-01")
	assert.Equal(t, []string{"2026-07-01"}, days)
}
