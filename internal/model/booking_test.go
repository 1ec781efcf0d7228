package model

import (
	"testing"
	"time"
)

func TestServiceDay(t *testing.T) {
	morning := time.Date(2026, 3, 14, 6, 30, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	if !ServiceDay(morning).Equal(ServiceDay(evening)) {
		t.Errorf("same-day timestamps map to different service days: %v vs %v",
			ServiceDay(morning), ServiceDay(evening))
	}

	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if got := ServiceDay(morning); !got.Equal(want) {
		t.Errorf("ServiceDay = %v, want %v", got, want)
	}

	nextDay := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if ServiceDay(evening).Equal(ServiceDay(nextDay)) {
		t.Error("midnight boundary collapsed into previous day")
	}
}

func TestServiceDayNormalizesZone(t *testing.T) {
	// 23:30 on Jan 1 at UTC-5 is 04:30 on Jan 2 in UTC.
	est := time.FixedZone("EST", -5*3600)
	local := time.Date(2026, 1, 1, 23, 30, 0, 0, est)
	want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	if got := ServiceDay(local); !got.Equal(want) {
		t.Errorf("ServiceDay(%v) = %v, want %v", local, got, want)
	}
}
