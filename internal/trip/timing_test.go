package trip

import (
	"testing"
	"time"

	"github.com/merobus/merobus-backend/internal/model"
)

func TestClassify(t *testing.T) {
	min := func(n int) time.Duration { return time.Duration(n) * time.Minute }

	cases := []struct {
		name    string
		depDiff time.Duration
		arrDiff time.Duration
		want    string
	}{
		{"left early arrived early", min(-10), min(-5), model.CategoryEarly},
		{"left late arrived late", min(3), min(12), model.CategoryLate},
		{"left early arrived late", min(-4), min(9), model.CategoryEarlyStartLateArrival},
		{"left late arrived early", min(7), min(-2), model.CategoryLateStartEarlyArrival},
		{"exactly on schedule", 0, 0, model.CategoryOnTime},
		{"departure on the dot", 0, min(-5), model.CategoryOnTime},
		{"arrival on the dot", min(10), 0, model.CategoryOnTime},
		{"one second early both", -time.Second, -time.Second, model.CategoryEarly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.depDiff, tc.arrDiff); got != tc.want {
				t.Errorf("Classify(%v, %v) = %q, want %q", tc.depDiff, tc.arrDiff, got, tc.want)
			}
		})
	}
}

func TestDominant(t *testing.T) {
	cases := []struct {
		name string
		perf model.VehiclePerformance
		want string
	}{
		{
			name: "clear winner",
			perf: model.VehiclePerformance{LateCount: 5, OnTimeCount: 2, EarlyCount: 1},
			want: model.CategoryLate,
		},
		{
			name: "tie keeps earlier category",
			perf: model.VehiclePerformance{EarlyCount: 3, LateCount: 3},
			want: model.CategoryEarly,
		},
		{
			name: "on time ties early, early wins",
			perf: model.VehiclePerformance{EarlyCount: 2, OnTimeCount: 2},
			want: model.CategoryEarly,
		},
		{
			name: "no trips defaults to first category",
			perf: model.VehiclePerformance{},
			want: model.CategoryEarly,
		},
		{
			name: "mixed category dominates",
			perf: model.VehiclePerformance{OnTimeCount: 1, EarlyStartLateArrivalCount: 4, LateCount: 2},
			want: model.CategoryEarlyStartLateArrival,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Dominant(tc.perf); got != tc.want {
				t.Errorf("Dominant() = %q, want %q", got, tc.want)
			}
		})
	}
}
