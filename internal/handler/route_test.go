package handler

import "testing"

func TestDedupeStops(t *testing.T) {
	stops := []stopReq{
		{Name: "Kalanki", Latitude: 27.69, Longitude: 85.28},
		{Name: "Thankot", Latitude: 27.68, Longitude: 85.20},
		{Name: "Kalanki", Latitude: 27.70, Longitude: 85.29},
		{Name: "Naubise", Latitude: 27.66, Longitude: 85.10},
	}
	got := dedupeStops(stops)
	if len(got) != 3 {
		t.Fatalf("dedupeStops kept %d stops, want 3: %v", len(got), got)
	}
	if got[0].Name != "Kalanki" || got[1].Name != "Thankot" || got[2].Name != "Naubise" {
		t.Errorf("order not preserved: %v", got)
	}
	// The first occurrence's coordinates win.
	if got[0].Latitude != 27.69 {
		t.Errorf("duplicate overwrote first occurrence: %+v", got[0])
	}

	// All duplicates collapse to a single stop.
	if got := dedupeStops([]stopReq{{Name: "A"}, {Name: "A"}}); len(got) != 1 {
		t.Errorf("dedupeStops = %v, want single stop", got)
	}
}
