package geo

import (
	"math"
	"testing"
)

// Reference example from the encoded polyline format documentation.
var referenceCoords = []Coord{
	{Lat: 38.5, Lng: -120.2},
	{Lat: 40.7, Lng: -120.95},
	{Lat: 43.252, Lng: -126.453},
}

const referenceEncoded = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestEncodePolyline(t *testing.T) {
	if got := EncodePolyline(referenceCoords); got != referenceEncoded {
		t.Errorf("EncodePolyline = %q, want %q", got, referenceEncoded)
	}
}

func TestDecodePolyline(t *testing.T) {
	got := DecodePolyline(referenceEncoded)
	if len(got) != len(referenceCoords) {
		t.Fatalf("decoded %d coords, want %d", len(got), len(referenceCoords))
	}
	for i, c := range got {
		if math.Abs(c.Lat-referenceCoords[i].Lat) > 1e-5 || math.Abs(c.Lng-referenceCoords[i].Lng) > 1e-5 {
			t.Errorf("coord %d = %+v, want %+v", i, c, referenceCoords[i])
		}
	}
}

func TestPolylineRoundTrip(t *testing.T) {
	coords := []Coord{
		{Lat: 27.7172, Lng: 85.3240},  // Kathmandu
		{Lat: 27.6710, Lng: 85.4298},  // Bhaktapur
		{Lat: 28.2096, Lng: 83.9856},  // Pokhara
		{Lat: -33.8688, Lng: 151.2093}, // negative latitude
	}
	got := DecodePolyline(EncodePolyline(coords))
	if len(got) != len(coords) {
		t.Fatalf("round trip length %d, want %d", len(got), len(coords))
	}
	for i := range coords {
		if math.Abs(got[i].Lat-coords[i].Lat) > 1e-5 || math.Abs(got[i].Lng-coords[i].Lng) > 1e-5 {
			t.Errorf("coord %d = %+v, want %+v", i, got[i], coords[i])
		}
	}
}

func TestDecodePolylineEmpty(t *testing.T) {
	if got := DecodePolyline(""); len(got) != 0 {
		t.Errorf("decoding empty string gave %d coords", len(got))
	}
}

func TestHaversineKm(t *testing.T) {
	ktm := Coord{Lat: 27.7172, Lng: 85.3240}
	pkr := Coord{Lat: 28.2096, Lng: 83.9856}
	d := HaversineKm(ktm, pkr)
	if d < 130 || d > 160 {
		t.Errorf("Kathmandu-Pokhara = %.1f km, want roughly 143", d)
	}
	if z := HaversineKm(ktm, ktm); z > 1e-9 {
		t.Errorf("distance to self = %f, want 0", z)
	}
}

func TestPointToSegmentM(t *testing.T) {
	a := Coord{Lat: 27.70, Lng: 85.30}
	b := Coord{Lat: 27.70, Lng: 85.40}

	// Point on the segment.
	on := Coord{Lat: 27.70, Lng: 85.35}
	if d := PointToSegmentM(on, a, b); d > 1 {
		t.Errorf("point on segment distance = %.2f m, want ~0", d)
	}

	// 0.01 degrees of latitude is about 1.11 km.
	off := Coord{Lat: 27.71, Lng: 85.35}
	d := PointToSegmentM(off, a, b)
	if d < 1000 || d > 1250 {
		t.Errorf("perpendicular distance = %.0f m, want ~1110", d)
	}

	// Beyond the segment end, distance is to the endpoint.
	past := Coord{Lat: 27.70, Lng: 85.45}
	want := HaversineKm(past, b) * 1000
	got := PointToSegmentM(past, a, b)
	if math.Abs(got-want) > want*0.02 {
		t.Errorf("past-end distance = %.0f m, want ~%.0f", got, want)
	}
}

func TestNearestDistanceM(t *testing.T) {
	path := []Coord{
		{Lat: 27.70, Lng: 85.30},
		{Lat: 27.70, Lng: 85.40},
		{Lat: 27.80, Lng: 85.40},
	}
	p := Coord{Lat: 27.75, Lng: 85.41}
	d := NearestDistanceM(p, path)
	if d < 500 || d > 1500 {
		t.Errorf("nearest distance = %.0f m, want ~990", d)
	}

	if d := NearestDistanceM(p, path[:1]); !math.IsInf(d, 1) {
		t.Errorf("single-point path distance = %f, want +Inf", d)
	}
	if d := NearestDistanceM(p, nil); !math.IsInf(d, 1) {
		t.Errorf("empty path distance = %f, want +Inf", d)
	}
}
