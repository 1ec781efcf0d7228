// Package geo provides the small amount of geometry the service
// needs: the Google encoded-polyline format used to store route
// shapes, and point/segment distances used to match rider coordinates
// against those shapes.
package geo

import "strings"

// Coord is a WGS84 coordinate pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

const polylinePrecision = 1e5

// EncodePolyline encodes coordinates using the Google encoded
// polyline algorithm at 5-decimal precision.
func EncodePolyline(coords []Coord) string {
	var b strings.Builder
	var prevLat, prevLng int64
	for _, c := range coords {
		lat := round5(c.Lat)
		lng := round5(c.Lng)
		encodeSigned(&b, lat-prevLat)
		encodeSigned(&b, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return b.String()
}

// DecodePolyline decodes a Google encoded polyline. Malformed input
// yields the coordinates decoded up to the truncation point.
func DecodePolyline(s string) []Coord {
	var coords []Coord
	var lat, lng int64
	i := 0
	for i < len(s) {
		dLat, n, ok := decodeSigned(s[i:])
		if !ok {
			break
		}
		i += n
		dLng, n, ok := decodeSigned(s[i:])
		if !ok {
			break
		}
		i += n
		lat += dLat
		lng += dLng
		coords = append(coords, Coord{
			Lat: float64(lat) / polylinePrecision,
			Lng: float64(lng) / polylinePrecision,
		})
	}
	return coords
}

func round5(v float64) int64 {
	scaled := v * polylinePrecision
	if scaled >= 0 {
		return int64(scaled + 0.5)
	}
	return int64(scaled - 0.5)
}

func encodeSigned(b *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		b.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	b.WriteByte(byte(u) + 63)
}

func decodeSigned(s string) (int64, int, bool) {
	var (
		result int64
		shift  uint
		i      int
	)
	for {
		if i >= len(s) {
			return 0, 0, false
		}
		c := int64(s[i]) - 63
		if c < 0 {
			return 0, 0, false
		}
		i++
		result |= (c & 0x1f) << shift
		shift += 5
		if c < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i, true
	}
	return result >> 1, i, true
}
