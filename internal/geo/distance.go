package geo

import "math"

const earthRadiusM = 6371000.0

// HaversineKm returns the great-circle distance between two
// coordinates in kilometers.
func HaversineKm(a, b Coord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c / 1000
}

// toXY projects a coordinate onto a local equirectangular plane in
// meters. Good enough for the sub-100km segment distances the route
// search needs.
func toXY(c Coord) (x, y float64) {
	rad := math.Pi / 180
	return earthRadiusM * c.Lng * rad * math.Cos(c.Lat*rad), earthRadiusM * c.Lat * rad
}

// PointToSegmentM returns the distance in meters from p to the
// segment a-b.
func PointToSegmentM(p, a, b Coord) float64 {
	px, py := toXY(p)
	ax, ay := toXY(a)
	bx, by := toXY(b)

	dx := bx - ax
	dy := by - ay
	if dx == 0 && dy == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

// NearestDistanceM returns the minimum distance in meters from p to
// any segment of the path. Returns +Inf for paths shorter than two
// points.
func NearestDistanceM(p Coord, path []Coord) float64 {
	min := math.Inf(1)
	for i := 0; i+1 < len(path); i++ {
		if d := PointToSegmentM(p, path[i], path[i+1]); d < min {
			min = d
		}
	}
	return min
}
