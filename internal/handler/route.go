package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/merobus/merobus-backend/internal/geo"
	"github.com/merobus/merobus-backend/internal/live"
	"github.com/merobus/merobus-backend/internal/middleware"
	"github.com/merobus/merobus-backend/internal/model"
	"github.com/merobus/merobus-backend/internal/repository"
)

// routeMatchThresholdM is how close (in meters) a point must be to a
// route's polyline for the route to count as serving it.
const routeMatchThresholdM = 100_000

// RouteHandler serves route registration and the proximity search
// riders use to find vehicles passing near them.
type RouteHandler struct {
	Vehicles *repository.VehicleRepo
	Routes   *repository.RouteRepo
	Hub      *live.Hub
}

func NewRouteHandler(v *repository.VehicleRepo, r *repository.RouteRepo, hub *live.Hub) *RouteHandler {
	return &RouteHandler{Vehicles: v, Routes: r, Hub: hub}
}

type stopReq struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type createRouteReq struct {
	Name  string    `json:"name"`
	Stops []stopReq `json:"stops"`
}

type stopPart struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routePart struct {
	ID         uint64     `json:"id"`
	VehicleID  uint64     `json:"vehicle_id"`
	Name       string     `json:"name"`
	StartPoint string     `json:"start_point"`
	EndPoint   string     `json:"end_point"`
	Polyline   string     `json:"polyline"`
	Stops      []stopPart `json:"stops"`
}

func toRoutePart(d *repository.RouteDetail) routePart {
	stops := make([]stopPart, 0, len(d.Stops))
	for _, s := range d.Stops {
		stops = append(stops, stopPart{ID: s.ID, Name: s.Name, Latitude: s.Latitude, Longitude: s.Longitude})
	}
	return routePart{
		ID:         d.Route.ID,
		VehicleID:  d.Route.VehicleID,
		Name:       d.Route.Name,
		StartPoint: d.Route.StartPoint,
		EndPoint:   d.Route.EndPoint,
		Polyline:   d.Route.Polyline,
		Stops:      stops,
	}
}

// Create registers (or replaces) the route of the driver's vehicle.
// The polyline is encoded from the stop coordinates server-side.
func (h *RouteHandler) Create(c echo.Context) error {
	vehicleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	var req createRouteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Stops) < 2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a route needs at least two stops"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if err == repository.ErrVehicleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if v.OwnerID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your vehicle"})
	}

	for _, s := range req.Stops {
		if s.Name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "stop name required"})
		}
	}
	unique := dedupeStops(req.Stops)
	if len(unique) < 2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a route needs at least two distinct stops"})
	}

	coords := make([]geo.Coord, 0, len(unique))
	stops := make([]model.Stop, 0, len(unique))
	for _, s := range unique {
		coords = append(coords, geo.Coord{Lat: s.Latitude, Lng: s.Longitude})
		stops = append(stops, model.Stop{Name: s.Name, Latitude: s.Latitude, Longitude: s.Longitude})
	}

	route := &model.Route{
		VehicleID:  vehicleID,
		Name:       req.Name,
		StartPoint: unique[0].Name,
		EndPoint:   unique[len(unique)-1].Name,
		Polyline:   geo.EncodePolyline(coords),
	}
	if err := h.Routes.Save(ctx, route, stops); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save route failed"})
	}

	d, err := h.Routes.GetByVehicle(ctx, vehicleID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reload route failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"route": toRoutePart(d)})
}

// dedupeStops keeps the first occurrence of each stop name, preserving
// request order. A repeated name would collide on the route_stops
// primary key when saved.
func dedupeStops(stops []stopReq) []stopReq {
	seen := make(map[string]struct{}, len(stops))
	out := make([]stopReq, 0, len(stops))
	for _, s := range stops {
		if _, ok := seen[s.Name]; ok {
			continue
		}
		seen[s.Name] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Get returns the route of one vehicle.
func (h *RouteHandler) Get(c echo.Context) error {
	vehicleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	d, err := h.Routes.GetByVehicle(ctx, vehicleID)
	if err != nil {
		if err == repository.ErrRouteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"route": toRoutePart(d)})
}

// Search returns routes whose shape passes near the rider's pickup
// point, and near the destination too when one is given. Query params:
// lat, lng (required), dest_lat, dest_lng (optional).
func (h *RouteHandler) Search(c echo.Context) error {
	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err1 != nil || err2 != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat and lng required"})
	}
	from := geo.Coord{Lat: lat, Lng: lng}

	var dest *geo.Coord
	if dls := c.QueryParam("dest_lat"); dls != "" {
		dlat, err1 := strconv.ParseFloat(dls, 64)
		dlng, err2 := strconv.ParseFloat(c.QueryParam("dest_lng"), 64)
		if err1 != nil || err2 != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid destination coordinates"})
		}
		dest = &geo.Coord{Lat: dlat, Lng: dlng}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	all, err := h.Routes.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	type match struct {
		Route     routePart `json:"route"`
		DistanceM float64   `json:"distance_m"`
	}
	matches := make([]match, 0)
	for i := range all {
		path := geo.DecodePolyline(all[i].Route.Polyline)
		d := geo.NearestDistanceM(from, path)
		if d > routeMatchThresholdM {
			continue
		}
		if dest != nil && geo.NearestDistanceM(*dest, path) > routeMatchThresholdM {
			continue
		}
		matches = append(matches, match{Route: toRoutePart(&all[i]), DistanceM: d})
	}
	return c.JSON(http.StatusOK, echo.Map{"routes": matches})
}

// ActiveBuses returns vehicles currently broadcasting their position.
func (h *RouteHandler) ActiveBuses(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"buses": h.Hub.ActiveVehicles()})
}
