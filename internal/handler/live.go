package handler

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/merobus/merobus-backend/internal/live"
	"github.com/merobus/merobus-backend/internal/model"
)

// LiveHandler upgrades clients to websocket and relays presence and
// location events through the hub.
type LiveHandler struct {
	Hub       *live.Hub
	JWTSecret string
	upgrader  websocket.Upgrader
}

func NewLiveHandler(hub *live.Hub, jwtSecret string) *LiveHandler {
	return &LiveHandler{
		Hub:       hub,
		JWTSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers cannot set Authorization on websocket requests;
			// auth happens via the token query param instead.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// clientEvent is what connected clients send.
type clientEvent struct {
	Type      string  `json:"type"`
	VehicleID uint64  `json:"vehicle_id,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lng       float64 `json:"lng,omitempty"`
}

// Serve authenticates the "token" query param, upgrades the
// connection and runs the event loop until the client disconnects.
func (h *LiveHandler) Serve(c echo.Context) error {
	uid, role, ok := h.authenticate(c.QueryParam("token"))
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // Upgrade already wrote the response
	}

	h.Hub.Login(uid, conn)
	var registered []uint64
	defer func() {
		for _, vid := range registered {
			h.Hub.UnregisterVehicle(vid)
		}
		h.Hub.Disconnect(uid)
		_ = conn.Close()
	}()

	for {
		var ev clientEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return nil
		}
		switch ev.Type {
		case "register_vehicle":
			if role != model.RoleDriver || ev.VehicleID == 0 {
				continue
			}
			h.Hub.RegisterVehicle(ev.VehicleID, conn)
			registered = append(registered, ev.VehicleID)
		case "location_update":
			h.Hub.RecordLocation(ev.VehicleID, ev.Lat, ev.Lng)
		case "watch_vehicle":
			h.Hub.Watch(uid, ev.VehicleID)
		case "unwatch_vehicle":
			h.Hub.Unwatch(uid, ev.VehicleID)
		case "logout":
			return nil
		}
	}
}

func (h *LiveHandler) authenticate(raw string) (uint64, string, bool) {
	if raw == "" {
		return 0, "", false
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.JWTSecret), nil
	})
	if err != nil || !tok.Valid {
		return 0, "", false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", false
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub < 1 {
		return 0, "", false
	}
	role, _ := claims["role"].(string)
	return uint64(sub), role, true
}
