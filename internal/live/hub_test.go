package live

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// fakeConn records pushed events and can be told to fail writes.
type fakeConn struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("write failed")
	}
	f.events = append(f.events, v.(Event))
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoginAndPush(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	hub.Login(7, conn)

	if !hub.Online(7) {
		t.Fatal("user should be online after login")
	}
	if !hub.Push(7, Event{Type: "notification"}) {
		t.Fatal("push to online user should succeed")
	}
	if conn.count() != 1 {
		t.Fatalf("conn received %d events, want 1", conn.count())
	}
	if hub.Push(99, Event{Type: "notification"}) {
		t.Error("push to unknown user should report false")
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	hub := newTestHub()
	var connects, disconnects int
	hub.SetConnectionHooks(func() { connects++ }, func() { disconnects++ })

	hub.Login(1, &fakeConn{})
	hub.Disconnect(1)
	hub.Disconnect(1)
	hub.Disconnect(1)

	if hub.Online(1) {
		t.Error("user still online after disconnect")
	}
	if connects != 1 || disconnects != 1 {
		t.Errorf("hooks fired connect=%d disconnect=%d, want 1/1", connects, disconnects)
	}
}

func TestReloginReplacesSession(t *testing.T) {
	hub := newTestHub()
	var connects int
	hub.SetConnectionHooks(func() { connects++ }, func() {})

	old := &fakeConn{}
	replacement := &fakeConn{}
	hub.Login(5, old)
	hub.Login(5, replacement)

	hub.Push(5, Event{Type: "notification"})
	if old.count() != 0 {
		t.Error("replaced connection still receives events")
	}
	if replacement.count() != 1 {
		t.Error("new connection did not receive event")
	}
	if connects != 1 {
		t.Errorf("connect hook fired %d times for one distinct user, want 1", connects)
	}
}

func TestPushFailureTearsDownSession(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{fail: true}
	hub.Login(3, conn)

	if hub.Push(3, Event{Type: "notification"}) {
		t.Error("push over broken connection should report false")
	}
	if hub.Online(3) {
		t.Error("session should be dropped after failed write")
	}
}

func TestLocationBroadcast(t *testing.T) {
	hub := newTestHub()
	driver := &fakeConn{}
	watcher := &fakeConn{}
	bystander := &fakeConn{}

	hub.Login(1, watcher)
	hub.Login(2, bystander)
	hub.RegisterVehicle(42, driver)
	if !hub.Watch(1, 42) {
		t.Fatal("watch by logged-in user should succeed")
	}

	hub.RecordLocation(42, 27.7, 85.3)

	if watcher.count() != 1 {
		t.Errorf("watcher got %d events, want 1", watcher.count())
	}
	if bystander.count() != 0 {
		t.Errorf("bystander got %d events, want 0", bystander.count())
	}

	ev := watcher.events[0]
	if ev.Type != "vehicle_location" {
		t.Errorf("event type %q, want vehicle_location", ev.Type)
	}
	st := ev.Payload.(VehicleStatus)
	if st.VehicleID != 42 || st.Lat != 27.7 || st.Lng != 85.3 || !st.Active {
		t.Errorf("unexpected status payload %+v", st)
	}
}

func TestUnknownVehicleLocationIgnored(t *testing.T) {
	hub := newTestHub()
	watcher := &fakeConn{}
	hub.Login(1, watcher)
	hub.Watch(1, 42)

	// Vehicle 42 never registered; update must be dropped silently.
	hub.RecordLocation(42, 1, 2)

	if watcher.count() != 0 {
		t.Errorf("watcher got %d events for unregistered vehicle, want 0", watcher.count())
	}
	if n := len(hub.ActiveVehicles()); n != 0 {
		t.Errorf("%d active vehicles, want 0", n)
	}
}

func TestWatchRequiresSession(t *testing.T) {
	hub := newTestHub()
	if hub.Watch(9, 42) {
		t.Error("watch without a session should fail")
	}
	// Unwatch for unknown user must not panic.
	hub.Unwatch(9, 42)
}

func TestActiveVehicles(t *testing.T) {
	hub := newTestHub()
	hub.RegisterVehicle(1, &fakeConn{})
	hub.RegisterVehicle(2, &fakeConn{})
	hub.RecordLocation(1, 27.7, 85.3)
	hub.UnregisterVehicle(2)

	active := hub.ActiveVehicles()
	if len(active) != 1 {
		t.Fatalf("%d active vehicles, want 1", len(active))
	}
	if active[0].VehicleID != 1 {
		t.Errorf("active vehicle %d, want 1", active[0].VehicleID)
	}

	// Unregistering a vehicle the hub never saw is a no-op.
	hub.UnregisterVehicle(77)
}
