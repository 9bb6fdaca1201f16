package schedule

import (
	"context"
	"errors"
	"testing"

	"fleetops/internal/modules/fleet"
	"fleetops/internal/types"
)

func route(id, driver int64, name, status, start, end string) fleet.Route {
	r := fleet.Route{ID: types.ID(id), DriverFullName: name, Status: status, Requested: start, EndTime: end}
	if driver != 0 {
		d := types.ID(driver)
		r.DriverID = &d
	}
	return r
}

func TestSummarize(t *testing.T) {
	routes := []fleet.Route{
		route(1, 5, "Eve Li", "done", "2026-03-01 09:00", "2026-03-01 11:00"),
		route(2, 3, "Al Ray", "done", "2026-03-01 07:30", "2026-03-01 08:15"),
		route(3, 5, "Eve Li", "active", "2026-03-01 06:45", "2026-03-01 12:30"),
		route(4, 0, "Walk In", "done", "2026-03-01 10:00", ""),
		route(5, 0, "", "done", "2026-03-01 10:00", "2026-03-01 11:00"),
		route(6, 2, "Bo Chen", "", "", ""),
	}
	got := Summarize(routes)
	if len(got) != 4 {
		t.Fatalf("expected 4 drivers, got %d: %+v", len(got), got)
	}

	eve := got[0]
	if eve.DriverID != 5 || eve.TotalRoutes != 2 {
		t.Fatalf("first = %+v", eve)
	}
	if eve.EarliestStart != "2026-03-01 06:45" || eve.LatestEnd != "2026-03-01 12:30" {
		t.Fatalf("eve span = %s", eve.WorkHours())
	}
	if eve.Statuses["done"] != 1 || eve.Statuses["active"] != 1 {
		t.Fatalf("eve statuses = %v", eve.Statuses)
	}

	// ties on count break by driver id; the name-only driver has id 0
	wantOrder := []types.ID{5, 0, 2, 3}
	for i, want := range wantOrder {
		if got[i].DriverID != want {
			t.Fatalf("slot %d = driver %d, want %d", i, got[i].DriverID, want)
		}
	}
	if got[1].DriverName != "Walk In" || got[1].WorkHours() != "2026-03-01 10:00 ~ N/A" {
		t.Fatalf("name-only driver = %+v", got[1])
	}
	if len(got[2].Statuses) != 0 {
		t.Fatalf("empty status counted: %v", got[2].Statuses)
	}
}

func TestSummarizeFallsBackToRouteTimeFields(t *testing.T) {
	d := types.ID(9)
	routes := []fleet.Route{
		{ID: 1, DriverID: &d, DriverName: "Zed", FromDatetime: "2026-03-01T08:00", ToDatetime: "2026-03-01T09:00"},
		{ID: 2, DriverID: &d, StartTime: "2026-03-01T07:00", ToDatetime: "2026-03-01T10:00"},
	}
	got := Summarize(routes)
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
	s := got[0]
	if s.DriverName != "Zed" || s.EarliestStart != "2026-03-01T07:00" || s.LatestEnd != "2026-03-01T10:00" {
		t.Fatalf("summary = %+v", s)
	}
	if len(s.RouteIDs) != 2 {
		t.Fatalf("route ids = %v", s.RouteIDs)
	}
}

type fakeRoutes struct {
	routes []fleet.Route
	err    error
	date   string
}

func (f *fakeRoutes) Routes(ctx context.Context, date string, progress fleet.Progress) ([]fleet.Route, error) {
	f.date = date
	return f.routes, f.err
}

func TestForDate(t *testing.T) {
	src := &fakeRoutes{routes: []fleet.Route{route(1, 4, "Al", "done", "", "")}}
	got, err := NewService(src, nil).ForDate(context.Background(), "2026-03-01")
	if err != nil || len(got) != 1 || src.date != "2026-03-01" {
		t.Fatalf("ForDate = %+v, %v", got, err)
	}

	boom := errors.New("down")
	if _, err := NewService(&fakeRoutes{err: boom}, nil).ForDate(context.Background(), "2026-03-01"); !errors.Is(err, boom) {
		t.Fatalf("expected collection error, got %v", err)
	}
}
