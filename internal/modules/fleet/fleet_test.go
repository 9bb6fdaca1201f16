// README: Fleet collector/service tests using an in-memory gateway fake.
package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetops/internal/config"
	"fleetops/internal/types"
)

// fakeGateway answers GETs from a handler keyed on the request.
type fakeGateway struct {
	mu    sync.Mutex
	calls []string
	fn    func(path string, params url.Values) (string, error)
}

func (f *fakeGateway) Get(ctx context.Context, path string, params url.Values, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, path+"?"+params.Encode())
	f.mu.Unlock()
	body, err := f.fn(path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func ridesPage(start, n int, extra string) string {
	recs := make([]string, n)
	for i := range recs {
		recs[i] = fmt.Sprintf(`{"id":%d}`, start+i)
	}
	return fmt.Sprintf(`{"rides":{"data":[%s]%s}}`, strings.Join(recs, ","), extra)
}

func TestFetchAllStopsAfterShortPage(t *testing.T) {
	sizes := []int{100, 100, 37}
	gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
		n, _ := strconv.Atoi(params.Get("page"))
		if n < 1 || n > len(sizes) {
			return "", fmt.Errorf("unexpected page %d", n)
		}
		return ridesPage((n-1)*100+1, sizes[n-1], ""), nil
	}}
	c := NewCollector(gw, 0, nil)

	recs, err := c.FetchAll(context.Background(), ResourceRides, Filter{PerPage: 100})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(recs) != 237 {
		t.Fatalf("expected 237 records, got %d", len(recs))
	}
	if gw.callCount() != 3 {
		t.Fatalf("expected 3 page calls, got %d", gw.callCount())
	}
}

func TestFetchAllTermination(t *testing.T) {
	cases := []struct {
		name      string
		page1     string
		wantCalls int
		wantRecs  int
	}{
		{"empty page", `{"rides":{"data":[]}}`, 1, 0},
		{"next_page_url null", ridesPage(1, 2, `,"next_page_url":null`), 1, 2},
		{"next_page_url empty", ridesPage(1, 2, `,"next_page_url":""`), 1, 2},
		{"next_page_url false", ridesPage(1, 2, `,"next_page_url":false`), 1, 2},
		{"next_page_url numeric", ridesPage(1, 2, `,"next_page_url":2`), 2, 2},
		{"next_page_url object", ridesPage(1, 2, `,"next_page_url":{"page":2}`), 2, 2},
		{"last page reached", ridesPage(1, 2, `,"last_page":1,"next_page_url":"x"`), 1, 2},
		{"short page", ridesPage(1, 1, `,"last_page":9,"next_page_url":"x"`), 1, 1},
		{"bare list under data", `{"data":[{"id":1}]}`, 1, 1},
		{"data envelope", `{"data":{"data":[{"id":1},{"id":2}],"last_page":1}}`, 1, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
				if params.Get("page") != "1" {
					return `{"rides":{"data":[]}}`, nil
				}
				return tc.page1, nil
			}}
			recs, err := NewCollector(gw, 0, nil).FetchAll(context.Background(), ResourceRides, Filter{PerPage: 2})
			if err != nil {
				t.Fatalf("FetchAll: %v", err)
			}
			if len(recs) != tc.wantRecs || gw.callCount() != tc.wantCalls {
				t.Fatalf("got %d records in %d calls, want %d in %d", len(recs), gw.callCount(), tc.wantRecs, tc.wantCalls)
			}
		})
	}
}

func TestFetchAllPageFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
		if params.Get("page") == "2" {
			return "", boom
		}
		return ridesPage(1, 2, ""), nil
	}}
	recs, err := NewCollector(gw, 0, nil).FetchAll(context.Background(), ResourceRides, Filter{PerPage: 2})
	if !errors.Is(err, boom) {
		t.Fatalf("expected page error, got %v", err)
	}
	if recs != nil {
		t.Fatalf("expected no partial result, got %d records", len(recs))
	}
}

func TestFetchAllProgressAndParams(t *testing.T) {
	gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
		if path != "/fleet/rides" || params.Get("statuses") != "finished" || params.Get("per_page") != "2" {
			return "", fmt.Errorf("bad request %s %v", path, params)
		}
		if params.Get("page") == "1" {
			return ridesPage(1, 2, `,"total":3`), nil
		}
		return ridesPage(3, 1, `,"total":3`), nil
	}}
	var seen [][2]int
	_, err := NewCollector(gw, time.Millisecond, nil).FetchAll(context.Background(), ResourceRides, Filter{
		PerPage:  2,
		Params:   url.Values{"statuses": {"finished"}},
		Progress: func(fetched, total int) { seen = append(seen, [2]int{fetched, total}) },
	})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(seen) != 2 || seen[0] != [2]int{2, 3} || seen[1] != [2]int{3, 3} {
		t.Fatalf("progress = %v", seen)
	}
}

func TestRidesFilterParams(t *testing.T) {
	gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
		return `{"rides":{"data":[{"id":5,"status":"finished","driver_id":"7","vendor_amount":"12.5"}]}}`, nil
	}}
	svc := NewService(gw, config.PlatformConfig{RidesPerPage: 500}, nil, nil)
	rides, err := svc.Rides(context.Background(), "2026-03-01", nil, StatusFinished, StatusNoShow)
	if err != nil {
		t.Fatalf("Rides: %v", err)
	}
	q, _ := url.ParseQuery(strings.SplitN(gw.calls[0], "?", 2)[1])
	if q.Get("from_datetime") != "2026-03-01T00:00" || q.Get("to_datetime") != "2026-03-01T23:59" {
		t.Errorf("datetime bracket = %v", q)
	}
	if q.Get("statuses") != "finished,no_show" || q.Get("sort_by") != "rides.pickup_at" || q.Get("all_rides") != "true" {
		t.Errorf("filter params = %v", q)
	}
	if len(rides) != 1 || !rides[0].AssignedTo(7) || rides[0].VendorAmount != types.Money(1250) {
		t.Fatalf("ride decoded as %+v", rides)
	}
}

func TestRidesRejectsBadDate(t *testing.T) {
	svc := NewService(&fakeGateway{}, config.PlatformConfig{}, nil, nil)
	if _, err := svc.Rides(context.Background(), "03/01/2026", nil); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDays(t *testing.T) {
	days, err := Days("2026-02-27", "2026-03-02")
	if err != nil {
		t.Fatalf("Days: %v", err)
	}
	want := []string{"2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"}
	if strings.Join(days, ",") != strings.Join(want, ",") {
		t.Fatalf("days = %v", days)
	}
	if _, err := Days("2026-03-02", "2026-03-01"); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestEnrichRidesMergesAndKeepsOrder(t *testing.T) {
	var inflight, peak int32
	gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
		cur := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		id := strings.TrimPrefix(path, "/fleet/rides/")
		return fmt.Sprintf(`{"ride":{"id":%s,"events":[{"body":"e%s"}],"pickup_at":""}}`, id, id), nil
	}}
	svc := NewService(gw, config.PlatformConfig{Workers: 3}, nil, nil)

	in := make([]Ride, 20)
	for i := range in {
		in[i] = Ride{ID: types.ID(i + 1), PickupAt: "2026-03-01 10:00:00"}
	}
	var mu sync.Mutex
	progressCalls := 0
	out, err := svc.EnrichRides(context.Background(), in, func(done, total int) {
		mu.Lock()
		progressCalls++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("EnrichRides: %v", err)
	}
	for i, r := range out {
		if r.ID != in[i].ID {
			t.Fatalf("slot %d holds ride %d", i, r.ID)
		}
		if len(r.Events) != 1 || r.Events[0].Body != fmt.Sprintf("e%d", r.ID) {
			t.Fatalf("ride %d events not merged: %+v", r.ID, r.Events)
		}
		if r.PickupAt != "2026-03-01 10:00:00" {
			t.Fatalf("ride %d lost list pickup", r.ID)
		}
	}
	if peak > 3 {
		t.Fatalf("pool exceeded worker limit: %d", peak)
	}
	if progressCalls != 20 {
		t.Fatalf("progress calls = %d", progressCalls)
	}
}

func TestEnrichRidesFailsFast(t *testing.T) {
	boom := errors.New("detail down")
	gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
		if path == "/fleet/rides/4" {
			return "", boom
		}
		return `{"ride":{}}`, nil
	}}
	svc := NewService(gw, config.PlatformConfig{Workers: 2}, nil, nil)
	in := []Ride{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}
	out, err := svc.EnrichRides(context.Background(), in, nil)
	if !errors.Is(err, boom) || out != nil {
		t.Fatalf("expected detail error and no result, got %v / %v", err, out)
	}
}

type memCache struct {
	mu    sync.Mutex
	rides map[types.ID]Ride
}

func (m *memCache) GetRide(ctx context.Context, id types.ID) (Ride, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	return r, ok, nil
}

func (m *memCache) PutRide(ctx context.Context, r Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[r.ID] = r
	return nil
}

func TestRideDetailCachesTerminalRides(t *testing.T) {
	gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
		switch path {
		case "/fleet/rides/1":
			return `{"ride":{"id":1,"status":"finished"}}`, nil
		default:
			return `{"ride":{"id":2,"status":"assigned"}}`, nil
		}
	}}
	cache := &memCache{rides: map[types.ID]Ride{}}
	svc := NewService(gw, config.PlatformConfig{}, cache, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.RideDetail(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.RideDetail(ctx, 2); err != nil {
			t.Fatal(err)
		}
	}
	if gw.callCount() != 3 {
		t.Fatalf("expected finished ride fetched once, got %d calls: %v", gw.callCount(), gw.calls)
	}
	if _, ok := cache.rides[2]; ok {
		t.Fatal("non-terminal ride was cached")
	}
}

func TestDriverDetailMergesCar(t *testing.T) {
	gw := &fakeGateway{fn: func(path string, params url.Values) (string, error) {
		switch path {
		case "/fleet/drivers/9":
			return `{"driver":{"id":9,"first_name":"Lee","last_name":"Park"},"cars":[{"id":31,"make":"Toyota"}]}`, nil
		case "/fleet/cars/31":
			return `{"car":{"id":31,"make":"Toyota","model":"Sienna","plate_number":"T123"}}`, nil
		}
		return "", fmt.Errorf("unexpected %s", path)
	}}
	svc := NewService(gw, config.PlatformConfig{}, nil, nil)
	d, err := svc.DriverDetail(context.Background(), 9)
	if err != nil {
		t.Fatalf("DriverDetail: %v", err)
	}
	if d.FullName() != "Lee Park" || d.Vehicle == nil || d.Vehicle.Model != "Sienna" {
		t.Fatalf("driver = %+v vehicle = %+v", d, d.Vehicle)
	}
}

func TestMergeDetailKeepsListValues(t *testing.T) {
	driver := types.ID(3)
	list := Ride{ID: 1, Status: StatusAssigned, DriverID: &driver, VendorAmount: 1000, StartAddress: "A"}
	detail := Ride{Status: StatusFinished, Notes: []Note{{Label: "x"}}}
	got := MergeDetail(list, detail)
	if got.Status != StatusFinished || !got.AssignedTo(3) || got.VendorAmount != 1000 || got.From() != "A" || len(got.Notes) != 1 {
		t.Fatalf("merged = %+v", got)
	}
}

func TestParseStatuses(t *testing.T) {
	got, err := ParseStatuses(" Finished, no_show,,driver_canceled ")
	if err != nil || JoinStatuses(got) != "finished,no_show,driver_canceled" {
		t.Fatalf("ParseStatuses = %v, %v", got, err)
	}
	if got, err := ParseStatuses(""); err != nil || len(got) != 0 {
		t.Fatalf("blank = %v, %v", got, err)
	}
	if _, err := ParseStatuses("finished,lost"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

// TestStoreRoundTrip runs against a real Redis when FLEETOPS_TEST_REDIS is set.
func TestStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("FLEETOPS_TEST_REDIS")
	if addr == "" {
		t.Skip("FLEETOPS_TEST_REDIS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	s := NewStore(rdb)

	id := types.ID(time.Now().UnixNano() % 1_000_000_000)
	defer rdb.Del(ctx, rideDetailKey(id))

	if _, ok, err := s.GetRide(ctx, id); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := s.PutRide(ctx, Ride{ID: id, Status: StatusFinished, VendorAmount: 4250}); err != nil {
		t.Fatalf("PutRide: %v", err)
	}
	r, ok, err := s.GetRide(ctx, id)
	if err != nil || !ok || r.VendorAmount != 4250 {
		t.Fatalf("GetRide = %+v ok=%v err=%v", r, ok, err)
	}
}
