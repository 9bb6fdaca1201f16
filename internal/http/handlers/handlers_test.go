// README: Handler tests against a fake platform: auth, status mapping and response shapes.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/app"
	"fleetops/internal/config"
	httptransport "fleetops/internal/http"
	"fleetops/internal/infra"
	"fleetops/internal/platform"
)

const platformToken = "platform-token"

// stubTokenVerifier is a test double for infra.TokenVerifier.
type stubTokenVerifier struct{}

func (stubTokenVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	switch raw {
	case "operator":
		return &infra.FirebaseToken{UID: "ops1", Claims: map[string]interface{}{"role": "operator"}}, nil
	case "viewer":
		return &infra.FirebaseToken{UID: "view1", Claims: map[string]interface{}{}}, nil
	}
	return nil, infra.ErrTokenRejected
}

// fakePlatform answers the handful of upstream endpoints the handlers reach.
type fakePlatform struct {
	mu    sync.Mutex
	posts []string
}

func (f *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+platformToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.Method == http.MethodPost {
		f.mu.Lock()
		f.posts = append(f.posts, r.URL.Path)
		f.mu.Unlock()
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/fleet/account":
		_, _ = w.Write([]byte(`{"user":{"first_name":"Fleet","last_name":"Ops"}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/fleet/rides":
		_, _ = w.Write([]byte(`{"rides":{"data":[
			{"id":5,"status":"finished","driver_id":3,"pickup_at":"2026-03-01 09:00:00","vendor_amount":"42.50"}
		],"last_page":1}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/fleet/rides/5":
		_, _ = w.Write([]byte(`{"ride":{"id":5,"status":"finished","driver_id":"3","driver_first_name":"Al",
			"vendor_amount":42.5,"events":[{"body":"reserved for $50.00"}],"notes":[]}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/fleet/routes":
		_, _ = w.Write([]byte(`{"routes":[{"id":1,"driver_id":3,"driver_full_name":"Al","status":"done"}]}`))
	case r.Method == http.MethodPost && r.URL.Path == "/rides/8/assign":
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && r.URL.Path == "/rides/7":
		w.WriteHeader(http.StatusUnprocessableEntity)
	case r.Method == http.MethodPost && r.URL.Path == "/rides/9":
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func buildTestRouter(t *testing.T) (*gin.Engine, *fakePlatform) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fp := &fakePlatform{}
	upstream := httptest.NewServer(fp)
	t.Cleanup(upstream.Close)

	cfg := config.PlatformConfig{BaseURL: upstream.URL, Token: platformToken, Timeout: 2 * time.Second, Workers: 2}
	session := app.NewSession(platform.NewClient(cfg, nil), app.Deps{Platform: cfg, Location: time.UTC})
	return httptransport.NewRouter(session, stubTokenVerifier{}, nil), fp
}

func doRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return doRequestAs(r, "operator", method, path, body)
}

func doRequestAs(r http.Handler, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMutationsNeedOperatorRole(t *testing.T) {
	r, fp := buildTestRouter(t)
	mutations := []struct {
		method, path string
		body         any
	}{
		{http.MethodPut, "/api/session/token", map[string]string{"token": platformToken}},
		{http.MethodPost, "/api/rides/8/assign", map[string]any{"driver_id": 3}},
		{http.MethodPost, "/api/rides/9/cancel", nil},
		{http.MethodPost, "/api/dispatch/batch", map[string]any{"requests": []any{map[string]any{"kind": "cancel", "ride_id": 9}}}},
		{http.MethodPost, "/api/dispatch/window", map[string]any{"action": "cancel", "driver_id": 3, "date": "2026-03-01", "range": "08:00-10:00"}},
	}
	for _, m := range mutations {
		if w := doRequestAs(r, "viewer", m.method, m.path, m.body); w.Code != http.StatusForbidden {
			t.Errorf("viewer %s %s = %d, want 403", m.method, m.path, w.Code)
		}
	}
	if len(fp.posts) != 0 {
		t.Fatalf("viewer reached the platform: %v", fp.posts)
	}
	if w := doRequestAs(r, "viewer", http.MethodGet, "/api/rides?date=2026-03-01", nil); w.Code != http.StatusOK {
		t.Fatalf("viewer read = %d", w.Code)
	}
}

func TestArchivedReportWithoutArchive(t *testing.T) {
	r, _ := buildTestRouter(t)
	if w := doRequest(r, http.MethodGet, "/api/billing/reports/1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("archived report without store = %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/billing/reports/abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", w.Code)
	}
}

func TestHealthIsPublicAndAPIIsNot(t *testing.T) {
	r, _ := buildTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/health = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("/api/session without token = %d", w.Code)
	}
}

func TestSession(t *testing.T) {
	r, _ := buildTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/session", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"Fleet Ops"`) {
		t.Fatalf("GET session = %d %s", w.Code, w.Body.String())
	}

	// a platform 401 surfaces as 403 with the kind attached
	w = doRequest(r, http.MethodPut, "/api/session/token", map[string]string{"token": "stale"})
	if w.Code != http.StatusForbidden || !strings.Contains(w.Body.String(), `"kind":"unauthorized"`) {
		t.Fatalf("rotate with stale token = %d %s", w.Code, w.Body.String())
	}
	w = doRequest(r, http.MethodPut, "/api/session/token", map[string]string{"token": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("rotate with empty token = %d", w.Code)
	}
	w = doRequest(r, http.MethodPut, "/api/session/token", map[string]string{"token": platformToken})
	if w.Code != http.StatusOK {
		t.Fatalf("rotate with valid token = %d %s", w.Code, w.Body.String())
	}
}

func TestRidesValidation(t *testing.T) {
	r, _ := buildTestRouter(t)
	tests := []struct {
		path string
		want int
	}{
		{"/api/rides", http.StatusBadRequest},
		{"/api/rides?date=03-01-2026", http.StatusBadRequest},
		{"/api/rides?date=2026-03-01&statuses=lost", http.StatusBadRequest},
		{"/api/rides/abc", http.StatusBadRequest},
		{"/api/rides/404", http.StatusNotFound},
		{"/api/rides?date=2026-03-01&statuses=finished", http.StatusOK},
	}
	for _, tc := range tests {
		if w := doRequest(r, http.MethodGet, tc.path, nil); w.Code != tc.want {
			t.Errorf("GET %s = %d, want %d (%s)", tc.path, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestRideDetailIsPriced(t *testing.T) {
	r, _ := buildTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/rides/5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET ride = %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Ride map[string]any `json:"ride"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ride["original_price"] != 50.0 || resp.Ride["toll_fee"] != -7.5 || resp.Ride["has_notes_price"] != true {
		t.Fatalf("ride = %v", resp.Ride)
	}
}

func TestEnrichedRides(t *testing.T) {
	r, _ := buildTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/rides?date=2026-03-01&enrich=true", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"order_price":50.00`) {
		t.Fatalf("enriched rides = %d %s", w.Code, w.Body.String())
	}
}

func TestRideActions(t *testing.T) {
	r, fp := buildTestRouter(t)

	if w := doRequest(r, http.MethodPost, "/api/rides/8/assign", map[string]any{"driver_id": 3}); w.Code != http.StatusOK {
		t.Fatalf("assign = %d %s", w.Code, w.Body.String())
	}
	w := doRequest(r, http.MethodPost, "/api/rides/7/cancel", nil)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "current status") {
		t.Fatalf("cancel in wrong state = %d %s", w.Code, w.Body.String())
	}
	if w := doRequest(r, http.MethodPost, "/api/rides/8/assign", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("assign without driver = %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/rides/9/reassign", map[string]any{"new_driver_id": "12"}); w.Code != http.StatusOK {
		t.Fatalf("reassign = %d %s", w.Code, w.Body.String())
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()
	want := []string{"/rides/8/assign", "/rides/7", "/rides/9"}
	if strings.Join(fp.posts, " ") != strings.Join(want, " ") {
		t.Fatalf("upstream posts = %v, want %v", fp.posts, want)
	}
}

func TestBatchReportsEveryOutcome(t *testing.T) {
	r, _ := buildTestRouter(t)
	w := doRequest(r, http.MethodPost, "/api/dispatch/batch", map[string]any{"requests": []map[string]any{
		{"kind": "assign", "ride_id": 8, "driver_id": 3},
		{"kind": "cancel", "ride_id": 7},
		{"kind": "cancel", "ride_id": 9},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("batch = %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Summary struct {
			Total, Succeeded, Failed int
		} `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Summary.Total != 3 || resp.Summary.Succeeded != 2 || resp.Summary.Failed != 1 {
		t.Fatalf("summary = %+v", resp.Summary)
	}

	if w := doRequest(r, http.MethodPost, "/api/dispatch/batch", map[string]any{"requests": []any{}}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty batch = %d", w.Code)
	}
}

func TestWindowValidation(t *testing.T) {
	r, _ := buildTestRouter(t)
	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad range", map[string]any{"action": "cancel", "driver_id": 3, "date": "2026-03-01", "range": "9-5"}, http.StatusBadRequest},
		{"bad action", map[string]any{"action": "assign", "driver_id": 3, "date": "2026-03-01", "range": "08:00-10:00"}, http.StatusBadRequest},
		{"reassign without target", map[string]any{"action": "reassign", "driver_id": 3, "date": "2026-03-01", "range": "08:00-10:00"}, http.StatusBadRequest},
		{"missing date", map[string]any{"action": "cancel", "driver_id": 3, "range": "08:00-10:00"}, http.StatusBadRequest},
		{"missing driver", map[string]any{"action": "cancel", "date": "2026-03-01", "range": "08:00-10:00"}, http.StatusBadRequest},
		{"cancel window", map[string]any{"action": "cancel", "driver_id": 3, "date": "2026-03-01", "range": "08:00-10:00"}, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w := doRequest(r, http.MethodPost, "/api/dispatch/window", tc.body); w.Code != tc.want {
				t.Fatalf("got %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestHighPriceValidation(t *testing.T) {
	r, _ := buildTestRouter(t)
	for name, body := range map[string]map[string]any{
		"missing range": {"date": "2026-03-01", "min_price": 50, "driver_id": 4},
		"zero price":    {"date": "2026-03-01", "range": "08:00-10:00", "driver_id": 4},
		"no driver":     {"date": "2026-03-01", "range": "08:00-10:00", "min_price": 50},
	} {
		if w := doRequest(r, http.MethodPost, "/api/dispatch/high-price", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d (%s)", name, w.Code, w.Body.String())
		}
	}
}

func TestSchedules(t *testing.T) {
	r, _ := buildTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/schedules?date=2026-03-01", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total_routes":1`) {
		t.Fatalf("schedules = %d %s", w.Code, w.Body.String())
	}
}

func TestBillingFormats(t *testing.T) {
	r, _ := buildTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/billing?from=2026-03-01&to=2026-03-01", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total_amount":42.50`) {
		t.Fatalf("billing json = %d %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/billing?from=2026-03-01&to=2026-03-01&format=csv", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("billing csv = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	// header, one ride, driver summary, total
	if len(records) != 4 || records[3][0] != "TOTAL" {
		t.Fatalf("csv records = %v", records)
	}

	for _, path := range []string{
		"/api/billing?from=2026-03-01",
		"/api/billing?from=2026-03-02&to=2026-03-01",
		"/api/billing?from=2026-03-01&to=2026-03-01&format=xml",
	} {
		if w := doRequest(r, http.MethodGet, path, nil); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d", path, w.Code)
		}
	}

	w = doRequest(r, http.MethodGet, "/api/billing/reports", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"reports":[]`) {
		t.Fatalf("history without archive = %d %s", w.Code, w.Body.String())
	}
}
