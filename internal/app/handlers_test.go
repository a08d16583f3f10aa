package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"vehicletracker.org/internal/gtfs"
	"vehicletracker.org/internal/metrics"
	"vehicletracker.org/internal/models"
)

func testVehicles() *stubVehicles {
	return &stubVehicles{state: models.CacheState{
		Vehicles: []models.VehicleSnapshot{
			{VehicleID: "V2", LicensePlate: "NLE-614", VehicleModel: "Citaro", RouteID: "R1", TripID: "T2", Latitude: 47.5, Longitude: 19.05},
			{VehicleID: "V3", LicensePlate: models.NotAvailable, VehicleModel: models.NotAvailable, RouteID: "R2", Latitude: 47.4, Longitude: 19.1},
			{VehicleID: "V1", LicensePlate: "NLE-614", VehicleModel: "Citaro", RouteID: "R1", TripID: "T1", Latitude: 47.49, Longitude: 19.04},
			{VehicleID: "V0", LicensePlate: "ABC-123", VehicleModel: "Ikarus", RouteID: "R3", Latitude: 47.3, Longitude: 19.0},
		},
		FetchedAt: 1700000000,
		OK:        true,
	}}
}

func serve(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthcheckHandler(t *testing.T) {
	t.Run("not ready before the first refresh", func(t *testing.T) {
		app := newTestApplication(t, &stubVehicles{state: models.CacheState{Vehicles: []models.VehicleSnapshot{}}}, &stubTrips{})
		rr := serve(t, app.Routes(context.Background()), "/v1/healthcheck")

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
		}
		var resp HealthStatus
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Ready {
			t.Errorf("expected ready false")
		}
	})

	t.Run("ready with stale data", func(t *testing.T) {
		vehicles := testVehicles()
		vehicles.state.OK = false
		vehicles.state.LastError = "network error"
		app := newTestApplication(t, vehicles, &stubTrips{})

		rr := serve(t, app.Routes(context.Background()), "/v1/healthcheck")
		if rr.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
		}

		var resp HealthStatus
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "available" {
			t.Errorf("expected status 'available', got %q", resp.Status)
		}
		if resp.Environment != "testing" {
			t.Errorf("expected environment 'testing', got %q", resp.Environment)
		}
		if resp.Version != "test-version" {
			t.Errorf("expected version 'test-version', got %q", resp.Version)
		}
		if resp.FeedOK {
			t.Errorf("expected feed_ok false")
		}
		if resp.Vehicles != 4 || resp.FetchedAt != 1700000000 || !resp.Ready {
			t.Errorf("unexpected health status %+v", resp)
		}
	})
}

func TestVehiclesHandler(t *testing.T) {
	vehicles := testVehicles()
	app := newTestApplication(t, vehicles, &stubTrips{})

	rr := serve(t, app.Routes(context.Background()), "/api/vehicles")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var state models.CacheState
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	var order []string
	for _, v := range state.Vehicles {
		order = append(order, v.VehicleID)
	}
	if got, want := strings.Join(order, ","), "V0,V3,V1,V2"; got != want {
		t.Errorf("expected vehicles ordered %s, got %s", want, got)
	}
	if state.FetchedAt != 1700000000 || !state.OK {
		t.Errorf("unexpected state metadata %+v", state)
	}
	if vehicles.state.Vehicles[0].VehicleID != "V2" {
		t.Errorf("sorting must not modify the cached snapshot")
	}
}

func TestTripHandler(t *testing.T) {
	detail := &models.TripDetail{
		TripID:      "T1",
		RouteID:     "R1",
		VehicleID:   "V1",
		Delay:       gtfs.ClassifyDelay(120),
		DelaySource: models.DelaySourceRealtime,
		Stops:       []models.StopDisplay{{StopID: "S1", StopName: "Deák Ferenc tér", StopSequence: 1, ScheduledTime: "8:00"}},
	}

	tests := []struct {
		name       string
		path       string
		trips      *stubTrips
		wantStatus int
		wantBody   string
		wantResult string
	}{
		{"found", "/trip/T1", &stubTrips{detail: detail}, http.StatusOK, `"trip_id":"T1"`, tripResultOK},
		{"api route", "/api/trips/V1", &stubTrips{detail: detail}, http.StatusOK, `"delay_source":"realtime"`, tripResultOK},
		{"not found", "/trip/T404", &stubTrips{err: fmt.Errorf("%w: no trip", gtfs.ErrNotFound)}, http.StatusNotFound, `{"error":"not found"}`, tripResultNotFound},
		{"network error", "/trip/T1", &stubTrips{err: fmt.Errorf("%w: timeout", gtfs.ErrNetwork)}, http.StatusBadGateway, `"error"`, tripResultError},
		{"decode error", "/trip/T1", &stubTrips{err: fmt.Errorf("%w: garbage", gtfs.ErrDecode)}, http.StatusBadGateway, `"error"`, tripResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApplication(t, testVehicles(), tt.trips)
			counter := metrics.TripDetailRequests.WithLabelValues(tt.wantResult)
			before := testutil.ToFloat64(counter)

			rr := serve(t, app.Routes(context.Background()), tt.path)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %s, got %s", tt.wantBody, rr.Body.String())
			}
			if want := tt.path[strings.LastIndex(tt.path, "/")+1:]; tt.trips.gotID != want {
				t.Errorf("expected lookup of %q, got %q", want, tt.trips.gotID)
			}
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("expected %s counter to grow by 1, grew by %v", tt.wantResult, got)
			}
		})
	}
}

func TestIconHandler(t *testing.T) {
	app := newTestApplication(t, testVehicles(), &stubTrips{})
	mustWrite := func(name, content string) {
		if err := os.WriteFile(filepath.Join(app.Config.IconDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("bus.png", "bus")
	mustWrite("Ikarus 415e.png", "ikarus")
	if err := os.WriteFile(filepath.Join(filepath.Dir(app.Config.IconDir), "secret.png"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	serveIcon := func(name string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/icons/x", nil)
		ctx := context.WithValue(req.Context(), httprouter.ParamsKey, httprouter.Params{{Key: "filepath", Value: "/" + name}})
		rr := httptest.NewRecorder()
		app.iconHandler(rr, req.WithContext(ctx))
		return rr
	}

	tests := []struct {
		name       string
		file       string
		wantStatus int
		wantBody   string
	}{
		{"exact name", "bus.png", http.StatusOK, "bus"},
		{"accent fallback", "Ikarus 415é.png", http.StatusOK, "ikarus"},
		{"missing", "tram.png", http.StatusNotFound, ""},
		{"traversal", "../secret.png", http.StatusNotFound, ""},
		{"empty", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveIcon(tt.file)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantBody != "" && rr.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rr.Body.String())
			}
		})
	}

	t.Run("through the router", func(t *testing.T) {
		rr := serve(t, app.Routes(context.Background()), "/icons/bus.png")
		if rr.Code != http.StatusOK || rr.Body.String() != "bus" {
			t.Errorf("expected icon to be served, got %d %q", rr.Code, rr.Body.String())
		}
	})
}

func TestPages(t *testing.T) {
	app := newTestApplication(t, testVehicles(), &stubTrips{})
	handler := app.Routes(context.Background())

	tests := []struct {
		path     string
		contains []string
	}{
		{"/", []string{"Vehicle tracker", "test-version"}},
		{"/map", []string{`id="map"`, "/static/map.js"}},
		{"/vehicles", []string{"NLE-614", "ABC-123", `href="/vehicle/V1"`, "4 vehicles"}},
		{"/vehicle/V1", []string{"Vehicle V1", "NLE-614", `data-vehicle-id="V1"`}},
		{"/vehicle/V404", []string{"not in the latest snapshot"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serve(t, handler, tt.path)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("expected HTML, got %q", ct)
			}
			body := rr.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("expected page to contain %q", want)
				}
			}
		})
	}

	t.Run("static assets", func(t *testing.T) {
		rr := serve(t, handler, "/static/map.js")
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "/ws/vehicles") {
			t.Errorf("expected map script, got %d", rr.Code)
		}
	})

	t.Run("security headers", func(t *testing.T) {
		rr := serve(t, handler, "/")
		if rr.Header().Get("Content-Security-Policy") == "" {
			t.Errorf("expected Content-Security-Policy header")
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApplication(t, testVehicles(), &stubTrips{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rr := serve(t, app.Routes(ctx), "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Errorf("expected a Prometheus exposition")
	}
}

func TestVehicleStream(t *testing.T) {
	app := newTestApplication(t, testVehicles(), &stubTrips{})
	server := httptest.NewServer(app.Routes(context.Background()))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/vehicles"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var state models.CacheState
	if err := conn.ReadJSON(&state); err != nil {
		t.Fatalf("reading initial state: %v", err)
	}
	if len(state.Vehicles) != 4 {
		t.Errorf("expected 4 vehicles in the initial state, got %d", len(state.Vehicles))
	}
}

func TestRoutesRecoverFromPanics(t *testing.T) {
	app := newTestApplication(t, testVehicles(), &stubTrips{})
	app.Trips = panickingTrips{}

	rr := serve(t, app.Routes(context.Background()), "/trip/T1")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
}

type panickingTrips struct{}

func (panickingTrips) TripDetail(ctx context.Context, id string) (*models.TripDetail, error) {
	panic(errors.New("trip service exploded"))
}
