package app

import (
	"cmp"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/julienschmidt/httprouter"
	"vehicletracker.org/internal/gtfs"
	"vehicletracker.org/internal/metrics"
	"vehicletracker.org/internal/models"
)

// Result labels of metrics.TripDetailRequests.
const (
	tripResultOK       = "ok"
	tripResultNotFound = "not_found"
	tripResultError    = "error"
)

// HealthStatus is the body of /v1/healthcheck.
//
// Ready is false until the first successful refresh; the handler then
// answers 503 so load balancers hold traffic back.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	FeedOK      bool   `json:"feed_ok"`
	FetchedAt   int64  `json:"fetched_at"`
	Vehicles    int    `json:"vehicles"`
	Ready       bool   `json:"ready"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	state := app.Vehicles.Read()
	ready := state.FetchedAt != 0

	status := HealthStatus{
		Status:      "available",
		Environment: app.Config.Env,
		Version:     app.Version,
		FeedOK:      state.OK,
		FetchedAt:   state.FetchedAt,
		Vehicles:    len(state.Vehicles),
		Ready:       ready,
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	app.writeJSON(w, code, status)
}

// sortedState reads the cache and orders vehicles by license plate, then id.
func (app *Application) sortedState() models.CacheState {
	state := app.Vehicles.Read()
	slices.SortFunc(state.Vehicles, func(a, b models.VehicleSnapshot) int {
		return cmp.Or(
			strings.Compare(a.LicensePlate, b.LicensePlate),
			strings.Compare(a.VehicleID, b.VehicleID),
		)
	})
	return state
}

func (app *Application) vehiclesHandler(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, app.sortedState())
}

func (app *Application) tripHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	detail, err := app.Trips.TripDetail(r.Context(), id)
	switch {
	case err == nil:
		metrics.TripDetailRequests.WithLabelValues(tripResultOK).Inc()
		app.writeJSON(w, http.StatusOK, detail)
	case errors.Is(err, gtfs.ErrNotFound):
		metrics.TripDetailRequests.WithLabelValues(tripResultNotFound).Inc()
		app.writeError(w, http.StatusNotFound, "not found")
	default:
		metrics.TripDetailRequests.WithLabelValues(tripResultError).Inc()
		app.Logger.Warn("Trip detail query failed", "id", id, "error", err)
		app.writeError(w, http.StatusBadGateway, "trip updates feed unavailable")
	}
}

// iconHandler serves a file from the icon directory. A name that is not found
// is retried with "é" replaced by "e". Names escaping the directory are 404.
func (app *Application) iconHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(httprouter.ParamsFromContext(r.Context()).ByName("filepath"), "/")
	if name == "" || !filepath.IsLocal(name) {
		http.NotFound(w, r)
		return
	}

	for _, candidate := range []string{name, strings.ReplaceAll(name, "é", "e")} {
		f, err := os.Open(filepath.Join(app.Config.IconDir, candidate))
		if err != nil {
			continue
		}
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			f.Close()
			continue
		}
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		f.Close()
		return
	}
	http.NotFound(w, r)
}

func (app *Application) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.Logger.Error("Failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (app *Application) writeError(w http.ResponseWriter, status int, message string) {
	app.writeJSON(w, status, map[string]string{"error": message})
}
