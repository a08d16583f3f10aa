package app

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"vehicletracker.org/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing page templates: %w", err)
	}
	return t, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static", http.FileServerFS(sub))
}

type pageData struct {
	Title     string
	Version   string
	State     models.CacheState
	VehicleID string
	Vehicle   *models.VehicleSnapshot
}

func (app *Application) indexPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, "index.html", pageData{Title: "Vehicle tracker"})
}

func (app *Application) mapPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, "map.html", pageData{Title: "Map"})
}

func (app *Application) vehiclesPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, "vehicles.html", pageData{Title: "Vehicles", State: app.sortedState()})
}

// vehiclePage shows the cached snapshot of one vehicle, if any. The trip
// detail is loaded by the page itself.
func (app *Application) vehiclePage(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	data := pageData{Title: "Vehicle " + id, VehicleID: id}

	state := app.Vehicles.Read()
	for i := range state.Vehicles {
		if state.Vehicles[i].VehicleID == id {
			data.Vehicle = &state.Vehicles[i]
			break
		}
	}
	app.render(w, "vehicle.html", data)
}

// render executes into a buffer so a template error never leaves a half
// written page.
func (app *Application) render(w http.ResponseWriter, name string, data pageData) {
	data.Version = app.Version

	var buf bytes.Buffer
	if err := app.templates.ExecuteTemplate(&buf, name, data); err != nil {
		app.Logger.Error("Failed to render page", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
