// Package handlers exposes the dashboard's HTTP API: draw-session
// commands, annotation and record CRUD, and region stats.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/infomapapp/parceldash/internal/annotations"
	"github.com/infomapapp/parceldash/internal/geo"
	"github.com/infomapapp/parceldash/internal/records"
	"github.com/infomapapp/parceldash/internal/regions"
	"github.com/infomapapp/parceldash/internal/sketch"
	"github.com/infomapapp/parceldash/pkg/core"
)

// API routes dashboard requests to the session and stores.
type API struct {
	session *sketch.Session
	store   *annotations.Store
	records *records.Store
	logger  *slog.Logger
}

// New creates the API over the given collaborators.
func New(session *sketch.Session, store *annotations.Store, recs *records.Store, logger *slog.Logger) *API {
	return &API{
		session: session,
		store:   store,
		records: recs,
		logger:  logger,
	}
}

// Register mounts all routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/draw/start", a.drawStart)
	mux.HandleFunc("POST /api/draw/submit", a.drawSubmit)
	mux.HandleFunc("POST /api/draw/cancel", a.drawCancel)

	mux.HandleFunc("GET /api/annotations", a.listAnnotations)
	mux.HandleFunc("DELETE /api/annotations", a.clearAnnotations)
	mux.HandleFunc("PUT /api/annotations/{uid}", a.updateAnnotation)

	mux.HandleFunc("GET /api/selection", a.getSelection)
	mux.HandleFunc("POST /api/selection", a.selectShape)
	mux.HandleFunc("DELETE /api/selection", a.clearSelection)
	mux.HandleFunc("DELETE /api/selection/annotations", a.deleteSelected)

	mux.HandleFunc("GET /api/records", a.listRecords)
	mux.HandleFunc("POST /api/records", a.addRecord)
	mux.HandleFunc("PUT /api/records/{id}", a.updateRecord)
	mux.HandleFunc("DELETE /api/records/{id}", a.deleteRecord)
	mux.HandleFunc("GET /api/records/{id}/projection", a.projectRecord)
	mux.HandleFunc("POST /api/records/refresh", a.refreshRecords)

	mux.HandleFunc("GET /api/regions", a.listRegions)
	mux.HandleFunc("GET /api/stats", a.stats)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type drawStartRequest struct {
	Kind core.ShapeKind `json:"kind"`
}

func (a *API) drawStart(w http.ResponseWriter, r *http.Request) {
	var req drawStartRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Kind != core.ShapePolygon && req.Kind != core.ShapePolyline {
		a.writeError(w, http.StatusBadRequest, "unknown shape kind")
		return
	}
	a.session.Begin(req.Kind)
	a.writeJSON(w, http.StatusAccepted, map[string]string{"state": a.session.State().String()})
}

type drawSubmitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) drawSubmit(w http.ResponseWriter, r *http.Request) {
	var req drawSubmitRequest
	if !a.decode(w, r, &req) {
		return
	}
	annotation, ok := a.session.Submit(req.Name, req.Description)
	if !ok {
		a.writeError(w, http.StatusUnprocessableEntity, "drawing not committed")
		return
	}
	a.writeJSON(w, http.StatusCreated, annotation)
}

func (a *API) drawCancel(w http.ResponseWriter, r *http.Request) {
	a.session.Cancel()
	a.writeJSON(w, http.StatusOK, map[string]string{"state": a.session.State().String()})
}

func (a *API) listAnnotations(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		a.writeJSON(w, http.StatusOK, a.store.SearchByName(q))
		return
	}
	a.writeJSON(w, http.StatusOK, a.store.All())
}

type updateAnnotationRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Geometry    core.Geometry `json:"geometry"`
}

// updateAnnotation edits a committed shape. Metadata and geometry can
// change independently; a geometry-only body leaves the name and
// description untouched.
func (a *API) updateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req updateAnnotationRequest
	if !a.decode(w, r, &req) {
		return
	}
	uid := r.PathValue("uid")
	if _, ok := a.store.Get(uid); !ok {
		a.writeError(w, http.StatusNotFound, "annotation not found")
		return
	}

	hasMetadata := req.Name != "" || req.Description != ""
	if !hasMetadata && req.Geometry.IsEmpty() {
		a.writeError(w, http.StatusUnprocessableEntity, "nothing to update")
		return
	}
	if hasMetadata && !a.session.UpdateMetadata(uid, req.Name, req.Description) {
		a.writeError(w, http.StatusUnprocessableEntity, "name and description are required")
		return
	}
	if !req.Geometry.IsEmpty() && !a.session.Reshape(uid, req.Geometry) {
		a.writeError(w, http.StatusUnprocessableEntity, "reshape failed")
		return
	}
	annotation, _ := a.store.Get(uid)
	a.writeJSON(w, http.StatusOK, annotation)
}

func (a *API) clearAnnotations(w http.ResponseWriter, r *http.Request) {
	a.session.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getSelection(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string][]string{"selected": a.session.Selected()})
}

type selectRequest struct {
	UID    string `json:"uid"`
	Extend bool   `json:"extend"`
}

func (a *API) selectShape(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !a.decode(w, r, &req) {
		return
	}
	if _, ok := a.store.Get(req.UID); !ok {
		a.writeError(w, http.StatusNotFound, "annotation not found")
		return
	}
	if req.Extend {
		a.session.ToggleSelect(req.UID)
	} else {
		a.session.SelectOnly(req.UID)
	}
	a.writeJSON(w, http.StatusOK, map[string][]string{"selected": a.session.Selected()})
}

func (a *API) clearSelection(w http.ResponseWriter, r *http.Request) {
	a.session.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteSelected(w http.ResponseWriter, r *http.Request) {
	a.session.DeleteSelected()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listRecords(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		region = regions.AllRegions
	}
	a.writeJSON(w, http.StatusOK, a.records.Filtered(region))
}

func (a *API) addRecord(w http.ResponseWriter, r *http.Request) {
	var rec core.LocationRecord
	if !a.decode(w, r, &rec) {
		return
	}
	if !a.validCoordinates(w, rec) {
		return
	}
	a.writeJSON(w, http.StatusCreated, a.records.Add(rec))
}

// validCoordinates rejects records whose coordinate string cannot be
// parsed. Empty coordinates are allowed; imported features without
// geometry carry none.
func (a *API) validCoordinates(w http.ResponseWriter, rec core.LocationRecord) bool {
	if rec.Coordinates == "" {
		return true
	}
	if _, err := geo.ParseCoordinates(rec.Coordinates); err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, "invalid coordinates")
		return false
	}
	return true
}

func (a *API) recordID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}

func (a *API) updateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := a.recordID(w, r)
	if !ok {
		return
	}
	var rec core.LocationRecord
	if !a.decode(w, r, &rec) {
		return
	}
	if !a.validCoordinates(w, rec) {
		return
	}
	updated, err := a.records.Update(id, rec)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			a.writeError(w, http.StatusNotFound, "record not found")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	a.writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := a.recordID(w, r)
	if !ok {
		return
	}
	a.records.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// projectRecord returns the record's position in web mercator, the
// projection map tiles are served in.
func (a *API) projectRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := a.recordID(w, r)
	if !ok {
		return
	}
	rec, ok := a.records.Get(id)
	if !ok {
		a.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if rec.Coordinates == "" {
		a.writeError(w, http.StatusUnprocessableEntity, "record has no coordinates")
		return
	}
	point, err := geo.ParseCoordinates(rec.Coordinates)
	if err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, "invalid coordinates")
		return
	}
	xy, _ := point.XY()
	projected := geo.WebMercatorFromLonLat(xy.X, xy.Y)
	pxy, _ := projected.XY()
	a.writeJSON(w, http.StatusOK, map[string]float64{"x": pxy.X, "y": pxy.Y})
}

func (a *API) refreshRecords(w http.ResponseWriter, r *http.Request) {
	if err := a.records.Refresh(r.Context()); err != nil {
		a.logger.Error("record refresh failed", "error", err)
		a.writeError(w, http.StatusBadGateway, "feature service unavailable")
		return
	}
	a.writeJSON(w, http.StatusOK, a.records.All())
}

func (a *API) listRegions(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string][]string{"regions": a.records.Regions()})
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		region = regions.AllRegions
	}
	a.writeJSON(w, http.StatusOK, a.records.RegionStats(region))
}
