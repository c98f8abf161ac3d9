package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infomapapp/parceldash/internal/annotations"
	"github.com/infomapapp/parceldash/internal/kvstore/memory"
	"github.com/infomapapp/parceldash/internal/notify"
	"github.com/infomapapp/parceldash/internal/records"
	"github.com/infomapapp/parceldash/internal/selection"
	"github.com/infomapapp/parceldash/internal/sketch"
	"github.com/infomapapp/parceldash/pkg/core"
)

type stubSurface struct{}

func (stubSurface) StartDraw(core.ShapeKind) error     { return nil }
func (stubSurface) Render(string, core.Geometry) error { return nil }
func (stubSurface) Remove(string) error                { return nil }

type stubFetcher struct {
	records []core.LocationRecord
}

func (f *stubFetcher) Query(ctx context.Context) ([]core.LocationRecord, error) {
	return f.records, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *sketch.Session, *annotations.Store) {
	t.Helper()

	kv := memory.New()
	store := annotations.New(kv, "user_drawings", slog.Default())
	require.NoError(t, store.Load())

	fetcher := &stubFetcher{records: []core.LocationRecord{
		{ID: 1, Location: "Marina", Region: "Dubai", Users: 100},
		{ID: 2, Location: "Corniche", Region: "Abu Dhabi", Users: 75},
		{ID: 3, Location: "Creek", Region: "Dubai", Users: 50},
	}}
	recs := records.New(kv, "populationData", fetcher, slog.Default())
	require.NoError(t, recs.Load(context.Background()))

	session := sketch.NewSession(store, selection.New(), stubSurface{}, notify.Nop{}, slog.Default())

	mux := http.NewServeMux()
	New(session, store, recs, slog.Default()).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, session, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestDrawLifecycleOverHTTP(t *testing.T) {
	srv, session, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/draw/start", map[string]string{"kind": "polygon"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, sketch.StateDrawing, session.State())

	// Submit before geometry arrives is rejected.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/draw/submit", map[string]string{"name": "Zone", "description": "d"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	session.GeometryComplete(core.Geometry(`{"rings":[[[0,0],[1,0],[1,1],[0,0]]]}`))

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/draw/submit", map[string]string{"name": "Zone", "description": "d"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[core.Annotation](t, resp)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "Zone", created.Name)
}

func TestDrawStartRejectsUnknownKind(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/draw/start", map[string]string{"kind": "circle"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDrawCancel(t *testing.T) {
	srv, session, _ := newTestServer(t)
	session.Begin(core.ShapePolygon)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/draw/cancel", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sketch.StateIdle, session.State())
}

var testRing = core.Geometry(`{"rings":[[[0,0],[1,0],[1,1],[0,0]]]}`)

func commitShape(t *testing.T, session *sketch.Session, name string) core.Annotation {
	t.Helper()
	session.Begin(core.ShapePolygon)
	session.GeometryComplete(testRing)
	a, ok := session.Submit(name, "desc")
	require.True(t, ok)
	return a
}

func TestAnnotationSearchAndUpdate(t *testing.T) {
	srv, session, store := newTestServer(t)
	a := commitShape(t, session, "North Parcel")
	commitShape(t, session, "South Parcel")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/annotations?q=north", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decodeBody[[]core.Annotation](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, a.UID, found[0].UID)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/annotations/"+a.UID,
		map[string]string{"name": "Renamed", "description": "new"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, ok := store.Get(a.UID)
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Name)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/annotations/missing",
		map[string]string{"name": "x", "description": "y"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/annotations/"+a.UID,
		map[string]string{"name": " ", "description": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAnnotationReshapeOverHTTP(t *testing.T) {
	srv, session, store := newTestServer(t)
	a := commitShape(t, session, "Reshaped")

	next := core.Geometry(`{"rings":[[[5,5],[6,5],[6,6],[5,5]]]}`)
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/annotations/"+a.UID,
		map[string]any{"geometry": json.RawMessage(next)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[core.Annotation](t, resp)
	assert.JSONEq(t, string(next), string(updated.Geometry))

	got, ok := store.Get(a.UID)
	require.True(t, ok)
	assert.JSONEq(t, string(next), string(got.Geometry))
	assert.Equal(t, "Reshaped", got.Name, "geometry-only update leaves metadata untouched")

	// Metadata and geometry can change in one request.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/annotations/"+a.UID,
		map[string]any{"name": "Both", "description": "d", "geometry": json.RawMessage(testRing)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, _ = store.Get(a.UID)
	assert.Equal(t, "Both", got.Name)
	assert.JSONEq(t, string(testRing), string(got.Geometry))

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/annotations/missing",
		map[string]any{"geometry": json.RawMessage(next)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A body with neither metadata nor geometry changes nothing.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/annotations/"+a.UID, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestClearAllAnnotations(t *testing.T) {
	srv, session, store := newTestServer(t)
	a := commitShape(t, session, "one")
	commitShape(t, session, "two")
	session.ToggleSelect(a.UID)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/annotations", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, session.Selected())
}

func TestSelectionEndpoints(t *testing.T) {
	srv, session, store := newTestServer(t)
	a := commitShape(t, session, "first")
	b := commitShape(t, session, "second")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/selection",
		map[string]any{"uid": a.UID, "extend": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sel := decodeBody[map[string][]string](t, resp)
	assert.ElementsMatch(t, []string{a.UID, b.UID}, sel["selected"])

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/selection",
		map[string]any{"uid": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/selection/annotations", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, session.Selected())
}

func TestRecordEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/records?region=Dubai", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dubai := decodeBody[[]core.LocationRecord](t, resp)
	assert.Len(t, dubai, 2)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/records",
		core.LocationRecord{Location: "Khalifa City", Region: "Abu Dhabi", Users: 30})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	added := decodeBody[core.LocationRecord](t, resp)
	assert.Equal(t, 4, added.ID)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/records/4",
		core.LocationRecord{Location: "Khalifa City", Region: "Abu Dhabi", Users: 45})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/records/99",
		core.LocationRecord{Location: "Nowhere"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/records/4", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRecordCoordinateValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/records",
		core.LocationRecord{Location: "Bad", Region: "Dubai", Coordinates: "not-a-pair"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/records",
		core.LocationRecord{Location: "Good", Region: "Dubai", Coordinates: "55.1400,25.0800"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestProjectRecord(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/records",
		core.LocationRecord{Location: "Origin", Region: "Dubai", Coordinates: "0.0000,0.0000"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	added := decodeBody[core.LocationRecord](t, resp)

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/records/%d/projection", srv.URL, added.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	point := decodeBody[map[string]float64](t, resp)
	assert.InDelta(t, 0, point["x"], 1e-6)
	assert.InDelta(t, 0, point["y"], 1e-6)

	// Records without coordinates cannot be projected.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/records/1/projection", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/records/999/projection", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegionsAndStats(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/regions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	regionList := decodeBody[map[string][]string](t, resp)
	assert.Equal(t, []string{"All", "Dubai", "Abu Dhabi"}, regionList["regions"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/stats?region=Dubai", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeBody[core.Stats](t, resp)
	assert.Equal(t, core.Stats{Count: 2, TotalUsers: 150}, stats)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decodeBody[core.Stats](t, resp)
	assert.Equal(t, core.Stats{Count: 3, TotalUsers: 225}, all)
}
