package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/staymap/internal/adapters/http"
	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/markers"
	"github.com/samirrijal/staymap/internal/core/usecases"
	"github.com/samirrijal/staymap/internal/pkg/geospatial"
)

// ---- Mock repositories ----

type mockPropertyRepo struct {
	getByIDFn  func(ctx context.Context, id string) (*domain.Property, error)
	getByIDsFn func(ctx context.Context, ids []string) ([]domain.Property, error)
	listFn     func(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error)
	countFn    func(ctx context.Context, f domain.PropertyFilter) (int, error)
}

func (m *mockPropertyRepo) Upsert(ctx context.Context, p *domain.Property) error       { return nil }
func (m *mockPropertyRepo) UpsertBatch(ctx context.Context, p []domain.Property) error { return nil }
func (m *mockPropertyRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockPropertyRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}
func (m *mockPropertyRepo) List(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return nil, nil
}
func (m *mockPropertyRepo) Count(ctx context.Context, f domain.PropertyFilter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, f)
	}
	return 0, nil
}
func (m *mockPropertyRepo) DeactivateMissing(ctx context.Context, keep []string) ([]domain.PropertyRef, error) {
	return nil, nil
}

type mockWishlistRepo struct {
	getByIDFn       func(ctx context.Context, id string) (*domain.Wishlist, error)
	createFn        func(ctx context.Context, w *domain.Wishlist) error
	addListingFn    func(ctx context.Context, wishlistID, propertyID string) error
	removeListingFn func(ctx context.Context, wishlistID, propertyID string) error
}

func (m *mockWishlistRepo) GetByID(ctx context.Context, id string) (*domain.Wishlist, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockWishlistRepo) Create(ctx context.Context, w *domain.Wishlist) error {
	if m.createFn != nil {
		return m.createFn(ctx, w)
	}
	return nil
}
func (m *mockWishlistRepo) AddListing(ctx context.Context, wishlistID, propertyID string) error {
	if m.addListingFn != nil {
		return m.addListingFn(ctx, wishlistID, propertyID)
	}
	return nil
}
func (m *mockWishlistRepo) RemoveListing(ctx context.Context, wishlistID, propertyID string) error {
	if m.removeListingFn != nil {
		return m.removeListingFn(ctx, wishlistID, propertyID)
	}
	return nil
}

// ---- Test helpers ----

func sampleProperties() []domain.Property {
	return []domain.Property{
		{ID: "p1", Title: "Alfama loft", Price: 120, City: "Lisbon", Active: true,
			Geolocation: &domain.GeoPoint{Lat: 38.7118, Lng: -9.1300}},
		{ID: "p2", Title: "Chiado flat", Price: 150, City: "Lisbon", Active: true,
			Geolocation: &domain.GeoPoint{Lat: 38.7107, Lng: -9.1425}},
		{ID: "p3", Title: "Unmapped room", Price: 60, City: "Lisbon", Active: true},
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(props *mockPropertyRepo, wishlists *mockWishlistRepo) *handler.Dependencies {
	if props == nil {
		props = &mockPropertyRepo{}
	}
	if wishlists == nil {
		wishlists = &mockWishlistRepo{}
	}
	catalog := usecases.NewPropertyService(props, nil)
	d := markers.DefaultDisplacementOptions()
	d.MinOffsetKm = 0.5
	s := markers.DefaultSpreadOptions()
	s.Radius = 0
	return &handler.Dependencies{
		Properties: catalog,
		Maps:       usecases.NewMapService(catalog, wishlists, d, s),
		Wishlists:  usecases.NewWishlistService(wishlists, props),
	}
}

func catalogRepo() *mockPropertyRepo {
	return &mockPropertyRepo{
		listFn: func(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
			return sampleProperties(), nil
		},
		countFn: func(ctx context.Context, f domain.PropertyFilter) (int, error) { return 3, nil },
		getByIDFn: func(ctx context.Context, id string) (*domain.Property, error) {
			for _, p := range sampleProperties() {
				if p.ID == id {
					return &p, nil
				}
			}
			return nil, domain.ErrNotFound
		},
		getByIDsFn: func(ctx context.Context, ids []string) ([]domain.Property, error) {
			var out []domain.Property
			for _, p := range sampleProperties() {
				for _, id := range ids {
					if p.ID == id {
						out = append(out, p)
					}
				}
			}
			return out, nil
		},
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ---- Property handler tests ----

func TestListProperties_Success(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/properties?city=Lisbon", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp.Body)
	if strings.Contains(string(body), "geolocation") || strings.Contains(string(body), "38.71") {
		t.Errorf("true positions must not be served: %s", body)
	}

	var result struct {
		Data       []domain.Property  `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data) != 3 || result.Pagination.Total != 3 || result.Pagination.Limit != 100 {
		t.Errorf("unexpected page: %d items, %+v", len(result.Data), result.Pagination)
	}
}

func TestListProperties_PassesFilter(t *testing.T) {
	var got domain.PropertyFilter
	repo := catalogRepo()
	repo.listFn = func(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
		got = f
		return nil, nil
	}
	app := setupApp(makeDeps(repo, nil))

	req := httptest.NewRequest("GET", "/v1/properties?city=Porto&min_lat=41.1&min_lng=-8.7&max_lat=41.2&max_lng=-8.5&offset=20&limit=5000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got.City != "Porto" || got.Offset != 20 || got.Limit != 1000 {
		t.Errorf("unexpected filter: %+v", got)
	}
	if got.Bounds == nil || got.Bounds.MinLat != 41.1 || got.Bounds.MaxLng != -8.5 {
		t.Errorf("unexpected bounds: %+v", got.Bounds)
	}
}

func TestListProperties_BadBounds(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	for _, q := range []string{
		"min_lat=41&min_lng=-8",
		"min_lat=abc&min_lng=-8&max_lat=42&max_lng=-7",
		"min_lat=95&min_lng=-8&max_lat=96&max_lng=-7",
		"min_lat=42&min_lng=-8&max_lat=41&max_lng=-7",
		"min_lat=NaN&min_lng=-8&max_lat=41&max_lng=-7",
	} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties?"+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestListProperties_RadiusFilter(t *testing.T) {
	var got domain.PropertyFilter
	repo := catalogRepo()
	repo.listFn = func(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
		got = f
		return nil, nil
	}
	app := setupApp(makeDeps(repo, nil))

	req := httptest.NewRequest("GET", "/v1/properties?center_lat=38.7223&center_lng=-9.1393&radius_m=5000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	b := got.Bounds
	if b == nil {
		t.Fatal("expected radius to become bounds")
	}
	if !b.Contains(domain.GeoPoint{Lat: 38.7223, Lng: -9.1393}) {
		t.Errorf("bounds do not contain the centre: %+v", b)
	}
	if span := b.MaxLat - b.MinLat; span < 0.089 || span > 0.11 {
		t.Errorf("unexpected latitude span for 5 km: %+v", b)
	}
	assertOnGrid(t, *b)
}

func TestListProperties_BadRadius(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	for _, q := range []string{
		"radius_m=5000",
		"center_lat=38.7&center_lng=-9.1&radius_m=0",
		"center_lat=38.7&center_lng=-9.1&radius_m=0.5",
		"center_lat=38.7&center_lng=-9.1&radius_m=2999",
		"center_lat=38.7&center_lng=-9.1&radius_m=90000",
		"center_lat=38.7&center_lng=-9.1&radius_m=near",
		"center_lat=38.7&center_lng=-9.1&radius_m=5000&min_lat=38&min_lng=-10&max_lat=39&max_lng=-9",
	} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties?"+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

// assertOnGrid checks that every edge sits on a 0.01 degree line.
func assertOnGrid(t *testing.T, b domain.Bounds) {
	t.Helper()
	for _, v := range []float64{b.MinLat, b.MinLng, b.MaxLat, b.MaxLng} {
		if cells := v * 100; math.Abs(cells-math.Round(cells)) > 1e-6 {
			t.Errorf("edge %v is not on the 0.01 degree grid: %+v", v, b)
		}
	}
}

func TestMapMarkers_TinyViewportIsWidened(t *testing.T) {
	var got domain.PropertyFilter
	repo := catalogRepo()
	repo.listFn = func(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
		got = f
		return sampleProperties(), nil
	}
	app := setupApp(makeDeps(repo, nil))

	// A one-metre box around a single listing.
	q := "min_lat=38.71180&min_lng=-9.13000&max_lat=38.71181&max_lng=-9.12999"
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/markers?"+q, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	b := got.Bounds
	if b == nil {
		t.Fatal("expected bounds to reach the repository")
	}
	if !b.Contains(domain.GeoPoint{Lat: 38.7118, Lng: -9.13}) {
		t.Errorf("widened box lost the requested area: %+v", b)
	}

	// At least twice the 3 km displacement radius on each side.
	midLat := (b.MinLat + b.MaxLat) / 2
	if ns := geospatial.HaversineKm(b.MinLat, b.MinLng, b.MaxLat, b.MinLng); ns < 6 {
		t.Errorf("north-south span %.3f km, want >= 6", ns)
	}
	if ew := geospatial.HaversineKm(midLat, b.MinLng, midLat, b.MaxLng); ew < 6 {
		t.Errorf("east-west span %.3f km, want >= 6", ew)
	}
	assertOnGrid(t, *b)
}

func TestMapMarkers_TinyRadiusRejected(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/markers?center_lat=38.7118&center_lng=-9.1300&radius_m=0.5", nil), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListProperties_PolarViewportCoversAllLongitudes(t *testing.T) {
	var got domain.PropertyFilter
	repo := catalogRepo()
	repo.listFn = func(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
		got = f
		return nil, nil
	}
	app := setupApp(makeDeps(repo, nil))

	q := "min_lat=89.99&min_lng=10&max_lat=90&max_lng=10.001"
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties?"+q, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if b := got.Bounds; b == nil || b.MaxLat != 90 || b.MinLng != -180 || b.MaxLng != 180 {
		t.Errorf("expected a full-longitude polar box, got %+v", got.Bounds)
	}
}

func TestListProperties_LinkHeaderKeepsFilters(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties?city=Lisbon&offset=0&limit=1", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	link := resp.Header.Get("Link")
	for _, want := range []string{`rel="first"`, `rel="next"`, `rel="last"`, "city=Lisbon", "offset=1"} {
		if !strings.Contains(link, want) {
			t.Errorf("expected %q in Link header, got %s", want, link)
		}
	}
	if strings.Contains(link, `rel="prev"`) {
		t.Errorf("first page should have no prev link: %s", link)
	}
}

func TestGetProperty_Success(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties/p1", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var p map[string]any
	if err := json.Unmarshal(readBody(t, resp.Body), &p); err != nil {
		t.Fatal(err)
	}
	if p["id"] != "p1" || p["title"] != "Alfama loft" {
		t.Errorf("unexpected property: %v", p)
	}
	if _, ok := p["geolocation"]; ok {
		t.Error("geolocation must not be served")
	}
}

func TestGetProperty_NotFound(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties/nope", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(readBody(t, resp.Body), &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "not_found" || apiErr.RequestID == "" {
		t.Errorf("unexpected error body: %+v", apiErr)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("errors must not be cached, got %q", cc)
	}
}

func TestGetProperty_InternalErrorHidden(t *testing.T) {
	repo := &mockPropertyRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Property, error) {
			return nil, fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused")
		},
	}
	app := setupApp(makeDeps(repo, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties/p1", nil), -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); strings.Contains(string(body), "10.0.0.5") {
		t.Errorf("internal details leaked: %s", body)
	}
}

func TestBatchProperties(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties/batch?ids=p2,%20p1,missing", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got []domain.Property
	if err := json.Unmarshal(readBody(t, resp.Body), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "p2" || got[1].ID != "p1" {
		t.Errorf("expected [p2 p1] in request order, got %+v", got)
	}
}

func TestBatchProperties_BadRequest(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	ids := make([]string, 101)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}
	for _, q := range []string{"", "ids=,,", "ids=" + strings.Join(ids, ",")} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties/batch?"+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%.20s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

// ---- Map handler tests ----

func TestMapMarkers_Success(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/markers?city=Lisbon&center_lat=38.72&center_lng=-9.14", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var set struct {
		Center  *domain.GeoPoint     `json:"center"`
		Markers []map[string]any     `json:"markers"`
		Stats   usecases.MarkerStats `json:"stats"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &set); err != nil {
		t.Fatal(err)
	}
	if set.Center == nil || set.Center.Lat != 38.72 || set.Center.Lng != -9.14 {
		t.Errorf("expected center to be echoed, got %+v", set.Center)
	}
	if len(set.Markers) != 3 || set.Stats.Displaced != 2 || set.Stats.Passthrough != 1 {
		t.Fatalf("unexpected markers: %d, stats %+v", len(set.Markers), set.Stats)
	}

	for i, p := range sampleProperties()[:2] {
		m := set.Markers[i]
		if m["_id"] != p.ID || m["hovered"] != false {
			t.Errorf("unexpected marker %v", m)
		}
		lat, lng := m["lat"].(float64), m["lng"].(float64)
		d := geospatial.HaversineKm(p.Geolocation.Lat, p.Geolocation.Lng, lat, lng)
		if d < 0.45 || d > 3.05 {
			t.Errorf("marker %s displaced %.3f km", p.ID, d)
		}
	}
	if set.Markers[2]["lat"] != nil {
		t.Errorf("unmapped property should keep null coordinates, got %v", set.Markers[2]["lat"])
	}
}

func TestMapMarkers_Deterministic(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	get := func() string {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/markers", nil), -1)
		return string(readBody(t, resp.Body))
	}
	if a, b := get(), get(); a != b {
		t.Errorf("repeated renders differ:\n%s\n%s", a, b)
	}
}

func TestMapMarkers_HalfCenter(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/markers?center_lat=38.7", nil), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestObfuscate_DefaultsAndOverrides(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))
	records := `[{"_id":"a","lat":40.0,"lng":-75.0,"note":"kept"},{"_id":"b","lat":"bad","lng":-75.0}]`

	resp, _ := app.Test(jsonRequest("POST", "/v1/markers/obfuscate", `{"records":`+records+`}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Records []map[string]any     `json:"records"`
		Stats   usecases.MarkerStats `json:"stats"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Records) != 2 || out.Stats.Displaced != 1 || out.Stats.Passthrough != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out.Records[0]["note"] != "kept" || out.Records[0]["lat"] == 40.0 {
		t.Errorf("expected displaced record with extra fields kept, got %v", out.Records[0])
	}
	if out.Records[1]["lat"] != "bad" {
		t.Errorf("invalid record should pass through unchanged, got %v", out.Records[1])
	}

	// A zero max offset disables displacement
	resp, _ = app.Test(jsonRequest("POST", "/v1/markers/obfuscate", `{"records":`+records+`,"options":{"max_offset_km":0}}`), -1)
	out.Records, out.Stats = nil, usecases.MarkerStats{}
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatal(err)
	}
	if out.Records[0]["lat"] != 40.0 || out.Stats.Passthrough != 2 {
		t.Errorf("expected passthrough with max_offset_km=0, got %+v", out)
	}
}

func TestObfuscate_BadBody(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(jsonRequest("POST", "/v1/markers/obfuscate", `{"records": 12}`), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSpread_GroupsSharedCoordinates(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))
	body := `{"records":[{"_id":"a","lat":40,"lng":-75},{"_id":"b","lat":40,"lng":-75},{"_id":"c","lat":41,"lng":-75}],
		"options":{"radius":0.001}}`

	resp, _ := app.Test(jsonRequest("POST", "/v1/markers/spread", body), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Records []map[string]any     `json:"records"`
		Stats   usecases.MarkerStats `json:"stats"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatal(err)
	}
	if out.Stats.SpreadGroups != 1 || len(out.Records) != 3 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out.Records[0]["lat"] == out.Records[1]["lat"] && out.Records[0]["lng"] == out.Records[1]["lng"] {
		t.Error("grouped markers still overlap")
	}
	if out.Records[2]["_id"] != "c" || out.Records[2]["lat"] != 41.0 {
		t.Errorf("single marker should follow the group unchanged, got %v", out.Records[2])
	}
}

// ---- Wishlist handler tests ----

func TestCreateWishlist(t *testing.T) {
	repo := &mockWishlistRepo{
		createFn: func(ctx context.Context, w *domain.Wishlist) error {
			w.ID = "w-42"
			return nil
		},
	}
	app := setupApp(makeDeps(nil, repo))

	resp, _ := app.Test(jsonRequest("POST", "/v1/wishlists", `{"user_id":"u1","name":"Summer"}`), -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/wishlists/w-42" {
		t.Errorf("unexpected Location %q", loc)
	}
	var w domain.Wishlist
	if err := json.Unmarshal(readBody(t, resp.Body), &w); err != nil {
		t.Fatal(err)
	}
	if w.ID != "w-42" || w.Name != "Summer" || w.Listings == nil {
		t.Errorf("unexpected wishlist: %+v", w)
	}
}

func TestCreateWishlist_Invalid(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	for _, body := range []string{`{"user_id":"u1"}`, `not json`} {
		resp, _ := app.Test(jsonRequest("POST", "/v1/wishlists", body), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestWishlistListings(t *testing.T) {
	var added, removed string
	repo := &mockWishlistRepo{
		addListingFn: func(ctx context.Context, wishlistID, propertyID string) error {
			added = wishlistID + "/" + propertyID
			return nil
		},
		removeListingFn: func(ctx context.Context, wishlistID, propertyID string) error {
			removed = wishlistID + "/" + propertyID
			return nil
		},
	}
	app := setupApp(makeDeps(catalogRepo(), repo))

	resp, _ := app.Test(httptest.NewRequest("PUT", "/v1/wishlists/w1/listings/p2", nil), -1)
	if resp.StatusCode != 204 || added != "w1/p2" {
		t.Errorf("add: status %d, added %q", resp.StatusCode, added)
	}
	resp, _ = app.Test(httptest.NewRequest("PUT", "/v1/wishlists/w1/listings/ghost", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("add unknown property: expected 404, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/wishlists/w1/listings/p2", nil), -1)
	if resp.StatusCode != 204 || removed != "w1/p2" {
		t.Errorf("remove: status %d, removed %q", resp.StatusCode, removed)
	}
}

func TestWishlistMarkers(t *testing.T) {
	wishlists := &mockWishlistRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Wishlist, error) {
			return &domain.Wishlist{ID: id, Listings: []string{"p2", "p1"}}, nil
		},
	}
	app := setupApp(makeDeps(catalogRepo(), wishlists))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/wishlists/w1/markers", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-cache" {
		t.Errorf("wishlists must be private, got %q", cc)
	}
	var set struct {
		Markers []map[string]any     `json:"markers"`
		Stats   usecases.MarkerStats `json:"stats"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &set); err != nil {
		t.Fatal(err)
	}
	if len(set.Markers) != 2 || set.Markers[0]["_id"] != "p2" || set.Markers[1]["_id"] != "p1" {
		t.Errorf("expected markers in wishlist order, got %v", set.Markers)
	}
	if set.Stats.SpreadGroups != 0 || set.Stats.Displaced != 2 {
		t.Errorf("unexpected stats: %+v", set.Stats)
	}
}

func TestWishlistMarkers_NotFound(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/wishlists/nope/markers", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_MapMarkers(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))
	query := `{"query":"{ mapMarkers(centerLat: 38.7, centerLng: -9.1) { center { lat lng } markers { id lat title hovered } stats { displaced spread_groups } } property(id: \"nope\") { id } }"}`

	resp, _ := app.Test(jsonRequest("POST", "/graphql", query), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			MapMarkers struct {
				Center  domain.GeoPoint `json:"center"`
				Markers []struct {
					ID      string   `json:"id"`
					Lat     *float64 `json:"lat"`
					Title   string   `json:"title"`
					Hovered bool     `json:"hovered"`
				} `json:"markers"`
				Stats usecases.MarkerStats `json:"stats"`
			} `json:"mapMarkers"`
			Property *struct{ ID string } `json:"property"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	mm := result.Data.MapMarkers
	if mm.Center.Lat != 38.7 || len(mm.Markers) != 3 || mm.Stats.Displaced != 2 {
		t.Errorf("unexpected marker set: %+v", mm)
	}
	if mm.Markers[0].ID != "p1" || mm.Markers[0].Lat == nil || *mm.Markers[0].Lat == 38.7118 {
		t.Errorf("unexpected first marker: %+v", mm.Markers[0])
	}
	if mm.Markers[2].Lat != nil {
		t.Error("unmapped marker should have null lat")
	}
	if result.Data.Property != nil {
		t.Errorf("unknown property should resolve to null, got %+v", result.Data.Property)
	}
}

// ---- System endpoints and middleware ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.StatusCode)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &body); err != nil {
		t.Fatal(err)
	}
	if body.Checks["database"] != "not configured" || body.Checks["cache"] != "not configured" {
		t.Errorf("unexpected checks: %v", body.Checks)
	}
}

func TestLegacyProperties_Deprecated(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/api/properties?limit=1", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" || !strings.HasSuffix(resp.Header.Get("Sunset"), "GMT") {
		t.Errorf("missing deprecation headers: %v", resp.Header)
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `</v1/properties>; rel="successor-version"`) || !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected successor and pagination links, got %s", link)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/properties", nil), -1)
	if resp.Header.Get("Deprecation") != "" {
		t.Error("v1 route must not be marked deprecated")
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(catalogRepo(), nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/properties/p1", nil), -1)
	etag := resp.Header.Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak ETag, got %q", etag)
	}

	req := httptest.NewRequest("GET", "/v1/properties/p1", nil)
	req.Header.Set("If-None-Match", `"other", `+etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// TestAccessLogMiddleware verifies structured access logging does not alter responses.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", body)
	}
}
