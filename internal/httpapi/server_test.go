package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"whisperd/pkg/types"
)

type fakeService struct {
	ready  bool
	status types.StatusResponse
}

func (f *fakeService) Ready() bool                  { return f.ready }
func (f *fakeService) Status() types.StatusResponse { return f.status }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := NewMux(&fakeService{}, zerolog.Nop())
	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body=%q", rec.Body.String())
	}
}

func TestReadyz_GatesOnInitialLoad(t *testing.T) {
	svc := &fakeService{}
	h := NewMux(svc, zerolog.Nop())

	rec := get(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before ready=%d", rec.Code)
	}
	if rec.Body.String() != "loading" {
		t.Fatalf("body=%q", rec.Body.String())
	}

	svc.ready = true
	rec = get(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status after ready=%d", rec.Code)
	}
	if rec.Body.String() != "ready" {
		t.Fatalf("body=%q", rec.Body.String())
	}
}

func TestStatus_ReturnsSessionSnapshot(t *testing.T) {
	svc := &fakeService{
		ready: true,
		status: types.StatusResponse{
			ActiveModel: "base",
			Resident: []types.ResidentModel{
				{Model: "base", InsertOrder: 0, LoadedAtUnix: 1700000000},
			},
			Device:     types.DeviceInfo{Backend: "cpu", Precision: "int8"},
			LoadsTotal: 3,
		},
	}
	h := NewMux(svc, zerolog.Nop())

	rec := get(t, h, "/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content-type=%q", ct)
	}
	var got types.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ActiveModel != "base" || got.Device.Backend != "cpu" || got.LoadsTotal != 3 {
		t.Fatalf("snapshot=%+v", got)
	}
	if len(got.Resident) != 1 || got.Resident[0].Model != "base" {
		t.Fatalf("resident=%+v", got.Resident)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(&fakeService{}, zerolog.Nop())
	// Generate some traffic so the counters exist.
	_ = get(t, h, "/healthz")

	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "whisperd_http_requests_total") {
		t.Fatal("metrics output missing whisperd_http_requests_total")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	h := NewMux(&fakeService{}, zerolog.Nop())
	rec := get(t, h, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}
