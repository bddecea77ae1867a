package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"intel-service/internal/config"
	"intel-service/internal/domain/intel"
	"intel-service/internal/hub"
	"intel-service/internal/location"
	"intel-service/internal/service"
)

type stubStore struct {
	watch   map[string][]intel.WatchEntry
	history map[string][]intel.IncidentVehicleHit
}

func (s *stubStore) FindWatchEntries(_ context.Context, plate string) ([]intel.WatchEntry, error) {
	return s.watch[plate], nil
}

func (s *stubStore) FindIncidentVehicles(_ context.Context, plate string) ([]intel.IncidentVehicleHit, error) {
	return s.history[plate], nil
}

func newTestRouter(t *testing.T, store *stubStore) (*gin.Engine, *hub.Hub, *location.Cache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if store == nil {
		store = &stubStore{}
	}
	cache := location.NewCache("29.072967", "-110.955919", 5*time.Minute)
	broadcaster := hub.New(zerolog.Nop())
	t.Cleanup(broadcaster.Close)

	matcher := service.NewMatchService(store, nil, zerolog.Nop())
	h := NewHandler(matcher, nil, cache, broadcaster, nil, nil, &config.Config{}, zerolog.Nop())

	r := gin.New()
	h.Register(r)
	return r, broadcaster, cache
}

func TestUpdateAndGetPosition(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)

	body := `{"unit_id":"U-12","lat":"29.1","lon":"-110.9"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/positions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/positions/U-12", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var pos intel.UnitPosition
	if err := json.Unmarshal(w.Body.Bytes(), &pos); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if pos.Status != intel.StatusOnline || pos.Lat != "29.1" {
		t.Errorf("position = %+v", pos)
	}
}

func TestGetPositionUnknownUnitReturnsSentinel(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/positions/ghost", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even for unknown unit", w.Code)
	}
	var pos intel.UnitPosition
	if err := json.Unmarshal(w.Body.Bytes(), &pos); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if pos.Status != intel.StatusWaitingSignal {
		t.Errorf("status = %q, want WAITING_SIGNAL", pos.Status)
	}
}

func TestCheckPlatePositiveBroadcasts(t *testing.T) {
	store := &stubStore{
		watch: map[string][]intel.WatchEntry{
			"RATA666": {{Plate: "RATA666", Status: "ROBADO", RegisteredAt: time.Now()}},
		},
	}
	r, broadcaster, _ := newTestRouter(t, store)

	display := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(display)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plates/check/rata-666?unit_id=U-3", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var res intel.MatchResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if res.Outcome != intel.OutcomePositive || len(res.Alerts) != 1 {
		t.Fatalf("result = %+v", res)
	}

	select {
	case msg := <-display:
		var ev intel.AlertEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("bad event: %v", err)
		}
		if ev.Type != intel.EventCriticalAlert || ev.Plate != "RATA666" || ev.Count != 1 {
			t.Errorf("event = %+v", ev)
		}
		// No request fix and no cached fix for U-3: alert falls back to HQ.
		if ev.Lat != "29.072967" || ev.Lon != "-110.955919" {
			t.Errorf("alert coords = (%s,%s), want headquarters", ev.Lat, ev.Lon)
		}
	case <-time.After(time.Second):
		t.Fatal("no alert broadcast")
	}
}

func TestCheckPlateCleanDoesNotBroadcast(t *testing.T) {
	r, broadcaster, _ := newTestRouter(t, nil)

	display := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(display)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plates/check/ZZZ999", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res intel.MatchResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if res.Outcome != intel.OutcomeClean {
		t.Errorf("outcome = %q, want CLEAN", res.Outcome)
	}

	select {
	case msg := <-display:
		t.Fatalf("unexpected broadcast: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCheckPlateInvalidInput(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plates/check/---", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
