package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"intel-service/internal/domain/intel"
	"intel-service/internal/repository"
)

type fakeStore struct {
	watch     map[string][]intel.WatchEntry
	history   map[string][]intel.IncidentVehicleHit
	watchErr  error
	histErr   error
	auditErr  error
	auditLogs []*repository.SightingLog
}

func (f *fakeStore) FindWatchEntries(_ context.Context, plate string) ([]intel.WatchEntry, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return f.watch[plate], nil
}

func (f *fakeStore) FindIncidentVehicles(_ context.Context, plate string) ([]intel.IncidentVehicleHit, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	return f.history[plate], nil
}

func (f *fakeStore) CreateSightingLog(_ context.Context, log *repository.SightingLog) error {
	if f.auditErr != nil {
		return f.auditErr
	}
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

func newMatchService(store *fakeStore) *MatchService {
	return NewMatchService(store, store, zerolog.Nop())
}

func TestMatchWatchlistHit(t *testing.T) {
	store := &fakeStore{
		watch: map[string][]intel.WatchEntry{
			"RATA666": {{
				Plate:        "RATA666",
				Status:       "ROBADO",
				Make:         "NISSAN",
				Model:        "TSURU",
				Notes:        "Reporte de robo vigente",
				RegisteredAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
			}},
		},
	}
	svc := newMatchService(store)

	res, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "rata-666", Source: intel.SourceManual})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Outcome != intel.OutcomePositive {
		t.Fatalf("outcome = %q, want POSITIVE", res.Outcome)
	}
	if res.Plate != "RATA666" {
		t.Errorf("plate = %q, want RATA666", res.Plate)
	}
	if len(res.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(res.Alerts))
	}
	a := res.Alerts[0]
	if a.Severity != intel.SeverityRed {
		t.Errorf("severity = %q, want ROJO", a.Severity)
	}
	if a.Origin != intel.OriginWatchlist {
		t.Errorf("origin = %q, want WATCHLIST", a.Origin)
	}
}

func TestMatchCleanPlate(t *testing.T) {
	store := &fakeStore{}
	svc := newMatchService(store)

	res, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "ZZZ999", Source: intel.SourceManual})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Outcome != intel.OutcomeClean {
		t.Errorf("outcome = %q, want CLEAN", res.Outcome)
	}
	if len(res.Alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(res.Alerts))
	}
}

func TestMatchSeverityOrdering(t *testing.T) {
	// History returns recency order: the orange incident is newer, the red
	// one older. The red alert must still come first.
	store := &fakeStore{
		history: map[string][]intel.IncidentVehicleHit{
			"XYZ123": {
				{Plate: "XYZ-123", Category: "CHOQUE CON FUGA", CaseRef: "OPS-2026-AAAA", OccurredAt: "2026-08-20"},
				{Plate: "XYZ-123", Category: "ROBO A BANCO", CaseRef: "OPS-2026-BBBB", OccurredAt: "2026-07-01"},
			},
		},
	}
	svc := newMatchService(store)

	res, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "XYZ123", Source: intel.SourceManual})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(res.Alerts))
	}
	if res.Alerts[0].Title != "ANTECEDENTE: ROBO A BANCO" {
		t.Errorf("first alert = %q, want the ROBO A BANCO antecedent", res.Alerts[0].Title)
	}
	if res.Alerts[0].Severity != intel.SeverityRed || res.Alerts[1].Severity != intel.SeverityOrange {
		t.Errorf("severities = %q,%q, want ROJO,NARANJA", res.Alerts[0].Severity, res.Alerts[1].Severity)
	}

	sawRedAfterOrange := false
	seenOrange := false
	for _, a := range res.Alerts {
		if a.Severity == intel.SeverityOrange {
			seenOrange = true
		} else if seenOrange {
			sawRedAfterOrange = true
		}
	}
	if sawRedAfterOrange {
		t.Error("ORANGE alert precedes a RED alert")
	}
}

func TestMatchWatchlistPrecedesHistoryWithinRed(t *testing.T) {
	store := &fakeStore{
		watch: map[string][]intel.WatchEntry{
			"AAA111": {{Plate: "AAA111", Status: "SECUESTRO"}},
		},
		history: map[string][]intel.IncidentVehicleHit{
			"AAA111": {
				{Plate: "AAA111", Category: "HOMICIDIO", CaseRef: "OPS-2026-CCCC"},
			},
		},
	}
	svc := newMatchService(store)

	res, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "AAA-111", Source: intel.SourceVision})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(res.Alerts))
	}
	if res.Alerts[0].Origin != intel.OriginWatchlist {
		t.Errorf("first alert origin = %q, want WATCHLIST", res.Alerts[0].Origin)
	}
	if res.Alerts[1].Origin != intel.OriginIncidentHistory {
		t.Errorf("second alert origin = %q, want INCIDENT_HISTORY", res.Alerts[1].Origin)
	}
}

func TestMatchDeterministic(t *testing.T) {
	store := &fakeStore{
		watch: map[string][]intel.WatchEntry{
			"AAA111": {{Plate: "AAA111", Status: "ROBADO", RegisteredAt: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)}},
		},
		history: map[string][]intel.IncidentVehicleHit{
			"AAA111": {
				{Plate: "AAA111", Category: "ROBO DE VEHICULO", CaseRef: "OPS-2026-0001", OccurredAt: "2026-03-01"},
				{Plate: "AAA111", Category: "FALTA ADMINISTRATIVA", CaseRef: "OPS-2026-0002", OccurredAt: "2026-02-01"},
			},
		},
	}
	svc := newMatchService(store)

	first, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "AAA111", Source: intel.SourceManual})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "AAA111", Source: intel.SourceManual})
		if err != nil {
			t.Fatalf("Match: %v", err)
		}
		if !reflect.DeepEqual(first.Alerts, again.Alerts) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first.Alerts, again.Alerts)
		}
	}
}

func TestMatchInvalidInput(t *testing.T) {
	svc := newMatchService(&fakeStore{})
	for _, raw := range []string{"", "---", "  "} {
		_, err := svc.Match(context.Background(), intel.Sighting{RawPlate: raw})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Match(%q) err = %v, want ErrInvalidInput", raw, err)
		}
	}
}

func TestMatchStoreFailureSurfaces(t *testing.T) {
	boom := errors.New("storage down")
	svc := newMatchService(&fakeStore{watchErr: boom})
	if _, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "ABC123"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped storage error", err)
	}
}

func TestMatchAuditFailureDoesNotFailMatch(t *testing.T) {
	store := &fakeStore{auditErr: errors.New("audit table gone")}
	svc := newMatchService(store)
	res, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "ABC123", Source: intel.SourceManual})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Outcome != intel.OutcomeClean {
		t.Errorf("outcome = %q, want CLEAN", res.Outcome)
	}
}

func TestMatchWritesAuditLog(t *testing.T) {
	store := &fakeStore{}
	svc := newMatchService(store)
	if _, err := svc.Match(context.Background(), intel.Sighting{RawPlate: "abc-123", Source: intel.SourceVision, ReporterID: "U-9"}); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(store.auditLogs) != 1 {
		t.Fatalf("audit logs = %d, want 1", len(store.auditLogs))
	}
	entry := store.auditLogs[0]
	if entry.NormalizedPlate != "ABC123" || entry.Source != intel.SourceVision || entry.ReporterID != "U-9" {
		t.Errorf("audit entry = %+v", entry)
	}
}
