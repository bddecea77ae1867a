package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"intel-service/internal/domain/intel"
	"intel-service/internal/repository"
	"intel-service/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// MatchStore is the storage surface the matcher reads: the curated
// watch-list and the incident history.
type MatchStore interface {
	FindWatchEntries(ctx context.Context, normalized string) ([]intel.WatchEntry, error)
	FindIncidentVehicles(ctx context.Context, normalized string) ([]intel.IncidentVehicleHit, error)
}

// SightingAuditor records plate checks for the audit trail.
type SightingAuditor interface {
	CreateSightingLog(ctx context.Context, log *repository.SightingLog) error
}

// MatchService checks plate sightings against the watch-list and incident
// history and produces severity-ordered alert lists.
type MatchService struct {
	store MatchStore
	audit SightingAuditor
	log   zerolog.Logger
}

func NewMatchService(store MatchStore, audit SightingAuditor, log zerolog.Logger) *MatchService {
	return &MatchService{
		store: store,
		audit: audit,
		log:   log,
	}
}

// Match runs a sighting through the full pipeline: normalize, query both
// sources, classify, merge. The result is deterministic for a given
// collaborator state; ordering is ROJO before NARANJA, watch-list hits
// before history hits within a tier, history hits in incident recency
// order.
func (s *MatchService) Match(ctx context.Context, sighting intel.Sighting) (*intel.MatchResult, error) {
	if sighting.RawPlate == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}

	normalized := utils.NormalizePlate(sighting.RawPlate)
	if normalized == utils.FallbackToken {
		return nil, fmt.Errorf("%w: plate cannot be empty after normalization", ErrInvalidInput)
	}

	watchHits, err := s.store.FindWatchEntries(ctx, normalized)
	if err != nil {
		s.log.Error().Err(err).Str("plate", normalized).Msg("watch-list query failed")
		return nil, fmt.Errorf("query watch-list: %w", err)
	}

	historyHits, err := s.store.FindIncidentVehicles(ctx, normalized)
	if err != nil {
		s.log.Error().Err(err).Str("plate", normalized).Msg("incident-history query failed")
		return nil, fmt.Errorf("query incident history: %w", err)
	}

	var red, orange []intel.Alert

	// Anything on the watch-list was already vetted when it was placed
	// there, so every hit is unconditionally red.
	for _, w := range watchHits {
		red = append(red, intel.Alert{
			Plate:      w.Plate,
			Severity:   intel.SeverityRed,
			Origin:     intel.OriginWatchlist,
			Title:      fmt.Sprintf("¡ALERTA: %s!", w.Status),
			Narrative:  w.Notes,
			Vehicle:    fmt.Sprintf("%s %s", w.Make, w.Model),
			OccurredAt: w.RegisteredAt.Format("2006-01-02"),
		})
	}

	for _, h := range historyHits {
		alert := intel.Alert{
			Plate:      h.Plate,
			Severity:   ClassifySeverity(h.Category),
			Origin:     intel.OriginIncidentHistory,
			Title:      fmt.Sprintf("ANTECEDENTE: %s", strings.ToUpper(h.Category)),
			Narrative:  h.Narrative,
			Vehicle:    fmt.Sprintf("%s %s", h.Make, h.Model),
			OccurredAt: h.OccurredAt,
			Extra:      fmt.Sprintf("Folio: %s", h.CaseRef),
		}
		if alert.Severity == intel.SeverityRed {
			red = append(red, alert)
		} else {
			orange = append(orange, alert)
		}
	}

	alerts := make([]intel.Alert, 0, len(red)+len(orange))
	alerts = append(alerts, red...)
	alerts = append(alerts, orange...)

	result := &intel.MatchResult{
		Outcome: intel.OutcomeClean,
		Plate:   normalized,
		Alerts:  alerts,
	}
	if len(alerts) > 0 {
		result.Outcome = intel.OutcomePositive
	}

	if result.Positive() {
		s.log.Info().
			Str("plate", normalized).
			Str("raw_plate", sighting.RawPlate).
			Str("source", sighting.Source).
			Int("alerts", len(alerts)).
			Msg("positive match")
	} else {
		s.log.Debug().
			Str("plate", normalized).
			Str("source", sighting.Source).
			Msg("clean plate")
	}

	s.recordSighting(ctx, sighting, normalized, result)

	return result, nil
}

// recordSighting writes the audit entry. Best effort: the matching core
// does not own sighting persistence, so a storage hiccup here must not
// turn a completed match into an error.
func (s *MatchService) recordSighting(ctx context.Context, sighting intel.Sighting, normalized string, result *intel.MatchResult) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(sighting)
	entry := &repository.SightingLog{
		RawPlate:        sighting.RawPlate,
		NormalizedPlate: normalized,
		Source:          sighting.Source,
		ReporterID:      sighting.ReporterID,
		Outcome:         result.Outcome,
		AlertCount:      len(result.Alerts),
		RawPayload:      datatypes.JSON(payload),
	}
	if err := s.audit.CreateSightingLog(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("plate", normalized).Msg("sighting audit write failed")
	}
}
