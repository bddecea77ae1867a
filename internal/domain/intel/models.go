package intel

import (
	"time"
)

// Sighting source.
const (
	SourceManual = "MANUAL"
	SourceVision = "VISION"
)

// Alert severity. The wire dialect consumed by the situation-room displays
// is Spanish, so the constants carry the wire values directly.
const (
	SeverityRed    = "ROJO"
	SeverityOrange = "NARANJA"
)

// Alert origin.
const (
	OriginWatchlist       = "WATCHLIST"
	OriginIncidentHistory = "INCIDENT_HISTORY"
)

// Match outcome.
const (
	OutcomePositive = "POSITIVE"
	OutcomeClean    = "CLEAN"
)

// Unit position status.
const (
	StatusOnline        = "ONLINE"
	StatusWaitingSignal = "WAITING_SIGNAL"
)

// Person involvement roles derived for the link graph.
const (
	RoleVictim  = "VICTIMA"
	RoleSuspect = "PRESUNTO"
)

// Sighting is one incoming plate report. Created per request, never stored
// by the matching core itself.
type Sighting struct {
	RawPlate   string `json:"raw_plate"`
	Source     string `json:"source"`
	ReporterID string `json:"reporter_id"`
	Lat        string `json:"lat,omitempty"`
	Lon        string `json:"lon,omitempty"`
}

// Alert is one ranked hit for a sighting. JSON tags follow the display
// contract (alertas_detalle entries).
type Alert struct {
	Plate      string `json:"-"`
	Severity   string `json:"color"`
	Origin     string `json:"-"`
	Title      string `json:"titulo"`
	Narrative  string `json:"narrativa"`
	Vehicle    string `json:"vehiculo"`
	OccurredAt string `json:"fecha"`
	Extra      string `json:"info_extra,omitempty"`
}

// MatchResult is the ordered outcome of a plate check. The alert list is
// severity-ordered: every ROJO entry precedes every NARANJA entry.
type MatchResult struct {
	Outcome string  `json:"outcome"`
	Plate   string  `json:"plate"`
	Alerts  []Alert `json:"alerts"`
}

// Positive reports whether the match produced at least one alert.
func (r *MatchResult) Positive() bool {
	return r.Outcome == OutcomePositive
}

// UnitPosition is the last known fix for a field unit. Coordinates stay
// strings end to end; "0.0" is the no-fix sentinel, not a real coordinate.
type UnitPosition struct {
	UnitID     string    `json:"unit_id"`
	Lat        string    `json:"lat"`
	Lon        string    `json:"lon"`
	ReceivedAt time.Time `json:"received_at"`
	Status     string    `json:"status"`
	// Stale is derived at read time from ReceivedAt age; the cache itself
	// never expires entries.
	Stale bool `json:"stale,omitempty"`
}

// WatchEntry is a curated vehicle-of-interest record, read-only to this
// service's matching core.
type WatchEntry struct {
	Plate        string    `json:"plate"`
	Status       string    `json:"status"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Notes        string    `json:"notes"`
	RegisteredAt time.Time `json:"registered_at"`
}

// IncidentVehicleHit is one incident-history vehicle record matching a
// plate query, joined with its incident.
type IncidentVehicleHit struct {
	Plate      string
	Make       string
	Model      string
	IncidentID int64
	CaseRef    string
	Category   string
	Narrative  string
	OccurredAt string
}

// Graph node kinds.
const (
	NodeIncident = "INCIDENT"
	NodeVehicle  = "VEHICLE"
	NodePerson   = "PERSON"
)

// GraphNode is one vertex of the link-analysis graph. For VEHICLE and
// PERSON nodes the id embeds the dedup key, so records collapsing onto the
// same key share one node.
type GraphNode struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Label      string            `json:"label"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// GraphEdge links an incident node to an involved entity node. Edges are
// intentionally not deduplicated.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the response shape of the link-network endpoint.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// AlertEvent is the critical-alert broadcast payload pushed to displays.
type AlertEvent struct {
	Type   string  `json:"type"`
	Plate  string  `json:"placa"`
	Lat    string  `json:"lat"`
	Lon    string  `json:"lon"`
	Count  int     `json:"cantidad"`
	Alerts []Alert `json:"alertas_detalle"`
}

// PositionEvent echoes a GPS ping to displays.
type PositionEvent struct {
	Type   string `json:"type"`
	UnitID string `json:"unidad"`
	Lat    string `json:"lat"`
	Lon    string `json:"lon"`
	Time   string `json:"hora"`
}

// Broadcast event types.
const (
	EventCriticalAlert = "ALERTA_CRITICA"
	EventPosition      = "EVENTO_GPS"
)
