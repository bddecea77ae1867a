package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"intel-service/internal/domain/intel"
	"intel-service/internal/repository"
	"intel-service/internal/utils"
)

// IncidentLister provides the bounded incident window the graph is built
// from.
type IncidentLister interface {
	ListRecentIncidents(ctx context.Context, limit int) ([]repository.Incident, error)
}

// GraphService builds the incident/vehicle/person link graph for the
// situation-room network view.
type GraphService struct {
	store  IncidentLister
	window int
	log    zerolog.Logger
}

func NewGraphService(store IncidentLister, window int, log zerolog.Logger) *GraphService {
	if window <= 0 {
		window = 1000
	}
	return &GraphService{
		store:  store,
		window: window,
		log:    log,
	}
}

// shortPlateMax: a normalized plate this short carries too little identity
// to dedup on, so the vehicle falls back to a make/model synthetic key.
const shortPlateMax = 2

// vehicleKey is the dedup key for vehicle nodes: the normalized plate, or
// a synthetic make/model key when the plate is missing or too short.
func vehicleKey(v repository.IncidentVehicle) string {
	plate := utils.NormalizePlate(v.Plate)
	if plate == utils.FallbackToken || len(plate) <= shortPlateMax {
		return fmt.Sprintf("AUTO_%s_%s", v.Make, v.Model)
	}
	return plate
}

// BuildGraph walks the most recent incident window and emits one node per
// incident, one node per distinct vehicle/person dedup key, and one edge
// per incident→entity occurrence. Edges into a reused node are kept, not
// deduplicated: a frequently-seen plate accumulating many edges into one
// node is the intended hub effect on the display (pending product
// confirmation, see DESIGN.md).
func (s *GraphService) BuildGraph(ctx context.Context) (*intel.Graph, error) {
	incidents, err := s.store.ListRecentIncidents(ctx, s.window)
	if err != nil {
		s.log.Error().Err(err).Msg("incident window query failed")
		return nil, fmt.Errorf("list recent incidents: %w", err)
	}

	graph := &intel.Graph{
		Nodes: []intel.GraphNode{},
		Edges: []intel.GraphEdge{},
	}
	seenVehicles := make(map[string]string)
	seenPersons := make(map[string]string)

	for _, inc := range incidents {
		incNodeID := fmt.Sprintf("inc_%d", inc.ID)
		occurred := ""
		if inc.OccurredOn != nil {
			occurred = inc.OccurredOn.Format("2006-01-02")
		}
		graph.Nodes = append(graph.Nodes, intel.GraphNode{
			ID:    incNodeID,
			Kind:  intel.NodeIncident,
			Label: truncate(inc.Category, 15),
			Attributes: map[string]string{
				"case_ref":     inc.CaseRef,
				"neighborhood": deref(inc.Neighborhood),
				"date":         occurred,
			},
		})

		for _, p := range inc.Persons {
			key := utils.NormalizeName(p.NameAlias)
			role := ClassifyRole(p.Role)
			nodeID, ok := seenPersons[key]
			if !ok {
				nodeID = "per_" + key
				seenPersons[key] = nodeID
				graph.Nodes = append(graph.Nodes, intel.GraphNode{
					ID:    nodeID,
					Kind:  intel.NodePerson,
					Label: key,
					Attributes: map[string]string{
						"role": role,
						"sex":  p.Sex,
						"age":  p.Age,
					},
				})
			}
			graph.Edges = append(graph.Edges, intel.GraphEdge{From: incNodeID, To: nodeID})
		}

		for _, v := range inc.Vehicles {
			key := vehicleKey(v)
			nodeID, ok := seenVehicles[key]
			if !ok {
				nodeID = "veh_" + key
				seenVehicles[key] = nodeID
				graph.Nodes = append(graph.Nodes, intel.GraphNode{
					ID:    nodeID,
					Kind:  intel.NodeVehicle,
					Label: fmt.Sprintf("%s %s", v.Make, utils.NormalizePlate(v.Plate)),
					Attributes: map[string]string{
						"make":  v.Make,
						"model": v.Model,
						"color": v.Color,
					},
				})
			}
			graph.Edges = append(graph.Edges, intel.GraphEdge{From: incNodeID, To: nodeID})
		}
	}

	s.log.Debug().
		Int("incidents", len(incidents)).
		Int("nodes", len(graph.Nodes)).
		Int("edges", len(graph.Edges)).
		Msg("link graph built")

	return graph, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
