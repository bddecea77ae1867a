package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"intel-service/internal/repository"
)

type vehicleInput struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
	Color string `json:"color"`
	Plate string `json:"plate"`
}

type personInput struct {
	Role      string `json:"role"`
	NameAlias string `json:"name_alias"`
	Sex       string `json:"sex"`
	Age       string `json:"age"`
	Clothing  string `json:"clothing"`
}

type incidentInput struct {
	CaseRef      string         `json:"case_ref"`
	ExternalRef  string         `json:"external_ref"`
	Category     string         `json:"category"`
	Narrative    string         `json:"narrative"`
	Reasoning    string         `json:"reasoning"`
	Street       string         `json:"street"`
	Neighborhood string         `json:"neighborhood"`
	Lat          string         `json:"lat"`
	Lon          string         `json:"lon"`
	OccurredOn   string         `json:"occurred_on"`
	OccurredTime string         `json:"occurred_time"`
	Vehicles     []vehicleInput `json:"vehicles"`
	Persons      []personInput  `json:"persons"`
}

// newCaseRef mints an internal case reference, e.g. OPS-2026-3FA1.
func newCaseRef() string {
	return strings.ToUpper(
		"OPS-" + time.Now().Format("2006") + "-" + uuid.NewString()[:4])
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func (h *Handler) saveIncident(c *gin.Context) {
	var in incidentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if strings.TrimSpace(in.Narrative) == "" {
		c.JSON(http.StatusBadRequest, errorResponse("narrative is required"))
		return
	}

	incident := &repository.Incident{
		CaseRef:      in.CaseRef,
		ExternalRef:  optional(in.ExternalRef),
		Category:     orDefault(in.Category, "OTROS"),
		Narrative:    in.Narrative,
		Reasoning:    optional(in.Reasoning),
		Street:       optional(in.Street),
		Neighborhood: optional(in.Neighborhood),
		Lat:          orDefault(in.Lat, "0.0"),
		Lon:          orDefault(in.Lon, "0.0"),
		OccurredTime: optional(in.OccurredTime),
		RecordedAt:   time.Now(),
	}

	if in.OccurredOn != "" {
		if d, err := time.Parse("2006-01-02", in.OccurredOn); err == nil {
			incident.OccurredOn = &d
		}
	}
	if incident.OccurredOn == nil {
		today := time.Now().Truncate(24 * time.Hour)
		incident.OccurredOn = &today
	}

	if in.CaseRef != "" {
		existing, err := h.repo.GetIncidentByCaseRef(c.Request.Context(), in.CaseRef)
		switch {
		case err == nil:
			incident.ID = existing.ID
			incident.RecordedAt = existing.RecordedAt
		case err == gorm.ErrRecordNotFound:
			// New record keeping a caller-chosen reference.
		default:
			h.handleError(c, err)
			return
		}
	} else {
		incident.CaseRef = newCaseRef()
	}

	for _, v := range in.Vehicles {
		incident.Vehicles = append(incident.Vehicles, repository.IncidentVehicle{
			Make:  orDefault(v.Make, "DESCONOCIDO"),
			Model: orDefault(v.Model, "DESCONOCIDO"),
			Year:  orDefault(v.Year, "SIN AÑO"),
			Color: orDefault(v.Color, "DESCONOCIDO"),
			Plate: orDefault(v.Plate, "SIN PLACAS"),
		})
	}
	for _, p := range in.Persons {
		incident.Persons = append(incident.Persons, repository.IncidentPerson{
			Role:      orDefault(p.Role, "PRESUNTO"),
			NameAlias: orDefault(p.NameAlias, "DESCONOCIDO"),
			Sex:       orDefault(p.Sex, "SIN SEXO"),
			Age:       orDefault(p.Age, "DESC"),
			Clothing:  p.Clothing,
		})
	}

	if err := h.repo.SaveIncident(c.Request.Context(), incident); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":   "ok",
		"case_ref": incident.CaseRef,
		"id":       incident.ID,
	})
}

func (h *Handler) deleteIncident(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteIncident(c.Request.Context(), id); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, errorResponse("incident not found"))
			return
		}
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

func (h *Handler) searchIncidents(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))

	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := parseInt(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	incidents, err := h.repo.SearchIncidents(c.Request.Context(), q, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]incidentInfo, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, toIncidentInfo(inc))
	}
	c.JSON(http.StatusOK, successResponse(out))
}

type incidentInfo struct {
	ID           int64          `json:"id"`
	CaseRef      string         `json:"case_ref"`
	ExternalRef  string         `json:"external_ref,omitempty"`
	Category     string         `json:"category"`
	Narrative    string         `json:"narrative"`
	Reasoning    string         `json:"reasoning,omitempty"`
	Street       string         `json:"street,omitempty"`
	Neighborhood string         `json:"neighborhood,omitempty"`
	Lat          string         `json:"lat"`
	Lon          string         `json:"lon"`
	OccurredOn   string         `json:"occurred_on,omitempty"`
	OccurredTime string         `json:"occurred_time,omitempty"`
	Vehicles     []vehicleInput `json:"vehicles"`
	Persons      []personInput  `json:"persons"`
	Evidences    []string       `json:"evidences"`
}

func toIncidentInfo(inc repository.Incident) incidentInfo {
	info := incidentInfo{
		ID:           inc.ID,
		CaseRef:      inc.CaseRef,
		ExternalRef:  strDeref(inc.ExternalRef),
		Category:     inc.Category,
		Narrative:    inc.Narrative,
		Reasoning:    strDeref(inc.Reasoning),
		Street:       strDeref(inc.Street),
		Neighborhood: strDeref(inc.Neighborhood),
		Lat:          inc.Lat,
		Lon:          inc.Lon,
		OccurredTime: strDeref(inc.OccurredTime),
		Vehicles:     []vehicleInput{},
		Persons:      []personInput{},
		Evidences:    []string{},
	}
	if inc.OccurredOn != nil {
		info.OccurredOn = inc.OccurredOn.Format("2006-01-02")
	}
	for _, v := range inc.Vehicles {
		info.Vehicles = append(info.Vehicles, vehicleInput{
			Make: v.Make, Model: v.Model, Year: v.Year, Color: v.Color, Plate: v.Plate,
		})
	}
	for _, p := range inc.Persons {
		info.Persons = append(info.Persons, personInput{
			Role: p.Role, NameAlias: p.NameAlias, Sex: p.Sex, Age: p.Age, Clothing: p.Clothing,
		})
	}
	for _, e := range inc.Evidences {
		info.Evidences = append(info.Evidences, e.FilePath)
	}
	return info
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
