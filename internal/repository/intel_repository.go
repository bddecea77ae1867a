package repository

import (
	"context"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"intel-service/internal/domain/intel"
)

type IntelRepository struct {
	db *gorm.DB
}

func NewIntelRepository(db *gorm.DB) *IntelRepository {
	return &IntelRepository{db: db}
}

type Incident struct {
	ID           int64  `gorm:"primaryKey"`
	CaseRef      string `gorm:"not null;uniqueIndex"`
	ExternalRef  *string
	Category     string `gorm:"not null"`
	Narrative    string
	Reasoning    *string
	Street       *string
	Neighborhood *string
	Lat          string `gorm:"default:0.0"`
	Lon          string `gorm:"default:0.0"`
	OccurredOn   *time.Time
	OccurredTime *string
	RecordedAt   time.Time

	Vehicles  []IncidentVehicle `gorm:"foreignKey:IncidentID"`
	Persons   []IncidentPerson  `gorm:"foreignKey:IncidentID"`
	Evidences []Evidence        `gorm:"foreignKey:IncidentID"`
}

type IncidentVehicle struct {
	ID         int64 `gorm:"primaryKey"`
	IncidentID int64 `gorm:"not null;index"`
	Make       string
	Model      string
	Year       string
	Color      string
	Plate      string
}

type IncidentPerson struct {
	ID         int64 `gorm:"primaryKey"`
	IncidentID int64 `gorm:"not null;index"`
	Role       string
	NameAlias  string
	Sex        string
	Age        string
	Clothing   string
}

func (IncidentPerson) TableName() string { return "incident_persons" }

type Evidence struct {
	ID         int64 `gorm:"primaryKey"`
	IncidentID int64 `gorm:"not null;index"`
	FilePath   string
	Kind       string `gorm:"default:image"`
}

func (Evidence) TableName() string { return "evidences" }

type WatchEntry struct {
	ID           int64  `gorm:"primaryKey"`
	Plate        string `gorm:"not null;uniqueIndex"`
	Make         *string
	Model        *string
	Color        *string
	Year         *string
	Owner        *string
	Status       string `gorm:"default:SOSPECHOSO"`
	AlertLevel   string `gorm:"default:MEDIA"`
	Notes        *string
	RegisteredAt time.Time
}

type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	FullName     string
	Role         string
	CreatedAt    time.Time
}

type SightingLog struct {
	ID              int64 `gorm:"primaryKey"`
	RawPlate        string
	NormalizedPlate string `gorm:"index"`
	Source          string
	ReporterID      string
	Outcome         string
	AlertCount      int
	RawPayload      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time
}

// FindWatchEntries returns the watch-list records whose canonical plate
// equals the normalized query. Plates are stored normalized, so this is an
// exact match.
func (r *IntelRepository) FindWatchEntries(ctx context.Context, normalized string) ([]intel.WatchEntry, error) {
	var rows []WatchEntry
	err := r.db.WithContext(ctx).
		Where("plate = ?", normalized).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]intel.WatchEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, intel.WatchEntry{
			Plate:        row.Plate,
			Status:       row.Status,
			Make:         deref(row.Make),
			Model:        deref(row.Model),
			Notes:        deref(row.Notes),
			RegisteredAt: row.RegisteredAt,
		})
	}
	return out, nil
}

// FindIncidentVehicles returns incident-history vehicle records whose
// normalized plate contains the query, most recent incident first.
// Containment rather than equality is deliberate: it absorbs partial OCR
// reads, at the accepted cost of false positives on very short plates.
func (r *IntelRepository) FindIncidentVehicles(ctx context.Context, normalized string) ([]intel.IncidentVehicleHit, error) {
	type row struct {
		Plate      string
		Make       string
		Model      string
		IncidentID int64
		CaseRef    string
		Category   string
		Narrative  string
		OccurredOn *time.Time
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Table("incident_vehicles").
		Select(`incident_vehicles.plate, incident_vehicles.make, incident_vehicles.model,
			incidents.id as incident_id, incidents.case_ref, incidents.category,
			incidents.narrative, incidents.occurred_on`).
		Joins("JOIN incidents ON incident_vehicles.incident_id = incidents.id").
		Where(`REPLACE(REPLACE(UPPER(incident_vehicles.plate), '-', ''), ' ', '') LIKE ?`, "%"+normalized+"%").
		Order("incidents.occurred_on DESC NULLS LAST").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]intel.IncidentVehicleHit, 0, len(rows))
	for _, row := range rows {
		occurred := "S/F"
		if row.OccurredOn != nil {
			occurred = row.OccurredOn.Format("2006-01-02")
		}
		out = append(out, intel.IncidentVehicleHit{
			Plate:      row.Plate,
			Make:       row.Make,
			Model:      row.Model,
			IncidentID: row.IncidentID,
			CaseRef:    row.CaseRef,
			Category:   row.Category,
			Narrative:  row.Narrative,
			OccurredAt: occurred,
		})
	}
	return out, nil
}

// ListRecentIncidents returns the most recently recorded incidents with
// their vehicles, persons and evidence, for the link-graph window.
func (r *IntelRepository) ListRecentIncidents(ctx context.Context, limit int) ([]Incident, error) {
	var incidents []Incident
	err := r.db.WithContext(ctx).
		Preload("Vehicles").
		Preload("Persons").
		Preload("Evidences").
		Order("recorded_at DESC").
		Limit(limit).
		Find(&incidents).Error
	return incidents, err
}

// SearchIncidents filters incidents by case refs, category, neighborhood or
// an involved plate.
func (r *IntelRepository) SearchIncidents(ctx context.Context, q string, limit int) ([]Incident, error) {
	query := r.db.WithContext(ctx).Model(&Incident{})
	if q != "" {
		term := "%" + q + "%"
		query = query.
			Joins("LEFT JOIN incident_vehicles ON incident_vehicles.incident_id = incidents.id").
			Where(`incidents.case_ref ILIKE ? OR incidents.external_ref ILIKE ?
				OR incidents.category ILIKE ? OR incidents.neighborhood ILIKE ?
				OR incident_vehicles.plate ILIKE ?`,
				term, term, term, term, term).
			Distinct("incidents.*")
	}

	var incidents []Incident
	err := query.
		Preload("Vehicles").
		Preload("Persons").
		Preload("Evidences").
		Order("incidents.recorded_at DESC").
		Limit(limit).
		Find(&incidents).Error
	return incidents, err
}

// GetIncidentByCaseRef returns the incident with the given internal case
// reference, or gorm.ErrRecordNotFound.
func (r *IntelRepository) GetIncidentByCaseRef(ctx context.Context, caseRef string) (*Incident, error) {
	var incident Incident
	err := r.db.WithContext(ctx).
		Where("case_ref = ?", caseRef).
		First(&incident).Error
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

// SaveIncident creates or updates an incident. On update the nested
// vehicle and person lists are replaced wholesale, matching how the entry
// form resubmits the full record.
func (r *IntelRepository) SaveIncident(ctx context.Context, incident *Incident) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if incident.ID != 0 {
			if err := tx.Where("incident_id = ?", incident.ID).Delete(&IncidentVehicle{}).Error; err != nil {
				return err
			}
			if err := tx.Where("incident_id = ?", incident.ID).Delete(&IncidentPerson{}).Error; err != nil {
				return err
			}
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(incident).Error
	})
}

// DeleteIncident removes an incident and its dependents.
func (r *IntelRepository) DeleteIncident(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var incident Incident
		if err := tx.First(&incident, id).Error; err != nil {
			return err
		}
		for _, m := range []any{&IncidentVehicle{}, &IncidentPerson{}, &Evidence{}} {
			if err := tx.Where("incident_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&incident).Error
	})
}

type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Stats struct {
	TotalIncidents   int64       `json:"total_incidents"`
	TotalVehicles    int64       `json:"total_vehicles"`
	TopCategories    []NameCount `json:"top_categories"`
	TopNeighborhoods []NameCount `json:"top_neighborhoods"`
	Heatmap          [][]float64 `json:"heatmap"`
}

// GetStats computes the dashboard counters and the incident heatmap.
// Sentinel coordinates are excluded from the heatmap.
func (r *IntelRepository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		TopCategories:    []NameCount{},
		TopNeighborhoods: []NameCount{},
		Heatmap:          [][]float64{},
	}

	if err := r.db.WithContext(ctx).Model(&Incident{}).Count(&stats.TotalIncidents).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&IncidentVehicle{}).
		Distinct("plate").Count(&stats.TotalVehicles).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&Incident{}).
		Select("category as name, count(*) as count").
		Group("category").
		Order("count DESC").
		Limit(5).
		Scan(&stats.TopCategories).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&Incident{}).
		Select("neighborhood as name, count(*) as count").
		Where("neighborhood IS NOT NULL AND neighborhood != ''").
		Group("neighborhood").
		Order("count DESC").
		Limit(5).
		Scan(&stats.TopNeighborhoods).Error; err != nil {
		return nil, err
	}

	type point struct {
		Lat string
		Lon string
	}
	var points []point
	if err := r.db.WithContext(ctx).Model(&Incident{}).
		Select("lat, lon").
		Where("lat != '' AND lat != '0.0' AND lon != '' AND lon != '0.0'").
		Scan(&points).Error; err != nil {
		return nil, err
	}
	for _, p := range points {
		lat, lon, ok := parseCoords(p.Lat, p.Lon)
		if !ok {
			continue
		}
		stats.Heatmap = append(stats.Heatmap, []float64{lat, lon, 1.0})
	}
	return stats, nil
}

// CreateSightingLog records one plate check for the audit trail.
func (r *IntelRepository) CreateSightingLog(ctx context.Context, log *SightingLog) error {
	log.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *IntelRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *IntelRepository) CreateUser(ctx context.Context, user *User) error {
	user.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *IntelRepository) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := r.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, err
}

func (r *IntelRepository) DeleteUser(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&User{}, id).Error
}

func parseCoords(lat, lon string) (float64, float64, bool) {
	fLat, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return 0, 0, false
	}
	fLon, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return 0, 0, false
	}
	return fLat, fLon, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
