// Package location keeps the last known position of every field unit.
// The cache is process-wide and never persisted: a restart means every
// unit is back to WAITING_SIGNAL until its next ping.
package location

import (
	"sync"
	"time"

	"intel-service/internal/domain/intel"
)

// unset reports whether a coordinate is the no-fix sentinel sent by
// devices without a GPS lock. "0" shows up from some firmwares, so both
// spellings count.
func unset(coord string) bool {
	return coord == "" || coord == "0.0" || coord == "0"
}

// Cache maps unit ids to their last known position. Safe for concurrent
// use; each update replaces the whole entry so readers never observe a
// half-written fix.
type Cache struct {
	mu         sync.RWMutex
	positions  map[string]intel.UnitPosition
	defaultLat string
	defaultLon string
	staleAfter time.Duration
	now        func() time.Time
}

// NewCache creates a cache falling back to the given headquarters
// coordinate when a unit has never reported.
func NewCache(defaultLat, defaultLon string, staleAfter time.Duration) *Cache {
	return &Cache{
		positions:  make(map[string]intel.UnitPosition),
		defaultLat: defaultLat,
		defaultLon: defaultLon,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// UpdatePosition stores a unit's fix, overwriting any previous entry.
// A sentinel fix (both coordinates unset) is dropped: "no signal" must not
// erase a last-known-good position.
func (c *Cache) UpdatePosition(unitID, lat, lon string) {
	if unset(lat) && unset(lon) {
		return
	}
	c.mu.Lock()
	c.positions[unitID] = intel.UnitPosition{
		UnitID:     unitID,
		Lat:        lat,
		Lon:        lon,
		ReceivedAt: c.now(),
		Status:     intel.StatusOnline,
	}
	c.mu.Unlock()
}

// Position returns the stored entry for a unit, or a WAITING_SIGNAL
// sentinel when the unit has never reported. Never an error: "no data yet"
// is a normal state for a unit that just came on shift.
func (c *Cache) Position(unitID string) intel.UnitPosition {
	c.mu.RLock()
	pos, ok := c.positions[unitID]
	c.mu.RUnlock()
	if !ok {
		return intel.UnitPosition{UnitID: unitID, Status: intel.StatusWaitingSignal}
	}
	return pos
}

// Stale reports whether a position is older than the configured staleness
// window. The cache runs no reaper; readers decide what stale means.
func (c *Cache) Stale(pos intel.UnitPosition) bool {
	if pos.Status != intel.StatusOnline || c.staleAfter <= 0 {
		return false
	}
	return c.now().Sub(pos.ReceivedAt) > c.staleAfter
}

// Resolve picks the best coordinate for an alert: the request's own fix
// when both coordinates are real, else the reporting unit's cached fix,
// else headquarters. Every alert carries some coordinate; a stale or
// default position is an accepted approximation, not an error.
func (c *Cache) Resolve(lat, lon, unitID string) (string, string) {
	if !unset(lat) && !unset(lon) {
		return lat, lon
	}
	c.mu.RLock()
	pos, ok := c.positions[unitID]
	c.mu.RUnlock()
	if ok {
		return pos.Lat, pos.Lon
	}
	return c.defaultLat, c.defaultLon
}
