// Package eventsink publishes domain events fire-and-forget onto a Redis
// Stream via a dedicated client.
package eventsink

import "time"

// BranchRegistered is published after a successful registration.
type BranchRegistered struct {
	EventType     string    `json:"eventType"`
	Version       string    `json:"version"`
	BranchID      string    `json:"branchId"`
	BranchName    string    `json:"branchName"`
	BranchType    string    `json:"branchType"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"`
}

// NewBranchRegistered fills in the fixed eventType/version fields.
func NewBranchRegistered(id, name, branchType string, lat, lon float64, occurredAt time.Time, correlationID string) BranchRegistered {
	return BranchRegistered{
		EventType:     "BRANCH_REGISTERED",
		Version:       "1.0",
		BranchID:      id,
		BranchName:    name,
		BranchType:    branchType,
		Latitude:      lat,
		Longitude:     lon,
		OccurredAt:    occurredAt,
		CorrelationID: correlationID,
	}
}

// ProximityQueried is published after every nearest-branch query, whether
// served from cache or computed fresh.
type ProximityQueried struct {
	EventType       string    `json:"eventType"`
	Version         string    `json:"version"`
	UserLatitude    float64   `json:"userLatitude"`
	UserLongitude   float64   `json:"userLongitude"`
	RadiusKm        float64   `json:"radiusKm"`
	MaxResults      int       `json:"maxResults"`
	FoundBranchIDs  []string  `json:"foundBranchIds"`
	ExecutionTimeMs float64   `json:"executionTimeMs"`
	CacheHit        bool      `json:"cacheHit"`
	OccurredAt      time.Time `json:"occurredAt"`
	CorrelationID   string    `json:"correlationId"`
	SessionID       string    `json:"sessionId"`
}

// NewProximityQueried fills in the fixed eventType/version fields.
func NewProximityQueried(userLat, userLon, radiusKm float64, maxResults int, foundIDs []string, executionMs float64, cacheHit bool, occurredAt time.Time, correlationID, sessionID string) ProximityQueried {
	return ProximityQueried{
		EventType:       "PROXIMITY_QUERIED",
		Version:         "1.0",
		UserLatitude:    userLat,
		UserLongitude:   userLon,
		RadiusKm:        radiusKm,
		MaxResults:      maxResults,
		FoundBranchIDs:  foundIDs,
		ExecutionTimeMs: executionMs,
		CacheHit:        cacheHit,
		OccurredAt:      occurredAt,
		CorrelationID:   correlationID,
		SessionID:       sessionID,
	}
}
