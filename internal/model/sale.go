package model

import "time"

// SaleStatus describes where the current instant falls relative to the
// sale window.
type SaleStatus string

const (
	SaleUpcoming SaleStatus = "UPCOMING"
	SaleActive   SaleStatus = "ACTIVE"
	SaleEnded    SaleStatus = "ENDED"
)

// Sale represents a time-bounded sale offering a fixed number of units.
type Sale struct {
	ID         string    `json:"sale_id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	TotalStock int       `json:"total_stock"`
	CreatedAt  time.Time `json:"-"` // Not exposed in API
	UpdatedAt  time.Time `json:"-"` // Not exposed in API
}

// StatusAt derives the sale status from the given instant.
// The window is inclusive on both ends.
func (s *Sale) StatusAt(now time.Time) SaleStatus {
	switch {
	case now.Before(s.StartTime):
		return SaleUpcoming
	case now.After(s.EndTime):
		return SaleEnded
	default:
		return SaleActive
	}
}

// SaleStatusResponse is the API response DTO for GET /api/sale/status.
type SaleStatusResponse struct {
	SaleID         string     `json:"sale_id"`
	Name           string     `json:"name"`
	Status         SaleStatus `json:"status"`
	RemainingStock int64      `json:"remaining_stock"`
	TotalStock     int        `json:"total_stock"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"`
}
