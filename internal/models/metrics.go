package models

import (
	"time"

	"github.com/google/uuid"
)

// PropertySummary is the short form used in metrics lists.
type PropertySummary struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	Status         PropertyStatus `json:"status"`
	Views          int64          `json:"views"`
	FavoritesCount int64          `json:"favorites_count"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TenantMetrics is a read-only report over one tenant's listings.
// Soft-deleted listings are not counted.
type TenantMetrics struct {
	TenantID       uuid.UUID                `json:"tenant_id"`
	Total          int64                    `json:"total"`
	ByStatus       map[PropertyStatus]int64 `json:"by_status"`
	TotalViews     int64                    `json:"total_views"`
	TotalFavorites int64                    `json:"total_favorites"`
	Users          int64                    `json:"users"`
	Recent         []PropertySummary        `json:"recent"`
	TopViewed      []PropertySummary        `json:"top_viewed"`
	GeneratedAt    time.Time                `json:"generated_at"`
}

// MetricsListSize is how many entries Recent and TopViewed carry.
const MetricsListSize = 5

func (p *Property) Summary() PropertySummary {
	return PropertySummary{
		ID:             p.ID,
		Title:          p.Title,
		Status:         p.Status,
		Views:          p.Views,
		FavoritesCount: p.FavoritesCount,
		CreatedAt:      p.CreatedAt,
	}
}

// TimeRange is the window of an engagement report.
type TimeRange string

const (
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
)

// ParseTimeRange accepts day, week or month. Empty means week.
func ParseTimeRange(s string) (TimeRange, bool) {
	switch r := TimeRange(s); r {
	case "":
		return TimeRangeWeek, true
	case TimeRangeDay, TimeRangeWeek, TimeRangeMonth:
		return r, true
	default:
		return "", false
	}
}

// Since returns the start of the window ending at end.
func (r TimeRange) Since(end time.Time) time.Time {
	switch r {
	case TimeRangeDay:
		return end.AddDate(0, 0, -1)
	case TimeRangeMonth:
		return end.AddDate(0, -1, 0)
	default:
		return end.AddDate(0, 0, -7)
	}
}

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EngagementMetrics reports listing activity in a window. Created and
// Published count listings whose timestamp falls inside it; TotalViews and
// TotalFavorites are the running totals of the listings published right
// now.
type EngagementMetrics struct {
	TenantID            uuid.UUID `json:"tenant_id"`
	TimeRange           TimeRange `json:"time_range"`
	Period              Period    `json:"period"`
	PropertiesCreated   int64     `json:"properties_created"`
	PropertiesPublished int64     `json:"properties_published"`
	TotalViews          int64     `json:"total_views"`
	TotalFavorites      int64     `json:"total_favorites"`
}
