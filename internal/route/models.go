package route

import "time"

type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

type VoteContext string

const (
	ContextSafety     VoteContext = "safety"
	ContextEfficiency VoteContext = "efficiency"
	ContextScenery    VoteContext = "scenery"
)

type SortOrder string

const (
	SortRecent    SortOrder = "recent"
	SortPopular   SortOrder = "popular"
	SortEfficient SortOrder = "efficient"
)

// ParseSort maps a query value to a sort order; unknown values mean recent.
func ParseSort(s string) SortOrder {
	switch SortOrder(s) {
	case SortPopular, SortEfficient:
		return SortOrder(s)
	default:
		return SortRecent
	}
}

type RoutePoint struct {
	Sequence       int       `json:"sequence"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	AccuracyMeters *float64  `json:"accuracy_meters"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// RawPoint is a point as submitted by a client; absent fields stay nil.
type RawPoint struct {
	Sequence       *int       `json:"sequence"`
	Lat            *float64   `json:"lat"`
	Lng            *float64   `json:"lng"`
	AccuracyMeters *float64   `json:"accuracy_meters"`
	RecordedAt     *time.Time `json:"recorded_at"`
}

type Route struct {
	ID              string    `json:"id"`
	CreatorID       *string   `json:"creator_id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	StartLabel      string    `json:"start_label"`
	EndLabel        string    `json:"end_label"`
	StartLat        float64   `json:"start_lat"`
	StartLng        float64   `json:"start_lng"`
	EndLat          float64   `json:"end_lat"`
	EndLng          float64   `json:"end_lng"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	DistanceMeters  float64   `json:"distance_meters"`
	IsActive        bool      `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewRoute carries the arguments of create_route_with_geography.
type NewRoute struct {
	CreatorID       string
	Title           string
	Description     *string
	StartLabel      string
	EndLabel        string
	StartLat        float64
	StartLng        float64
	EndLat          float64
	EndLng          float64
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
	DistanceMeters  float64
}

type VoteStats struct {
	VoteCount int     `json:"vote_count"`
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	AvgRating float64 `json:"avg_rating"`
}

type RouteSummary struct {
	Route
	Tags []string `json:"tags"`
	VoteStats
}

type RouteDetail struct {
	RouteSummary
	Points []RoutePoint `json:"route_points"`
}

type Vote struct {
	RouteID  string      `json:"route_id"`
	UserID   string      `json:"user_id"`
	VoteType VoteType    `json:"vote_type"`
	Context  VoteContext `json:"context"`
}

type VoteResult struct {
	RouteID  string      `json:"route_id"`
	UserID   string      `json:"user_id"`
	VoteType VoteType    `json:"vote_type"`
	Context  VoteContext `json:"context"`
	VoteStats
}

type Tag struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category *string `json:"category"`
}

type Comment struct {
	ID        string    `json:"id"`
	RouteID   string    `json:"route_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRouteRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description *string    `json:"description"`
	StartLabel  string     `json:"start_label" validate:"required"`
	EndLabel    string     `json:"end_label" validate:"required"`
	StartTime   string     `json:"start_time" validate:"required"`
	EndTime     string     `json:"end_time" validate:"required"`
	Points      []RawPoint `json:"points" validate:"min=1"`
	Tags        []string   `json:"tags"`
}

type VoteRequest struct {
	VoteType string `json:"vote_type" validate:"oneof=up down"`
	Context  string `json:"context" validate:"oneof=safety efficiency scenery"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}
