package route

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geom/encoding/geojson"

	"backend-routeshare/internal/metrics"
	"backend-routeshare/internal/shared/apperr"
	"backend-routeshare/internal/shared/geo"
	"backend-routeshare/internal/shared/validation"
)

// MaxFeedLimit caps the number of routes a feed listing fetches.
const MaxFeedLimit = 100

// Publisher receives route events for live subscribers.
type Publisher interface {
	Broadcast(routeID string, payload []byte)
}

// Event is the message pushed to route subscribers.
type Event struct {
	Type    string `json:"type"`
	RouteID string `json:"route_id"`
	Data    any    `json:"data"`
}

type Service struct {
	store     Store
	publisher Publisher
	feedLimit int
}

// NewService builds the route service. publisher may be nil.
func NewService(store Store, publisher Publisher, feedLimit int) *Service {
	if feedLimit <= 0 || feedLimit > MaxFeedLimit {
		feedLimit = MaxFeedLimit
	}
	return &Service{store: store, publisher: publisher, feedLimit: feedLimit}
}

// CreateRoute validates the request, derives duration and distance, and
// persists the route with its points in one transaction. Tags are linked
// afterwards; a failed link is logged and skipped.
func (s *Service) CreateRoute(ctx context.Context, creatorID string, req CreateRouteRequest) (string, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.StartLabel = strings.TrimSpace(req.StartLabel)
	req.EndLabel = strings.TrimSpace(req.EndLabel)
	err := apperr.MergeMissing(validation.Struct(req), missingPointFields(req.Points)...)
	if err != nil {
		return "", err
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return "", apperr.InvalidField("start_time")
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return "", apperr.InvalidField("end_time")
	}
	if endTime.Before(startTime) {
		return "", apperr.Validation("end_time must not be before start_time")
	}

	path, err := NormalizePoints(req.Points)
	if err != nil {
		return "", err
	}
	if seq, dup := duplicateSequence(path.Points); dup {
		return "", apperr.Validation("duplicate point sequence %d", seq)
	}

	newRoute := NewRoute{
		CreatorID:       creatorID,
		Title:           req.Title,
		Description:     req.Description,
		StartLabel:      req.StartLabel,
		EndLabel:        req.EndLabel,
		StartLat:        path.Start.Lat,
		StartLng:        path.Start.Lng,
		EndLat:          path.End.Lat,
		EndLng:          path.End.Lng,
		StartTime:       startTime,
		EndTime:         endTime,
		DurationSeconds: int64(endTime.Sub(startTime) / time.Second),
		DistanceMeters:  geo.TotalDistance(path.Coordinates()),
	}

	var routeID string
	err = s.store.InTx(ctx, func(tx Store) error {
		id, err := tx.CreateRouteWithGeography(ctx, newRoute)
		if err != nil {
			return apperr.Storage("create route", err)
		}
		if err := tx.InsertRoutePoints(ctx, id, path.Points); err != nil {
			return apperr.Storage("insert route points", err)
		}
		routeID = id
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", apperr.Storage("create route", err)
	}

	for _, tagID := range req.Tags {
		if err := s.store.LinkTag(ctx, routeID, tagID); err != nil {
			metrics.TagLinkFailures.Inc()
			log.Warn().Err(err).Str("route_id", routeID).Str("tag_id", tagID).Msg("tag association failed")
		}
	}

	metrics.RoutesCreated.Inc()
	log.Info().
		Str("route_id", routeID).
		Int("points", len(path.Points)).
		Float64("distance_meters", newRoute.DistanceMeters).
		Int64("duration_seconds", newRoute.DurationSeconds).
		Msg("route created")
	return routeID, nil
}

// ListRoutes returns active routes with votes and tags attached, filtered by
// tag names (comma separated, case-insensitive) and sorted by order.
func (s *Service) ListRoutes(ctx context.Context, tagsCSV string, order SortOrder) ([]RouteSummary, error) {
	metrics.FeedRequests.WithLabelValues(string(order)).Inc()

	routes, err := s.store.ListActiveRoutes(ctx, s.feedLimit)
	if err != nil {
		return nil, apperr.Storage("list routes", err)
	}

	summaries, err := s.summarize(ctx, routes)
	if err != nil {
		return nil, err
	}
	summaries = filterByTags(summaries, parseTagFilter(tagsCSV))
	sortRoutes(summaries, order)
	return summaries, nil
}

// GetRoute returns an active route with votes, tags and its ordered points.
func (s *Service) GetRoute(ctx context.Context, id string) (RouteDetail, error) {
	r, err := s.activeRoute(ctx, id)
	if err != nil {
		return RouteDetail{}, err
	}

	summaries, err := s.summarize(ctx, []Route{r})
	if err != nil {
		return RouteDetail{}, err
	}
	points, err := s.store.RoutePoints(ctx, r.ID)
	if err != nil {
		return RouteDetail{}, apperr.Storage("load route points", err)
	}
	if points == nil {
		points = []RoutePoint{}
	}
	return RouteDetail{RouteSummary: summaries[0], Points: points}, nil
}

// RouteGeoJSON returns the route path as a GeoJSON feature.
func (s *Service) RouteGeoJSON(ctx context.Context, id string) (*geojson.Feature, error) {
	detail, err := s.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	coords := make([]geo.Point, len(detail.Points))
	for i, p := range detail.Points {
		coords[i] = geo.Point{Lat: p.Lat, Lng: p.Lng}
	}
	return geo.PathFeature(detail.ID, coords, map[string]interface{}{
		"title":            detail.Title,
		"start_label":      detail.StartLabel,
		"end_label":        detail.EndLabel,
		"distance_meters":  detail.DistanceMeters,
		"duration_seconds": detail.DurationSeconds,
	})
}

// CastVote upserts the user's vote on a route and returns the new totals.
// A user holds one vote per route; voting again replaces type and context.
func (s *Service) CastVote(ctx context.Context, routeID, userID string, req VoteRequest) (VoteResult, error) {
	if err := validation.Struct(req); err != nil {
		return VoteResult{}, err
	}
	if _, err := s.activeRoute(ctx, routeID); err != nil {
		return VoteResult{}, err
	}

	vote := Vote{
		RouteID:  routeID,
		UserID:   userID,
		VoteType: VoteType(req.VoteType),
		Context:  VoteContext(req.Context),
	}
	if err := s.store.UpsertVote(ctx, vote); err != nil {
		return VoteResult{}, apperr.Storage("save vote", err)
	}
	metrics.VotesCast.WithLabelValues(req.VoteType, req.Context).Inc()

	votes, err := s.store.VotesForRoutes(ctx, []string{routeID})
	if err != nil {
		return VoteResult{}, apperr.Storage("load votes", err)
	}
	result := VoteResult{
		RouteID:   routeID,
		UserID:    userID,
		VoteType:  vote.VoteType,
		Context:   vote.Context,
		VoteStats: Aggregate(votes),
	}
	s.publish(Event{Type: "vote", RouteID: routeID, Data: result.VoteStats})
	return result, nil
}

func (s *Service) AddComment(ctx context.Context, routeID, userID string, req CommentRequest) (Comment, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := validation.Struct(req); err != nil {
		return Comment{}, err
	}
	if _, err := s.activeRoute(ctx, routeID); err != nil {
		return Comment{}, err
	}

	comment, err := s.store.AddComment(ctx, Comment{
		ID:      uuid.NewString(),
		RouteID: routeID,
		UserID:  userID,
		Content: req.Content,
	})
	if err != nil {
		return Comment{}, apperr.Storage("save comment", err)
	}
	s.publish(Event{Type: "comment", RouteID: routeID, Data: comment})
	return comment, nil
}

func (s *Service) Comments(ctx context.Context, routeID string) ([]Comment, error) {
	if _, err := s.activeRoute(ctx, routeID); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments(ctx, routeID)
	if err != nil {
		return nil, apperr.Storage("load comments", err)
	}
	if comments == nil {
		comments = []Comment{}
	}
	return comments, nil
}

func (s *Service) Tags(ctx context.Context) ([]Tag, error) {
	tags, err := s.store.Tags(ctx)
	if err != nil {
		return nil, apperr.Storage("load tags", err)
	}
	if tags == nil {
		tags = []Tag{}
	}
	return tags, nil
}

func (s *Service) activeRoute(ctx context.Context, id string) (Route, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Route{}, apperr.NotFound("route")
	}
	r, err := s.store.GetActiveRoute(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Route{}, apperr.NotFound("route")
	}
	if err != nil {
		return Route{}, apperr.Storage("load route", err)
	}
	return r, nil
}

// summarize attaches aggregated votes and tag names with one batched query each.
func (s *Service) summarize(ctx context.Context, routes []Route) ([]RouteSummary, error) {
	summaries := make([]RouteSummary, len(routes))
	if len(routes) == 0 {
		return summaries, nil
	}

	ids := make([]string, len(routes))
	for i, r := range routes {
		ids[i] = r.ID
	}
	votes, err := s.store.VotesForRoutes(ctx, ids)
	if err != nil {
		return nil, apperr.Storage("load votes", err)
	}
	tags, err := s.store.TagNamesForRoutes(ctx, ids)
	if err != nil {
		return nil, apperr.Storage("load tags", err)
	}

	byRoute := groupVotes(votes)
	for i, r := range routes {
		names := tags[r.ID]
		if names == nil {
			names = []string{}
		}
		summaries[i] = RouteSummary{
			Route:     r,
			Tags:      names,
			VoteStats: Aggregate(byRoute[r.ID]),
		}
	}
	return summaries, nil
}

func (s *Service) publish(ev Event) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Str("route_id", ev.RouteID).Msg("encode route event")
		return
	}
	s.publisher.Broadcast(ev.RouteID, payload)
}
