package route

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var errStore = errors.New("store error")

type voteKey struct{ routeID, userID string }

// memStore is an in-memory Store with failure injection for service tests.
type memStore struct {
	routes   map[string]Route
	points   map[string][]RoutePoint
	tagNames map[string]string // tag id -> name
	links    map[string][]string
	votes    map[voteKey]Vote
	comments map[string][]Comment

	failCreate bool
	failPoints bool
	failTags   map[string]bool
	failList   bool
	failVotes  bool

	createCalls int
	clock       time.Time
}

func newMemStore() *memStore {
	return &memStore{
		routes:   map[string]Route{},
		points:   map[string][]RoutePoint{},
		tagNames: map[string]string{},
		links:    map[string][]string{},
		votes:    map[voteKey]Vote{},
		comments: map[string][]Comment{},
		failTags: map[string]bool{},
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// seedRoute inserts a route directly, bypassing ingestion.
func (m *memStore) seedRoute(r Route, tags ...string) Route {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.routes[r.ID] = r
	for _, name := range tags {
		tagID := uuid.NewString()
		m.tagNames[tagID] = name
		m.links[r.ID] = append(m.links[r.ID], tagID)
	}
	return r
}

func (m *memStore) InTx(ctx context.Context, fn func(Store) error) error {
	routes := make(map[string]Route, len(m.routes))
	for k, v := range m.routes {
		routes[k] = v
	}
	points := make(map[string][]RoutePoint, len(m.points))
	for k, v := range m.points {
		points[k] = v
	}
	if err := fn(m); err != nil {
		m.routes = routes
		m.points = points
		return err
	}
	return nil
}

func (m *memStore) CreateRouteWithGeography(_ context.Context, r NewRoute) (string, error) {
	m.createCalls++
	if m.failCreate {
		return "", errStore
	}
	m.clock = m.clock.Add(time.Second)
	id := uuid.NewString()
	var creator *string
	if r.CreatorID != "" {
		c := r.CreatorID
		creator = &c
	}
	m.routes[id] = Route{
		ID:              id,
		CreatorID:       creator,
		Title:           r.Title,
		Description:     r.Description,
		StartLabel:      r.StartLabel,
		EndLabel:        r.EndLabel,
		StartLat:        r.StartLat,
		StartLng:        r.StartLng,
		EndLat:          r.EndLat,
		EndLng:          r.EndLng,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationSeconds: r.DurationSeconds,
		DistanceMeters:  r.DistanceMeters,
		IsActive:        true,
		CreatedAt:       m.clock,
	}
	return id, nil
}

func (m *memStore) InsertRoutePoints(_ context.Context, routeID string, points []RoutePoint) error {
	if m.failPoints {
		return errStore
	}
	m.points[routeID] = append([]RoutePoint(nil), points...)
	return nil
}

func (m *memStore) LinkTag(_ context.Context, routeID, tagID string) error {
	if m.failTags[tagID] {
		return errStore
	}
	if _, ok := m.tagNames[tagID]; !ok {
		m.tagNames[tagID] = tagID
	}
	m.links[routeID] = append(m.links[routeID], tagID)
	return nil
}

func (m *memStore) ListActiveRoutes(_ context.Context, limit int) ([]Route, error) {
	if m.failList {
		return nil, errStore
	}
	var routes []Route
	for _, r := range m.routes {
		if r.IsActive {
			routes = append(routes, r)
		}
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].CreatedAt.After(routes[j].CreatedAt) })
	if len(routes) > limit {
		routes = routes[:limit]
	}
	return routes, nil
}

func (m *memStore) GetActiveRoute(_ context.Context, id string) (Route, error) {
	r, ok := m.routes[id]
	if !ok || !r.IsActive {
		return Route{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) RoutePoints(_ context.Context, routeID string) ([]RoutePoint, error) {
	return m.points[routeID], nil
}

func (m *memStore) TagNamesForRoutes(_ context.Context, routeIDs []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, id := range routeIDs {
		for _, tagID := range m.links[id] {
			out[id] = append(out[id], m.tagNames[tagID])
		}
	}
	return out, nil
}

func (m *memStore) Tags(_ context.Context) ([]Tag, error) {
	var tags []Tag
	for id, name := range m.tagNames {
		tags = append(tags, Tag{ID: id, Name: name})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (m *memStore) VotesForRoutes(_ context.Context, routeIDs []string) ([]Vote, error) {
	if m.failVotes {
		return nil, errStore
	}
	want := map[string]bool{}
	for _, id := range routeIDs {
		want[id] = true
	}
	var votes []Vote
	for _, v := range m.votes {
		if want[v.RouteID] {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

// UpsertVote mirrors ON CONFLICT (route_id, user_id).
func (m *memStore) UpsertVote(_ context.Context, v Vote) error {
	m.votes[voteKey{v.RouteID, v.UserID}] = v
	return nil
}

func (m *memStore) AddComment(_ context.Context, c Comment) (Comment, error) {
	m.clock = m.clock.Add(time.Second)
	c.CreatedAt = m.clock
	m.comments[c.RouteID] = append(m.comments[c.RouteID], c)
	return c, nil
}

func (m *memStore) Comments(_ context.Context, routeID string) ([]Comment, error) {
	return m.comments[routeID], nil
}

type recordingPublisher struct {
	routeIDs []string
	payloads [][]byte
}

func (p *recordingPublisher) Broadcast(routeID string, payload []byte) {
	p.routeIDs = append(p.routeIDs, routeID)
	p.payloads = append(p.payloads, payload)
}

func intPtr(v int) *int              { return &v }
func floatPtr(v float64) *float64    { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func rawPoint(seq int, lat, lng float64, at time.Time) RawPoint {
	return RawPoint{Sequence: intPtr(seq), Lat: floatPtr(lat), Lng: floatPtr(lng), RecordedAt: timePtr(at)}
}
