package route

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/twpayne/go-geom"

	"backend-routeshare/internal/shared/apperr"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func validRequest() CreateRouteRequest {
	return CreateRouteRequest{
		Title:      "Campus loop",
		StartLabel: "Library",
		EndLabel:   "Stadium",
		StartTime:  t0.Format(time.RFC3339),
		EndTime:    t0.Add(60 * time.Second).Format(time.RFC3339),
		Points: []RawPoint{
			rawPoint(2, 30.2855, -97.7335, t0.Add(60*time.Second)),
			rawPoint(1, 30.2849, -97.7341, t0),
		},
	}
}

func TestCreateRouteOrdersPointsAndDerivesMetrics(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, 100)

	id, err := svc.CreateRoute(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("create route: %v", err)
	}

	r := store.routes[id]
	if r.DurationSeconds != 60 {
		t.Fatalf("expected 60s duration, got %d", r.DurationSeconds)
	}
	if math.Abs(r.DistanceMeters-88.149) > 0.01 {
		t.Fatalf("unexpected distance: %v", r.DistanceMeters)
	}
	if r.StartLat != 30.2849 || r.StartLng != -97.7341 || r.EndLat != 30.2855 {
		t.Fatalf("expected seq 1 as start anchor, got %+v", r)
	}
	if r.CreatorID == nil || *r.CreatorID != "user-1" {
		t.Fatalf("expected creator id")
	}

	points := store.points[id]
	if len(points) != 2 || points[0].Sequence != 1 || points[1].Sequence != 2 {
		t.Fatalf("expected points persisted in sequence order, got %+v", points)
	}
}

func TestCreateRouteMissingFieldsListsEveryField(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, 100)

	_, err := svc.CreateRoute(context.Background(), "user-1", CreateRouteRequest{Title: "  ", Points: []RawPoint{}})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Label != "missing_fields" {
		t.Fatalf("expected missing fields error, got %v", err)
	}
	want := map[string]bool{"title": true, "start_label": true, "end_label": true, "start_time": true, "end_time": true, "points": true}
	if len(appErr.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %v", len(want), appErr.Fields)
	}
	for _, f := range appErr.Fields {
		if !want[f] {
			t.Fatalf("unexpected field %q", f)
		}
	}
	if store.createCalls != 0 {
		t.Fatalf("validation must precede storage")
	}
}

func TestCreateRouteEmptyPoints(t *testing.T) {
	req := validRequest()
	req.Points = nil
	_, err := NewService(newMemStore(), nil, 100).CreateRoute(context.Background(), "user-1", req)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || len(appErr.Fields) != 1 || appErr.Fields[0] != "points" {
		t.Fatalf("expected points to be reported missing, got %v", err)
	}
}

func TestCreateRouteRejectsInvalidInputBeforeStorage(t *testing.T) {
	cases := map[string]func(*CreateRouteRequest){
		"bad latitude":      func(r *CreateRouteRequest) { r.Points[0].Lat = floatPtr(91) },
		"bad longitude":     func(r *CreateRouteRequest) { r.Points[1].Lng = floatPtr(-181) },
		"missing point lat": func(r *CreateRouteRequest) { r.Points[0].Lat = nil },
		"missing time":      func(r *CreateRouteRequest) { r.Points[1].RecordedAt = nil },
		"bad start time":    func(r *CreateRouteRequest) { r.StartTime = "yesterday" },
		"end before start":  func(r *CreateRouteRequest) { r.EndTime = t0.Add(-time.Minute).Format(time.RFC3339) },
		"duplicate seq":     func(r *CreateRouteRequest) { r.Points[0].Sequence = intPtr(1) },
	}
	for name, mutate := range cases {
		store := newMemStore()
		req := validRequest()
		mutate(&req)
		_, err := NewService(store, nil, 100).CreateRoute(context.Background(), "user-1", req)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if store.createCalls != 0 {
			t.Fatalf("%s: storage called before validation finished", name)
		}
	}
}

func TestCreateRouteStorageFailures(t *testing.T) {
	store := newMemStore()
	store.failCreate = true
	_, err := NewService(store, nil, 100).CreateRoute(context.Background(), "user-1", validRequest())
	if !apperr.Is(err, apperr.KindStorage) || !errors.Is(err, errStore) {
		t.Fatalf("expected storage error, got %v", err)
	}

	store = newMemStore()
	store.failPoints = true
	_, err = NewService(store, nil, 100).CreateRoute(context.Background(), "user-1", validRequest())
	if !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(store.routes) != 0 {
		t.Fatalf("route row must not survive a failed points insert")
	}
}

func TestCreateRouteTagFailuresAreSwallowed(t *testing.T) {
	store := newMemStore()
	store.failTags["bad-tag"] = true
	req := validRequest()
	req.Tags = []string{"bad-tag", "scenic"}

	id, err := NewService(store, nil, 100).CreateRoute(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("tag failure must not fail creation: %v", err)
	}
	if links := store.links[id]; len(links) != 1 || links[0] != "scenic" {
		t.Fatalf("expected remaining tag linked, got %v", links)
	}
}

func TestListRoutesSortOrders(t *testing.T) {
	store := newMemStore()
	a := store.seedRoute(Route{Title: "a", IsActive: true, DistanceMeters: 300, CreatedAt: t0})
	b := store.seedRoute(Route{Title: "b", IsActive: true, DistanceMeters: 100, CreatedAt: t0.Add(2 * time.Hour)})
	c := store.seedRoute(Route{Title: "c", IsActive: true, DistanceMeters: 200, CreatedAt: t0.Add(time.Hour)})
	store.seedRoute(Route{Title: "hidden", IsActive: false, DistanceMeters: 1, CreatedAt: t0.Add(3 * time.Hour)})

	for i := 0; i < 3; i++ {
		_ = store.UpsertVote(context.Background(), Vote{RouteID: c.ID, UserID: uuid.NewString(), VoteType: VoteUp, Context: ContextSafety})
	}
	_ = store.UpsertVote(context.Background(), Vote{RouteID: a.ID, UserID: "u1", VoteType: VoteDown, Context: ContextScenery})

	svc := NewService(store, nil, 100)

	recent, err := svc.ListRoutes(context.Background(), "", SortRecent)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected inactive route excluded, got %d routes", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].CreatedAt.After(recent[i-1].CreatedAt) {
			t.Fatalf("recent not in non-increasing created_at order")
		}
	}

	popular, _ := svc.ListRoutes(context.Background(), "", SortPopular)
	for i := 1; i < len(popular); i++ {
		if popular[i].VoteCount > popular[i-1].VoteCount {
			t.Fatalf("popular not in non-increasing vote order")
		}
	}
	if popular[0].ID != c.ID || popular[0].VoteCount != 3 || popular[0].AvgRating != 1 {
		t.Fatalf("unexpected most popular: %+v", popular[0].VoteStats)
	}

	efficient, _ := svc.ListRoutes(context.Background(), "", SortEfficient)
	for i := 1; i < len(efficient); i++ {
		if efficient[i].DistanceMeters < efficient[i-1].DistanceMeters {
			t.Fatalf("efficient not in non-decreasing distance order")
		}
	}
	if efficient[0].ID != b.ID {
		t.Fatalf("expected shortest route first")
	}
}

func TestListRoutesTagFilter(t *testing.T) {
	store := newMemStore()
	store.seedRoute(Route{Title: "bike", IsActive: true, CreatedAt: t0}, "Bike", "Scenic")
	store.seedRoute(Route{Title: "walk", IsActive: true, CreatedAt: t0}, "walking")
	store.seedRoute(Route{Title: "none", IsActive: true, CreatedAt: t0})

	svc := NewService(store, nil, 100)
	routes, err := svc.ListRoutes(context.Background(), " scenic , WALKING", SortRecent)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes matching tags, got %d", len(routes))
	}
	for _, r := range routes {
		if r.Title == "none" {
			t.Fatalf("untagged route should be filtered out")
		}
	}

	all, _ := svc.ListRoutes(context.Background(), "", SortRecent)
	if len(all) != 3 {
		t.Fatalf("empty filter keeps every route")
	}
}

func TestListRoutesLimitAndErrors(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 5; i++ {
		store.seedRoute(Route{IsActive: true, CreatedAt: t0.Add(time.Duration(i) * time.Minute)})
	}
	routes, err := NewService(store, nil, 2).ListRoutes(context.Background(), "", SortRecent)
	if err != nil || len(routes) != 2 {
		t.Fatalf("expected limit applied, got %d (%v)", len(routes), err)
	}
	if NewService(store, nil, 0).feedLimit != MaxFeedLimit || NewService(store, nil, 500).feedLimit != MaxFeedLimit {
		t.Fatalf("expected feed limit clamped")
	}

	store.failList = true
	if _, err := NewService(store, nil, 100).ListRoutes(context.Background(), "", SortRecent); !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	store.failList = false
	store.failVotes = true
	if _, err := NewService(store, nil, 100).ListRoutes(context.Background(), "", SortRecent); !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("expected storage error from vote load, got %v", err)
	}
}

func TestGetRoute(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, 100)

	id, err := svc.CreateRoute(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	detail, err := svc.GetRoute(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Points) != 2 || detail.Points[0].Sequence != 1 {
		t.Fatalf("expected ordered points, got %+v", detail.Points)
	}
	if detail.VoteCount != 0 || detail.AvgRating != 0 || detail.Tags == nil {
		t.Fatalf("unexpected summary: %+v", detail.RouteSummary)
	}
}

func TestGetRouteNotFound(t *testing.T) {
	store := newMemStore()
	inactive := store.seedRoute(Route{IsActive: false, CreatedAt: t0})
	svc := NewService(store, nil, 100)

	for _, id := range []string{inactive.ID, uuid.NewString(), "not-a-uuid"} {
		if _, err := svc.GetRoute(context.Background(), id); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("%s: expected not found, got %v", id, err)
		}
	}
}

func TestRouteGeoJSON(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, 100)
	id, _ := svc.CreateRoute(context.Background(), "user-1", validRequest())

	feature, err := svc.RouteGeoJSON(context.Background(), id)
	if err != nil {
		t.Fatalf("geojson: %v", err)
	}
	ls, ok := feature.Geometry.(*geom.LineString)
	if !ok || ls.NumCoords() != 2 {
		t.Fatalf("expected two-point line string, got %T", feature.Geometry)
	}
	if feature.Properties["title"] != "Campus loop" {
		t.Fatalf("expected title property")
	}
}

func TestCastVoteValidation(t *testing.T) {
	store := newMemStore()
	r := store.seedRoute(Route{IsActive: true, CreatedAt: t0})
	svc := NewService(store, nil, 100)

	_, err := svc.CastVote(context.Background(), r.ID, "user-1", VoteRequest{VoteType: "sideways", Context: "safety"})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Fields[0] != "vote_type" {
		t.Fatalf("expected vote_type invalid, got %v", err)
	}

	_, err = svc.CastVote(context.Background(), r.ID, "user-1", VoteRequest{VoteType: "up", Context: "speed"})
	if !errors.As(err, &appErr) || appErr.Fields[0] != "context" {
		t.Fatalf("expected context invalid, got %v", err)
	}

	// enums are checked before the route lookup
	_, err = svc.CastVote(context.Background(), uuid.NewString(), "user-1", VoteRequest{VoteType: "meh", Context: "safety"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation before lookup, got %v", err)
	}

	_, err = svc.CastVote(context.Background(), uuid.NewString(), "user-1", VoteRequest{VoteType: "up", Context: "safety"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCastVoteUpsertsPerRouteAndUser(t *testing.T) {
	store := newMemStore()
	r := store.seedRoute(Route{IsActive: true, CreatedAt: t0})
	pub := &recordingPublisher{}
	svc := NewService(store, pub, 100)

	var result VoteResult
	var err error
	for i := 0; i < 5; i++ {
		result, err = svc.CastVote(context.Background(), r.ID, "user-1", VoteRequest{VoteType: "up", Context: "safety"})
		if err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if result.VoteCount != 1 || result.Upvotes != 1 {
		t.Fatalf("re-votes must not add rows: %+v", result.VoteStats)
	}

	// The conflict key is (route, user): a vote in another context replaces
	// the previous one instead of adding a second row.
	result, err = svc.CastVote(context.Background(), r.ID, "user-1", VoteRequest{VoteType: "down", Context: "scenery"})
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if result.VoteCount != 1 || result.Downvotes != 1 || result.AvgRating != -1 {
		t.Fatalf("expected replaced vote, got %+v", result.VoteStats)
	}
	stored := store.votes[voteKey{r.ID, "user-1"}]
	if stored.Context != ContextScenery || stored.VoteType != VoteDown {
		t.Fatalf("expected latest context and type stored, got %+v", stored)
	}

	result, _ = svc.CastVote(context.Background(), r.ID, "user-2", VoteRequest{VoteType: "up", Context: "efficiency"})
	if result.VoteCount != 2 || result.AvgRating != 0 {
		t.Fatalf("expected two voters, got %+v", result.VoteStats)
	}

	if len(pub.payloads) != 7 {
		t.Fatalf("expected one event per vote, got %d", len(pub.payloads))
	}
	var ev struct {
		Type string    `json:"type"`
		Data VoteStats `json:"data"`
	}
	if err := json.Unmarshal(pub.payloads[6], &ev); err != nil || ev.Type != "vote" || ev.Data.VoteCount != 2 {
		t.Fatalf("unexpected event %s (%v)", pub.payloads[6], err)
	}
}

func TestComments(t *testing.T) {
	store := newMemStore()
	r := store.seedRoute(Route{IsActive: true, CreatedAt: t0})
	pub := &recordingPublisher{}
	svc := NewService(store, pub, 100)

	if _, err := svc.AddComment(context.Background(), r.ID, "user-1", CommentRequest{Content: "   "}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected blank content rejected, got %v", err)
	}
	if _, err := svc.AddComment(context.Background(), r.ID, "user-1", CommentRequest{Content: strings.Repeat("x", 2001)}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected long content rejected, got %v", err)
	}
	if _, err := svc.AddComment(context.Background(), uuid.NewString(), "user-1", CommentRequest{Content: "hi"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	c, err := svc.AddComment(context.Background(), r.ID, "user-1", CommentRequest{Content: " nice ride "})
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if c.Content != "nice ride" || c.ID == "" {
		t.Fatalf("unexpected comment: %+v", c)
	}

	comments, err := svc.Comments(context.Background(), r.ID)
	if err != nil || len(comments) != 1 {
		t.Fatalf("comments: %v", err)
	}
	if len(pub.routeIDs) != 1 || pub.routeIDs[0] != r.ID {
		t.Fatalf("expected comment event")
	}
}

func TestTags(t *testing.T) {
	store := newMemStore()
	store.seedRoute(Route{IsActive: true}, "scenic", "bike")
	tags, err := NewService(store, nil, 100).Tags(context.Background())
	if err != nil || len(tags) != 2 || tags[0].Name != "bike" {
		t.Fatalf("unexpected tags %v (%v)", tags, err)
	}
}

func TestCreateRouteReportsTopLevelAndPointFieldsTogether(t *testing.T) {
	store := newMemStore()
	req := validRequest()
	req.Title = ""
	req.Points[0].Lat = nil
	req.Points[1].RecordedAt = nil

	_, err := NewService(store, nil, 100).CreateRoute(context.Background(), "user-1", req)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Label != "missing_fields" {
		t.Fatalf("expected missing fields, got %v", err)
	}
	want := []string{"title", "points[0].lat", "points[1].recorded_at"}
	if len(appErr.Fields) != len(want) {
		t.Fatalf("expected %v, got %v", want, appErr.Fields)
	}
	for i, f := range want {
		if appErr.Fields[i] != f {
			t.Fatalf("expected %v, got %v", want, appErr.Fields)
		}
	}
	if store.createCalls != 0 {
		t.Fatalf("validation must precede storage")
	}
}

func TestCreateRoutePointFieldsWinOverInvalidTopLevel(t *testing.T) {
	req := validRequest()
	req.StartTime = "not-a-time"
	req.Points[1].Lng = nil

	_, err := NewService(newMemStore(), nil, 100).CreateRoute(context.Background(), "user-1", req)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Label != "missing_fields" || appErr.Fields[0] != "points[1].lng" {
		t.Fatalf("expected missing point field, got %v", err)
	}
}
