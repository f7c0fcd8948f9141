package route

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"backend-routeshare/internal/db"
)

// ErrNotFound is returned by Store reads when no active row matches.
var ErrNotFound = errors.New("not found")

// Store is the storage collaborator behind the route services.
type Store interface {
	// InTx runs fn against a Store bound to a single transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	CreateRouteWithGeography(ctx context.Context, r NewRoute) (string, error)
	InsertRoutePoints(ctx context.Context, routeID string, points []RoutePoint) error
	LinkTag(ctx context.Context, routeID, tagID string) error

	ListActiveRoutes(ctx context.Context, limit int) ([]Route, error)
	GetActiveRoute(ctx context.Context, id string) (Route, error)
	RoutePoints(ctx context.Context, routeID string) ([]RoutePoint, error)
	TagNamesForRoutes(ctx context.Context, routeIDs []string) (map[string][]string, error)
	Tags(ctx context.Context) ([]Tag, error)

	VotesForRoutes(ctx context.Context, routeIDs []string) ([]Vote, error)
	UpsertVote(ctx context.Context, v Vote) error

	AddComment(ctx context.Context, c Comment) (Comment, error)
	Comments(ctx context.Context, routeID string) ([]Comment, error)
}

// PostgresStore implements Store on Postgres with PostGIS. Geography columns
// are decoded to lat/lng in SQL.
type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	return db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&PostgresStore{db: tx})
	})
}

func (s *PostgresStore) CreateRouteWithGeography(ctx context.Context, r NewRoute) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		SELECT create_route_with_geography($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)::text
	`, nullable(r.CreatorID), r.Title, r.Description, r.StartLabel, r.EndLabel,
		r.StartLng, r.StartLat, r.EndLng, r.EndLat,
		r.StartTime, r.EndTime, r.DurationSeconds, r.DistanceMeters).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

type pointRow struct {
	Sequence       int       `json:"sequence"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	AccuracyMeters *float64  `json:"accuracy_meters"`
	RecordedAt     time.Time `json:"recorded_at"`
}

func (s *PostgresStore) InsertRoutePoints(ctx context.Context, routeID string, points []RoutePoint) error {
	rows := make([]pointRow, len(points))
	for i, p := range points {
		rows[i] = pointRow(p)
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `SELECT insert_route_points($1, $2::jsonb)`, routeID, string(payload))
	return err
}

func (s *PostgresStore) LinkTag(ctx context.Context, routeID, tagID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO route_tags (route_id, tag_id)
		VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, routeID, tagID)
	return err
}

const routeColumns = `
	id::text, creator_id::text, title, description, start_label, end_label,
	ST_Y(start_point::geometry), ST_X(start_point::geometry),
	ST_Y(end_point::geometry), ST_X(end_point::geometry),
	start_time, end_time, duration_seconds, distance_meters, is_active, created_at`

func scanRoute(row pgx.Row) (Route, error) {
	var r Route
	err := row.Scan(&r.ID, &r.CreatorID, &r.Title, &r.Description, &r.StartLabel, &r.EndLabel,
		&r.StartLat, &r.StartLng, &r.EndLat, &r.EndLng,
		&r.StartTime, &r.EndTime, &r.DurationSeconds, &r.DistanceMeters, &r.IsActive, &r.CreatedAt)
	return r, err
}

func (s *PostgresStore) ListActiveRoutes(ctx context.Context, limit int) ([]Route, error) {
	rows, err := s.db.Query(ctx, `SELECT`+routeColumns+`
		FROM routes
		WHERE is_active = true
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

func (s *PostgresStore) GetActiveRoute(ctx context.Context, id string) (Route, error) {
	r, err := scanRoute(s.db.QueryRow(ctx, `SELECT`+routeColumns+`
		FROM routes
		WHERE id = $1 AND is_active = true
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) RoutePoints(ctx context.Context, routeID string) ([]RoutePoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT sequence, ST_Y(location::geometry), ST_X(location::geometry), accuracy_meters, recorded_at
		FROM route_points WHERE route_id = $1
		ORDER BY sequence
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []RoutePoint
	for rows.Next() {
		var p RoutePoint
		if err := rows.Scan(&p.Sequence, &p.Lat, &p.Lng, &p.AccuracyMeters, &p.RecordedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *PostgresStore) TagNamesForRoutes(ctx context.Context, routeIDs []string) (map[string][]string, error) {
	tags := map[string][]string{}
	if len(routeIDs) == 0 {
		return tags, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT rt.route_id::text, t.name
		FROM route_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.route_id = ANY($1)
		ORDER BY t.name
	`, routeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var routeID, name string
		if err := rows.Scan(&routeID, &name); err != nil {
			return nil, err
		}
		tags[routeID] = append(tags[routeID], name)
	}
	return tags, rows.Err()
}

func (s *PostgresStore) Tags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.Query(ctx, `SELECT id::text, name, category FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Category); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *PostgresStore) VotesForRoutes(ctx context.Context, routeIDs []string) ([]Vote, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT route_id::text, user_id::text, vote_type, context
		FROM route_votes WHERE route_id = ANY($1)
	`, routeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var v Vote
		var voteType, voteContext string
		if err := rows.Scan(&v.RouteID, &v.UserID, &voteType, &voteContext); err != nil {
			return nil, err
		}
		v.VoteType = VoteType(voteType)
		v.Context = VoteContext(voteContext)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// UpsertVote keeps one vote per (route, user); a re-vote overwrites both the
// vote type and the context.
func (s *PostgresStore) UpsertVote(ctx context.Context, v Vote) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO route_votes (route_id, user_id, vote_type, context)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (route_id, user_id) DO UPDATE
		SET vote_type=EXCLUDED.vote_type, context=EXCLUDED.context, updated_at=now()
	`, v.RouteID, v.UserID, string(v.VoteType), string(v.Context))
	return err
}

func (s *PostgresStore) AddComment(ctx context.Context, c Comment) (Comment, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO route_comments (id, route_id, user_id, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, c.ID, c.RouteID, c.UserID, c.Content)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *PostgresStore) Comments(ctx context.Context, routeID string) ([]Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, route_id::text, user_id::text, content, created_at
		FROM route_comments WHERE route_id = $1
		ORDER BY created_at
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.RouteID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
