package social

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"backend-routeshare/internal/db"
	"backend-routeshare/internal/shared/apperr"
	"backend-routeshare/internal/shared/validation"
)

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

// Profile returns the caller's profile. A user without a stored profile gets
// an empty one carrying the token email.
func (s *Service) Profile(ctx context.Context, userID, email string) (Profile, error) {
	p := Profile{ID: userID, Email: email}
	err := s.db.QueryRow(ctx, `
		SELECT email, display_name, avatar_url, bio, updated_at
		FROM profiles WHERE id = $1
	`, userID).Scan(&p.Email, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{ID: userID, Email: email}, nil
	}
	if err != nil {
		return Profile{}, apperr.Storage("load profile", err)
	}
	return p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID, email string, in ProfileUpdate) (Profile, error) {
	if err := validation.Struct(in); err != nil {
		return Profile{}, err
	}
	p := Profile{
		ID:          userID,
		Email:       email,
		DisplayName: trimmed(in.DisplayName),
		AvatarURL:   trimmed(in.AvatarURL),
		Bio:         trimmed(in.Bio),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, display_name, avatar_url, bio)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE
		SET email=EXCLUDED.email, display_name=EXCLUDED.display_name,
		    avatar_url=EXCLUDED.avatar_url, bio=EXCLUDED.bio, updated_at=now()
		RETURNING updated_at
	`, p.ID, p.Email, p.DisplayName, p.AvatarURL, p.Bio)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		return Profile{}, apperr.Storage("save profile", err)
	}
	return p, nil
}

// SendFriendRequest creates a pending request. Repeating a request keeps the
// existing row.
func (s *Service) SendFriendRequest(ctx context.Context, requesterID string, in FriendRequestInput) (FriendRequest, error) {
	if err := validation.Struct(in); err != nil {
		return FriendRequest{}, err
	}
	if in.AddresseeID == requesterID {
		return FriendRequest{}, apperr.Validation("cannot send a friend request to yourself")
	}

	req := FriendRequest{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		AddresseeID: in.AddresseeID,
		Status:      StatusPending,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO friend_requests (id, requester_id, addressee_id, status)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (requester_id, addressee_id) DO UPDATE SET requester_id=EXCLUDED.requester_id
		RETURNING id::text, status, created_at
	`, req.ID, req.RequesterID, req.AddresseeID, string(req.Status))
	var status string
	if err := row.Scan(&req.ID, &status, &req.CreatedAt); err != nil {
		return FriendRequest{}, apperr.Storage("save friend request", err)
	}
	req.Status = FriendStatus(status)
	log.Info().Str("request_id", req.ID).Str("addressee_id", req.AddresseeID).Msg("friend request sent")
	return req, nil
}

func (s *Service) AcceptFriendRequest(ctx context.Context, requestID, userID string) (FriendRequest, error) {
	return s.respond(ctx, requestID, userID, StatusAccepted)
}

func (s *Service) DeclineFriendRequest(ctx context.Context, requestID, userID string) (FriendRequest, error) {
	return s.respond(ctx, requestID, userID, StatusDeclined)
}

// respond moves a pending request addressed to userID into status.
func (s *Service) respond(ctx context.Context, requestID, userID string, status FriendStatus) (FriendRequest, error) {
	if _, err := uuid.Parse(requestID); err != nil {
		return FriendRequest{}, apperr.NotFound("friend request")
	}
	var req FriendRequest
	var current string
	err := s.db.QueryRow(ctx, `
		UPDATE friend_requests SET status=$3, updated_at=now()
		WHERE id=$1 AND addressee_id=$2 AND status='pending'
		RETURNING id::text, requester_id::text, addressee_id::text, status, created_at
	`, requestID, userID, string(status)).Scan(&req.ID, &req.RequesterID, &req.AddresseeID, &current, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FriendRequest{}, apperr.NotFound("friend request")
	}
	if err != nil {
		return FriendRequest{}, apperr.Storage("update friend request", err)
	}
	req.Status = FriendStatus(current)
	return req, nil
}

// PendingRequests lists requests waiting on userID.
func (s *Service) PendingRequests(ctx context.Context, userID string) ([]FriendRequest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, requester_id::text, addressee_id::text, status, created_at
		FROM friend_requests
		WHERE addressee_id=$1 AND status='pending'
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, apperr.Storage("load friend requests", err)
	}
	defer rows.Close()

	requests := []FriendRequest{}
	for rows.Next() {
		var r FriendRequest
		var status string
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.AddresseeID, &status, &r.CreatedAt); err != nil {
			return nil, apperr.Storage("load friend requests", err)
		}
		r.Status = FriendStatus(status)
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("load friend requests", err)
	}
	return requests, nil
}

// Friends returns the profiles of users with an accepted request in either
// direction.
func (s *Service) Friends(ctx context.Context, userID string) ([]Profile, error) {
	rows, err := s.db.Query(ctx, `
		SELECT f.friend_id::text, COALESCE(p.email, ''), p.display_name, p.avatar_url, p.bio
		FROM (
			SELECT CASE WHEN requester_id=$1 THEN addressee_id ELSE requester_id END AS friend_id
			FROM friend_requests
			WHERE status='accepted' AND (requester_id=$1 OR addressee_id=$1)
		) f
		LEFT JOIN profiles p ON p.id = f.friend_id
		ORDER BY p.display_name NULLS LAST
	`, userID)
	if err != nil {
		return nil, apperr.Storage("load friends", err)
	}
	defer rows.Close()

	friends := []Profile{}
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Bio); err != nil {
			return nil, apperr.Storage("load friends", err)
		}
		friends = append(friends, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("load friends", err)
	}
	return friends, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
