package social

import "time"

type FriendStatus string

const (
	StatusPending  FriendStatus = "pending"
	StatusAccepted FriendStatus = "accepted"
	StatusDeclined FriendStatus = "declined"
)

type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProfileUpdate struct {
	DisplayName *string `json:"display_name" validate:"omitnil,max=80"`
	AvatarURL   *string `json:"avatar_url" validate:"omitnil,omitempty,url"`
	Bio         *string `json:"bio" validate:"omitnil,max=500"`
}

type FriendRequest struct {
	ID          string       `json:"id"`
	RequesterID string       `json:"requester_id"`
	AddresseeID string       `json:"addressee_id"`
	Status      FriendStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

type FriendRequestInput struct {
	AddresseeID string `json:"addressee_id" validate:"required,uuid"`
}
