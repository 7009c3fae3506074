// Package repo persists meeting records and account lookups in MongoDB.
// The live engine never reads this store; it backs the REST surface only.
package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("not found")

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Username string             `bson:"username" json:"username"`
	Token    string             `bson:"token" json:"-"`
}

type Meeting struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	MeetingCode  string               `bson:"meetingCode" json:"meetingCode"`
	HostID       primitive.ObjectID   `bson:"hostId" json:"hostId"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	Locked       bool                 `bson:"locked" json:"locked"`
	Active       bool                 `bson:"active" json:"active"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// UserRepo resolves accounts by their opaque token. Token semantics are the
// account service's concern; this only does the lookup.
type UserRepo interface {
	ByToken(ctx context.Context, token string) (*User, error)
}

type MeetingRepo interface {
	Create(ctx context.Context, m *Meeting) error
	ByCode(ctx context.Context, code string) (*Meeting, error)
	// AddParticipant appends the user to the participant list if absent and
	// returns the updated record.
	AddParticipant(ctx context.Context, code string, userID primitive.ObjectID) (*Meeting, error)
}
