package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials MongoDB and pings it so a bad URI fails fast.
func Connect(ctx context.Context, uri, db string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Info().Str("module", "repo").Str("db", db).Msg("mongo connected")
	return client.Database(db), nil
}

type mongoUserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) UserRepo {
	return &mongoUserRepo{col: db.Collection("users")}
}

func (r *mongoUserRepo) ByToken(ctx context.Context, token string) (*User, error) {
	var u User
	err := r.col.FindOne(ctx, bson.M{"token": token}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

type mongoMeetingRepo struct {
	col *mongo.Collection
}

func NewMeetingRepo(ctx context.Context, db *mongo.Database) (MeetingRepo, error) {
	col := db.Collection("meetings")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "meetingCode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("meeting index: %w", err)
	}
	return &mongoMeetingRepo{col: col}, nil
}

func (r *mongoMeetingRepo) Create(ctx context.Context, m *Meeting) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = id
	}
	return nil
}

func (r *mongoMeetingRepo) ByCode(ctx context.Context, code string) (*Meeting, error) {
	var m Meeting
	err := r.col.FindOne(ctx, bson.M{"meetingCode": code}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find meeting: %w", err)
	}
	return &m, nil
}

func (r *mongoMeetingRepo) AddParticipant(ctx context.Context, code string, userID primitive.ObjectID) (*Meeting, error) {
	var m Meeting
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"meetingCode": code},
		bson.M{
			"$addToSet": bson.M{"participants": userID},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update meeting: %w", err)
	}
	return &m, nil
}
