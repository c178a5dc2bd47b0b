package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

type userDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Name           string        `bson:"name"`
	Email          string        `bson:"email"`
	HashedPassword string        `bson:"hashed_password"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

func (d userDocument) toModel() model.User {
	return model.User{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Email:          d.Email,
		HashedPassword: d.HashedPassword,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// UserStore implements repository.IdentityStore on the users collection.
type UserStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewUserStore creates a UserStore over an existing collection.
func NewUserStore(coll *mongo.Collection, timeout time.Duration) *UserStore {
	return &UserStore{coll: coll, timeout: timeout}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, classify(err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}

	users := make([]model.User, len(docs))
	for i, d := range docs {
		users[i] = d.toModel()
	}
	return users, nil
}

func (s *UserStore) Insert(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		ID:             bson.NewObjectID(),
		Name:           user.Name,
		Email:          user.Email,
		HashedPassword: user.HashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEmail
		}
		return classify(err)
	}

	*user = doc.toModel()
	return nil
}

func (s *UserStore) Update(ctx context.Context, id string, fields model.UserUpdate) (*model.User, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: fields.Name},
		{Key: "email", Value: fields.Email},
		{Key: "updated_at", Value: time.Now().UTC().Truncate(time.Millisecond)},
	}}}

	var doc userDocument
	err = s.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, repository.ErrUserNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, repository.ErrDuplicateEmail
		default:
			return nil, classify(err)
		}
	}

	user := doc.toModel()
	return &user, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return classify(err)
	}
	if result.DeletedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}
		return nil, classify(err)
	}

	user := doc.toModel()
	return &user, nil
}
