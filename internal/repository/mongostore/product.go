package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

type productDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Name        string        `bson:"name"`
	Description *string       `bson:"description"`
	Price       float64       `bson:"price"`
	Category    string        `bson:"category"`
	CreatorID   bson.ObjectID `bson:"creator_id"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

func (d productDocument) toModel() model.Product {
	return model.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		CreatorID:   d.CreatorID.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// productWithCreatorDocument is the shape produced by the $lookup + $unwind pipeline.
type productWithCreatorDocument struct {
	Product productDocument `bson:",inline"`
	Creator userDocument    `bson:"creator"`
}

// withCreatorPipeline joins products to users. $unwind drops products whose
// creator lookup matched nothing, which gives inner-join semantics.
var withCreatorPipeline = mongo.Pipeline{
	{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: usersCollection},
		{Key: "localField", Value: "creator_id"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "creator"},
	}}},
	{{Key: "$unwind", Value: "$creator"}},
}

// ProductStore implements repository.ProductStore on the products collection.
type ProductStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewProductStore creates a ProductStore over an existing collection.
func NewProductStore(coll *mongo.Collection, timeout time.Duration) *ProductStore {
	return &ProductStore{coll: coll, timeout: timeout}
}

func (s *ProductStore) Insert(ctx context.Context, product *model.Product) error {
	creatorID, err := parseObjectID(product.CreatorID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := productDocument{
		ID:          bson.NewObjectID(),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    product.Category,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return classify(err)
	}

	*product = doc.toModel()
	return nil
}

func (s *ProductStore) FindByID(ctx context.Context, id string) (*model.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc productDocument
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrProductNotFound
		}
		return nil, classify(err)
	}

	product := doc.toModel()
	return &product, nil
}

func (s *ProductStore) List(ctx context.Context) ([]model.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, classify(err)
	}

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}

	products := make([]model.Product, len(docs))
	for i, d := range docs {
		products[i] = d.toModel()
	}
	return products, nil
}

func (s *ProductStore) Update(ctx context.Context, product *model.Product) error {
	oid, err := parseObjectID(product.ID)
	if err != nil {
		return err
	}
	creatorID, err := parseObjectID(product.CreatorID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: product.Name},
		{Key: "description", Value: product.Description},
		{Key: "price", Value: product.Price},
		{Key: "category", Value: product.Category},
		{Key: "creator_id", Value: creatorID},
		{Key: "updated_at", Value: now},
	}}}

	result, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrProductNotFound
	}

	product.UpdatedAt = now
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
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
		return repository.ErrProductNotFound
	}
	return nil
}

func (s *ProductStore) ListWithCreator(ctx context.Context) ([]model.ProductWithCreator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.coll.Aggregate(ctx, withCreatorPipeline)
	if err != nil {
		return nil, classify(err)
	}

	var docs []productWithCreatorDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}

	result := make([]model.ProductWithCreator, len(docs))
	for i, d := range docs {
		result[i] = model.ProductWithCreator{
			Product: d.Product.toModel(),
			Creator: d.Creator.toModel(),
		}
	}
	return result, nil
}
