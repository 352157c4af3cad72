package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"loanterms/internal/domain"
	"loanterms/internal/port"
)

type termRecordRepo struct {
	coll *mongo.Collection
}

// NewTermRecordRepo creates a Mongo-backed RecordRepository. Documents are
// keyed by record id in _id with the record content under "content".
func NewTermRecordRepo(coll *mongo.Collection) port.RecordRepository {
	return &termRecordRepo{coll: coll}
}

func (r *termRecordRepo) Upsert(ctx context.Context, rec *domain.OutputRecord) error {
	if rec.ID == "" {
		return domain.ErrMissingRecordID
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"content": rec.Content, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": rec.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("termRecordRepo.Upsert: %w", err)
	}
	return nil
}

func (r *termRecordRepo) GetByID(ctx context.Context, id string) (*domain.TermRecord, error) {
	var rec domain.TermRecord
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("termRecordRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *termRecordRepo) List(ctx context.Context, offset, limit int) ([]domain.TermRecord, int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("termRecordRepo.List count: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("termRecordRepo.List: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	records := []domain.TermRecord{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("termRecordRepo.List decode: %w", err)
	}
	return records, int(total), nil
}

func (r *termRecordRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("termRecordRepo.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *termRecordRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
