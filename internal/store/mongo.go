package store

import (
	"context"
	"errors"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection = "accounts"
	diaryCollection    = "diary_entries"
	filesCollection    = "stored_files"
)

// MongoStore implements Store on top of a MongoDB database.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes configures the (account_key, timestamp) indexes used for listing.
// Called on startup from main after Mongo has connected.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, name := range []string{diaryCollection, filesCollection} {
		model := mongo.IndexModel{
			Keys: bson.D{
				{Key: "account_key", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_account_timestamp"),
		}
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoStore) GetAccount(ctx context.Context, key string) (*models.Account, error) {
	var acc models.Account
	err := s.db.Collection(accountsCollection).FindOne(ctx, bson.M{"_id": key}).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *MongoStore) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := s.db.Collection(accountsCollection).InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *MongoStore) UpdateProfile(ctx context.Context, key, username, email string) error {
	set := bson.M{}
	if username != "" {
		set["username"] = username
	}
	if email != "" {
		set["email"] = email
	}
	if len(set) == 0 {
		return nil
	}
	return s.updateAccount(ctx, key, set)
}

func (s *MongoStore) SetUsage(ctx context.Context, key string, usageBytes int64) error {
	return s.updateAccount(ctx, key, bson.M{"usage_bytes": usageBytes})
}

func (s *MongoStore) SetLock(ctx context.Context, key string, locked bool, codeHash string) error {
	return s.updateAccount(ctx, key, bson.M{
		"locked":           locked,
		"unlock_code_hash": codeHash,
	})
}

func (s *MongoStore) updateAccount(ctx context.Context, key string, set bson.M) error {
	res, err := s.db.Collection(accountsCollection).UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateDiaryEntry(ctx context.Context, entry *models.DiaryEntry) error {
	_, err := s.db.Collection(diaryCollection).InsertOne(ctx, entry)
	return err
}

func (s *MongoStore) GetDiaryEntry(ctx context.Context, key, id string) (*models.DiaryEntry, error) {
	var entry models.DiaryEntry
	err := s.db.Collection(diaryCollection).FindOne(ctx, itemFilter(key, id)).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *MongoStore) UpdateDiaryEntry(ctx context.Context, key, id, text string, ts time.Time) error {
	res, err := s.db.Collection(diaryCollection).UpdateOne(ctx, itemFilter(key, id), bson.M{
		"$set": bson.M{"text": text, "timestamp": ts},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteDiaryEntry(ctx context.Context, key, id string) error {
	return s.deleteItem(ctx, diaryCollection, key, id)
}

func (s *MongoStore) ListDiaryEntries(ctx context.Context, key string) ([]models.DiaryEntry, error) {
	cursor, err := s.db.Collection(diaryCollection).Find(ctx, bson.M{"account_key": key}, newestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []models.DiaryEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *MongoStore) CreateFile(ctx context.Context, file *models.StoredFile) error {
	_, err := s.db.Collection(filesCollection).InsertOne(ctx, file)
	return err
}

func (s *MongoStore) GetFile(ctx context.Context, key, id string) (*models.StoredFile, error) {
	var f models.StoredFile
	err := s.db.Collection(filesCollection).FindOne(ctx, itemFilter(key, id)).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *MongoStore) DeleteFile(ctx context.Context, key, id string) error {
	return s.deleteItem(ctx, filesCollection, key, id)
}

func (s *MongoStore) ListFiles(ctx context.Context, key string) ([]models.StoredFile, error) {
	cursor, err := s.db.Collection(filesCollection).Find(ctx, bson.M{"account_key": key}, newestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	files := []models.StoredFile{}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *MongoStore) deleteItem(ctx context.Context, collection, key, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, itemFilter(key, id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func itemFilter(key, id string) bson.M {
	return bson.M{"_id": id, "account_key": key}
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
}
