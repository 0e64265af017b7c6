package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DataManager provides typed access to one collection keyed by _id. The
// last document written per id is cached so reads survive an outage.
type DataManager[T any] struct {
	name       string
	dbInstance *Database

	mu    sync.RWMutex
	cache map[string]*T
}

// NewDataManager creates a DataManager for a collection. The collection is
// resolved on every call so a manager created while offline keeps working
// after a reconnect.
func NewDataManager[T any](collectionName string, db *Database) *DataManager[T] {
	return &DataManager[T]{
		name:       collectionName,
		dbInstance: db,
		cache:      make(map[string]*T),
	}
}

func (dm *DataManager[T]) remember(id string, doc *T) {
	dm.mu.Lock()
	dm.cache[id] = doc
	dm.mu.Unlock()
}

// Get returns a document from the database, falling back to the cache when
// the database cannot be reached. A missing document yields nil, nil.
func (dm *DataManager[T]) Get(id string) (*T, error) {
	col := dm.dbInstance.GetCollection(dm.name)
	if col == nil {
		dm.mu.RLock()
		defer dm.mu.RUnlock()
		if doc, ok := dm.cache[id]; ok {
			return doc, nil
		}
		return nil, fmt.Errorf("database not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result T
	err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		logger.Warn(fmt.Sprintf("Fallo al leer de la DB (%s), usando caché", dm.name), "DataManager")
		dm.mu.RLock()
		defer dm.mu.RUnlock()
		if doc, ok := dm.cache[id]; ok {
			return doc, nil
		}
		return nil, err
	}
	dm.remember(id, &result)
	return &result, nil
}

// Set upserts a whole document. While offline the write is queued and
// replayed on reconnect.
func (dm *DataManager[T]) Set(id string, doc *T) error {
	dm.remember(id, doc)
	op := QueuedOperation{CollectionName: dm.name, ID: id, Data: doc}

	col := dm.dbInstance.GetCollection(dm.name)
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando escritura para '%s/%s'", dm.name, id), "DataManager")
		dm.dbInstance.AddToWriteQueue(op)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		logger.Error(fmt.Sprintf("Error en 'set' de '%s/%s': %v. Encolando por seguridad.", dm.name, id, err), "DataManager")
		dm.dbInstance.AddToWriteQueue(op)
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			dm.dbInstance.MarkDisconnected()
		}
		return err
	}
	return nil
}

// CacheSize returns the number of cached documents.
func (dm *DataManager[T]) CacheSize() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.cache)
}
