// Package database keeps an off-box MongoDB copy of the bot state.
// Writes issued while the server is unreachable are queued and replayed
// once the connection comes back.
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// QueuedOperation is a pending upsert. Only the latest operation per
// collection and id is kept.
type QueuedOperation struct {
	CollectionName string
	ID             string
	Data           interface{}
}

func (op QueuedOperation) key() string {
	return op.CollectionName + "/" + op.ID
}

// Database manages the MongoDB connection
type Database struct {
	client        *mongo.Client
	db            *mongo.Database
	connected     bool
	url           string
	name          string
	reconnecting  bool
	retryInterval time.Duration
	stopReconnect chan struct{}
	stopOnce      sync.Once
	mu            sync.RWMutex

	queueMu    sync.Mutex
	writeQueue map[string]QueuedOperation
	queueOrder []string
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init initializes the global database instance. A failed first connection
// still returns the instance, which keeps retrying in the background.
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase(mongoURL, dbName)
		err = database.Connect()
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

// NewDatabase creates a new Database instance
func NewDatabase(mongoURL, dbName string) *Database {
	return &Database{
		url:           mongoURL,
		name:          dbName,
		retryInterval: 15 * time.Second,
		stopReconnect: make(chan struct{}),
		writeQueue:    make(map[string]QueuedOperation),
	}
}

// Connect establishes a connection to MongoDB. On failure the instance goes
// offline and keeps retrying in the background.
func (d *Database) Connect() error {
	if err := d.connect(); err != nil {
		d.handleDisconnection()
		return err
	}
	return nil
}

func (d *Database) connect() error {
	d.mu.Lock()
	if d.connected {
		d.mu.Unlock()
		return nil
	}

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(d.url).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err == nil {
		if err = client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
		}
	}
	if err != nil {
		d.mu.Unlock()
		logger.Critical(fmt.Sprintf("Fallo al conectar con la base de datos: %v", err), "DB")
		return err
	}

	d.client = client
	d.db = client.Database(d.name)
	d.connected = true
	d.mu.Unlock()

	logger.Success("Conectado exitosamente a la base de datos.", "DB")
	go d.syncOfflineWrites()
	return nil
}

// MarkDisconnected switches to offline mode after a failed operation and
// starts the reconnection loop.
func (d *Database) MarkDisconnected() {
	d.mu.Lock()
	wasConnected := d.connected
	d.connected = false
	d.mu.Unlock()
	if wasConnected {
		logger.Warn("Se perdió la conexión con la base de datos. Activando modo offline.", "DB")
	}
	d.handleDisconnection()
}

// handleDisconnection starts the reconnection loop unless one is running.
func (d *Database) handleDisconnection() {
	d.mu.Lock()
	if d.reconnecting {
		d.mu.Unlock()
		return
	}
	d.reconnecting = true
	interval := d.retryInterval
	d.mu.Unlock()

	errors.Go("database.reconnect", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer func() {
			d.mu.Lock()
			d.reconnecting = false
			d.mu.Unlock()
		}()

		for {
			select {
			case <-ticker.C:
				logger.Info("Intentando reconectar a la base de datos...", "DB")
				if err := d.connect(); err == nil {
					return
				}
			case <-d.stopReconnect:
				return
			}
		}
	})
}

// Disconnect closes the database connection
func (d *Database) Disconnect() error {
	d.stopOnce.Do(func() { close(d.stopReconnect) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	d.connected = false
	d.client = nil
	d.db = nil
	logger.Warn("La base de datos ha sido desconectada", "DB")
	return nil
}

// Ping measures the database response time
func (d *Database) Ping() (time.Duration, error) {
	d.mu.RLock()
	client := d.client
	connected := d.connected
	d.mu.RUnlock()

	if !connected || client == nil {
		return 0, fmt.Errorf("not connected to database")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns the database connection status
func (d *Database) GetStatus() (string, bool) {
	if _, err := d.Ping(); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// GetCollection returns a MongoDB collection, or nil while offline.
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil || !d.connected {
		return nil
	}
	return d.db.Collection(name)
}

// AddToWriteQueue queues an upsert, replacing any queued one for the same
// document.
func (d *Database) AddToWriteQueue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	k := op.key()
	if _, exists := d.writeQueue[k]; !exists {
		d.queueOrder = append(d.queueOrder, k)
	}
	d.writeQueue[k] = op
}

// requeue puts back a failed operation unless a newer one was queued
// meanwhile.
func (d *Database) requeue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	k := op.key()
	if _, exists := d.writeQueue[k]; exists {
		return
	}
	d.queueOrder = append(d.queueOrder, k)
	d.writeQueue[k] = op
}

// QueueLength returns the number of queued operations.
func (d *Database) QueueLength() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.writeQueue)
}

func (d *Database) drainQueue() []QueuedOperation {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	ops := make([]QueuedOperation, 0, len(d.queueOrder))
	for _, k := range d.queueOrder {
		ops = append(ops, d.writeQueue[k])
	}
	d.writeQueue = make(map[string]QueuedOperation)
	d.queueOrder = nil
	return ops
}

// syncOfflineWrites replays queued operations.
func (d *Database) syncOfflineWrites() {
	operations := d.drainQueue()
	if len(operations) == 0 {
		return
	}
	logger.System(fmt.Sprintf("Sincronizando %d operaciones pendientes con la DB...", len(operations)), "DB-Sync")

	failed := 0
	for _, op := range operations {
		col := d.GetCollection(op.CollectionName)
		if col == nil {
			d.requeue(op)
			failed++
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := col.ReplaceOne(ctx, bson.M{"_id": op.ID}, op.Data, options.Replace().SetUpsert(true))
		cancel()

		if err != nil {
			logger.Error(fmt.Sprintf("Error al sincronizar '%s/%s'. La operación se volverá a encolar.", op.CollectionName, op.ID), "DB-Sync")
			d.requeue(op)
			failed++
		}
	}

	if failed > 0 {
		logger.Warn(fmt.Sprintf("%d operaciones no pudieron sincronizarse y se reintentarán.", failed), "DB-Sync")
	} else {
		logger.Success("Sincronización completada exitosamente.", "DB-Sync")
	}
}
