package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

// MirrorCollection holds one document per persisted state file.
const MirrorCollection = "state_documents"

// DocumentWriter upserts mirrored documents.
type DocumentWriter interface {
	Set(id string, doc *models.MirroredDocument) error
}

// SnapshotMirror copies every saved state document to MongoDB from a
// background goroutine. When writes pile up only the newest body per kind
// is sent. The local files stay the source of truth; the mirror is never
// read back.
type SnapshotMirror struct {
	writer DocumentWriter
	now    func() time.Time

	mu       sync.Mutex
	pending  map[string][]byte
	lastSync map[string]time.Time
	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSnapshotMirror creates a mirror writing through w and starts its
// worker.
func NewSnapshotMirror(w DocumentWriter) *SnapshotMirror {
	m := &SnapshotMirror{
		writer:   w,
		now:      time.Now,
		pending:  make(map[string][]byte),
		lastSync: make(map[string]time.Time),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.loop()
	return m
}

// NewMongoMirror wires a SnapshotMirror to the state collection of db.
func NewMongoMirror(db *Database) *SnapshotMirror {
	return NewSnapshotMirror(NewDataManager[models.MirroredDocument](MirrorCollection, db))
}

// Mirror queues body as the latest version of kind. It never blocks on the
// database.
func (m *SnapshotMirror) Mirror(kind string, body []byte) {
	m.mu.Lock()
	m.pending[kind] = append([]byte(nil), body...)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *SnapshotMirror) loop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.wake:
			m.flush()
		case <-m.done:
			m.flush()
			return
		}
	}
}

func (m *SnapshotMirror) take() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := m.pending
	m.pending = make(map[string][]byte)
	return batch
}

func (m *SnapshotMirror) flush() {
	defer errors.RecoverMiddleware("mirror")()

	for kind, body := range m.take() {
		at := m.now()
		doc := &models.MirroredDocument{
			Kind:      kind,
			Body:      string(body),
			Bytes:     len(body),
			UpdatedAt: at,
		}
		if err := m.writer.Set(kind, doc); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo replicar %s: %v", kind, err), "Mirror")
			continue
		}
		m.mu.Lock()
		m.lastSync[kind] = at
		m.mu.Unlock()
	}
}

// LastSync returns when each kind was last accepted by the writer.
func (m *SnapshotMirror) LastSync() map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]time.Time, len(m.lastSync))
	for k, v := range m.lastSync {
		out[k] = v
	}
	return out
}

// Close flushes what is pending and stops the worker.
func (m *SnapshotMirror) Close() {
	m.stopOnce.Do(func() { close(m.done) })
	m.wg.Wait()
}
