package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	mu    sync.Mutex
	kinds []string
}

func (m *recordingMirror) Mirror(kind string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
}

func TestOpenMissingFilesUsesDefaults(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "database"))
	require.NoError(t, err)

	s := Open(backend)

	require.NotNil(t, s.Accounts.Users)
	require.NotNil(t, s.Resources.VPS)
	require.NotNil(t, s.Giveaways.Giveaways)
	require.NotNil(t, s.Protections.Protected)
	assert.False(t, s.Resources.Purge.Active)
	assert.NotNil(t, s.Resources.Purge.ProtectedVPS)
	assert.NotNil(t, s.Resources.Purge.ProtectedUsers)
	assert.False(t, s.Resources.Maintenance)
}

func TestOpenCorruptDocumentUsesDefault(t *testing.T) {
	backend := NewMemoryBackend()
	backend.Put(KindResources, `{"vps": {"1": `)
	backend.Put(KindAccounts, `{"users":{"42":{"credits":30,"trial_claimed":true}}}`)

	s := Open(backend)

	assert.Empty(t, s.Resources.VPS)
	require.Contains(t, s.Accounts.Users, "42")
	assert.Equal(t, int64(30), s.Accounts.Users["42"].Credits)
	assert.True(t, s.Accounts.Users["42"].TrialClaimed)
}

func TestOpenNormalizesNulls(t *testing.T) {
	backend := NewMemoryBackend()
	backend.Put(KindResources, `{"vps":{"3":{"owner":"9","status":"active"},"4":null},"purge":{"active":false}}`)
	backend.Put(KindGiveaways, `{"giveaways":null}`)
	backend.Put(KindProtections, `{}`)
	backend.Put(KindPromos, `{"promos":{"SPRING":{"amount":50,"uses":2},"GONE":null}}`)

	s := Open(backend)

	require.Contains(t, s.Resources.VPS, "3")
	assert.NotContains(t, s.Resources.VPS, "4")
	assert.Equal(t, "3", s.Resources.VPS["3"].ID)
	assert.NotNil(t, s.Resources.Purge.ProtectedVPS)
	assert.NotNil(t, s.Giveaways.Giveaways)
	assert.NotNil(t, s.Protections.Protected)
	require.Contains(t, s.Promos.Promos, "SPRING")
	assert.NotContains(t, s.Promos.Promos, "GONE")
	assert.Equal(t, int64(50), s.Promos.Promos["SPRING"].Amount)
}

func TestSaveWritesFullDocument(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	s := Open(backend)
	exp := int64(1700000000)
	s.Resources.VPS["1"] = &models.Resource{
		ID: "1", Owner: "42", CPU: 1, RAM: 2, Storage: 20,
		Status: models.StatusTrial, TrialExpires: &exp,
	}
	s.Resources.Purge.ProtectedUsers = append(s.Resources.Purge.ProtectedUsers, "42")
	require.NoError(t, s.Save(KindResources))

	data, err := os.ReadFile(filepath.Join(dir, "vps_data.json"))
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "vps")
	assert.Contains(t, raw, "purge")
	assert.Contains(t, raw, "maintenance")

	reopened := Open(backend)
	require.Contains(t, reopened.Resources.VPS, "1")
	at, ok := reopened.Resources.VPS["1"].TrialDeadline()
	assert.True(t, ok)
	assert.Equal(t, exp, at)
	assert.Equal(t, []string{"42"}, reopened.Resources.Purge.ProtectedUsers)
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	backend := NewMemoryBackend()
	mirror := &recordingMirror{}
	s := Open(backend, WithMirror(mirror))

	s.Accounts.Users["7"] = &models.Account{Credits: 5}
	backend.FailWrites = true

	err := s.Save(KindAccounts)
	assert.Error(t, err)
	assert.Equal(t, int64(5), s.Accounts.Users["7"].Credits)
	assert.Equal(t, 0, backend.Writes())
	assert.Empty(t, mirror.kinds)

	backend.FailWrites = false
	require.NoError(t, s.Save(KindAccounts))
	assert.Equal(t, []string{"accounts"}, mirror.kinds)
}

func TestKindFileNames(t *testing.T) {
	tests := map[Kind]string{
		KindAccounts:    "user_database.json",
		KindResources:   "vps_data.json",
		KindGiveaways:   "giveaways.json",
		KindProtections: "purge_protected.json",
		KindPromos:      "promos.json",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.FileName())
	}
}
