package provision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type results struct {
	mu  sync.Mutex
	got map[string]models.ProvisionResult
}

func newResults() *results {
	return &results{got: make(map[string]models.ProvisionResult)}
}

func (r *results) RecordProvisioning(res models.ProvisionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got[res.ResourceID] = res
}

func (r *results) get(id string) (models.ProvisionResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.got[id]
	return res, ok
}

type backendFunc func(ctx context.Context, req models.ProvisionRequest) (string, error)

func (f backendFunc) Provision(ctx context.Context, req models.ProvisionRequest) (string, error) {
	return f(ctx, req)
}

func TestPoolRecordsOutcomes(t *testing.T) {
	rec := newResults()
	backend := backendFunc(func(_ context.Context, req models.ProvisionRequest) (string, error) {
		if req.ResourceID == "2" {
			return "", errors.New("image not found")
		}
		return ContainerName(req.ResourceID), nil
	})
	p := NewPool(backend, rec, Options{Workers: 2})
	p.Start()

	p.Enqueue(models.ProvisionRequest{ResourceID: "1"})
	p.Enqueue(models.ProvisionRequest{ResourceID: "2"})
	p.Stop(context.Background())

	ok1, found := rec.get("1")
	require.True(t, found)
	assert.NoError(t, ok1.Err)
	assert.Equal(t, "vps-1", ok1.Name)

	failed, found := rec.get("2")
	require.True(t, found)
	assert.EqualError(t, failed.Err, "image not found")
}

func TestEnqueueNeverBlocks(t *testing.T) {
	rec := newResults()
	release := make(chan struct{})
	backend := backendFunc(func(ctx context.Context, _ models.ProvisionRequest) (string, error) {
		<-release
		return "x", nil
	})
	p := NewPool(backend, rec, Options{Workers: 1, QueueSize: 1})
	p.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			p.Enqueue(models.ProvisionRequest{ResourceID: string(rune('a' + i))})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked")
	}

	close(release)
	p.Stop(context.Background())

	full := 0
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if res, ok := rec.get(id); ok && errors.Is(res.Err, ErrQueueFull) {
			full++
		}
	}
	assert.GreaterOrEqual(t, full, 3)
}

func TestStopCancelsRunningJobs(t *testing.T) {
	rec := newResults()
	backend := backendFunc(func(ctx context.Context, _ models.ProvisionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p := NewPool(backend, rec, Options{Workers: 1})
	p.Start()
	p.Enqueue(models.ProvisionRequest{ResourceID: "1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p.Stop(ctx)

	res, ok := rec.get("1")
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, context.Canceled)

	p.Enqueue(models.ProvisionRequest{ResourceID: "2"})
	_, ok = rec.get("2")
	assert.False(t, ok)
}

func TestDockerBackend(t *testing.T) {
	var gotName string
	var gotArgs []string
	d := NewDockerBackend("ubuntu:22.04")
	d.Run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte("abc123\n"), nil
	}

	name, err := d.Provision(context.Background(), models.ProvisionRequest{ResourceID: "4", Owner: "u1", CPU: 2, RAM: 4, Storage: 40})
	require.NoError(t, err)
	assert.Equal(t, "vps-4", name)
	assert.Equal(t, "docker", gotName)
	assert.Contains(t, gotArgs, "ubuntu:22.04")
	assert.Contains(t, gotArgs, "4g")
	assert.Contains(t, gotArgs, "vpsbot.owner=u1")

	d.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Unable to find image\n"), errors.New("exit status 125")
	}
	_, err = d.Provision(context.Background(), models.ProvisionRequest{ResourceID: "5"})
	assert.EqualError(t, err, "docker run: exit status 125: Unable to find image")
}

func TestMetadataBackend(t *testing.T) {
	name, err := MetadataBackend{}.Provision(context.Background(), models.ProvisionRequest{ResourceID: "9"})
	require.NoError(t, err)
	assert.Equal(t, "vps-9", name)
}
