package ws

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession records what it was sent. failWith makes every Send fail.
type fakeSession struct {
	id       string
	failWith error

	mu     sync.Mutex
	closed bool
	got    [][]byte
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *fakeSession) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionGone
	}
	if s.failWith != nil {
		return s.failWith
	}
	s.got = append(s.got, msg)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.got...)
}

func TestRegistryRegisterReplacesSameID(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	first := newFakeSession("10.0.0.1:5000")
	second := newFakeSession("10.0.0.1:5000")

	assert.Nil(t, reg.Register(first))
	prev := reg.Register(second)
	require.NotNil(t, prev)
	assert.Same(t, first, prev)
	assert.Equal(t, 1, reg.Len())

	// Re-registering the current session is not a replacement.
	assert.Nil(t, reg.Register(second))
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	assert.False(t, reg.Unregister("missing"))

	reg.Register(newFakeSession("a"))
	assert.True(t, reg.Unregister("a"))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryRemoveKeepsReplacement(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	stale := newFakeSession("a")
	fresh := newFakeSession("a")
	reg.Register(stale)
	reg.Register(fresh)

	assert.False(t, reg.Remove(stale))
	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Same(t, fresh, snap[0])
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Register(newFakeSession("a"))
	reg.Register(newFakeSession("b"))

	snap := reg.Snapshot()
	reg.Unregister("a")
	reg.Register(newFakeSession("c"))

	assert.Len(t, snap, 2)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		id := fmt.Sprintf("s%d", i)
		go func() {
			defer wg.Done()
			reg.Register(newFakeSession(id))
		}()
		go func() {
			defer wg.Done()
			_ = reg.Snapshot()
		}()
		go func() {
			defer wg.Done()
			reg.Unregister(fmt.Sprintf("s%d", i-1))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, reg.Len(), 50)
	for _, s := range reg.Snapshot() {
		assert.NotNil(t, s)
	}
}

var errBrokenPipe = errors.New("broken pipe")
