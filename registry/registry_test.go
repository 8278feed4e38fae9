package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/iguagile/iguagile-tictactoe/id"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// consistent checks that both indices describe the same users.
func consistent(t *testing.T, r *Registry) {
	t.Helper()
	r.RLock()
	defer r.RUnlock()

	require.Equal(t, len(r.byName), len(r.bySession))
	for name, u := range r.byName {
		assert.Equal(t, name, u.Name)
		assert.Same(t, u, r.bySession[u.Session])
	}
}

func TestRegisterFind(t *testing.T) {
	r := New()
	names := []string{"alice", "bob", "Carol_3"}
	sessions := map[string]id.Session{}
	for _, name := range names {
		s := id.NewSession()
		sessions[name] = s
		require.NoError(t, r.Register(name, s))

		u, ok := r.FindByName(name)
		require.True(t, ok)
		assert.Equal(t, s, u.Session)
		assert.Equal(t, Available, u.Availability)

		u, ok = r.FindBySession(s)
		require.True(t, ok)
		assert.Equal(t, name, u.Name)
	}

	assert.Equal(t, []string{"Carol_3", "alice", "bob"}, r.List())
	assert.Equal(t, 3, r.Count())
	consistent(t, r)
}

func TestRegisterNameTaken(t *testing.T) {
	r := New()
	first := id.NewSession()
	require.NoError(t, r.Register("alice", first))

	err := r.Register("alice", id.NewSession())
	assert.True(t, errors.Is(err, ErrNameTaken))

	require.NoError(t, r.Register("Alice", id.NewSession()), "names are case sensitive")

	_, ok := r.Unregister(first)
	require.True(t, ok)
	assert.NoError(t, r.Register("alice", id.NewSession()))
	consistent(t, r)
}

func TestRegisterSessionTwice(t *testing.T) {
	r := New()
	s := id.NewSession()
	require.NoError(t, r.Register("alice", s))
	assert.Equal(t, ErrSessionRegistered, r.Register("bob", s))

	_, ok := r.FindByName("bob")
	assert.False(t, ok)
	consistent(t, r)
}

func TestUnregister(t *testing.T) {
	r := New()
	s := id.NewSession()
	require.NoError(t, r.Register("alice", s))

	u, ok := r.Unregister(s)
	require.True(t, ok)
	assert.Equal(t, "alice", u.Name)

	_, ok = r.Unregister(s)
	assert.False(t, ok)
	_, ok = r.FindByName("alice")
	assert.False(t, ok)
	_, ok = r.FindBySession(s)
	assert.False(t, ok)
	assert.Empty(t, r.List())
	consistent(t, r)
}

func TestSetAvailability(t *testing.T) {
	r := New()
	s := id.NewSession()
	require.NoError(t, r.Register("alice", s))

	require.NoError(t, r.SetAvailability("alice", InGame))
	u, _ := r.FindBySession(s)
	assert.Equal(t, InGame, u.Availability)

	require.NoError(t, r.SetAvailability("alice", Available))
	u, _ = r.FindByName("alice")
	assert.Equal(t, Available, u.Availability)

	assert.True(t, errors.Is(r.SetAvailability("bob", InGame), ErrUserNotFound))
}

func TestConcurrentRegister(t *testing.T) {
	r := New()
	wg := &sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := id.NewSession()
			name := fmt.Sprintf("user%d", i)
			assert.NoError(t, r.Register(name, s))
			if i%2 == 0 {
				r.Unregister(s)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.Count())
	consistent(t, r)
}
