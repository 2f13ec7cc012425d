package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Add_NormalizesUsernameAndRoom(t *testing.T) {
	req := require.New(t)
	reg := New()

	session, err := reg.Add("c1", "  Alice ", " Room1")

	req.NoError(err)
	req.Equal(Session{ConnID: "c1", Username: "alice", Room: "room1"}, session)
	req.Equal(1, reg.Len())
}

func TestRegistry_Add_DuplicateNameInSameRoom(t *testing.T) {
	req := require.New(t)
	reg := New()

	// Given bob is in the lobby
	_, err := reg.Add("c1", "bob", "lobby")
	req.NoError(err)

	// When a case and whitespace variant of bob joins the same room
	_, err = reg.Add("c2", " Bob ", "LOBBY")

	// Then the join is rejected and nothing changes
	req.ErrorIs(err, ErrDuplicateName)
	req.Equal("Username already exists", err.Error())
	req.Equal(1, reg.Len())
	_, ok := reg.Get("c2")
	req.False(ok)
}

func TestRegistry_Add_SameNameInOtherRoom(t *testing.T) {
	req := require.New(t)
	reg := New()

	_, err := reg.Add("c1", "bob", "lobby")
	req.NoError(err)
	_, err = reg.Add("c2", "bob", "kitchen")
	req.NoError(err)

	req.Equal(2, reg.Len())
	req.Equal(2, reg.Rooms())
}

func TestRegistry_Add_SecondJoinFromSameConnection(t *testing.T) {
	req := require.New(t)
	reg := New()

	_, err := reg.Add("c1", "bob", "lobby")
	req.NoError(err)

	_, err = reg.Add("c1", "robert", "kitchen")

	req.ErrorIs(err, ErrAlreadyJoined)
	req.Equal(1, reg.Len())
	session, ok := reg.Get("c1")
	req.True(ok)
	req.Equal("lobby", session.Room)
}

func TestRegistry_Remove_IsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := New()
	_, err := reg.Add("c1", "bob", "lobby")
	req.NoError(err)

	session, ok := reg.Remove("c1")
	req.True(ok)
	req.Equal("bob", session.Username)
	req.Equal(0, reg.Len())

	_, ok = reg.Remove("c1")
	req.False(ok)
	req.Equal(0, reg.Len())
}

func TestRegistry_Remove_UnknownConnection(t *testing.T) {
	reg := New()
	_, err := reg.Add("c1", "bob", "lobby")
	require.NoError(t, err)

	_, ok := reg.Remove("nobody")

	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Remove_FreesTheName(t *testing.T) {
	req := require.New(t)
	reg := New()
	_, err := reg.Add("c1", "bob", "lobby")
	req.NoError(err)

	reg.Remove("c1")

	_, err = reg.Add("c2", "bob", "lobby")
	req.NoError(err)
}

func TestRegistry_ListByRoom_InsertionOrder(t *testing.T) {
	req := require.New(t)
	reg := New()
	for i, name := range []string{"zoe", "adam", "mia"} {
		_, err := reg.Add(fmt.Sprintf("c%d", i), name, "lobby")
		req.NoError(err)
	}
	_, err := reg.Add("other", "max", "kitchen")
	req.NoError(err)

	users := reg.ListByRoom(" Lobby ")

	req.Len(users, 3)
	req.Equal("zoe", users[0].Username)
	req.Equal("adam", users[1].Username)
	req.Equal("mia", users[2].Username)
}

func TestRegistry_ListByRoom_EmptyRoom(t *testing.T) {
	users := New().ListByRoom("lobby")

	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestRegistry_ListByRoom_ReturnsCopy(t *testing.T) {
	req := require.New(t)
	reg := New()
	_, err := reg.Add("c1", "bob", "lobby")
	req.NoError(err)

	users := reg.ListByRoom("lobby")
	users[0].Username = "mallory"

	session, ok := reg.Get("c1")
	req.True(ok)
	req.Equal("bob", session.Username)
}

func TestRegistry_Exists(t *testing.T) {
	reg := New()
	_, err := reg.Add("c1", "bob", "lobby")
	require.NoError(t, err)

	assert.True(t, reg.Exists("LOBBY", " Bob"))
	assert.False(t, reg.Exists("kitchen", "bob"))
	assert.False(t, reg.Exists("lobby", "carol"))
}

func TestRegistry_Rooms(t *testing.T) {
	reg := New()
	assert.Equal(t, 0, reg.Rooms())

	_, _ = reg.Add("c1", "bob", "lobby")
	_, _ = reg.Add("c2", "carol", "lobby")
	_, _ = reg.Add("c3", "dave", "kitchen")
	assert.Equal(t, 2, reg.Rooms())

	reg.Remove("c3")
	assert.Equal(t, 1, reg.Rooms())
}

func TestRegistry_ConcurrentJoinsKeepNamesUnique(t *testing.T) {
	req := require.New(t)
	reg := New()

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every goroutine races for one of five names.
			_, err := reg.Add(uuid.NewString(), fmt.Sprintf(" User%d", i%5), "Lobby")
			if err != nil {
				assert.ErrorIs(t, err, ErrDuplicateName)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	req.Equal(5, succeeded)
	req.Equal(5, reg.Len())

	seen := make(map[string]struct{})
	for _, s := range reg.ListByRoom("lobby") {
		_, dup := seen[s.Username]
		req.False(dup, "duplicate username %q", s.Username)
		seen[s.Username] = struct{}{}
	}
}

func TestRegistry_ConcurrentReadsAndWrites(t *testing.T) {
	reg := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		connID := fmt.Sprintf("c%d", i)
		go func() {
			defer wg.Done()
			_, _ = reg.Add(connID, connID, "lobby")
			reg.Remove(connID)
		}()
		go func() {
			defer wg.Done()
			for _, s := range reg.ListByRoom("lobby") {
				assert.Equal(t, "lobby", s.Room)
				assert.NotEmpty(t, s.Username)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, reg.Len())
}
