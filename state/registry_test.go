package state

import (
	"testing"

	"runeRelicServer/config"
	"runeRelicServer/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFillsLobbyThenOpensNext(t *testing.T) {
	r := NewRegistry(shortConfig())
	ids := testIDs(config.MaxPlayers + 1)

	first, _, created, err := r.JoinLobby(ids[0], "a")
	require.NoError(t, err)
	assert.True(t, created)

	for _, id := range ids[1:config.MaxPlayers] {
		s, _, created, err := r.JoinLobby(id, "b")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, s.ID)
	}

	second, _, created, err := r.JoinLobby(ids[config.MaxPlayers], "c")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, r.Count())

	_, _, _, err = r.JoinLobby(ids[0], "dup")
	assert.ErrorIs(t, err, ErrAlreadyInSession)

	found, ok := r.FindByPlayer(ids[config.MaxPlayers])
	require.True(t, ok)
	assert.Equal(t, second.ID, found.ID)

	got, ok := r.Get(first.ID)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Len(t, r.Active(), 2)
}

func TestRegistryPrunesFinished(t *testing.T) {
	r := NewRegistry(shortConfig())
	var firstID game.MatchID
	for i := 0; i < config.MaxFinishedMatches+3; i++ {
		s, _, _, err := r.JoinLobby(game.PlayerID{byte(i), 0xFF}, "p")
		require.NoError(t, err)
		if i == 0 {
			firstID = s.ID
		}
		r.MarkFinished(s.ID)
	}
	assert.Equal(t, config.MaxFinishedMatches, r.Count())
	_, ok := r.Get(firstID)
	assert.False(t, ok)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(shortConfig())
	s, _, _, err := r.JoinLobby(game.PlayerID{1}, "p")
	require.NoError(t, err)
	r.Remove(s.ID)
	assert.Equal(t, 0, r.Count())

	next, _, created, err := r.JoinLobby(game.PlayerID{2}, "q")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, s.ID, next.ID)
}
