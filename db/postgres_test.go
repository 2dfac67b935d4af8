package db

import (
	"context"
	"os"
	"testing"

	"runeRelicServer/crypto"
	"runeRelicServer/game"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchStorage(t *testing.T) {
	// Load env
	_ = godotenv.Load("../.env")

	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	require.NoError(t, InitPostgres())
	defer ClosePostgres()

	ctx := context.Background()
	matchID := game.NewMatchID()
	tr := finishedTranscript(t, matchID)

	// Cleanup after test
	defer PostgresPool.Exec(ctx, "DELETE FROM matches WHERE match_id = $1", matchID.String())

	t.Run("SaveMatch", func(t *testing.T) {
		data, err := SaveTranscript(ctx, tr)
		require.NoError(t, err)

		// second save is a no-op
		_, err = SaveTranscript(ctx, tr)
		require.NoError(t, err)

		stored, err := LoadTranscript(ctx, matchID)
		require.NoError(t, err)
		assert.Equal(t, data, stored)
	})

	t.Run("UnknownMatch", func(t *testing.T) {
		stored, err := LoadTranscript(ctx, game.NewMatchID())
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("Leaderboard", func(t *testing.T) {
		records, err := GetLeaderboard(ctx, 100)
		require.NoError(t, err)
		assert.NotEmpty(t, records)

		p := tr.Result.Placements[0]
		rank, err := GetPlayerRank(ctx, p.PlayerID.String())
		require.NoError(t, err)
		require.NotNil(t, rank)
		assert.GreaterOrEqual(t, rank.Matches, 1)
	})

	t.Run("RecentMatches", func(t *testing.T) {
		recent, err := GetRecentMatches(ctx, 5)
		require.NoError(t, err)
		assert.NotEmpty(t, recent)
	})
}

func TestRedisCommitments(t *testing.T) {
	_ = godotenv.Load("../.env")

	if os.Getenv("REDIS_URL") == "" {
		t.Skip("REDIS_URL not set")
	}

	require.NoError(t, InitRedis())
	defer CloseRedis()

	ctx := context.Background()
	tr := finishedTranscript(t, game.NewMatchID())
	matchID := tr.Metadata.MatchID

	missing, err := GetCommitment(ctx, matchID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	nonces := map[game.PlayerID]crypto.Hash{
		{1}: crypto.HashBytes([]byte("n1")),
		{2}: crypto.HashBytes([]byte("n2")),
	}
	require.NoError(t, StoreNonces(ctx, matchID, nonces))
	gotNonces, err := GetNonces(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, nonces, gotNonces)

	live := tr.Result.FinalStateHash
	require.NoError(t, SetLiveHash(ctx, matchID, tr.Result.EndTick, live))
	got, err := GetLiveHash(ctx, matchID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, live, got.StateHash)
	require.NoError(t, ClearLiveHash(ctx, matchID))

	reveal := &RevealRecord{
		BlockHash:        tr.Metadata.BlockHash,
		BlockHeight:      1,
		TranscriptDigest: tr.Digest(),
	}
	require.NoError(t, StoreReveal(ctx, matchID, reveal))
	back, err := GetReveal(ctx, matchID)
	require.NoError(t, err)
	require.NotNil(t, back)
	assert.Equal(t, reveal.TranscriptDigest, back.TranscriptDigest)
}
