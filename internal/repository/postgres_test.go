package repository

import (
	"context"
	"os"
	"testing"

	"couponagent/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set TEST_DATABASE_URL to run against a real PostgreSQL instance.
func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	repo, err := NewPostgresRepository(dsn, 2, 1)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestPostgresRepository_TurnLog(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	sessionID := uuid.NewString()
	three := 3

	for _, rec := range []*model.TurnRecord{
		{SessionID: sessionID, Input: "", Reply: "welcome", State: "asking_info", Preferences: model.JSONArray{}, MatchedBundles: model.JSONArray{}},
		{SessionID: sessionID, Input: "3人 炸雞", Reply: "ok", State: "asking_info", PartySize: &three, Preferences: model.JSONArray{"炸雞"}, MatchedBundles: model.JSONArray{}},
		{SessionID: sessionID, Input: "好了", Reply: "results", State: "results", PartySize: &three, Preferences: model.JSONArray{"炸雞"}, MatchedBundles: model.JSONArray{"A"}, ResponseTimeMs: 12},
	} {
		require.NoError(t, repo.LogTurn(ctx, rec))
	}

	turns, err := repo.RecentTurns(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "3人 炸雞", turns[0].Input)
	assert.Equal(t, "results", turns[1].State)
	assert.Equal(t, model.JSONArray{"A"}, turns[1].MatchedBundles)
	require.NotNil(t, turns[1].PartySize)
	assert.Equal(t, 3, *turns[1].PartySize)

	assert.NoError(t, repo.LogFeedback(ctx, sessionID, "A", "order"))
}
