package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/pagesmith/internal/domain"
)

var seed = domain.Message{Role: domain.RoleSystem, Content: "you write web pages"}

func newTestStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{
		DriverMemory: NewMemoryStore(),
		DriverSQLite: sqlite,
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func TestGetOrCreateSeedsOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		session, created, err := s.GetOrCreate(ctx, "s1", seed)
		require.NoError(t, err)
		assert.True(t, created)
		require.Len(t, session.Messages, 1)
		assert.Equal(t, domain.RoleSystem, session.Messages[0].Role)

		require.NoError(t, s.Append(ctx, "s1", domain.Message{Role: domain.RoleUser, Content: "hi"}))

		again, created, err := s.GetOrCreate(ctx, "s1", domain.Message{Role: domain.RoleSystem, Content: "other seed"})
		require.NoError(t, err)
		assert.False(t, created)
		require.Len(t, again.Messages, 2)
		assert.Equal(t, seed.Content, again.Messages[0].Content)
	})
}

func TestHistoryUnknownSession(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.History(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		err = s.Append(context.Background(), "missing", domain.Message{Role: domain.RoleUser, Content: "x"})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		_, err = s.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestAppendPreservesOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _, err := s.GetOrCreate(ctx, "s1", seed)
		require.NoError(t, err)

		const turns = 5
		for i := 0; i < turns; i++ {
			require.NoError(t, s.Append(ctx, "s1",
				domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("u%d", i)},
				domain.Message{Role: domain.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
			))
		}

		history, err := s.History(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, history, 1+2*turns)
		for i := 0; i < turns; i++ {
			assert.Equal(t, fmt.Sprintf("u%d", i), history[1+2*i].Content)
			assert.Equal(t, fmt.Sprintf("a%d", i), history[2+2*i].Content)
		}
	})
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _, err := s.GetOrCreate(ctx, "s1", seed)
		require.NoError(t, err)
		assert.Error(t, s.Append(ctx, "s1", domain.Message{Role: "tool", Content: "x"}))

		history, err := s.History(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}

func TestSessionIsolation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _, err := s.GetOrCreate(ctx, "a", seed)
		require.NoError(t, err)
		_, _, err = s.GetOrCreate(ctx, "b", seed)
		require.NoError(t, err)

		require.NoError(t, s.Append(ctx, "b", domain.Message{Role: domain.RoleUser, Content: "only b"}))
		require.NoError(t, s.SetOriginalPrompt(ctx, "b", "orig"))

		a, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, a.Messages, 1)
		assert.Empty(t, a.OriginalPrompt)
	})
}

func TestOriginalPromptLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _, err := s.GetOrCreate(ctx, "s1", seed)
		require.NoError(t, err)

		require.NoError(t, s.SetOriginalPrompt(ctx, "s1", "first"))
		require.NoError(t, s.SetOriginalPrompt(ctx, "s1", "second"))
		session, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "second", session.OriginalPrompt)
		assert.True(t, session.HasOriginalPrompt())

		require.NoError(t, s.ClearOriginalPrompt(ctx, "s1"))
		session, err = s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, session.HasOriginalPrompt())

		assert.ErrorIs(t, s.SetOriginalPrompt(ctx, "missing", "x"), domain.ErrSessionNotFound)
	})
}

func TestSnapshotsAreNotAliased(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	session, _, err := s.GetOrCreate(ctx, "s1", seed)
	require.NoError(t, err)

	session.Messages[0].Content = "tampered"
	history, err := s.History(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, seed.Content, history[0].Content)
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ids := []string{"a", "b", "c", "d"}
		for _, id := range ids {
			_, _, err := s.GetOrCreate(ctx, id, seed)
			require.NoError(t, err)
		}

		const perSession = 20
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for i := 0; i < perSession; i++ {
					err := s.Append(ctx, id,
						domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("%s-u%d", id, i)},
						domain.Message{Role: domain.RoleAssistant, Content: fmt.Sprintf("%s-a%d", id, i)},
					)
					assert.NoError(t, err)
				}
			}(id)
		}
		wg.Wait()

		for _, id := range ids {
			history, err := s.History(ctx, id)
			require.NoError(t, err)
			require.Len(t, history, 1+2*perSession)
			for i := 0; i < perSession; i++ {
				assert.Equal(t, fmt.Sprintf("%s-u%d", id, i), history[1+2*i].Content)
			}
		}
	})
}

func TestOpen(t *testing.T) {
	s, err := Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", "")
	assert.Error(t, err)
}
