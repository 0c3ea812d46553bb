package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litegram/pkg/payload"
	"litegram/pkg/store"
)

func storedState(t *testing.T, s store.Store) (string, bool) {
	t.Helper()
	value, ok, err := s.Get(context.Background(), "conversation:42")
	require.NoError(t, err)
	return value, ok
}

func TestConversationFlow(t *testing.T) {
	t.Parallel()

	backing := store.NewMemory()
	var calls []string

	b := New(func(r *Router) error {
		r.Command("form", func(c *Context, _ ...string) error {
			calls = append(calls, "form")
			return c.Conversation("A")
		})
		r.Command("cancel", func(c *Context, _ ...string) error {
			calls = append(calls, "cancel")
			return c.ExitConversation()
		})
		r.On(AnyOf("message"), record(&calls, "ordinary"))

		if err := r.Conversation("A", "B", record(&calls, "step-a")); err != nil {
			return err
		}
		return r.Conversation("B", "", record(&calls, "step-b"), FieldMatches("message.text", "/cancel"))
	}, WithStore(backing))

	run := func(text string) {
		t.Helper()
		calls = nil
		_, err := b.Run(context.Background(), textUpdate(t, text))
		require.NoError(t, err)
	}

	run("hello")
	assert.Equal(t, []string{"ordinary"}, calls, "no state, step does nothing")
	_, ok := storedState(t, backing)
	assert.False(t, ok)

	run("/form")
	assert.Equal(t, []string{"form", "ordinary"}, calls)
	state, _ := storedState(t, backing)
	assert.Equal(t, "A", state)

	run("Bob")
	assert.Equal(t, []string{"step-a"}, calls, "one step per cycle, ordinary rules skipped")
	state, _ = storedState(t, backing)
	assert.Equal(t, "B", state)

	run("/cancel")
	assert.Equal(t, []string{"cancel", "ordinary"}, calls, "exception leaves the update to its rule")
	_, ok = storedState(t, backing)
	assert.False(t, ok)

	run("bob@example.com")
	assert.Equal(t, []string{"ordinary"}, calls, "cleared conversation does not resume")
}

func TestConversationLastStepEnds(t *testing.T) {
	t.Parallel()

	backing := store.NewMemory()
	require.NoError(t, backing.Set(context.Background(), "conversation:42", "B"))

	var calls []string
	b := New(func(r *Router) error {
		return r.Conversation("B", "", record(&calls, "step-b"))
	}, WithStore(backing))

	report, err := b.Run(context.Background(), textUpdate(t, "done"))
	require.NoError(t, err)
	assert.Equal(t, []string{"step-b"}, calls)
	assert.True(t, report.Skipped)

	_, ok := storedState(t, backing)
	assert.False(t, ok)
}

func TestConversationEnteredDuringRoutesBlocksSteps(t *testing.T) {
	t.Parallel()

	backing := store.NewMemory()
	var calls []string

	b := New(func(r *Router) error {
		if err := r.Context().Conversation("A"); err != nil {
			return err
		}
		return r.Conversation("A", "B", record(&calls, "step-a"))
	}, WithStore(backing))

	_, err := b.Run(context.Background(), textUpdate(t, "hi"))
	require.NoError(t, err)
	assert.Empty(t, calls)

	state, _ := storedState(t, backing)
	assert.Equal(t, "A", state)
}

func TestConversationStepStopKeepsState(t *testing.T) {
	t.Parallel()

	backing := store.NewMemory()
	require.NoError(t, backing.Set(context.Background(), "conversation:42", "email"))

	var calls []string
	b := New(func(r *Router) error {
		r.On(Always(), record(&calls, "ordinary"))
		return r.Conversation("email", "done", func(c *Context, _ ...string) error {
			calls = append(calls, "validate")
			return ErrStop
		})
	}, WithStore(backing))

	report, err := b.Run(context.Background(), textUpdate(t, "not-an-email"))
	require.NoError(t, err)
	assert.Equal(t, []string{"validate"}, calls)
	assert.True(t, report.Skipped)

	state, _ := storedState(t, backing)
	assert.Equal(t, "email", state)
}

func TestConversationStepErrorAbortsCycle(t *testing.T) {
	t.Parallel()

	backing := store.NewMemory()
	require.NoError(t, backing.Set(context.Background(), "conversation:42", "A"))

	boom := errors.New("boom")
	b := New(func(r *Router) error {
		return r.Conversation("A", "B", func(*Context, ...string) error { return boom })
	}, WithStore(backing))

	_, err := b.Run(context.Background(), textUpdate(t, "x"))
	require.ErrorIs(t, err, boom)

	state, _ := storedState(t, backing)
	assert.Equal(t, "A", state)
}

func TestConversationRequiresIdentity(t *testing.T) {
	t.Parallel()

	p, err := payload.FromValue(map[string]any{"update_id": 3, "poll": map[string]any{"id": "p1"}})
	require.NoError(t, err)

	b := New(func(r *Router) error {
		return r.Conversation("A", "B", nil)
	})

	_, err = b.Run(context.Background(), p)
	require.ErrorIs(t, err, payload.ErrNoChat)
}
