package cmd

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litegram/pkg/config"
	"litegram/pkg/logger"
	"litegram/pkg/store"
	"litegram/pkg/ui/console"
)

type recordingAPI struct {
	mu       sync.Mutex
	messages []string
	answers  []string
}

func (a *recordingAPI) SendMessage(_ context.Context, _ int64, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, text)
	return nil
}

func (a *recordingAPI) AnswerCallbackQuery(_ context.Context, _ string, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers = append(a.answers, text)
	return nil
}

func (a *recordingAPI) SendChatAction(context.Context, int64, string) error {
	return nil
}

func (a *recordingAPI) last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.messages) == 0 {
		return ""
	}
	return a.messages[len(a.messages)-1]
}

type routesHarness struct {
	t       *testing.T
	api     *recordingAPI
	send    func(line string)
	updates *console.Updates
}

func newRoutesHarness(t *testing.T) *routesHarness {
	t.Helper()

	api := &recordingAPI{}
	b := newBot(config.Default(), api, store.NewMemory(), logger.Discard())
	updates := console.NewUpdates(5)

	h := &routesHarness{t: t, api: api, updates: updates}
	h.send = func(line string) {
		raw, err := updates.Build(line)
		require.NoError(t, err)
		_, err = b.RunRaw(context.Background(), raw)
		require.NoError(t, err)
	}
	return h
}

func TestRoutesFormConversation(t *testing.T) {
	t.Parallel()

	h := newRoutesHarness(t)

	h.send("/start")
	assert.Contains(t, h.api.last(), "Welcome")

	h.send("/form")
	assert.Equal(t, "What is your name?", h.api.last())

	h.send("Bob")
	assert.Equal(t, "Where do you live?", h.api.last())

	h.send("Oslo")
	assert.Equal(t, "Thanks, saved. Send /whoami to check.", h.api.last())

	h.send("/whoami")
	assert.Equal(t, "You are Bob from Oslo.", h.api.last())

	h.send("hello again")
	assert.Contains(t, h.api.last(), "did not understand", "the conversation is over")
}

func TestRoutesCancelLeavesConversation(t *testing.T) {
	t.Parallel()

	h := newRoutesHarness(t)

	h.send("/form")
	h.send("/cancel")
	assert.Equal(t, "Cancelled.", h.api.last())

	h.send("Bob")
	assert.Contains(t, h.api.last(), "did not understand")

	h.send("/whoami")
	assert.Equal(t, "You are stranger from nowhere.", h.api.last())
}

func TestRoutesVoteCallback(t *testing.T) {
	t.Parallel()

	h := newRoutesHarness(t)
	h.send(":cb vote:up")

	assert.Equal(t, []string{"You voted up"}, h.api.answers)
	assert.Empty(t, h.api.messages)
}
