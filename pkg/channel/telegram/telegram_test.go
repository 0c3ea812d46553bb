package telegram

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"litegram/pkg/bus"
	"litegram/pkg/logger"
)

type fakePoller struct {
	updates chan telego.Update
}

func (f *fakePoller) UpdatesViaLongPolling(context.Context, *telego.GetUpdatesParams, ...telego.LongPollingOption) (<-chan telego.Update, error) {
	return f.updates, nil
}

func messageFrom(updateID int, userID int64, text string) telego.Update {
	return telego.Update{
		UpdateID: updateID,
		Message: &telego.Message{
			MessageID: updateID,
			From:      &telego.User{ID: userID, FirstName: "u"},
			Chat:      telego.Chat{ID: userID, Type: telego.ChatTypePrivate},
			Text:      text,
		},
	}
}

func TestRunForwardsRawUpdatesInOrder(t *testing.T) {
	t.Parallel()

	source := &fakePoller{updates: make(chan telego.Update, 3)}
	source.updates <- messageFrom(1, 10, "/start")
	source.updates <- messageFrom(2, 99, "intruder")
	source.updates <- messageFrom(3, 10, "hello")
	close(source.updates)

	adapter := newAdapter(source, []string{"10"}, logger.Discard())

	var got []bus.Update
	err := adapter.Run(context.Background(), func(_ context.Context, update bus.Update) error {
		got = append(got, update)
		return nil
	})
	require.EqualError(t, err, "telegram updates channel closed")

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].UpdateID)
	assert.Equal(t, int64(3), got[1].UpdateID)
	assert.Equal(t, "telegram", got[1].Channel)
	assert.True(t, json.Valid(got[1].Raw))
	assert.Equal(t, "hello", gjson.GetBytes(got[1].Raw, "message.text").String())
	assert.Equal(t, int64(10), gjson.GetBytes(got[1].Raw, "message.chat.id").Int())
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	source := &fakePoller{updates: make(chan telego.Update)}
	adapter := newAdapter(source, nil, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- adapter.Run(ctx, func(context.Context, bus.Update) error { return nil })
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("adapter did not stop after cancel")
	}
}

func TestRunRequiresHandler(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(&fakePoller{}, nil, logger.Discard())
	require.Error(t, adapter.Run(context.Background(), nil))
	assert.Equal(t, "telegram", adapter.Name())
}
