package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageUpdate = `{
	"update_id": 1001,
	"message": {
		"message_id": 7,
		"from": {"id": 42, "is_bot": false, "language_code": "en"},
		"chat": {"id": 42, "type": "private"},
		"text": "/ban alice 10m",
		"entities": [{"type": "bot_command", "offset": 0, "length": 4}],
		"reply_markup": null,
		"has_protected_content": false
	}
}`

const callbackUpdate = `{
	"update_id": 1002,
	"callback_query": {
		"id": "cb-1",
		"from": {"id": 42},
		"data": "vote:up",
		"message": {"message_id": 9, "chat": {"id": -100500, "type": "supergroup"}}
	}
}`

func mustNew(t *testing.T, raw string) *Payload {
	t.Helper()
	p, err := New([]byte(raw))
	require.NoError(t, err)
	return p
}

func TestNewRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := New([]byte(`{not json`))
	require.ErrorIs(t, err, ErrInvalidJSON)

	_, err = New([]byte(`[1, 2]`))
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestResolveLiteralPaths(t *testing.T) {
	t.Parallel()

	p := mustNew(t, messageUpdate)

	tests := map[string]struct {
		path   string
		want   string
		exists bool
	}{
		"top level":      {path: "update_id", want: "1001", exists: true},
		"nested":         {path: "message.chat.type", want: "private", exists: true},
		"array index":    {path: "message.entities.0.type", want: "bot_command", exists: true},
		"missing leaf":   {path: "message.caption", exists: false},
		"missing branch": {path: "edited_message.text", exists: false},
		"index past end": {path: "message.entities.3.type", exists: false},
		"empty segment":  {path: "message..text", exists: false},
		"empty path":     {path: "", exists: false},
		"numeric value":  {path: "message.chat.id", want: "42", exists: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := p.Resolve(tc.path)
			assert.Equal(t, tc.exists, ok)
			if tc.exists {
				assert.Equal(t, tc.want, got.String())
			}
		})
	}
}

func TestResolveDistinguishesNullAndFalseFromAbsent(t *testing.T) {
	t.Parallel()

	p := mustNew(t, messageUpdate)

	assert.True(t, p.Exists("message.reply_markup"))
	assert.True(t, p.Exists("message.has_protected_content"))
	assert.False(t, p.Exists("message.reply_to_message"))
	assert.Equal(t, "fallback", p.Get("message.reply_to_message", "fallback"))
}

func TestResolveWildcardMatchesPresentVariant(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{messageUpdate, callbackUpdate} {
		p := mustNew(t, raw)
		variant, ok := p.Variant()
		require.True(t, ok)

		for _, suffix := range []string{"from.id", "message.chat.id", "text", "data", "nope"} {
			wild, wildOK := p.Resolve("*." + suffix)
			direct, directOK := p.Resolve(variant + "." + suffix)
			assert.Equal(t, directOK, wildOK, suffix)
			assert.Equal(t, direct.Raw, wild.Raw, suffix)
		}
	}
}

func TestResolveWildcardOnlyFirstSegment(t *testing.T) {
	t.Parallel()

	p := mustNew(t, `{"message": {"*": {"x": 1}, "text": "hi"}}`)

	assert.Equal(t, "1", p.Get("message.*.x", ""))
	assert.False(t, p.Exists("*.x"))
}

func TestResolveTreatsMetacharactersLiterally(t *testing.T) {
	t.Parallel()

	p := mustNew(t, `{"message": {"te?t": "literal", "text": "hi", "a#b": 3}}`)

	assert.Equal(t, "literal", p.Get("message.te?t", ""))
	assert.Equal(t, "3", p.Get("message.a#b", ""))
	assert.False(t, p.Exists("message.t*"))
}

func TestChatIDForMessageAndCallback(t *testing.T) {
	t.Parallel()

	id, err := mustNew(t, messageUpdate).ChatID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = mustNew(t, callbackUpdate).ChatID()
	require.NoError(t, err)
	assert.Equal(t, int64(-100500), id)

	_, err = mustNew(t, `{"update_id": 1, "poll": {"id": "p"}}`).ChatID()
	require.ErrorIs(t, err, ErrNoChat)
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	msg := mustNew(t, messageUpdate)
	assert.True(t, msg.IsMessage())
	assert.False(t, msg.IsCallbackQuery())
	assert.True(t, msg.IsCommand([]string{"/", "!"}))
	assert.False(t, msg.IsCommand([]string{"!"}))
	assert.Equal(t, int64(1001), msg.UpdateID())
	assert.Equal(t, "en", msg.LanguageCode())
	assert.True(t, msg.IsPrivate())

	cb := mustNew(t, callbackUpdate)
	assert.Equal(t, "vote:up", cb.Data())
	assert.Equal(t, "cb-1", cb.CallbackID())
	assert.True(t, cb.IsGroup())
	assert.False(t, cb.IsCommand([]string{"/"}))

	caption := mustNew(t, `{"message": {"caption": "photo caption", "from": {"id": 1}}}`)
	assert.Equal(t, "photo caption", caption.TextOrCaption())
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	p, err := FromValue(map[string]any{
		"update_id": 5,
		"inline_query": map[string]any{"id": "iq", "query": "cats", "from": map[string]any{"id": 3}},
	})
	require.NoError(t, err)

	assert.True(t, p.IsInlineQuery())
	assert.Equal(t, "cats", p.Query())
	userID, err := p.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(3), userID)
}
