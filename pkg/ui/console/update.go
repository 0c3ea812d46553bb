package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

const (
	callbackPrefix = ":cb "
	inlinePrefix   = ":inline "
)

// Updates turns typed lines into Telegram-shaped update JSON for one local user.
// A line starting with ":cb " becomes a callback query carrying the rest as data,
// ":inline " becomes an inline query, anything else is a private text message.
type Updates struct {
	UserID    int64
	FirstName string

	next int64
}

func NewUpdates(userID int64) *Updates {
	return &Updates{UserID: userID, FirstName: "console"}
}

func (u *Updates) Build(line string) ([]byte, error) {
	u.next++
	id := u.next

	b := builder{doc: []byte(`{}`)}
	b.set("update_id", id)

	switch {
	case strings.HasPrefix(line, callbackPrefix):
		b.set("callback_query.id", fmt.Sprintf("console-%d", id))
		b.set("callback_query.from.id", u.UserID)
		b.set("callback_query.from.first_name", u.FirstName)
		b.set("callback_query.message.message_id", id)
		b.set("callback_query.message.chat.id", u.UserID)
		b.set("callback_query.message.chat.type", "private")
		b.set("callback_query.data", strings.TrimPrefix(line, callbackPrefix))
	case strings.HasPrefix(line, inlinePrefix):
		b.set("inline_query.id", fmt.Sprintf("console-%d", id))
		b.set("inline_query.from.id", u.UserID)
		b.set("inline_query.from.first_name", u.FirstName)
		b.set("inline_query.query", strings.TrimPrefix(line, inlinePrefix))
		b.set("inline_query.offset", "")
	default:
		b.set("message.message_id", id)
		b.set("message.date", time.Now().Unix())
		b.set("message.from.id", u.UserID)
		b.set("message.from.first_name", u.FirstName)
		b.set("message.chat.id", u.UserID)
		b.set("message.chat.type", "private")
		b.set("message.text", line)
	}

	if b.err != nil {
		return nil, fmt.Errorf("build console update: %w", b.err)
	}
	return b.doc, nil
}

type builder struct {
	doc []byte
	err error
}

func (b *builder) set(path string, value any) {
	if b.err != nil {
		return
	}
	b.doc, b.err = sjson.SetBytes(b.doc, path, value)
}
