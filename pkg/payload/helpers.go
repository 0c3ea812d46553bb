package payload

import "strings"

func (p *Payload) IsMessage() bool       { return p.Exists("message") }
func (p *Payload) IsEditedMessage() bool { return p.Exists("edited_message") }
func (p *Payload) IsCallbackQuery() bool { return p.Exists("callback_query") }
func (p *Payload) IsInlineQuery() bool   { return p.Exists("inline_query") }
func (p *Payload) IsChannelPost() bool   { return p.Exists("channel_post") }

// IsCommand reports whether a (possibly edited) message text starts with one of prefixes.
func (p *Payload) IsCommand(prefixes []string) bool {
	if !p.IsMessage() && !p.IsEditedMessage() {
		return false
	}

	text := p.Text()
	if text == "" {
		return false
	}

	first := string([]rune(text)[:1])
	for _, prefix := range prefixes {
		if prefix == first {
			return true
		}
	}

	return false
}

func (p *Payload) Text() string {
	return p.Get("*.text", "")
}

// TextOrCaption returns the message text, or the media caption when there is no text.
func (p *Payload) TextOrCaption() string {
	if text, ok := p.Resolve("*.text"); ok {
		return text.String()
	}

	return p.Get("*.caption", "")
}

func (p *Payload) Data() string       { return p.Get("callback_query.data", "") }
func (p *Payload) Query() string      { return p.Get("inline_query.query", "") }
func (p *Payload) CallbackID() string { return p.Get("callback_query.id", "") }
func (p *Payload) InlineID() string   { return p.Get("inline_query.id", "") }

func (p *Payload) UpdateID() int64 {
	id, _ := p.Int("update_id")
	return id
}

func (p *Payload) MessageID() (int64, bool) {
	return p.Int("*.message_id")
}

// ChatID returns the chat replies should go to. Callback queries answer into the chat
// of the message that carried the button; everything else replies to the sender.
func (p *Payload) ChatID() (int64, error) {
	var paths []string
	if p.IsCallbackQuery() {
		paths = []string{"*.message.chat.id", "*.from.id"}
	} else {
		paths = []string{"*.from.id", "*.user.id", "*.chat.id"}
	}

	for _, path := range paths {
		if id, ok := p.Int(path); ok {
			return id, nil
		}
	}

	return 0, ErrNoChat
}

// UserID returns the id of the user that produced the update.
func (p *Payload) UserID() (int64, error) {
	for _, path := range []string{"*.from.id", "*.user.id"} {
		if id, ok := p.Int(path); ok {
			return id, nil
		}
	}

	return 0, ErrNoChat
}

// LanguageCode returns the sender's IETF language tag, if the update carries one.
func (p *Payload) LanguageCode() string {
	if p.IsCallbackQuery() {
		if code := p.Get("*.message.chat.language_code", ""); code != "" {
			return code
		}
		return p.Get("*.message.reply_to_message.from.language_code", "")
	}

	if code := p.Get("*.from.language_code", ""); code != "" {
		return code
	}
	return p.Get("*.user.language_code", "")
}

func (p *Payload) ChatType() string {
	if chatType := p.Get("*.chat.type", ""); chatType != "" {
		return chatType
	}
	return p.Get("*.message.chat.type", "")
}

func (p *Payload) IsPrivate() bool { return p.ChatType() == "private" }

func (p *Payload) IsGroup() bool {
	chatType := p.ChatType()
	return chatType == "group" || chatType == "supergroup"
}

func (p *Payload) IsForward() bool {
	return p.Exists("*.forward_date") || p.Exists("*.forward_origin")
}

func (p *Payload) IsReply() bool { return p.Exists("*.reply_to_message") }

func (p *Payload) IsBot() bool {
	return strings.EqualFold(p.Get("*.from.is_bot", ""), "true")
}
