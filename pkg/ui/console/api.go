package console

import (
	"context"
	"errors"

	"litegram/pkg/bus"
)

// ChannelName tags replies and updates produced by the console.
const ChannelName = "console"

var errRepliesClosed = errors.New("console reply queue closed")

// API delivers bot replies to the console view through the message bus.
type API struct {
	bus *bus.MessageBus
}

func NewAPI(mb *bus.MessageBus) *API {
	return &API{bus: mb}
}

func (a *API) SendMessage(ctx context.Context, chatID int64, text string) error {
	return a.publish(ctx, bus.Reply{Kind: bus.ReplyMessage, ChatID: chatID, Text: text})
}

func (a *API) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	return a.publish(ctx, bus.Reply{Kind: bus.ReplyCallbackAnswer, CallbackID: callbackID, Text: text})
}

func (a *API) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return a.publish(ctx, bus.Reply{Kind: bus.ReplyChatAction, ChatID: chatID, Text: action})
}

func (a *API) publish(ctx context.Context, reply bus.Reply) error {
	reply.Channel = ChannelName
	if !a.bus.PublishReply(ctx, reply) {
		return errRepliesClosed
	}
	return nil
}
