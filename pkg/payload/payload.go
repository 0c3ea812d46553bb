package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Wildcard is the path segment that stands for "whichever update variant is present".
const Wildcard = "*"

var (
	// ErrInvalidJSON is returned when an update body is not a JSON object.
	ErrInvalidJSON = errors.New("invalid update JSON")
	// ErrNoChat is returned when no chat or user identity can be derived from an update.
	ErrNoChat = errors.New("update has no chat identity")
)

// Variants lists the top-level update keys in the order the wildcard segment tries them.
var Variants = []string{
	"message",
	"edited_message",
	"channel_post",
	"edited_channel_post",
	"business_message",
	"edited_business_message",
	"callback_query",
	"inline_query",
	"chosen_inline_result",
	"shipping_query",
	"pre_checkout_query",
	"poll",
	"poll_answer",
	"my_chat_member",
	"chat_member",
	"chat_join_request",
	"message_reaction",
	"message_reaction_count",
	"chat_boost",
	"removed_chat_boost",
}

// Payload is a read-only snapshot of one decoded update.
type Payload struct {
	raw []byte
}

// New validates raw update bytes and wraps them. The root must be a JSON object.
func New(raw []byte) (*Payload, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, fmt.Errorf("%w: root is not an object", ErrInvalidJSON)
	}

	owned := make([]byte, len(raw))
	copy(owned, raw)
	return &Payload{raw: owned}, nil
}

// FromValue encodes an already-decoded update tree (maps, slices, telego structs) as a Payload.
func FromValue(v any) (*Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}

	return New(raw)
}

// Raw returns the JSON bytes backing the payload.
func (p *Payload) Raw() []byte {
	out := make([]byte, len(p.raw))
	copy(out, p.raw)
	return out
}

// Resolve looks up a dotted path. The boolean is false when any segment is missing;
// a JSON null that is actually present resolves as found.
func (p *Payload) Resolve(path string) (gjson.Result, bool) {
	segments := strings.Split(path, ".")
	if len(segments) > 0 && segments[0] == Wildcard {
		rest := segments[1:]
		for _, variant := range Variants {
			if !p.lookup([]string{variant}).Exists() {
				continue
			}
			result := p.lookup(append([]string{variant}, rest...))
			if result.Exists() {
				return result, true
			}
		}
		return gjson.Result{}, false
	}

	result := p.lookup(segments)
	return result, result.Exists()
}

// Exists reports whether path resolves to a present value.
func (p *Payload) Exists(path string) bool {
	_, ok := p.Resolve(path)
	return ok
}

// Get resolves path as a string, falling back to def when absent.
func (p *Payload) Get(path string, def string) string {
	result, ok := p.Resolve(path)
	if !ok {
		return def
	}

	return result.String()
}

// Int resolves path as an integer.
func (p *Payload) Int(path string) (int64, bool) {
	result, ok := p.Resolve(path)
	if !ok || result.Type != gjson.Number {
		return 0, false
	}

	return result.Int(), true
}

func (p *Payload) lookup(segments []string) gjson.Result {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			return gjson.Result{}
		}
		escaped = append(escaped, gjson.Escape(segment))
	}

	return gjson.GetBytes(p.raw, strings.Join(escaped, "."))
}

// Variant returns the first known update variant present at the root.
func (p *Payload) Variant() (string, bool) {
	for _, variant := range Variants {
		if p.lookup([]string{variant}).Exists() {
			return variant, true
		}
	}

	return "", false
}
