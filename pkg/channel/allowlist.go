package channel

import (
	"strconv"
	"strings"
)

// Allowlist restricts which senders may reach the bot. An empty list admits everyone.
type Allowlist map[string]struct{}

// NewAllowlist normalizes allow_from values into a lookup set.
func NewAllowlist(allowFrom []string) Allowlist {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(Allowlist, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// Allows reports whether the sender may pass. Updates without a sender only
// pass an empty allowlist.
func (a Allowlist) Allows(senderID int64, hasSender bool) bool {
	if len(a) == 0 {
		return true
	}
	if !hasSender {
		return false
	}

	_, ok := a[strconv.FormatInt(senderID, 10)]
	return ok
}
