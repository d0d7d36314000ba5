package reconcile

import (
	"sort"
	"strings"

	"github.com/janhq/support-relay/internal/domain/provider"
)

// NormalizeParticipants trims, de-duplicates and sorts external ids.
func NormalizeParticipants(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SameParticipants compares two normalized participant sets element-wise.
func SameParticipants(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func participantKey(normalized []string) string {
	return "conversation:" + strings.Join(normalized, ",")
}

// mostRecent picks the conversation with the latest UpdatedAt, breaking ties by the higher id.
func mostRecent(conversations []provider.Conversation) *provider.Conversation {
	var best *provider.Conversation
	for i := range conversations {
		candidate := &conversations[i]
		if best == nil {
			best = candidate
			continue
		}
		switch {
		case candidate.UpdatedAt.After(best.UpdatedAt):
			best = candidate
		case candidate.UpdatedAt.Equal(best.UpdatedAt) && idGreater(candidate.ID, best.ID):
			best = candidate
		}
	}
	return best
}

// idGreater orders numeric ids numerically and everything else lexically.
func idGreater(a, b string) bool {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) > len(b)
	}
	return a > b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// pickTicket prefers open-like tickets, then solved or on-hold ones; closed tickets
// cannot take comments and are never returned.
func pickTicket(tickets []provider.Ticket, tag string) *provider.Ticket {
	var best *provider.Ticket
	rank := func(t *provider.Ticket) int {
		switch {
		case t.Status.IsOpenLike():
			return 2
		case t.Status == provider.TicketClosed:
			return 0
		default:
			return 1
		}
	}
	for i := range tickets {
		candidate := &tickets[i]
		if !candidate.HasTag(tag) || rank(candidate) == 0 {
			continue
		}
		if best == nil {
			best = candidate
			continue
		}
		cr, br := rank(candidate), rank(best)
		switch {
		case cr > br:
			best = candidate
		case cr < br:
		case candidate.UpdatedAt.After(best.UpdatedAt):
			best = candidate
		case candidate.UpdatedAt.Equal(best.UpdatedAt) && candidate.ID > best.ID:
			best = candidate
		}
	}
	return best
}
