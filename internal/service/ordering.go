package service

import (
	"slices"
	"time"

	"github.com/coachhub/coach-chat/internal/domain"
)

// SortByRecency orders conversation ids by their last message time, newest
// first. The sort is stable: ties keep their relative order, and
// conversations without a last message (or unknown to convs) compare equal
// to each other and sort after every conversation that has one.
func SortByRecency(ids []string, convs map[string]*domain.Conversation) {
	slices.SortStableFunc(ids, func(a, b string) int {
		ta, tb := lastMessageAt(convs, a), lastMessageAt(convs, b)
		switch {
		case ta == nil && tb == nil:
			return 0
		case ta == nil:
			return 1
		case tb == nil:
			return -1
		}
		return tb.Compare(*ta)
	})
}

func lastMessageAt(convs map[string]*domain.Conversation, id string) *time.Time {
	if c, ok := convs[id]; ok {
		return c.LastMessageAt
	}
	return nil
}
