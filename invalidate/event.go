package invalidate

import (
	"time"

	"github.com/google/uuid"
)

// Group names a family of cached queries that a write can make stale.
type Group string

const (
	GroupBlogs      Group = "blogs"
	GroupBlog       Group = "blog"
	GroupAdminBlogs Group = "admin-blogs"
	GroupStats      Group = "blog-stats"
)

// Op is the kind of write that produced an event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpLike   Op = "like"
	OpView   Op = "view"
)

// GroupsFor returns the query groups a write of kind op makes stale.
// View increments invalidate nothing; cached counters age out.
func GroupsFor(op Op) []Group {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return []Group{GroupBlogs, GroupBlog, GroupAdminBlogs, GroupStats}
	case OpLike:
		return []Group{GroupBlogs, GroupBlog}
	default:
		return nil
	}
}

// Event is returned by every mutation and delivered to subscribers.
type Event struct {
	Op     Op        `json:"op"`
	BlogID uuid.UUID `json:"blogId"`
	Groups []Group   `json:"groups"`
	At     time.Time `json:"at"`
	// Publishes is set when the write made the post public for the first time.
	Publishes bool `json:"publishes,omitempty"`
	// Origin identifies the instance that produced the event once it crosses
	// the broker.
	Origin string `json:"origin,omitempty"`
}

func NewEvent(op Op, blogID uuid.UUID, at time.Time) Event {
	return Event{
		Op:     op,
		BlogID: blogID,
		Groups: GroupsFor(op),
		At:     at,
	}
}

// Empty reports whether the event invalidates nothing.
func (e Event) Empty() bool {
	return len(e.Groups) == 0
}

// Has reports whether the event names group g.
func (e Event) Has(g Group) bool {
	for _, group := range e.Groups {
		if group == g {
			return true
		}
	}
	return false
}
