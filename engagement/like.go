package engagement

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

type LikeState int

const (
	LikeIdle LikeState = iota
	LikePending
	LikeCommitted
	LikeRolledBack
)

func (s LikeState) String() string {
	switch s {
	case LikePending:
		return "pending"
	case LikeCommitted:
		return "committed"
	case LikeRolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// ErrLikePending is returned when a toggle starts while another is in flight.
var ErrLikePending = errors.New("like toggle already in flight")

// Like is one reader's like of one blog. A toggle moves it to Pending with
// the flipped value, then to Committed, or to RolledBack with the prior value.
type Like struct {
	BlogID uuid.UUID

	mu    sync.Mutex
	state LikeState
	liked bool
	prior bool
}

func NewLike(blogID uuid.UUID, liked bool) *Like {
	return &Like{BlogID: blogID, liked: liked}
}

// Begin flips the local value and returns it.
func (l *Like) Begin() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == LikePending {
		return l.liked, ErrLikePending
	}
	l.prior = l.liked
	l.liked = !l.liked
	l.state = LikePending
	return l.liked, nil
}

// Commit keeps the optimistic value.
func (l *Like) Commit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == LikePending {
		l.state = LikeCommitted
	}
	return l.liked
}

// Rollback restores the value held before Begin.
func (l *Like) Rollback() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == LikePending {
		l.liked = l.prior
		l.state = LikeRolledBack
	}
	return l.liked
}

func (l *Like) Liked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liked
}

func (l *Like) State() LikeState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
