package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/kalambet/internmatch/internal/analysis"
	"github.com/kalambet/internmatch/internal/profile"
)

// DefaultFeedLimit is how many notifications a Feed keeps.
const DefaultFeedLimit = 50

// Notification is one entry in the feed.
type Notification struct {
	ID        int       `json:"id"`
	Message   string    `json:"message"`
	IsNew     bool      `json:"isNew"`
	CreatedAt time.Time `json:"createdAt"`
}

// Feed is an in-memory notification list, newest first. It is safe for
// concurrent use and implements profile.Observer.
type Feed struct {
	mu     sync.Mutex
	items  []Notification
	nextID int
	limit  int
	now    func() time.Time
}

// NewFeed returns a feed holding at most limit entries, seeded with the
// welcome notifications. limit <= 0 selects DefaultFeedLimit.
func NewFeed(limit int, now func() time.Time) *Feed {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if now == nil {
		now = time.Now
	}
	f := &Feed{limit: limit, now: now}
	created := now()
	for _, seed := range seedNotifications {
		f.nextID++
		seed.ID = f.nextID
		seed.CreatedAt = created
		f.items = append(f.items, seed)
	}
	if len(f.items) > limit {
		f.items = f.items[:limit]
	}
	return f
}

var seedNotifications = []Notification{
	{Message: "AI analyzed Sarah's LinkedIn: 95% match with Google PM role!", IsNew: true},
	{Message: "New PM internship at Microsoft matches Alex's profile", IsNew: true},
	{Message: "LinkedIn skill analysis complete - 3 new recommendations", IsNew: false},
}

// Add prepends an unread notification and returns it.
func (f *Feed) Add(message string) Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.push(message)
}

func (f *Feed) push(message string) Notification {
	f.nextID++
	n := Notification{ID: f.nextID, Message: message, IsNew: true, CreatedAt: f.now()}
	f.items = append([]Notification{n}, f.items...)
	if len(f.items) > f.limit {
		f.items = f.items[:f.limit]
	}
	return n
}

// List returns up to limit notifications, newest first. limit <= 0 returns
// all of them.
func (f *Feed) List(limit int) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Notification, n)
	copy(out, f.items[:n])
	return out
}

// Unread counts notifications not yet marked read.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.items {
		if n.IsNew {
			count++
		}
	}
	return count
}

// MarkAllRead clears the unread flag and returns how many were unread.
func (f *Feed) MarkAllRead() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for i := range f.items {
		if f.items[i].IsNew {
			f.items[i].IsNew = false
			count++
		}
	}
	return count
}

// ProfileAnalyzed posts a notification for a stored analysis.
func (f *Feed) ProfileAnalyzed(kind analysis.Kind, rec profile.Record) {
	if rec.Analysis == nil {
		return
	}
	a := rec.Analysis
	var msg string
	switch {
	case kind == analysis.KindImport && len(a.MatchedInternships) > 0:
		msg = fmt.Sprintf("AI analyzed %s's LinkedIn: %d%% match with %s!", rec.Name, a.SuitabilityScore, a.MatchedInternships[0])
	case kind == analysis.KindImport:
		msg = fmt.Sprintf("AI analyzed %s's LinkedIn: %d%% suitability", rec.Name, a.SuitabilityScore)
	default:
		msg = fmt.Sprintf("Re-analysis of %s complete: %d%% suitability, %d matches", rec.Name, a.SuitabilityScore, len(a.MatchedInternships))
	}
	f.Add(msg)
}
