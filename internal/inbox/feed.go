// Package inbox keeps a user's notification feed and open chat thread in
// step with the record store and its insert feed.
package inbox

import (
	"context"
	"log"
	"sync"

	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/realtime"
	"github.com/shinyyama/hoko/internal/service"
)

// Feed is the notification list of the signed-in user, newest first.
type Feed struct {
	svc    service.NotificationService
	broker *realtime.Broker
	scope  string

	mu     sync.Mutex
	userID string
	items  []model.Notification
	sub    *realtime.Subscription
}

// NewFeed builds a feed whose channel names are prefixed with scope, so two
// sessions of the same user keep separate subscriptions.
func NewFeed(svc service.NotificationService, broker *realtime.Broker, scope string) *Feed {
	return &Feed{svc: svc, broker: broker, scope: scope}
}

func scoped(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "/" + name
}

// Refresh replaces the local list with the newest notifications of userID.
// On failure the previous list stays.
func (f *Feed) Refresh(ctx context.Context, userID string) error {
	list, err := f.svc.ListRecent(ctx, userID)
	if err != nil {
		log.Printf("[inbox] stage=feed_refresh user=%s err=%v", userID, err)
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userID = userID
	f.items = append([]model.Notification(nil), list...)
	return nil
}

// Attach subscribes to notifications inserted for userID. Each new one is
// prepended and handed to onPush, which may be nil.
func (f *Feed) Attach(userID string, onPush func(model.Notification)) {
	if f.broker == nil || userID == "" {
		return
	}
	f.Detach()
	sub := f.broker.Subscribe(scoped(f.scope, "notifications-"+userID), "notifications", realtime.Eq("user_id", userID), func(ev realtime.Event) {
		n, ok := ev.Record.(*model.Notification)
		if !ok {
			return
		}
		if f.prepend(*n) && onPush != nil {
			onPush(*n)
		}
	})
	f.mu.Lock()
	f.userID = userID
	f.sub = sub
	f.mu.Unlock()
}

// Detach drops the live subscription, if any.
func (f *Feed) Detach() {
	f.mu.Lock()
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Clear detaches and forgets every held notification.
func (f *Feed) Clear() {
	f.Detach()
	f.mu.Lock()
	f.userID = ""
	f.items = nil
	f.mu.Unlock()
}

func (f *Feed) prepend(n model.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.items {
		if x.ID == n.ID {
			return false
		}
	}
	f.items = append([]model.Notification{n}, f.items...)
	return true
}

func (f *Feed) Items() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notification(nil), f.items...)
}

// UnreadCount is derived from the held list on every call.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.items {
		if !x.IsRead {
			n++
		}
	}
	return n
}

// MarkRead flips the local flag first and then writes it through. A failed
// write is logged; the local state is not rolled back.
func (f *Feed) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	changed := false
	for i := range f.items {
		if f.items[i].ID == id && !f.items[i].IsRead {
			f.items[i].IsRead = true
			changed = true
		}
	}
	f.mu.Unlock()
	if !changed {
		return nil
	}
	if err := f.svc.MarkRead(ctx, id); err != nil {
		log.Printf("[inbox] stage=mark_read notification=%s err=%v", id, err)
		return err
	}
	return nil
}
