// Package app is the per-session screen engine: it owns the session store,
// routes between screens and composes login, requirement capture, the
// post/offer workflow and the inbox.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/hoko/internal/inbox"
	"github.com/shinyyama/hoko/internal/login"
	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/realtime"
	"github.com/shinyyama/hoko/internal/repository"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/service"
	"github.com/shinyyama/hoko/internal/session"
)

// BadgePulse is how long the unread badge pulses after a toast action.
const BadgePulse = 2 * time.Second

// CategorySuggester guesses a catalog category from the free-text need.
type CategorySuggester interface {
	Suggest(ctx context.Context, need string) (string, error)
}

// Sink receives pushed frames for the browser.
type Sink interface {
	Push(f realtime.Frame) error
}

type Deps struct {
	Cities        repository.CityRepository
	Posts         service.PostService
	Offers        service.OfferService
	Chat          service.ChatService
	Notifications service.NotificationService
	Broker        *realtime.Broker
	Login         login.Deps
	Suggester     CategorySuggester
	Now           func() time.Time
}

type App struct {
	deps    Deps
	store   *session.Store
	capture *requirement.Capture
	feed    *inbox.Feed
	thread  *inbox.Thread

	mu          sync.Mutex
	loading     bool
	screen      Screen
	tab         Tab
	login       *login.Flow
	loginFrom   Screen
	attachErr   string
	detailsErr  requirement.FieldErrors
	pending     pendingPost
	postSuccess *PostSuccess
	dash        dashboard
	toasts      []Toast
	pulseUntil  time.Time
	sink        Sink
}

// PostSuccess is the popup shown after a requirement was published.
type PostSuccess struct {
	CityName string `json:"city_name"`
}

func New(deps Deps, storage session.Storage) *App {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	store := session.NewStore(storage)
	scope := uuid.NewString()
	a := &App{
		deps:    deps,
		store:   store,
		capture: requirement.NewCapture(store),
		feed:    inbox.NewFeed(deps.Notifications, deps.Broker, scope),
		thread:  inbox.NewThread(deps.Chat, deps.Broker, scope),
		loading: true,
		screen:  ScreenWelcome,
		tab:     TabDashboard,
		pending: pendingPost{phase: PostIdle},
		dash:    newDashboard(),
	}
	a.thread.OnChange(a.pushThread)
	return a
}

// Store is the session state shared by every screen.
func (a *App) Store() *session.Store {
	return a.store
}

// SetSink attaches the browser connection; nil detaches it.
func (a *App) SetSink(s Sink) {
	a.mu.Lock()
	a.sink = s
	a.mu.Unlock()
}

// DetachSink clears s if it is still the attached sink.
func (a *App) DetachSink(s Sink) {
	a.mu.Lock()
	if a.sink == s {
		a.sink = nil
	}
	a.mu.Unlock()
}

func (a *App) push(typ string, data interface{}) {
	a.mu.Lock()
	s := a.sink
	a.mu.Unlock()
	if s == nil {
		return
	}
	if err := s.Push(realtime.Frame{Type: typ, Data: data, At: a.deps.Now()}); err != nil {
		log.Printf("[app] stage=push type=%s err=%v", typ, err)
	}
}

func (a *App) pushThread() {
	if st := a.thread.State(); st != nil {
		a.push("chat", st)
	}
}

// Start loads the city list, restores a persisted user and, when one is
// signed in, routes to the dashboard.
func (a *App) Start(ctx context.Context) error {
	defer func() {
		a.mu.Lock()
		a.loading = false
		a.mu.Unlock()
	}()
	cities, err := a.deps.Cities.List(ctx)
	if err != nil {
		log.Printf("[app] stage=load_cities err=%v", err)
		return err
	}
	a.store.SetCities(cities)
	a.store.Restore()
	if a.store.SignedIn() {
		a.enterDashboard(ctx)
	}
	return nil
}

// Dispatch applies a navigation command.
func (a *App) Dispatch(cmd Command) {
	switch c := cmd.(type) {
	case ViewNotifications:
		a.mu.Lock()
		a.screen = ScreenDashboard
		a.tab = TabNotifications
		a.dash.selectedPost = nil
		a.pulseUntil = a.deps.Now().Add(BadgePulse)
		a.mu.Unlock()
	case SelectTab:
		if !validTab(c.Tab) {
			return
		}
		a.mu.Lock()
		a.tab = c.Tab
		a.dash.selectedPost = nil
		a.dash.offers = nil
		a.mu.Unlock()
	}
}

// ActivateToast runs the action of toast id and dismisses it.
func (a *App) ActivateToast(id string) bool {
	a.mu.Lock()
	var action Command
	for i, t := range a.toasts {
		if t.ID == id {
			action = t.Action
			a.toasts = append(a.toasts[:i:i], a.toasts[i+1:]...)
			break
		}
	}
	a.mu.Unlock()
	if action == nil {
		return false
	}
	a.Dispatch(action)
	return true
}

func (a *App) DismissToast(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, t := range a.toasts {
		if t.ID == id {
			a.toasts = append(a.toasts[:i:i], a.toasts[i+1:]...)
			return
		}
	}
}

func (a *App) onNotification(n model.Notification) {
	t := Toast{
		ID:           uuid.NewString(),
		Notification: n,
		ActionLabel:  "View",
		Action:       ViewNotifications{NotificationID: n.ID},
	}
	a.mu.Lock()
	a.toasts = append(a.toasts, t)
	a.pulseUntil = a.deps.Now().Add(BadgePulse)
	a.mu.Unlock()
	a.push("toast", t)
}

// enterDashboard routes to the dashboard and loads everything the signed-in
// user sees there.
func (a *App) enterDashboard(ctx context.Context) {
	u := a.store.User()
	city := a.store.City()
	a.mu.Lock()
	a.screen = ScreenDashboard
	a.tab = TabDashboard
	a.login = nil
	if city != nil {
		a.dash.viewCity = city
	}
	a.mu.Unlock()
	if u == nil {
		return
	}
	if err := a.feed.Refresh(ctx, u.ID); err != nil {
		log.Printf("[app] stage=feed_refresh user=%s err=%v", u.ID, err)
	}
	a.feed.Attach(u.ID, a.onNotification)
	a.reloadPosts(ctx)
	a.reloadMine(ctx)
}

// Close drops every live subscription of the session.
func (a *App) Close() {
	a.thread.Close()
	a.feed.Detach()
	a.SetSink(nil)
}
