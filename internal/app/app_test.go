package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/hoko/internal/login"
	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/otp"
	"github.com/shinyyama/hoko/internal/realtime"
	"github.com/shinyyama/hoko/internal/repository"
	"github.com/shinyyama/hoko/internal/repository/memory"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/service"
	"github.com/shinyyama/hoko/internal/session"
)

type uploader struct {
	mu  sync.Mutex
	n   int
	err error
}

func (u *uploader) Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.n++
	return "https://cdn.example/" + path, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type frames struct {
	mu  sync.Mutex
	got []realtime.Frame
}

func (f *frames) Push(fr realtime.Frame) error {
	f.mu.Lock()
	f.got = append(f.got, fr)
	f.mu.Unlock()
	return nil
}

func (f *frames) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.got))
	for _, fr := range f.got {
		out = append(out, fr.Type)
	}
	return out
}

type harness struct {
	store  *memory.Store
	set    *repository.Set
	broker *realtime.Broker
	blobs  *uploader
	clock  *clock
	deps   Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := realtime.NewBroker()
	st := memory.New(b)
	st.AddCity(model.City{ID: "pune", Name: "Pune", State: "MH"})
	st.AddCity(model.City{ID: "mumbai", Name: "Mumbai", State: "MH"})
	set := st.Set()
	notif := service.NewNotificationService(set.Notifications)
	blobs := &uploader{}
	clk := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	deps := Deps{
		Cities:        set.Cities,
		Posts:         service.NewPostService(set.Posts, set.Offers, notif, blobs),
		Offers:        service.NewOfferService(set.Offers, set.Posts, notif),
		Chat:          service.NewChatService(set.Messages, set.Users, notif),
		Notifications: notif,
		Broker:        b,
		Login: login.Deps{
			Sender: otp.Demo{Code: "123456"},
			Codes:  set.OTPCodes,
			Users:  set.Users,
			Now:    clk.Now,
		},
		Now: clk.Now,
	}
	return &harness{store: st, set: set, broker: b, blobs: blobs, clock: clk, deps: deps}
}

func (h *harness) start(t *testing.T) *App {
	t.Helper()
	a := New(h.deps, session.NewMemoryStorage())
	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Close)
	return a
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func soapDetails() requirement.Details {
	return requirement.Details{Category: "health-beauty", Brand: "Dove", Quantity: 2, Unit: "pieces"}
}

func TestBuyerPostsAfterLogin(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()

	if v := a.View(); v.Loading || v.Screen != ScreenWelcome || len(v.Cities) != 2 {
		t.Fatalf("start view %+v", v)
	}
	if err := a.SubmitNeed(ctx, "need soap"); err != nil {
		t.Fatal(err)
	}
	if v := a.View(); v.Screen != ScreenProductDetails || !v.Capture.ShowFragrance {
		t.Fatalf("details view %+v", v.Capture)
	}
	if err := a.SubmitDetails(ctx, soapDetails()); err != nil {
		t.Fatal(err)
	}
	if a.View().Screen != ScreenLogin {
		t.Fatalf("screen=%s", a.View().Screen)
	}
	if len(h.store.Posts()) != 0 {
		t.Fatal("post created before login")
	}

	if err := a.RequestCode(ctx, "9876543210"); err != nil {
		t.Fatal(err)
	}
	if v := a.View(); v.Login.Step != login.StepCodeSent || v.Login.CooldownSeconds != 60 || v.Login.DemoCode != "123456" {
		t.Fatalf("login view %+v", v.Login)
	}
	if err := a.VerifyCode(ctx, "123456"); err != nil {
		t.Fatal(err)
	}
	if err := a.CompleteBuyer(ctx, "pune"); err != nil {
		t.Fatal(err)
	}

	posts := h.store.Posts()
	if len(posts) != 1 {
		t.Fatalf("posts=%d", len(posts))
	}
	p := posts[0]
	if p.ProductName != "need soap" || p.Category != "health-beauty" || p.Brand != "Dove" ||
		p.Quantity != 2 || p.Unit != "pieces" || p.Status != model.PostStatusActive || p.OfferCount != 0 || p.CityID != "pune" {
		t.Fatalf("post %+v", p)
	}

	v := a.View()
	if v.Screen != ScreenDashboard || v.PostSuccess == nil || v.PostSuccess.CityName != "Pune" {
		t.Fatalf("view %+v", v)
	}
	if v.PostPhase != PostCreated {
		t.Fatalf("phase=%s", v.PostPhase)
	}
	if len(v.Dashboard.MyPosts) != 1 || len(v.Dashboard.Posts) != 1 {
		t.Fatalf("dashboard %+v", v.Dashboard)
	}
	if a.Store().Draft().ProductName != "" {
		t.Fatal("draft not cleared")
	}

	// Running the login trigger again publishes nothing more.
	if err := a.loginSucceeded(ctx); err != nil {
		t.Fatal(err)
	}
	if len(h.store.Posts()) != 1 {
		t.Fatalf("posts=%d after re-trigger", len(h.store.Posts()))
	}
}

func TestPublishFailureKeepsDraftForRetry(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	signIn(t, a, "9876543210", "pune")

	h.blobs.err = errors.New("bucket unavailable")
	_ = a.SubmitNeed(ctx, "steel pipes")
	if msg := a.AddAttachments([]requirement.File{{Name: "drawing.pdf", ContentType: "application/pdf", Size: 10}}); msg != "" {
		t.Fatal(msg)
	}
	details := soapDetails()
	details.Category = "industrial"
	if err := a.SubmitDetails(ctx, details); err == nil {
		t.Fatal("expected publish failure")
	}
	v := a.View()
	if v.PostPhase != PostIdle || v.PostError == "" || v.PostSuccess != nil {
		t.Fatalf("view %+v", v)
	}
	if len(h.store.Posts()) != 0 {
		t.Fatal("post created without its attachment")
	}
	if a.Store().Draft().ProductName != "steel pipes" {
		t.Fatal("draft lost")
	}

	h.blobs.err = nil
	if err := a.RetryPost(ctx); err != nil {
		t.Fatal(err)
	}
	posts := h.store.Posts()
	if len(posts) != 1 || len(posts[0].AttachmentURLs) != 1 {
		t.Fatalf("posts %+v", posts)
	}
}

func TestPendingPostPhases(t *testing.T) {
	p := pendingPost{phase: PostIdle}
	if err := p.begin(); err != nil {
		t.Fatal(err)
	}
	if err := p.begin(); !errors.Is(err, ErrPostInProgress) {
		t.Fatalf("second begin err=%v", err)
	}
	p.finish(nil)
	if p.phase != PostCreated {
		t.Fatalf("phase=%s", p.phase)
	}
	if err := p.begin(); !errors.Is(err, ErrPostInProgress) {
		t.Fatal("created post started again")
	}
	p.reset()
	_ = p.begin()
	p.finish(errors.New("boom"))
	if p.phase != PostIdle || p.lastErr == "" {
		t.Fatalf("phase=%s err=%q", p.phase, p.lastErr)
	}
}

func signIn(t *testing.T, a *App, phone, cityID string) {
	t.Helper()
	ctx := context.Background()
	a.LoginAsBuyer(ctx)
	if err := a.RequestCode(ctx, phone); err != nil {
		t.Fatal(err)
	}
	if err := a.VerifyCode(ctx, "123456"); err != nil {
		t.Fatal(err)
	}
	if err := a.CompleteBuyer(ctx, cityID); err != nil {
		t.Fatal(err)
	}
}

func signInSeller(t *testing.T, a *App, phone, firm string) {
	t.Helper()
	ctx := context.Background()
	a.RegisterSeller()
	if err := a.RequestCode(ctx, phone); err != nil {
		t.Fatal(err)
	}
	if err := a.VerifyCode(ctx, "123456"); err != nil {
		t.Fatal(err)
	}
	err := a.CompleteSeller(ctx, login.SellerProfile{FirmName: firm, ManagerName: "Ravi", Category: "health-beauty", CityID: "pune"})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSellerOfferReachesBuyer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	buyer := h.start(t)
	sink := &frames{}
	buyer.SetSink(sink)
	signIn(t, buyer, "9876543210", "pune")
	_ = buyer.SubmitNeed(ctx, "need soap")
	if err := buyer.SubmitDetails(ctx, soapDetails()); err != nil {
		t.Fatal(err)
	}
	post := h.store.Posts()[0]

	seller := h.start(t)
	signInSeller(t, seller, "9000000001", "Sharma Traders")
	if got := len(seller.View().Dashboard.Posts); got != 1 {
		t.Fatalf("seller sees %d posts", got)
	}
	if err := seller.SubmitOffer(ctx, post.ID, "abc", ""); !errors.Is(err, service.ErrInvalidPrice) {
		t.Fatalf("err=%v", err)
	}
	if err := seller.SubmitOffer(ctx, post.ID, "250", "bulk discount"); err != nil {
		t.Fatal(err)
	}
	sv := seller.View().Dashboard
	if sv.Success != msgOfferSubmitted || sv.Submitting || len(sv.MyOffers) != 1 {
		t.Fatalf("seller dashboard %+v", sv)
	}

	waitFor(t, func() bool { return len(buyer.View().Toasts) == 1 })
	bv := buyer.View()
	toast := bv.Toasts[0]
	if toast.Notification.Type != model.NotificationNewOffer {
		t.Fatalf("toast %+v", toast)
	}
	if bv.Dashboard.UnreadCount != 1 || !bv.Dashboard.BadgePulse {
		t.Fatalf("unread=%d pulse=%v", bv.Dashboard.UnreadCount, bv.Dashboard.BadgePulse)
	}

	h.clock.Advance(3 * time.Second)
	if buyer.View().Dashboard.BadgePulse {
		t.Fatal("pulse outlived its window")
	}
	if !buyer.ActivateToast(toast.ID) {
		t.Fatal("toast action not found")
	}
	bv = buyer.View()
	if bv.Dashboard.Tab != TabNotifications || !bv.Dashboard.BadgePulse || len(bv.Toasts) != 0 {
		t.Fatalf("after toast action %+v", bv.Dashboard)
	}
	found := false
	for _, typ := range sink.types() {
		if typ == "toast" {
			found = true
		}
	}
	if !found {
		t.Fatalf("frames=%v", sink.types())
	}

	if err := buyer.MarkNotificationRead(ctx, toast.Notification.ID); err != nil {
		t.Fatal(err)
	}
	if buyer.View().Dashboard.UnreadCount != 0 {
		t.Fatal("unread not decremented")
	}
}

func TestChatBetweenBuyerAndSeller(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	buyer := h.start(t)
	signIn(t, buyer, "9876543210", "pune")
	_ = buyer.SubmitNeed(ctx, "need soap")
	_ = buyer.SubmitDetails(ctx, soapDetails())
	post := h.store.Posts()[0]

	seller := h.start(t)
	signInSeller(t, seller, "9000000001", "Sharma Traders")
	_ = seller.SubmitOffer(ctx, post.ID, "250", "")

	if err := buyer.ViewOffers(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	bv := buyer.View().Dashboard
	if bv.Tab != TabMyPosts || len(bv.Offers) != 1 {
		t.Fatalf("offers view %+v", bv)
	}
	if err := buyer.OpenChatWithSeller(ctx, bv.Offers[0].ID); err != nil {
		t.Fatal(err)
	}
	chat := buyer.View().Dashboard.Chat
	if chat == nil || chat.Peer.Role != "Seller" || chat.Peer.OfferPrice == nil || *chat.Peer.OfferPrice != 250 {
		t.Fatalf("chat %+v", chat)
	}
	if chat.CallLink != "tel:9000000001" {
		t.Fatalf("call link %q", chat.CallLink)
	}

	if err := seller.OpenChatWithBuyer(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	if err := seller.SendMessage(ctx, "Available in bulk"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		c := buyer.View().Dashboard.Chat
		return c != nil && len(c.Messages) == 1
	})
	waitFor(t, func() bool {
		c := seller.View().Dashboard.Chat
		return c != nil && len(c.Messages) == 1
	})

	var newMessage int
	for _, n := range h.store.Notifications() {
		if n.Type == model.NotificationNewMessage {
			newMessage++
		}
	}
	if newMessage != 1 {
		t.Fatalf("new_message notifications=%d", newMessage)
	}
	buyer.CloseChat()
	if buyer.View().Dashboard.Chat != nil {
		t.Fatal("chat still open")
	}
}

func TestOpenChatFailsWithoutCounterpart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.start(t)
	signIn(t, a, "9876543210", "pune")
	orphan := &model.Post{UserID: "ghost", CityID: "pune", ProductName: "cement", Status: model.PostStatusActive}
	if err := h.set.Posts.Create(ctx, orphan); err != nil {
		t.Fatal(err)
	}
	if err := a.OpenChatWithBuyer(ctx, orphan.ID); !errors.Is(err, service.ErrCounterpartMissing) {
		t.Fatalf("err=%v", err)
	}
	if v := a.View().Dashboard; v.Chat != nil || v.Error == "" {
		t.Fatalf("dashboard %+v", v)
	}
}

func TestEditPostNotifiesSellers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	buyer := h.start(t)
	signIn(t, buyer, "9876543210", "pune")
	_ = buyer.SubmitNeed(ctx, "need soap")
	_ = buyer.SubmitDetails(ctx, soapDetails())
	post := h.store.Posts()[0]

	for i, phone := range []string{"9000000001", "9000000002"} {
		s := h.start(t)
		signInSeller(t, s, phone, "Firm")
		_ = s.SubmitOffer(ctx, post.ID, "100", "")
		if i == 0 {
			_ = s.SubmitOffer(ctx, post.ID, "95", "")
		}
	}

	err := buyer.EditPost(ctx, post.ID, repository.PostFields{ProductName: "need soap", Category: "health-beauty", Brand: "Dove", Quantity: 10, Unit: "boxes"})
	if err != nil {
		t.Fatal(err)
	}
	if v := buyer.View().Dashboard; v.Success != msgPostUpdated || v.Submitting {
		t.Fatalf("dashboard %+v", v)
	}
	var updated int
	for _, n := range h.store.Notifications() {
		if n.Type == model.NotificationPostUpdated {
			updated++
		}
	}
	if updated != 2 {
		t.Fatalf("post_updated=%d", updated)
	}
}

func TestCategoryFilterAndViewCity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.start(t)
	signIn(t, a, "9876543210", "pune")
	for _, p := range []model.Post{
		{UserID: "x", CityID: "pune", ProductName: "tv", Category: "electronics", Status: model.PostStatusActive},
		{UserID: "x", CityID: "pune", ProductName: "soap", Category: "health-beauty", Status: model.PostStatusActive},
		{UserID: "x", CityID: "mumbai", ProductName: "bricks", Category: "construction", Status: model.PostStatusActive},
	} {
		if err := h.set.Posts.Create(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}
	a.Refresh(ctx)
	if got := len(a.View().Dashboard.Posts); got != 2 {
		t.Fatalf("posts=%d", got)
	}
	a.SetCategory("electronics")
	if v := a.View().Dashboard; len(v.Posts) != 1 || v.Posts[0].Category != "electronics" || len(v.Categories) != 2 {
		t.Fatalf("filtered %+v", v.Posts)
	}
	a.SetCategory("all")
	if got := len(a.View().Dashboard.Posts); got != 2 {
		t.Fatalf("posts=%d after all", got)
	}
	if err := a.SetViewCity(ctx, "mumbai"); err != nil {
		t.Fatal(err)
	}
	v := a.View().Dashboard
	if v.ViewCity.ID != "mumbai" || len(v.Posts) != 1 {
		t.Fatalf("mumbai %+v", v)
	}
	if a.Store().City().ID != "pune" {
		t.Fatal("browsing changed the user's own city")
	}
}

func TestLogoutAndRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	storage := session.NewMemoryStorage()
	a := New(h.deps, storage)
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	signIn(t, a, "9876543210", "pune")
	a.Close()

	// A reload with the same browser storage lands on the dashboard.
	b := New(h.deps, storage)
	defer b.Close()
	if err := b.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if v := b.View(); v.Screen != ScreenDashboard || v.City == nil || v.City.Name != "Pune" {
		t.Fatalf("restored view %+v", v)
	}

	b.Logout()
	v := b.View()
	if v.Screen != ScreenWelcome || v.User != nil || v.City != nil {
		t.Fatalf("after logout %+v", v)
	}
	if _, ok := storage.Get(session.UserKey); ok {
		t.Fatal("persisted user survived logout")
	}
	if h.broker.Len() != 0 {
		t.Fatalf("live subscriptions=%d", h.broker.Len())
	}
}

func TestNewPostResetsDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.start(t)
	signIn(t, a, "9876543210", "pune")
	_ = a.SubmitNeed(ctx, "need soap")
	a.AddAttachments([]requirement.File{{Name: "a.png", ContentType: "image/png", Size: 1}})
	a.NewPost()
	v := a.View()
	if v.Screen != ScreenWelcome || v.Capture.Draft.ProductName != "" || len(v.Capture.Attachments) != 0 || v.Capture.Draft.Unit != "pieces" {
		t.Fatalf("view %+v", v.Capture)
	}
	a.LoginAsBuyer(ctx)
	if a.View().Screen != ScreenDashboard {
		t.Fatal("signed-in buyer not sent to dashboard")
	}
}

func TestBackNavigation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.start(t)
	_ = a.SubmitNeed(ctx, "need soap")
	_ = a.SubmitDetails(ctx, soapDetails())
	_ = a.RequestCode(ctx, "9876543210")
	a.Back()
	if v := a.View(); v.Screen != ScreenLogin || v.Login.Step != login.StepPhone {
		t.Fatalf("view %+v", v.Login)
	}
	a.Back()
	if a.View().Screen != ScreenProductDetails {
		t.Fatalf("screen=%s", a.View().Screen)
	}
	a.Back()
	if a.View().Screen != ScreenWelcome {
		t.Fatalf("screen=%s", a.View().Screen)
	}
	a.RegisterSeller()
	a.Back()
	if a.View().Screen != ScreenWelcome {
		t.Fatalf("screen=%s", a.View().Screen)
	}
}

type suggester struct{ value string }

func (s suggester) Suggest(ctx context.Context, need string) (string, error) {
	if s.value == "" {
		return "", errors.New("no answer")
	}
	return s.value, nil
}

func TestCategorySuggestion(t *testing.T) {
	h := newHarness(t)
	h.deps.Suggester = suggester{value: "health-beauty"}
	a := h.start(t)
	if err := a.SubmitNeed(context.Background(), "need soap"); err != nil {
		t.Fatal(err)
	}
	if got := a.View().Capture.Draft.Category; got != "health-beauty" {
		t.Fatalf("category=%q", got)
	}

	h.deps.Suggester = suggester{}
	b := h.start(t)
	if err := b.SubmitNeed(context.Background(), "need soap"); err != nil {
		t.Fatal(err)
	}
	if got := b.View().Capture.Draft.Category; got != "" {
		t.Fatalf("category=%q", got)
	}
}

func TestRegistry(t *testing.T) {
	h := newHarness(t)
	r := NewRegistry(h.deps)
	ctx := context.Background()
	id, a, err := r.Open(ctx, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	id2, a2, _ := r.Open(ctx, id, nil)
	if id2 != id || a2 != a {
		t.Fatal("session not reused")
	}
	id3, _, _ := r.Open(ctx, "stale", nil)
	if id3 == "stale" || r.Len() != 2 {
		t.Fatalf("id=%s len=%d", id3, r.Len())
	}
	r.Remove(id)
	if _, ok := r.Get(id); ok {
		t.Fatal("session not removed")
	}
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	h := newHarness(t)
	r := NewRegistry(h.deps)
	ctx := context.Background()
	idle, _, _ := r.Open(ctx, "", nil)
	h.clock.Advance(time.Hour)
	busy, _, _ := r.Open(ctx, "", nil)

	h.clock.Advance(30 * time.Minute)
	if _, ok := r.Get(busy); !ok {
		t.Fatal("busy session missing")
	}
	if n := r.Expire(time.Hour); n != 1 {
		t.Fatalf("expired=%d", n)
	}
	if _, ok := r.Get(idle); ok {
		t.Fatal("idle session kept")
	}
	if r.Len() != 1 {
		t.Fatalf("len=%d", r.Len())
	}
}

func TestSameUserInTwoSessionsGetsToasts(t *testing.T) {
	h := newHarness(t)
	laptop := h.start(t)
	phone := h.start(t)
	signIn(t, laptop, "9876543210", "pune")
	signIn(t, phone, "9876543210", "pune")
	u := laptop.Store().User()
	if u == nil || phone.Store().User() == nil || phone.Store().User().ID != u.ID {
		t.Fatal("sessions did not sign in the same user")
	}

	h.deps.Notifications.Notify(context.Background(), &model.Notification{
		UserID: u.ID, Type: model.NotificationNewOffer, Title: "New Offer Received!",
	})

	waitFor(t, func() bool {
		return len(laptop.View().Toasts) == 1 && len(phone.View().Toasts) == 1
	})
	if laptop.View().Dashboard.UnreadCount != 1 || phone.View().Dashboard.UnreadCount != 1 {
		t.Fatal("unread count not shared by both sessions")
	}
}

func TestRefreshKeepsFeedWhenListingFails(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	signIn(t, a, "9876543210", "pune")
	u := a.Store().User()
	h.deps.Notifications.Notify(ctx, &model.Notification{UserID: u.ID, Type: model.NotificationNewOffer, Title: "New Offer Received!"})
	waitFor(t, func() bool { return a.View().Dashboard.UnreadCount == 1 })

	h.store.FailOn("notifications.list", errors.New("timeout"))
	a.Refresh(ctx)
	if got := len(a.View().Dashboard.Notifications); got != 1 {
		t.Fatalf("notifications=%d", got)
	}
	h.store.FailOn("notifications.list", nil)
}
