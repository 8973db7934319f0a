package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/repository"
	"github.com/shinyyama/hoko/internal/repository/memory"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/session"
)

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	u.mu.Lock()
	u.paths = append(u.paths, path)
	u.mu.Unlock()
	return "https://cdn.example/" + path, nil
}

type fixture struct {
	store  *memory.Store
	set    *repository.Set
	notif  NotificationService
	posts  PostService
	offers OfferService
	chat   ChatService
	blobs  *fakeUploader
	buyer  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New(nil)
	st.AddCity(model.City{ID: "pune", Name: "Pune", State: "MH"})
	set := st.Set()
	notif := NewNotificationService(set.Notifications)
	blobs := &fakeUploader{}
	buyer := &model.User{Mobile: "9876543210", CityID: "pune", IsBuyer: true}
	if err := set.Users.Create(context.Background(), buyer); err != nil {
		t.Fatal(err)
	}
	return &fixture{
		store:  st,
		set:    set,
		notif:  notif,
		posts:  NewPostService(set.Posts, set.Offers, notif, blobs),
		offers: NewOfferService(set.Offers, set.Posts, notif),
		chat:   NewChatService(set.Messages, set.Users, notif),
		blobs:  blobs,
		buyer:  buyer,
	}
}

func (f *fixture) seller(t *testing.T, mobile, firm string) *model.User {
	t.Helper()
	u := &model.User{Mobile: mobile, CityID: "pune", IsSeller: true, FirmName: firm}
	if err := f.set.Users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func (f *fixture) post(t *testing.T) *model.Post {
	t.Helper()
	p, err := f.posts.Create(context.Background(), NewPost{
		UserID: f.buyer.ID,
		CityID: "pune",
		Draft:  session.Draft{ProductName: "need soap", Category: "health-beauty", Brand: "Dove", Quantity: 2, Unit: "pieces"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func countType(list []model.Notification, typ model.NotificationType) int {
	n := 0
	for _, x := range list {
		if x.Type == typ {
			n++
		}
	}
	return n
}

func TestCreatePostDefaults(t *testing.T) {
	f := newFixture(t)
	p, err := f.posts.Create(context.Background(), NewPost{UserID: f.buyer.ID, CityID: "pune", Draft: session.Draft{ProductName: " need soap "}})
	if err != nil {
		t.Fatal(err)
	}
	if p.ProductName != "need soap" || p.Quantity != 1 || p.Unit != "pieces" || p.Status != model.PostStatusActive || p.OfferCount != 0 {
		t.Fatalf("post %+v", p)
	}
	if _, err := f.posts.Create(context.Background(), NewPost{UserID: f.buyer.ID, CityID: "pune"}); !errors.Is(err, ErrEmptyProduct) {
		t.Fatalf("err=%v", err)
	}
}

func TestCreatePostUploadsAttachments(t *testing.T) {
	f := newFixture(t)
	files := []requirement.File{
		{Name: "quote.pdf", ContentType: "application/pdf", Size: 3, Data: []byte("pdf")},
		{Name: "photo.png", ContentType: "image/png", Size: 3, Data: []byte("png")},
	}
	p, err := f.posts.Create(context.Background(), NewPost{UserID: f.buyer.ID, CityID: "pune", Draft: session.Draft{ProductName: "pipes"}, Files: files})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.AttachmentURLs) != 2 {
		t.Fatalf("urls=%v", p.AttachmentURLs)
	}
	for _, path := range f.blobs.paths {
		if !strings.HasPrefix(path, "posts/"+f.buyer.ID+"/") {
			t.Fatalf("path %s not namespaced by user", path)
		}
	}
}

func TestCreatePostUploadFailureInsertsNothing(t *testing.T) {
	f := newFixture(t)
	f.blobs.err = errors.New("bucket gone")
	_, err := f.posts.Create(context.Background(), NewPost{
		UserID: f.buyer.ID, CityID: "pune",
		Draft: session.Draft{ProductName: "pipes"},
		Files: []requirement.File{{Name: "a.pdf", ContentType: "application/pdf"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.store.Posts()) != 0 {
		t.Fatal("post inserted without its attachments")
	}
}

func TestSubmitOffer(t *testing.T) {
	f := newFixture(t)
	post := f.post(t)
	seller := f.seller(t, "9000000001", "Sharma Traders")

	o, err := f.offers.Submit(context.Background(), seller, post.ID, "250", "bulk discount")
	if err != nil {
		t.Fatal(err)
	}
	updated, _ := f.posts.Get(context.Background(), post.ID)
	if updated.OfferCount != 1 {
		t.Fatalf("offer_count=%d", updated.OfferCount)
	}
	notes := f.store.Notifications()
	if len(notes) != 1 {
		t.Fatalf("notifications=%d", len(notes))
	}
	n := notes[0]
	if n.Type != model.NotificationNewOffer || n.UserID != f.buyer.ID || n.OfferID == nil || *n.OfferID != o.ID || *n.PostID != post.ID {
		t.Fatalf("notification %+v", n)
	}
	if n.Message != "Sharma Traders submitted an offer of ₹250 for your need soap requirement" {
		t.Fatalf("message=%q", n.Message)
	}
}

func TestSubmitOfferValidation(t *testing.T) {
	f := newFixture(t)
	post := f.post(t)
	seller := f.seller(t, "9000000001", "")
	for _, price := range []string{"", "abc", "0", "-5", "NaN", "Inf"} {
		if _, err := f.offers.Submit(context.Background(), seller, post.ID, price, ""); !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("price %q err=%v", price, err)
		}
	}
	if _, err := f.offers.Submit(context.Background(), seller, "missing", "10", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestSubmitOfferCountFailureKeepsOffer(t *testing.T) {
	f := newFixture(t)
	post := f.post(t)
	seller := f.seller(t, "9000000001", "")
	f.store.FailOn("posts.increment", errors.New("timeout"))
	if _, err := f.offers.Submit(context.Background(), seller, post.ID, "99.5", ""); err != nil {
		t.Fatalf("offer failed on count update: %v", err)
	}
	if len(f.store.Offers()) != 1 {
		t.Fatal("offer missing")
	}
	if msg := f.store.Notifications()[0].Message; !strings.HasPrefix(msg, "A seller submitted an offer of ₹99.5") {
		t.Fatalf("message=%q", msg)
	}
}

func TestEditPostNotifiesDistinctSellers(t *testing.T) {
	f := newFixture(t)
	post := f.post(t)
	s1 := f.seller(t, "9000000001", "A")
	s2 := f.seller(t, "9000000002", "B")
	ctx := context.Background()
	for _, o := range []struct {
		u     *model.User
		price string
	}{{s1, "100"}, {s2, "120"}, {s1, "90"}} {
		if _, err := f.offers.Submit(ctx, o.u, post.ID, o.price, ""); err != nil {
			t.Fatal(err)
		}
	}

	edited, err := f.posts.Edit(ctx, f.buyer.ID, post.ID, repository.PostFields{ProductName: "need soap bars", Category: "health-beauty", Brand: "Dove", Quantity: 5, Unit: "boxes"})
	if err != nil {
		t.Fatal(err)
	}
	if edited.Quantity != 5 || edited.Unit != "boxes" {
		t.Fatalf("edited %+v", edited)
	}
	notes := f.store.Notifications()
	if got := countType(notes, model.NotificationPostUpdated); got != 2 {
		t.Fatalf("post_updated=%d want=2", got)
	}
	targets := map[string]bool{}
	for _, n := range notes {
		if n.Type == model.NotificationPostUpdated {
			targets[n.UserID] = true
			if n.Message != `The buyer has updated their requirement for "need soap bars". Please review the changes.` {
				t.Fatalf("message=%q", n.Message)
			}
		}
	}
	if !targets[s1.ID] || !targets[s2.ID] {
		t.Fatalf("targets=%v", targets)
	}
}

func TestEditPostOwnership(t *testing.T) {
	f := newFixture(t)
	post := f.post(t)
	if _, err := f.posts.Edit(context.Background(), "someone-else", post.ID, repository.PostFields{ProductName: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err=%v", err)
	}
	if _, err := f.posts.Edit(context.Background(), f.buyer.ID, "missing", repository.PostFields{ProductName: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestEditOfferNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	post := f.post(t)
	seller := f.seller(t, "9000000001", "Sharma Traders")
	other := f.seller(t, "9000000002", "Other")
	ctx := context.Background()
	o, _ := f.offers.Submit(ctx, seller, post.ID, "250", "")

	if _, err := f.offers.Edit(ctx, other, o.ID, "200", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err=%v", err)
	}
	edited, err := f.offers.Edit(ctx, seller, o.ID, "225", "best price")
	if err != nil {
		t.Fatal(err)
	}
	if edited.Price != 225 || edited.Notes != "best price" {
		t.Fatalf("offer %+v", edited)
	}
	var found *model.Notification
	notes := f.store.Notifications()
	for i := range notes {
		if notes[i].Type == model.NotificationOfferUpdated {
			found = &notes[i]
		}
	}
	if found == nil || found.UserID != f.buyer.ID {
		t.Fatalf("offer_updated notification %+v", found)
	}
	if found.Message != `Sharma Traders has updated their offer to ₹225 for your "need soap" requirement.` {
		t.Fatalf("message=%q", found.Message)
	}
}

func TestFilterByCategory(t *testing.T) {
	posts := []model.Post{{ID: "1", Category: "electronics"}, {ID: "2", Category: "health-beauty"}, {ID: "3", Category: "electronics"}}
	tests := []struct {
		category string
		want     []string
	}{
		{"all", []string{"1", "2", "3"}},
		{"", []string{"1", "2", "3"}},
		{"electronics", []string{"1", "3"}},
		{"health-beauty", []string{"2"}},
		{"toys-games", nil},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			got := FilterByCategory(posts, tt.category)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d posts want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Fatalf("got[%d]=%s want=%s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
	if cats := CategoriesIn(posts); len(cats) != 2 || cats[0].Value != "electronics" {
		t.Fatalf("categories=%v", cats)
	}
}

func TestChatSendNotifiesOnlyOnSuccess(t *testing.T) {
	f := newFixture(t)
	post := f.post(t)
	seller := f.seller(t, "9000000001", "")
	ctx := context.Background()

	if _, err := f.chat.Send(ctx, seller, f.buyer.ID, post, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err=%v", err)
	}
	f.store.FailOn("messages.create", errors.New("down"))
	if _, err := f.chat.Send(ctx, seller, f.buyer.ID, post, "hello"); err == nil {
		t.Fatal("expected insert failure")
	}
	if len(f.store.Notifications()) != 0 {
		t.Fatal("notification sent for failed message")
	}
	f.store.FailOn("messages.create", nil)

	m, err := f.chat.Send(ctx, seller, f.buyer.ID, post, " hello ")
	if err != nil {
		t.Fatal(err)
	}
	if m.Content != "hello" {
		t.Fatalf("content=%q", m.Content)
	}
	notes := f.store.Notifications()
	if len(notes) != 1 || notes[0].Message != `9000000001 sent you a message about "need soap"` {
		t.Fatalf("notifications %+v", notes)
	}

	thread, _ := f.chat.Thread(ctx, post.ID, f.buyer.ID, seller.ID)
	if len(thread) != 1 {
		t.Fatalf("thread=%d", len(thread))
	}
	if err := f.chat.MarkThreadRead(ctx, post.ID, f.buyer.ID, seller.ID); err != nil {
		t.Fatal(err)
	}
	if !f.store.Messages()[0].IsRead {
		t.Fatal("thread not marked read")
	}
}

func TestCounterpart(t *testing.T) {
	f := newFixture(t)
	seller := f.seller(t, "9000000001", "")
	ctx := context.Background()
	if u, err := f.chat.Counterpart(ctx, seller, seller.ID); err != nil || u != seller {
		t.Fatalf("embedded not used: %v", err)
	}
	if u, err := f.chat.Counterpart(ctx, nil, seller.ID); err != nil || u.ID != seller.ID {
		t.Fatalf("fetch failed: %v", err)
	}
	if _, err := f.chat.Counterpart(ctx, nil, "ghost"); !errors.Is(err, ErrCounterpartMissing) {
		t.Fatalf("err=%v", err)
	}
	if CallLink(seller) != "tel:9000000001" || CallLink(nil) != "" {
		t.Fatal("unexpected call link")
	}
}
