package app

import (
	"context"
	"errors"
	"log"

	"github.com/shinyyama/hoko/internal/catalog"
	"github.com/shinyyama/hoko/internal/inbox"
	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/repository"
	"github.com/shinyyama/hoko/internal/service"
)

const (
	msgOfferSubmitted = "Your offer has been submitted successfully!"
	msgPostUpdated    = "Your post has been updated successfully! Sellers have been notified."
	msgOfferUpdated   = "Your offer has been updated successfully! The buyer has been notified."
)

var (
	ErrNotSignedIn = errors.New("sign in required")
	ErrSubmitting  = errors.New("a submission is already in flight")
)

type dashboard struct {
	viewCity     *model.City
	category     string
	posts        []model.Post
	myPosts      []model.Post
	myOffers     []model.Offer
	selectedPost *model.Post
	offers       []model.Offer
	submitting   bool
	success      string
	errText      string
	token        string
}

func newDashboard() dashboard {
	return dashboard{category: catalog.AllCategories}
}

// FailureMessage is the user text for a workflow error.
func FailureMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, service.ErrInvalidPrice):
		return "Please enter a valid price"
	case errors.Is(err, service.ErrEmptyProduct):
		return "Please enter a product name"
	case errors.Is(err, service.ErrForbidden):
		return "You can only edit your own posts and offers"
	case errors.Is(err, service.ErrNotFound):
		return "This item is no longer available"
	case errors.Is(err, service.ErrCounterpartMissing):
		return "Unable to load user information. Please try again."
	case errors.Is(err, ErrSubmitting):
		return "Please wait..."
	}
	return "Something went wrong. Please try again."
}

// beginSubmit sets the in-flight flag; the returned func clears it and
// must be deferred.
func (a *App) beginSubmit() (func(), error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dash.submitting {
		return nil, ErrSubmitting
	}
	a.dash.submitting = true
	a.dash.errText = ""
	return func() {
		a.mu.Lock()
		a.dash.submitting = false
		a.mu.Unlock()
	}, nil
}

func (a *App) failed(err error) error {
	a.mu.Lock()
	a.dash.errText = FailureMessage(err)
	a.mu.Unlock()
	return err
}

func (a *App) succeeded(msg string) {
	a.mu.Lock()
	a.dash.success = msg
	a.dash.errText = ""
	a.mu.Unlock()
}

func (a *App) DismissSuccess() {
	a.mu.Lock()
	a.dash.success = ""
	a.mu.Unlock()
}

// reloadPosts fetches active posts of the viewing city. A failed fetch
// leaves the previous list visible.
func (a *App) reloadPosts(ctx context.Context) {
	a.mu.Lock()
	city := a.dash.viewCity
	a.mu.Unlock()
	if city == nil {
		return
	}
	posts, err := a.deps.Posts.ListForCity(ctx, city.ID)
	if err != nil {
		log.Printf("[app] stage=load_posts city=%s err=%v", city.ID, err)
		return
	}
	a.mu.Lock()
	a.dash.posts = posts
	a.mu.Unlock()
}

func (a *App) reloadMine(ctx context.Context) {
	u := a.store.User()
	if u == nil {
		return
	}
	mine, err := a.deps.Posts.ListMine(ctx, u.ID)
	if err != nil {
		log.Printf("[app] stage=load_my_posts user=%s err=%v", u.ID, err)
	} else {
		a.mu.Lock()
		a.dash.myPosts = mine
		a.mu.Unlock()
	}
	offers, err := a.deps.Offers.ListMine(ctx, u.ID)
	if err != nil {
		log.Printf("[app] stage=load_my_offers user=%s err=%v", u.ID, err)
		return
	}
	a.mu.Lock()
	a.dash.myOffers = offers
	a.mu.Unlock()
}

// SetViewCity browses another city's posts.
func (a *App) SetViewCity(ctx context.Context, cityID string) error {
	city, err := a.store.CityByID(cityID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.dash.viewCity = city
	a.dash.posts = nil
	a.mu.Unlock()
	a.reloadPosts(ctx)
	return nil
}

// SetCategory filters the loaded posts; "all" shows every one.
func (a *App) SetCategory(category string) {
	if category == "" {
		category = catalog.AllCategories
	}
	a.mu.Lock()
	a.dash.category = category
	a.mu.Unlock()
}

// Refresh reloads the dashboard lists.
func (a *App) Refresh(ctx context.Context) {
	a.reloadPosts(ctx)
	a.reloadMine(ctx)
	if u := a.store.User(); u != nil {
		if err := a.feed.Refresh(ctx, u.ID); err != nil {
			log.Printf("[app] stage=feed_refresh user=%s err=%v", u.ID, err)
		}
	}
}

// ViewOffers shows the offers on one of the user's posts, cheapest first.
func (a *App) ViewOffers(ctx context.Context, postID string) error {
	post, err := a.deps.Posts.Get(ctx, postID)
	if err != nil {
		return a.failed(err)
	}
	offers, err := a.deps.Offers.ListForPost(ctx, postID)
	if err != nil {
		log.Printf("[app] stage=load_offers post=%s err=%v", postID, err)
		return a.failed(err)
	}
	a.mu.Lock()
	a.dash.selectedPost = post
	a.dash.offers = offers
	a.tab = TabMyPosts
	a.mu.Unlock()
	return nil
}

func (a *App) CloseOffers() {
	a.mu.Lock()
	a.dash.selectedPost = nil
	a.dash.offers = nil
	a.mu.Unlock()
}

func (a *App) SubmitOffer(ctx context.Context, postID, price, notes string) error {
	u := a.store.User()
	if u == nil {
		return ErrNotSignedIn
	}
	if _, err := service.ParsePrice(price); err != nil {
		return a.failed(err)
	}
	done, err := a.beginSubmit()
	if err != nil {
		return err
	}
	defer done()
	if _, err := a.deps.Offers.Submit(ctx, u, postID, price, notes); err != nil {
		return a.failed(err)
	}
	a.succeeded(msgOfferSubmitted)
	a.reloadPosts(ctx)
	a.reloadMine(ctx)
	return nil
}

func (a *App) EditOffer(ctx context.Context, offerID, price, notes string) error {
	u := a.store.User()
	if u == nil {
		return ErrNotSignedIn
	}
	if _, err := service.ParsePrice(price); err != nil {
		return a.failed(err)
	}
	done, err := a.beginSubmit()
	if err != nil {
		return err
	}
	defer done()
	if _, err := a.deps.Offers.Edit(ctx, u, offerID, price, notes); err != nil {
		return a.failed(err)
	}
	a.succeeded(msgOfferUpdated)
	a.reloadMine(ctx)
	return nil
}

func (a *App) EditPost(ctx context.Context, postID string, f repository.PostFields) error {
	u := a.store.User()
	if u == nil {
		return ErrNotSignedIn
	}
	done, err := a.beginSubmit()
	if err != nil {
		return err
	}
	defer done()
	post, err := a.deps.Posts.Edit(ctx, u.ID, postID, f)
	if err != nil {
		return a.failed(err)
	}
	a.mu.Lock()
	if a.dash.selectedPost != nil && a.dash.selectedPost.ID == post.ID {
		a.dash.selectedPost = post
	}
	a.mu.Unlock()
	a.succeeded(msgPostUpdated)
	a.reloadPosts(ctx)
	a.reloadMine(ctx)
	return nil
}

func (a *App) findPost(id string) *model.Post {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, list := range [][]model.Post{a.dash.posts, a.dash.myPosts} {
		for i := range list {
			if list[i].ID == id {
				p := list[i]
				return &p
			}
		}
	}
	if a.dash.selectedPost != nil && a.dash.selectedPost.ID == id {
		p := *a.dash.selectedPost
		return &p
	}
	for _, o := range a.dash.myOffers {
		if o.Post != nil && o.Post.ID == id {
			p := *o.Post
			return &p
		}
	}
	return nil
}

func (a *App) findOffer(id string) *model.Offer {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, list := range [][]model.Offer{a.dash.offers, a.dash.myOffers} {
		for i := range list {
			if list[i].ID == id {
				o := list[i]
				return &o
			}
		}
	}
	return nil
}

// OpenChatWithSeller opens the thread with the seller behind an offer on
// the viewer's post.
func (a *App) OpenChatWithSeller(ctx context.Context, offerID string) error {
	me := a.store.User()
	if me == nil {
		return ErrNotSignedIn
	}
	offer := a.findOffer(offerID)
	if offer == nil {
		return a.failed(service.ErrNotFound)
	}
	post := a.findPost(offer.PostID)
	if post == nil {
		p, err := a.deps.Posts.Get(ctx, offer.PostID)
		if err != nil {
			return a.failed(err)
		}
		post = p
	}
	seller, err := a.deps.Chat.Counterpart(ctx, offer.Seller, offer.SellerID)
	if err != nil {
		return a.failed(err)
	}
	price := offer.Price
	return a.openThread(ctx, me, post, inbox.Peer{User: seller, Role: "Seller", OfferPrice: &price})
}

// OpenChatWithBuyer opens the thread with the owner of a post.
func (a *App) OpenChatWithBuyer(ctx context.Context, postID string) error {
	me := a.store.User()
	if me == nil {
		return ErrNotSignedIn
	}
	post := a.findPost(postID)
	if post == nil {
		p, err := a.deps.Posts.Get(ctx, postID)
		if err != nil {
			return a.failed(err)
		}
		post = p
	}
	buyer, err := a.deps.Chat.Counterpart(ctx, post.User, post.UserID)
	if err != nil {
		return a.failed(err)
	}
	return a.openThread(ctx, me, post, inbox.Peer{User: buyer, Role: "Buyer"})
}

func (a *App) openThread(ctx context.Context, me *model.User, post *model.Post, peer inbox.Peer) error {
	if err := a.thread.Open(ctx, me, post, peer); err != nil {
		return a.failed(err)
	}
	return nil
}

func (a *App) SendMessage(ctx context.Context, text string) error {
	err := a.thread.Send(ctx, text)
	if err != nil && !errors.Is(err, service.ErrEmptyMessage) {
		log.Printf("[app] stage=send_message err=%v", err)
	}
	return err
}

func (a *App) SetChatInput(text string) {
	a.thread.SetInput(text)
}

func (a *App) CloseChat() {
	a.thread.Close()
}

// CallLink is the dial link of a user known to the dashboard.
func (a *App) CallLink(ctx context.Context, userID string) (string, error) {
	u, err := a.deps.Chat.Counterpart(ctx, nil, userID)
	if err != nil {
		return "", a.failed(err)
	}
	return service.CallLink(u), nil
}

// MarkNotificationRead flips one notification to read.
func (a *App) MarkNotificationRead(ctx context.Context, id string) error {
	return a.feed.MarkRead(ctx, id)
}
