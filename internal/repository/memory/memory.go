// Package memory is an in-process record store with the same contracts as
// the gorm repositories. Inserts are published to the realtime broker the
// way the gorm commit hook does.
package memory

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/realtime"
	"github.com/shinyyama/hoko/internal/repository"
	"gorm.io/gorm"
)

type Store struct {
	mu     sync.RWMutex
	broker *realtime.Broker
	now    func() time.Time
	seq    int64

	cities        []model.City
	users         map[string]*model.User
	posts         []*model.Post
	offers        []*model.Offer
	notifications []*model.Notification
	messages      []*model.Message
	otps          []*model.OTPCode

	// Fail makes the named operation ("posts.create", ...) return the error.
	failMu sync.Mutex
	fail   map[string]error
}

func New(broker *realtime.Broker) *Store {
	return &Store{
		broker: broker,
		now:    time.Now,
		users:  make(map[string]*model.User),
		fail:   make(map[string]error),
	}
}

// SetClock replaces the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// FailOn makes op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) failure(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.fail[op]
}

// Set exposes the store through the repository interfaces.
func (s *Store) Set() *repository.Set {
	return &repository.Set{
		Cities:        cityRepo{s},
		Users:         userRepo{s},
		Posts:         postRepo{s},
		Offers:        offerRepo{s},
		Notifications: notificationRepo{s},
		Messages:      messageRepo{s},
		OTPCodes:      otpRepo{s},
	}
}

// stamp returns a strictly increasing time so ordering by created_at
// matches insertion order.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.now().Add(time.Duration(s.seq) * time.Microsecond)
}

func (s *Store) publish(record interface{}) {
	if s.broker == nil {
		return
	}
	ev, err := realtime.EventFor(record)
	if err != nil {
		log.Printf("[memory] stage=event err=%v", err)
		return
	}
	s.broker.Publish(ev)
}

func (s *Store) cityLocked(id string) *model.City {
	for i := range s.cities {
		if s.cities[i].ID == id {
			c := s.cities[i]
			return &c
		}
	}
	return nil
}

func (s *Store) userLocked(id string) *model.User {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	cp.City = s.cityLocked(u.CityID)
	return &cp
}

func (s *Store) postLocked(id string) *model.Post {
	for _, p := range s.posts {
		if p.ID == id {
			cp := *p
			cp.User = s.userLocked(p.UserID)
			cp.City = s.cityLocked(p.CityID)
			return &cp
		}
	}
	return nil
}

func (s *Store) AddCity(c model.City) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.cities = append(s.cities, c)
}

func (s *Store) AddOTP(row model.OTPCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = uint64(len(s.otps) + 1)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.stamp()
	}
	s.otps = append(s.otps, &row)
}

func (s *Store) Posts() []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, *p)
	}
	return out
}

func (s *Store) Offers() []model.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Offer, 0, len(s.offers))
	for _, o := range s.offers {
		out = append(out, *o)
	}
	return out
}

func (s *Store) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, *n)
	}
	return out
}

func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, *m)
	}
	return out
}

func (s *Store) OTPs() []model.OTPCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OTPCode, 0, len(s.otps))
	for _, o := range s.otps {
		out = append(out, *o)
	}
	return out
}

type cityRepo struct{ s *Store }

func (r cityRepo) List(ctx context.Context) ([]model.City, error) {
	if err := r.s.failure("cities.list"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := append([]model.City(nil), r.s.cities...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r cityRepo) FindByID(ctx context.Context, id string) (*model.City, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c := r.s.cityLocked(id); c != nil {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (cityRepo) SetDB(*gorm.DB) {}

type userRepo struct{ s *Store }

func (r userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if err := r.s.failure("users.find"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u := r.s.userLocked(id); u != nil {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r userRepo) FindByMobile(ctx context.Context, mobile string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, u := range r.s.users {
		if u.Mobile == mobile {
			return r.s.userLocked(id), nil
		}
	}
	return nil, nil
}

func (r userRepo) Create(ctx context.Context, u *model.User) error {
	if err := r.s.failure("users.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = r.s.stamp()
	cp := *u
	cp.City = nil
	r.s.users[u.ID] = &cp
	r.s.mu.Unlock()
	r.s.publish(&cp)
	return nil
}

func (r userRepo) Update(ctx context.Context, u *model.User) error {
	if err := r.s.failure("users.update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *u
	cp.City = nil
	r.s.users[u.ID] = &cp
	return nil
}

func (userRepo) SetDB(*gorm.DB) {}

type postRepo struct{ s *Store }

func (r postRepo) Create(ctx context.Context, p *model.Post) error {
	if err := r.s.failure("posts.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.s.stamp()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	cp.User, cp.City = nil, nil
	r.s.posts = append(r.s.posts, &cp)
	r.s.mu.Unlock()
	r.s.publish(&cp)
	return nil
}

func (r postRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p := r.s.postLocked(id); p != nil {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r postRepo) ListActiveByCity(ctx context.Context, cityID string) ([]model.Post, error) {
	if err := r.s.failure("posts.list"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Post
	for i := len(r.s.posts) - 1; i >= 0; i-- {
		p := r.s.posts[i]
		if p.CityID == cityID && p.Status == model.PostStatusActive {
			out = append(out, *r.s.postLocked(p.ID))
		}
	}
	return out, nil
}

func (r postRepo) ListByUser(ctx context.Context, userID string) ([]model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Post
	for i := len(r.s.posts) - 1; i >= 0; i-- {
		p := r.s.posts[i]
		if p.UserID == userID {
			cp := *p
			cp.City = r.s.cityLocked(p.CityID)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r postRepo) UpdateFields(ctx context.Context, id string, f repository.PostFields) error {
	if err := r.s.failure("posts.update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.posts {
		if p.ID == id {
			p.ProductName = f.ProductName
			p.Category = f.Category
			p.Brand = f.Brand
			p.Quantity = f.Quantity
			p.Unit = f.Unit
			p.Fragrance = f.Fragrance
			p.Details = f.Details
			p.UpdatedAt = r.s.stamp()
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r postRepo) IncrementOfferCount(ctx context.Context, id string) error {
	if err := r.s.failure("posts.increment"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.posts {
		if p.ID == id {
			p.OfferCount++
			return nil
		}
	}
	return nil
}

func (postRepo) SetDB(*gorm.DB) {}

type offerRepo struct{ s *Store }

func (r offerRepo) Create(ctx context.Context, o *model.Offer) error {
	if err := r.s.failure("offers.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = r.s.stamp()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Seller, cp.Post = nil, nil
	r.s.offers = append(r.s.offers, &cp)
	r.s.mu.Unlock()
	r.s.publish(&cp)
	return nil
}

func (r offerRepo) FindByID(ctx context.Context, id string) (*model.Offer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.offers {
		if o.ID == id {
			cp := *o
			cp.Seller = r.s.userLocked(o.SellerID)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r offerRepo) ListByPost(ctx context.Context, postID string) ([]model.Offer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Offer
	for _, o := range r.s.offers {
		if o.PostID == postID {
			cp := *o
			cp.Seller = r.s.userLocked(o.SellerID)
			out = append(out, cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (r offerRepo) ListBySeller(ctx context.Context, sellerID string) ([]model.Offer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Offer
	for i := len(r.s.offers) - 1; i >= 0; i-- {
		o := r.s.offers[i]
		if o.SellerID == sellerID {
			cp := *o
			cp.Post = r.s.postLocked(o.PostID)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r offerRepo) SellerIDsByPost(ctx context.Context, postID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []string
	for _, o := range r.s.offers {
		if o.PostID == postID {
			ids = append(ids, o.SellerID)
		}
	}
	return ids, nil
}

func (r offerRepo) UpdatePriceNotes(ctx context.Context, id string, price float64, notes string) error {
	if err := r.s.failure("offers.update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.offers {
		if o.ID == id {
			o.Price = price
			o.Notes = notes
			o.UpdatedAt = r.s.stamp()
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (offerRepo) SetDB(*gorm.DB) {}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if err := r.s.failure("notifications.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = r.s.stamp()
	cp := *n
	r.s.notifications = append(r.s.notifications, &cp)
	r.s.mu.Unlock()
	r.s.publish(&cp)
	return nil
}

func (r notificationRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if err := r.s.failure("notifications.list"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Notification
	for i := len(r.s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if n := r.s.notifications[i]; n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, id string) error {
	if err := r.s.failure("notifications.mark_read"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id {
			n.IsRead = true
		}
	}
	return nil
}

func (notificationRepo) SetDB(*gorm.DB) {}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(ctx context.Context, m *model.Message) error {
	if err := r.s.failure("messages.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = r.s.stamp()
	cp := *m
	r.s.messages = append(r.s.messages, &cp)
	r.s.mu.Unlock()
	r.s.publish(&cp)
	return nil
}

func (r messageRepo) ListThread(ctx context.Context, postID, a, b string) ([]model.Message, error) {
	if err := r.s.failure("messages.list"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Message
	for _, m := range r.s.messages {
		if m.PostID == postID && m.Between(a, b) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r messageRepo) MarkThreadRead(ctx context.Context, postID, receiverID, senderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.messages {
		if m.PostID == postID && m.ReceiverID == receiverID && m.SenderID == senderID {
			m.IsRead = true
		}
	}
	return nil
}

func (r messageRepo) MarkRead(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.messages {
		if m.ID == id {
			m.IsRead = true
		}
	}
	return nil
}

func (messageRepo) SetDB(*gorm.DB) {}

type otpRepo struct{ s *Store }

func (r otpRepo) FindPending(ctx context.Context, phone, code string, now time.Time) (*model.OTPCode, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := len(r.s.otps) - 1; i >= 0; i-- {
		o := r.s.otps[i]
		if o.Phone == phone && o.Code == code && !o.Verified && o.ExpiresAt.After(now) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r otpRepo) MarkVerified(ctx context.Context, id uint64) error {
	if err := r.s.failure("otp.mark_verified"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.otps {
		if o.ID == id {
			o.Verified = true
		}
	}
	return nil
}

func (otpRepo) SetDB(*gorm.DB) {}
