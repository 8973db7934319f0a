package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shinyyama/hoko/internal/catalog"
	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/repository"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/session"
	"github.com/shinyyama/hoko/internal/storage"
	"golang.org/x/sync/errgroup"
)

// NewPost is a submitted requirement ready to publish.
type NewPost struct {
	UserID string
	CityID string
	Draft  session.Draft
	Files  []requirement.File
}

type PostService interface {
	Create(ctx context.Context, in NewPost) (*model.Post, error)
	ListForCity(ctx context.Context, cityID string) ([]model.Post, error)
	ListMine(ctx context.Context, userID string) ([]model.Post, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	Edit(ctx context.Context, ownerID, postID string, f repository.PostFields) (*model.Post, error)
}

type postService struct {
	posts    repository.PostRepository
	offers   repository.OfferRepository
	notifier NotificationService
	blobs    storage.Uploader
	now      func() time.Time
}

func NewPostService(posts repository.PostRepository, offers repository.OfferRepository, notifier NotificationService, blobs storage.Uploader) PostService {
	return &postService{posts: posts, offers: offers, notifier: notifier, blobs: blobs, now: time.Now}
}

// Create uploads every attachment first and inserts the post only when all
// uploads succeeded.
func (s *postService) Create(ctx context.Context, in NewPost) (*model.Post, error) {
	name := strings.TrimSpace(in.Draft.ProductName)
	if name == "" {
		return nil, ErrEmptyProduct
	}
	if len(in.Files) > 0 && s.blobs == nil {
		return nil, ErrNoStorage
	}

	urls := make([]string, 0, len(in.Files))
	for _, f := range in.Files {
		path := storage.AttachmentPath(in.UserID, f.Name, s.now(), storage.RandomSuffix())
		url, err := s.blobs.Upload(ctx, path, f.ContentType, bytes.NewReader(f.Data))
		if err != nil {
			log.Printf("[post] stage=upload_fail user=%s path=%s err=%v", in.UserID, path, err)
			return nil, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		urls = append(urls, url)
	}

	d := in.Draft
	if d.Quantity < 1 {
		d.Quantity = 1
	}
	if d.Unit == "" {
		d.Unit = catalog.DefaultUnit
	}
	p := &model.Post{
		UserID:         in.UserID,
		CityID:         in.CityID,
		ProductName:    name,
		Category:       d.Category,
		Brand:          d.Brand,
		Quantity:       d.Quantity,
		Unit:           d.Unit,
		Fragrance:      d.Fragrance,
		Details:        d.Details,
		Status:         model.PostStatusActive,
		OfferCount:     0,
		AttachmentURLs: urls,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		log.Printf("[post] stage=insert_fail user=%s err=%v", in.UserID, err)
		return nil, err
	}
	return p, nil
}

func (s *postService) ListForCity(ctx context.Context, cityID string) ([]model.Post, error) {
	if cityID == "" {
		return nil, nil
	}
	return s.posts.ListActiveByCity(ctx, cityID)
}

func (s *postService) ListMine(ctx context.Context, userID string) ([]model.Post, error) {
	return s.posts.ListByUser(ctx, userID)
}

func (s *postService) Get(ctx context.Context, id string) (*model.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// Edit updates the post and tells every distinct seller with an offer on it.
// The fan-out is not transactional; failed inserts are logged only.
func (s *postService) Edit(ctx context.Context, ownerID, postID string, f repository.PostFields) (*model.Post, error) {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err)
	}
	if p.UserID != ownerID {
		return nil, ErrForbidden
	}
	f.ProductName = strings.TrimSpace(f.ProductName)
	if f.ProductName == "" {
		return nil, ErrEmptyProduct
	}
	if f.Quantity < 1 {
		f.Quantity = 1
	}
	if f.Unit == "" {
		f.Unit = catalog.DefaultUnit
	}
	if err := s.posts.UpdateFields(ctx, postID, f); err != nil {
		log.Printf("[post] stage=update_fail post=%s err=%v", postID, err)
		return nil, notFound(err)
	}
	p.ProductName = f.ProductName
	p.Category = f.Category
	p.Brand = f.Brand
	p.Quantity = f.Quantity
	p.Unit = f.Unit
	p.Fragrance = f.Fragrance
	p.Details = f.Details
	p.UpdatedAt = s.now()

	sellerIDs, err := s.offers.SellerIDsByPost(ctx, postID)
	if err != nil {
		log.Printf("[post] stage=list_sellers_fail post=%s err=%v", postID, err)
		return p, nil
	}
	var g errgroup.Group
	for _, sellerID := range distinct(sellerIDs) {
		n := PostUpdatedNotification(p, sellerID)
		g.Go(func() error {
			return s.notifier.Create(ctx, n)
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("[post] stage=notify_sellers_partial post=%s err=%v", postID, err)
	}
	return p, nil
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// FilterByCategory narrows loaded posts without a refetch; "all" or an
// empty value keeps every post.
func FilterByCategory(posts []model.Post, category string) []model.Post {
	if category == "" || category == catalog.AllCategories {
		return posts
	}
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// CategoriesIn lists the catalog categories present in posts, in catalog order.
func CategoriesIn(posts []model.Post) []catalog.Option {
	present := make(map[string]bool)
	for _, p := range posts {
		present[p.Category] = true
	}
	var out []catalog.Option
	for _, c := range catalog.Categories {
		if present[c.Value] {
			out = append(out, c)
		}
	}
	return out
}
