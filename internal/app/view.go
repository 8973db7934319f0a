package app

import (
	"github.com/shinyyama/hoko/internal/catalog"
	"github.com/shinyyama/hoko/internal/inbox"
	"github.com/shinyyama/hoko/internal/login"
	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/service"
	"github.com/shinyyama/hoko/internal/session"
)

// AttachmentView describes a pending file without its bytes.
type AttachmentView struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type CaptureView struct {
	Draft         session.Draft           `json:"draft"`
	ShowFragrance bool                    `json:"show_fragrance"`
	Attachments   []AttachmentView        `json:"attachments"`
	AttachError   string                  `json:"attach_error,omitempty"`
	FieldErrors   requirement.FieldErrors `json:"field_errors,omitempty"`
	Listening     bool                    `json:"listening"`
	WordCount     int                     `json:"word_count"`
}

type DashboardView struct {
	Tab           Tab                  `json:"tab"`
	ViewCity      *model.City          `json:"view_city,omitempty"`
	Category      string               `json:"category"`
	Categories    []catalog.Option     `json:"categories"`
	Posts         []model.Post         `json:"posts"`
	MyPosts       []model.Post         `json:"my_posts"`
	MyOffers      []model.Offer        `json:"my_offers"`
	SelectedPost  *model.Post          `json:"selected_post,omitempty"`
	Offers        []model.Offer        `json:"offers,omitempty"`
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
	BadgePulse    bool                 `json:"badge_pulse"`
	Submitting    bool                 `json:"submitting"`
	Success       string               `json:"success,omitempty"`
	Error         string               `json:"error,omitempty"`
	Chat          *inbox.ThreadState   `json:"chat,omitempty"`
	AuthToken     string               `json:"auth_token,omitempty"`
}

// View is everything the browser renders for one session.
type View struct {
	Loading     bool           `json:"loading"`
	Screen      Screen         `json:"screen"`
	User        *model.User    `json:"user,omitempty"`
	City        *model.City    `json:"city,omitempty"`
	Cities      []model.City   `json:"cities"`
	Capture     *CaptureView   `json:"capture,omitempty"`
	Login       *login.State   `json:"login,omitempty"`
	Dashboard   *DashboardView `json:"dashboard,omitempty"`
	PostPhase   PostPhase      `json:"post_phase"`
	PostError   string         `json:"post_error,omitempty"`
	PostSuccess *PostSuccess   `json:"post_success,omitempty"`
	Toasts      []Toast        `json:"toasts"`
}

func (a *App) View() View {
	user := a.store.User()
	city := a.store.City()
	draft := a.store.Draft()
	notifications := a.feed.Items()
	unread := a.feed.UnreadCount()
	chat := a.thread.State()

	a.mu.Lock()
	defer a.mu.Unlock()
	v := View{
		Loading:     a.loading,
		Screen:      a.screen,
		User:        user,
		City:        city,
		Cities:      a.store.Cities(),
		PostPhase:   a.pending.phase,
		PostError:   a.pending.lastErr,
		PostSuccess: a.postSuccess,
		Toasts:      append([]Toast(nil), a.toasts...),
	}

	switch a.screen {
	case ScreenWelcome, ScreenProductDetails:
		files := a.capture.Attachments.Files()
		cv := &CaptureView{
			Draft:         draft,
			ShowFragrance: catalog.ShowsFragrance(draft.ProductName),
			Attachments:   make([]AttachmentView, 0, len(files)),
			AttachError:   a.attachErr,
			FieldErrors:   a.detailsErr,
			Listening:     a.capture.Speech.Listening(),
			WordCount:     requirement.WordCount(draft.ProductName),
		}
		for _, f := range files {
			cv.Attachments = append(cv.Attachments, AttachmentView{Name: f.Name, ContentType: f.ContentType, Size: f.Size})
		}
		v.Capture = cv
	case ScreenLogin, ScreenSellerLogin, ScreenBuyerLogin:
		if a.login != nil {
			st := a.login.State()
			v.Login = &st
		}
	case ScreenDashboard:
		d := a.dash
		v.Dashboard = &DashboardView{
			Tab:           a.tab,
			ViewCity:      d.viewCity,
			Category:      d.category,
			Categories:    service.CategoriesIn(d.posts),
			Posts:         service.FilterByCategory(d.posts, d.category),
			MyPosts:       d.myPosts,
			MyOffers:      d.myOffers,
			SelectedPost:  d.selectedPost,
			Offers:        d.offers,
			Notifications: notifications,
			UnreadCount:   unread,
			BadgePulse:    a.deps.Now().Before(a.pulseUntil),
			Submitting:    d.submitting,
			Success:       d.success,
			Error:         d.errText,
			Chat:          chat,
			AuthToken:     d.token,
		}
	}
	return v
}
