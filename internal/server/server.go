package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/hoko/internal/app"
	"github.com/shinyyama/hoko/internal/handler"
	appmw "github.com/shinyyama/hoko/internal/middleware"
	"github.com/shinyyama/hoko/internal/repository"
	"gorm.io/gorm"
)

type Options struct {
	Repos        *repository.Set
	App          app.Deps
	Sessions     *appmw.Sessions
	OriginSuffix string
	Sha          string
	BuildTime    string
}

type Server struct {
	e     *echo.Echo
	repos *repository.Set
	reg   *app.Registry
}

// AllowOrigin accepts localhost on any port and hosts ending in suffix.
func AllowOrigin(suffix string) func(origin string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		if suffix != "" && strings.HasSuffix(u.Hostname(), suffix) {
			return true, nil
		}
		return false, nil
	}
}

func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	allow := AllowOrigin(opts.OriginSuffix)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allow,
	}))

	reg := app.NewRegistry(opts.App)
	screen := handler.NewScreenHandler(reg, opts.Sessions)
	checkOrigin := func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		ok, _ := allow(origin)
		return ok
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    opts.Sha,
			"build_time": opts.BuildTime,
		})
	})

	api := e.Group("/api", opts.Sessions.Load)
	api.GET("/catalog", handler.Catalog)

	api.POST("/session", screen.Open)
	api.GET("/session", screen.View)
	api.DELETE("/session", screen.Close)
	api.GET("/ws", screen.Socket(checkOrigin))

	// capture
	api.POST("/need", screen.SubmitNeed)
	api.POST("/speech/start", screen.StartListening)
	api.POST("/speech/stop", screen.StopListening)
	api.POST("/speech", screen.ApplySpeech)
	api.POST("/attachments", screen.AddAttachments)
	api.DELETE("/attachments/:index", screen.RemoveAttachment)
	api.POST("/details", screen.SubmitDetails)
	api.POST("/post/retry", screen.RetryPost)
	api.DELETE("/post/success", screen.ClosePostSuccess)

	// navigation and login
	api.POST("/back", screen.Back)
	api.POST("/seller", screen.RegisterSeller)
	api.POST("/buyer", screen.LoginAsBuyer)
	api.POST("/login/code", screen.RequestCode)
	api.POST("/login/resend", screen.ResendCode)
	api.POST("/login/verify", screen.VerifyCode)
	api.POST("/login/buyer", screen.CompleteBuyer)
	api.POST("/login/seller", screen.CompleteSeller)
	api.POST("/new-post", screen.NewPost)
	api.POST("/switch-to-buyer", screen.SwitchToBuyer)
	api.POST("/logout", screen.Logout)

	// dashboard
	api.PUT("/dashboard/tab", screen.SelectTab)
	api.PUT("/dashboard/city", screen.SetViewCity)
	api.PUT("/dashboard/category", screen.SetCategory)
	api.POST("/dashboard/refresh", screen.Refresh)
	api.DELETE("/dashboard/success", screen.DismissSuccess)
	api.GET("/posts/:id/offers", screen.ViewOffers)
	api.DELETE("/posts/:id/offers", screen.CloseOffers)
	api.POST("/posts/:id/offers", screen.SubmitOffer)
	api.PUT("/posts/:id", screen.EditPost)
	api.PUT("/offers/:id", screen.EditOffer)
	api.POST("/chat/seller/:id", screen.ChatWithSeller)
	api.POST("/chat/buyer/:id", screen.ChatWithBuyer)
	api.POST("/chat/messages", screen.SendMessage)
	api.PUT("/chat/input", screen.SetChatInput)
	api.DELETE("/chat", screen.CloseChat)
	api.GET("/users/:id/call", screen.Call)
	api.POST("/notifications/:id/read", screen.MarkNotificationRead)
	api.POST("/toasts/:id", screen.ActivateToast)
	api.DELETE("/toasts/:id", screen.DismissToast)

	return &Server{e: e, repos: opts.Repos, reg: reg}
}

// Sessions is the live session registry.
func (s *Server) Sessions() *app.Registry {
	return s.reg
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) SetDB(db *gorm.DB) {
	if s.repos != nil {
		s.repos.SetDB(db)
	}
}
