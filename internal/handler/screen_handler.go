package handler

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/hoko/internal/app"
	"github.com/shinyyama/hoko/internal/login"
	appmw "github.com/shinyyama/hoko/internal/middleware"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/session"
)

// ScreenHandler drives the per-session screen engine. Every action answers
// with the fresh view.
type ScreenHandler struct {
	reg      *app.Registry
	sessions *appmw.Sessions
}

func NewScreenHandler(reg *app.Registry, sessions *appmw.Sessions) *ScreenHandler {
	return &ScreenHandler{reg: reg, sessions: sessions}
}

func (h *ScreenHandler) app(c echo.Context) (*app.App, bool) {
	a, ok := h.reg.Get(appmw.SessionID(c))
	return a, ok
}

// with runs fn against the caller's session and renders the view.
func (h *ScreenHandler) with(fn func(c echo.Context, a *app.App) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, ok := h.app(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, NewErrorResponse("no_session", "session expired, reload the page"))
		}
		err := fn(c, a)
		h.keepUser(c, a)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, a.View())
	}
}

// keepUser mirrors the session's persisted user into the user cookie so a
// later session of the same browser can restore it.
func (h *ScreenHandler) keepUser(c echo.Context, a *app.App) {
	if err := h.sessions.KeepUser(c, a.Store().Persisted()); err != nil {
		log.Printf("[screen] stage=keep_user sid=%s err=%v", appmw.SessionID(c), err)
	}
}

type SessionResponse struct {
	Token string   `json:"token"`
	View  app.View `json:"view"`
}

// Open resumes the caller's session or starts a new one. A new session is
// seeded with the user carried by the user cookie.
func (h *ScreenHandler) Open(c echo.Context) error {
	sid := appmw.SessionID(c)
	storage := session.NewMemoryStorage()
	if raw := h.sessions.StoredUser(c); raw != "" {
		storage.Set(session.UserKey, raw)
	}
	id, a, err := h.reg.Open(c.Request().Context(), sid, storage)
	if err != nil {
		log.Printf("[screen] stage=open sid=%s err=%v", id, err)
	}
	h.keepUser(c, a)
	token, err := h.sessions.Issue(c, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to issue session"))
	}
	return c.JSON(http.StatusOK, SessionResponse{Token: token, View: a.View()})
}

func (h *ScreenHandler) View(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error { return nil })(c)
}

// Close ends the session and clears the cookie.
func (h *ScreenHandler) Close(c echo.Context) error {
	h.reg.Remove(appmw.SessionID(c))
	h.sessions.Clear(c)
	if err := h.sessions.KeepUser(c, ""); err != nil {
		log.Printf("[screen] stage=close err=%v", err)
	}
	return c.NoContent(http.StatusNoContent)
}

type NeedRequest struct {
	Text string `json:"text"`
}

func (h *ScreenHandler) SubmitNeed(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req NeedRequest
		if err := c.Bind(&req); err != nil {
			return requirement.ErrEmptyNeed
		}
		return a.SubmitNeed(c.Request().Context(), req.Text)
	})(c)
}

type SpeechRequest struct {
	Current  string                `json:"current"`
	Segments []requirement.Segment `json:"segments"`
}

func (h *ScreenHandler) StartListening(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req SpeechRequest
		_ = c.Bind(&req)
		a.StartListening(req.Current)
		return nil
	})(c)
}

func (h *ScreenHandler) StopListening(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.StopListening()
		return nil
	})(c)
}

type SpeechResponse struct {
	Text string `json:"text"`
}

func (h *ScreenHandler) ApplySpeech(c echo.Context) error {
	a, ok := h.app(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("no_session", "session expired, reload the page"))
	}
	var req SpeechRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	return c.JSON(http.StatusOK, SpeechResponse{Text: a.ApplySpeech(req.Segments)})
}

// AddAttachments takes a multipart batch under "files"; "capture" marks a
// single camera shot.
func (h *ScreenHandler) AddAttachments(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		form, err := c.MultipartForm()
		if err != nil {
			return badRequest("invalid multipart form")
		}
		var batch []requirement.File
		for _, fh := range form.File["files"] {
			f := requirement.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Size: fh.Size}
			if fh.Size <= requirement.MaxFileSize {
				src, err := fh.Open()
				if err != nil {
					return err
				}
				f.Data, err = io.ReadAll(src)
				src.Close()
				if err != nil {
					return err
				}
			}
			batch = append(batch, f)
		}
		if c.FormValue("capture") == "true" && len(batch) == 1 {
			a.CaptureAttachment(batch[0])
			return nil
		}
		a.AddAttachments(batch)
		return nil
	})(c)
}

func (h *ScreenHandler) RemoveAttachment(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		i, err := strconv.Atoi(c.Param("index"))
		if err != nil || !a.RemoveAttachment(i) {
			return badRequest("invalid attachment index")
		}
		return nil
	})(c)
}

func (h *ScreenHandler) SubmitDetails(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req requirement.Details
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		return a.SubmitDetails(c.Request().Context(), req)
	})(c)
}

func (h *ScreenHandler) RetryPost(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		return a.RetryPost(c.Request().Context())
	})(c)
}

func (h *ScreenHandler) ClosePostSuccess(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.ClosePostSuccess()
		return nil
	})(c)
}

func (h *ScreenHandler) Back(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.Back()
		return nil
	})(c)
}

func (h *ScreenHandler) RegisterSeller(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.RegisterSeller()
		return nil
	})(c)
}

func (h *ScreenHandler) LoginAsBuyer(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.LoginAsBuyer(c.Request().Context())
		return nil
	})(c)
}

type PhoneRequest struct {
	Phone string `json:"phone"`
}

type CodeRequest struct {
	Code string `json:"code"`
}

type CityRequest struct {
	CityID string `json:"city_id"`
}

func (h *ScreenHandler) RequestCode(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req PhoneRequest
		if err := c.Bind(&req); err != nil {
			return login.ErrInvalidPhone
		}
		return a.RequestCode(c.Request().Context(), req.Phone)
	})(c)
}

func (h *ScreenHandler) ResendCode(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		return a.ResendCode(c.Request().Context())
	})(c)
}

func (h *ScreenHandler) VerifyCode(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req CodeRequest
		if err := c.Bind(&req); err != nil {
			return login.ErrInvalidCode
		}
		return a.VerifyCode(c.Request().Context(), req.Code)
	})(c)
}

func (h *ScreenHandler) CompleteBuyer(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req CityRequest
		if err := c.Bind(&req); err != nil {
			return login.ErrMissingCity
		}
		return a.CompleteBuyer(c.Request().Context(), req.CityID)
	})(c)
}

func (h *ScreenHandler) CompleteSeller(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req login.SellerProfile
		if err := c.Bind(&req); err != nil {
			return login.ErrMissingProfile
		}
		return a.CompleteSeller(c.Request().Context(), req)
	})(c)
}

func (h *ScreenHandler) NewPost(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.NewPost()
		return nil
	})(c)
}

func (h *ScreenHandler) SwitchToBuyer(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.SwitchToBuyer()
		return nil
	})(c)
}

func (h *ScreenHandler) Logout(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.Logout()
		return nil
	})(c)
}
