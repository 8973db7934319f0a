package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/hoko/internal/app"
	"github.com/shinyyama/hoko/internal/repository"
)

type TabRequest struct {
	Tab app.Tab `json:"tab"`
}

type CategoryRequest struct {
	Category string `json:"category"`
}

type OfferRequest struct {
	Price string `json:"price"`
	Notes string `json:"notes"`
}

type EditPostRequest struct {
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Brand       string `json:"brand"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	Fragrance   string `json:"fragrance"`
	Details     string `json:"details"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type CallResponse struct {
	Link string `json:"link"`
}

func (h *ScreenHandler) SelectTab(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req TabRequest
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		a.Dispatch(app.SelectTab{Tab: req.Tab})
		return nil
	})(c)
}

func (h *ScreenHandler) SetViewCity(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req CityRequest
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		return a.SetViewCity(c.Request().Context(), req.CityID)
	})(c)
}

func (h *ScreenHandler) SetCategory(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req CategoryRequest
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		a.SetCategory(req.Category)
		return nil
	})(c)
}

func (h *ScreenHandler) Refresh(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.Refresh(c.Request().Context())
		return nil
	})(c)
}

func (h *ScreenHandler) DismissSuccess(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.DismissSuccess()
		return nil
	})(c)
}

func (h *ScreenHandler) ViewOffers(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		return a.ViewOffers(c.Request().Context(), c.Param("id"))
	})(c)
}

func (h *ScreenHandler) CloseOffers(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.CloseOffers()
		return nil
	})(c)
}

func (h *ScreenHandler) SubmitOffer(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req OfferRequest
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		return a.SubmitOffer(c.Request().Context(), c.Param("id"), req.Price, req.Notes)
	})(c)
}

func (h *ScreenHandler) EditOffer(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req OfferRequest
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		return a.EditOffer(c.Request().Context(), c.Param("id"), req.Price, req.Notes)
	})(c)
}

func (h *ScreenHandler) EditPost(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req EditPostRequest
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		return a.EditPost(c.Request().Context(), c.Param("id"), repository.PostFields{
			ProductName: req.ProductName,
			Category:    req.Category,
			Brand:       req.Brand,
			Quantity:    req.Quantity,
			Unit:        req.Unit,
			Fragrance:   req.Fragrance,
			Details:     req.Details,
		})
	})(c)
}

func (h *ScreenHandler) ChatWithSeller(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		return a.OpenChatWithSeller(c.Request().Context(), c.Param("id"))
	})(c)
}

func (h *ScreenHandler) ChatWithBuyer(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		return a.OpenChatWithBuyer(c.Request().Context(), c.Param("id"))
	})(c)
}

func (h *ScreenHandler) SendMessage(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req MessageRequest
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		return a.SendMessage(c.Request().Context(), req.Text)
	})(c)
}

func (h *ScreenHandler) SetChatInput(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		var req MessageRequest
		if err := c.Bind(&req); err != nil {
			return badRequest("invalid json")
		}
		a.SetChatInput(req.Text)
		return nil
	})(c)
}

func (h *ScreenHandler) CloseChat(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.CloseChat()
		return nil
	})(c)
}

func (h *ScreenHandler) Call(c echo.Context) error {
	a, ok := h.app(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("no_session", "session expired, reload the page"))
	}
	link, err := a.CallLink(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, CallResponse{Link: link})
}

func (h *ScreenHandler) MarkNotificationRead(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		return a.MarkNotificationRead(c.Request().Context(), c.Param("id"))
	})(c)
}

// ActivateToast runs the toast's action, e.g. jumping to notifications.
func (h *ScreenHandler) ActivateToast(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		if !a.ActivateToast(c.Param("id")) {
			return badRequest("unknown toast")
		}
		return nil
	})(c)
}

func (h *ScreenHandler) DismissToast(c echo.Context) error {
	return h.with(func(c echo.Context, a *app.App) error {
		a.DismissToast(c.Param("id"))
		return nil
	})(c)
}
