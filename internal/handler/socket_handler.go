package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/hoko/internal/realtime"
)

// Socket attaches a WebSocket to the caller's session for pushed toasts
// and chat updates.
func (h *ScreenHandler) Socket(checkOrigin func(*http.Request) bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, ok := h.app(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, NewErrorResponse("no_session", "session expired, reload the page"))
		}
		client, err := realtime.Serve(c.Response(), c.Request(), checkOrigin)
		if err != nil {
			log.Printf("[socket] stage=upgrade err=%v", err)
			return nil
		}
		a.SetSink(client)
		go func() {
			<-client.Done()
			a.DetachSink(client)
		}()
		return nil
	}
}
