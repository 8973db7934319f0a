package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/hoko/internal/app"
	"github.com/shinyyama/hoko/internal/login"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/service"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"malformed", badRequest("invalid json"), http.StatusBadRequest, "bad_request"},
		{"field errors", requirement.FieldErrors{"quantity": "Quantity must be at least 1"}, http.StatusBadRequest, "invalid_input"},
		{"bad phone", login.ErrInvalidPhone, http.StatusBadRequest, "invalid_input"},
		{"wrong code", login.ErrCodeMismatch, http.StatusUnauthorized, "invalid_code"},
		{"cooldown", login.ErrCooldown, http.StatusTooManyRequests, "cooldown"},
		{"in flight", app.ErrSubmitting, http.StatusConflict, "in_flight"},
		{"signed out", app.ErrNotSignedIn, http.StatusUnauthorized, "unauthorized"},
		{"wrapped forbidden", fmt.Errorf("edit: %w", service.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"missing", service.ErrNotFound, http.StatusNotFound, "not_found"},
		{"no counterpart", service.ErrCounterpartMissing, http.StatusUnprocessableEntity, "counterpart_missing"},
		{"upstream", errors.New("dial tcp: refused"), http.StatusBadGateway, "upstream_error"},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			if err := respondError(c, tt.err); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.status {
				t.Fatalf("status=%d want=%d", rec.Code, tt.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Code != tt.code || body.Error.Message == "" {
				t.Fatalf("body=%+v", body)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/catalog", nil), rec)
	if err := Catalog(c); err != nil {
		t.Fatal(err)
	}
	var body CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Categories) == 0 || len(body.Units) == 0 || len(body.Fragrances) == 0 {
		t.Fatalf("body=%+v", body)
	}
}
