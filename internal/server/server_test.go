package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shinyyama/hoko/internal/app"
	"github.com/shinyyama/hoko/internal/login"
	appmw "github.com/shinyyama/hoko/internal/middleware"
	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/otp"
	"github.com/shinyyama/hoko/internal/realtime"
	"github.com/shinyyama/hoko/internal/repository/memory"
	"github.com/shinyyama/hoko/internal/service"
)

type blobs struct{}

func (blobs) Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	return "https://cdn.example/" + path, nil
}

type view struct {
	Screen      string      `json:"screen"`
	User        *model.User `json:"user"`
	PostPhase   string `json:"post_phase"`
	PostSuccess *struct {
		CityName string `json:"city_name"`
	} `json:"post_success"`
	Capture *struct {
		ShowFragrance bool `json:"show_fragrance"`
	} `json:"capture"`
	Dashboard *struct {
		Tab     string       `json:"tab"`
		MyPosts []model.Post `json:"my_posts"`
	} `json:"dashboard"`
}

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	b := realtime.NewBroker()
	st := memory.New(b)
	st.AddCity(model.City{ID: "pune", Name: "Pune", State: "Maharashtra"})
	set := st.Set()
	notif := service.NewNotificationService(set.Notifications)
	srv := New(Options{
		Repos: set,
		App: app.Deps{
			Cities:        set.Cities,
			Posts:         service.NewPostService(set.Posts, set.Offers, notif, blobs{}),
			Offers:        service.NewOfferService(set.Offers, set.Posts, notif),
			Chat:          service.NewChatService(set.Messages, set.Users, notif),
			Notifications: notif,
			Broker:        b,
			Login:         login.Deps{Sender: otp.Demo{Code: "123456"}, Codes: set.OTPCodes, Users: set.Users},
		},
		Sessions:     appmw.NewSessions("test-secret", time.Hour, false),
		OriginSuffix: "vercel.app",
	})
	return srv, st
}

func call(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) view {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var v view
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := call(t, srv, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestNoSessionIsUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := call(t, srv, http.MethodPost, "/api/need", "", map[string]string{"text": "need soap"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestPostRequirementOverHTTP(t *testing.T) {
	srv, st := newTestServer(t)

	rec := call(t, srv, http.MethodPost, "/api/session", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var open struct {
		Token string `json:"token"`
		View  view   `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &open); err != nil {
		t.Fatal(err)
	}
	if open.Token == "" || open.View.Screen != string(app.ScreenWelcome) {
		t.Fatalf("open=%+v", open)
	}
	tok := open.Token

	if rec := call(t, srv, http.MethodPost, "/api/need", tok, map[string]string{"text": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty need status=%d", rec.Code)
	}
	v := decodeView(t, call(t, srv, http.MethodPost, "/api/need", tok, map[string]string{"text": "need soap"}))
	if v.Screen != string(app.ScreenProductDetails) || v.Capture == nil || !v.Capture.ShowFragrance {
		t.Fatalf("view=%+v", v)
	}

	details := map[string]interface{}{"category": "health-beauty", "brand": "Dove", "quantity": 2, "unit": "pieces"}
	v = decodeView(t, call(t, srv, http.MethodPost, "/api/details", tok, details))
	if v.Screen != string(app.ScreenLogin) {
		t.Fatalf("screen=%s", v.Screen)
	}

	if rec := call(t, srv, http.MethodPost, "/api/login/code", tok, map[string]string{"phone": "12"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad phone status=%d", rec.Code)
	}
	decodeView(t, call(t, srv, http.MethodPost, "/api/login/code", tok, map[string]string{"phone": "9876543210"}))
	if rec := call(t, srv, http.MethodPost, "/api/login/verify", tok, map[string]string{"code": "000000"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong code status=%d", rec.Code)
	}
	decodeView(t, call(t, srv, http.MethodPost, "/api/login/verify", tok, map[string]string{"code": "123456"}))
	v = decodeView(t, call(t, srv, http.MethodPost, "/api/login/buyer", tok, map[string]string{"city_id": "pune"}))

	if v.Screen != string(app.ScreenDashboard) || v.PostSuccess == nil || v.PostSuccess.CityName != "Pune" {
		t.Fatalf("view=%+v", v)
	}
	if len(st.Posts()) != 1 {
		t.Fatalf("posts=%d", len(st.Posts()))
	}

	v = decodeView(t, call(t, srv, http.MethodPut, "/api/dashboard/tab", tok, map[string]string{"tab": "my-posts"}))
	if v.Dashboard == nil || v.Dashboard.Tab != "my-posts" || len(v.Dashboard.MyPosts) != 1 {
		t.Fatalf("dashboard=%+v", v.Dashboard)
	}

	rec = call(t, srv, http.MethodDelete, "/api/session", tok, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close status=%d", rec.Code)
	}
	if rec := call(t, srv, http.MethodGet, "/api/session", tok, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("closed session status=%d", rec.Code)
	}
}

func TestAllowOrigin(t *testing.T) {
	allow := AllowOrigin("vercel.app")
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"https://127.0.0.1:5173", true},
		{"https://hoko.vercel.app", true},
		{"https://evil.example.com", false},
		{"ftp://hoko.vercel.app", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			got, _ := allow(tt.origin)
			if got != tt.want {
				t.Fatalf("got=%v want=%v", got, tt.want)
			}
		})
	}
}

// jar replays cookies the way a browser would.
type jar map[string]string

func (j jar) call(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for name, value := range j {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(j, ck.Name)
		} else {
			j[ck.Name] = ck.Value
		}
	}
	return rec
}

func TestExpiredSessionRestoresUser(t *testing.T) {
	srv, _ := newTestServer(t)
	browser := jar{}

	decodeView(t, browser.call(t, srv, http.MethodPost, "/api/session", nil))
	decodeView(t, browser.call(t, srv, http.MethodPost, "/api/buyer", nil))
	decodeView(t, browser.call(t, srv, http.MethodPost, "/api/login/code", map[string]string{"phone": "9876543210"}))
	decodeView(t, browser.call(t, srv, http.MethodPost, "/api/login/verify", map[string]string{"code": "123456"}))
	v := decodeView(t, browser.call(t, srv, http.MethodPost, "/api/login/buyer", map[string]string{"city_id": "pune"}))
	if v.User == nil || v.Screen != string(app.ScreenDashboard) {
		t.Fatalf("view=%+v", v)
	}
	if _, ok := browser[appmw.UserCookieName]; !ok {
		t.Fatal("user cookie not written")
	}
	userID := v.User.ID

	// janitor drops every session
	if n := srv.Sessions().Expire(-time.Hour); n != 1 {
		t.Fatalf("expired=%d", n)
	}
	if rec := browser.call(t, srv, http.MethodGet, "/api/session", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}

	rec := browser.call(t, srv, http.MethodPost, "/api/session", nil)
	var open struct {
		View view `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &open); err != nil {
		t.Fatal(err)
	}
	if open.View.User == nil || open.View.User.ID != userID || open.View.Screen != string(app.ScreenDashboard) {
		t.Fatalf("reopened view=%+v", open.View)
	}

	decodeView(t, browser.call(t, srv, http.MethodPost, "/api/logout", nil))
	if _, ok := browser[appmw.UserCookieName]; ok {
		t.Fatal("user cookie kept after logout")
	}
}
