package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"notifyd/internal/auth"
)

type call struct {
	method string
	path   string
	auth   string
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *[]call) {
	t.Helper()
	var mu sync.Mutex
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, call{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")})
		mu.Unlock()
		w.WriteHeader(status)
		if body != "" {
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestListDecodesAndAuthenticates(t *testing.T) {
	body := `{
		"notifications": [
			{"id":"n1","title":"Build finished","message":"ok","type":"success","isRead":false,"createdAt":"2026-03-01T12:00:00Z"},
			{"id":"n2","title":"Disk warning","message":"85%","type":"warning","isRead":true,"createdAt":"2026-03-01T11:00:00Z","metadata":{"host":"web-1"}}
		],
		"unreadCount": 1
	}`
	srv, calls := newServer(t, http.StatusOK, body)

	c := New(Config{BaseURL: srv.URL}, auth.StaticToken("tok-123"), nil)
	list, count, err := c.List(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if count != 1 || len(list) != 2 {
		t.Fatalf("count=%d len=%d", count, len(list))
	}
	if list[0].ID != "n1" || list[0].IsRead || list[1].Metadata["host"] != "web-1" {
		t.Fatalf("decoded list=%+v", list)
	}

	got := (*calls)[0]
	if got.method != http.MethodGet || got.path != "/notifications" {
		t.Fatalf("request=%+v", got)
	}
	if got.auth != "Bearer tok-123" {
		t.Fatalf("auth header=%q", got.auth)
	}
}

func TestEndpointShapes(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"unreadCount":3}`)
	c := New(Config{BaseURL: srv.URL}, auth.StaticToken("t"), nil)
	ctx := context.Background()

	if n, err := c.UnreadCount(ctx); err != nil || n != 3 {
		t.Fatalf("UnreadCount=%d err=%v", n, err)
	}
	if err := c.MarkRead(ctx, "abc"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := c.MarkAllRead(ctx); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if err := c.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	want := []call{
		{http.MethodGet, "/notifications/unread-count", "Bearer t"},
		{http.MethodPut, "/notifications/mark-read/abc", "Bearer t"},
		{http.MethodPut, "/notifications/mark-all-read", "Bearer t"},
		{http.MethodDelete, "/notifications/abc", "Bearer t"},
		{http.MethodDelete, "/notifications", "Bearer t"},
	}
	if len(*calls) != len(want) {
		t.Fatalf("calls=%v", *calls)
	}
	for i, w := range want {
		if (*calls)[i] != w {
			t.Fatalf("call %d = %+v, want %+v", i, (*calls)[i], w)
		}
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{http.StatusNotFound, func(err error) bool { return errors.Is(err, ErrNotFound) }, "404"},
		{http.StatusUnauthorized, func(err error) bool { return errors.Is(err, ErrUnauthorized) }, "401"},
		{http.StatusInternalServerError, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Code == 500 && IsTransient(err)
		}, "500"},
		{http.StatusBadRequest, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Code == 400 && !IsTransient(err)
		}, "400"},
	}
	for _, tc := range tests {
		srv, _ := newServer(t, tc.status, "upstream said no")
		c := New(Config{BaseURL: srv.URL}, auth.StaticToken("t"), nil)
		_, err := c.UnreadCount(context.Background())
		if err == nil || !tc.check(err) {
			t.Errorf("%s: err=%v", tc.name, err)
		}
	}
}

func TestNoTokenShortCircuits(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{}`)
	src := auth.NewSource() // empty: unauthenticated
	c := New(Config{BaseURL: srv.URL}, src, nil)

	_, err := c.UnreadCount(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("err=%v, want ErrNoToken", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("request went out without a token")
	}
}

func TestListPagination(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`{"notifications":[],"unreadCount":0}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, auth.StaticToken("t"), nil)
	if _, _, err := c.List(context.Background(), 2, 50); err != nil {
		t.Fatalf("List: %v", err)
	}
	if query != "limit=50&page=2" {
		t.Fatalf("query=%q", query)
	}
}
