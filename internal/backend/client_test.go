package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	tok, err := c.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" || c.token != "tok-1" {
		t.Errorf("token = %q", tok)
	}
}

func TestBearerTokenSent(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"token":"ws-tok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithToken("tok-1"))
	tok, err := c.WSToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok != "ws-tok" {
		t.Errorf("ws token = %q", tok)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestRecentConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/recent-conversations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"conversations":[
			{"conversation_id":"c1","peer_username":"bob","unread_count":2,
			 "messages":[{"message_id":"1","sender_username":"bob","message_text":"hi","timestamp":"2026-01-02T10:00:00Z"}]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	convs, err := c.RecentConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].Peer != "bob" || convs[0].UnreadCount != 2 {
		t.Fatalf("convs = %+v", convs)
	}
	if len(convs[0].Messages) != 1 || convs[0].Messages[0].ID != "1" {
		t.Errorf("messages = %+v", convs[0].Messages)
	}
}

func TestMarkRead(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.MarkRead(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/conversation/c1/mark-read" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestAPIErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Login(context.Background(), "alice", "bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Incorrect username or password" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestSearchUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/search" || r.URL.Query().Get("q") != "bo" {
			t.Errorf("request = %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"users":[{"id":"7","username":"bob"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	users, err := c.SearchUsers(context.Background(), "bo")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Username != "bob" {
		t.Fatalf("users = %+v", users)
	}

	// Below the server's minimum term length nothing is requested.
	users, err = c.SearchUsers(context.Background(), "b")
	if err != nil || users != nil {
		t.Errorf("short term: users = %+v, err = %v", users, err)
	}
}

func TestFriendRequestLifecycle(t *testing.T) {
	type call struct {
		method, path, body string
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(data)})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()
	if err := c.SendFriendRequest(ctx, "7"); err != nil {
		t.Fatal(err)
	}
	if err := c.AcceptFriendRequest(ctx, "7"); err != nil {
		t.Fatal(err)
	}
	if err := c.RejectFriendRequest(ctx, "8"); err != nil {
		t.Fatal(err)
	}
	if err := c.CancelFriendRequest(ctx, "9"); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{http.MethodPost, "/api/friend-request/send", `{"friend_id":"7"}`},
		{http.MethodPost, "/api/friend-request/accept", `{"friend_id":"7"}`},
		{http.MethodPost, "/api/friend-request/reject", `{"friend_id":"8"}`},
		{http.MethodDelete, "/api/friend-request/cancel/9", ""},
	}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], w)
		}
	}
}

func TestFriendRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/friend-requests" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"requests":[{"id":"r1","friend_id":"7","username":"bob"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	reqs, err := c.FriendRequests(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 1 || reqs[0].Username != "bob" || reqs[0].FriendID != "7" {
		t.Fatalf("requests = %+v", reqs)
	}
}

func TestFriendsOnlineStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"friends_status":[{"friend_id":"7","username":"bob","status":"online"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	statuses, err := c.FriendsOnlineStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].Username != "bob" || statuses[0].Status != "online" {
		t.Errorf("statuses = %+v", statuses)
	}
}
