// Package backend is the HTTP client for the chat server's REST API:
// login, identity, hydration snapshots, read acknowledgements, and the
// short-lived token that authenticates the realtime transport.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the chat backend. The bearer token is set once after
// login and threaded through every request; nothing is read from ambient
// storage.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithToken sets the bearer token up front (restored session).
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a client for the given server base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken updates the bearer token after login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login exchanges credentials for a bearer token and stores it on the
// client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token", body, &resp); err != nil {
		return "", err
	}
	c.token = resp.AccessToken
	return resp.AccessToken, nil
}

// User is the authenticated user's identity.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/user/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// WSToken obtains a short-lived token for the transport URL.
func (c *Client) WSToken(ctx context.Context) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/ws-token", nil, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// MessageSummary is one message in a conversation payload.
type MessageSummary struct {
	ID        string `json:"message_id"`
	Sender    string `json:"sender_username"`
	Text      string `json:"message_text"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// ConversationSummary is one element of the recent-conversations snapshot.
type ConversationSummary struct {
	ID          string           `json:"conversation_id"`
	Peer        string           `json:"peer_username"`
	PeerName    string           `json:"peer_display_name"`
	UnreadCount int              `json:"unread_count"`
	LastMessage string           `json:"last_message"`
	LastSender  string           `json:"last_sender"`
	LastAt      string           `json:"last_timestamp"`
	Messages    []MessageSummary `json:"messages"`
}

// RecentConversations fetches the hydration snapshot.
func (c *Client) RecentConversations(ctx context.Context) ([]ConversationSummary, error) {
	var resp struct {
		Conversations []ConversationSummary `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/recent-conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// Conversation fetches the full message history for one conversation.
func (c *Client) Conversation(ctx context.Context, id string) (*ConversationSummary, error) {
	var resp ConversationSummary
	path := "/api/conversation/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkRead acknowledges a conversation as read server-side.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	path := "/api/conversation/" + url.PathEscape(id) + "/mark-read"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Friend is one entry of the friends list.
type Friend struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// Friends fetches the friends list.
func (c *Client) Friends(ctx context.Context) ([]Friend, error) {
	var resp struct {
		Friends []Friend `json:"friends"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/friends", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Friends, nil
}

// FriendStatus is one entry of the online-status snapshot.
type FriendStatus struct {
	FriendID string `json:"friend_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// FriendsOnlineStatus fetches the current online state of all friends.
func (c *Client) FriendsOnlineStatus(ctx context.Context) ([]FriendStatus, error) {
	var resp struct {
		FriendsStatus []FriendStatus `json:"friends_status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/friends/online-status", nil, &resp); err != nil {
		return nil, err
	}
	return resp.FriendsStatus, nil
}

// SearchUsers looks up users by partial username. The server requires
// at least two characters; shorter terms return an empty result without
// a round trip.
func (c *Client) SearchUsers(ctx context.Context, term string) ([]User, error) {
	if len(term) < 2 {
		return nil, nil
	}
	var resp struct {
		Users []User `json:"users"`
	}
	path := "/api/users/search?q=" + url.QueryEscape(term)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// FriendRequest is one pending request, incoming or sent.
type FriendRequest struct {
	ID       string `json:"id"`
	FriendID string `json:"friend_id"`
	Username string `json:"username"`
}

// FriendRequests fetches requests other users have sent to us.
func (c *Client) FriendRequests(ctx context.Context) ([]FriendRequest, error) {
	var resp struct {
		Requests []FriendRequest `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/friend-requests", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// SentFriendRequests fetches requests we have sent that are still open.
func (c *Client) SentFriendRequests(ctx context.Context) ([]FriendRequest, error) {
	var resp struct {
		Requests []FriendRequest `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sent-friend-requests", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// SendFriendRequest asks the server to open a friend request to the
// given user.
func (c *Client) SendFriendRequest(ctx context.Context, friendID string) error {
	body := map[string]string{"friend_id": friendID}
	return c.do(ctx, http.MethodPost, "/api/friend-request/send", body, nil)
}

// AcceptFriendRequest accepts a pending request from the given user.
func (c *Client) AcceptFriendRequest(ctx context.Context, friendID string) error {
	body := map[string]string{"friend_id": friendID}
	return c.do(ctx, http.MethodPost, "/api/friend-request/accept", body, nil)
}

// RejectFriendRequest declines a pending request from the given user.
func (c *Client) RejectFriendRequest(ctx context.Context, friendID string) error {
	body := map[string]string{"friend_id": friendID}
	return c.do(ctx, http.MethodPost, "/api/friend-request/reject", body, nil)
}

// CancelFriendRequest withdraws a request we sent earlier.
func (c *Client) CancelFriendRequest(ctx context.Context, friendID string) error {
	path := "/api/friend-request/cancel/" + url.PathEscape(friendID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := resp.Status
		if json.Unmarshal(data, &apiErr) == nil {
			if apiErr.Detail != "" {
				msg = apiErr.Detail
			} else if apiErr.Message != "" {
				msg = apiErr.Message
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
