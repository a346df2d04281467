// Package mmapi is the HTTP transport to a Mattermost-compatible backend.
// It speaks REST against {server}/api/v4 and decodes structured failures
// into models.APIError. Timeouts live here, not in the layers above.
package mmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ita-prog/worryless/internal/logging"
	"github.com/ita-prog/worryless/internal/models"
)

// DefaultPageSize is the fixed page size for the user directory.
const DefaultPageSize = 100

// Client performs the REST calls. The rate limiter paces the paginated
// user-directory fetch so a large directory does not hammer the server.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	log     logging.Logger
}

func New(log logging.Logger, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		log:     log,
	}
}

type loginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

// Login authenticates and returns the user plus the session token taken
// from the "Token" response header.
func (c *Client) Login(ctx context.Context, serverURL, login, password string) (models.User, string, error) {
	u, err := join(serverURL, "users", "login")
	if err != nil {
		return models.User{}, "", err
	}
	c.log.Info(ctx, "login user", "login", login, "url", u)

	resp, err := c.do(ctx, http.MethodPost, u, "", loginRequest{LoginID: login, Password: password})
	if err != nil {
		return models.User{}, "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return models.User{}, "", err
	}

	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return models.User{}, "", fmt.Errorf("decode login response: %w", err)
	}
	return user, resp.Header.Get("Token"), nil
}

// MyTeams lists the teams the authenticated user belongs to.
func (c *Client) MyTeams(ctx context.Context, serverURL, token string) ([]models.Team, error) {
	var teams []models.Team
	if err := c.get(ctx, serverURL, token, &teams, "users", "me", "teams"); err != nil {
		return nil, err
	}
	return teams, nil
}

// MyTeamMembers lists the user's team memberships.
func (c *Client) MyTeamMembers(ctx context.Context, serverURL, token string) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := c.get(ctx, serverURL, token, &members, "users", "me", "teams", "members"); err != nil {
		return nil, err
	}
	return members, nil
}

// MyChannels lists the channels visible to the user.
func (c *Client) MyChannels(ctx context.Context, serverURL, token string) ([]models.Channel, error) {
	var channels []models.Channel
	if err := c.get(ctx, serverURL, token, &channels, "users", "me", "channels"); err != nil {
		return nil, err
	}
	return channels, nil
}

// ChannelPosts fetches a channel's post window.
func (c *Client) ChannelPosts(ctx context.Context, serverURL, token, channelID string) (models.PostThread, error) {
	var thread models.PostThread
	if err := c.get(ctx, serverURL, token, &thread, "channels", channelID, "posts"); err != nil {
		return models.PostThread{}, err
	}
	return thread, nil
}

// PostThread fetches the thread rooted at the given post.
func (c *Client) PostThread(ctx context.Context, serverURL, token, postID string) (models.PostThread, error) {
	var thread models.PostThread
	if err := c.get(ctx, serverURL, token, &thread, "posts", postID, "thread"); err != nil {
		return models.PostThread{}, err
	}
	return thread, nil
}

// UserUnread fetches the unread post window of one channel for one user.
func (c *Client) UserUnread(ctx context.Context, serverURL, token, userID, channelID string) (models.PostThread, error) {
	u, err := join(serverURL, "users", userID, "channels", channelID, "posts", "unread")
	if err != nil {
		return models.PostThread{}, err
	}
	u += "?limit_after=30&limit_before=30&skipFetchThreads=false&collapsedThreads=true&collapsedThreadsExtended=false"

	var thread models.PostThread
	if err := c.getURL(ctx, u, token, &thread); err != nil {
		return models.PostThread{}, err
	}
	return thread, nil
}

// Users fetches one page of the user directory.
func (c *Client) Users(ctx context.Context, serverURL, token string, page, perPage int) ([]models.User, error) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := join(serverURL, "users")
	if err != nil {
		return nil, err
	}
	u += fmt.Sprintf("?page=%d&per_page=%d", page, perPage)

	var users []models.User
	if err := c.getURL(ctx, u, token, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) get(ctx context.Context, serverURL, token string, out any, parts ...string) error {
	u, err := join(serverURL, parts...)
	if err != nil {
		return err
	}
	return c.getURL(ctx, u, token, out)
}

func (c *Client) getURL(ctx context.Context, u, token string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, u, token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", u, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, u, token string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", u, err)
	}
	return resp, nil
}

// checkStatus converts a non-2xx response into an error, preferring the
// backend's structured failure shape.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var apiErr models.APIError
	if err := json.Unmarshal(data, &apiErr); err == nil && (apiErr.ID != "" || apiErr.Message != "") {
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = resp.StatusCode
		}
		return &apiErr
	}
	return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(data))
}

func join(serverURL string, parts ...string) (string, error) {
	u, err := url.JoinPath(serverURL, append([]string{"api", "v4"}, parts...)...)
	if err != nil {
		return "", fmt.Errorf("join url %s: %w", serverURL, err)
	}
	return u, nil
}
