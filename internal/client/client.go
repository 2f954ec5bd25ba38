// Package client talks to the blog API over HTTP and keeps the client-side
// post list in sync with it.
//
// Client is a thin REST wrapper: one method per endpoint, the response
// envelope unwrapped, failures returned as *APIError. Store sits on top and
// applies changes to its local list before the server has answered.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sakif/blog-platform/internal/model"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the server. Message is the server's
// error text, or the joined field messages of a validation failure.
type APIError struct {
	Status  int
	Message string
	Fields  []FieldError
}

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Meta is the pagination block of a list response.
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ListQuery selects a page of posts. Zero values are left to the server.
type ListQuery struct {
	Page     int
	Limit    int
	Category string
	Query    string
}

// PostPage is one page of posts and its pagination meta.
type PostPage struct {
	Posts []model.Post
	Meta  Meta
}

// PostInput is the body of a create request.
type PostInput struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Excerpt       string   `json:"excerpt,omitempty"`
	FeaturedImage string   `json:"featuredImage,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Category      string   `json:"category,omitempty"`
	Slug          string   `json:"slug,omitempty"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  model.UserRef `json:"user"`
	Token string        `json:"token"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Meta    *Meta           `json:"meta"`
	Errors  []FieldError    `json:"errors"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 15s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the API at baseURL, e.g. "http://localhost:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use, "" when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token. An empty token signs out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Register creates an account and keeps its token for later calls.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

// Login signs in and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*AuthResult, error) {
	var result AuthResult
	if _, err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if _, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListPosts(ctx context.Context, q ListQuery) (*PostPage, error) {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.Query != "" {
		values.Set("q", q.Query)
	}
	path := "/api/posts"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var posts []model.Post
	env, err := c.do(ctx, http.MethodGet, path, nil, &posts)
	if err != nil {
		return nil, err
	}
	page := &PostPage{Posts: posts}
	if env.Meta != nil {
		page.Meta = *env.Meta
	}
	return page, nil
}

// GetPost fetches a post by id or slug.
func (c *Client) GetPost(ctx context.Context, idOrSlug string) (*model.Post, error) {
	var post model.Post
	if _, err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(idOrSlug), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (*model.Post, error) {
	var post model.Post
	if _, err := c.do(ctx, http.MethodPost, "/api/posts", in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	var post model.Post
	if _, err := c.do(ctx, http.MethodPut, "/api/posts/"+url.PathEscape(id), patch, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) AddComment(ctx context.Context, postID, content string) (*model.Comment, error) {
	var comment model.Comment
	path := "/api/posts/" + url.PathEscape(postID) + "/comments"
	if _, err := c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if _, err := c.do(ctx, http.MethodGet, "/api/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *Client) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	body := map[string]string{"name": name}
	if description != "" {
		body["description"] = description
	}
	var cat model.Category
	if _, err := c.do(ctx, http.MethodPost, "/api/categories", body, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Upload sends r as the multipart field "file" named filename.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("client: building upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("client: reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: building upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/uploads", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if _, err := c.send(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do sends body as JSON and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (*envelope, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encoding request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("client: decoding response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newAPIError(resp.StatusCode, &env)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("client: decoding data: %w", err)
		}
	}
	return &env, nil
}

func newAPIError(status int, env *envelope) *APIError {
	apiErr := &APIError{Status: status, Message: env.Error, Fields: env.Errors}
	if len(env.Errors) > 0 {
		msgs := make([]string, len(env.Errors))
		for i, fe := range env.Errors {
			msgs[i] = fe.Message
		}
		apiErr.Message = strings.Join(msgs, "; ")
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
