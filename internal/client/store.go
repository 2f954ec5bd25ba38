package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sakif/blog-platform/internal/model"
)

// API is the part of *Client the Store calls.
type API interface {
	ListPosts(ctx context.Context, q ListQuery) (*PostPage, error)
	GetPost(ctx context.Context, idOrSlug string) (*model.Post, error)
	CreatePost(ctx context.Context, in PostInput) (*model.Post, error)
	UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)
}

// EntryState tells whether the server has acknowledged an entry.
type EntryState int

const (
	// Pending entries were created locally and wait for the server. Their
	// key is a temporary local id.
	Pending EntryState = iota
	// Committed entries mirror a server post. Their key is the post id.
	Committed
)

func (s EntryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	}
	return fmt.Sprintf("EntryState(%d)", int(s))
}

// Entry is one item of the local post list.
type Entry struct {
	State   EntryState
	LocalID string // set for Pending only
	Post    model.Post
}

// Key is the id the entry is matched by: the local id while pending, the
// server id once committed.
func (e Entry) Key() string {
	if e.State == Pending {
		return e.LocalID
	}
	return e.Post.ID
}

// DefaultPageSize is the limit Load asks for when none is given.
const DefaultPageSize = 20

// Store holds the client's ordered post list together with a loading flag
// and a single last-error message.
//
// Create, Update and Delete change the list first and then call the API.
// A failed call rolls the change back and records the error. Every operation
// clears the previous error when it starts. The lock is never held across an
// API call, so a slow request does not block readers.
type Store struct {
	api API
	now func() time.Time
	seq atomic.Uint64

	mu      sync.Mutex
	entries []Entry
	meta    Meta
	loading int
	lastErr string
}

// NewStore creates an empty Store backed by api.
func NewStore(api API) *Store {
	return &Store{api: api, now: time.Now}
}

// Entries returns a copy of the list.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Posts returns the posts of the list in order, pending ones included.
func (s *Store) Posts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]model.Post, len(s.entries))
	for i, e := range s.entries {
		posts[i] = e.Post
	}
	return posts
}

// Meta returns the pagination of the last successful Load.
func (s *Store) Meta() Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Loading reports whether a Load or Get is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Err returns the last error message, "" when the last operation succeeded.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearErr drops the last error message.
func (s *Store) ClearErr() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// Load replaces the whole list with one page from the server.
func (s *Store) Load(ctx context.Context, q ListQuery) ([]model.Post, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}

	s.begin(true)
	page, err := s.api.ListPosts(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.lastErr = message(err, "Failed to load posts")
		return nil, err
	}
	entries := make([]Entry, len(page.Posts))
	for i, p := range page.Posts {
		entries[i] = Entry{State: Committed, Post: p}
	}
	s.entries = entries
	s.meta = page.Meta
	return slices.Clone(page.Posts), nil
}

// Get fetches one post by id or slug. The list is not changed.
func (s *Store) Get(ctx context.Context, idOrSlug string) (*model.Post, error) {
	s.begin(true)
	post, err := s.api.GetPost(ctx, idOrSlug)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.lastErr = message(err, "Failed to load post")
		return nil, err
	}
	return post, nil
}

// Create prepends a pending entry, then asks the server to create the post.
// On success the pending entry is replaced by the stored post; on failure it
// is removed.
func (s *Store) Create(ctx context.Context, in PostInput) (*model.Post, error) {
	now := s.now()
	localID := fmt.Sprintf("temp-%d-%d", now.UnixMilli(), s.seq.Add(1))
	draft := Entry{State: Pending, LocalID: localID, Post: draftPost(in, now)}

	s.mu.Lock()
	s.lastErr = ""
	s.entries = append([]Entry{draft}, s.entries...)
	s.mu.Unlock()

	saved, err := s.api.CreatePost(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(localID)
	if err != nil {
		if i >= 0 {
			s.entries = slices.Delete(s.entries, i, i+1)
		}
		s.lastErr = message(err, "Create failed")
		return nil, err
	}
	if i >= 0 {
		s.entries[i] = Entry{State: Committed, Post: *saved}
	}
	return saved, nil
}

// Update merges patch into the local entry right away and replaces it with
// the server's copy on success. On failure the whole list is restored to
// what it was before the call.
func (s *Store) Update(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	s.mu.Lock()
	s.lastErr = ""
	snapshot := slices.Clone(s.entries)
	if i := s.indexOf(id); i >= 0 {
		s.entries[i].Post = applyPatch(s.entries[i].Post, patch)
	}
	s.mu.Unlock()

	saved, err := s.api.UpdatePost(ctx, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.entries = snapshot
		s.lastErr = message(err, "Update failed")
		return nil, err
	}
	if i := s.indexOf(id); i >= 0 {
		s.entries[i] = Entry{State: Committed, Post: *saved}
	}
	return saved, nil
}

// Delete removes the entry right away and restores the previous list if the
// server refuses.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	s.lastErr = ""
	snapshot := slices.Clone(s.entries)
	if i := s.indexOf(id); i >= 0 {
		s.entries = slices.Delete(s.entries, i, i+1)
	}
	s.mu.Unlock()

	err := s.api.DeletePost(ctx, id)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = snapshot
	s.lastErr = message(err, "Delete failed")
	return err
}

func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	s.begin(false)
	cats, err := s.api.Categories(ctx)
	if err != nil {
		s.fail(err, "Failed to load categories")
		return nil, err
	}
	return cats, nil
}

func (s *Store) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	s.begin(false)
	cat, err := s.api.CreateCategory(ctx, name, description)
	if err != nil {
		s.fail(err, "Create category failed")
		return nil, err
	}
	return cat, nil
}

// begin clears the last error and optionally marks a load in flight.
func (s *Store) begin(loading bool) {
	s.mu.Lock()
	s.lastErr = ""
	if loading {
		s.loading++
	}
	s.mu.Unlock()
}

func (s *Store) fail(err error, fallback string) {
	s.mu.Lock()
	s.lastErr = message(err, fallback)
	s.mu.Unlock()
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(key string) int {
	return slices.IndexFunc(s.entries, func(e Entry) bool { return e.Key() == key })
}

// draftPost is the local stand-in shown while a create is in flight.
func draftPost(in PostInput, now time.Time) model.Post {
	p := model.Post{
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		FeaturedImage: in.FeaturedImage,
		Tags:          slices.Clone(in.Tags),
		Slug:          in.Slug,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Category != "" {
		p.Category = &model.CategoryRef{Name: in.Category}
	}
	return p
}

// applyPatch returns p with the set fields of patch copied over. It assigns
// new values only and never writes through p's pointers or slices, so a
// snapshot sharing them stays intact.
func applyPatch(p model.Post, patch model.PostPatch) model.Post {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Excerpt != nil {
		p.Excerpt = *patch.Excerpt
	}
	if patch.FeaturedImage != nil {
		p.FeaturedImage = *patch.FeaturedImage
	}
	if patch.Tags != nil {
		p.Tags = slices.Clone(*patch.Tags)
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Category != nil {
		if *patch.Category == "" {
			p.Category = nil
		} else {
			p.Category = &model.CategoryRef{Name: *patch.Category}
		}
	}
	return p
}

// message is the text shown to the user for err.
func message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err.Error() != "" {
		return err.Error()
	}
	return fallback
}
