package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// In-memory fakes for the repository interfaces. Using fakes (not a mock
// framework) keeps the service tests readable: you can see exactly what the
// store does.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// =========================================================================
// USERS
// =========================================================================

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
	// set to a non-nil error to simulate a database failure
	upsertErr error
	existsErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Email == user.Email || u.Username == user.Username {
			return apperror.ConflictMessage("User already exists")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFoundMessage("user not found")
}

func (f *fakeUserRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, u := range f.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			u.Email = user.Email
			*user = *u
			return nil
		}
	}
	return f.Create(ctx, user)
}

// =========================================================================
// CATEGORIES
// =========================================================================

type fakeCategoryRepo struct {
	cats    []*model.Category
	created int
	findErr error
}

var _ repository.CategoryRepository = (*fakeCategoryRepo)(nil)

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{}
}

func (f *fakeCategoryRepo) Create(_ context.Context, cat *model.Category) error {
	for _, c := range f.cats {
		if c.Name == cat.Name {
			return apperror.ConflictMessage("Category already exists")
		}
	}
	f.created++
	cat.ID = fmt.Sprintf("cat-%d", f.created)
	cat.CreatedAt = time.Now()
	cat.UpdatedAt = cat.CreatedAt
	stored := *cat
	f.cats = append(f.cats, &stored)
	return nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(f.cats))
	for _, c := range f.cats {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCategoryRepo) FindByRef(_ context.Context, ref string) (*model.Category, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, c := range f.cats {
		if c.ID == ref {
			result := *c
			return &result, nil
		}
	}
	for _, c := range f.cats {
		if c.Name == ref {
			result := *c
			return &result, nil
		}
	}
	return nil, apperror.NotFound("category", ref)
}

func (f *fakeCategoryRepo) EnsureByRef(ctx context.Context, ref string) (*model.Category, error) {
	cat, err := f.FindByRef(ctx, ref)
	if err == nil || !errors.Is(err, apperror.ErrNotFound) {
		return cat, err
	}
	cat = &model.Category{Name: ref}
	if err := f.Create(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// =========================================================================
// POSTS
// =========================================================================

type fakePostRepo struct {
	posts    map[string]*model.Post
	users    *fakeUserRepo
	cats     *fakeCategoryRepo
	nextID   int
	clock    time.Time
	listErr  error
	lastList repository.ListOptions
}

var _ repository.PostRepository = (*fakePostRepo)(nil)

func newFakePostRepo(users *fakeUserRepo, cats *fakeCategoryRepo) *fakePostRepo {
	return &fakePostRepo{
		posts: make(map[string]*model.Post),
		users: users,
		cats:  cats,
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so listing order is stable.
func (f *fakePostRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	if post.Slug != "" {
		for _, p := range f.posts {
			if p.Slug == post.Slug {
				return apperror.ConflictMessage("Slug already in use")
			}
		}
	}
	f.nextID++
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	post.CreatedAt = f.tick()
	post.UpdatedAt = post.CreatedAt
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}
	f.posts[post.ID] = clonePost(post)
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFoundMessage("Post not found")
	}
	return f.populate(p), nil
}

func (f *fakePostRepo) GetBySlug(_ context.Context, slug string) (*model.Post, error) {
	for _, p := range f.posts {
		if p.Slug != "" && p.Slug == slug {
			return f.populate(p), nil
		}
	}
	return nil, apperror.NotFoundMessage("Post not found")
}

func (f *fakePostRepo) SlugExists(_ context.Context, slug, exceptID string) (bool, error) {
	for _, p := range f.posts {
		if p.Slug == slug && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePostRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Post, int, error) {
	f.lastList = opts
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	q := strings.ToLower(opts.Query)
	var matched []*model.Post
	for _, p := range f.posts {
		if opts.CategoryID != "" && p.CategoryID() != opts.CategoryID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Content), q) &&
			!strings.Contains(strings.ToLower(p.Excerpt), q) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if opts.Offset >= total {
		return []model.Post{}, total, nil
	}
	matched = matched[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	out := make([]model.Post, 0, len(matched))
	for _, p := range matched {
		out = append(out, *f.populate(p))
	}
	return out, total, nil
}

func (f *fakePostRepo) Update(_ context.Context, post *model.Post) error {
	if _, ok := f.posts[post.ID]; !ok {
		return apperror.NotFoundMessage("Post not found")
	}
	post.UpdatedAt = f.tick()
	f.posts[post.ID] = clonePost(post)
	return nil
}

func (f *fakePostRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFoundMessage("Post not found")
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) AddComment(_ context.Context, postID string, comment *model.Comment) error {
	p, ok := f.posts[postID]
	if !ok {
		return apperror.NotFoundMessage("Post not found")
	}
	comment.ID = fmt.Sprintf("%s-c%d", postID, len(p.Comments)+1)
	comment.CreatedAt = f.tick()
	if comment.User != nil {
		if u, ok := f.users.users[comment.User.ID]; ok {
			comment.User = u.Ref()
		}
	}
	p.Comments = append(p.Comments, *comment)
	p.UpdatedAt = comment.CreatedAt
	return nil
}

// populate returns a copy with category names and author details filled in,
// as the real store's joins would.
func (f *fakePostRepo) populate(p *model.Post) *model.Post {
	out := clonePost(p)
	if out.Category != nil {
		for _, c := range f.cats.cats {
			if c.ID == out.Category.ID {
				out.Category = &model.CategoryRef{ID: c.ID, Name: c.Name}
			}
		}
	}
	if out.Author != nil {
		if u, ok := f.users.users[out.Author.ID]; ok {
			out.Author = u.Ref()
		}
	}
	return out
}

func clonePost(p *model.Post) *model.Post {
	out := *p
	out.Tags = append([]string{}, p.Tags...)
	out.Comments = append([]model.Comment{}, p.Comments...)
	if p.Category != nil {
		c := *p.Category
		out.Category = &c
	}
	if p.Author != nil {
		a := *p.Author
		out.Author = &a
	}
	return &out
}
