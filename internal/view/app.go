package view

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sakif/blog-platform/internal/client"
	"github.com/sakif/blog-platform/internal/model"
)

// Account covers the calls that do not touch the post list.
// *client.Client satisfies it.
type Account interface {
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*client.AuthResult, error)
	AddComment(ctx context.Context, postID, content string) (*model.Comment, error)
	Upload(ctx context.Context, filename string, r io.Reader) (*client.UploadResult, error)
}

const helpText = `Commands:
  login                       sign in
  register                    create an account
  list [page] [category]      show posts
  search <text>               show posts matching text
  view <ref>                  show one post
  new                         write a post
  edit <ref>                  change a post
  delete <ref>                delete a post
  comment <ref>               comment on a post
  categories [add <name>]     list or create categories
  upload <path>               upload a file
  help                        show this text
  quit                        leave
<ref> is a post id, a slug, or #N for the Nth post of the last list.
`

// App is the command loop. It owns no post state: everything shown comes
// from the Store it was given.
type App struct {
	store    *client.Store
	account  Account
	render   *Renderer
	in       *bufio.Scanner
	out      io.Writer
	logger   *slog.Logger
	openFile func(path string) (io.ReadCloser, error)

	query client.ListQuery
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger for failures that are not shown to the user.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithOpenFile replaces os.Open for the upload command.
func WithOpenFile(open func(path string) (io.ReadCloser, error)) Option {
	return func(a *App) { a.openFile = open }
}

func New(store *client.Store, account Account, in io.Reader, out io.Writer, opts ...Option) (*App, error) {
	render, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	a := &App{
		store:   store,
		account: account,
		render:  render,
		in:      bufio.NewScanner(in),
		out:     out,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		openFile: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run reads commands until quit, end of input or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.printf("Type help for commands.\n")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok := a.prompt("> ")
		if !ok {
			return a.in.Err()
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		if err := a.dispatch(ctx, cmd, args); err != nil {
			return err
		}
	}
}

// dispatch runs one command. Only input errors are returned; API failures
// are printed and the loop goes on.
func (a *App) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		a.printf("%s", helpText)
	case "login":
		return a.login(ctx)
	case "register":
		return a.register(ctx)
	case "list", "ls":
		a.list(ctx, args)
	case "search":
		if len(args) == 0 {
			a.printf("usage: search <text>\n")
			return nil
		}
		a.query = client.ListQuery{Page: 1, Query: strings.Join(args, " ")}
		a.load(ctx)
	case "view", "show":
		if ref, ok := a.ref(cmd, args); ok {
			a.view(ctx, ref)
		}
	case "new":
		return a.create(ctx)
	case "edit":
		if ref, ok := a.ref(cmd, args); ok {
			return a.edit(ctx, ref)
		}
	case "delete", "rm":
		if ref, ok := a.ref(cmd, args); ok {
			return a.remove(ctx, ref)
		}
	case "comment":
		if ref, ok := a.ref(cmd, args); ok {
			return a.comment(ctx, ref)
		}
	case "categories", "cats":
		a.categories(ctx, args)
	case "upload":
		if len(args) == 0 {
			a.printf("usage: upload <path>\n")
			return nil
		}
		a.upload(ctx, strings.Join(args, " "))
	default:
		a.printf("Unknown command %q. Type help for commands.\n", cmd)
	}
	return nil
}

func (a *App) login(ctx context.Context) error {
	email, ok := a.prompt("Email: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	password, ok := a.prompt("Password: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	res, err := a.account.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		a.fail(err)
		return nil
	}
	a.printf("Signed in as %s.\n", res.User.Username)
	return nil
}

func (a *App) register(ctx context.Context) error {
	var vals [3]string
	for i, label := range []string{"Username: ", "Email: ", "Password: "} {
		v, ok := a.prompt(label)
		if !ok {
			return io.ErrUnexpectedEOF
		}
		vals[i] = v
	}
	res, err := a.account.Register(ctx, strings.TrimSpace(vals[0]), strings.TrimSpace(vals[1]), vals[2])
	if err != nil {
		a.fail(err)
		return nil
	}
	a.printf("Welcome, %s.\n", res.User.Username)
	return nil
}

// list parses "[page] [category]". A first argument that is not a number is
// the category.
func (a *App) list(ctx context.Context, args []string) {
	q := client.ListQuery{Page: 1}
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			q.Page = n
			args = args[1:]
		}
	}
	if len(args) > 0 {
		q.Category = strings.Join(args, " ")
	}
	a.query = q
	a.load(ctx)
}

func (a *App) load(ctx context.Context) {
	_, _ = a.store.Load(ctx, a.query)
	a.showList()
}

func (a *App) showList() {
	screen := ListScreen{
		Entries:  a.store.Entries(),
		Meta:     a.store.Meta(),
		Category: a.query.Category,
		Query:    a.query.Query,
		Loading:  a.store.Loading(),
		Err:      a.store.Err(),
	}
	if err := a.render.List(a.out, screen); err != nil {
		a.logger.Error("rendering list", slog.String("error", err.Error()))
	}
}

func (a *App) view(ctx context.Context, ref string) {
	post, err := a.store.Get(ctx, ref)
	if err != nil {
		a.storeErr()
		return
	}
	if err := a.render.Detail(a.out, post); err != nil {
		a.logger.Error("rendering post", slog.String("error", err.Error()))
	}
}

func (a *App) create(ctx context.Context) error {
	if err := a.render.Form(a.out, FormScreen{}); err != nil {
		a.logger.Error("rendering form", slog.String("error", err.Error()))
	}
	var in client.PostInput
	var ok bool
	if in.Title, ok = a.prompt("Title: "); !ok {
		return io.ErrUnexpectedEOF
	}
	if in.Excerpt, ok = a.prompt("Excerpt: "); !ok {
		return io.ErrUnexpectedEOF
	}
	if in.Category, ok = a.prompt("Category (name): "); !ok {
		return io.ErrUnexpectedEOF
	}
	tags, ok := a.prompt("Tags (comma separated): ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	in.Tags = splitTags(tags)
	if in.Content, ok = a.readBlock("Content"); !ok {
		return io.ErrUnexpectedEOF
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Category = strings.TrimSpace(in.Category)

	if msg := checkPost(in.Title, in.Content); msg != "" {
		a.printf("! %s\n", msg)
		return nil
	}

	post, err := a.store.Create(ctx, in)
	if err != nil {
		a.storeErr()
		return nil
	}
	a.printf("Created %q (%s).\n", post.Title, post.ID)
	return nil
}

// edit shows the current value of each field; an empty answer keeps it.
func (a *App) edit(ctx context.Context, ref string) error {
	current, err := a.store.Get(ctx, ref)
	if err != nil {
		a.storeErr()
		return nil
	}
	if err := a.render.Form(a.out, FormScreen{Editing: true}); err != nil {
		a.logger.Error("rendering form", slog.String("error", err.Error()))
	}

	var patch model.PostPatch
	category := ""
	if current.Category != nil {
		category = current.Category.Name
	}
	fields := []struct {
		label, value string
		dst          **string
	}{
		{"Title", current.Title, &patch.Title},
		{"Excerpt", current.Excerpt, &patch.Excerpt},
		{"Category (name, - to clear)", category, &patch.Category},
	}
	for _, f := range fields {
		v, ok := a.prompt(fmt.Sprintf("%s [%s]: ", f.label, f.value))
		if !ok {
			return io.ErrUnexpectedEOF
		}
		v = strings.TrimSpace(v)
		switch {
		case v == "":
		case v == "-":
			empty := ""
			*f.dst = &empty
		case v != f.value:
			*f.dst = &v
		}
	}

	a.printf("Content is %d characters. Enter new content, or just '.' to keep it.\n", len(current.Content))
	content, ok := a.readBlock("Content")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	if content != "" && content != current.Content {
		patch.Content = &content
	}

	if patch == (model.PostPatch{}) {
		a.printf("Nothing changed.\n")
		return nil
	}
	title, body := current.Title, current.Content
	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Content != nil {
		body = *patch.Content
	}
	if msg := checkPost(title, body); msg != "" {
		a.printf("! %s\n", msg)
		return nil
	}

	post, err := a.store.Update(ctx, current.ID, patch)
	if err != nil {
		a.storeErr()
		return nil
	}
	a.printf("Saved %q.\n", post.Title)
	return nil
}

func (a *App) remove(ctx context.Context, ref string) error {
	answer, ok := a.prompt("Delete this post? [y/N] ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		a.printf("Cancelled.\n")
		return nil
	}
	if err := a.store.Delete(ctx, ref); err != nil {
		a.storeErr()
		return nil
	}
	a.printf("Post deleted.\n")
	return nil
}

func (a *App) comment(ctx context.Context, ref string) error {
	content, ok := a.prompt("Comment: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	c, err := a.account.AddComment(ctx, ref, strings.TrimSpace(content))
	if err != nil {
		a.fail(err)
		return nil
	}
	a.printf("Comment added (%s).\n", c.ID)
	return nil
}

func (a *App) categories(ctx context.Context, args []string) {
	if len(args) > 1 && strings.EqualFold(args[0], "add") {
		cat, err := a.store.CreateCategory(ctx, strings.Join(args[1:], " "), "")
		if err != nil {
			a.storeErr()
			return
		}
		a.printf("Created category %s.\n", cat.Name)
		return
	}

	cats, err := a.store.Categories(ctx)
	if err != nil {
		a.storeErr()
		return
	}
	if len(cats) == 0 {
		a.printf("No categories yet\n")
		return
	}
	for _, c := range cats {
		if c.Description != "" {
			a.printf("- %s: %s\n", c.Name, c.Description)
		} else {
			a.printf("- %s\n", c.Name)
		}
	}
}

func (a *App) upload(ctx context.Context, path string) {
	f, err := a.openFile(path)
	if err != nil {
		a.printf("! %s\n", err)
		return
	}
	defer f.Close()

	res, err := a.account.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		a.fail(err)
		return
	}
	a.printf("Uploaded %s\n", res.URL)
}

// ref resolves "#N" against the last list; anything else is an id or slug.
func (a *App) ref(cmd string, args []string) (string, bool) {
	if len(args) == 0 {
		a.printf("usage: %s <ref>\n", cmd)
		return "", false
	}
	arg := args[0]
	if !strings.HasPrefix(arg, "#") {
		return arg, true
	}
	n, err := strconv.Atoi(arg[1:])
	entries := a.store.Entries()
	if err != nil || n < 1 || n > len(entries) {
		a.printf("! No post %s in the current list\n", arg)
		return "", false
	}
	return entries[n-1].Key(), true
}

// storeErr prints the store's last error as is.
func (a *App) storeErr() {
	if msg := a.store.Err(); msg != "" {
		a.printf("! %s\n", msg)
	}
}

func (a *App) fail(err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		a.printf("! %s\n", apiErr.Message)
		return
	}
	a.printf("! %s\n", err)
}

func (a *App) prompt(label string) (string, bool) {
	a.printf("%s", label)
	if !a.in.Scan() {
		return "", false
	}
	return a.in.Text(), true
}

// readBlock reads lines until one that is just ".".
func (a *App) readBlock(label string) (string, bool) {
	a.printf("%s (end with a line containing only '.'):\n", label)
	var lines []string
	for a.in.Scan() {
		line := a.in.Text()
		if line == "." {
			return strings.TrimSpace(strings.Join(lines, "\n")), true
		}
		lines = append(lines, line)
	}
	return "", false
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// checkPost mirrors the server's required-field rule so an obviously
// incomplete post never leaves the terminal.
func checkPost(title, content string) string {
	if strings.TrimSpace(title) == "" {
		return "Title is required"
	}
	if strings.TrimSpace(content) == "" {
		return "Content is required"
	}
	return ""
}
