// Package view is the terminal front end of the blog: it renders the list,
// detail and form screens and turns typed commands into Store operations.
package view

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"golang.org/x/net/html"

	"github.com/sakif/blog-platform/internal/client"
	"github.com/sakif/blog-platform/internal/model"
)

// summaryLength is how much content the list shows when a post has no excerpt.
const summaryLength = 120

// ListScreen is the data behind the post list.
type ListScreen struct {
	Entries  []client.Entry
	Meta     client.Meta
	Category string
	Query    string
	Loading  bool
	Err      string
}

// FormScreen is the header of the new/edit form.
type FormScreen struct {
	Editing bool
	Err     string
}

const screens = `
{{define "list"}}== Posts{{with .Query}} matching "{{.}}"{{end}}{{with .Category}} in {{.}}{{end}} ==
{{if .Loading}}Loading posts...
{{end}}{{with .Err}}! {{.}}
{{end}}{{if and (not .Entries) (not .Loading)}}No posts yet
{{end}}{{range $i, $e := .Entries}}#{{inc $i}} {{if pending $e}}(saving) {{end}}{{$e.Post.Title}}{{with $e.Post.Category}} [{{.Name}}]{{end}}  {{key $e}}
    {{summary $e.Post}}
{{end}}{{with .Meta}}{{if .Total}}page {{.Page}} of {{pages .}}, {{.Total}} posts
{{end}}{{end}}{{end}}

{{define "detail"}}== {{.Title}} ==
{{with .Excerpt}}{{.}}
{{end}}{{with .Author}}by {{.Username}} {{end}}on {{date .CreatedAt}}{{with .Category}} in {{.Name}}{{end}}
{{with .Tags}}tags: {{join . ", "}}
{{end}}id: {{.ID}}{{with .Slug}}  slug: {{.}}{{end}}

{{plain .Content}}
{{with .Comments}}
-- {{len .}} comment(s) --
{{range .}}{{with .User}}{{.Username}}{{else}}anonymous{{end}} ({{date .CreatedAt}}): {{.Content}}
{{end}}{{end}}{{end}}

{{define "form"}}== {{if .Editing}}Edit Post{{else}}New Post{{end}} ==
{{with .Err}}! {{.}}
{{end}}{{end}}
`

// Renderer parses the screen templates once and reuses them.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the screen templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("screens").Funcs(template.FuncMap{
		"inc":     func(i int) int { return i + 1 },
		"pending": func(e client.Entry) bool { return e.State == client.Pending },
		"key":     func(e client.Entry) string { return e.Key() },
		"summary": summary,
		"plain":   plainText,
		"join":    strings.Join,
		"date":    func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"pages": func(m client.Meta) int {
			if m.Limit <= 0 {
				return 1
			}
			return (m.Total + m.Limit - 1) / m.Limit
		},
	}).Parse(screens)
	if err != nil {
		return nil, fmt.Errorf("view: parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) List(w io.Writer, s ListScreen) error {
	return r.tmpl.ExecuteTemplate(w, "list", s)
}

func (r *Renderer) Detail(w io.Writer, p *model.Post) error {
	return r.tmpl.ExecuteTemplate(w, "detail", p)
}

func (r *Renderer) Form(w io.Writer, s FormScreen) error {
	return r.tmpl.ExecuteTemplate(w, "form", s)
}

// summary is the excerpt, or the start of the plain-text content.
func summary(p model.Post) string {
	if p.Excerpt != "" {
		return p.Excerpt
	}
	text := strings.Join(strings.Fields(plainText(p.Content)), " ")
	if r := []rune(text); len(r) > summaryLength {
		return string(r[:summaryLength]) + "..."
	}
	return text
}

// blockTags end a line when they close.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "tr": true,
}

// plainText strips markup from rich-text content, keeping line breaks at
// block boundaries. Script and style bodies are dropped.
func plainText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip++
			case tag == "br":
				b.WriteByte('\n')
			case tag == "li":
				b.WriteString("- ")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
