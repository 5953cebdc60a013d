// Package render projects page state into HTML. It performs no I/O beyond
// writing to the supplied writer, so every view can be tested without a server.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"personalpage/internal/posts"
	"personalpage/internal/profile"
)

//go:embed templates/*.html
var templateFS embed.FS

// Field names shared by forms, templates and handlers.
const (
	FieldTitle   = "title"
	FieldContent = "content"
	FieldName    = "name"
	FieldSchool  = "school"
	FieldAge     = "age"
	FieldHobbies = "hobbies"
)

type PageView struct {
	Profile  profile.Profile
	Posts    []posts.Post
	PostForm PostFormView
	// Modal is nil while the profile editor is closed.
	Modal       *ProfileModalView
	Banner      string
	LiveUpdates bool
}

type PostFormView struct {
	Title   string
	Content string
	Invalid map[string]bool
	Focus   string
}

type ProfileModalView struct {
	Name    string
	School  string
	Age     string
	Hobbies string
	Invalid map[string]bool
	Focus   string

	// Avatar is the preview: whatever the pending avatar source resolves to.
	Avatar string
	// Pending is set when Avatar differs from the saved one, so a re-rendered
	// form can send the choice back.
	Pending    string
	AvatarKind string
	Presets    []string
	Message    string
}

type ConfirmView struct {
	Post posts.Post
	// Token names the pending delete request this page answers.
	Token string
}

// PostCard is a post as it appears on the page.
type PostCard struct {
	ID      string
	Title   string
	Content string
	Date    string
}

type Renderer struct {
	locale string
	loc    *time.Location
	labels Labels
	tmpl   *template.Template
}

func New(locale string, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	r := &Renderer{locale: locale, loc: loc, labels: LabelsFor(locale)}
	tmpl, err := template.New("page").Funcs(template.FuncMap{
		"avatarSrc": avatarSrc,
		"isSet":     func(m map[string]bool, k string) bool { return m[k] },
		"inc":       func(i int) int { return i + 1 },
		"modalData": func(l Labels, m *ProfileModalView) modalData { return modalData{L: l, M: m} },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

func (r *Renderer) Labels() Labels { return r.labels }

// Cards sorts posts newest first and formats them for display.
func (r *Renderer) Cards(in []posts.Post) []PostCard {
	sorted := posts.SortNewestFirst(in)
	out := make([]PostCard, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, PostCard{
			ID:      p.ID,
			Title:   p.Title,
			Content: p.Content,
			Date:    FormatDate(r.locale, p.CreatedAt, r.loc),
		})
	}
	return out
}

type pageData struct {
	L        Labels
	Profile  profile.Profile
	Cards    []PostCard
	PostForm PostFormView
	Modal    *ProfileModalView
	Banner   string
	Live     bool
}

func (r *Renderer) Page(w io.Writer, v PageView) error {
	return r.execute(w, "page.html", pageData{
		L:        r.labels,
		Profile:  v.Profile,
		Cards:    r.Cards(v.Posts),
		PostForm: v.PostForm,
		Modal:    v.Modal,
		Banner:   v.Banner,
		Live:     v.LiveUpdates,
	})
}

// PostList renders only the posts grid, placeholder included.
func (r *Renderer) PostList(w io.Writer, in []posts.Post) error {
	return r.execute(w, "posts", pageData{L: r.labels, Cards: r.Cards(in)})
}

type modalData struct {
	L Labels
	M *ProfileModalView
}

type confirmData struct {
	L     Labels
	Card  PostCard
	Token string
}

func (r *Renderer) ConfirmDelete(w io.Writer, v ConfirmView) error {
	cards := r.Cards([]posts.Post{v.Post})
	return r.execute(w, "confirm.html", confirmData{L: r.labels, Card: cards[0], Token: v.Token})
}

// execute renders into a buffer first so a template error never leaves a
// half-written response.
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// avatarSrc lets embedded image data through the URL sanitizer; everything
// else stays a plain string and is filtered by html/template as usual.
func avatarSrc(s string) any {
	if profile.IsImageDataURL(s) {
		return template.URL(s)
	}
	return s
}
