// Package web serves the personal page over HTTP. Every interaction is an
// ordinary form post; the controllers in package forms decide what happens
// and the renderer draws the result.
package web

import (
	"context"
	"embed"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"personalpage/internal/forms"
	"personalpage/internal/persistence/journal"
	"personalpage/internal/posts"
	"personalpage/internal/profile"
	"personalpage/internal/protocol"
	"personalpage/internal/render"
)

//go:embed static
var staticFS embed.FS

// Publisher receives a notice after every successful write.
type Publisher interface {
	Publish(msg protocol.ChangedMsg)
}

type Options struct {
	Locale         string
	Presets        []string
	DefaultProfile profile.Profile
	MaxUploadBytes int64
	LiveUpdates    bool

	Journal   *journal.Journal
	Publisher Publisher
	Logger    *log.Logger
	Now       func() time.Time
}

type Server struct {
	posts    *posts.Repository
	profiles *profile.Repository
	render   *render.Renderer
	opts     Options
	deletes  *forms.DeleteFlow

	pageViews          atomic.Uint64
	postsCreated       atomic.Uint64
	postsDeleted       atomic.Uint64
	profileSaves       atomic.Uint64
	validationFailures atomic.Uint64
	persistFailures    atomic.Uint64
}

func NewServer(p *posts.Repository, pr *profile.Repository, r *render.Renderer, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 2 << 20
	}
	if opts.Locale == "" {
		opts.Locale = profile.DefaultLocale
	}
	if opts.DefaultProfile == (profile.Profile{}) {
		opts.DefaultProfile = profile.Default()
	}
	return &Server{
		posts:    p,
		profiles: pr,
		render:   r,
		opts:     opts,
		deletes:  forms.NewDeleteFlow(forms.DefaultDeleteTTL, opts.Now),
	}
}

// Register mounts the page, form and JSON routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /posts", s.handleCreatePost)
	mux.HandleFunc("GET /posts/{id}/delete", s.handleConfirmDelete)
	mux.HandleFunc("POST /posts/{id}/delete", s.handleDeletePost)
	mux.HandleFunc("POST /profile", s.handleSaveProfile)

	mux.HandleFunc("GET /api/posts", s.handleAPIListPosts)
	mux.HandleFunc("POST /api/posts", s.handleAPICreatePost)
	mux.HandleFunc("DELETE /api/posts/{id}", s.handleAPIDeletePost)
	mux.HandleFunc("GET /api/profile", s.handleAPIProfile)

	mux.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
}

func (s *Server) currentProfile(ctx context.Context) profile.Profile {
	return s.profiles.Load(ctx, s.opts.DefaultProfile)
}

// changed journals a write and tells open pages about it. Journal failures
// are logged; the write itself already succeeded.
func (s *Server) changed(scope string, e journal.Entry) {
	if err := s.opts.Journal.Record(e); err != nil {
		s.printf("journal %s: %v", e.Action, err)
	}
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(protocol.NewChanged(scope, s.opts.Now().UnixMilli()))
	}
}

func (s *Server) printf(format string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf(format, args...)
	}
}
