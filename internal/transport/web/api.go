package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"personalpage/internal/forms"
	"personalpage/internal/persistence/journal"
	"personalpage/internal/posts"
	"personalpage/internal/protocol"
	"personalpage/internal/render"
)

const maxAPIBody = 256 << 10

func WriteJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func WriteError(rw http.ResponseWriter, status int, code, msg string) {
	WriteJSON(rw, status, protocol.ErrorBody{Code: code, Message: msg})
}

// handleAPIListPosts returns the posts newest first. It never fails; an
// unreadable store reads as no posts.
func (s *Server) handleAPIListPosts(rw http.ResponseWriter, r *http.Request) {
	list := posts.SortNewestFirst(s.posts.List(r.Context()))
	if list == nil {
		list = []posts.Post{}
	}
	WriteJSON(rw, http.StatusOK, list)
}

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleAPICreatePost(rw http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxAPIBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "invalid json body")
		return
	}
	form := forms.NewPostForm()
	form.Input(render.FieldTitle, req.Title)
	form.Input(render.FieldContent, req.Content)
	p, err := form.Submit(r.Context(), s.posts)
	switch {
	case errors.Is(err, forms.ErrInvalid):
		s.validationFailures.Add(1)
		WriteJSON(rw, http.StatusUnprocessableEntity, struct {
			protocol.ErrorBody
			Fields []string `json:"fields"`
		}{
			ErrorBody: protocol.ErrorBody{Code: protocol.ErrValidation, Message: "title and content are required"},
			Fields:    invalidFields(form.Invalid),
		})
		return
	case err != nil:
		s.persistFailures.Add(1)
		s.printf("api create post: %v", err)
		WriteError(rw, http.StatusServiceUnavailable, protocol.ErrStorage, "storage unavailable")
		return
	}
	s.postsCreated.Add(1)
	s.changed(protocol.ScopePosts, journal.Entry{Action: journal.ActionPostCreate, PostID: p.ID, Title: p.Title})
	WriteJSON(rw, http.StatusCreated, p)
}

// handleAPIDeletePost requires ?confirm=yes, the API's form of the page's
// confirmation step.
func (s *Server) handleAPIDeletePost(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if r.URL.Query().Get("confirm") != "yes" {
		WriteError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "delete requires confirm=yes")
		return
	}
	removed, err := s.posts.DeleteByID(r.Context(), id)
	if err != nil {
		s.persistFailures.Add(1)
		s.printf("api delete post %s: %v", id, err)
		WriteError(rw, http.StatusServiceUnavailable, protocol.ErrStorage, "storage unavailable")
		return
	}
	if !removed {
		WriteError(rw, http.StatusNotFound, protocol.ErrNotFound, "no post with that id")
		return
	}
	s.postsDeleted.Add(1)
	s.changed(protocol.ScopePosts, journal.Entry{Action: journal.ActionPostDelete, PostID: id})
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIProfile(rw http.ResponseWriter, r *http.Request) {
	WriteJSON(rw, http.StatusOK, s.currentProfile(r.Context()))
}

func invalidFields(m map[string]bool) []string {
	var out []string
	for _, f := range []string{render.FieldTitle, render.FieldContent} {
		if m[f] {
			out = append(out, f)
		}
	}
	return out
}
