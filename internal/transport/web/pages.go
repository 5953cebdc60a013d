package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"personalpage/internal/forms"
	"personalpage/internal/persistence/journal"
	"personalpage/internal/profile"
	"personalpage/internal/protocol"
	"personalpage/internal/render"
)

const (
	avatarSourcePreset = "preset"
	avatarSourceURL    = "url"
	avatarSourceFile   = "file"
)

type pageState struct {
	form   render.PostFormView
	modal  *render.ProfileModalView
	banner string
}

func (s *Server) renderPage(rw http.ResponseWriter, r *http.Request, status int, st pageState) {
	s.pageViews.Add(1)
	ctx := r.Context()
	current := s.currentProfile(ctx)
	if current.Avatar == "" {
		current.Avatar = s.opts.DefaultProfile.Avatar
	}
	v := render.PageView{
		Profile:     current,
		Posts:       s.posts.List(ctx),
		PostForm:    st.form,
		Modal:       st.modal,
		Banner:      st.banner,
		LiveUpdates: s.opts.LiveUpdates,
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.Header().Set("Cache-Control", "no-store")
	rw.WriteHeader(status)
	if err := s.render.Page(rw, v); err != nil {
		s.printf("render page: %v", err)
	}
}

// seeOther finishes a successful form post so a reload does not repeat it.
func seeOther(rw http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(rw, r, to, http.StatusSeeOther)
}

// handlePage serves the page. `?edit=profile` opens the profile editor;
// `?close=<reason>` is where the modal's close controls lead and renders the
// page with the editor closed.
func (s *Server) handlePage(rw http.ResponseWriter, r *http.Request) {
	var st pageState
	if r.URL.Query().Get("edit") == "profile" {
		ed := forms.NewProfileEditor(s.opts.Locale, s.opts.Presets)
		ed.Open(s.currentProfile(r.Context()))
		st.modal = ed.View()
	}
	s.renderPage(rw, r, http.StatusOK, st)
}

func (s *Server) handleCreatePost(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(rw, "bad form", http.StatusBadRequest)
		return
	}
	form := forms.NewPostForm()
	form.Input(render.FieldTitle, r.PostForm.Get(render.FieldTitle))
	form.Input(render.FieldContent, r.PostForm.Get(render.FieldContent))

	p, err := form.Submit(r.Context(), s.posts)
	switch {
	case errors.Is(err, forms.ErrInvalid):
		s.validationFailures.Add(1)
		s.renderPage(rw, r, http.StatusUnprocessableEntity, pageState{form: form.View()})
		return
	case err != nil:
		s.persistFailures.Add(1)
		s.printf("create post: %v", err)
		s.renderPage(rw, r, http.StatusServiceUnavailable, pageState{
			form:   form.View(),
			banner: s.render.Labels().StorageFailed,
		})
		return
	}
	s.postsCreated.Add(1)
	s.changed(protocol.ScopePosts, journal.Entry{Action: journal.ActionPostCreate, PostID: p.ID, Title: p.Title})
	seeOther(rw, r, "/")
}

func (s *Server) handleConfirmDelete(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, p := range s.posts.List(r.Context()) {
		if p.ID != id {
			continue
		}
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		rw.Header().Set("Cache-Control", "no-store")
		v := render.ConfirmView{Post: p, Token: s.deletes.Request(p.ID)}
		if err := s.render.ConfirmDelete(rw, v); err != nil {
			s.printf("render confirm: %v", err)
		}
		return
	}
	s.renderPage(rw, r, http.StatusNotFound, pageState{banner: s.render.Labels().PostMissing})
}

// handleDeletePost is the confirmation page's answer. Anything but
// confirm=yes is a decline. A missing, spent or expired token sends the user
// back to a fresh confirmation page.
func (s *Server) handleDeletePost(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(rw, "bad form", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	removed, err := s.deletes.Confirm(r.Context(), r.PostForm.Get("token"), id, r.PostForm.Get("confirm") == "yes", s.posts)
	if errors.Is(err, forms.ErrNotRequested) {
		seeOther(rw, r, "/posts/"+url.PathEscape(id)+"/delete")
		return
	}
	if err != nil {
		s.persistFailures.Add(1)
		s.printf("delete post %s: %v", id, err)
		s.renderPage(rw, r, http.StatusServiceUnavailable, pageState{banner: s.render.Labels().StorageFailed})
		return
	}
	if removed {
		s.postsDeleted.Add(1)
		s.changed(protocol.ScopePosts, journal.Entry{Action: journal.ActionPostDelete, PostID: id})
	}
	seeOther(rw, r, "/")
}

// errUploadTooLarge marks an avatar file over Options.MaxUploadBytes.
var errUploadTooLarge = errors.New("avatar upload too large")

// profileBodyLimit leaves room for one new file, a pending embedded avatar
// echoed back as base64, and the text fields.
func (s *Server) profileBodyLimit() int64 {
	return s.opts.MaxUploadBytes + s.opts.MaxUploadBytes*4/3 + 64<<10
}

func (s *Server) handleSaveProfile(rw http.ResponseWriter, r *http.Request) {
	ed := forms.NewProfileEditor(s.opts.Locale, s.opts.Presets)
	ed.Open(s.currentProfile(r.Context()))

	tooLarge := func() {
		ed.Message = s.render.Labels().AvatarTooLarge
		s.validationFailures.Add(1)
		s.renderPage(rw, r, http.StatusRequestEntityTooLarge, pageState{modal: ed.View()})
	}
	limit := s.profileBodyLimit()
	if r.ContentLength > limit {
		tooLarge()
		return
	}
	r.Body = http.MaxBytesReader(rw, r.Body, limit)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			tooLarge()
			return
		case errors.Is(err, http.ErrNotMultipart):
			// Plain urlencoded posts are accepted; they just cannot carry a file.
		default:
			http.Error(rw, "bad form", http.StatusBadRequest)
			return
		}
	}

	if err := s.applyAvatar(ed, r); err != nil {
		status := http.StatusUnprocessableEntity
		switch {
		case errors.Is(err, errUploadTooLarge):
			status = http.StatusRequestEntityTooLarge
			ed.Message = s.render.Labels().AvatarTooLarge
		case errors.Is(err, profile.ErrNotImage):
			ed.Message = s.render.Labels().AvatarNotImage
		default:
			ed.Message = err.Error()
		}
		s.validationFailures.Add(1)
		s.renderPage(rw, r, status, pageState{modal: ed.View()})
		return
	}

	fields := forms.ProfileFields{
		Name:    r.PostFormValue(render.FieldName),
		School:  r.PostFormValue(render.FieldSchool),
		Age:     r.PostFormValue(render.FieldAge),
		Hobbies: r.PostFormValue(render.FieldHobbies),
	}
	saved, err := ed.Submit(r.Context(), fields, s.profiles)
	switch {
	case errors.Is(err, forms.ErrInvalid):
		s.validationFailures.Add(1)
		s.renderPage(rw, r, http.StatusUnprocessableEntity, pageState{modal: ed.View()})
		return
	case err != nil:
		s.persistFailures.Add(1)
		s.printf("save profile: %v", err)
		s.renderPage(rw, r, http.StatusServiceUnavailable, pageState{
			modal:  ed.View(),
			banner: s.render.Labels().StorageFailed,
		})
		return
	}
	ed.Close(forms.CloseSaved)
	s.profileSaves.Add(1)
	s.changed(protocol.ScopeProfile, journal.Entry{
		Action: journal.ActionProfileSave,
		Title:  saved.Name,
		Detail: "avatar=" + ed.Avatar.Kind.String(),
	})
	seeOther(rw, r, "/")
}

// applyAvatar feeds the submitted avatar inputs to the editor. A pending
// avatar echoed back from a rejected submit is the starting point. Then
// avatar_last names the control the user touched last; without it the inputs
// are applied in page order so a file beats a URL beats a preset.
func (s *Server) applyAvatar(ed *forms.ProfileEditor, r *http.Request) error {
	ed.Resume(r.PostFormValue("avatar_pending"))

	apply := func(source string) error {
		switch source {
		case avatarSourcePreset:
			// Values outside the configured presets keep the current avatar.
			if v := strings.TrimSpace(r.PostFormValue("avatar_preset")); v != "" {
				_ = ed.ChoosePreset(v)
			}
		case avatarSourceURL:
			ed.EnterURL(r.PostFormValue("avatar_url"))
		case avatarSourceFile:
			if r.MultipartForm == nil {
				return nil
			}
			f, hdr, err := r.FormFile("avatar_file")
			if err != nil {
				return nil
			}
			defer f.Close()
			if hdr.Size > s.opts.MaxUploadBytes {
				return errUploadTooLarge
			}
			data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
			if err != nil || len(data) == 0 {
				return nil
			}
			if int64(len(data)) > s.opts.MaxUploadBytes {
				return errUploadTooLarge
			}
			return ed.Upload(hdr.Header.Get("Content-Type"), data)
		}
		return nil
	}

	if last := r.PostFormValue("avatar_last"); last != "" {
		return apply(last)
	}
	for _, src := range []string{avatarSourcePreset, avatarSourceURL, avatarSourceFile} {
		if err := apply(src); err != nil {
			return err
		}
	}
	return nil
}
