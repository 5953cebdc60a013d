// Package forms holds the page's interaction flows as plain state machines:
// creating a post, editing the profile, and confirming a delete. Handlers feed
// them user events; the render package draws their state.
package forms

import (
	"context"
	"errors"
	"strings"

	"personalpage/internal/posts"
	"personalpage/internal/render"
)

// ErrInvalid means at least one required field was blank; nothing was persisted.
var ErrInvalid = errors.New("forms: required fields missing")

type PostCreator interface {
	Create(ctx context.Context, title, content string) (posts.Post, error)
}

type PostFormState int

const (
	PostIdle PostFormState = iota
	PostInvalid
	PostSubmitted
)

type PostForm struct {
	State   PostFormState
	Title   string
	Content string
	Invalid map[string]bool
	Focus   string
}

func NewPostForm() *PostForm {
	return &PostForm{Invalid: map[string]bool{}}
}

// Input records typing into a field. A field stops being flagged once it holds
// something other than whitespace.
func (f *PostForm) Input(field, value string) {
	switch field {
	case render.FieldTitle:
		f.Title = value
	case render.FieldContent:
		f.Content = value
	default:
		return
	}
	if strings.TrimSpace(value) != "" {
		delete(f.Invalid, field)
	}
}

// Submit validates the current values and, when both are present, creates the
// post. Focus moves to the first blank field, title before content.
func (f *PostForm) Submit(ctx context.Context, creator PostCreator) (posts.Post, error) {
	title := strings.TrimSpace(f.Title)
	content := strings.TrimSpace(f.Content)

	f.Invalid = map[string]bool{}
	f.Focus = ""
	if title == "" {
		f.Invalid[render.FieldTitle] = true
	}
	if content == "" {
		f.Invalid[render.FieldContent] = true
	}
	if len(f.Invalid) > 0 {
		f.State = PostInvalid
		if f.Invalid[render.FieldTitle] {
			f.Focus = render.FieldTitle
		} else {
			f.Focus = render.FieldContent
		}
		return posts.Post{}, ErrInvalid
	}

	p, err := creator.Create(ctx, title, content)
	if err != nil {
		f.State = PostIdle
		return posts.Post{}, err
	}
	f.State = PostSubmitted
	f.Title = ""
	f.Content = ""
	return p, nil
}

func (f *PostForm) View() render.PostFormView {
	return render.PostFormView{
		Title:   f.Title,
		Content: f.Content,
		Invalid: f.Invalid,
		Focus:   f.Focus,
	}
}
