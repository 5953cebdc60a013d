package forms

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"personalpage/internal/profile"
	"personalpage/internal/render"
)

var (
	ErrEditorClosed  = errors.New("forms: profile editor is not open")
	ErrUnknownPreset = errors.New("forms: unknown preset avatar")
)

type ProfileSaver interface {
	Save(ctx context.Context, p profile.Profile) error
}

type EditorState int

const (
	EditorClosed EditorState = iota
	EditorOpen
	EditorSubmitted
)

type CloseReason string

const (
	CloseButton  CloseReason = "button"
	CloseOverlay CloseReason = "overlay"
	CloseEscape  CloseReason = "escape"
	// CloseSaved ends a submitted editor.
	CloseSaved CloseReason = "saved"
)

// ProfileFields are the four text inputs of the editor. Age is the bare number
// as typed.
type ProfileFields struct {
	Name    string
	School  string
	Age     string
	Hobbies string
}

type ProfileEditor struct {
	locale  string
	presets []string

	state   EditorState
	opened  string
	Fields  ProfileFields
	Avatar  profile.AvatarSource
	Invalid map[string]bool
	Focus   string
	Message string
}

func NewProfileEditor(locale string, presets []string) *ProfileEditor {
	return &ProfileEditor{
		locale:  locale,
		presets: presets,
		Invalid: map[string]bool{},
	}
}

func (e *ProfileEditor) State() EditorState { return e.state }

// Open fills the editor from current. The stored age is display text
// ("52 года"), so only its number is carried into the input.
func (e *ProfileEditor) Open(current profile.Profile) {
	age := ""
	if n, ok := profile.ParseAge(current.Age); ok {
		age = strconv.Itoa(n)
	}
	e.Fields = ProfileFields{
		Name:    current.Name,
		School:  current.School,
		Age:     age,
		Hobbies: current.Hobbies,
	}
	e.opened = current.Avatar
	e.Avatar = e.avatarFor(current.Avatar)
	e.Invalid = map[string]bool{}
	e.Focus = ""
	e.Message = ""
	e.state = EditorOpen
}

func (e *ProfileEditor) avatarFor(s string) profile.AvatarSource {
	if slices.Contains(e.presets, s) {
		return profile.PresetAvatar(s)
	}
	return profile.CurrentAvatar(s)
}

// Resume carries over a choice made before a rejected submit, the value the
// modal echoed back as its pending avatar. Blank values and data URLs that
// are not images are ignored.
func (e *ProfileEditor) Resume(pending string) {
	pending = strings.TrimSpace(pending)
	if e.state != EditorOpen || pending == "" {
		return
	}
	if strings.HasPrefix(pending, "data:") && !profile.IsImageDataURL(pending) {
		return
	}
	e.Avatar = e.avatarFor(pending)
}

func (e *ProfileEditor) ChoosePreset(url string) error {
	if !slices.Contains(e.presets, url) {
		return ErrUnknownPreset
	}
	e.Avatar = profile.PresetAvatar(url)
	return nil
}

// EnterURL switches to a typed URL. Blank input leaves the current choice alone.
func (e *ProfileEditor) EnterURL(url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	e.Avatar = profile.URLAvatar(url)
}

// Upload switches to an uploaded image. Non-image files are ignored and
// leave the previous choice in place.
func (e *ProfileEditor) Upload(mime string, data []byte) error {
	a, err := profile.EmbeddedAvatar(mime, data)
	if err != nil {
		return err
	}
	e.Avatar = a
	return nil
}

// Close reports whether the editor was closed by this call. The button,
// overlay and escape reasons close an open editor; CloseSaved closes a
// submitted one. Anything else is ignored.
func (e *ProfileEditor) Close(reason CloseReason) bool {
	switch {
	case e.state == EditorOpen && (reason == CloseButton || reason == CloseOverlay || reason == CloseEscape):
	case e.state == EditorSubmitted && reason == CloseSaved:
	default:
		return false
	}
	e.state = EditorClosed
	return true
}

// Submit validates fields, formats the age and saves the profile wholesale.
// On success the editor is EditorSubmitted until Close(CloseSaved).
func (e *ProfileEditor) Submit(ctx context.Context, fields ProfileFields, saver ProfileSaver) (profile.Profile, error) {
	if e.state != EditorOpen {
		return profile.Profile{}, ErrEditorClosed
	}
	e.Fields = ProfileFields{
		Name:    strings.TrimSpace(fields.Name),
		School:  strings.TrimSpace(fields.School),
		Age:     strings.TrimSpace(fields.Age),
		Hobbies: strings.TrimSpace(fields.Hobbies),
	}
	e.Invalid = map[string]bool{}
	e.Focus = ""

	order := []struct {
		name  string
		value string
	}{
		{render.FieldName, e.Fields.Name},
		{render.FieldSchool, e.Fields.School},
		{render.FieldAge, e.Fields.Age},
		{render.FieldHobbies, e.Fields.Hobbies},
	}
	for _, f := range order {
		if f.value == "" {
			e.Invalid[f.name] = true
		}
	}
	age, err := strconv.Atoi(e.Fields.Age)
	if e.Fields.Age != "" && (err != nil || age <= 0) {
		e.Invalid[render.FieldAge] = true
	}
	if len(e.Invalid) > 0 {
		for _, f := range order {
			if e.Invalid[f.name] {
				e.Focus = f.name
				break
			}
		}
		return profile.Profile{}, ErrInvalid
	}

	p := profile.Profile{
		Name:    e.Fields.Name,
		Avatar:  strings.TrimSpace(e.Avatar.Resolve()),
		School:  e.Fields.School,
		Age:     profile.FormatAge(e.locale, age),
		Hobbies: e.Fields.Hobbies,
	}
	if err := saver.Save(ctx, p); err != nil {
		return profile.Profile{}, err
	}
	e.state = EditorSubmitted
	return p, nil
}

// View returns nil unless the editor is open.
func (e *ProfileEditor) View() *render.ProfileModalView {
	if e.state != EditorOpen {
		return nil
	}
	avatar := e.Avatar.Resolve()
	pending := ""
	if avatar != e.opened {
		pending = avatar
	}
	return &render.ProfileModalView{
		Name:       e.Fields.Name,
		School:     e.Fields.School,
		Age:        e.Fields.Age,
		Hobbies:    e.Fields.Hobbies,
		Invalid:    e.Invalid,
		Focus:      e.Focus,
		Avatar:     avatar,
		Pending:    pending,
		AvatarKind: e.Avatar.Kind.String(),
		Presets:    e.presets,
		Message:    e.Message,
	}
}
