package profile

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

type AvatarKind int

const (
	AvatarUnset AvatarKind = iota
	AvatarPreset
	AvatarURL
	AvatarEmbedded
)

func (k AvatarKind) String() string {
	switch k {
	case AvatarPreset:
		return "preset"
	case AvatarURL:
		return "url"
	case AvatarEmbedded:
		return "file"
	default:
		return "unset"
	}
}

var ErrNotImage = errors.New("avatar: file is not an image")

// AvatarSource is the avatar the editor currently holds. Exactly one variant is
// active; whichever the user touched last replaces the previous one.
type AvatarSource struct {
	Kind AvatarKind
	// Ref is the preset or typed URL.
	Ref  string
	MIME string
	Data []byte
}

func PresetAvatar(url string) AvatarSource {
	return AvatarSource{Kind: AvatarPreset, Ref: url}
}

func URLAvatar(url string) AvatarSource {
	return AvatarSource{Kind: AvatarURL, Ref: strings.TrimSpace(url)}
}

// EmbeddedAvatar wraps uploaded image bytes. An empty mime is sniffed.
func EmbeddedAvatar(mime string, data []byte) (AvatarSource, error) {
	mime = strings.TrimSpace(strings.ToLower(mime))
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if len(data) == 0 || !strings.HasPrefix(mime, "image/") {
		return AvatarSource{}, ErrNotImage
	}
	return AvatarSource{Kind: AvatarEmbedded, MIME: mime, Data: data}, nil
}

// CurrentAvatar wraps whatever string is already stored.
func CurrentAvatar(s string) AvatarSource {
	if s == "" {
		return AvatarSource{}
	}
	if IsImageDataURL(s) {
		return AvatarSource{Kind: AvatarEmbedded, Ref: s}
	}
	return AvatarSource{Kind: AvatarURL, Ref: s}
}

// Resolve returns the string stored in Profile.Avatar.
func (a AvatarSource) Resolve() string {
	switch a.Kind {
	case AvatarPreset, AvatarURL:
		return a.Ref
	case AvatarEmbedded:
		if len(a.Data) == 0 {
			return a.Ref
		}
		return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
	default:
		return ""
	}
}

// IsImageDataURL reports whether s is a base64 image data URL.
func IsImageDataURL(s string) bool {
	if !strings.HasPrefix(s, "data:image/") {
		return false
	}
	i := strings.Index(s, ";base64,")
	if i < 0 {
		return false
	}
	mime := s[len("data:"):i]
	return !strings.ContainsAny(mime, " \"'<>")
}
