package types

import (
	"strconv"
	"time"
)

// Kind distinguishes the clipboard payload variants.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ImageRef describes image bytes persisted outside the history store.
// Hash is supplied by whoever captured the image; Ref is an opaque handle
// understood only by the image storage that produced it.
type ImageRef struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Hash   string `json:"hash"`
	Ref    string `json:"ref"`
}

// Payload is a freshly observed clipboard value before it becomes an Entry.
type Payload struct {
	Kind  Kind
	Text  string
	Image *ImageRef
}

// TextPayload builds a text payload.
func TextPayload(text string) Payload {
	return Payload{Kind: KindText, Text: text}
}

// ImagePayload builds an image payload.
func ImagePayload(img ImageRef) Payload {
	return Payload{Kind: KindImage, Image: &img}
}

// Entry is one clipboard history item.
type Entry struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Text       string    `json:"text,omitempty"`
	Image      *ImageRef `json:"image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	UseCount   int       `json:"use_count"`
	Pinned     bool      `json:"pinned"`
}

// Payload returns the captured value of the entry.
func (e Entry) Payload() Payload {
	p := Payload{Kind: e.Kind, Text: e.Text}
	if e.Image != nil {
		img := *e.Image
		p.Image = &img
	}
	return p
}

// Preview returns a short single-line description suitable for list rows.
func (e Entry) Preview(width int) string {
	if e.Kind == KindImage {
		if e.Image == nil {
			return "[image]"
		}
		return "[image " + strconv.Itoa(e.Image.Width) + "x" + strconv.Itoa(e.Image.Height) + "]"
	}
	s := e.Text
	for i, r := range s {
		if r == '\n' || r == '\r' {
			s = s[:i] + " …"
			break
		}
	}
	if width > 3 && len([]rune(s)) > width {
		return string([]rune(s)[:width-3]) + "..."
	}
	return s
}

