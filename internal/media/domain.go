package media

import (
	"regexp"
	"time"
)

// Type is the kind of a media item.
type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

// Valid reports whether t is a known media type.
func (t Type) Valid() bool {
	return t == TypeImage || t == TypeVideo
}

// Item is a gallery entry pointing at an image or video URL.
type Item struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	URL        string    `json:"url"`
	Caption    string    `json:"caption,omitempty"`
	UploaderID string    `json:"uploaderId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewItem holds the values stored for a new media item.
type NewItem struct {
	Type       Type
	URL        string
	Caption    string
	UploaderID string
}

// ListQuery selects a page of media. Cursor is the id of the last item of
// the previous page.
type ListQuery struct {
	Type   Type
	Limit  int
	Cursor string
}

// Page is one cursor-delimited page of media.
type Page struct {
	Items      []Item  `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

const (
	DefaultLimit = 12
	MaxLimit     = 50
	MaxCaption   = 300
)

var (
	videoExt = regexp.MustCompile(`(?i)\.(mp4|webm|mov|m4v|avi)(\?|$)`)
	imageExt = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp|avif|svg)(\?|$)`)
)

// extensionMismatch reports whether url's extension contradicts t.
func extensionMismatch(t Type, url string) bool {
	switch t {
	case TypeImage:
		return videoExt.MatchString(url)
	case TypeVideo:
		return imageExt.MatchString(url)
	}
	return false
}
