package model

import "time"

// Kind is the closed set of content types a story item can carry.
type Kind int

const (
	KindText Kind = iota
	KindPhoto
	KindVideo
	KindVoice
	KindVideoNote
	KindDocument
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindVoice:
		return "voice"
	case KindVideoNote:
		return "video_note"
	case KindDocument:
		return "document"
	case KindAudio:
		return "audio"
	}
	return "unknown"
}

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{KindText, KindPhoto, KindVideo, KindVoice, KindVideoNote, KindDocument, KindAudio}

// SourceRef points at the original chat message so it can be re-emitted.
type SourceRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Metadata holds kind-dependent fields; unused fields stay zero.
type Metadata struct {
	Text     string        `json:"text,omitempty"`     // Text
	Caption  string        `json:"caption,omitempty"`  // Photo, Video, Document
	Duration time.Duration `json:"duration,omitempty"` // Voice, Video, VideoNote, Audio
	FileName string        `json:"file_name,omitempty"`
	Title    string        `json:"title,omitempty"` // Audio
}

type ContentItem struct {
	Kind   Kind      `json:"kind"`
	Source SourceRef `json:"source"`
	Meta   Metadata  `json:"meta"`
}

type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Source    SourceRef `json:"source"`
}

type Draft struct {
	OwnerID     int64         `json:"owner_id"`
	DisplayName string        `json:"display_name"`
	Handle      string        `json:"handle"`
	Items       []ContentItem `json:"items"`
	Location    *Location     `json:"location,omitempty"`
	Phase       Phase         `json:"phase"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Clone returns a copy that shares no mutable state with d.
func (d *Draft) Clone() Draft {
	c := *d
	c.Items = append([]ContentItem(nil), d.Items...)
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	return c
}

// Owner identifies the user a story belongs to.
type Owner struct {
	ID          int64
	DisplayName string
	Handle      string
}

// Visibility decides whether identity fields reach the archive.
type Visibility int

const (
	Attributed Visibility = iota
	Anonymous
)

func (v Visibility) String() string {
	if v == Anonymous {
		return "anonymous"
	}
	return "attributed"
}

// DispatchEvent describes the outcome of one archive publication.
type DispatchEvent struct {
	StoryID    string    `json:"story_id"`
	OwnerID    int64     `json:"owner_id,omitempty"` // zero for anonymous stories
	Visibility string    `json:"visibility"`
	Status     string    `json:"status"`
	Items      int       `json:"items"`
	Emitted    int       `json:"emitted"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`
}

const (
	StatusPublished = "published"
	StatusFailed    = "failed"
)
