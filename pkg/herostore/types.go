package herostore

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Hero is a superhero record together with its attached image references.
// The five text fields are required and stored whitespace-trimmed.
type Hero struct {
	ID                uuid.UUID  `json:"id"`
	Nickname          string     `json:"nickname"`
	RealName          string     `json:"real_name"`
	OriginDescription string     `json:"origin_description"`
	Superpowers       string     `json:"superpowers"`
	CatchPhrase       string     `json:"catch_phrase"`
	Images            []ImageRef `json:"images"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ImageRef links a hero record to one blob in storage. Refs are created and
// destroyed only through the Service; they are never edited in place.
type ImageRef struct {
	BlobID      uuid.UUID `json:"fileId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	UploadDate  time.Time `json:"uploadDate"`
}

// HeroPage is one page of a hero listing, newest first.
type HeroPage struct {
	Heroes     []*Hero `json:"superheroes"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int     `json:"total"`
	TotalPages int     `json:"totalPages"`
}

// ImageDownload carries a single-pass byte stream plus the metadata a caller
// needs to relay it verbatim. The caller owns Body and must close it.
type ImageDownload struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64
}
