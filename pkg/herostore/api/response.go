package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/tkachdev/herostore/pkg/herostore"
)

// ImageResponse is the wire representation of one attached image. URL points
// back at this API's stream endpoint, built from the incoming request's host.
type ImageResponse struct {
	FileID      string    `json:"fileId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	UploadDate  time.Time `json:"uploadDate"`
	URL         string    `json:"url"`
}

// HeroResponse is the wire representation of a hero
type HeroResponse struct {
	ID                string          `json:"id"`
	Nickname          string          `json:"nickname"`
	RealName          string          `json:"real_name"`
	OriginDescription string          `json:"origin_description"`
	Superpowers       string          `json:"superpowers"`
	CatchPhrase       string          `json:"catch_phrase"`
	Images            []ImageResponse `json:"images"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// heroEnvelope flattens a hero into a success response body
type heroEnvelope struct {
	Success bool `json:"success"`
	HeroResponse
}

// listEnvelope is the paginated list response body
type listEnvelope struct {
	Success     bool           `json:"success"`
	Superheroes []HeroResponse `json:"superheroes"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
	Total       int            `json:"total"`
	TotalPages  int            `json:"totalPages"`
}

// messageEnvelope is a success response carrying only a message
type messageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// errorBody is the error half of the response envelope
type errorBody struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// requestBaseURL reconstructs the scheme://host prefix of the request so
// image URLs point back at this server.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func toHeroResponse(hero *herostore.Hero, r *http.Request) HeroResponse {
	base := requestBaseURL(r)
	images := make([]ImageResponse, 0, len(hero.Images))
	for _, img := range hero.Images {
		images = append(images, ImageResponse{
			FileID:      img.BlobID.String(),
			Filename:    img.Filename,
			ContentType: img.ContentType,
			UploadDate:  img.UploadDate,
			URL:         fmt.Sprintf("%s/api/superheroes/%s/images/%s", base, hero.ID, img.BlobID),
		})
	}

	return HeroResponse{
		ID:                hero.ID.String(),
		Nickname:          hero.Nickname,
		RealName:          hero.RealName,
		OriginDescription: hero.OriginDescription,
		Superpowers:       hero.Superpowers,
		CatchPhrase:       hero.CatchPhrase,
		Images:            images,
		CreatedAt:         hero.CreatedAt,
		UpdatedAt:         hero.UpdatedAt,
	}
}

func renderHero(w http.ResponseWriter, r *http.Request, hero *herostore.Hero, status int) {
	render.Status(r, status)
	render.JSON(w, r, heroEnvelope{Success: true, HeroResponse: toHeroResponse(hero, r)})
}

// renderError classifies err into the 400/404/415/500 taxonomy and writes
// the error envelope. Raw internal errors are never echoed to the client.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Message: "Internal server error"}

	var validationErr *herostore.ValidationError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		body = errorBody{Message: "Validation failed", Details: validationErr.Details}
	case errors.Is(err, herostore.ErrHeroNotFound):
		status = http.StatusNotFound
		body = errorBody{Message: "Superhero not found"}
	case errors.Is(err, herostore.ErrImageNotFound):
		status = http.StatusNotFound
		body = errorBody{Message: "Image not found"}
	case errors.Is(err, herostore.ErrUnsupportedImage):
		status = http.StatusUnsupportedMediaType
		body = errorBody{Message: "Unsupported or corrupted image"}
	}

	render.Status(r, status)
	render.JSON(w, r, errorEnvelope{Success: false, Error: body})
}

// renderBadRequest writes a 400 with the given message
func renderBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorEnvelope{Success: false, Error: errorBody{Message: message}})
}
