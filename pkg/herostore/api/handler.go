package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tkachdev/herostore/pkg/herostore"
)

// multipartOverhead is slack on top of MaxImageSize for field boundaries
// and headers when capping the request body.
const multipartOverhead = 64 << 10

// HeroHandler handles HTTP requests for heroes and their images
type HeroHandler struct {
	service herostore.Service
}

// NewHeroHandler creates a new hero handler
func NewHeroHandler(service herostore.Service) *HeroHandler {
	return &HeroHandler{service: service}
}

// Routes returns the routes for heroes, intended to be mounted at
// /api/superheroes.
func (h *HeroHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListHeroes)
	r.Post("/", h.CreateHero)
	r.Get("/{id}", h.GetHero)
	r.Put("/{id}", h.UpdateHero)
	r.Delete("/{id}", h.DeleteHero)

	r.Post("/{id}/images", h.UploadImage)
	r.Get("/{id}/images/{imageID}", h.StreamImage)
	r.Delete("/{id}/images/{imageID}", h.RemoveImage)

	return r
}

// parseHeroID parses the id URL parameter. A syntactically invalid id is
// indistinguishable from a missing hero at the API boundary, so it maps to
// ErrHeroNotFound rather than a 400.
func parseHeroID(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, herostore.ErrHeroNotFound
	}
	return id, nil
}

func parseImageID(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "imageID")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, herostore.ErrImageNotFound
	}
	return id, nil
}

// ListHeroes returns one page of heroes, newest first
func (h *HeroHandler) ListHeroes(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.service.ListHeroes(r.Context(), page, limit)
	if err != nil {
		slog.Error("Failed to list heroes", "error", err)
		renderError(w, r, err)
		return
	}

	heroes := make([]HeroResponse, 0, len(result.Heroes))
	for _, hero := range result.Heroes {
		heroes = append(heroes, toHeroResponse(hero, r))
	}

	render.JSON(w, r, listEnvelope{
		Success:     true,
		Superheroes: heroes,
		Page:        result.Page,
		Limit:       result.Limit,
		Total:       result.Total,
		TotalPages:  result.TotalPages,
	})
}

// GetHero retrieves a hero by ID
func (h *HeroHandler) GetHero(w http.ResponseWriter, r *http.Request) {
	id, err := parseHeroID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	hero, err := h.service.GetHero(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get hero", "hero_id", id.String(), "error", err)
		renderError(w, r, err)
		return
	}

	renderHero(w, r, hero, http.StatusOK)
}

// CreateHero creates a new hero
func (h *HeroHandler) CreateHero(w http.ResponseWriter, r *http.Request) {
	var req herostore.CreateHeroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "Invalid request body")
		return
	}

	hero, err := h.service.CreateHero(r.Context(), req)
	if err != nil {
		slog.Error("Failed to create hero", "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Hero created", "hero_id", hero.ID.String())
	renderHero(w, r, hero, http.StatusCreated)
}

// UpdateHero replaces the text fields of an existing hero
func (h *HeroHandler) UpdateHero(w http.ResponseWriter, r *http.Request) {
	id, err := parseHeroID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req herostore.UpdateHeroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "Invalid request body")
		return
	}

	hero, err := h.service.UpdateHero(r.Context(), id, req)
	if err != nil {
		slog.Error("Failed to update hero", "hero_id", id.String(), "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Hero updated", "hero_id", id.String())
	renderHero(w, r, hero, http.StatusOK)
}

// DeleteHero deletes a hero and its image blobs
func (h *HeroHandler) DeleteHero(w http.ResponseWriter, r *http.Request) {
	id, err := parseHeroID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.service.DeleteHero(r.Context(), id); err != nil {
		slog.Error("Failed to delete hero", "hero_id", id.String(), "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Hero deleted", "hero_id", id.String())
	render.JSON(w, r, messageEnvelope{Success: true, Message: "Superhero deleted successfully"})
}

// UploadImage accepts a multipart upload (field name "image"), validates it
// against the image allow-list by sniffing the actual bytes, and attaches it
// to the hero.
func (h *HeroHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseHeroID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, herostore.MaxImageSize+multipartOverhead)

	file, header, err := r.FormFile("image")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			renderBadRequest(w, r, "Image exceeds the 5 MiB limit")
			return
		}
		renderBadRequest(w, r, "No image provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, herostore.MaxImageSize+1))
	if err != nil {
		renderBadRequest(w, r, "Failed to read image")
		return
	}
	if len(data) > herostore.MaxImageSize {
		renderBadRequest(w, r, "Image exceeds the 5 MiB limit")
		return
	}

	// The sniffed type is authoritative; the declared Content-Type header is
	// only advisory and never stored.
	mimeType, ext, err := herostore.DetectImageType(data)
	if err != nil {
		slog.Warn("Rejected image upload", "hero_id", id.String(), "error", err)
		renderError(w, r, err)
		return
	}
	filename := herostore.SanitizeFilename(header.Filename, ext)

	slog.Info("Image upload",
		"hero_id", id.String(),
		"filename", filename,
		"detected", mimeType,
		"size", len(data))

	hero, err := h.service.AddImage(r.Context(), id, bytes.NewReader(data), filename, mimeType)
	if err != nil {
		slog.Error("Failed to add image", "hero_id", id.String(), "error", err)
		renderError(w, r, err)
		return
	}

	renderHero(w, r, hero, http.StatusOK)
}

// StreamImage relays the stored image bytes with the metadata captured at
// upload time. The blob is streamed, not buffered.
func (h *HeroHandler) StreamImage(w http.ResponseWriter, r *http.Request) {
	imageID, err := parseImageID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	download, err := h.service.GetImageStream(r.Context(), imageID)
	if err != nil {
		slog.Error("Failed to stream image", "image_id", imageID.String(), "error", err)
		renderError(w, r, err)
		return
	}
	defer download.Body.Close()

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(download.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", download.Filename))

	if _, err := io.Copy(w, download.Body); err != nil {
		slog.Warn("Image stream interrupted", "image_id", imageID.String(), "error", err)
	}
}

// RemoveImage detaches an image from a hero and deletes its blob
func (h *HeroHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseHeroID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	imageID, err := parseImageID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	hero, err := h.service.RemoveImage(r.Context(), id, imageID)
	if err != nil {
		slog.Error("Failed to remove image", "hero_id", id.String(), "image_id", imageID.String(), "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Image removed", "hero_id", id.String(), "image_id", imageID.String())
	renderHero(w, r, hero, http.StatusOK)
}
