// Package heroclient is a Go client for the herostore HTTP API.
//
// Besides plain request helpers it provides StagingSession, which batches
// image attach/detach edits locally and reconciles them against the server
// in one commit.
package heroclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a herostore server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a decoded error envelope from the server
type APIError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Image is one attached image as presented by the API
type Image struct {
	FileID      string    `json:"fileId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	UploadDate  time.Time `json:"uploadDate"`
	URL         string    `json:"url"`
}

// Hero is a superhero record as presented by the API
type Hero struct {
	ID                string    `json:"id"`
	Nickname          string    `json:"nickname"`
	RealName          string    `json:"real_name"`
	OriginDescription string    `json:"origin_description"`
	Superpowers       string    `json:"superpowers"`
	CatchPhrase       string    `json:"catch_phrase"`
	Images            []Image   `json:"images"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HeroPage is one page of a hero listing
type HeroPage struct {
	Superheroes []Hero `json:"superheroes"`
	Page        int    `json:"page"`
	Limit       int    `json:"limit"`
	Total       int    `json:"total"`
	TotalPages  int    `json:"totalPages"`
}

// HeroInput carries the five text fields for create and update
type HeroInput struct {
	Nickname          string `json:"nickname"`
	RealName          string `json:"real_name"`
	OriginDescription string `json:"origin_description"`
	Superpowers       string `json:"superpowers"`
	CatchPhrase       string `json:"catch_phrase"`
}

type heroEnvelope struct {
	Success bool `json:"success"`
	Hero
}

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// decodeError drains resp and turns its error envelope into an *APIError
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}
	return apiErr
}

// doJSON performs a request with an optional JSON body and decodes the
// response into out when it is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ListHeroes fetches one page of heroes
func (c *Client) ListHeroes(ctx context.Context, page, limit int) (*HeroPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/superheroes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result HeroPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetHero fetches a single hero by id
func (c *Client) GetHero(ctx context.Context, id string) (*Hero, error) {
	var envelope heroEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/superheroes/"+url.PathEscape(id), nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Hero, nil
}

// CreateHero creates a new hero
func (c *Client) CreateHero(ctx context.Context, input HeroInput) (*Hero, error) {
	var envelope heroEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/superheroes", input, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Hero, nil
}

// UpdateHero replaces the text fields of an existing hero
func (c *Client) UpdateHero(ctx context.Context, id string, input HeroInput) (*Hero, error) {
	var envelope heroEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "/superheroes/"+url.PathEscape(id), input, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Hero, nil
}

// DeleteHero deletes a hero and its images
func (c *Client) DeleteHero(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/superheroes/"+url.PathEscape(id), nil, nil)
}

// AddImage uploads an image and attaches it to the hero. The server sniffs
// the bytes and may reject the upload regardless of the filename.
func (c *Client) AddImage(ctx context.Context, heroID, filename string, data io.Reader) (*Hero, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("failed to buffer image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/superheroes/%s/images", c.baseURL, url.PathEscape(heroID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var envelope heroEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &envelope.Hero, nil
}

// RemoveImage detaches an image from the hero and deletes its blob
func (c *Client) RemoveImage(ctx context.Context, heroID, imageID string) (*Hero, error) {
	var envelope heroEnvelope
	path := fmt.Sprintf("/superheroes/%s/images/%s", url.PathEscape(heroID), url.PathEscape(imageID))
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Hero, nil
}

// DownloadImage streams an image's bytes. The caller must close the reader.
func (c *Client) DownloadImage(ctx context.Context, heroID, imageID string) (io.ReadCloser, string, error) {
	path := fmt.Sprintf("%s/superheroes/%s/images/%s", c.baseURL, url.PathEscape(heroID), url.PathEscape(imageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", decodeError(resp)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}
