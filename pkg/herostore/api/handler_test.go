package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkachdev/herostore/pkg/herostore"
	"github.com/tkachdev/herostore/pkg/herostore/api"
	"github.com/tkachdev/herostore/pkg/herostore/repo/memory"
	memorystorage "github.com/tkachdev/herostore/pkg/herostore/storage/memory"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc, err := herostore.New(
		herostore.WithRepository(memory.New()),
		herostore.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Mount("/superheroes", api.NewHeroHandler(svc).Routes())
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

type heroBody struct {
	Success           bool   `json:"success"`
	ID                string `json:"id"`
	Nickname          string `json:"nickname"`
	RealName          string `json:"real_name"`
	OriginDescription string `json:"origin_description"`
	Superpowers       string `json:"superpowers"`
	CatchPhrase       string `json:"catch_phrase"`
	Images            []struct {
		FileID      string `json:"fileId"`
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
		URL         string `json:"url"`
	} `json:"images"`
}

type errorResponse struct {
	Success bool `json:"success"`
	Error   struct {
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createHero(t *testing.T, server *httptest.Server, nickname string) heroBody {
	t.Helper()

	payload := fmt.Sprintf(`{
		"nickname": %q,
		"real_name": "Clark Kent",
		"origin_description": "Born on Krypton",
		"superpowers": "flight, strength",
		"catch_phrase": "Up, up and away!"
	}`, nickname)

	resp, err := http.Post(server.URL+"/api/superheroes", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var hero heroBody
	decodeBody(t, resp, &hero)
	return hero
}

func uploadImage(t *testing.T, server *httptest.Server, heroID, filename string, data []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/superheroes/"+heroID+"/images", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestCreateHeroEndpoint(t *testing.T) {
	server := newTestServer(t)

	hero := createHero(t, server, "Superman")
	assert.True(t, hero.Success)
	assert.NotEmpty(t, hero.ID)
	assert.Equal(t, "Superman", hero.Nickname)
	assert.Equal(t, "Clark Kent", hero.RealName)
	assert.NotNil(t, hero.Images)
	assert.Empty(t, hero.Images)
}

func TestCreateHeroValidationEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/superheroes", "application/json",
		strings.NewReader(`{"nickname": "  ", "superpowers": "flight"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.False(t, body.Success)
	assert.Equal(t, "Validation failed", body.Error.Message)
	assert.Contains(t, body.Error.Details, "Nickname is required")
	assert.Contains(t, body.Error.Details, "Catch phrase is required")
}

func TestCreateHeroInvalidBody(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/superheroes", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "Invalid request body", body.Error.Message)
}

func TestGetHeroNotFound(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		id   string
	}{
		{name: "unknown uuid", id: "b3b469aa-0000-0000-0000-000000000000"},
		// A malformed id behaves like a missing hero, not a bad request
		{name: "malformed id", id: "not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + "/api/superheroes/" + tt.id)
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			var body errorResponse
			decodeBody(t, resp, &body)
			assert.False(t, body.Success)
			assert.Equal(t, "Superhero not found", body.Error.Message)
		})
	}
}

func TestUpdateHeroEndpoint(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Superman")

	payload := `{
		"nickname": "Batman",
		"real_name": "Bruce Wayne",
		"origin_description": "Gotham orphan",
		"superpowers": "money",
		"catch_phrase": "I am the night"
	}`
	req, err := http.NewRequest(http.MethodPut, server.URL+"/api/superheroes/"+hero.ID, strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated heroBody
	decodeBody(t, resp, &updated)
	assert.Equal(t, hero.ID, updated.ID)
	assert.Equal(t, "Batman", updated.Nickname)
}

func TestListHeroesEndpoint(t *testing.T) {
	server := newTestServer(t)
	for i := 0; i < 7; i++ {
		createHero(t, server, fmt.Sprintf("Hero %d", i))
	}

	resp, err := http.Get(server.URL + "/api/superheroes?page=2&limit=5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success     bool       `json:"success"`
		Superheroes []heroBody `json:"superheroes"`
		Page        int        `json:"page"`
		Limit       int        `json:"limit"`
		Total       int        `json:"total"`
		TotalPages  int        `json:"totalPages"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Len(t, body.Superheroes, 2)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 5, body.Limit)
	assert.Equal(t, 7, body.Total)
	assert.Equal(t, 2, body.TotalPages)
}

func TestUploadImageEndpoint(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Storm")

	resp := uploadImage(t, server, hero.ID, "portrait.jpeg", pngBytes)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated heroBody
	decodeBody(t, resp, &updated)
	require.Len(t, updated.Images, 1)
	// Sniffed type wins over whatever the filename claims
	assert.Equal(t, "image/png", updated.Images[0].ContentType)
	assert.Equal(t, "portrait.png", updated.Images[0].Filename)
	assert.Equal(t,
		fmt.Sprintf("%s/api/superheroes/%s/images/%s", server.URL, hero.ID, updated.Images[0].FileID),
		updated.Images[0].URL)
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Storm")

	resp := uploadImage(t, server, hero.ID, "notes.txt", []byte("just some text"))
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "Unsupported or corrupted image", body.Error.Message)
}

func TestUploadImageMissingFile(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Storm")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("something", "else"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/superheroes/"+hero.ID+"/images", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "No image provided", body.Error.Message)
}

func TestUploadImageTooLarge(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Storm")

	big := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A},
		bytes.Repeat([]byte{0}, herostore.MaxImageSize)...)
	resp := uploadImage(t, server, hero.ID, "huge.png", big)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "Image exceeds the 5 MiB limit", body.Error.Message)
}

func TestStreamImageEndpoint(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Storm")

	uploaded := uploadImage(t, server, hero.ID, "portrait.png", pngBytes)
	require.Equal(t, http.StatusOK, uploaded.StatusCode)
	var withImage heroBody
	decodeBody(t, uploaded, &withImage)
	require.Len(t, withImage.Images, 1)

	resp, err := http.Get(withImage.Images[0].URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, fmt.Sprintf("%d", len(pngBytes)), resp.Header.Get("Content-Length"))
	assert.Equal(t, `inline; filename="portrait.png"`, resp.Header.Get("Content-Disposition"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestStreamImageNotFound(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Storm")

	resp, err := http.Get(server.URL + "/api/superheroes/" + hero.ID + "/images/not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "Image not found", body.Error.Message)
}

func TestRemoveImageEndpoint(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Storm")

	uploaded := uploadImage(t, server, hero.ID, "portrait.png", pngBytes)
	require.Equal(t, http.StatusOK, uploaded.StatusCode)
	var withImage heroBody
	decodeBody(t, uploaded, &withImage)
	require.Len(t, withImage.Images, 1)
	imageURL := withImage.Images[0].URL

	req, err := http.NewRequest(http.MethodDelete,
		server.URL+"/api/superheroes/"+hero.ID+"/images/"+withImage.Images[0].FileID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated heroBody
	decodeBody(t, resp, &updated)
	assert.Empty(t, updated.Images)

	// The blob is gone with the ref
	streamResp, err := http.Get(imageURL)
	require.NoError(t, err)
	streamResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, streamResp.StatusCode)
}

func TestDeleteHeroEndpoint(t *testing.T) {
	server := newTestServer(t)
	hero := createHero(t, server, "Storm")

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/superheroes/"+hero.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "Superhero deleted successfully", body.Message)

	getResp, err := http.Get(server.URL + "/api/superheroes/" + hero.ID)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}
