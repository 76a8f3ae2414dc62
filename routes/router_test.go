package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/config"
	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/gateway/memory"
	"github.com/cppla/discourse/middleware"
	"github.com/cppla/discourse/models"
)

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	AuthError string          `json:"auth_error"`
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	gw     *memory.Gateway
	board  *board.Board
}

type client struct {
	s     *server
	token string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gw := memory.New()
	b := board.New(gw)
	cfg := config.AppConfig{GinMode: "test", GatewayDriver: config.DriverMemory, MaxUploadMB: 1, AllowedOrigins: []string{"*"}}
	engine := SetupRouter(Deps{
		Config:  cfg,
		Gateway: gw,
		Board:   b,
		Boot:    board.NewBootstrapper(gw, nil),
		Drafts:  board.NewDraftStore(nil, 0),
		Prefs:   board.NewPreferenceStore(nil),
	})
	return &server{t: t, engine: engine, gw: gw, board: b}
}

// client signs in through the API and keeps the issued token.
func (s *server) client() *client {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	require.Equal(s.t, http.StatusOK, w.Code)
	token := w.Header().Get(middleware.TokenHeader)
	require.NotEmpty(s.t, token)
	return &client{s: s, token: token}
}

func (c *client) send(req *http.Request) (int, envelope) {
	c.s.t.Helper()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.s.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(c.s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (c *client) do(method, path string, body interface{}) (int, envelope) {
	c.s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *client) upload(path, filename string, data []byte) (int, envelope) {
	c.s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(c.s.t, err)
	_, err = fw.Write(data)
	require.NoError(c.s.t, err)
	require.NoError(c.s.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

func into[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type draftData struct {
	ID         string   `json:"id"`
	Step       int      `json:"step"`
	Category   string   `json:"category"`
	TagList    []string `json:"tag_list"`
	CanAdvance bool     `json:"can_advance"`
	CanSubmit  bool     `json:"can_submit"`
	Image      *struct {
		Filename string `json:"filename"`
		Size     string `json:"size"`
	} `json:"image"`
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

// createPost walks the three creation steps and returns the new post.
func (c *client) createPost(title, category, tags, content string, image bool) models.Post {
	t := c.s.t
	t.Helper()
	code, env := c.do(http.MethodPost, "/api/v1/drafts", nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	d := into[draftData](t, env)
	assert.Equal(t, 1, d.Step)
	assert.Equal(t, board.DefaultCategory, d.Category)
	base := "/api/v1/drafts/" + d.ID

	code, env = c.do(http.MethodPatch, base, map[string]string{"title": title, "category": category, "tags": tags})
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = c.do(http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = c.do(http.MethodPatch, base, map[string]string{"content": content})
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, code)

	if image {
		code, env = c.upload(base+"/image", "photo.PNG", pngHeader)
		require.Equal(t, http.StatusOK, code, env.Message)
		d = into[draftData](t, env)
		require.NotNil(t, d.Image)
		assert.Equal(t, "12 B", d.Image.Size)
	}

	code, env = c.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	created := into[struct {
		Post models.Post `json:"post"`
	}](t, env).Post

	code, _ = c.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
	return created
}

func TestCreateListAndRead(t *testing.T) {
	s := newServer(t)
	c := s.client()
	post := c.createPost("Lab partners", "Physics", " PHYS101 , ,labs ", "<b>Who</b> wants to pair up?", true)
	assert.Equal(t, models.TagList{"PHYS101", "labs"}, post.Tags)
	assert.Empty(t, post.SecretKey)
	require.NotNil(t, post.ImageURL)
	assert.True(t, strings.HasSuffix(*post.ImageURL, ".png"))
	assert.Equal(t, "<b>Who</b> wants to pair up?", post.Content)
	c.createPost("Essay help", "English", "", "Thesis review", false)

	type listData struct {
		Items []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Excerpt   string `json:"excerpt"`
			SecretKey string `json:"secret_key"`
		} `json:"items"`
		Empty      bool   `json:"empty"`
		EmptyState string `json:"empty_state"`
	}

	code, env := c.do(http.MethodGet, "/api/v1/posts?category=Physics", nil)
	require.Equal(t, http.StatusOK, code)
	list := into[listData](t, env)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Lab partners", list.Items[0].Title)
	assert.Empty(t, list.Items[0].SecretKey)

	code, env = c.do(http.MethodGet, "/api/v1/posts?search=labs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, into[listData](t, env).Items, 1)

	code, env = c.do(http.MethodGet, "/api/v1/posts?category=Music", nil)
	require.Equal(t, http.StatusOK, code)
	list = into[listData](t, env)
	assert.True(t, list.Empty)
	assert.Equal(t, board.MsgNoPosts, list.EmptyState)

	code, _ = c.do(http.MethodGet, "/api/v1/posts?category=Astrology", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = c.do(http.MethodGet, "/api/v1/posts?sort=hot", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodGet, "/api/v1/posts/"+post.ID, nil)
	require.Equal(t, http.StatusOK, code)
	snap := into[board.PostSnapshot](t, env)
	assert.Equal(t, "Lab partners", snap.Post.Title)
	assert.True(t, snap.CanEdit)
	s.board.Wait()
	stored, err := s.gw.SelectPosts(context.Background(), gateway.Select().Eq("id", post.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored[0].Views)

	code, _ = c.do(http.MethodGet, "/api/v1/posts/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestVoteCommentEditDelete(t *testing.T) {
	s := newServer(t)
	owner := s.client()
	other := s.client()
	post := owner.createPost("Exam date", "Biology", "", "When is the midterm?", false)
	base := "/api/v1/posts/" + post.ID

	code, env := other.do(http.MethodPost, base+"/vote", map[string]int{"delta": 1})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.EqualValues(t, 1, into[map[string]interface{}](t, env)["upvotes"])
	code, env = other.do(http.MethodPost, base+"/vote", map[string]int{"delta": -1})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, into[map[string]interface{}](t, env)["upvotes"])
	code, _ = other.do(http.MethodPost, base+"/vote", map[string]int{"delta": 5})
	assert.Equal(t, http.StatusBadRequest, code)

	ops := []string{"SelectPosts", "SelectComments", "InsertComments"}
	before := lo.Map(ops, func(op string, _ int) int { return s.gw.CallCount(op) })
	code, env = other.do(http.MethodPost, base+"/comments", map[string]string{"content": " \t\n "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40013, env.Code)
	assert.Equal(t, before, lo.Map(ops, func(op string, _ int) int { return s.gw.CallCount(op) }))
	code, env = other.do(http.MethodPost, base+"/comments", map[string]string{"content": "Next Friday"})
	require.Equal(t, http.StatusOK, code)
	comments := into[struct {
		Comments []models.Comment `json:"comments"`
	}](t, env).Comments
	require.Len(t, comments, 1)
	assert.Equal(t, "Next Friday", comments[0].Content)

	edit := map[string]string{"title": "Midterm date", "content": "Moved to Monday"}
	code, _ = other.do(http.MethodPut, base, edit)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = owner.do(http.MethodPut, base, edit)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "Midterm date", into[board.PostSnapshot](t, env).Post.Title)
	code, _ = owner.do(http.MethodPut, base, map[string]string{"title": "x", "content": " "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = other.do(http.MethodDelete, base+"?confirm=true", nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = owner.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusPreconditionRequired, code)
	code, _ = owner.do(http.MethodDelete, base+"?confirm=true", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = owner.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWriteFailureShowsBanner(t *testing.T) {
	s := newServer(t)
	c := s.client()
	post := c.createPost("t", "Biology", "", "c", false)
	s.gw.Fail = func(op string) error {
		if op == "UpdatePosts" {
			return errors.New("db down")
		}
		return nil
	}
	code, env := c.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", map[string]int{"delta": -1})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, board.MsgDownvoteFailed, env.Message)
}

func TestDraftImageLimits(t *testing.T) {
	s := newServer(t)
	c := s.client()
	code, env := c.do(http.MethodPost, "/api/v1/drafts", nil)
	require.Equal(t, http.StatusOK, code)
	base := "/api/v1/drafts/" + into[draftData](t, env).ID

	code, env = c.upload(base+"/image", "big.png", append(pngHeader, make([]byte, 1<<20)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, "file size exceeds 1.0 MiB", env.Message)

	code, _ = c.upload(base+"/image", "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, code)

	code, _ = c.do(http.MethodPatch, base, map[string]string{"category": board.AllCategories})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, base+"/back", nil)
	assert.Equal(t, http.StatusConflict, code)

	other := s.client()
	code, _ = other.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestThemePreference(t *testing.T) {
	s := newServer(t)
	c := s.client()
	code, env := c.do(http.MethodGet, "/api/v1/preferences/theme", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "light", into[map[string]string](t, env)["theme"])

	code, env = c.do(http.MethodPost, "/api/v1/preferences/theme/toggle", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dark", into[map[string]string](t, env)["theme"])

	code, _ = c.do(http.MethodPut, "/api/v1/preferences/theme", map[string]string{"theme": "sepia"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, env = c.do(http.MethodPut, "/api/v1/preferences/theme", map[string]string{"theme": "light"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "light", into[map[string]string](t, env)["theme"])
}

func TestCategories(t *testing.T) {
	s := newServer(t)
	code, env := s.client().do(http.MethodGet, "/api/v1/categories?q=neuro", nil)
	require.Equal(t, http.StatusOK, code)
	data := into[struct {
		All        string                `json:"all"`
		Categories []string              `json:"categories"`
		Groups     []board.CategoryGroup `json:"groups"`
	}](t, env)
	assert.Equal(t, board.AllCategories, data.All)
	assert.Len(t, data.Categories, len(board.Categories)+1)
	require.Len(t, data.Groups, 1)
	assert.Equal(t, []string{"Neuroscience"}, data.Groups[0].Categories)
}

func TestAuthFailureKeepsReads(t *testing.T) {
	s := newServer(t)
	s.gw.Fail = func(op string) error {
		if op == "SignInAnonymously" {
			return errors.New("auth down")
		}
		return nil
	}
	anon := &client{s: s}
	code, env := anon.do(http.MethodGet, "/api/v1/posts", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, board.MsgAuthFailed, env.AuthError)

	code, _ = anon.do(http.MethodPost, "/api/v1/drafts", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLogoutAndMisc(t *testing.T) {
	s := newServer(t)
	c := s.client()
	code, _ := c.do(http.MethodDelete, "/api/v1/session", nil)
	assert.Equal(t, http.StatusOK, code)

	// the revoked token is replaced by a fresh anonymous session
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+c.token)
	s.engine.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(middleware.TokenHeader))
	assert.NotEqual(t, c.token, w.Header().Get(middleware.TokenHeader))

	code, env := c.do(http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40400, env.Code)

	code, _ = c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestPublishInOneRequest(t *testing.T) {
	s := newServer(t)
	c := s.client()

	code, env := c.do(http.MethodPost, "/api/v1/posts", map[string]string{
		"title": "Office hours", "category": "Mathematics", "tags": "calc, ,help", "content": "Thursday 3pm",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	post := into[struct {
		Post models.Post `json:"post"`
	}](t, env).Post
	assert.Equal(t, models.TagList{"calc", "help"}, post.Tags)
	assert.Nil(t, post.ImageURL)
	assert.Empty(t, post.SecretKey)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Lab photo"))
	require.NoError(t, mw.WriteField("category", "Chemistry"))
	require.NoError(t, mw.WriteField("content", "Titration setup"))
	fw, err := mw.CreateFormFile("file", "bench.png")
	require.NoError(t, err)
	_, err = fw.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, env = c.send(req)
	require.Equal(t, http.StatusCreated, code, env.Message)
	withImage := into[struct {
		Post models.Post `json:"post"`
	}](t, env).Post
	require.NotNil(t, withImage.ImageURL)
	assert.True(t, strings.HasSuffix(*withImage.ImageURL, ".png"))
	assert.Equal(t, 1, s.gw.ObjectCount())

	code, _ = c.do(http.MethodPost, "/api/v1/posts", map[string]string{"title": "x", "category": "Astrology", "content": "y"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = c.do(http.MethodPost, "/api/v1/posts", map[string]string{"title": "x", "category": "Chemistry"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUserTextIsStoredVerbatim(t *testing.T) {
	s := newServer(t)
	c := s.client()

	for _, text := range []string{"a <b> c", "&lt;x&gt;", "Include <stdio.h> in C", "Tom & Jerry"} {
		code, env := c.do(http.MethodPost, "/api/v1/posts", map[string]string{"title": text, "category": "Computer Science", "content": text})
		require.Equal(t, http.StatusCreated, code, env.Message)
		id := into[struct {
			Post models.Post `json:"post"`
		}](t, env).Post.ID

		code, env = c.do(http.MethodGet, "/api/v1/posts/"+id, nil)
		require.Equal(t, http.StatusOK, code)
		snap := into[board.PostSnapshot](t, env)
		assert.Equal(t, text, snap.Post.Title)
		assert.Equal(t, text, snap.Post.Content)

		code, env = c.do(http.MethodPost, "/api/v1/posts/"+id+"/comments", map[string]string{"content": text})
		require.Equal(t, http.StatusOK, code)
		comments := into[struct {
			Comments []models.Comment `json:"comments"`
		}](t, env).Comments
		require.Len(t, comments, 1)
		assert.Equal(t, text, comments[0].Content)
	}
	s.board.Wait()
}

func TestImageTypeComesFromContent(t *testing.T) {
	s := newServer(t)
	c := s.client()
	code, env := c.do(http.MethodPost, "/api/v1/drafts", nil)
	require.Equal(t, http.StatusOK, code)
	base := "/api/v1/drafts/" + into[draftData](t, env).ID

	upload := func(filename, contentType string, data []byte) (int, envelope) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		fw, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, base+"/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return c.send(req)
	}

	code, _ = upload("x.html", "image/png", []byte("<html><script>alert(1)</script></html>"))
	assert.Equal(t, http.StatusUnsupportedMediaType, code)

	code, env = upload("x.html", "text/html", pngHeader)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = c.do(http.MethodPatch, base, map[string]string{"title": "t", "category": "History", "content": "c"})
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	post := into[struct {
		Post models.Post `json:"post"`
	}](t, env).Post
	require.NotNil(t, post.ImageURL)
	assert.True(t, strings.HasSuffix(*post.ImageURL, ".png"), *post.ImageURL)
}

func TestDraftSubmitsOnce(t *testing.T) {
	s := newServer(t)
	c := s.client()
	code, env := c.do(http.MethodPost, "/api/v1/drafts", nil)
	require.Equal(t, http.StatusOK, code)
	base := "/api/v1/drafts/" + into[draftData](t, env).ID
	code, _ = c.do(http.MethodPatch, base, map[string]string{"title": "Once", "category": "History", "content": "only one"})
	require.Equal(t, http.StatusOK, code)

	const attempts = 4
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, base+"/submit", nil)
			req.Header.Set("Authorization", "Bearer "+c.token)
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, lo.Count(codes, http.StatusCreated))
	assert.Equal(t, attempts-1, lo.Count(codes, http.StatusNotFound))
	assert.Equal(t, 1, s.gw.CallCount("InsertPosts"))
}

func TestFailedSubmitKeepsDraft(t *testing.T) {
	s := newServer(t)
	c := s.client()
	code, env := c.do(http.MethodPost, "/api/v1/drafts", nil)
	require.Equal(t, http.StatusOK, code)
	base := "/api/v1/drafts/" + into[draftData](t, env).ID
	code, _ = c.do(http.MethodPatch, base, map[string]string{"title": "Retry", "category": "History", "content": "again"})
	require.Equal(t, http.StatusOK, code)

	s.gw.Fail = func(op string) error {
		if op == "InsertPosts" {
			return errors.New("db down")
		}
		return nil
	}
	code, env = c.do(http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, board.MsgCreateFailed, env.Message)

	s.gw.Fail = nil
	code, _ = c.do(http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = c.do(http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
