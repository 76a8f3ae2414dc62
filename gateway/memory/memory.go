// Package memory is an in-process gateway with the same query semantics as
// the hosted and SQL gateways. It backs tests and the demo mode.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

// Gateway keeps every collection in maps guarded by one mutex.
type Gateway struct {
	gateway.Notifier

	mu       sync.RWMutex
	posts    map[string]models.Post
	comments map[string]models.Comment
	objects  map[string][]byte
	users    map[string]models.User
	sessions map[string]string
	baseURL  string
	clock    func() time.Time

	// Fail, when set, is consulted before every call; a non-nil error aborts the call.
	Fail func(op string) error
	// Calls counts invocations per operation name.
	Calls map[string]int
}

// New returns an empty gateway.
func New() *Gateway {
	return &Gateway{
		posts:    map[string]models.Post{},
		comments: map[string]models.Comment{},
		objects:  map[string][]byte{},
		users:    map[string]models.User{},
		sessions: map[string]string{},
		baseURL:  "memory://storage",
		clock:    time.Now,
		Calls:    map[string]int{},
	}
}

// SetClock replaces the time source used for server-assigned timestamps.
func (g *Gateway) SetClock(clock func() time.Time) {
	g.mu.Lock()
	g.clock = clock
	g.mu.Unlock()
}

func (g *Gateway) enter(op string) error {
	g.mu.Lock()
	g.Calls[op]++
	fail := g.Fail
	g.mu.Unlock()
	if fail != nil {
		return fail(op)
	}
	return nil
}

// CallCount returns how many times op was invoked.
func (g *Gateway) CallCount(op string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Calls[op]
}

// SelectPosts implements gateway.Posts.
func (g *Gateway) SelectPosts(ctx context.Context, q gateway.Query) ([]models.Post, error) {
	if err := g.enter("SelectPosts"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.Post
	for _, p := range g.posts {
		ok, err := matchQuery(q, func(col string) (interface{}, bool) { return postColumn(p, col) })
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, clonePost(p))
		}
	}
	if err := sortRows(out, q.Order, func(p models.Post, col string) (interface{}, bool) { return postColumn(p, col) }); err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// InsertPosts implements gateway.Posts.
func (g *Gateway) InsertPosts(ctx context.Context, posts ...*models.Post) error {
	if err := g.enter("InsertPosts"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range posts {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = g.clock()
		}
		if p.Tags == nil {
			p.Tags = models.TagList{}
		}
		g.posts[p.ID] = clonePost(*p)
	}
	return nil
}

// UpdatePosts implements gateway.Posts.
func (g *Gateway) UpdatePosts(ctx context.Context, values map[string]interface{}, where ...gateway.Filter) (int64, error) {
	if err := g.enter("UpdatePosts"); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	q := gateway.Query{Where: where}
	var n int64
	for id, p := range g.posts {
		ok, err := matchQuery(q, func(col string) (interface{}, bool) { return postColumn(p, col) })
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if err := applyPostValues(&p, values); err != nil {
			return 0, err
		}
		g.posts[id] = p
		n++
	}
	return n, nil
}

// DeletePosts implements gateway.Posts. Comments of removed posts cascade.
func (g *Gateway) DeletePosts(ctx context.Context, where ...gateway.Filter) (int64, error) {
	if err := g.enter("DeletePosts"); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	q := gateway.Query{Where: where}
	var n int64
	for id, p := range g.posts {
		ok, err := matchQuery(q, func(col string) (interface{}, bool) { return postColumn(p, col) })
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		delete(g.posts, id)
		for cid, c := range g.comments {
			if c.PostID == id {
				delete(g.comments, cid)
			}
		}
		n++
	}
	return n, nil
}

// SelectComments implements gateway.Comments.
func (g *Gateway) SelectComments(ctx context.Context, q gateway.Query) ([]models.Comment, error) {
	if err := g.enter("SelectComments"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.Comment
	for _, c := range g.comments {
		ok, err := matchQuery(q, func(col string) (interface{}, bool) { return commentColumn(c, col) })
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	if err := sortRows(out, q.Order, func(c models.Comment, col string) (interface{}, bool) { return commentColumn(c, col) }); err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// InsertComments implements gateway.Comments.
func (g *Gateway) InsertComments(ctx context.Context, comments ...*models.Comment) error {
	if err := g.enter("InsertComments"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range comments {
		if _, ok := g.posts[c.PostID]; !ok {
			return &gateway.Error{Status: 409, Code: "23503", Message: "comment references a missing post"}
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = g.clock()
		}
		g.comments[c.ID] = *c
	}
	return nil
}

// Upload implements gateway.Storage.
func (g *Gateway) Upload(ctx context.Context, bucket, name string, body io.Reader, contentType string) error {
	if err := g.enter("Upload"); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	key := bucket + "/" + name
	if _, exists := g.objects[key]; exists {
		return &gateway.Error{Status: 409, Message: "object already exists"}
	}
	g.objects[key] = buf.Bytes()
	return nil
}

// PublicURL implements gateway.Storage.
func (g *Gateway) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/%s/%s", g.baseURL, bucket, name)
}

// Object returns the stored bytes of an uploaded object.
func (g *Gateway) Object(bucket, name string) ([]byte, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.objects[bucket+"/"+name]
	return b, ok
}

// ObjectCount reports how many objects were uploaded.
func (g *Gateway) ObjectCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}

// SignInAnonymously implements gateway.Auth.
func (g *Gateway) SignInAnonymously(ctx context.Context) (*models.Session, error) {
	if err := g.enter("SignInAnonymously"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	user := models.User{ID: uuid.NewString(), IsAnonymous: true, CreatedAt: g.clock()}
	token := uuid.NewString()
	g.users[user.ID] = user
	g.sessions[token] = user.ID
	g.mu.Unlock()

	g.Emit(gateway.AuthEvent{Type: gateway.EventSignedIn, UserID: user.ID})
	return &models.Session{AccessToken: token, ExpiresAt: time.Now().Add(time.Hour), User: user}, nil
}

// GetUser implements gateway.Auth.
func (g *Gateway) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	if err := g.enter("GetUser"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.sessions[accessToken]
	if !ok {
		return nil, gateway.ErrInvalidSession
	}
	user := g.users[id]
	return &user, nil
}

// SignOut implements gateway.Auth.
func (g *Gateway) SignOut(ctx context.Context, accessToken string) error {
	if err := g.enter("SignOut"); err != nil {
		return err
	}
	g.mu.Lock()
	id, ok := g.sessions[accessToken]
	delete(g.sessions, accessToken)
	g.mu.Unlock()
	if !ok {
		return gateway.ErrInvalidSession
	}
	g.Emit(gateway.AuthEvent{Type: gateway.EventSignedOut, UserID: id})
	return nil
}

// SetFaculty flips the out-of-band faculty marker of a user.
func (g *Gateway) SetFaculty(userID string, faculty bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if u, ok := g.users[userID]; ok {
		u.IsFaculty = faculty
		g.users[userID] = u
	}
}

func matchQuery(q gateway.Query, column func(string) (interface{}, bool)) (bool, error) {
	for _, f := range q.Where {
		ok, err := matchFilter(f, column)
		if err != nil || !ok {
			return false, err
		}
	}
	if len(q.Any) == 0 {
		return true, nil
	}
	for _, f := range q.Any {
		ok, err := matchFilter(f, column)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchFilter(f gateway.Filter, column func(string) (interface{}, bool)) (bool, error) {
	v, ok := column(f.Column)
	if !ok {
		return false, fmt.Errorf("%w: unknown column %q", gateway.ErrUnsupportedFilter, f.Column)
	}
	switch f.Op {
	case gateway.OpEq:
		return fmt.Sprint(v) == fmt.Sprint(f.Value), nil
	case gateway.OpILike:
		s, isString := v.(string)
		pattern, isPattern := f.Value.(string)
		if !isString || !isPattern {
			return false, fmt.Errorf("%w: ilike on %q", gateway.ErrUnsupportedFilter, f.Column)
		}
		return likeMatch(strings.ToLower(pattern), strings.ToLower(s)), nil
	case gateway.OpContains:
		tags, isTags := v.(models.TagList)
		terms, isTerms := f.Value.([]string)
		if !isTags || !isTerms {
			return false, fmt.Errorf("%w: contains on %q", gateway.ErrUnsupportedFilter, f.Column)
		}
		return tags.Contains(terms...), nil
	default:
		return false, fmt.Errorf("%w: operator %q", gateway.ErrUnsupportedFilter, f.Op)
	}
}

type likeToken struct {
	kind byte // '%', '_' or 0 for a literal
	r    rune
}

// compileLike splits pattern into tokens. A backslash makes the next rune literal
// and runs of % collapse into one.
func compileLike(pattern string) []likeToken {
	var out []likeToken
	escaped := false
	for _, c := range pattern {
		switch {
		case escaped:
			out = append(out, likeToken{r: c})
			escaped = false
		case c == '\\':
			escaped = true
		case c == '%':
			if len(out) == 0 || out[len(out)-1].kind != '%' {
				out = append(out, likeToken{kind: '%'})
			}
		case c == '_':
			out = append(out, likeToken{kind: '_'})
		default:
			out = append(out, likeToken{r: c})
		}
	}
	if escaped {
		out = append(out, likeToken{r: '\\'})
	}
	return out
}

// likeMatch implements SQL LIKE with % and _ wildcards and backslash escapes.
// It backtracks only to the last %, so it runs in O(len(pattern)*len(s)).
func likeMatch(pattern, s string) bool {
	p, r := compileLike(pattern), []rune(s)
	i, j := 0, 0
	star, mark := -1, 0
	for j < len(r) {
		switch {
		case i < len(p) && p[i].kind == '%':
			star, mark = i, j
			i++
		case i < len(p) && (p[i].kind == '_' || (p[i].kind == 0 && p[i].r == r[j])):
			i++
			j++
		case star >= 0:
			i = star + 1
			mark++
			j = mark
		default:
			return false
		}
	}
	for i < len(p) && p[i].kind == '%' {
		i++
	}
	return i == len(p)
}

func sortRows[T any](rows []T, order []gateway.Order, column func(T, string) (interface{}, bool)) error {
	for _, o := range order {
		if len(rows) > 0 {
			if _, ok := column(rows[0], o.Column); !ok {
				return fmt.Errorf("%w: unknown order column %q", gateway.ErrUnsupportedFilter, o.Column)
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			a, _ := column(rows[i], o.Column)
			b, _ := column(rows[j], o.Column)
			c := compare(a, b)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

func compare(a, b interface{}) int {
	switch x := a.(type) {
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case time.Time:
		y := b.(time.Time)
		return x.Compare(y)
	case bool:
		y := b.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func postColumn(p models.Post, col string) (interface{}, bool) {
	switch col {
	case "id":
		return p.ID, true
	case "user_id":
		return p.UserID, true
	case "title":
		return p.Title, true
	case "content":
		return p.Content, true
	case "category":
		return p.Category, true
	case "tags":
		return p.Tags, true
	case "upvotes":
		return p.Upvotes, true
	case "views":
		return p.Views, true
	case "pinned":
		return p.Pinned, true
	case "created_at":
		return p.CreatedAt, true
	}
	return nil, false
}

func commentColumn(c models.Comment, col string) (interface{}, bool) {
	switch col {
	case "id":
		return c.ID, true
	case "post_id":
		return c.PostID, true
	case "user_id":
		return c.UserID, true
	case "content":
		return c.Content, true
	case "created_at":
		return c.CreatedAt, true
	}
	return nil, false
}

func applyPostValues(p *models.Post, values map[string]interface{}) error {
	for col, v := range values {
		var ok bool
		switch col {
		case "title":
			p.Title, ok = v.(string)
		case "content":
			p.Content, ok = v.(string)
		case "upvotes":
			p.Upvotes, ok = v.(int64)
		case "views":
			p.Views, ok = v.(int64)
		case "pinned":
			p.Pinned, ok = v.(bool)
		case "image_url":
			p.ImageURL, ok = optionalString(v)
		case "youtube_url":
			p.YoutubeURL, ok = optionalString(v)
		case "updated_at":
			var ts time.Time
			ts, ok = v.(time.Time)
			p.UpdatedAt = &ts
		}
		if !ok {
			return fmt.Errorf("%w: cannot assign %T to %q", gateway.ErrUnsupportedFilter, v, col)
		}
	}
	return nil
}

func optionalString(v interface{}) (*string, bool) {
	switch s := v.(type) {
	case nil:
		return nil, true
	case *string:
		if s == nil {
			return nil, true
		}
		return lo.ToPtr(*s), true
	case string:
		return lo.ToPtr(s), true
	}
	return nil, false
}

func clonePost(p models.Post) models.Post {
	p.Tags = append(models.TagList{}, p.Tags...)
	if p.ImageURL != nil {
		p.ImageURL = lo.ToPtr(*p.ImageURL)
	}
	if p.YoutubeURL != nil {
		p.YoutubeURL = lo.ToPtr(*p.YoutubeURL)
	}
	if p.UpdatedAt != nil {
		p.UpdatedAt = lo.ToPtr(*p.UpdatedAt)
	}
	return p
}
