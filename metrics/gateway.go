package metrics

import (
	"context"
	"io"
	"time"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

// Instrument wraps gw so every remote call is counted and timed.
func Instrument(gw gateway.Gateway) gateway.Gateway {
	return &instrumented{next: gw}
}

type instrumented struct {
	next gateway.Gateway
}

func (i *instrumented) SelectPosts(ctx context.Context, q gateway.Query) (out []models.Post, err error) {
	defer func(start time.Time) { observe("select_posts", start, err) }(time.Now())
	return i.next.SelectPosts(ctx, q)
}

func (i *instrumented) InsertPosts(ctx context.Context, posts ...*models.Post) (err error) {
	defer func(start time.Time) { observe("insert_posts", start, err) }(time.Now())
	return i.next.InsertPosts(ctx, posts...)
}

func (i *instrumented) UpdatePosts(ctx context.Context, values map[string]interface{}, where ...gateway.Filter) (n int64, err error) {
	defer func(start time.Time) { observe("update_posts", start, err) }(time.Now())
	return i.next.UpdatePosts(ctx, values, where...)
}

func (i *instrumented) DeletePosts(ctx context.Context, where ...gateway.Filter) (n int64, err error) {
	defer func(start time.Time) { observe("delete_posts", start, err) }(time.Now())
	return i.next.DeletePosts(ctx, where...)
}

func (i *instrumented) SelectComments(ctx context.Context, q gateway.Query) (out []models.Comment, err error) {
	defer func(start time.Time) { observe("select_comments", start, err) }(time.Now())
	return i.next.SelectComments(ctx, q)
}

func (i *instrumented) InsertComments(ctx context.Context, comments ...*models.Comment) (err error) {
	defer func(start time.Time) { observe("insert_comments", start, err) }(time.Now())
	return i.next.InsertComments(ctx, comments...)
}

func (i *instrumented) Upload(ctx context.Context, bucket, name string, body io.Reader, contentType string) (err error) {
	defer func(start time.Time) { observe("upload", start, err) }(time.Now())
	return i.next.Upload(ctx, bucket, name, body, contentType)
}

func (i *instrumented) PublicURL(bucket, name string) string {
	return i.next.PublicURL(bucket, name)
}

func (i *instrumented) SignInAnonymously(ctx context.Context) (s *models.Session, err error) {
	defer func(start time.Time) { observe("sign_in_anonymously", start, err) }(time.Now())
	return i.next.SignInAnonymously(ctx)
}

func (i *instrumented) GetUser(ctx context.Context, accessToken string) (u *models.User, err error) {
	defer func(start time.Time) { observe("get_user", start, err) }(time.Now())
	return i.next.GetUser(ctx, accessToken)
}

func (i *instrumented) SignOut(ctx context.Context, accessToken string) (err error) {
	defer func(start time.Time) { observe("sign_out", start, err) }(time.Now())
	return i.next.SignOut(ctx, accessToken)
}

func (i *instrumented) OnAuthStateChange(fn func(gateway.AuthEvent)) gateway.Subscription {
	return i.next.OnAuthStateChange(fn)
}
