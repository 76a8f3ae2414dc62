package postgrest

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

const preferRepresentation = "return=representation"

// SelectPosts implements gateway.Posts.
func (c *Client) SelectPosts(ctx context.Context, q gateway.Query) ([]models.Post, error) {
	var posts []models.Post
	if err := c.selectRows(ctx, gateway.TablePosts, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// SelectComments implements gateway.Comments.
func (c *Client) SelectComments(ctx context.Context, q gateway.Query) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.selectRows(ctx, gateway.TableComments, q, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) selectRows(ctx context.Context, table string, q gateway.Query, out interface{}) error {
	params, err := queryParams(q)
	if err != nil {
		return err
	}
	res, err := c.r(ctx).
		SetQueryParamsFromValues(params).
		SetResult(out).
		Get(tablePath(table))
	return check(res, err)
}

// InsertPosts implements gateway.Posts. Server-assigned ids and timestamps are copied back.
func (c *Client) InsertPosts(ctx context.Context, posts ...*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, len(posts))
	for i, p := range posts {
		rows[i] = postRow(p)
	}
	var created []models.Post
	if err := c.insert(ctx, gateway.TablePosts, rows, &created); err != nil {
		return err
	}
	for i := range created {
		if i < len(posts) {
			posts[i].ID = created[i].ID
			posts[i].CreatedAt = created[i].CreatedAt
		}
	}
	return nil
}

// InsertComments implements gateway.Comments.
func (c *Client) InsertComments(ctx context.Context, comments ...*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, len(comments))
	for i, cm := range comments {
		row := map[string]interface{}{
			"post_id":    cm.PostID,
			"user_id":    cm.UserID,
			"content":    cm.Content,
			"is_faculty": cm.IsFaculty,
		}
		if cm.ID != "" {
			row["id"] = cm.ID
		}
		rows[i] = row
	}
	var created []models.Comment
	if err := c.insert(ctx, gateway.TableComments, rows, &created); err != nil {
		return err
	}
	for i := range created {
		if i < len(comments) {
			comments[i].ID = created[i].ID
			comments[i].CreatedAt = created[i].CreatedAt
		}
	}
	return nil
}

func (c *Client) insert(ctx context.Context, table string, rows interface{}, out interface{}) error {
	res, err := c.r(ctx).
		SetHeader("Prefer", preferRepresentation).
		SetBody(rows).
		SetResult(out).
		Post(tablePath(table))
	return check(res, err)
}

// UpdatePosts implements gateway.Posts.
func (c *Client) UpdatePosts(ctx context.Context, values map[string]interface{}, where ...gateway.Filter) (int64, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("%w: update without predicate", gateway.ErrUnsupportedFilter)
	}
	params := url.Values{}
	if err := whereParams(params, where); err != nil {
		return 0, err
	}
	var rows []map[string]interface{}
	res, err := c.r(ctx).
		SetHeader("Prefer", preferRepresentation).
		SetQueryParamsFromValues(params).
		SetBody(values).
		SetResult(&rows).
		Patch(tablePath(gateway.TablePosts))
	if err := check(res, err); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// DeletePosts implements gateway.Posts. Comments go with their post through the foreign key.
func (c *Client) DeletePosts(ctx context.Context, where ...gateway.Filter) (int64, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("%w: delete without predicate", gateway.ErrUnsupportedFilter)
	}
	params := url.Values{}
	if err := whereParams(params, where); err != nil {
		return 0, err
	}
	var rows []map[string]interface{}
	res, err := c.r(ctx).
		SetHeader("Prefer", preferRepresentation).
		SetQueryParamsFromValues(params).
		SetResult(&rows).
		Delete(tablePath(gateway.TablePosts))
	if err := check(res, err); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func postRow(p *models.Post) map[string]interface{} {
	tags := p.Tags
	if tags == nil {
		tags = models.TagList{}
	}
	row := map[string]interface{}{
		"user_id":     p.UserID,
		"title":       p.Title,
		"content":     p.Content,
		"category":    p.Category,
		"tags":        tags,
		"image_url":   p.ImageURL,
		"image_alt":   p.ImageAlt,
		"youtube_url": p.YoutubeURL,
		"upvotes":     p.Upvotes,
		"views":       p.Views,
		"pinned":      p.Pinned,
	}
	if p.ID != "" {
		row["id"] = p.ID
	}
	if p.SecretKey != "" {
		row["secret_key"] = p.SecretKey
	}
	if !p.CreatedAt.IsZero() {
		row["created_at"] = p.CreatedAt
	}
	return row
}
