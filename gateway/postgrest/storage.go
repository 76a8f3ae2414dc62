package postgrest

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Upload implements gateway.Storage.
func (c *Client) Upload(ctx context.Context, bucket, name string, body io.Reader, contentType string) error {
	res, err := c.r(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(body).
		Post(fmt.Sprintf("/storage/v1/object/%s/%s", url.PathEscape(bucket), url.PathEscape(name)))
	return check(res, err)
}

// PublicURL implements gateway.Storage.
func (c *Client) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, url.PathEscape(bucket), url.PathEscape(name))
}
