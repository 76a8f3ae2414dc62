package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

func (s *Store) postQuery(ctx context.Context, q gateway.Query) (*gorm.DB, error) {
	return applyQuery(s.db.WithContext(ctx).Model(&models.Post{}), q, postColumns)
}

// SelectPosts implements gateway.Posts.
func (s *Store) SelectPosts(ctx context.Context, q gateway.Query) ([]models.Post, error) {
	tx, err := s.postQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := tx.Find(&posts).Error; err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

// InsertPosts implements gateway.Posts.
func (s *Store) InsertPosts(ctx context.Context, posts ...*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	for _, p := range posts {
		if p.Tags == nil {
			p.Tags = models.TagList{}
		}
	}
	return translate(s.db.WithContext(ctx).Omit("Comments").Create(posts).Error)
}

// UpdatePosts implements gateway.Posts.
func (s *Store) UpdatePosts(ctx context.Context, values map[string]interface{}, where ...gateway.Filter) (int64, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("%w: update without predicate", gateway.ErrUnsupportedFilter)
	}
	for col := range values {
		if !postWritable[col] {
			return 0, fmt.Errorf("%w: column %q is not writable", gateway.ErrUnsupportedFilter, col)
		}
	}
	tx, err := applyWhere(s.db.WithContext(ctx).Model(&models.Post{}), where, postColumns)
	if err != nil {
		return 0, err
	}
	res := tx.Updates(values)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// DeletePosts implements gateway.Posts. Comments of removed posts go in the same transaction.
func (s *Store) DeletePosts(ctx context.Context, where ...gateway.Filter) (int64, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("%w: delete without predicate", gateway.ErrUnsupportedFilter)
	}
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sel, err := applyWhere(tx.Model(&models.Post{}), where, postColumns)
		if err != nil {
			return err
		}
		var ids []string
		if err := sel.Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("post_id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Post{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return removed, nil
}
