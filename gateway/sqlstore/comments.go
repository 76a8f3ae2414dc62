package sqlstore

import (
	"context"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

// SelectComments implements gateway.Comments.
func (s *Store) SelectComments(ctx context.Context, q gateway.Query) ([]models.Comment, error) {
	tx, err := applyQuery(s.db.WithContext(ctx).Model(&models.Comment{}), q, commentColumns)
	if err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := tx.Find(&comments).Error; err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

// InsertComments implements gateway.Comments.
func (s *Store) InsertComments(ctx context.Context, comments ...*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Create(comments).Error)
}
