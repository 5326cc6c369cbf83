// internal/database/posts.go
package database

import (
	"context"

	"insert-coin-bot/internal/models"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertPost stores a post, overwriting any previous post with the same id.
func (db *DB) UpsertPost(ctx context.Context, post *models.Post) error {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(post).Error
	return errors.Wrapf(err, "upsert post %s", post.ID)
}

// QueryPosts returns at most q.TopK posts. With a vector the results are ranked by
// cosine similarity; without one they are exact filter matches, newest first, scored 1.
func (db *DB) QueryPosts(ctx context.Context, q models.PostQuery) ([]models.ScoredPost, error) {
	query := db.WithContext(ctx).Model(&models.Post{})

	if q.AuthorID != "" {
		query = query.Where("author_id = ?", q.AuthorID)
	}
	if q.PromptType != "" {
		query = query.Where("prompt_type = ?", q.PromptType)
	}

	if q.Vector != nil {
		vector := pgvector.NewVector(q.Vector)
		query = query.
			Select("*, 1 - (embedding <=> ?) AS score", vector).
			Clauses(clause.OrderBy{
				Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{vector}},
			})
	} else {
		query = query.Select("*, 1 AS score").Order("created_at DESC")
	}

	if q.TopK > 0 {
		query = query.Limit(q.TopK)
	}

	var posts []models.ScoredPost
	if err := query.Find(&posts).Error; err != nil {
		return nil, errors.Wrap(err, "query posts")
	}
	return posts, nil
}

func (db *DB) DeletePosts(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	err := db.WithContext(ctx).Delete(&models.Post{}, "id IN ?", ids).Error
	return errors.Wrap(err, "delete posts")
}

// ClearPosts removes every stored post.
func (db *DB) ClearPosts(ctx context.Context) error {
	err := db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Post{}).Error
	return errors.Wrap(err, "clear posts")
}
