package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rpupo63/blog-backend/models"
)

type BlogTagRepo struct {
	db *gorm.DB
}

func NewBlogTagRepo(db *gorm.DB) *BlogTagRepo {
	return &BlogTagRepo{db}
}

// FindByBlog returns the tags of one blog in insertion order.
func (r *BlogTagRepo) FindByBlog(ctx context.Context, blogID uuid.UUID) ([]models.BlogTag, error) {
	var tags []models.BlogTag
	err := r.db.WithContext(ctx).Where("blog_id = ?", blogID).Order("position").Find(&tags).Error
	return tags, readError("find", "blog tags", err)
}

// Replace swaps the full tag set of a blog inside tx.
func (r *BlogTagRepo) Replace(tx *gorm.DB, blogID uuid.UUID, values []string) error {
	if err := r.DeleteForBlog(tx, blogID); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	tags := models.NewTags(blogID, values)
	return tx.Create(&tags).Error
}

// DeleteForBlog removes every tag of a blog inside tx.
func (r *BlogTagRepo) DeleteForBlog(tx *gorm.DB, blogID uuid.UUID) error {
	return tx.Where("blog_id = ?", blogID).Delete(&models.BlogTag{}).Error
}
