package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

const blogEntity = "blog"

// BlogRepo is the gorm adapter for the content collection.
type BlogRepo struct {
	db      *gorm.DB
	tagRepo *BlogTagRepo
}

func NewBlogRepo(db *gorm.DB, tagRepo *BlogTagRepo) *BlogRepo {
	return &BlogRepo{db: db, tagRepo: tagRepo}
}

func preloadTags(db *gorm.DB) *gorm.DB {
	return db.Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

// List returns every blog, or only the published ones ordered by publish
// time, newest first. Reads go to a replica when one is registered.
func (r *BlogRepo) List(ctx context.Context, publishedOnly bool) ([]models.Blog, error) {
	query := preloadTags(r.db.WithContext(ctx))
	if publishedOnly {
		query = query.Where("published = ?", true).Order("published_at desc").Order("created_at desc")
	} else {
		query = query.Order("created_at desc")
	}

	var blogs []models.Blog
	if err := query.Find(&blogs).Error; err != nil {
		return nil, readError("list", "blogs", err)
	}
	return blogs, nil
}

// Get returns one blog by id.
func (r *BlogRepo) Get(ctx context.Context, id uuid.UUID) (models.Blog, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *BlogRepo) get(db *gorm.DB, id uuid.UUID) (models.Blog, error) {
	var blog models.Blog
	if err := preloadTags(db).Where("id = ?", id).First(&blog).Error; err != nil {
		return models.Blog{}, readError("find", blogEntity, err)
	}
	return blog, nil
}

// Insert stores a new blog together with its tags.
func (r *BlogRepo) Insert(ctx context.Context, blog *models.Blog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags := blog.Tags
		blog.Tags = nil
		if err := tx.Create(blog).Error; err != nil {
			return err
		}
		values := make([]string, 0, len(tags))
		for _, tag := range tags {
			values = append(values, tag.Value)
		}
		if err := r.tagRepo.Replace(tx, blog.ID, values); err != nil {
			return err
		}
		blog.Tags = models.NewTags(blog.ID, values)
		return nil
	})
	return writeError("create", blogEntity, err)
}

// Patch applies column updates and, when tags is non-nil, replaces the tag
// set, then returns the stored record as read back from the primary.
func (r *BlogRepo) Patch(ctx context.Context, id uuid.UUID, fields map[string]any, tags *[]string) (models.Blog, error) {
	var updated models.Blog
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Blog{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if tags != nil {
			if err := r.tagRepo.Replace(tx, id, *tags); err != nil {
				return err
			}
		}

		blog, err := r.get(tx.Clauses(dbresolver.Write), id)
		if err != nil {
			return err
		}
		updated = blog
		return nil
	})
	if err != nil {
		return models.Blog{}, writeError("update", blogEntity, err)
	}
	return updated, nil
}

// Delete removes a blog and its tags permanently.
func (r *BlogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.tagRepo.DeleteForBlog(tx, id); err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Blog{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return writeError("delete", blogEntity, err)
}

// AddCounter adds delta to a counter in a single UPDATE, clamping at zero.
// updated_at is left alone: counters are not content edits.
func (r *BlogRepo) AddCounter(ctx context.Context, id uuid.UUID, counter models.Counter, delta int64) error {
	var column string
	switch counter {
	case models.CounterViews, models.CounterLikes:
		column = string(counter)
	default:
		return errs.NewValidationError("counter", fmt.Sprintf("unknown counter %q", counter))
	}

	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", column), delta, delta)
	result := r.db.WithContext(ctx).Model(&models.Blog{}).Where("id = ?", id).UpdateColumn(column, expr)
	if result.Error != nil {
		return writeError("update "+column+" of", blogEntity, result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFound(blogEntity)
	}
	return nil
}
