package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlogTag represents a free-text tag associated with a blog post
type BlogTag struct {
	ID       uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	BlogID   uuid.UUID `json:"blogId" db:"blog_id" gorm:"type:uuid;not null;index:idx_blog_tag_blog_id;uniqueIndex:idx_blog_tag_unique"`
	Value    string    `json:"value" db:"value" gorm:"type:text;not null;uniqueIndex:idx_blog_tag_unique"`
	Position int       `json:"position" db:"position" gorm:"not null;default:0"`
}

func (t *BlogTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// NewTags builds tag rows for a blog from already normalised values.
func NewTags(blogID uuid.UUID, values []string) []BlogTag {
	tags := make([]BlogTag, 0, len(values))
	for i, value := range values {
		tags = append(tags, BlogTag{BlogID: blogID, Value: value, Position: i})
	}
	return tags
}
