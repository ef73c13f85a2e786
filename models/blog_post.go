package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultReadTime is used when an author leaves the estimate empty.
const DefaultReadTime = 5

// Blog represents a complete blog post with metadata
type Blog struct {
	ID              uuid.UUID                   `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	Title           string                      `json:"title" db:"title" gorm:"type:text;not null"`
	Slug            string                      `json:"slug" db:"slug" gorm:"type:text;not null;index:idx_blog_slug"`
	Excerpt         string                      `json:"excerpt" db:"excerpt" gorm:"type:text;not null"`
	Content         string                      `json:"content" db:"content" gorm:"type:text;not null"`
	Thumbnail       string                      `json:"thumbnail" db:"thumbnail" gorm:"type:text;not null"`
	Category        string                      `json:"category" db:"category" gorm:"type:text;not null;index:idx_blog_category"`
	AuthorName      string                      `json:"authorName" db:"author_name" gorm:"type:text;not null"`
	AuthorAvatar    string                      `json:"authorAvatar" db:"author_avatar" gorm:"type:text;not null"`
	AuthorBio       *string                     `json:"authorBio,omitempty" db:"author_bio" gorm:"type:text"`
	MetaTitle       string                      `json:"metaTitle" db:"meta_title" gorm:"type:text"`
	MetaDescription string                      `json:"metaDescription" db:"meta_description" gorm:"type:text"`
	SEOKeywords     datatypes.JSONSlice[string] `json:"seoKeywords" db:"seo_keywords"`
	Published       bool                        `json:"published" db:"published" gorm:"not null;default:false;index:idx_blog_published"`
	Featured        bool                        `json:"featured" db:"featured" gorm:"not null;default:false"`
	Views           int64                       `json:"views" db:"views" gorm:"not null;default:0"`
	Likes           int64                       `json:"likes" db:"likes" gorm:"not null;default:0"`
	ReadTime        int                         `json:"readTime" db:"read_time" gorm:"not null;default:5"`
	CreatedAt       time.Time                   `json:"createdAt" db:"created_at" gorm:"not null;autoCreateTime:false"`
	UpdatedAt       time.Time                   `json:"updatedAt" db:"updated_at" gorm:"not null;autoUpdateTime:false"`
	PublishedAt     *time.Time                  `json:"publishedAt,omitempty" db:"published_at" gorm:"index:idx_blog_published_at"`
	Tags            []BlogTag                   `json:"-" gorm:"foreignKey:BlogID;references:ID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns the store-side identifier.
func (b *Blog) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// MarshalJSON flattens the tag rows into a plain string list.
func (b Blog) MarshalJSON() ([]byte, error) {
	type alias Blog
	return json.Marshal(struct {
		alias
		Tags []string `json:"tags"`
	}{alias(b), b.TagValues()})
}

func (b *Blog) UnmarshalJSON(data []byte) error {
	type alias Blog
	aux := struct {
		*alias
		Tags []string `json:"tags"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.Tags = NewTags(b.ID, aux.Tags)
	return nil
}

// TagValues returns the tag strings in stored order.
func (b Blog) TagValues() []string {
	values := make([]string, 0, len(b.Tags))
	for _, tag := range b.Tags {
		values = append(values, tag.Value)
	}
	return values
}

// PopularityScore is the ranking used by the "most popular" ordering.
func (b Blog) PopularityScore() int64 {
	return b.Views + b.Likes
}

// SortTime is the timestamp used by the latest/oldest orderings. Records that
// were never published fall back to their creation time.
func (b Blog) SortTime() time.Time {
	if b.PublishedAt != nil {
		return *b.PublishedAt
	}
	return b.CreatedAt
}

// Counter names one of the engagement counters of a Blog.
type Counter string

const (
	CounterViews Counter = "views"
	CounterLikes Counter = "likes"
)

// BlogStats is derived on demand from the full record set and never stored.
type BlogStats struct {
	TotalBlogs     int   `json:"totalBlogs"`
	TotalViews     int64 `json:"totalViews"`
	TotalLikes     int64 `json:"totalLikes"`
	PublishedBlogs int   `json:"publishedBlogs"`
}
