package models

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rpupo63/blog-backend/errs"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title, collapses every run of non-alphanumerics into a
// single hyphen and strips leading and trailing hyphens.
func Slugify(title string) string {
	slug := nonAlnum.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// BlogInput is the admin payload for creating a post.
type BlogInput struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug,omitempty"`
	Excerpt         string   `json:"excerpt"`
	Content         string   `json:"content"`
	Thumbnail       string   `json:"thumbnail"`
	Category        string   `json:"category"`
	AuthorName      string   `json:"authorName"`
	AuthorAvatar    string   `json:"authorAvatar"`
	AuthorBio       *string  `json:"authorBio,omitempty"`
	MetaTitle       string   `json:"metaTitle,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	SEOKeywords     []string `json:"seoKeywords,omitempty"`
	Published       bool     `json:"published"`
	Featured        bool     `json:"featured"`
	ReadTime        int      `json:"readTime,omitempty"`
}

// Validate checks every required field and URL before a write is attempted.
func (in BlogInput) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"title", in.Title},
		{"excerpt", in.Excerpt},
		{"content", in.Content},
		{"thumbnail", in.Thumbnail},
		{"category", in.Category},
		{"authorName", in.AuthorName},
		{"authorAvatar", in.AuthorAvatar},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errs.NewMissingRequiredFieldError(r.field)
		}
	}

	if err := validateURL("thumbnail", in.Thumbnail); err != nil {
		return err
	}
	if err := validateURL("authorAvatar", in.AuthorAvatar); err != nil {
		return err
	}
	if in.ReadTime < 0 {
		return errs.NewValidationError("readTime", "must be a positive number of minutes")
	}
	return nil
}

// BlogPatch is a partial update. Nil fields are left untouched.
type BlogPatch struct {
	Title           *string   `json:"title,omitempty"`
	Slug            *string   `json:"slug,omitempty"`
	Excerpt         *string   `json:"excerpt,omitempty"`
	Content         *string   `json:"content,omitempty"`
	Thumbnail       *string   `json:"thumbnail,omitempty"`
	Category        *string   `json:"category,omitempty"`
	AuthorName      *string   `json:"authorName,omitempty"`
	AuthorAvatar    *string   `json:"authorAvatar,omitempty"`
	AuthorBio       *string   `json:"authorBio,omitempty"`
	MetaTitle       *string   `json:"metaTitle,omitempty"`
	MetaDescription *string   `json:"metaDescription,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	SEOKeywords     *[]string `json:"seoKeywords,omitempty"`
	Published       *bool     `json:"published,omitempty"`
	Featured        *bool     `json:"featured,omitempty"`
	ReadTime        *int      `json:"readTime,omitempty"`
}

// Validate applies the create rules to the fields that are present.
func (p BlogPatch) Validate() error {
	present := []struct {
		field string
		value *string
	}{
		{"title", p.Title},
		{"excerpt", p.Excerpt},
		{"content", p.Content},
		{"thumbnail", p.Thumbnail},
		{"category", p.Category},
		{"authorName", p.AuthorName},
		{"authorAvatar", p.AuthorAvatar},
	}
	for _, f := range present {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return errs.NewValidationError(f.field, "cannot be empty")
		}
	}

	if p.Thumbnail != nil {
		if err := validateURL("thumbnail", *p.Thumbnail); err != nil {
			return err
		}
	}
	if p.AuthorAvatar != nil {
		if err := validateURL("authorAvatar", *p.AuthorAvatar); err != nil {
			return err
		}
	}
	if p.ReadTime != nil && *p.ReadTime <= 0 {
		return errs.NewValidationError("readTime", "must be a positive number of minutes")
	}
	return nil
}

// IsEmpty reports whether the patch carries no field at all.
func (p BlogPatch) IsEmpty() bool {
	return p == BlogPatch{}
}

// NormalizeList trims values, drops blanks and keeps the first occurrence of
// each value, the way the editor builds tag and keyword lists.
func NormalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func validateURL(field, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errs.NewValidationError(field, "must be a valid URL")
	}
	return nil
}
