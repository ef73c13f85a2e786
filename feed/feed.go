// Package feed turns the raw record set into what the reader sees: the
// featured slot plus the filtered, searched and sorted regular list.
package feed

import (
	"sort"
	"strings"

	"github.com/rpupo63/blog-backend/models"
)

// AllCategories disables the category filter. The reader UI labels the
// same choice "All Posts", which is accepted too.
const AllCategories = "All"

type SortMode string

const (
	SortLatest  SortMode = "latest"
	SortOldest  SortMode = "oldest"
	SortPopular SortMode = "popular"
	SortViews   SortMode = "views"
)

// ParseSort maps a query value onto a SortMode. Unknown values sort by latest.
func ParseSort(raw string) SortMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "oldest":
		return SortOldest
	case "popular", "most-popular":
		return SortPopular
	case "views", "most-viewed":
		return SortViews
	default:
		return SortLatest
	}
}

type Params struct {
	Category string
	Search   string
	Sort     SortMode
}

type View struct {
	Featured *models.Blog `json:"featured"`
	Regular  []models.Blog `json:"blogs"`
}

// Assemble filters, searches, sorts and splits records. The input slice is
// never modified.
func Assemble(records []models.Blog, p Params) View {
	query := strings.ToLower(strings.TrimSpace(p.Search))

	kept := make([]models.Blog, 0, len(records))
	for _, b := range records {
		if !b.Published {
			continue
		}
		if query != "" && !matches(b, query) {
			continue
		}
		if filtersCategory(p.Category) && b.Category != p.Category {
			continue
		}
		kept = append(kept, b)
	}

	sortBlogs(kept, p.Sort)

	view := View{Regular: make([]models.Blog, 0, len(kept))}
	for i := range kept {
		if view.Featured == nil && kept[i].Featured {
			featured := kept[i]
			view.Featured = &featured
			continue
		}
		view.Regular = append(view.Regular, kept[i])
	}
	return view
}

func filtersCategory(category string) bool {
	return category != "" && category != AllCategories && category != "All Posts"
}

func matches(b models.Blog, query string) bool {
	if strings.Contains(strings.ToLower(b.Title), query) ||
		strings.Contains(strings.ToLower(b.Excerpt), query) ||
		strings.Contains(strings.ToLower(b.Content), query) {
		return true
	}
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag.Value), query) {
			return true
		}
	}
	return false
}

func sortBlogs(blogs []models.Blog, mode SortMode) {
	var less func(a, b models.Blog) bool
	switch mode {
	case SortOldest:
		less = func(a, b models.Blog) bool { return a.SortTime().Before(b.SortTime()) }
	case SortPopular:
		less = func(a, b models.Blog) bool { return a.PopularityScore() > b.PopularityScore() }
	case SortViews:
		less = func(a, b models.Blog) bool { return a.Views > b.Views }
	default:
		less = func(a, b models.Blog) bool { return a.SortTime().After(b.SortTime()) }
	}
	sort.SliceStable(blogs, func(i, j int) bool { return less(blogs[i], blogs[j]) })
}

// Categories returns the distinct categories of published records, sorted.
func Categories(records []models.Blog) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, b := range records {
		if !b.Published || b.Category == "" {
			continue
		}
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		out = append(out, b.Category)
	}
	sort.Strings(out)
	return out
}

// Stats folds the full record set, unpublished records included.
func Stats(records []models.Blog) models.BlogStats {
	stats := models.BlogStats{TotalBlogs: len(records)}
	for _, b := range records {
		stats.TotalViews += b.Views
		stats.TotalLikes += b.Likes
		if b.Published {
			stats.PublishedBlogs++
		}
	}
	return stats
}
