package services

import (
	"fmt"
	"strings"
)

// FormatHashtag turns a tag into a hashtag body: letters, digits and
// underscores only, lowercased. Tags that would start with a digit yield "".
func FormatHashtag(tag string) string {
	var result strings.Builder
	for _, r := range strings.TrimSpace(tag) {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}

	formatted := strings.ToLower(result.String())
	if len(formatted) > 0 && formatted[0] >= '0' && formatted[0] <= '9' {
		return ""
	}
	return formatted
}

// Hashtags formats up to max tags, skipping those that produce nothing.
func Hashtags(tags []string, max int) []string {
	var out []string
	for _, tag := range tags {
		if len(out) == max {
			break
		}
		if h := FormatHashtag(tag); h != "" {
			out = append(out, "#"+h)
		}
	}
	return out
}

// BuildBlogPostURL returns the public address of a post, e.g.
// https://example.com/blog/{postID}.
func BuildBlogPostURL(baseURL, postID string) string {
	if baseURL == "" || postID == "" {
		return ""
	}
	return fmt.Sprintf("%s/blog/%s", strings.TrimSuffix(baseURL, "/"), postID)
}

// truncate shortens text to at most max bytes plus an ellipsis, cutting at
// the last sentence end when one falls in the second half.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	if max <= 3 {
		return "..."
	}
	cut := strings.ToValidUTF8(text[:max-3], "")
	if lastPeriod := strings.LastIndex(cut, "."); lastPeriod > max/2 {
		return cut[:lastPeriod] + "..."
	}
	return cut + "..."
}
