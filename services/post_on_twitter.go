package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dghubble/oauth1"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

const (
	tweetEndpoint  = "https://api.twitter.com/2/tweets"
	tweetMaxLength = 280
	// Twitter counts every link as this many characters.
	tweetURLLength = 23
)

// TwitterPostResponse represents the response from Twitter API v2
type TwitterPostResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// TwitterErrorResponse represents an error response from Twitter API
type TwitterErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Code    int    `json:"code,omitempty"`
	} `json:"errors"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type TwitterCredentials struct {
	APIKey            string
	APIKeySecret      string
	AccessToken       string
	AccessTokenSecret string
}

func (c TwitterCredentials) complete() bool {
	return c.APIKey != "" && c.APIKeySecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// TwitterChannel tweets new posts with an OAuth 1.0a user context.
type TwitterChannel struct {
	client   *http.Client
	baseURL  string
	endpoint string
}

func NewTwitterChannel(creds TwitterCredentials, baseURL string) *TwitterChannel {
	oauthConfig := oauth1.NewConfig(creds.APIKey, creds.APIKeySecret)
	oauthToken := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	return &TwitterChannel{
		client:   oauthConfig.Client(context.Background(), oauthToken),
		baseURL:  baseURL,
		endpoint: tweetEndpoint,
	}
}

func (c *TwitterChannel) Name() string { return "twitter" }

func (c *TwitterChannel) Announce(ctx context.Context, blog models.Blog) error {
	jsonPayload, err := json.Marshal(map[string]string{
		"text": buildTweet(blog, c.baseURL),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal Twitter payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Twitter API request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.NewServiceUnavailableError("twitter", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Twitter API response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var errorResp TwitterErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil {
			if len(errorResp.Errors) > 0 {
				return errs.NewUpstreamError("twitter", resp.StatusCode, errorResp.Errors[0].Message)
			}
			if errorResp.Detail != "" {
				return errs.NewUpstreamError("twitter", resp.StatusCode, errorResp.Detail)
			}
		}
		return errs.NewUpstreamError("twitter", resp.StatusCode, string(bodyBytes))
	}

	var postResponse TwitterPostResponse
	if err := json.Unmarshal(bodyBytes, &postResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Twitter post response, but post was created")
	} else {
		log.Info().Str("tweetId", postResponse.Data.ID).Msg("Successfully posted to Twitter")
	}
	return nil
}

// tweetLength is the length Twitter charges for text, with every link
// counted as tweetURLLength.
func tweetLength(text string) int {
	n := 0
	for _, field := range strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }) {
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			n -= len(field) - tweetURLLength
		}
	}
	return len(text) + n
}

// buildTweet lays out title, excerpt, link and up to four hashtags,
// shortening the excerpt until the result fits.
func buildTweet(blog models.Blog, baseURL string) string {
	url := BuildBlogPostURL(baseURL, blog.ID.String())
	tags := strings.Join(Hashtags(blog.TagValues(), 4), " ")

	compose := func(excerpt string) string {
		var parts []string
		for _, p := range []string{blog.Title, excerpt, url, tags} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, "\n\n")
	}

	excerpt := truncate(blog.Excerpt, 150)
	text := compose(excerpt)
	if excess := tweetLength(text) - tweetMaxLength; excess > 0 {
		if keep := len(excerpt) - excess; keep > 3 {
			text = compose(truncate(excerpt, keep))
		} else {
			text = compose("")
		}
	}
	if tweetLength(text) > tweetMaxLength {
		text = truncate(text, len(text)-(tweetLength(text)-tweetMaxLength))
	}
	return text
}
