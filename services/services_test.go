package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rpupo63/blog-backend/content"
	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/invalidate"
	"github.com/rpupo63/blog-backend/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func samplePost() models.Blog {
	id := uuid.MustParse("0b0f5a52-5b1e-4a43-9f76-0e7a4f1f2c11")
	return models.Blog{
		ID:         id,
		Title:      "Shipping Go services",
		Excerpt:    "Notes on deploying small services.",
		AuthorName: "Bob",
		ReadTime:   7,
		Published:  true,
		Tags:       models.NewTags(id, []string{"Go", "dev ops", "2024"}),
	}
}

func TestFormatHashtag(t *testing.T) {
	assert.Equal(t, "devops", FormatHashtag(" dev-ops "))
	assert.Equal(t, "go_lang", FormatHashtag("Go_Lang"))
	assert.Equal(t, "", FormatHashtag("2024"))
	assert.Equal(t, "", FormatHashtag("  "))
	assert.Equal(t, []string{"#go", "#devops"}, Hashtags([]string{"Go", "2024", "dev ops", "web"}, 2))
}

func TestBuildBlogPostURL(t *testing.T) {
	assert.Equal(t, "https://example.com/blog/abc", BuildBlogPostURL("https://example.com/", "abc"))
	assert.Empty(t, BuildBlogPostURL("", "abc"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "First sentence...", truncate("First sentence. Second sentence goes on", 24))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestBuildTweet_FitsLimit(t *testing.T) {
	post := samplePost()
	tweet := buildTweet(post, "https://example.com")

	assert.True(t, strings.HasPrefix(tweet, post.Title+"\n\n"))
	assert.Contains(t, tweet, "https://example.com/blog/"+post.ID.String())
	assert.Contains(t, tweet, "#go #devops")
	assert.LessOrEqual(t, tweetLength(tweet), tweetMaxLength)

	post.Title = strings.Repeat("Long title ", 15)
	post.Excerpt = strings.Repeat("word ", 100)
	tweet = buildTweet(post, "https://example.com")
	assert.LessOrEqual(t, tweetLength(tweet), tweetMaxLength)
}

func TestEmailChannel_SendsThroughResend(t *testing.T) {
	var got ResendEmailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer server.Close()

	ch := NewEmailChannel("re_key", "Blog <blog@example.com>", []string{"reader@example.com"}, "https://example.com")
	ch.endpoint = server.URL

	require.NoError(t, ch.Announce(context.Background(), samplePost()))
	assert.Equal(t, "New post: Shipping Go services", got.Subject)
	assert.Equal(t, []string{"reader@example.com"}, got.To)
	assert.Contains(t, got.Html, "/blog/0b0f5a52-5b1e-4a43-9f76-0e7a4f1f2c11")
	assert.Contains(t, got.Html, "7 min read")
}

func TestEmailChannel_UpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer server.Close()

	ch := NewEmailChannel("re_key", "bad", []string{"reader@example.com"}, "")
	ch.endpoint = server.URL

	err := ch.Announce(context.Background(), samplePost())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUpstreamRejected)
	assert.Contains(t, err.Error(), "invalid from address")
}

func TestTwitterChannel_SignsRequests(t *testing.T) {
	var text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		text = body["text"]
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1","text":"ok"}}`))
	}))
	defer server.Close()

	ch := NewTwitterChannel(TwitterCredentials{"k", "ks", "t", "ts"}, "https://example.com")
	ch.endpoint = server.URL

	require.NoError(t, ch.Announce(context.Background(), samplePost()))
	assert.Contains(t, text, "Shipping Go services")
}

type readerFunc func(ctx context.Context, id uuid.UUID, scope content.Scope) (models.Blog, error)

func (f readerFunc) FetchByID(ctx context.Context, id uuid.UUID, scope content.Scope) (models.Blog, error) {
	return f(ctx, id, scope)
}

type recordingChannel struct {
	name string
	err  error
	mu   sync.Mutex
	seen []string
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Announce(_ context.Context, blog models.Blog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, blog.Title)
	return c.err
}

func TestAnnouncer_OnlyFirstPublication(t *testing.T) {
	post := samplePost()
	reader := readerFunc(func(_ context.Context, id uuid.UUID, scope content.Scope) (models.Blog, error) {
		assert.Equal(t, content.ScopePublic, scope)
		return post, nil
	})
	email := &recordingChannel{name: "email"}
	a := NewAnnouncer(reader, email)

	ev := invalidate.NewEvent(invalidate.OpUpdate, post.ID, post.CreatedAt)
	a.Handle(context.Background(), ev)

	ev.Publishes = true
	ev.Origin = "other-instance"
	a.Handle(context.Background(), ev)

	ev.Origin = ""
	a.Handle(context.Background(), ev)
	a.Close()

	assert.Equal(t, []string{post.Title}, email.seen)
}

func TestAnnouncer_FailingChannelDoesNotStopOthers(t *testing.T) {
	post := samplePost()
	reader := readerFunc(func(context.Context, uuid.UUID, content.Scope) (models.Blog, error) { return post, nil })
	broken := &recordingChannel{name: "twitter", err: errors.New("rate limited")}
	email := &recordingChannel{name: "email"}

	err := NewAnnouncer(reader, broken, email).Announce(context.Background(), post.ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "twitter: rate limited")
	assert.Len(t, email.seen, 1)
}

func TestAnnouncerFromConfig(t *testing.T) {
	a := AnnouncerFromConfig(map[string]string{}, nil)
	assert.Empty(t, a.Channels())

	a = AnnouncerFromConfig(map[string]string{
		"RESEND_API_KEY":              "re_key",
		"RESEND_FROM_EMAIL":           "blog@example.com",
		"ANNOUNCE_EMAILS":             "a@example.com, b@example.com",
		"TWITTER_API_KEY":             "k",
		"TWITTER_API_KEY_SECRET":      "ks",
		"TWITTER_ACCESS_TOKEN":        "t",
		"TWITTER_ACCESS_TOKEN_SECRET": "ts",
	}, nil)
	assert.Equal(t, []string{"email", "twitter"}, a.Channels())
}
