package content

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpupo63/blog-backend/models"
)

// Store is the persistence the gateway needs. database.BlogRepo implements it.
type Store interface {
	List(ctx context.Context, publishedOnly bool) ([]models.Blog, error)
	Get(ctx context.Context, id uuid.UUID) (models.Blog, error)
	Insert(ctx context.Context, blog *models.Blog) error
	Patch(ctx context.Context, id uuid.UUID, fields map[string]any, tags *[]string) (models.Blog, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddCounter(ctx context.Context, id uuid.UUID, counter models.Counter, delta int64) error
}
