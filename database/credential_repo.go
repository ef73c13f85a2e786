package database

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

type CredentialRepo struct {
	db *gorm.DB
}

func NewCredentialRepo(db *gorm.DB) *CredentialRepo {
	return &CredentialRepo{db}
}

// FindByEmail looks an account up by its lowercased email.
func (r *CredentialRepo) FindByEmail(ctx context.Context, email string) (models.Credential, error) {
	var cred models.Credential
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&cred).Error
	if err != nil {
		return models.Credential{}, readError("find", "credential", err)
	}
	return cred, nil
}

// Create stores a new account. The email is lowercased first.
func (r *CredentialRepo) Create(ctx context.Context, cred *models.Credential) error {
	cred.Email = strings.ToLower(strings.TrimSpace(cred.Email))
	err := r.db.WithContext(ctx).Create(cred).Error
	switch {
	case err == nil:
		return nil
	case isDuplicate(err):
		return errs.NewAlreadyExists("credential")
	default:
		return writeError("create", "credential", err)
	}
}
