package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rpupo63/blog-backend/models"
)

type AdminRepo struct {
	db *gorm.DB
}

func NewAdminRepo(db *gorm.DB) *AdminRepo {
	return &AdminRepo{db}
}

// FindByUID returns the admin record keyed by the identity provider uid.
func (r *AdminRepo) FindByUID(ctx context.Context, uid string) (models.Admin, error) {
	var admin models.Admin
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&admin).Error
	if err != nil {
		return models.Admin{}, readError("find", "admin", err)
	}
	return admin, nil
}

// Provision creates the admin record unless one already exists for the uid
// and returns whatever is stored. Concurrent first logins converge on one row.
func (r *AdminRepo) Provision(ctx context.Context, admin models.Admin) (models.Admin, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "uid"}}, DoNothing: true}).
		Create(&admin).Error
	if err != nil {
		return models.Admin{}, writeError("provision", "admin", err)
	}
	return r.FindByUID(ctx, admin.UID)
}

// FindAll lists every admin, oldest first.
func (r *AdminRepo) FindAll(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.WithContext(ctx).Order("created_at").Find(&admins).Error
	return admins, readError("list", "admins", err)
}
