package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/blog-backend/config"
	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

type Database struct {
	db             *gorm.DB
	blogRepo       *BlogRepo
	blogTagRepo    *BlogTagRepo
	adminRepo      *AdminRepo
	credentialRepo *CredentialRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	tagRepo := NewBlogTagRepo(db)
	return Database{
		db:             db,
		blogRepo:       NewBlogRepo(db, tagRepo),
		blogTagRepo:    tagRepo,
		adminRepo:      NewAdminRepo(db),
		credentialRepo: NewCredentialRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) BlogRepo() *BlogRepo {
	return d.blogRepo
}

func (d Database) BlogTagRepo() *BlogTagRepo {
	return d.blogTagRepo
}

func (d Database) AdminRepo() *AdminRepo {
	return d.adminRepo
}

func (d Database) CredentialRepo() *CredentialRepo {
	return d.credentialRepo
}

// DB returns the underlying connection.
func (d Database) DB() *gorm.DB {
	return d.db
}

// Ping checks that the primary answers.
func (d Database) Ping(ctx context.Context) error {
	var result int
	return d.db.WithContext(ctx).Clauses(dbresolver.Write).Raw("SELECT 1").Scan(&result).Error
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.Tables()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Open connects to the store selected by DB_TYPE (postgres, supa or sqlite)
// and registers read replicas listed in DB_REPLICA_URLS.
func Open(cfg map[string]string) (*gorm.DB, error) {
	dbType := config.GetString(cfg, "DB_TYPE", "postgres")
	gormCfg := &gorm.Config{
		PrepareStmt: false,
		Logger:      NewGormLogger(log.With().Str("component", "gorm").Logger(), config.GetSeconds(cfg, "DB_SLOW_QUERY_SECONDS", 10*time.Second)),
	}

	var dialector gorm.Dialector
	switch dbType {
	case "supa":
		dialector = postgres.New(postgres.Config{
			DSN: fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
				config.GetString(cfg, "SUPABASE_DB_HOST", ""),
				config.GetString(cfg, "SUPABASE_DB_USER", ""),
				config.GetString(cfg, "SUPABASE_DB_PASSWORD", ""),
				config.GetString(cfg, "SUPABASE_DB_NAME", ""),
				config.GetString(cfg, "SUPABASE_DB_PORT", "5432"),
			),
			PreferSimpleProtocol: true,
		})
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  postgresDSN(cfg),
			PreferSimpleProtocol: true,
		})
	case "sqlite":
		path := config.GetString(cfg, "SQLITE_PATH", "blog.db")
		dialector = sqlite.Open(path + "?_foreign_keys=on&_busy_timeout=5000")
	default:
		return nil, errs.NewConfigError("DB_TYPE", fmt.Errorf("unsupported value %q", dbType))
	}

	log.Info().Str("dbType", dbType).Msg("connecting to database")

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, errs.NewDatabaseError("open", "database", err)
	}

	if dbType == "sqlite" {
		// one writer keeps sqlite from reporting "database is locked"
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	replicas := config.GetList(cfg, "DB_REPLICA_URLS")
	if len(replicas) > 0 && dbType != "sqlite" {
		dialectors := make([]gorm.Dialector, 0, len(replicas))
		for _, dsn := range replicas {
			dialectors = append(dialectors, postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}))
		}
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: dialectors,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, fmt.Errorf("register read replicas: %w", err)
		}
		log.Info().Int("replicas", len(replicas)).Msg("read replicas registered")
	}

	return db, nil
}

func postgresDSN(cfg map[string]string) string {
	if url := config.GetString(cfg, "DATABASE_URL", ""); url != "" {
		return url
	}

	parts := []string{
		"host=" + config.GetString(cfg, "DB_HOST", "localhost"),
		"user=" + config.GetString(cfg, "DB_USER", "postgres"),
		"dbname=" + config.GetString(cfg, "DB_NAME", "blog"),
		"port=" + config.GetString(cfg, "DB_PORT", "5432"),
		"sslmode=" + config.GetString(cfg, "DB_SSLMODE", "disable"),
	}
	if password := config.GetString(cfg, "DB_PASSWORD", ""); password != "" {
		parts = append(parts, "password="+password)
	}
	return strings.Join(parts, " ")
}
