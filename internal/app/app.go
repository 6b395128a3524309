package app

import (
	"EduHub/internal/app/server"
	"EduHub/internal/config"
	"EduHub/internal/delivery/http"
	"EduHub/internal/models"
	"EduHub/internal/notify"
	"EduHub/internal/service"
	"EduHub/internal/service/auth"
	"EduHub/internal/service/content"
	"EduHub/internal/service/course"
	"EduHub/internal/service/enrollment"
	"EduHub/internal/service/progress"
	"EduHub/internal/storage/elastic"
	"EduHub/internal/storage/memory"
	"EduHub/internal/storage/minio_storage"
	"EduHub/internal/storage/postgres"
	"EduHub/pkg/logger"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
)

type searchIndex interface {
	Index(ctx context.Context, course models.Course) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) ([]uuid.UUID, int, error)
}

type videoStorage interface {
	UploadVideo(ctx context.Context, lessonID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (string, error)
	VideoURL(ctx context.Context, objectKey string) (string, error)
	DeleteVideo(ctx context.Context, objectKey string) error
}

type fileStorage interface {
	UploadFile(ctx context.Context, sectionID, resourceID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (string, error)
	FileURL(ctx context.Context, objectKey, fileName string) (string, error)
	DeleteFile(ctx context.Context, objectKey string) error
}

// backends holds the collaborators that do not depend on the relational store.
type backends struct {
	search  searchIndex
	videos  videoStorage
	files   fileStorage
	mail    *notify.Notifier
	jwt     *auth.JWTManager
	timeout time.Duration
}

func Run(cfg *config.Config) {

	log := logger.New(cfg.Env)
	log.Info("Starting with Env: " + cfg.Env)
	ctx := context.Background()

	b := backends{
		search:  newSearchIndex(ctx, log, cfg),
		mail:    notify.New(newMailSender(log, cfg), cfg.SendGrid.FromName),
		jwt:     auth.NewJWTManager(cfg.JWT.SecretKey, "eduhub", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		timeout: cfg.Content.RemoteTimeout,
	}
	b.videos, b.files = newObjectStorage(log, cfg)

	var u service.Collection
	if cfg.Postgres.Host == "" {
		log.Warn("postgres is not configured, data is kept in memory")
		u = memoryServices(log, cfg, b)
	} else {
		pg, err := postgres.NewPostgresPool(cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName)
		if err != nil {
			log.FatalErr("error connecting to database", err)
		}
		defer pg.Close()
		u = postgresServices(log, cfg, b, pg)
	}

	if cfg.Auth.Admin.Email != "" {
		err := u.Auth.EnsureAdmin(ctx, auth.SignUpInput{
			Email:    cfg.Auth.Admin.Email,
			Password: cfg.Auth.Admin.Password,
			Name:     cfg.Auth.Admin.Name,
		})
		if err != nil {
			log.FatalErr("cannot create admin profile", err)
		}
	}
	if err := u.Course.ReindexAll(ctx); err != nil {
		log.ErrorErr("course reindex failed", err)
	}

	r := http.InitRoutes(log, cfg.HTTPServer.AllowedOrigins, u)

	srv := server.New(cfg.HTTPServer.Address, cfg.HTTPServer.Timeout, cfg.HTTPServer.IdleTimeout, r)
	srv.Start()
	log.Info("http server started", "address", cfg.HTTPServer.Address)
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info("app signal: " + s.String())
	case err := <-srv.Notify():
		log.ErrorErr("http server stopped", err)
	}
	if err := srv.Shutdown(); err != nil {
		log.ErrorErr("shutdown failed", err)
	}
}

func postgresServices(log logger.Log, cfg *config.Config, b backends, pg *postgres.Storage) service.Collection {
	courses := postgres.NewCoursePostgres(pg.Pool)
	hierarchy := postgres.NewHierarchyPostgres(pg.Pool)
	resources := postgres.NewResourcePostgres(pg.Pool)
	enrollments := postgres.NewEnrollmentPostgres(pg.Pool)
	completions := postgres.NewCompletionPostgres(pg.Pool)
	profiles := postgres.NewProfilePostgres(pg.Pool)
	tokens := postgres.NewTokensPostgres(pg.Pool)

	actions := auth.NewActionTokens(tokens, cfg.Auth.ActionTokenTTL)
	hier := content.NewHierarchyService(log.With("component", "content"), courses, hierarchy, resources, b.videos, b.files, b.timeout)
	progressSvc := progress.NewProgressService(log.With("component", "progress"), hier, enrollments, completions, courses, b.timeout)
	return service.Collection{
		Auth:       auth.NewAuthService(log.With("component", "auth"), b.jwt, profiles, tokens, actions, b.mail, cfg.Auth.AppURL),
		Content:    hier,
		Course:     course.NewCourseService(log.With("component", "course"), courses, b.search, hier, enrollments, completions, b.timeout),
		Progress:   progressSvc,
		Enrollment: enrollment.NewEnrollmentService(log.With("component", "enrollment"), profiles, enrollments, progressSvc, actions, b.mail, cfg.Auth.AppURL, b.timeout),
	}
}

func memoryServices(log logger.Log, cfg *config.Config, b backends) service.Collection {
	store := memory.NewStore()

	actions := auth.NewActionTokens(store, cfg.Auth.ActionTokenTTL)
	hier := content.NewHierarchyService(log.With("component", "content"), store, store, store, b.videos, b.files, b.timeout)
	progressSvc := progress.NewProgressService(log.With("component", "progress"), hier, store, store, store, b.timeout)
	return service.Collection{
		Auth:       auth.NewAuthService(log.With("component", "auth"), b.jwt, store, store, actions, b.mail, cfg.Auth.AppURL),
		Content:    hier,
		Course:     course.NewCourseService(log.With("component", "course"), store, b.search, hier, store, store, b.timeout),
		Progress:   progressSvc,
		Enrollment: enrollment.NewEnrollmentService(log.With("component", "enrollment"), store, store, progressSvc, actions, b.mail, cfg.Auth.AppURL, b.timeout),
	}
}

// newSearchIndex connects to Elasticsearch. Without configured hosts, or
// when the cluster is unreachable, search runs on an in-process index.
func newSearchIndex(ctx context.Context, log logger.Log, cfg *config.Config) searchIndex {
	if len(cfg.ES.Hosts) == 0 {
		return memory.NewSearchIndex()
	}
	client, err := elastic.NewElasticClient(cfg.ES.Password, cfg.ES.Hosts)
	if err != nil {
		log.ErrorErr("elasticsearch unavailable, using in-process search", err)
		return memory.NewSearchIndex()
	}
	repo := elastic.NewCourseSearchRepository(client, cfg.ES.Index)
	if err = repo.CreateIndexIfNotExist(ctx); err != nil {
		log.FatalErr("cannot create search index", err)
	}
	return repo
}

func newObjectStorage(log logger.Log, cfg *config.Config) (videoStorage, fileStorage) {
	if cfg.Minio.AccessKey == "" {
		log.Warn("minio is not configured, uploads are kept in memory")
		objects := memory.NewObjectStore()
		return objects, objects
	}
	m, err := minio_storage.NewMinioStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL, cfg.Minio.Buckets)
	if err != nil {
		log.FatalErr("error connecting to minio", err)
	}
	videos, err := minio_storage.NewLessonStorage(m)
	if err != nil {
		log.FatalErr("lesson media bucket", err)
	}
	files, err := minio_storage.NewResourceStorage(m)
	if err != nil {
		log.FatalErr("section resources bucket", err)
	}
	return videos, files
}

func newMailSender(log logger.Log, cfg *config.Config) notify.Sender {
	if cfg.Env == "local" || cfg.SendGrid.APIKey == "" {
		return notify.NewConsoleSender(log.With("component", "mail"))
	}
	return notify.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromName, cfg.SendGrid.FromEmail)
}
