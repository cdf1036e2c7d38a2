package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/dabirhq/dabir/internal/activities"
	"github.com/dabirhq/dabir/internal/assistant"
	"github.com/dabirhq/dabir/internal/classes"
	"github.com/dabirhq/dabir/internal/config"
	"github.com/dabirhq/dabir/internal/db"
	"github.com/dabirhq/dabir/internal/handlers"
	"github.com/dabirhq/dabir/internal/i18n"
	"github.com/dabirhq/dabir/internal/interactions"
	"github.com/dabirhq/dabir/internal/lessons"
	"github.com/dabirhq/dabir/internal/logger"
	"github.com/dabirhq/dabir/internal/messenger"
	"github.com/dabirhq/dabir/internal/messenger/bale"
	"github.com/dabirhq/dabir/internal/messenger/telegram"
	"github.com/dabirhq/dabir/internal/schools"
	"github.com/dabirhq/dabir/internal/server"
	"github.com/dabirhq/dabir/internal/users"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideDBTX,
			provideCatalog,
			provideUsersService,
			provideSchoolsService,
			provideClassesService,
			provideLessonsService,
			provideActivitiesService,
			provideInteractionsService,
			provideAssistantClient,
			provideUpstreams,
			provideSenders,
			providePipeline,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(provideUsersHandler),
			provideServerHandler(provideSchoolsHandler),
			provideServerHandler(provideClassesHandler),
			provideServerHandler(provideLessonsHandler),
			provideServerHandler(provideActivitiesHandler),
			provideServerHandler(provideAssistantHandler),
			provideServerHandler(provideTelegramWebhook),
			provideServerHandler(provideBaleWebhook),
			provideServer,
		),
		fx.Invoke(
			startMaintenance,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideDBTX(conn *pgxpool.Pool) db.DBTX { return conn }

func provideCatalog() (*i18n.Catalog, error) { return i18n.Load() }

func provideUsersService(log *slog.Logger, conn db.DBTX) *users.Service {
	return users.NewService(log, conn)
}
func provideSchoolsService(log *slog.Logger, conn db.DBTX) *schools.Service {
	return schools.NewService(log, conn)
}
func provideClassesService(log *slog.Logger, conn db.DBTX) *classes.Service {
	return classes.NewService(log, conn)
}
func provideLessonsService(log *slog.Logger, conn db.DBTX) *lessons.Service {
	return lessons.NewService(log, conn)
}
func provideActivitiesService(log *slog.Logger, conn db.DBTX) *activities.Service {
	return activities.NewService(log, conn)
}
func provideInteractionsService(log *slog.Logger, conn db.DBTX) *interactions.Service {
	return interactions.NewService(log, conn)
}

func provideAssistantClient(log *slog.Logger, cfg config.Config, catalog *i18n.Catalog) *assistant.Client {
	return assistant.NewClient(log, catalog, assistant.CandidateBaseURLs(cfg.Assistant), 0)
}

type upstreams struct {
	Local *assistant.UpstreamClient
	Cloud *assistant.UpstreamClient
}

func provideUpstreams(cfg config.Config) upstreams {
	local, cloud := assistant.UpstreamsFromConfig(cfg.Upstream)
	return upstreams{Local: local, Cloud: cloud}
}

func provideSenders(log *slog.Logger) map[messenger.Provider]messenger.Sender {
	return map[messenger.Provider]messenger.Sender{
		messenger.ProviderTelegram: telegram.NewSender(log),
		messenger.ProviderBale:     bale.NewSender(log),
	}
}

// userResolverAdapter bridges the users service onto the pipeline's resolver
// interface, folding ErrNotFound into found=false.
type userResolverAdapter struct{ users *users.Service }

func (a *userResolverAdapter) ResolveChat(ctx context.Context, provider messenger.Provider, chatID string) (messenger.ResolvedUser, bool, error) {
	user, err := a.users.FindByChatID(ctx, provider, chatID)
	if errors.Is(err, users.ErrNotFound) {
		return messenger.ResolvedUser{}, false, nil
	}
	if err != nil {
		return messenger.ResolvedUser{}, false, err
	}
	return messenger.ResolvedUser{
		ID:              user.ID,
		SchoolID:        user.SchoolID,
		ModelPreference: user.AIModelPreference,
	}, true, nil
}

// credentialSourceAdapter folds ErrNotConfigured into found=false.
type credentialSourceAdapter struct{ schools *schools.Service }

func (a *credentialSourceAdapter) BotToken(ctx context.Context, schoolID string, provider messenger.Provider) (string, bool, error) {
	token, err := a.schools.BotToken(ctx, schoolID, provider)
	if errors.Is(err, schools.ErrNotConfigured) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func providePipeline(log *slog.Logger, usersService *users.Service, schoolsService *schools.Service, interactionsService *interactions.Service, client *assistant.Client, senders map[messenger.Provider]messenger.Sender, catalog *i18n.Catalog) *messenger.Pipeline {
	return messenger.NewPipeline(
		log,
		&userResolverAdapter{users: usersService},
		&credentialSourceAdapter{schools: schoolsService},
		interactionsService,
		client,
		senders,
		catalog,
	)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideAuthHandler(log *slog.Logger, usersService *users.Service, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, usersService, cfg.Auth.JWTSecret, jwtExpiresIn(cfg))
}

func provideUsersHandler(log *slog.Logger, service *users.Service) *handlers.UsersHandler {
	return handlers.NewUsersHandler(log, service)
}
func provideSchoolsHandler(log *slog.Logger, service *schools.Service) *handlers.SchoolsHandler {
	return handlers.NewSchoolsHandler(log, service)
}
func provideClassesHandler(log *slog.Logger, service *classes.Service) *handlers.ClassesHandler {
	return handlers.NewClassesHandler(log, service)
}
func provideLessonsHandler(log *slog.Logger, service *lessons.Service) *handlers.LessonsHandler {
	return handlers.NewLessonsHandler(log, service)
}
func provideActivitiesHandler(log *slog.Logger, service *activities.Service) *handlers.ActivitiesHandler {
	return handlers.NewActivitiesHandler(log, service)
}
func provideAssistantHandler(log *slog.Logger, up upstreams) *handlers.AssistantHandler {
	return handlers.NewAssistantHandler(log, up.Local, up.Cloud)
}
func provideTelegramWebhook(log *slog.Logger, pipeline *messenger.Pipeline) *handlers.WebhookHandler {
	return handlers.NewTelegramWebhookHandler(log, pipeline)
}
func provideBaleWebhook(log *slog.Logger, pipeline *messenger.Pipeline) *handlers.WebhookHandler {
	return handlers.NewBaleWebhookHandler(log, pipeline)
}

type serverParams struct {
	fx.In
	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.Handlers)
}

func jwtExpiresIn(cfg config.Config) time.Duration {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil || expiresIn <= 0 {
		return 24 * time.Hour
	}
	return expiresIn
}

// startMaintenance schedules the nightly sweep of stale unknown-interaction
// rows.
func startMaintenance(lc fx.Lifecycle, log *slog.Logger, interactionsService *interactions.Service) {
	c := cron.New()
	_, err := c.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		removed, err := interactionsService.PruneOlderThan(ctx, interactions.DefaultRetention)
		if err != nil {
			log.Error("prune unknown interactions failed", slog.Any("error", err))
			return
		}
		if removed > 0 {
			log.Info("pruned unknown interactions", slog.Int64("removed", removed))
		}
	})
	if err != nil {
		log.Error("schedule maintenance failed", slog.Any("error", err))
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { c.Start(); return nil },
		OnStop:  func(ctx context.Context) error { <-c.Stop().Done(); return nil },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config, usersService *users.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := usersService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
				return err
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
