package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/identikit/identikit/auth"
	"github.com/identikit/identikit/httpapi"
	"github.com/identikit/identikit/pkg/blob"
	"github.com/identikit/identikit/pkg/config"
	"github.com/identikit/identikit/pkg/credential"
	"github.com/identikit/identikit/pkg/email"
	"github.com/identikit/identikit/pkg/httpserver"
	"github.com/identikit/identikit/pkg/logger"
	"github.com/identikit/identikit/provider"
	"github.com/identikit/identikit/storage/mongodb"
	storageredis "github.com/identikit/identikit/storage/redis"
)

// appConfig covers the toggles main wires itself; component configs
// are loaded per package.
type appConfig struct {
	AppName     string `env:"APP_NAME" envDefault:"identikit"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`
	// SessionBackend selects where session records live: "mongo" or
	// "redis".
	SessionBackend string `env:"SESSION_BACKEND" envDefault:"mongo"`
	S3Bucket       string `env:"S3_BUCKET"`
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
	DiscordClient  string `env:"DISCORD_CLIENT_ID"`
}

func main() {
	ctx := context.Background()

	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithService(app.AppName),
		logger.WithLevel(parseLevel(app.LogLevel)),
		logger.WithFormat(logger.Format(app.LogFormat)),
	)

	if err := run(ctx, app, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, app appConfig, log *slog.Logger) error {
	var credCfg credential.Config
	config.MustLoad(&credCfg)
	codec, err := credential.New(credCfg)
	if err != nil {
		return err
	}

	var mongoCfg mongodb.Config
	config.MustLoad(&mongoCfg)
	db, err := mongodb.ConnectDatabase(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	users := mongodb.NewUserStore(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	sessions, probes, err := buildSessionStore(ctx, app, db)
	if err != nil {
		return err
	}
	probes = append(probes, mongodb.Healthcheck(db.Client()))

	sender, err := buildSender(log)
	if err != nil {
		return err
	}
	notifier := auth.NewNotifier(sender,
		auth.WithAppName(app.AppName),
		auth.WithNotifierLogger(log),
	)

	issuer := auth.NewIssuer(codec, sessions, auth.WithIssuerLogger(log))
	guard := auth.NewGuard(codec, sessions, issuer, auth.WithGuardLogger(log))
	linker := auth.NewLinker(users, issuer, notifier, auth.WithLinkerLogger(log))

	var svcCfg auth.Config
	config.MustLoad(&svcCfg)
	svcOpts := []auth.ServiceOption{auth.WithServiceLogger(log)}
	if app.S3Bucket != "" {
		var s3Cfg blob.S3Config
		config.MustLoad(&s3Cfg)
		avatars, err := blob.NewS3Storage(ctx, s3Cfg)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, auth.WithAvatarStorage(avatars))
	}
	service := auth.NewService(users, sessions, issuer, notifier, svcCfg, svcOpts...)

	var apiCfg httpapi.Config
	config.MustLoad(&apiCfg)
	apiCfg.Environment = app.Environment

	serverOpts := []httpapi.ServerOption{httpapi.WithServerLogger(log)}
	for _, probe := range probes {
		serverOpts = append(serverOpts, httpapi.WithHealthcheck(probeAdapter(probe)))
	}
	if app.GoogleClientID != "" {
		var googleCfg provider.GoogleConfig
		config.MustLoad(&googleCfg)
		serverOpts = append(serverOpts, httpapi.WithProvider(provider.NewGoogle(googleCfg)))
	}
	if app.DiscordClient != "" {
		var discordCfg provider.DiscordConfig
		config.MustLoad(&discordCfg)
		serverOpts = append(serverOpts, httpapi.WithProvider(provider.NewDiscord(discordCfg)))
	}

	api := httpapi.NewServer(apiCfg, service, linker, guard, codec, serverOpts...)

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	srvCfg.Addr = apiCfg.Addr

	srv := httpserver.New(srvCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, api.Router())
}

// buildSessionStore picks the session backend: Redis when selected,
// the document database otherwise.
func buildSessionStore(ctx context.Context, app appConfig, db *mongo.Database) (auth.SessionStore, []func(context.Context) error, error) {
	if strings.EqualFold(app.SessionBackend, "redis") {
		var redisCfg storageredis.Config
		config.MustLoad(&redisCfg)
		client, err := storageredis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return storageredis.NewSessionStore(client),
			[]func(context.Context) error{storageredis.Healthcheck(client)},
			nil
	}

	store := mongodb.NewSessionStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

func buildSender(log *slog.Logger) (email.EmailSender, error) {
	var cfg email.Config
	config.MustLoad(&cfg)
	if cfg.PostmarkServerToken != "" {
		return email.NewPostmarkClient(cfg)
	}
	log.Warn("postmark not configured, writing emails to disk", slog.String("dir", cfg.DevDir))
	return email.NewDevSender(cfg.DevDir), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func probeAdapter(probe func(context.Context) error) func(r *http.Request) error {
	return func(r *http.Request) error { return probe(r.Context()) }
}
