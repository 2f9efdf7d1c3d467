package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rpupo63/nexusnews-backend/api"
	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rpupo63/nexusnews-backend/config"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"github.com/rpupo63/nexusnews-backend/services"
	"github.com/rpupo63/nexusnews-backend/storage"
)

// backendDeps is everything that differs between the remote and the
// in-memory deployment.
type backendDeps struct {
	db       database.Database
	provider auth.IdentityProvider
	objects  storage.ObjectStore
	blobs    *storage.MemoryStore
}

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	cfg := config.New()
	if level, err := zerolog.ParseLevel(config.GetString(cfg, "LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()
	if path := config.GetString(cfg, config.KeySSMParameterPath, ""); path != "" {
		if _, err := config.LoadSSM(ctx, cfg, path); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Error loading SSM parameters")
		}
	}

	backend := config.ResolveBackend(cfg)
	log.Info().Str("backend", backend.String()).Msg("Resolved data backend")

	var (
		deps backendDeps
		err  error
	)
	switch backend {
	case config.BackendRemote:
		var db *gorm.DB
		db, err = openPostgres(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}

		// If generating models, run generation and exit
		if config.GetBool(cfg, "GENERATE_MODELS", false) {
			fmt.Println("Generating models and query helpers...")
			models.GenerateModels(db)
			return
		}

		// If generating column mismatch report, run report and exit
		if config.GetBool(cfg, "GENERATE_COLUMN_REPORT", false) {
			fmt.Println("Generating column mismatch report...")
			models.GenerateColumnMismatchReportStandalone(db)
			return
		}

		deps, err = remoteDeps(ctx, cfg, db)
	default:
		deps, err = memoryDeps(cfg)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing backend")
	}
	defer deps.db.Close()

	authService := auth.NewService(deps.provider, deps.db.Users())
	authService.OnSessionChange(func(ev auth.SessionEvent) {
		log.Info().Str("event", string(ev.Type)).Str("userId", ev.UserID.String()).Msg("Session changed")
	})

	svcs := services.New(deps.db, authService, deps.objects, services.Options{
		StoreTimeout:    config.GetDuration(cfg, "STORE_TIMEOUT_SECONDS", 10*time.Second),
		MaxUploadBytes:  int64(config.GetInt(cfg, "MAX_UPLOAD_BYTES", services.DefaultMaxUploadBytes)),
		Mailer:          newMailer(cfg),
		ModeratorEmails: config.GetList(cfg, "MODERATOR_EMAILS"),
		SiteURL:         config.GetString(cfg, "SITE_URL", ""),
	})

	errChannel := newErrChannel()

	server, err := api.NewServer(cfg, api.Deps{
		Services:    svcs,
		Database:    deps.db,
		Blobs:       deps.blobs,
		PageSize:    config.GetInt(cfg, "PAGE_SIZE", 5),
		StartupTime: time.Now(),
	})
	if err != nil {
		fmt.Printf("Error initializing server: %v\n", err)
		os.Exit(1)
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	fmt.Printf("Closing server: %v\n", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

func openPostgres(cfg map[string]string) (*gorm.DB, error) {
	connStr := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
		config.GetString(cfg, "SUPABASE_DB_HOST", ""),
		config.GetString(cfg, "SUPABASE_DB_USER", ""),
		config.GetString(cfg, "SUPABASE_DB_PASSWORD", ""),
		config.GetString(cfg, "SUPABASE_DB_NAME", "postgres"),
		config.GetString(cfg, "SUPABASE_DB_PORT", "5432"),
	)
	fmt.Println("Connecting to Supabase database...")

	newLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
		Logger:      newLogger,
	})
	if err != nil {
		return nil, err
	}

	// Test database connection
	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("testing database connection: %w", err)
	}
	return db, nil
}

func remoteDeps(ctx context.Context, cfg map[string]string, db *gorm.DB) (backendDeps, error) {
	currentDB := database.New(db)
	if err := currentDB.Migrate(); err != nil {
		return backendDeps{}, err
	}
	if config.GetBool(cfg, "SEED_SAMPLE_DATA", false) {
		if err := database.SeedGorm(ctx, db, database.DefaultSeed()); err != nil {
			log.Warn().Err(err).Msg("Sample data not seeded")
		}
	}

	secret := config.GetString(cfg, "SUPABASE_JWT_SECRET", "")
	if secret == "" {
		return backendDeps{}, errs.NewEnvironmentVariableError("SUPABASE_JWT_SECRET")
	}
	projectURL := config.GetString(cfg, config.KeySupabaseURL, "")
	provider := auth.NewGoTrueProvider(
		projectURL,
		config.GetString(cfg, config.KeySupabaseAnonKey, ""),
		auth.NewTokens(secret, time.Hour),
		config.GetDuration(cfg, "STORE_TIMEOUT_SECONDS", 10*time.Second),
	)

	deps := backendDeps{db: currentDB, provider: provider}
	s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        config.GetString(cfg, "SUPABASE_S3_ENDPOINT", ""),
		Region:          config.GetString(cfg, "SUPABASE_S3_REGION", ""),
		AccessKeyID:     config.GetString(cfg, "SUPABASE_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: config.GetString(cfg, "SUPABASE_S3_SECRET_ACCESS_KEY", ""),
		PublicBaseURL:   projectURL,
	})
	switch {
	case errs.IsConfigError(err):
		log.Warn().Err(err).Msg("Object storage not configured, keeping uploads in memory")
		deps.blobs = storage.NewMemoryStore("")
		deps.objects = deps.blobs
	case err != nil:
		return backendDeps{}, err
	default:
		deps.objects = s3Store
	}
	return deps, nil
}

func memoryDeps(cfg map[string]string) (backendDeps, error) {
	log.Warn().Msg("Supabase is not configured, serving sample data from memory. Changes are lost on restart.")

	secret := config.GetString(cfg, "MEMORY_JWT_SECRET", "")
	if secret == "" {
		secret = uuid.NewString()
	}
	provider := auth.NewMemoryProvider(auth.NewTokens(secret, 24*time.Hour))

	seed := database.DefaultSeed()
	if err := provider.SeedUsers(seed.Users); err != nil {
		return backendDeps{}, err
	}

	blobs := storage.NewMemoryStore(config.GetString(cfg, "PUBLIC_BASE_URL", ""))
	return backendDeps{
		db:       database.NewMemory(seed),
		provider: provider,
		objects:  blobs,
		blobs:    blobs,
	}, nil
}

// newMailer returns nil unless Resend is configured.
func newMailer(cfg map[string]string) services.Mailer {
	apiKey := config.GetString(cfg, "RESEND_API_KEY", "")
	from := config.GetString(cfg, "RESEND_FROM_EMAIL", "")
	if apiKey == "" || from == "" {
		return nil
	}
	return services.NewResendMailer(apiKey, from, 10*time.Second)
}

// newErrChannel has room for the server's exit error and the interrupt, so
// neither sender blocks once main has stopped reading.
func newErrChannel() chan error {
	return make(chan error, 2)
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
