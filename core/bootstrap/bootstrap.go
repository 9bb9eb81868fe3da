package bootstrap

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/config"
	coredatabase "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/database"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil when no history database is configured.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, prepares the image working directory, and,
// when a database host is configured, connects and applies migrations.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if err := os.MkdirAll(opts.Config.Storage.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("bootstrap: workdir init failed: %w", err)
	}

	if !opts.Config.Database.Enabled() {
		return &Result{}, nil
	}
	dbCfg := databaseConfig(opts.Config)

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(dbCfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}

// databaseConfig maps the core config section onto the database package's
// own config type. The indirection keeps core/database free of a core/config
// import, which would close a cycle through the logger.
func databaseConfig(cfg *coreconfig.Config) coredatabase.Config {
	return coredatabase.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Name:           cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections,
	}
}
