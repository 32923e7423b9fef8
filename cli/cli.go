// Package cli and it's sub packages implement the aceman command line tool.
// The CLI operates on a project directory, denoted by "ExecutionDirectory"
// in the "ExecutionContext" struct, and on the database named by its config.
//
// The ExecutionContext is passed to all the subcommands so that a singleton
// context is available for the execution. Logger and Spinner comes from the
// same context.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aceman-ct/aceman/cli/internal/db"
	"github.com/aceman-ct/aceman/cli/migrate"
	"github.com/aceman-ct/aceman/cli/migrate/database"
	"github.com/aceman-ct/aceman/cli/util"
	"github.com/aceman-ct/aceman/cli/version"
	"github.com/briandowns/spinner"
	"github.com/gofrs/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"golang.org/x/term"
)

// Other constants used in the package
const (
	// Name of the global configuration directory
	GlobalConfigDirName = ".aceman"
	// Name of the global configuration file
	GlobalConfigFileName = "config.json"

	// Name of the project configuration file, without extension
	ConfigFileName = "aceman"

	DefaultDatabaseURL         = "postgresql://aceman@localhost/aceman_development"
	DefaultMigrationsDirectory = "migrations"
)

// MigrationsConfig locates the ledger and the migration sources.
type MigrationsConfig struct {
	// Table is the ledger table name.
	Table string `mapstructure:"table" yaml:"table"`
	// Schema is the Postgres schema holding the ledger.
	Schema string `mapstructure:"schema" yaml:"schema"`
	// Directory is where `migrate create` writes new files, relative to
	// the project directory.
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// Config is the project configuration, read from aceman.yaml, the
// environment and flags.
type Config struct {
	DatabaseURL    string           `mapstructure:"database_url" yaml:"database_url"`
	DatabaseDriver string           `mapstructure:"database_driver" yaml:"database_driver"`
	MaxOpenConns   int              `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	Migrations     MigrationsConfig `mapstructure:"migrations" yaml:"migrations"`
	LockTimeout    time.Duration    `mapstructure:"lock_timeout" yaml:"lock_timeout"`
	LockStaleAfter time.Duration    `mapstructure:"lock_stale_after" yaml:"lock_stale_after"`
	PushgatewayURL string           `mapstructure:"pushgateway_url" yaml:"pushgateway_url,omitempty"`

	// MinVersion is the oldest aceman release allowed to run against this
	// project. Development builds are always allowed.
	MinVersion string `mapstructure:"min_version" yaml:"min_version,omitempty"`
}

// ExecutionContext contains various contextual information required by the
// cli at various points of it's execution. Values are filled in by the
// initializers and passed on to each command. Commands can also fill in
// values to be used further down the line.
type ExecutionContext struct {
	// CMDName is the full name of the command that is being executed.
	CMDName string

	// ID is a unique ID for this Execution
	ID string

	// Spinner is the spinner object used to show a progress indicator.
	Spinner *spinner.Spinner
	// Logger is the global logger object to print logs.
	Logger *logrus.Logger

	Stdout io.Writer
	Stderr io.Writer

	// ExecutionDirectory is the directory in which command is being executed.
	ExecutionDirectory string
	// Envfile is the .env file to load ENV vars from
	Envfile string
	// ConfigFile is the file the config was read from, if any.
	ConfigFile string

	// Config is the configuration object storing the database url, the
	// ledger location and lock settings.
	Config *Config

	// GlobalConfigDir is the ~/.aceman directory where global information is
	// stored.
	GlobalConfigDir string
	// GlobalConfigFile is the file inside GlobalConfigDir where values are
	// stored.
	GlobalConfigFile string

	// GlobalConfig holds all the configuration options.
	GlobalConfig *GlobalConfig

	// Version indicates the version object
	Version *version.Version

	// Viper indicates the viper object for the execution
	Viper *viper.Viper

	// LogLevel indicates the logrus default logging level
	LogLevel string

	// NoColor indicates if the outputs shouldn't be colorized
	NoColor bool

	// IsTerminal indicates whether the current session is a terminal or not
	IsTerminal bool

	// Fs is where migration files are scaffolded.
	Fs afero.Fs

	// Metrics collects migration metrics for the Pushgateway.
	Metrics *migrate.Metrics
}

// NewExecutionContext returns a new instance of execution context
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Envfile: ".env",
		Fs:      afero.NewOsFs(),
		Viper:   viper.New(),
	}
}

// Prepare as the name suggests, prepares the ExecutionContext ec by
// initializing most of the variables to sensible defaults, if it is not
// already set.
func (ec *ExecutionContext) Prepare() error {
	// set the command name
	cmdName := os.Args[0]
	if len(cmdName) == 0 {
		cmdName = "aceman"
	}
	ec.CMDName = cmdName

	if ec.Stdout == nil {
		ec.Stdout = os.Stdout
	}
	if ec.Stderr == nil {
		ec.Stderr = os.Stderr
	}
	if ec.Fs == nil {
		ec.Fs = afero.NewOsFs()
	}
	if ec.Viper == nil {
		ec.Viper = viper.New()
	}

	ec.IsTerminal = false
	if f, ok := ec.Stdout.(*os.File); ok {
		ec.IsTerminal = term.IsTerminal(int(f.Fd()))
	}

	// set spinner
	ec.setupSpinner()

	// set logger
	ec.setupLogger()

	// set version
	ec.setVersion()

	// setup global config
	err := ec.setupGlobalConfig()
	if err != nil {
		return errors.Wrap(err, "setting up global config failed")
	}

	// initialize a blank config
	if ec.Config == nil {
		ec.Config = &Config{}
	}

	// generate an execution id
	if ec.ID == "" {
		id := "00000000-0000-0000-0000-000000000000"
		u, err := uuid.NewV4()
		if err == nil {
			id = u.String()
		} else {
			ec.Logger.Debugf("generating uuid for execution ID failed, %v", err)
		}
		ec.ID = id
		ec.Logger.Debugf("execution id: %v", ec.ID)
	}

	if ec.Metrics == nil {
		ec.Metrics = migrate.NewMetrics()
	}
	return nil
}

// Validate prepares the ExecutionContext for commands that talk to the
// database: it finds the project directory, loads the .env file and reads
// the config.
func (ec *ExecutionContext) Validate() error {
	// validate execution directory
	err := ec.validateDirectory()
	if err != nil {
		return errors.Wrap(err, "validating current directory failed")
	}

	// load .env file
	err = ec.loadEnvfile()
	if err != nil {
		return errors.Wrap(err, "loading .env file failed")
	}

	// read config and parse the values into Config
	err = ec.readConfig()
	if err != nil {
		return errors.Wrap(err, "cannot read config")
	}

	ec.Logger.Debug("database: ", db.Redact(ec.Config.DatabaseURL))
	return nil
}

// MigrationsDirectory is where new migration files are written.
func (ec *ExecutionContext) MigrationsDirectory() string {
	dir := ec.Config.Migrations.Directory
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(ec.ExecutionDirectory, dir)
}

// LedgerConfig returns the ledger and lock settings for a migration run.
func (ec *ExecutionContext) LedgerConfig() database.Config {
	hostname, _ := os.Hostname()
	return database.Config{
		MigrationsTable: ec.Config.Migrations.Table,
		SchemaName:      ec.Config.Migrations.Schema,
		LockTimeout:     ec.Config.LockTimeout,
		LockStaleAfter:  ec.Config.LockStaleAfter,
		LockHolder:      fmt.Sprintf("%s/%s", hostname, ec.ID),
	}
}

// OpenDatabase connects to the configured database.
func (ec *ExecutionContext) OpenDatabase(ctx context.Context) (*db.DB, error) {
	return db.Open(ctx, db.Options{
		URL:          ec.Config.DatabaseURL,
		Driver:       ec.Config.DatabaseDriver,
		MaxOpenConns: ec.Config.MaxOpenConns,
	})
}

// PushMetrics sends the run metrics to the configured Pushgateway. Failures
// are logged, never returned.
func (ec *ExecutionContext) PushMetrics(ctx context.Context) {
	if ec.Config == nil || ec.Config.PushgatewayURL == "" || ec.Metrics == nil {
		return
	}
	instance := ""
	if ec.GlobalConfig != nil {
		instance = ec.GlobalConfig.UUID
	}
	if err := ec.Metrics.Push(ctx, ec.Config.PushgatewayURL, instance); err != nil {
		ec.Logger.WithError(err).Warn("cannot push metrics")
		return
	}
	ec.Logger.WithField("url", ec.Config.PushgatewayURL).Debug("metrics pushed")
}

// readConfig reads the configuration from aceman.yaml, env vars and flags,
// through viper.
func (ec *ExecutionContext) readConfig() error {
	// need to get existing viper because https://github.com/spf13/viper/issues/233
	v := ec.Viper
	v.SetFs(ec.Fs)
	v.SetEnvPrefix(util.EnvPrefix)
	v.SetEnvKeyReplacer(util.EnvKeyReplacer)
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", util.EnvName("database_url"), "POSTGRES_URL"); err != nil {
		return err
	}
	v.SetConfigName(ConfigFileName)
	v.SetDefault("database_url", DefaultDatabaseURL)
	v.SetDefault("database_driver", db.DriverPQ)
	v.SetDefault("max_open_conns", db.DefaultMaxOpenConns)
	v.SetDefault("migrations.table", database.DefaultMigrationsTable)
	v.SetDefault("migrations.schema", database.DefaultSchemaName)
	v.SetDefault("migrations.directory", DefaultMigrationsDirectory)
	v.SetDefault("lock_timeout", database.DefaultLockTimeout)
	v.SetDefault("lock_stale_after", database.DefaultLockStaleAfter)
	v.SetDefault("pushgateway_url", "")
	v.SetDefault("min_version", "")
	v.AddConfigPath(ec.ExecutionDirectory)
	if ec.GlobalConfigDir != "" {
		v.AddConfigPath(ec.GlobalConfigDir)
	}
	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(err, "cannot read config from file/env")
		}
		ec.Logger.Debug("no config file found, using env and flags")
	} else {
		ec.ConfigFile = v.ConfigFileUsed()
		ec.Logger.Debug("config read from: ", ec.ConfigFile)
	}

	config := &Config{}
	err = v.Unmarshal(config, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc()))
	if err != nil {
		return errors.Wrap(err, "cannot parse config")
	}
	if err := config.validate(); err != nil {
		return err
	}
	if err := ec.checkMinVersion(config.MinVersion); err != nil {
		return err
	}
	ec.Config = config
	return nil
}

func (ec *ExecutionContext) checkMinVersion(min string) error {
	if min == "" {
		return nil
	}
	ec.setVersion()
	ok, err := ec.Version.AtLeast(min)
	if err != nil {
		return errors.Wrapf(err, "invalid min_version %q", min)
	}
	if !ok {
		return errors.Errorf("this project requires aceman %s or newer, found %s", min, ec.Version.GetCLIVersion())
	}
	return nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is not set")
	}
	if c.MaxOpenConns <= 0 {
		return errors.Errorf("max_open_conns must be positive, got %d", c.MaxOpenConns)
	}
	if c.LockTimeout <= 0 {
		return errors.Errorf("lock_timeout must be positive, got %s", c.LockTimeout)
	}
	if c.Migrations.Table == "" {
		return errors.New("migrations.table is not set")
	}
	return nil
}

// setupSpinner creates a default spinner if the context does not already have
// one.
func (ec *ExecutionContext) setupSpinner() {
	if ec.Spinner == nil {
		spnr := spinner.New(spinner.CharSets[7], 100*time.Millisecond)
		spnr.Writer = ec.Stderr
		ec.Spinner = spnr
	}
}

// Spin stops any existing spinner and starts a new one with the given message.
func (ec *ExecutionContext) Spin(message string) {
	if ec.IsTerminal {
		ec.Spinner.Stop()
		ec.Spinner.Prefix = message
		ec.Spinner.Start()
	} else {
		ec.Logger.Println(message)
	}
}

// loadEnvfile loads .env file
func (ec *ExecutionContext) loadEnvfile() error {
	envfile := ec.Envfile
	if !filepath.IsAbs(envfile) {
		envfile = filepath.Join(ec.ExecutionDirectory, ec.Envfile)
	}
	err := gotenv.Load(envfile)
	if err != nil {
		// return error if user provided envfile name
		if ec.Envfile != ".env" {
			return err
		}
		if !os.IsNotExist(err) {
			ec.Logger.Warn(err)
		}
	}
	if err == nil {
		ec.Logger.Debug("ENV vars read from: ", envfile)
	}
	return nil
}

// setupLogger creates a default logger if context does not have one set.
func (ec *ExecutionContext) setupLogger() {
	if ec.Logger == nil {
		logger := logrus.New()
		ec.Logger = logger
	}

	if ec.LogLevel != "" {
		level, err := logrus.ParseLevel(ec.LogLevel)
		if err != nil {
			ec.Logger.WithError(err).Error("error parsing log-level flag")
			return
		}
		ec.Logger.SetLevel(level)
	}

	ec.Logger.Hooks = make(logrus.LevelHooks)
	ec.Logger.AddHook(newSpinnerHandlerHook(ec.Logger, ec.Spinner, ec.Stderr, ec.IsTerminal, ec.NoColor))
}

// SetVersion sets the version inside context, according to the variable
// 'version' set during build context.
func (ec *ExecutionContext) setVersion() {
	if ec.Version == nil {
		ec.Version = version.New()
	}
}
