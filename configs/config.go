package configs

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address" env:"SERVER_ADDRESS" env-default:":8080" env-description:"HTTP listen address"`
		Mode            string        `yaml:"mode" env:"GIN_MODE" env-default:"release" env-description:"gin mode: debug, release or test"`
		FrontendURL     string        `yaml:"frontendUrl" env:"FRONTEND_URL" env-default:"http://localhost:3000" env-description:"Base URL used in password reset links"`
		AllowedOrigins  []string      `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" env-separator:"," env-description:"Origins allowed by CORS"`
		StaticDir       string        `yaml:"staticDir" env:"STATIC_DIR" env-description:"Directory with the built frontend, served when set"`
		TrustedProxies  []string      `yaml:"trustedProxies" env:"TRUSTED_PROXIES" env-separator:"," env-description:"Proxy addresses or CIDRs whose forwarding headers are trusted"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s" env-description:"Graceful shutdown timeout"`
	} `yaml:"server"`
	Database struct {
		Driver   string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres" env-description:"Storage driver: postgres, mongo or sqlite"`
		Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost" env-description:"Database host-address"`
		Port     string `yaml:"port" env:"DB_PORT" env-default:"5432" env-description:"Database port"`
		Dbname   string `yaml:"dbname" env:"DB_NAME" env-default:"blogpost" env-description:"Database name"`
		User     string `yaml:"user" env:"DB_USER" env-description:"Database user"`
		Password string `yaml:"password" env:"DB_PASSWORD" env-description:"Database password"`
		SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable" env-description:"Postgres sslmode"`
		URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017" env-description:"MongoDB connection URI"`
		Path     string `yaml:"path" env:"DB_PATH" env-default:"blogpost.db" env-description:"SQLite database file"`
	} `yaml:"database"`
	Auth struct {
		AccessSecret    string        `yaml:"accessSecret" env:"ACCESS_TOKEN_SECRET" env-description:"Secret key for access tokens"`
		RefreshSecret   string        `yaml:"refreshSecret" env:"REFRESH_TOKEN_SECRET" env-description:"Secret key for refresh tokens"`
		AccessTokenExp  time.Duration `yaml:"accessTokenExp" env:"ACCESS_TOKEN_EXP" env-default:"15m" env-description:"Expire time for access tokens"`
		RefreshTokenExp time.Duration `yaml:"refreshTokenExp" env:"REFRESH_TOKEN_EXP" env-default:"168h" env-description:"Expire time for refresh tokens"`
		ResetTokenExp   time.Duration `yaml:"resetTokenExp" env:"RESET_TOKEN_EXP" env-default:"10m" env-description:"Expire time for password reset tokens"`
		Issuer          string        `yaml:"issuer" env:"TOKEN_ISSUER" env-default:"blogpost" env-description:"JWT issuer"`
		CleanupInterval time.Duration `yaml:"cleanupInterval" env:"TOKEN_CLEANUP_INTERVAL" env-default:"1h" env-description:"How often expired refresh tokens are purged"`
		AdminEmail      string        `yaml:"adminEmail" env:"ADMIN_EMAIL" env-description:"Admin account ensured on start-up"`
		AdminPassword   string        `yaml:"adminPassword" env:"ADMIN_PASSWORD" env-description:"Password of the start-up admin account"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR" env-description:"Redis address; in-memory deny-list when empty"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-description:"Redis password"`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0" env-description:"Redis database"`
	} `yaml:"redis"`
	Mail struct {
		SendgridAPIKey string        `yaml:"sendgridApiKey" env:"SENDGRID_API_KEY" env-description:"SendGrid API key; reset links are logged when empty"`
		SendgridHost   string        `yaml:"sendgridHost" env:"SENDGRID_HOST" env-default:"https://api.sendgrid.com" env-description:"SendGrid API host"`
		FromEmail      string        `yaml:"fromEmail" env:"MAIL_FROM_EMAIL" env-default:"no-reply@blogpost.local" env-description:"Sender address"`
		FromName       string        `yaml:"fromName" env:"MAIL_FROM_NAME" env-default:"Blogpost" env-description:"Sender name"`
		MaxRetries     int           `yaml:"maxRetries" env:"MAIL_MAX_RETRIES" env-default:"3" env-description:"Retries for throttled or failed sends"`
		RetryDelay     time.Duration `yaml:"retryDelay" env:"MAIL_RETRY_DELAY" env-default:"1s" env-description:"Delay between retries"`
	} `yaml:"mail"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"5" env-description:"Auth requests per second per client"`
		Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10" env-description:"Auth burst per client"`
	} `yaml:"rateLimit"`
	Log struct {
		Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info" env-description:"Log level"`
		Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-description:"Human readable development logging"`
	} `yaml:"log"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

func processArgs(argsToParse []string) (string, map[string]string, error) {
	var configPath string
	f := flag.NewFlagSet("blogpost", flag.ContinueOnError)

	f.StringVar(&configPath, "c", "configs/config.yml", "Path to configuration file")
	f.String("a", "", "HTTP listen address")
	f.String("db-driver", "", "Storage driver: postgres, mongo or sqlite")
	f.String("db-address", "", "Database host-address")
	f.String("db-port", "", "Database port")
	f.String("db-name", "", "Database name")
	f.String("db-user", "", "Database user")
	f.String("db-password", "", "Database password")
	f.String("mongo-uri", "", "MongoDB connection URI")
	f.String("t", "", "Access token expiration duration")
	f.String("sk", "", "Secret key for access tokens")
	f.String("rsk", "", "Secret key for refresh tokens")
	f.String("redis", "", "Redis address")

	f.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		f.PrintDefaults()
	}

	if err := f.Parse(argsToParse); err != nil {
		return "", nil, err
	}

	setFlags := make(map[string]string)
	f.Visit(func(fl *flag.Flag) {
		setFlags[fl.Name] = fl.Value.String()
	})

	return configPath, setFlags, nil
}

// GetConfig reads .env, the YAML file, the environment and finally the
// command-line flags, each overriding the previous source.
func GetConfig(argsToParse []string) (*Config, error) {
	cfg := new(Config)

	configPath, setFlags, err := processArgs(argsToParse)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env read error: %w", err)
	}

	if _, statErr := os.Stat(configPath); statErr == nil {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	if err := overrideConfig(cfg, setFlags); err != nil {
		return nil, fmt.Errorf("config override error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMongo, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return fmt.Errorf("%w: access and refresh secrets are required", ErrInvalidConfig)
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrInvalidConfig)
	}
	if c.Auth.AccessTokenExp <= 0 || c.Auth.RefreshTokenExp <= 0 || c.Auth.ResetTokenExp <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrInvalidConfig)
	}
	if slices.Contains(c.Server.AllowedOrigins, "*") {
		return fmt.Errorf("%w: allowed origins must be listed explicitly, CORS requests carry credentials", ErrInvalidConfig)
	}
	return nil
}

// PostgresDSN builds the DSN understood by the pgx based gorm driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Database.Host, c.Database.User, c.Database.Password,
		c.Database.Dbname, c.Database.Port, c.Database.SSLMode,
	)
}

var flagMapping = map[string]string{
	"a":           "Server.Address",
	"db-driver":   "Database.Driver",
	"db-address":  "Database.Host",
	"db-port":     "Database.Port",
	"db-name":     "Database.Dbname",
	"db-user":     "Database.User",
	"db-password": "Database.Password",
	"mongo-uri":   "Database.URI",
	"t":           "Auth.AccessTokenExp",
	"sk":          "Auth.AccessSecret",
	"rsk":         "Auth.RefreshSecret",
	"redis":       "Redis.Addr",
}

func overrideConfig(cfg *Config, setFlags map[string]string) error {
	cfgVal := reflect.ValueOf(cfg).Elem()

	for flagName, value := range setFlags {
		fieldPath, ok := flagMapping[flagName]
		if !ok {
			continue
		}
		if err := setConfigValue(cfgVal, fieldPath, value); err != nil {
			return fmt.Errorf("flag -%s: %w", flagName, err)
		}
	}
	return nil
}

func setConfigValue(cfgVal reflect.Value, path string, value string) error {
	fields := strings.Split(path, ".")
	for i, fieldName := range fields {
		if cfgVal.Kind() == reflect.Ptr {
			cfgVal = cfgVal.Elem()
		}

		cfgField := cfgVal.FieldByName(fieldName)
		if !cfgField.IsValid() {
			return fmt.Errorf("invalid config field: %s", fieldName)
		}

		if i == len(fields)-1 {
			return setFieldValue(cfgField, value)
		}

		if cfgField.Kind() == reflect.Ptr {
			if cfgField.IsNil() {
				cfgField.Set(reflect.New(cfgField.Type().Elem()))
			}
			cfgVal = cfgField.Elem()
		} else {
			cfgVal = cfgField
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("cannot set field value")
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() { //nolint:exhaustive
	case reflect.String:
		field.SetString(value)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		field.SetInt(intVal)
		return nil

	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %w", err)
		}
		field.SetBool(boolVal)
		return nil
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
}

func LogConfig(cfg *Config, logger *zap.Logger) {
	logger.Info("loaded configuration",
		zap.String("server.address", cfg.Server.Address),
		zap.String("server.mode", cfg.Server.Mode),
		zap.String("database.driver", cfg.Database.Driver),
		zap.String("database.host", cfg.Database.Host),
		zap.String("database.port", cfg.Database.Port),
		zap.String("database.dbname", cfg.Database.Dbname),
		zap.String("database.user", cfg.Database.User),
		zap.Duration("auth.accessTokenExp", cfg.Auth.AccessTokenExp),
		zap.Duration("auth.refreshTokenExp", cfg.Auth.RefreshTokenExp),
		zap.Bool("redis.enabled", cfg.Redis.Addr != ""),
		zap.Bool("mail.sendgrid", cfg.Mail.SendgridAPIKey != ""),
	)
}
