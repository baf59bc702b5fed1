package env

import (
	"errors"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// actual environment variables
var JWT_SECRET []byte
var MONGO_URI string
var MONGO_DB string
var REDIS_ADDR string
var REDIS_DB int
var DEFINITIONS_ROOT string
var LOG_LEVEL string
var LOG_FORMAT string
var PREFORK bool
var DRAIN_MODE bool

// this is required
var VERSION string

type Config struct {
	MongoURI        string `env:"MONGO_URI"        env-default:"mongodb://127.0.0.1:27017"`
	MongoDB         string `env:"MONGO_DB"         env-default:"rim"`
	RedisAddr       string `env:"REDIS_ADDR"       env-default:"127.0.0.1:6379"`
	RedisDB         int    `env:"REDIS_DB"         env-default:"0"`
	JWTSecret       string `env:"JWT_SECRET"       env-required:"true"`
	DefinitionsRoot string `env:"DEFINITIONS_ROOT"`
	LogLevel        string `env:"LOG_LEVEL"        env-default:"info"`
	LogFormat       string `env:"LOG_FORMAT"       env-default:"json"`
	Prefork         bool   `env:"PREFORK"          env-default:"false"`
	DrainMode       bool   `env:"DRAIN_MODE"       env-default:"false"`
}

func Init(envRoot string, appVersion string) {
	loadEnv(envRoot)
	loadVersion(appVersion)

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("failed to read environment: %v", err)
	}

	MONGO_URI = cfg.MongoURI
	MONGO_DB = cfg.MongoDB
	REDIS_ADDR = cfg.RedisAddr
	REDIS_DB = cfg.RedisDB
	JWT_SECRET = []byte(cfg.JWTSecret)
	LOG_LEVEL = cfg.LogLevel
	LOG_FORMAT = cfg.LogFormat
	PREFORK = cfg.Prefork
	DRAIN_MODE = cfg.DrainMode

	DEFINITIONS_ROOT = strings.TrimSpace(cfg.DefinitionsRoot)
	if DEFINITIONS_ROOT == "" {
		DEFINITIONS_ROOT = filepath.Join(repoRoot(), "definitions")
	}
}

func readConfig() (Config, error) {
	var cfg Config
	err := cleanenv.ReadEnv(&cfg)
	return cfg, err
}

func loadEnv(envRoot string) {
	if envRoot == "" {
		envRoot = repoRoot()
	}

	path := path.Join(envRoot, ".env")
	if err := godotenv.Overload(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to load env file %s: %v", path, err)
	}
}

func loadVersion(appVersion string) {
	if appVersion != "" {
		VERSION = appVersion
		return
	}

	data, err := os.ReadFile(filepath.Join(repoRoot(), "VERSION"))
	if err != nil {
		VERSION = "unknown"
		return
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed != "" {
		VERSION = trimmed
	} else {
		VERSION = "unknown"
	}
}

func repoRoot() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(b), "../..")
}
