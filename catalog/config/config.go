package config

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Astemirdum/bookish-library/pkg/auth"
	cb "github.com/Astemirdum/bookish-library/pkg/circuit_breaker"
	"github.com/Astemirdum/bookish-library/pkg/kafka"
	"github.com/Astemirdum/bookish-library/pkg/logger"
	"github.com/Astemirdum/bookish-library/pkg/postgres"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"CATALOG_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"CATALOG_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE" default:"10s"`
}

type Config struct {
	Server HTTPServer `yaml:"server"`

	// Storage selects the ledger backend: memory or postgres.
	Storage  string      `yaml:"storage" envconfig:"CATALOG_STORAGE" default:"memory"`
	Seed     bool        `yaml:"seed" envconfig:"CATALOG_SEED" default:"true"`
	Database postgres.DB `yaml:"db"`
	Kafka    kafka.Config
	Auth     auth.Config
	Breaker  cb.Config
	Log      logger.Log `yaml:"log"`
}

func (c Config) validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if c.Auth.Secret == "" {
		return errors.New("empty JWT_SECRET")
	}
	return nil
}

var (
	once    sync.Once
	cfg     Config
	loadErr error
)

// NewConfig reads config from environment once; ops are applied on top of it.
func NewConfig(ops ...Option) (Config, error) {
	once.Do(func() {
		var config Config
		if err := envconfig.Process("", &config); err != nil {
			loadErr = errors.Wrap(err, "envconfig.Process")
			return
		}
		for _, op := range ops {
			op(&config)
		}
		if err := config.validate(); err != nil {
			loadErr = err
			return
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg, loadErr
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
