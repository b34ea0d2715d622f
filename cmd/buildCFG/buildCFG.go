package buildCFG

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type StorageConfig struct {
	BaseURL string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) *ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	return &ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("db.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("db.master_dsn is required")
	}
	var slaveDSNs []string
	if raw := cfg.GetString("db.slave_dsns"); raw != "" {
		slaveDSNs = strings.Split(raw, ",")
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("db.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("db.max_idle_conns"),
		ConnMaxLifetime: time.Duration(cfg.GetInt("db.conn_max_lifetime_seconds")) * time.Second,
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 5
	}

	log.Info().Msgf("DB config built (slaves=%d)", len(slaveDSNs))
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (*RabbitConfig, error) {
	url := cfg.GetString("rabbit.url")
	if url == "" {
		return nil, fmt.Errorf("rabbit.url is required")
	}
	rc := &RabbitConfig{
		Url:      url,
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Exchange == "" {
		rc.Exchange = "registrations.notify"
	}
	if rc.Queue == "" {
		rc.Queue = "registrations.notify.email"
	}
	log.Info().Msgf("Rabbit config built (exchange=%s, queue=%s)", rc.Exchange, rc.Queue)
	return rc, nil
}

func BuildStorageConfig(cfg *config.Config, log *zerolog.Logger) *StorageConfig {
	base := cfg.GetString("storage.base_url")
	if base == "" {
		log.Warn().Msg("storage.base_url not set, file download links will be omitted")
	}
	return &StorageConfig{BaseURL: base}
}
