package config

import (
	"flag"
	"time"

	"github.com/caarlos0/env/v6"

	"go-checkout/logging"
)

type Config struct {
	ListenAddr     string        `env:"LISTEN_ADDR"`
	DatabaseDSN    string        `env:"DATABASE_DSN,required"`
	GatewayBaseURL string        `env:"GATEWAY_BASE_URL,required"`
	GatewayAPIKey  string        `env:"GATEWAY_API_KEY"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL"`
	Currency       string        `env:"CURRENCY"`
	JWTSecret      string        `env:"SECRET,required"`
	AdminKey       string        `env:"ADMIN_KEY"`
	PendingMaxAge  time.Duration `env:"PENDING_ORDER_MAX_AGE"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL"`
}

func GetConfig() *Config {
	logger := logging.GetSugaredLogger()
	defer logger.Sync()

	config := &Config{}

	flag.StringVar(&config.ListenAddr, "a", ":8080", "ListenAddr")
	flag.StringVar(&config.DatabaseDSN, "d", "", "DatabaseDSN")
	flag.StringVar(&config.GatewayBaseURL, "g", "", "GatewayBaseURL")
	flag.StringVar(&config.PublicBaseURL, "p", "http://localhost:8080", "PublicBaseURL")
	flag.StringVar(&config.Currency, "c", "USD", "Currency")
	flag.DurationVar(&config.PendingMaxAge, "e", 24*time.Hour, "PendingMaxAge")
	flag.DurationVar(&config.SweepInterval, "i", 10*time.Minute, "SweepInterval")
	flag.Parse()

	err := env.Parse(config)
	if err != nil {
		logger.Debug("failed to parse environment variables:", err)
	}

	return config
}
