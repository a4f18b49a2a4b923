// Package config loads typed configuration from environment variables
// (github.com/caarlos0/env/v11), optionally seeded from dotenv files
// (github.com/joho/godotenv).
//
// Each package declares its own Config struct with env tags; the binary
// composes them:
//
//	var cfg struct {
//	    HTTP   httpserver.Config
//	    Redis  redis.Config
//	    Stripe checkout.StripeConfig
//	}
//	config.MustLoad(&cfg)
package config
