// Package config loads typed configuration from environment variables using
// github.com/caarlos0/env struct tags, with optional .env files read through
// github.com/joho/godotenv.
//
// Every service package exposes its own Config struct (tenant.Config,
// tenantdb.Config, pg.Config, redis.Config and so on); Load fills any of them
// and memoizes the result per type.
package config
