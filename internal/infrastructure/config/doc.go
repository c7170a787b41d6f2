// Package config provides 12-factor configuration for the request gateway.
//
// Configuration starts from built-in defaults, is overlaid by an optional
// YAML or TOML file named in GATEWAY_CONFIG, and finally by environment
// variables.
//
// Configuration Sections:
//   - Endpoints: backend base URLs (prod, launcher, trading, ragfair)
//   - Versions: identity strings used until the startup refresh runs
//   - Transport: timeout, rate limit, circuit breaker
//   - Refresh: startup version refresh switch and timeout
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	gw, err := gateway.New(cfg, logger)
//
// Environment Variables:
//   - GATEWAY_PROD_URL, GATEWAY_LAUNCHER_URL, GATEWAY_TRADING_URL, GATEWAY_RAGFAIR_URL
//   - GATEWAY_LAUNCHER_VERSION, GATEWAY_GAME_VERSION, GATEWAY_UNITY_VERSION, GATEWAY_BACKEND_VERSION
//   - GATEWAY_TIMEOUT, GATEWAY_RATE_LIMIT_RPS
//   - GATEWAY_BREAKER_ENABLED, GATEWAY_BREAKER_THRESHOLD, GATEWAY_BREAKER_COOLDOWN
//   - GATEWAY_REFRESH_ON_START, GATEWAY_REFRESH_TIMEOUT
//   - LOG_LEVEL, LOG_DEV, LOG_OUTPUT
package config
