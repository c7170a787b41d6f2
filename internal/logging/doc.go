// Package logging builds the zap logger from the gateway's logging config.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr unless LOG_OUTPUT names other sinks, so command output
// on stdout stays clean.
//
// Example Usage:
//
//	logger, err := logging.New(cfg.Logging)
//	gw, err := gateway.New(cfg, gateway.WithLogger(logger.Component("gateway")))
package logging
