// Package main is a small command around the EFT request gateway.
//
// It loads configuration, builds the five profile handles, waits for the
// startup version refresh and prints the resulting identity strings.
//
// Configuration:
//   - Defaults for the live backend
//   - File named by GATEWAY_CONFIG or -config (YAML or TOML)
//   - Environment variables (override the file)
//
// Usage:
//
//	# Print the current launcher and game versions
//	./gateway
//
//	# Keep running and expose Prometheus metrics
//	./gateway -metrics :9090
//
// Signals:
//   - SIGINT, SIGTERM: stop waiting and shut down
package main
