/*
Package monitoring provides Prometheus metrics for the request gateway.

# Overview

Every handle records its requests by profile and outcome (success,
transport_error, decompression_error, protocol_error). The startup version
refresh records each check and each version change.

Metrics live on a private registry so independent gateways (tests, tools)
never collide on registration.

# Usage

	metrics := monitoring.NewMetrics()

	timer := monitoring.NewTimer(metrics, "prod")
	// ... perform request ...
	timer.Stop(monitoring.OutcomeSuccess, len(body))

# Metrics Endpoint

	handler := promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})
	http.Handle("/metrics", handler)
*/
package monitoring
