/*
Package monitoring provides Prometheus metrics for the oneterm server.

# Overview

Metrics live on a registry owned by each Metrics value rather than the
global default registry. Metrics implements terminal.Observer, so the
session manager reports spawns and teardowns directly.

# Features

- HTTP request metrics (count, latency) labelled by route template
- Session lifecycle metrics (active, spawned, closed by reason)
- Output volume and parser event counts
- WebSocket connection, message and dropped-frame metrics
- One-shot command metrics
- Uptime plus Go runtime and process collectors

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	manager := terminal.NewManager(terminal.WithObserver(metrics))

	timer := monitoring.NewTimer(metrics)
	// ... run command ...
	timer.Stop("ok")
*/
package monitoring
