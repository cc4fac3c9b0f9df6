// Package config handles configuration loading for querydeck.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults; running with no file
// at all uses Default(), which serves mock data on :8080.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	genie:
//	  token: "${DATABRICKS_TOKEN}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	retry:
//	  initial_delay: "1s"
//	  max_delay: "60s"
//	status:
//	  retention: "30m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Queue sizing:
//
//	queue:
//	  capacity: 50
//	  workers: 2
//
// External service retry policy:
//
//	retry:
//	  max_attempts: 3
//	  multiplier: 2.0
//	  initial_delay: "1s"
//	  max_delay: "60s"
//
// Query service (mock: true serves deterministic sample data):
//
//	genie:
//	  mock: false
//	  endpoint: "https://example.cloud/api/genie"
//	  token: "${DATABRICKS_TOKEN}"
//	  space_id: "space-123"
//	  timeout: "30s"
//
// Insight service:
//
//	insight:
//	  endpoint: "https://api.example.com/v1/insights"
//	  api_key: "${INSIGHT_API_KEY}"
//	  model: "gpt-4o-mini"
//	  timeout: "30s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
