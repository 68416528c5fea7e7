// Package config loads itemdesk settings.
//
// Values are layered: built-in defaults, then an optional YAML file
// (itemdesk.yaml), then a .env file, then ITEMDESK_ environment variables.
// Nested keys use a double underscore, so ITEMDESK_DATABASE__PATH sets
// database.path. The merged result is checked with struct tag validation.
//
// # Configuration File
//
//	data_dir: /var/lib/itemdesk
//	database:
//	  max_open_conns: 4
//	  busy_timeout: 5s
//	telemetry:
//	  log_level: info
//	  log_format: console
//	  tracing:
//	    enabled: false
//	    exporter: none
//	  metrics:
//	    enabled: true
//	    textfile: /var/lib/node_exporter/itemdesk.prom
//	report:
//	  title: Exported Data Report
//	  paginate: true
//	  clip_cells: true
package config
