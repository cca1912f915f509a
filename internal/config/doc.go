// Package config loads the starter configuration.
//
// Settings come from, in increasing precedence: built-in defaults, the
// YAML file (starter.yaml in the working directory, or --config),
// environment variables prefixed STARTER_ and command-line flags bound by
// the CLI.
//
// # Configuration File Structure
//
//	app:
//	  name: Acme Console
//	server:
//	  addr: ":8080"
//	  metrics_addr: ":9090"
//	  shutdown_timeout: 10s
//	router:
//	  history: hash        # or path
//	  max_redirects: 10
//	log:
//	  level: info
//	  format: text         # or json
//	session:
//	  store: sql           # or memory
//	  dialect: sqlite
//	  dsn: file:starter.db
//	  ttl: 24h
//	guard:
//	  dashboard: backend-dashboard
//	  login: auth-signin
//	auth:
//	  dev_login: false
//	progress:
//	  show_spinner: false
//	views:
//	  source: embed        # or dir, s3
//	  dir: ./views
//	  bucket: my-bucket
//	  prefix: views/
//	tracing:
//	  enabled: false
//
// # Environment Variables
//
// Every key maps to an upper-case variable with dots replaced by
// underscores: STARTER_APP_NAME, STARTER_SESSION_DSN, STARTER_VIEWS_SOURCE.
package config
