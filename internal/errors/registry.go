package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E119)
	// ============================================

	"E100": {
		Category:   CategoryConfig,
		Message:    "Configuration file could not be read",
		Detail:     "The configuration file exists but is not valid YAML, or it could not be opened.",
		Suggestion: "Check the file passed with --config, or remove it to use the defaults",
	},
	"E101": {
		Category:   CategoryConfig,
		Message:    "Invalid history mode",
		Detail:     "router.history must be \"hash\" or \"path\".",
		Suggestion: "Set router.history to hash (the default) or path",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "log.level must be one of debug, info, warn or error.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid log format",
		Detail:   "log.format must be text or json.",
	},
	"E104": {
		Category:   CategoryConfig,
		Message:    "Unknown session store",
		Detail:     "session.store must be memory or sql.",
		Suggestion: "Use memory for a single instance, sql to share sessions between instances",
	},
	"E105": {
		Category:   CategoryConfig,
		Message:    "Session DSN required",
		Detail:     "The sql session store needs session.dsn to open its database.",
		Suggestion: "For SQLite set session.dsn to a file path such as starter.db",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid views source",
		Detail:   "views.source must be embed, dir or s3.",
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Views location missing",
		Detail:   "views.source=dir needs views.dir and views.source=s3 needs views.bucket.",
	},
	"E108": {
		Category:   CategoryConfig,
		Message:    "Application name is empty",
		Detail:     "app.name is used for every document title.",
		Suggestion: "Set app.name or STARTER_APP_NAME",
	},
	"E109": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "server.addr and server.metrics_addr must be host:port addresses.",
	},

	// ============================================
	// Routing Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryRouting,
		Message:  "Route table is invalid",
		Detail:   "The route table could not be compiled. Route names must be unique and every leaf route needs a view or a redirect.",
	},
	"E121": {
		Category:   CategoryRouting,
		Message:    "Guard target route not found",
		Detail:     "The auth guard redirects to routes named by guard.dashboard and guard.login. One of them is not in the route table.",
		Suggestion: "Run `starter routes` to list the route names",
	},
	"E122": {
		Category: CategoryRouting,
		Message:  "Navigation did not commit",
		Detail:   "The navigation was aborted, superseded or ended in a redirect loop.",
	},

	// ============================================
	// Session Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategorySession,
		Message:  "Session store could not be opened",
	},
	"E141": {
		Category:   CategorySession,
		Message:    "Session table could not be created",
		Suggestion: "Check that the database user may create tables, or create the table by hand",
	},

	// ============================================
	// View Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryView,
		Message:  "View could not be loaded",
		Detail:   "A view referenced by the route table failed to load or parse.",
	},

	// ============================================
	// Server and CLI Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryServer,
		Message:  "Server failed",
		Detail:   "A listener stopped with an error.",
	},
	"E170": {
		Category:   CategoryCLI,
		Message:    "Unknown output format",
		Suggestion: "Use one of: table, json, yaml",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
