// Package session stores per-browser session records.
//
// A Manager identifies sessions by cookie, keeps recently used sessions
// live in memory and persists them through a Store:
//
//	store := session.NewMemoryStore()
//	// or
//	store := session.NewSQLStore(db, session.WithSQLDialect(session.DialectSQLite))
//
//	mgr := session.NewManager(store, session.DefaultManagerConfig(), logger)
//	r.Use(mgr.Middleware)
//
// Handlers reach the session through auth.SessionFrom(r.Context()) and
// persist changes with Manager.Save.
package session
