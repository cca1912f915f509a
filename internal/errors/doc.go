// Package errors provides coded, actionable errors for the starter CLI.
//
// Each error has a unique code (e.g., "E101") that maps to a short message,
// a longer explanation and, where one exists, a fix suggestion:
//
//	err := errors.New("E101").
//	    WithDetail(`got "memory"`).
//	    Wrap(cause)
//
//	errors.PrintError(os.Stderr, err)
//	// ERROR E101: Invalid history mode
//	//
//	//   got "memory"
//	//
//	//   Hint: Set router.history to hash (the default) or path
//
// # Error Codes
//
//   - E100-E119: configuration
//   - E120-E139: routing
//   - E140-E149: sessions
//   - E150-E159: views
//   - E160-E179: server and CLI
package errors
