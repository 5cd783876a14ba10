package rojo

import "os"

// DebugEnabled indicates whether or not debug logging has been requested via
// the ROJO_DEBUG environment variable. It's checked by the logging package's
// Debug, Debugf and Debugln methods to avoid formatting cost when disabled.
var DebugEnabled = os.Getenv("ROJO_DEBUG") != ""
