package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultCommandTimeout bounds a single confirmed command
	DefaultCommandTimeout = 120 * time.Second
	// DefaultBackendTimeout bounds a single backend HTTP call
	DefaultBackendTimeout = 60 * time.Second
	// DefaultProbeTimeout bounds each helper command run by the system probe
	DefaultProbeTimeout = 2 * time.Second
	// DefaultRetryInterval paces backend retries
	DefaultRetryInterval = 2 * time.Second
)

// Limit constants
const (
	// DefaultMaxOutputBytes caps captured output echoed back to the backend
	DefaultMaxOutputBytes = 16 * 1024
	// DefaultMaxFixAttempts caps consecutive fix cycles
	DefaultMaxFixAttempts = 3
	// DefaultMaxRetries is the number of backend retries after the first attempt
	DefaultMaxRetries = 2
	// DefaultHistoryMessages is how many prior messages a backend replays
	DefaultHistoryMessages = 12
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 1024
)

// Shell selection
const (
	ShellAuto     = "auto"
	FallbackShell = "/bin/sh"
)
