/*
Package log provides structured logging for driftdb using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

driftdb's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("store")                   │          │
	│  │  - WithDocumentID("u-abc123")                │          │
	│  │  - WithQueryID("q1")                         │          │
	│  │  - WithStamp(clock.Latest().String())        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "store",                    │          │
	│  │    "time": "2026-07-31T10:30:00Z",         │          │
	│  │    "message": "transaction committed"       │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF transaction committed component=store │  │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all driftdb packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithDocumentID: Add document id context
  - WithQueryID: Add query id context
  - WithStamp: Add eventstamp (hybrid logical clock) context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "Merging snapshot: 42 documents, eventstamp=..."

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "Transaction committed: 2 added, 1 updated"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "Persistence flush skipped: no dirty documents"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "Structure mismatch merging document u-abc123 at path address"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "Failed to open persistence file: %v"

# Usage

Initializing the Logger:

	import "github.com/cuemby/driftdb/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/driftd.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("Store initialized")
	log.Debug("Checking persistence plugin state")
	log.Warn("Received snapshot with older eventstamp")
	log.Error("Failed to merge remote snapshot")
	log.Fatal("Cannot start without a data directory") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("collection", "users").
		Int("added", 3).
		Msg("Transaction committed")

	log.Logger.Error().
		Err(err).
		Str("document_id", "u-abc123").
		Msg("Merge failed")

Component Loggers:

	// Create component-specific logger
	storeLog := log.WithComponent("store")
	storeLog.Info().Msg("Starting transaction")
	storeLog.Debug().Str("document_id", "u-abc123").Msg("Staging update")

	// Multiple context fields
	queryLog := log.WithComponent("query").
		With().Str("collection", "users").
		Str("query_id", "q-active-users").Logger()
	queryLog.Info().Msg("Query hydrated")
	queryLog.Error().Err(err).Msg("Query recalculation failed")

Context Logger Helpers:

	// Document-specific logs
	docLog := log.WithDocumentID("u-abc123")
	docLog.Info().Msg("Document updated")

	// Query-specific logs, created once per Query in pkg/query.New
	queryLog := log.WithQueryID("q1")
	queryLog.Debug().Int("matched", 5).Msg("query hydrated")

	// Causality logs, tagging a merge with the clock value it produced
	stampLog := log.WithStamp(s.Clock().Latest().String())
	stampLog.Debug().Int("added", 3).Msg("snapshot merged")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/cuemby/driftdb/pkg/log"
	)

	func main() {
		// Initialize logger
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("driftd starting")

		// Component-specific logging
		storeLog := log.WithComponent("store")
		storeLog.Info().
			Str("collection", "users").
			Int("document_count", 5).
			Msg("Collection loaded")

		// Error logging
		err := errors.New("connection refused")
		log.Logger.Error().
			Err(err).
			Str("component", "httpsnap").
			Msg("Failed to reach peer")

		log.Info("driftd stopped")
	}

# Integration Points

This package integrates with:

  - pkg/store: Logs snapshot merges (via WithStamp), mutation-hook panics,
    and plugin dispose failures
  - pkg/query: Logs query hydration and incremental recalculation
    (via WithQueryID, one logger per live Query)
  - pkg/notify: Logs dropped best-effort event deliveries (via WithDocumentID)
  - pkg/persistence/boltsnap: Logs failed snapshot loads and merges in its
    poll loop
  - pkg/sync/httpsnap: Logs failed peer pulls and merges, and snapshot
    encoding failures
  - cmd/driftd: Initializes the logger from config and flags

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"store","time":"2026-07-31T10:30:00Z","message":"Store initialized"}
	{"level":"info","component":"store","collection":"users","time":"2026-07-31T10:30:01Z","message":"Transaction committed"}
	{"level":"error","component":"httpsnap","document_id":"u-abc123","error":"structure mismatch","time":"2026-07-31T10:30:02Z","message":"Merge failed"}

Console Format (Development):

	10:30:00 INF Store initialized component=store
	10:30:01 INF Transaction committed component=store collection=users
	10:30:02 ERR Merge failed component=httpsnap document_id=u-abc123 error="structure mismatch"

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Provides stack trace information
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Security

Log Content:
  - Never log secrets or sensitive data
  - Redact tokens, passwords, API keys
  - Review logs before sharing externally

Log Injection:
  - Use structured logging (prevents injection)
  - Never concatenate user input into log messages
  - Use typed fields (.Str, .Int) for user data

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for stack traces
  - Include context (collection, document id, query id)

Don't:
  - Log sensitive data (secrets, passwords)
  - Use Debug level in production
  - Log in tight loops (use sampling)
  - Concatenate strings (use .Str, .Int)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
