// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, API keys)
//   - Masking of credential query parameters such as the Maps "key=" inside URLs
//   - Verbose mode support for the console
//   - An optional rotating JSON log file backed by lumberjack
//
// # Usage
//
//	logger, closer, err := log.New(log.Options{Verbose: true, File: "storecrawl.log"})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	logger.Info("request failed",
//	    "url", "https://maps.googleapis.com/maps/api/place/details/json?key=AIza...",
//	) // logged as ...?key=***REDACTED***
package log
