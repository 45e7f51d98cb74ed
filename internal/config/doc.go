// Package config provides configuration management for diun2homer.
//
// Configuration is loaded from environment variables using the env package.
// All values have defaults that match the container layout: HTTP on port
// 8000 and persistent data under /app/data.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
