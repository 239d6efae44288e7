package server

import (
	"time"

	"github.com/merxlabs/merx/pkg/bloom"
)

// Config holds server configuration settings.
type Config struct {
	Host           string        // Server host address
	Port           int           // Server port
	ReadTimeout    time.Duration // HTTP read timeout
	WriteTimeout   time.Duration // HTTP write timeout
	IdleTimeout    time.Duration // HTTP idle timeout
	MaxRequestSize int64         // Maximum request body size in bytes
	EnableCORS     bool          // Enable CORS middleware
	AllowedOrigins []string      // CORS allowed origins
	EnableLogging  bool          // Enable request logging
	EnableGzip     bool          // Enable gzip response compression

	// Engine sizing
	BloomCapacity  int     // Existence filter capacity
	BloomErrorRate float64 // Existence filter false-positive rate

	// Result cache
	CacheSize int           // Search result cache entries; 0 disables
	CacheTTL  time.Duration // Search result cache entry lifetime

	// Admin
	AdminKey string // API key guarding the reset endpoint; empty disables

	// TLS/SSL configuration
	EnableTLS   bool   // Enable TLS/SSL
	TLSCertFile string // Path to TLS certificate file
	TLSKeyFile  string // Path to TLS private key file

	// GraphQL configuration
	EnableGraphQL bool // Enable GraphQL API endpoint
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024, // 10MB
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		EnableLogging:  true,
		EnableGzip:     true,
		BloomCapacity:  bloom.DefaultCapacity,
		BloomErrorRate: bloom.DefaultErrorRate,
		CacheSize:      1024,
		CacheTTL:       30 * time.Second,
		AdminKey:       "",
		EnableTLS:      false,
		EnableGraphQL:  false,
	}
}
