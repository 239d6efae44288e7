package main

import (
	"flag"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/merxlabs/merx/pkg/server"
)

func main() {
	host := flag.String("host", "localhost", "Server host address")
	port := flag.Int("port", 8080, "Server port")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin")
	bloomCapacity := flag.Int("bloom-capacity", 100000, "Existence filter capacity")
	bloomErrorRate := flag.Float64("bloom-error-rate", 0.001, "Existence filter false-positive rate")
	cacheSize := flag.Int("cache-size", 1024, "Search result cache entries (0 disables)")
	cacheTTL := flag.Duration("cache-ttl", 30*time.Second, "Search result cache TTL")
	adminKey := flag.String("admin-key", "", "API key guarding the admin reset endpoint (empty disables the check)")
	enableTLS := flag.Bool("tls", false, "Enable TLS/SSL")
	tlsCert := flag.String("tls-cert", "", "Path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "Path to TLS private key file")
	enableGraphQL := flag.Bool("graphql", false, "Enable GraphQL API endpoint (/graphql) and GraphiQL playground (/graphiql)")
	flag.Parse()

	config := server.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.AllowedOrigins = []string{*corsOrigin}
	config.BloomCapacity = *bloomCapacity
	config.BloomErrorRate = *bloomErrorRate
	config.CacheSize = *cacheSize
	config.CacheTTL = *cacheTTL
	config.AdminKey = *adminKey
	config.EnableTLS = *enableTLS
	config.TLSCertFile = *tlsCert
	config.TLSKeyFile = *tlsKey
	config.EnableGraphQL = *enableGraphQL

	srv, err := server.New(config)
	if err != nil {
		log.Error("failed to create server", "err", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
}
