package config

import (
	"flag"
	"fmt"

	"github.com/jensmemes/memeserver/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-d", "-cdn", "-blob", "-ipfs",
	"-matrix", "-matrix-token", "-matrix-domain", "-otlp", "-log",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string              HTTP bind address (e.g., ":8080")
//	-g string              gRPC health bind address, empty disables
//	-d string              PostgreSQL DSN
//	-cdn string            public CDN base URL
//	-blob string           blob backend: ipfs or s3
//	-ipfs string           IPFS API URL
//	-matrix string         Matrix homeserver URL
//	-matrix-token string   Matrix appservice token
//	-matrix-domain string  Matrix bridge domain
//	-otlp string           OTLP/HTTP trace endpoint
//	-log string            log format: json, text or zap
//
// args is filtered with flagx.FilterArgs first so -c/-config and flags
// owned by other components do not break parsing.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC health")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CDNURL, "cdn", config.CDNURL, "public CDN base URL")
	fs.StringVar(&config.BlobBackend, "blob", config.BlobBackend, "blob backend (ipfs|s3)")
	fs.StringVar(&config.IPFSAPIURL, "ipfs", config.IPFSAPIURL, "IPFS API URL")
	fs.StringVar(&config.MatrixURL, "matrix", config.MatrixURL, "Matrix homeserver URL")
	fs.StringVar(&config.MatrixToken, "matrix-token", config.MatrixToken, "Matrix appservice token")
	fs.StringVar(&config.MatrixDomain, "matrix-domain", config.MatrixDomain, "Matrix bridge domain")
	fs.StringVar(&config.OTLPEndpoint, "otlp", config.OTLPEndpoint, "OTLP/HTTP trace endpoint")
	fs.StringVar(&config.LogFormat, "log", config.LogFormat, "log format (json|text|zap)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
