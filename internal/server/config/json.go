package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jensmemes/memeserver/internal/flagx"
	"github.com/jensmemes/memeserver/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	CDNURL           string         `json:"cdn_url"`
	BlobBackend      string         `json:"blob_backend"`
	IPFSAPIURL       string         `json:"ipfs_api_url"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	PinTimeout       timex.Duration `json:"pin_timeout"`
	MaxUploadSize    int64          `json:"max_upload_size"`
	DailyUploadLimit int            `json:"daily_upload_limit"`
	MatrixURL        string         `json:"matrix_url"`
	MatrixToken      string         `json:"matrix_token"`
	MatrixDomain     string         `json:"matrix_domain"`
	MatrixRoom       string         `json:"matrix_room"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	OTLPEndpoint     string         `json:"otlp_endpoint"`
	LogFormat        string         `json:"log_format"`
	TrustedProxies   []string       `json:"trusted_proxies"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP: c.EndpointAddrHTTP,
		EndpointAddrGRPC: c.EndpointAddrGRPC,
		DatabaseDSN:      c.DatabaseDSN,
		CDNURL:           c.CDNURL,
		BlobBackend:      c.BlobBackend,
		IPFSAPIURL:       c.IPFSAPIURL,
		RequestTimeout:   timex.Duration{Duration: c.RequestTimeout},
		PinTimeout:       timex.Duration{Duration: c.PinTimeout},
		MaxUploadSize:    c.MaxUploadSize,
		DailyUploadLimit: c.DailyUploadLimit,
		MatrixURL:        c.MatrixURL,
		MatrixToken:      c.MatrixToken,
		MatrixDomain:     c.MatrixDomain,
		MatrixRoom:       c.MatrixRoom,
		S3RootUser:       c.S3RootUser,
		S3RootPassword:   c.S3RootPassword,
		S3Bucket:         c.S3Bucket,
		S3Region:         c.S3Region,
		S3BaseEndpoint:   c.S3BaseEndpoint,
		OTLPEndpoint:     c.OTLPEndpoint,
		LogFormat:        c.LogFormat,
		TrustedProxies:   c.TrustedProxies,
	}
}

// parseJson overlays the file named by -c/-config (or $MEMESERVER_CONFIG)
// onto config. Keys missing from the file keep their current values.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)

	// nothing to load
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.DatabaseDSN = c.DatabaseDSN
	config.CDNURL = c.CDNURL
	config.BlobBackend = c.BlobBackend
	config.IPFSAPIURL = c.IPFSAPIURL
	config.RequestTimeout = c.RequestTimeout.Duration
	config.PinTimeout = c.PinTimeout.Duration
	config.MaxUploadSize = c.MaxUploadSize
	config.DailyUploadLimit = c.DailyUploadLimit
	config.MatrixURL = c.MatrixURL
	config.MatrixToken = c.MatrixToken
	config.MatrixDomain = c.MatrixDomain
	config.MatrixRoom = c.MatrixRoom
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.OTLPEndpoint = c.OTLPEndpoint
	config.LogFormat = c.LogFormat
	config.TrustedProxies = c.TrustedProxies
	return nil
}
