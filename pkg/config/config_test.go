package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransportConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      TransportConfig
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid tcp",
			config: TransportConfig{Type: TransportTypeTCP, Address: "127.0.0.1:9999", Timeout: time.Second},
		},
		{
			name:   "valid http",
			config: TransportConfig{Type: TransportTypeHTTP, Address: "http://localhost:8080"},
		},
		{
			name:        "tcp without port",
			config:      TransportConfig{Type: TransportTypeTCP, Address: "localhost"},
			expectError: true,
			errorMsg:    "must be host:port",
		},
		{
			name:        "http with bad url",
			config:      TransportConfig{Type: TransportTypeHTTP, Address: "localhost:8080"},
			expectError: true,
			errorMsg:    "must be an http(s) URL",
		},
		{
			name:        "missing address",
			config:      TransportConfig{Type: TransportTypeTCP},
			expectError: true,
			errorMsg:    "address is required",
		},
		{
			name:        "unknown type",
			config:      TransportConfig{Type: "usb", Address: "x"},
			expectError: true,
			errorMsg:    "Unsupported value",
		},
		{
			name:        "negative timeout",
			config:      TransportConfig{Type: TransportTypeTCP, Address: "127.0.0.1:1", Timeout: -time.Second},
			expectError: true,
			errorMsg:    "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCacheConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      CacheConfig
		expectError bool
		errorMsg    string
	}{
		{name: "none", config: CacheConfig{Type: CacheTypeNone}},
		{name: "memory", config: CacheConfig{Type: CacheTypeMemory}},
		{name: "redis", config: CacheConfig{Type: CacheTypeRedis, RedisAddress: "localhost:6379"}},
		{name: "badger dir", config: CacheConfig{Type: CacheTypeBadger, BadgerDir: "/tmp/cache"}},
		{name: "badger in memory", config: CacheConfig{Type: CacheTypeBadger, BadgerInMemory: true}},
		{
			name:        "redis without address",
			config:      CacheConfig{Type: CacheTypeRedis},
			expectError: true,
			errorMsg:    "redisAddress is required",
		},
		{
			name:        "badger without dir",
			config:      CacheConfig{Type: CacheTypeBadger},
			expectError: true,
			errorMsg:    "badgerDir is required",
		},
		{
			name:        "unknown type",
			config:      CacheConfig{Type: "memcached"},
			expectError: true,
			errorMsg:    "cache.type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIndexerConfig_Validate(t *testing.T) {
	valid := IndexerConfig{URL: DefaultIndexerURL, RequestsPerSecond: DefaultIndexerRPS, Burst: 1, CacheTTL: DefaultCacheTTL}
	assert.NoError(t, valid.Validate())

	missing := IndexerConfig{}
	err := missing.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")

	bad := IndexerConfig{URL: "ftp://example", RequestsPerSecond: -1, Burst: -1}
	err = bad.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "indexer.url")
	assert.Contains(t, err.Error(), "indexer.requestsPerSecond")
	assert.Contains(t, err.Error(), "indexer.burst")
}

func TestClientConfig_Validate(t *testing.T) {
	cfg := &ClientConfig{
		Transport: TransportConfig{Type: TransportTypeTCP, Address: DefaultDeviceAddress, Timeout: DefaultTimeout},
		Path:      DefaultDerivationPath,
	}
	assert.NoError(t, cfg.Validate())

	cfg.Path = "44'/354'"
	cfg.Cache = &CacheConfig{Type: CacheTypeRedis}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "path")
	assert.Contains(t, err.Error(), "cache.redisAddress")
}

func TestEmulatorConfig_Validate(t *testing.T) {
	seed := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

	tests := []struct {
		name        string
		config      EmulatorConfig
		expectError bool
		errorMsg    string
	}{
		{
			name:   "hex seed",
			config: EmulatorConfig{ListenAddress: "127.0.0.1:9999", SeedHex: seed},
		},
		{
			name:   "prefixed hex seed over http",
			config: EmulatorConfig{HTTPListenAddress: ":8080", SeedHex: "0x" + seed},
		},
		{
			name:   "kms seed",
			config: EmulatorConfig{ListenAddress: ":9999", KMSCiphertext: "AQID", KMSRegion: "us-east-1"},
		},
		{
			name:        "no listener",
			config:      EmulatorConfig{SeedHex: seed},
			expectError: true,
			errorMsg:    "at least one of listenAddress",
		},
		{
			name:        "no seed",
			config:      EmulatorConfig{ListenAddress: ":9999"},
			expectError: true,
			errorMsg:    "one of seedHex or kmsCiphertext is required",
		},
		{
			name:        "both seeds",
			config:      EmulatorConfig{ListenAddress: ":9999", SeedHex: seed, KMSCiphertext: "AQID", KMSRegion: "us-east-1"},
			expectError: true,
			errorMsg:    "cannot be combined",
		},
		{
			name:        "short seed",
			config:      EmulatorConfig{ListenAddress: ":9999", SeedHex: "0102"},
			expectError: true,
			errorMsg:    "between 16 and 64 bytes",
		},
		{
			name:        "non hex seed",
			config:      EmulatorConfig{ListenAddress: ":9999", SeedHex: "zz"},
			expectError: true,
			errorMsg:    "must be hex encoded",
		},
		{
			name:        "kms without region",
			config:      EmulatorConfig{ListenAddress: ":9999", KMSCiphertext: "AQID"},
			expectError: true,
			errorMsg:    "kmsRegion is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
