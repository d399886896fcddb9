package config

import (
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the device client
const (
	EnvLedgerTransport     = "LEDGER_TRANSPORT"
	EnvLedgerDeviceAddress = "LEDGER_DEVICE_ADDRESS"
	EnvLedgerTimeout       = "LEDGER_TIMEOUT"
	EnvLedgerPath          = "LEDGER_PATH"
	EnvLedgerVerbose       = "LEDGER_VERBOSE"
	EnvLedgerIndexerURL    = "LEDGER_INDEXER_URL"
	EnvLedgerIndexerRPS    = "LEDGER_INDEXER_RPS"
	EnvLedgerCache         = "LEDGER_CACHE"
	EnvLedgerCacheTTL      = "LEDGER_CACHE_TTL"
	EnvLedgerRedisAddress  = "LEDGER_REDIS_ADDRESS"
	EnvLedgerRedisPassword = "LEDGER_REDIS_PASSWORD"
	EnvLedgerCacheDir      = "LEDGER_CACHE_DIR"
)

// Environment variable names for the device emulator
const (
	EnvEmulatorListen        = "LEDGER_EMULATOR_LISTEN"
	EnvEmulatorHTTPListen    = "LEDGER_EMULATOR_HTTP_LISTEN"
	EnvEmulatorSeed          = "LEDGER_EMULATOR_SEED"
	EnvEmulatorKMSCiphertext = "LEDGER_EMULATOR_KMS_CIPHERTEXT"
	EnvEmulatorKMSRegion     = "LEDGER_EMULATOR_KMS_REGION"
	EnvEmulatorReject        = "LEDGER_EMULATOR_REJECT"
	EnvEmulatorVerbose       = "LEDGER_EMULATOR_VERBOSE"
)

const (
	DefaultDerivationPath = "m/44'/354'/0'/0'/0'"
	DefaultDeviceAddress  = "127.0.0.1:9999"
	DefaultTimeout        = 30 * time.Second
	DefaultCacheTTL       = 30 * time.Second
	DefaultIndexerURL     = "http://127.0.0.1:9000/api/v1"
	DefaultIndexerRPS     = 5
	DefaultCacheKeyPrefix = "ledger:"
)

type TransportType string

func (t TransportType) String() string {
	return string(t)
}

const (
	TransportTypeTCP  TransportType = "tcp"
	TransportTypeHTTP TransportType = "http"
)

type CacheType string

func (c CacheType) String() string {
	return string(c)
}

const (
	CacheTypeNone   CacheType = "none"
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
	CacheTypeBadger CacheType = "badger"
)

// TransportConfig selects how the client reaches the device
type TransportConfig struct {
	Type    TransportType `json:"type" yaml:"type"`
	Address string        `json:"address" yaml:"address"` // host:port for tcp, base URL for http
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

func (tc *TransportConfig) Validate() error {
	allErrors := tc.validate(field.NewPath("transport"))
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (tc *TransportConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList

	switch tc.Type {
	case TransportTypeTCP:
		if tc.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("address"), "address is required"))
		} else if _, _, err := net.SplitHostPort(tc.Address); err != nil {
			allErrors = append(allErrors, field.Invalid(path.Child("address"), tc.Address, "must be host:port"))
		}
	case TransportTypeHTTP:
		if tc.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("address"), "address is required"))
		} else if !isHTTPURL(tc.Address) {
			allErrors = append(allErrors, field.Invalid(path.Child("address"), tc.Address, "must be an http(s) URL"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), tc.Type,
			[]string{TransportTypeTCP.String(), TransportTypeHTTP.String()}))
	}

	if tc.Timeout < 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("timeout"), tc.Timeout.String(), "must not be negative"))
	}
	return allErrors
}

// CacheConfig configures the indexer response cache
type CacheConfig struct {
	Type      CacheType `json:"type" yaml:"type"`
	KeyPrefix string    `json:"keyPrefix" yaml:"keyPrefix"`

	// Redis
	RedisAddress  string `json:"redisAddress" yaml:"redisAddress"`
	RedisPassword string `json:"redisPassword" yaml:"redisPassword"`
	RedisDB       int    `json:"redisDB" yaml:"redisDB"`

	// Badger
	BadgerDir      string `json:"badgerDir" yaml:"badgerDir"`
	BadgerInMemory bool   `json:"badgerInMemory" yaml:"badgerInMemory"`
}

func (cc *CacheConfig) Validate() error {
	allErrors := cc.validate(field.NewPath("cache"))
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (cc *CacheConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList

	switch cc.Type {
	case CacheTypeNone, CacheTypeMemory:
	case CacheTypeRedis:
		if cc.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(path.Child("redisAddress"), "redisAddress is required for redis cache"))
		}
		if cc.RedisDB < 0 {
			allErrors = append(allErrors, field.Invalid(path.Child("redisDB"), cc.RedisDB, "must not be negative"))
		}
	case CacheTypeBadger:
		if cc.BadgerDir == "" && !cc.BadgerInMemory {
			allErrors = append(allErrors, field.Required(path.Child("badgerDir"), "badgerDir is required unless badgerInMemory is set"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), cc.Type, []string{
			CacheTypeNone.String(), CacheTypeMemory.String(), CacheTypeRedis.String(), CacheTypeBadger.String(),
		}))
	}
	return allErrors
}

// IndexerConfig configures the ledger-query client
type IndexerConfig struct {
	URL               string        `json:"url" yaml:"url"`
	RequestsPerSecond float64       `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int           `json:"burst" yaml:"burst"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	CacheTTL          time.Duration `json:"cacheTTL" yaml:"cacheTTL"`
}

func (ic *IndexerConfig) Validate() error {
	allErrors := ic.validate(field.NewPath("indexer"))
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (ic *IndexerConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if ic.URL == "" {
		allErrors = append(allErrors, field.Required(path.Child("url"), "url is required"))
	} else if !isHTTPURL(ic.URL) {
		allErrors = append(allErrors, field.Invalid(path.Child("url"), ic.URL, "must be an http(s) URL"))
	}
	if ic.RequestsPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("requestsPerSecond"), ic.RequestsPerSecond, "must not be negative"))
	}
	if ic.Burst < 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("burst"), ic.Burst, "must not be negative"))
	}
	if ic.CacheTTL < 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("cacheTTL"), ic.CacheTTL.String(), "must not be negative"))
	}
	return allErrors
}

// ClientConfig represents the complete configuration for the device client CLI
type ClientConfig struct {
	Transport TransportConfig `json:"transport" yaml:"transport"`
	Path      string          `json:"path" yaml:"path"`
	Debug     bool            `json:"debug" yaml:"debug"`

	// Optional ledger-query settings
	Indexer *IndexerConfig `json:"indexer,omitempty" yaml:"indexer,omitempty"`
	Cache   *CacheConfig   `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	allErrors := c.Transport.validate(field.NewPath("transport"))
	if c.Path != "" && !strings.HasPrefix(strings.TrimSpace(c.Path), "m/") {
		allErrors = append(allErrors, field.Invalid(field.NewPath("path"), c.Path, "must be an absolute path starting with m/"))
	}
	if c.Indexer != nil {
		allErrors = append(allErrors, c.Indexer.validate(field.NewPath("indexer"))...)
	}
	if c.Cache != nil {
		allErrors = append(allErrors, c.Cache.validate(field.NewPath("cache"))...)
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// EmulatorConfig represents the configuration for the device emulator
type EmulatorConfig struct {
	ListenAddress     string `json:"listenAddress" yaml:"listenAddress"`
	HTTPListenAddress string `json:"httpListenAddress" yaml:"httpListenAddress"`

	// Exactly one seed source
	SeedHex       string `json:"seedHex" yaml:"seedHex"`
	KMSCiphertext string `json:"kmsCiphertext" yaml:"kmsCiphertext"` // base64 ciphertext
	KMSRegion     string `json:"kmsRegion" yaml:"kmsRegion"`

	Reject bool `json:"reject" yaml:"reject"`
	Debug  bool `json:"debug" yaml:"debug"`
}

// Validate validates the emulator configuration
func (ec *EmulatorConfig) Validate() error {
	var allErrors field.ErrorList

	if ec.ListenAddress == "" && ec.HTTPListenAddress == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("listenAddress"), "at least one of listenAddress or httpListenAddress is required"))
	}
	for name, addr := range map[string]string{"listenAddress": ec.ListenAddress, "httpListenAddress": ec.HTTPListenAddress} {
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath(name), addr, "must be host:port"))
		}
	}

	switch {
	case ec.SeedHex == "" && ec.KMSCiphertext == "":
		allErrors = append(allErrors, field.Required(field.NewPath("seedHex"), "one of seedHex or kmsCiphertext is required"))
	case ec.SeedHex != "" && ec.KMSCiphertext != "":
		allErrors = append(allErrors, field.Forbidden(field.NewPath("kmsCiphertext"), "cannot be combined with seedHex"))
	case ec.SeedHex != "":
		seed, err := hexutil.Decode(withHexPrefix(ec.SeedHex))
		if err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("seedHex"), "<redacted>", "must be hex encoded"))
		} else if len(seed) < 16 || len(seed) > 64 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("seedHex"), "<redacted>", "must be between 16 and 64 bytes"))
		}
	case ec.KMSRegion == "":
		allErrors = append(allErrors, field.Required(field.NewPath("kmsRegion"), "kmsRegion is required with kmsCiphertext"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func withHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
