package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache/factory"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/config"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/indexer"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/transport"
)

func main() {
	app := &cli.App{
		Name:  "ledger-client",
		Usage: "Client for the device signing application",
		Description: `Talks to a hardware signing device (or the emulator) through a device bridge.

This client can:
- Derive the public key and address for a derivation path
- Sign arbitrary messages, split into chunks the device accepts
- Query account balance and history from a ledger-query service`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Usage:   "Device transport: tcp or http",
				Value:   config.TransportTypeTCP.String(),
				EnvVars: []string{config.EnvLedgerTransport},
			},
			&cli.StringFlag{
				Name:    "device-address",
				Aliases: []string{"d"},
				Usage:   "Device bridge address (host:port for tcp, URL for http)",
				Value:   config.DefaultDeviceAddress,
				EnvVars: []string{config.EnvLedgerDeviceAddress},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Per-exchange timeout; confirmations on the device count against it",
				Value:   config.DefaultTimeout,
				EnvVars: []string{config.EnvLedgerTimeout},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvLedgerVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "address",
				Usage: "Derive the public key and address for a path",
				Flags: []cli.Flag{
					newPathFlag(),
					&cli.BoolFlag{
						Name:  "confirm",
						Usage: "Display the address on the device and wait for approval",
					},
				},
				Action: addressCommand,
			},
			{
				Name:  "sign",
				Usage: "Sign a message with the key at a path",
				Flags: []cli.Flag{
					newPathFlag(),
					&cli.StringFlag{
						Name:  "message",
						Usage: "Message to sign (as string)",
					},
					&cli.StringFlag{
						Name:  "message-hex",
						Usage: "Message to sign (hex string)",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Path to a file whose contents are signed",
					},
				},
				Action: signCommand,
			},
			{
				Name:   "balance",
				Usage:  "Show the balance of an account",
				Flags:  indexerFlags(),
				Action: balanceCommand,
			},
			{
				Name:  "history",
				Usage: "List recent transactions of an account",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of transactions",
						Value: 20,
					},
				}, indexerFlags()...),
				Action: historyCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "path",
		Usage:   "BIP-32 derivation path (five hardened components)",
		Value:   config.DefaultDerivationPath,
		EnvVars: []string{config.EnvLedgerPath},
	}
}

func indexerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "address",
			Usage:    "Account address (0x-prefixed, 20 bytes)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "indexer-url",
			Usage:   "Base URL of the ledger-query service",
			Value:   config.DefaultIndexerURL,
			EnvVars: []string{config.EnvLedgerIndexerURL},
		},
		&cli.Float64Flag{
			Name:    "indexer-rps",
			Usage:   "Maximum requests per second to the ledger-query service",
			Value:   config.DefaultIndexerRPS,
			EnvVars: []string{config.EnvLedgerIndexerRPS},
		},
		&cli.StringFlag{
			Name:    "cache",
			Usage:   "Response cache: none, memory, redis or badger",
			Value:   config.CacheTypeNone.String(),
			EnvVars: []string{config.EnvLedgerCache},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "How long cached responses stay valid",
			Value:   config.DefaultCacheTTL,
			EnvVars: []string{config.EnvLedgerCacheTTL},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis address (host:port) for --cache=redis",
			EnvVars: []string{config.EnvLedgerRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password for --cache=redis",
			EnvVars: []string{config.EnvLedgerRedisPassword},
		},
		&cli.StringFlag{
			Name:    "cache-dir",
			Usage:   "Badger directory for --cache=badger",
			EnvVars: []string{config.EnvLedgerCacheDir},
		},
	}
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// createClient opens the device channel and wraps it in a queued client
func createClient(c *cli.Context, l *zap.Logger) (*ledger.QueuedClient, transport.IChannel, ledger.DerivationPath, error) {
	clientConfig := &config.ClientConfig{
		Transport: config.TransportConfig{
			Type:    config.TransportType(c.String("transport")),
			Address: c.String("device-address"),
			Timeout: c.Duration("timeout"),
		},
		Path:  c.String("path"),
		Debug: c.Bool("verbose"),
	}
	if err := clientConfig.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	path, err := ledger.ParseDerivationPath(clientConfig.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	channel, err := transport.NewChannel(&clientConfig.Transport, l)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create channel: %w", err)
	}

	client, err := ledger.NewClient(&ledger.ClientConfig{
		Channel: channel,
		Logger:  l,
	})
	if err != nil {
		_ = channel.Close()
		return nil, nil, nil, fmt.Errorf("failed to create device client: %w", err)
	}

	return ledger.NewQueuedClient(client), channel, path, nil
}

// addressCommand handles the address subcommand
func addressCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	client, channel, path, err := createClient(c, l)
	if err != nil {
		return err
	}
	defer func() { _ = channel.Close() }()

	if c.Bool("confirm") {
		fmt.Printf("Confirm the address on the device for %s\n", path)
	}

	result, err := client.DeriveAddress(c.Context, path, c.Bool("confirm"))
	if err != nil {
		return fmt.Errorf("failed to derive address: %w", err)
	}

	fmt.Printf("Path:       %s\n", path)
	fmt.Printf("Public key: %s\n", hexutil.Encode(result.PublicKey))
	fmt.Printf("Address:    %s\n", result.Address)
	return nil
}

// signCommand handles the sign subcommand
func signCommand(c *cli.Context) error {
	message, err := readMessage(c)
	if err != nil {
		return err
	}

	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	client, channel, path, err := createClient(c, l)
	if err != nil {
		return err
	}
	defer func() { _ = channel.Close() }()

	fmt.Printf("Signing %d bytes with %s, confirm on the device\n", len(message), path)

	result, err := client.Sign(c.Context, path, message)
	if err != nil {
		return fmt.Errorf("failed to sign: %w", err)
	}
	if result.StatusCode != ledger.StatusOK {
		return fmt.Errorf("device did not sign: %s (0x%04x)", ledger.StatusText(result.StatusCode), result.StatusCode)
	}

	fmt.Printf("Signature: %s\n", hexutil.Encode(result.Signature))
	return nil
}

func readMessage(c *cli.Context) ([]byte, error) {
	set := 0
	for _, name := range []string{"message", "message-hex", "file"} {
		if c.IsSet(name) {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of --message, --message-hex or --file is required")
	}

	switch {
	case c.IsSet("message"):
		return []byte(c.String("message")), nil
	case c.IsSet("message-hex"):
		message, err := hexutil.Decode(c.String("message-hex"))
		if err != nil {
			return nil, fmt.Errorf("failed to decode --message-hex: %w", err)
		}
		return message, nil
	default:
		message, err := os.ReadFile(c.String("file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read message file: %w", err)
		}
		return message, nil
	}
}

// createIndexerClient builds the ledger-query client and its optional cache
func createIndexerClient(c *cli.Context, l *zap.Logger) (*indexer.Client, cache.ICache, error) {
	indexerConfig := &config.IndexerConfig{
		URL:               c.String("indexer-url"),
		RequestsPerSecond: c.Float64("indexer-rps"),
		Timeout:           c.Duration("timeout"),
		CacheTTL:          c.Duration("cache-ttl"),
	}
	cacheConfig := &config.CacheConfig{
		Type:          config.CacheType(c.String("cache")),
		KeyPrefix:     config.DefaultCacheKeyPrefix,
		RedisAddress:  c.String("redis-address"),
		RedisPassword: c.String("redis-password"),
		BadgerDir:     c.String("cache-dir"),
	}
	if err := indexerConfig.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	responseCache, err := factory.NewCache(c.Context, cacheConfig, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cache: %w", err)
	}

	client, err := indexer.NewClient(&indexer.ClientConfig{
		BaseURL:           indexerConfig.URL,
		RequestsPerSecond: indexerConfig.RequestsPerSecond,
		Burst:             indexerConfig.Burst,
		Timeout:           indexerConfig.Timeout,
		Cache:             responseCache,
		CacheTTL:          indexerConfig.CacheTTL,
		Logger:            l,
	})
	if err != nil {
		closeCache(responseCache)
		return nil, nil, fmt.Errorf("failed to create indexer client: %w", err)
	}
	return client, responseCache, nil
}

func closeCache(c cache.ICache) {
	if c != nil {
		_ = c.Close()
	}
}

// balanceCommand handles the balance subcommand
func balanceCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	client, responseCache, err := createIndexerClient(c, l)
	if err != nil {
		return err
	}
	defer closeCache(responseCache)

	balance, err := client.GetBalance(c.Context, c.String("address"))
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	formatted, err := balance.Formatted()
	if err != nil {
		return fmt.Errorf("failed to format balance: %w", err)
	}

	fmt.Printf("Address: %s\n", balance.Address)
	fmt.Printf("Balance: %s\n", formatted)
	return nil
}

// historyCommand handles the history subcommand
func historyCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	client, responseCache, err := createIndexerClient(c, l)
	if err != nil {
		return err
	}
	defer closeCache(responseCache)

	txs, err := client.GetTransactions(c.Context, c.String("address"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to get transactions: %w", err)
	}

	if len(txs) == 0 {
		fmt.Println("No transactions")
		return nil
	}
	for _, tx := range txs {
		fmt.Printf("%s  %-8d %s  %s -> %s  %s\n",
			tx.Time().Format(time.RFC3339), tx.Height, tx.Hash, tx.From, tx.To, tx.Amount)
	}
	return nil
}
