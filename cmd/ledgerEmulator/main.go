package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsSdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	internalAws "github.com/Layr-Labs/eigenx-ledger-go/internal/aws"
	"github.com/Layr-Labs/eigenx-ledger-go/internal/seedSource"
	"github.com/Layr-Labs/eigenx-ledger-go/internal/seedSource/awsKms"
	"github.com/Layr-Labs/eigenx-ledger-go/internal/seedSource/hexSeed"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/config"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/emulator"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "ledger-emulator",
		Usage: "Software emulator for the device signing application",
		Description: `Serves an emulated device over the same framing the device bridge uses.

The emulator derives ed25519 keys from a master seed, answers address requests
and signs chunked messages. The seed can be given in hex or as a KMS ciphertext.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "TCP listen address for framed APDUs",
				Value:   config.DefaultDeviceAddress,
				EnvVars: []string{config.EnvEmulatorListen},
			},
			&cli.StringFlag{
				Name:    "http-listen",
				Usage:   "HTTP listen address for the JSON APDU bridge (disabled when empty)",
				EnvVars: []string{config.EnvEmulatorHTTPListen},
			},
			&cli.StringFlag{
				Name:    "seed",
				Usage:   "Master seed (hex string, 16 to 64 bytes)",
				EnvVars: []string{config.EnvEmulatorSeed},
			},
			&cli.StringFlag{
				Name:    "kms-ciphertext",
				Usage:   "Master seed encrypted with AWS KMS (base64)",
				EnvVars: []string{config.EnvEmulatorKMSCiphertext},
			},
			&cli.StringFlag{
				Name:    "kms-key-region",
				Usage:   "AWS region of the KMS key",
				EnvVars: []string{config.EnvEmulatorKMSRegion},
			},
			&cli.BoolFlag{
				Name:    "reject",
				Usage:   "Refuse every confirmation prompt",
				EnvVars: []string{config.EnvEmulatorReject},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvEmulatorVerbose},
			},
		},
		Action: runEmulator,
		Commands: []*cli.Command{
			{
				Name:  "encrypt-seed",
				Usage: "Encrypt a hex seed with AWS KMS for use with --kms-ciphertext",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "kms-key-id",
						Usage:    "KMS key id, ARN or alias",
						Required: true,
					},
				},
				Action: encryptSeedCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runEmulator(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	emulatorConfig := parseEmulatorConfig(c)
	if err := emulatorConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := newSeedSource(ctx, emulatorConfig, l)
	if err != nil {
		return err
	}
	seed, err := source.Seed(ctx)
	if err != nil {
		return fmt.Errorf("failed to load seed: %w", err)
	}

	var approver emulator.Approver = emulator.AutoApprover{}
	if emulatorConfig.Reject {
		approver = emulator.RejectingApprover{}
	}

	device, err := emulator.NewDevice(&emulator.DeviceConfig{
		Seed:     seed,
		Approver: approver,
		Logger:   l,
	})
	seedSource.Zero(seed)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	server := emulator.NewServer(device, emulator.ServerConfig{
		ListenAddress:     emulatorConfig.ListenAddress,
		HTTPListenAddress: emulatorConfig.HTTPListenAddress,
	}, l)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start emulator: %w", err)
	}

	l.Sugar().Infow("Ledger emulator running",
		"tcp", server.TCPAddr(),
		"http", server.HTTPAddr(),
		"reject", emulatorConfig.Reject,
	)
	l.Sugar().Info("Press Ctrl+C to stop")

	<-ctx.Done()
	l.Sugar().Info("Shutting down")
	return server.Stop()
}

func parseEmulatorConfig(c *cli.Context) *config.EmulatorConfig {
	return &config.EmulatorConfig{
		ListenAddress:     c.String("listen"),
		HTTPListenAddress: c.String("http-listen"),
		SeedHex:           c.String("seed"),
		KMSCiphertext:     c.String("kms-ciphertext"),
		KMSRegion:         c.String("kms-key-region"),
		Reject:            c.Bool("reject"),
		Debug:             c.Bool("verbose"),
	}
}

func newSeedSource(ctx context.Context, cfg *config.EmulatorConfig, l *zap.Logger) (seedSource.ISeedSource, error) {
	if cfg.SeedHex != "" {
		return hexSeed.NewHexSeedSource(cfg.SeedHex), nil
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.KMSRegion, l)
	if err != nil {
		return nil, err
	}
	return awsKms.NewAWSKMSSeedSource(awsCfg, cfg.KMSCiphertext, l), nil
}

func loadAWSConfig(ctx context.Context, region string, l *zap.Logger) (awsSdk.Config, error) {
	awsCfg, err := internalAws.LoadAWSConfig(ctx, region)
	if err != nil {
		return awsSdk.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	identity, err := internalAws.GetCallerIdentity(ctx, awsCfg)
	if err != nil {
		return awsSdk.Config{}, fmt.Errorf("failed to get AWS caller identity: %w", err)
	}
	l.Sugar().Infow("Loaded AWS credentials",
		"account", awsSdk.ToString(identity.Account),
		"arn", awsSdk.ToString(identity.Arn),
		"region", awsCfg.Region,
	)
	return awsCfg, nil
}

func encryptSeedCommand(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	if c.String("kms-key-region") == "" {
		return fmt.Errorf("--kms-key-region is required")
	}
	seed, err := hexSeed.NewHexSeedSource(c.String("seed")).Seed(c.Context)
	if err != nil {
		return fmt.Errorf("--seed: %w", err)
	}
	defer seedSource.Zero(seed)

	awsCfg, err := loadAWSConfig(c.Context, c.String("kms-key-region"), l)
	if err != nil {
		return err
	}

	ciphertext, err := awsKms.NewAWSKMSSeedSource(awsCfg, "", l).EncryptSeed(c.Context, c.String("kms-key-id"), seed)
	if err != nil {
		return err
	}

	fmt.Println(ciphertext)
	return nil
}
