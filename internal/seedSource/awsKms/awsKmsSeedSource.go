package awsKms

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Layr-Labs/eigenx-ledger-go/internal/seedSource"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// kmsAPI is the subset of the KMS client used here.
type kmsAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
}

// AWSKMSSeedSource decrypts a KMS-encrypted seed, so the emulator seed never
// has to be stored in plain text.
type AWSKMSSeedSource struct {
	logger     *zap.Logger
	kmsClient  kmsAPI
	awsRegion  string
	ciphertext string
}

// NewAWSKMSSeedSource creates a seed source for a base64 ciphertext blob.
func NewAWSKMSSeedSource(awsCfg aws.Config, ciphertext string, logger *zap.Logger) *AWSKMSSeedSource {
	return newAWSKMSSeedSource(kms.NewFromConfig(awsCfg), awsCfg.Region, ciphertext, logger)
}

func newAWSKMSSeedSource(client kmsAPI, region string, ciphertext string, logger *zap.Logger) *AWSKMSSeedSource {
	return &AWSKMSSeedSource{
		logger:     logger,
		kmsClient:  client,
		awsRegion:  region,
		ciphertext: strings.TrimSpace(ciphertext),
	}
}

func (a *AWSKMSSeedSource) Seed(ctx context.Context) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(a.ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "ciphertext must be base64 encoded")
	}

	out, err := a.kmsClient.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decrypt seed in region %s", a.awsRegion)
	}
	if len(out.Plaintext) == 0 {
		return nil, fmt.Errorf("decrypted seed is empty")
	}

	a.logger.Sugar().Infow("Decrypted emulator seed with KMS",
		"region", a.awsRegion,
		"key_id", aws.ToString(out.KeyId),
	)
	return out.Plaintext, nil
}

// EncryptSeed encrypts seed under keyId and returns the base64 ciphertext
// accepted by AWSKMSSeedSource.
func (a *AWSKMSSeedSource) EncryptSeed(ctx context.Context, keyId string, seed []byte) (string, error) {
	out, err := a.kmsClient.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(keyId),
		Plaintext: seed,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to encrypt seed with key %s in region %s", keyId, a.awsRegion)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

var _ seedSource.ISeedSource = (*AWSKMSSeedSource)(nil)
