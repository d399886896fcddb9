package awsKms

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeKMS "encrypts" by reversing the plaintext.
type fakeKMS struct {
	err error
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

func (f *fakeKMS) Decrypt(_ context.Context, params *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &kms.DecryptOutput{Plaintext: reverse(params.CiphertextBlob), KeyId: aws.String("test-key")}, nil
}

func (f *fakeKMS) Encrypt(_ context.Context, params *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &kms.EncryptOutput{CiphertextBlob: reverse(params.Plaintext), KeyId: params.KeyId}, nil
}

func TestAWSKMSSeedSource_RoundTrip(t *testing.T) {
	ctx := context.Background()
	seed := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 8)

	encrypter := newAWSKMSSeedSource(&fakeKMS{}, "us-east-1", "", zaptest.NewLogger(t))
	ciphertext, err := encrypter.EncryptSeed(ctx, "alias/ledger-emulator", seed)
	require.NoError(t, err)

	source := newAWSKMSSeedSource(&fakeKMS{}, "us-east-1", ciphertext, zaptest.NewLogger(t))
	decrypted, err := source.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, seed, decrypted)
}

func TestAWSKMSSeedSource_Errors(t *testing.T) {
	ctx := context.Background()

	source := newAWSKMSSeedSource(&fakeKMS{}, "us-east-1", "not base64!", zaptest.NewLogger(t))
	_, err := source.Seed(ctx)
	assert.ErrorContains(t, err, "base64")

	source = newAWSKMSSeedSource(&fakeKMS{err: errors.New("AccessDenied")}, "us-east-1", "AQID", zaptest.NewLogger(t))
	_, err = source.Seed(ctx)
	assert.ErrorContains(t, err, "failed to decrypt seed in region us-east-1")
	assert.ErrorContains(t, err, "AccessDenied")

	source = newAWSKMSSeedSource(&fakeKMS{}, "us-east-1", "", zaptest.NewLogger(t))
	_, err = source.Seed(ctx)
	assert.ErrorContains(t, err, "decrypted seed is empty")
}
