package aws

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// LoadAWSConfig loads the default credential chain. Outside Kubernetes the
// shared profile from AWS_PROFILE (or "default") is used.
func LoadAWSConfig(ctx context.Context, regionOverride string) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, loadOptions(regionOverride, isInKubernetes())...)
}

func loadOptions(regionOverride string, inKubernetes bool) []func(*config.LoadOptions) error {
	var options []func(*config.LoadOptions) error

	if !inKubernetes {
		options = append(options, config.WithSharedConfigProfile(getProfile()))
	}
	if regionOverride != "" {
		options = append(options, config.WithRegion(regionOverride))
	}
	return options
}

func isInKubernetes() bool {
	_, err := os.Stat(serviceAccountTokenPath)
	return err == nil
}

func getProfile() string {
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		return profile
	}
	return "default"
}

// GetCallerIdentity reports which principal the loaded credentials belong to.
func GetCallerIdentity(ctx context.Context, cfg aws.Config) (*sts.GetCallerIdentityOutput, error) {
	stsClient := sts.NewFromConfig(cfg)
	return stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
}
