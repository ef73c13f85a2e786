package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterLister is the slice of the SSM client used to read parameters.
type ParameterLister interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// LoadSSM completes cfg with the parameters stored below SSM_PARAMETER_PATH.
// Parameter /blog/prod/AUTH_TOKEN_SECRET becomes key AUTH_TOKEN_SECRET.
func LoadSSM(ctx context.Context, cfg map[string]string) (map[string]string, error) {
	prefix := GetString(cfg, "SSM_PARAMETER_PATH", "")
	if prefix == "" {
		return cfg, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(GetString(cfg, "AWS_REGION", "us-east-1")))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	values, err := FetchParameters(ctx, ssm.NewFromConfig(awsCfg), prefix)
	if err != nil {
		return nil, err
	}
	return Merge(cfg, values), nil
}

// FetchParameters pages through every decrypted parameter below prefix.
func FetchParameters(ctx context.Context, client ParameterLister, prefix string) (map[string]string, error) {
	values := make(map[string]string)

	var next *string
	for {
		out, err := client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			Recursive:      aws.Bool(true),
			WithDecryption: aws.Bool(true),
			NextToken:      next,
		})
		if err != nil {
			return nil, fmt.Errorf("get parameters by path %s: %w", prefix, err)
		}

		for _, p := range out.Parameters {
			name := strings.ToUpper(path.Base(aws.ToString(p.Name)))
			values[name] = aws.ToString(p.Value)
		}

		if out.NextToken == nil || *out.NextToken == "" {
			return values, nil
		}
		next = out.NextToken
	}
}
