package mainconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
)

func TestLocalEndpointResolver(t *testing.T) {
	resolve := localEndpointResolver("http://localhost:4566", "us-east-1")

	ep, err := resolve(sqs.ServiceID, "us-east-1")
	if err != nil {
		t.Fatalf("sqs endpoint: %v", err)
	}
	if ep.URL != "http://localhost:4566" || ep.SigningRegion != "us-east-1" {
		t.Fatalf("unexpected sqs endpoint %+v", ep)
	}

	ep, err = resolve(s3.ServiceID, "us-east-1")
	if err != nil || !ep.HostnameImmutable {
		t.Fatalf("expected path-style s3 endpoint, got %+v err=%v", ep, err)
	}

	_, err = resolve(bedrockruntime.ServiceID, "us-east-1")
	var notFound *aws.EndpointNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected bedrock to fall through, got %v", err)
	}
}

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	cfg := &appconfig.Config{
		AWSRegion:           "us-west-2",
		AWSAccessKeyID:      "AKIDEXAMPLE",
		AWSSecretAccessKey:  "secret",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if awsCfg.Region != "us-west-2" {
		t.Fatalf("expected region us-west-2, got %q", awsCfg.Region)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "AKIDEXAMPLE" {
		t.Fatalf("expected static credentials, got %q", creds.AccessKeyID)
	}
	if awsCfg.EndpointResolverWithOptions == nil {
		t.Fatal("expected endpoint resolver for override")
	}
}
