package remote

import (
	"fmt"
	"strings"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
)

// Default AWS S3 endpoints by region.
var awsEndpoints = map[string]string{
	"us-east-1":      "s3.amazonaws.com",
	"us-east-2":      "s3.us-east-2.amazonaws.com",
	"us-west-1":      "s3.us-west-1.amazonaws.com",
	"us-west-2":      "s3.us-west-2.amazonaws.com",
	"eu-west-1":      "s3.eu-west-1.amazonaws.com",
	"eu-central-1":   "s3.eu-central-1.amazonaws.com",
	"ap-northeast-1": "s3.ap-northeast-1.amazonaws.com",
	"ap-southeast-1": "s3.ap-southeast-1.amazonaws.com",
	"ap-southeast-2": "s3.ap-southeast-2.amazonaws.com",
	"ca-central-1":   "s3.ca-central-1.amazonaws.com",
	"sa-east-1":      "s3.sa-east-1.amazonaws.com",
}

// StoreConfig is the provider-neutral object store configuration.
type StoreConfig struct {
	Provider      string // aws, minio or r2
	Endpoint      string // minio only: host[:port] or URL
	AccountID     string // r2 only
	BucketName    string
	AccessKey     string
	SecretKey     string
	Region        string
	UseSSL        bool
	PublicBaseURL string
}

// NewObjectStore builds an S3ObjectStore for the configured provider.
func NewObjectStore(cfg StoreConfig) (*S3ObjectStore, error) {
	if cfg.BucketName == "" {
		return nil, errors.New(errors.ErrConfig, "storage bucket is required")
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "aws", "s3":
		return NewAWSStore(cfg), nil
	case "minio":
		if cfg.Endpoint == "" {
			return nil, errors.New(errors.ErrConfig, "minio endpoint is required")
		}
		return NewMinIOStore(cfg), nil
	case "r2":
		if cfg.AccountID == "" {
			return nil, errors.New(errors.ErrConfig, "r2 account ID is required")
		}
		return NewR2Store(cfg), nil
	default:
		return nil, errors.New(errors.ErrConfig, fmt.Sprintf("unknown storage provider %q", cfg.Provider))
	}
}

// NewAWSStore configures virtual-host style access to AWS S3.
func NewAWSStore(cfg StoreConfig) *S3ObjectStore {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	endpoint, ok := awsEndpoints[region]
	if !ok {
		endpoint = fmt.Sprintf("s3.%s.amazonaws.com", region)
	}

	return NewS3ObjectStore(&ObjectStoreConfig{
		Endpoint:       "https://" + endpoint,
		BucketName:     cfg.BucketName,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		Region:         region,
		ForcePathStyle: false,
		PublicBaseURL:  cfg.PublicBaseURL,
	})
}

// NewMinIOStore configures path-style access to a MinIO server.
func NewMinIOStore(cfg StoreConfig) *S3ObjectStore {
	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}

	return NewS3ObjectStore(&ObjectStoreConfig{
		Endpoint:       strings.TrimSuffix(endpoint, "/"),
		BucketName:     cfg.BucketName,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		Region:         "us-east-1", // MinIO ignores regions but signing needs one
		ForcePathStyle: true,
		PublicBaseURL:  cfg.PublicBaseURL,
	})
}

// NewR2Store configures Cloudflare R2 (https://<account>.r2.cloudflarestorage.com).
// R2 objects are not public by default; set PublicBaseURL to the bucket's
// custom domain.
func NewR2Store(cfg StoreConfig) *S3ObjectStore {
	return NewS3ObjectStore(&ObjectStoreConfig{
		Endpoint:       fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID),
		BucketName:     cfg.BucketName,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		Region:         "auto",
		ForcePathStyle: false,
		PublicBaseURL:  cfg.PublicBaseURL,
	})
}
