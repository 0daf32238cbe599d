package remote

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
)

// ObjectStoreConfig holds S3-compatible connection configuration.
type ObjectStoreConfig struct {
	Endpoint       string // scheme://host[:port]
	BucketName     string
	AccessKey      string
	SecretKey      string
	Region         string
	ForcePathStyle bool   // Use path-style URLs (minio, localstack)
	PublicBaseURL  string // CDN or public bucket URL; defaults to the object URL
}

// S3ObjectStore uploads photo binaries to S3-compatible storage.
type S3ObjectStore struct {
	config     *ObjectStoreConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewS3ObjectStore creates a new S3ObjectStore.
func NewS3ObjectStore(config *ObjectStoreConfig) *S3ObjectStore {
	cfg := *config
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		cfg.Endpoint = "https://" + cfg.Endpoint
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	return &S3ObjectStore{
		config: &cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		now: time.Now,
	}
}

// Upload writes data under key and returns its public URL. Existing objects
// are overwritten.
func (s *S3ObjectStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	req, err := s.newRequest(ctx, http.MethodPut, key, bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(errors.ErrUploadError, "failed to build upload request", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrUploadError, "upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.New(errors.ErrUploadError,
			fmt.Sprintf("upload failed with status %d: %s", resp.StatusCode, string(body)))
	}

	logging.Debug("Object uploaded", map[string]interface{}{
		"key":  key,
		"size": humanize.Bytes(uint64(len(data))),
	})
	return s.PublicURL(key), nil
}

// Delete removes the object stored under key.
func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	req, err := s.newRequest(ctx, http.MethodDelete, key, nil)
	if err != nil {
		return errors.Wrap(errors.ErrUploadError, "failed to build delete request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrUploadError, "delete request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.New(errors.ErrUploadError,
			fmt.Sprintf("delete failed with status %d: %s", resp.StatusCode, string(body)))
	}
	return nil
}

// TestConnection checks that the bucket is reachable with the configured keys.
func (s *S3ObjectStore) TestConnection(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodHead, "", nil)
	if err != nil {
		return errors.Wrap(errors.ErrUploadError, "failed to build request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrUploadError, "bucket request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.New(errors.ErrAuthFault, fmt.Sprintf("bucket access denied (%d)", resp.StatusCode))
	default:
		return errors.New(errors.ErrUploadError, fmt.Sprintf("bucket check failed with status %d", resp.StatusCode))
	}
}

// PublicURL returns the URL an uploaded object is readable at.
func (s *S3ObjectStore) PublicURL(key string) string {
	if s.config.PublicBaseURL != "" {
		return strings.TrimSuffix(s.config.PublicBaseURL, "/") + "/" + escapeKey(key)
	}
	return s.objectURL(key).String()
}

// objectURL builds the request URL for key.
func (s *S3ObjectStore) objectURL(key string) *url.URL {
	u, _ := url.Parse(s.config.Endpoint)
	escaped := escapeKey(key)
	if s.config.ForcePathStyle {
		// Path-style: scheme://endpoint/bucket/key
		u.Path = "/" + s.config.BucketName + "/" + key
		u.RawPath = "/" + s.config.BucketName + "/" + escaped
	} else {
		// Virtual-host-style: scheme://bucket.endpoint/key
		u.Host = s.config.BucketName + "." + u.Host
		u.Path = "/" + key
		u.RawPath = "/" + escaped
	}
	return u
}

// newRequest creates a signed request for key.
func (s *S3ObjectStore) newRequest(ctx context.Context, method, key string, body io.Reader) (*http.Request, error) {
	u := s.objectURL(key)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	amzDate := s.now().UTC().Format("20060102T150405Z")
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", "UNSIGNED-PAYLOAD")
	req.Header.Set("Authorization", s.authorization(method, u, amzDate))
	return req, nil
}

// authorization calculates the AWS Signature V4 header for an unsigned payload.
func (s *S3ObjectStore) authorization(method string, u *url.URL, amzDate string) string {
	dateStamp := amzDate[:8]
	scope := fmt.Sprintf("%s/%s/s3/aws4_request", dateStamp, s.config.Region)

	canonicalHeaders := fmt.Sprintf("host:%s\nx-amz-content-sha256:UNSIGNED-PAYLOAD\nx-amz-date:%s\n", u.Host, amzDate)
	signedHeaders := "host;x-amz-content-sha256;x-amz-date"

	canonicalRequest := strings.Join([]string{
		method,
		u.EscapedPath(),
		u.RawQuery,
		canonicalHeaders,
		signedHeaders,
		"UNSIGNED-PAYLOAD",
	}, "\n")

	algorithm := "AWS4-HMAC-SHA256"
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		scope,
		hex.EncodeToString(hashSHA256([]byte(canonicalRequest))),
	}, "\n")

	kDate := hmacSHA256([]byte("AWS4"+s.config.SecretKey), dateStamp)
	kRegion := hmacSHA256(kDate, s.config.Region)
	kService := hmacSHA256(kRegion, "s3")
	kSigning := hmacSHA256(kService, "aws4_request")
	signature := hex.EncodeToString(hmacSHA256(kSigning, stringToSign))

	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, s.config.AccessKey, scope, signedHeaders, signature)
}

// escapeKey escapes each path segment of key.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func hashSHA256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}
