package manifest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vango-dev/navroute/internal/errors"
)

// maxManifestSize bounds the bytes read from any source.
const maxManifestSize = 4 << 20

// ObjectGetter is the subset of the S3 client used to fetch manifests.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads manifests from files and S3.
type Loader struct {
	s3     ObjectGetter
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithS3 sets the client used for s3:// locations.
func WithS3(client ObjectGetter) LoaderOption {
	return func(l *Loader) {
		l.s3 = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader. Without WithS3, s3:// locations fail.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and parses the manifest at location, a file path or an
// s3://bucket/key URI.
func (l *Loader) Load(ctx context.Context, location string) (*Manifest, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(location, "s3://") {
		data, err = l.fetchS3(ctx, location)
	} else {
		data, err = readFile(location)
	}
	if err != nil {
		return nil, err
	}

	m, err := Parse(data, location)
	if err != nil {
		return nil, err
	}
	l.logger.Info("manifest loaded", "source", location, "routes", len(m.Routes), "base", m.Base)
	return m, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		e := errors.New("N040").Wrap(err)
		if os.IsNotExist(err) {
			e.WithSuggestion("Create " + path + " or set \"manifest\" in navroute.json")
		}
		return nil, e
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxManifestSize+1))
	if err != nil {
		return nil, errors.New("N040").Wrap(err)
	}
	if len(data) > maxManifestSize {
		return nil, errors.New("N040").WithDetail(fmt.Sprintf("%s exceeds %d bytes", path, maxManifestSize))
	}
	return data, nil
}

func (l *Loader) fetchS3(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}
	if l.s3 == nil {
		return nil, errors.New("N040").
			WithDetail("No S3 client is configured for " + location).
			WithSuggestion("Set s3.region in navroute.json or NAVROUTE_S3_REGION")
	}

	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New("N040").
			WithDetail("Fetching " + location + " from S3 failed").
			Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxManifestSize+1))
	if err != nil {
		return nil, errors.New("N040").Wrap(err)
	}
	if len(data) > maxManifestSize {
		return nil, errors.New("N040").WithDetail(fmt.Sprintf("%s exceeds %d bytes", location, maxManifestSize))
	}
	l.logger.Debug("manifest fetched from s3", "bucket", bucket, "key", key, "bytes", len(data))
	return data, nil
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", errors.New("N040").WithDetail(fmt.Sprintf("%q is not an s3:// URI", uri))
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.New("N040").
			WithDetail(fmt.Sprintf("%q needs both a bucket and a key", uri)).
			WithSuggestion("Use s3://bucket/path/to/routes.json")
	}
	return bucket, key, nil
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region string

	// Endpoint overrides the service endpoint, e.g. for MinIO.
	Endpoint string

	// Credentials default to the AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
	// and AWS_SESSION_TOKEN environment variables.
	Credentials aws.CredentialsProvider
}

// NewS3Client creates an S3 client for manifest fetching.
func NewS3Client(opts S3Options) *s3.Client {
	creds := opts.Credentials
	if creds == nil {
		creds = aws.CredentialsProviderFunc(envCredentials)
	}
	return s3.New(s3.Options{
		Region:       opts.Region,
		Credentials:  aws.NewCredentialsCache(creds),
		BaseEndpoint: optionalString(opts.Endpoint),
		UsePathStyle: opts.Endpoint != "",
	})
}

func envCredentials(ctx context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("manifest: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "Environment",
	}, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
