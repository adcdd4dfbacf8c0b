package source

import (
	"context"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/prism/pkg/clients"
	"github.com/ajitpratap0/prism/pkg/errors"
)

// Location is a parsed object store URL.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string { return l.Scheme + "://" + l.Bucket + "/" + l.Key }

// IsRemote reports whether path names an object store or HTTP input.
func IsRemote(path string) bool {
	for _, prefix := range []string{"s3://", "gs://", "http://", "https://"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ParseLocation parses s3://bucket/key and gs://bucket/object URLs.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.KindSource, "invalid object URL").WithDetail("url", raw)
	}
	loc := Location{Scheme: u.Scheme, Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}
	if loc.Scheme != "s3" && loc.Scheme != "gs" {
		return Location{}, errors.Newf(errors.KindSource, "unsupported object store scheme %q", u.Scheme).
			WithDetail("url", raw)
	}
	if loc.Bucket == "" || loc.Key == "" {
		return Location{}, errors.New(errors.KindSource, "object URL needs a bucket and a key").
			WithDetail("url", raw)
	}
	return loc, nil
}

// OpenURL streams an object from S3, GCS or an HTTP(S) server. The object is
// read sequentially and never buffered whole.
func OpenURL(ctx context.Context, raw string, opts Options) (ChunkSource, error) {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return openHTTP(ctx, raw, opts)
	}
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	if loc.Scheme == "s3" {
		return openS3(ctx, loc, opts)
	}
	return openGCS(ctx, loc, opts)
}

func openS3(ctx context.Context, loc Location, opts Options) (ChunkSource, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Anonymous {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindSource, "failed to load AWS configuration")
	}

	out, err := s3.NewFromConfig(cfg).GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindSource, "failed to get object").
			WithDetail("url", loc.String())
	}
	src, err := NewDecompressingSource(out.Body, loc.Key, aws.ToInt64(out.ContentLength), opts)
	if err != nil {
		out.Body.Close()
		return nil, err
	}
	return src, nil
}

// gcsObject closes the client together with the object reader.
type gcsObject struct {
	*storage.Reader
	client *storage.Client
}

func (o gcsObject) Close() error {
	err := o.Reader.Close()
	if cerr := o.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func openGCS(ctx context.Context, loc Location, opts Options) (ChunkSource, error) {
	var clientOpts []option.ClientOption
	if opts.Anonymous {
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindSource, "failed to create GCS client")
	}

	r, err := client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.KindSource, "failed to open object").
			WithDetail("url", loc.String())
	}
	obj := gcsObject{Reader: r, client: client}
	src, err := NewDecompressingSource(obj, loc.Key, r.Attrs.Size, opts)
	if err != nil {
		obj.Close()
		return nil, err
	}
	return src, nil
}

// httpBody closes the client together with the response body.
type httpBody struct {
	io.ReadCloser
	client *clients.HTTPClient
}

func (b httpBody) Close() error {
	err := b.ReadCloser.Close()
	b.client.Close()
	return err
}

func openHTTP(ctx context.Context, raw string, opts Options) (ChunkSource, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errors.New(errors.KindSource, "invalid input URL").WithDetail("url", raw)
	}
	client := clients.NewHTTPClient(opts.HTTP, opts.Logger)
	resp, err := client.Get(ctx, raw)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.KindSource, "failed to fetch input").
			WithDetail("url", raw)
	}
	body := httpBody{ReadCloser: resp.Body, client: client}
	size := resp.ContentLength
	if size < 0 {
		size = 0
	}
	src, err := NewDecompressingSource(body, u.Path, size, opts)
	if err != nil {
		body.Close()
		return nil, err
	}
	return src, nil
}
