// Package upload mirrors a generated dataset directory into an S3 bucket.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"videogen/batch"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 5
	DefaultPrefix  = "raw"

	// Files above this size are sent as multipart uploads.
	partSize = 25 * 1024 * 1024
)

var ErrNoFiles = errors.New("upload: no data files found")

type Config struct {
	Bucket   string
	LocalDir string
	Prefix   string
	Region   string
	Workers  int
}

// File is one local file and the object key it is uploaded to.
type File struct {
	Path string
	Key  string
}

type Result struct {
	Uploaded int64
	Failed   int64
}

type Uploader struct {
	cfg      Config
	client   s3iface.S3API
	uploader s3manageriface.UploaderAPI

	done   atomic.Int64
	failed atomic.Int64
}

func Open(cfg Config) (*Uploader, error) {
	ss, err := session.NewSession(aws.NewConfig().WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	client := s3.New(ss)
	uploader := s3manager.NewUploaderWithClient(client, func(u *s3manager.Uploader) {
		u.PartSize = partSize
		u.Concurrency = 10
	})
	return New(cfg, client, uploader), nil
}

func New(cfg Config, client s3iface.S3API, uploader s3manageriface.UploaderAPI) *Uploader {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Uploader{cfg: cfg, client: client, uploader: uploader}
}

// CallerIdentity returns the ARN of the credentials in use.
func CallerIdentity(ctx context.Context, region string) (string, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	return *identity.Arn, nil
}

// VerifyBucket checks that the bucket exists and is reachable with the
// current credentials.
func (u *Uploader) VerifyBucket(ctx context.Context) error {
	_, err := u.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.cfg.Bucket)})
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "NotFound", s3.ErrCodeNoSuchBucket:
			return fmt.Errorf("bucket %s does not exist", u.cfg.Bucket)
		case "Forbidden":
			return fmt.Errorf("access denied to bucket %s", u.cfg.Bucket)
		}
	}
	return fmt.Errorf("head bucket %s: %w", u.cfg.Bucket, err)
}

func isDataFile(name string) bool {
	return strings.HasSuffix(name, ".parquet") || name == batch.MetadataFile
}

// Files lists the data files under dir with their object keys. Keys keep
// the path relative to dir, joined to prefix with forward slashes.
func Files(dir, prefix string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDataFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, File{Path: p, Key: path.Join(prefix, filepath.ToSlash(rel))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return files, nil
}

func (u *Uploader) uploadFile(ctx context.Context, f File) error {
	fh, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer fh.Close()
	_, err = u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(f.Key),
		Body:   fh,
	})
	return err
}

// Run uploads every data file under LocalDir with a bounded pool of
// workers. A failed file does not stop the others; all failures are
// returned together.
func (u *Uploader) Run(ctx context.Context) (Result, error) {
	prefix := u.cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	files, err := Files(u.cfg.LocalDir, prefix)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{}, ErrNoFiles
	}
	log := zap.S()
	log.Infof("Uploading %d files to s3://%s/%s/", len(files), u.cfg.Bucket, prefix)

	errCh := make(chan error, len(files))
	var g errgroup.Group
	g.SetLimit(u.cfg.Workers)
	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := u.uploadFile(ctx, f); err != nil {
				u.failed.Add(1)
				errCh <- fmt.Errorf("upload %s: %w", f.Path, err)
			} else {
				log.Debugf("Uploaded %s to %s", f.Path, f.Key)
			}
			if n := u.done.Add(1); n%100 == 0 || n == int64(len(files)) {
				log.Infof("Uploaded %d/%d files", n, len(files))
			}
			return nil
		})
	}
	_ = g.Wait()
	close(errCh)

	var result *multierror.Error
	for err := range errCh {
		result = multierror.Append(result, err)
	}
	res := Result{Uploaded: u.done.Load() - u.failed.Load(), Failed: u.failed.Load()}
	log.Infof("Upload complete: %d successful, %d failed", res.Uploaded, res.Failed)
	return res, result.ErrorOrNil()
}
