// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// A Publisher stores rendered reports.
type Publisher interface {
	// Publish stores the report body under name and returns its
	// location.
	Publish(ctx context.Context, name string, body []byte) (string, error)
}

// Stdout writes reports to standard output.
var Stdout Publisher = stdoutPublisher{}

type stdoutPublisher struct{}

func (stdoutPublisher) Publish(_ context.Context, _ string, body []byte) (string, error) {
	_, err := os.Stdout.Write(body)
	return "stdout", err
}

// Dir writes reports as files in a directory.
type Dir string

func (d Dir) Publish(_ context.Context, name string, body []byte) (string, error) {
	p := path.Join(string(d), name)
	if err := ioutil.WriteFile(p, body, 0644); err != nil {
		return "", errors.E("writing report", err)
	}
	return p, nil
}

// S3 uploads reports to an S3 bucket.
type S3 struct {
	Uploader s3manageriface.UploaderAPI
	Bucket   string
	// Prefix is prepended to report names to form object keys.
	Prefix string
}

// NewS3 returns a publisher that uploads to bucket using sess.
func NewS3(sess *session.Session, bucket, prefix string) *S3 {
	return &S3{Uploader: s3manager.NewUploader(sess), Bucket: bucket, Prefix: prefix}
}

func (s *S3) Publish(ctx context.Context, name string, body []byte) (string, error) {
	key := s.Prefix + name
	url := fmt.Sprintf("s3://%s/%s", s.Bucket, key)
	_, err := s.Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/html"),
	})
	if err != nil {
		return "", errors.E("uploading "+url, err)
	}
	return url, nil
}

// Publish renders r and hands it to every publisher.
func Publish(ctx context.Context, r *Report, name string, pubs ...Publisher) error {
	var b bytes.Buffer
	if err := Render(&b, r); err != nil {
		return errors.E("rendering "+name, err)
	}
	for _, pub := range pubs {
		loc, err := pub.Publish(ctx, name, b.Bytes())
		if err != nil {
			return err
		}
		log.Printf("published %s to %s", name, loc)
	}
	return nil
}
