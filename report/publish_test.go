// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

type fakeUploader struct {
	s3manageriface.UploaderAPI
	inputs []*s3manager.UploadInput
	bodies [][]byte
}

func (u *fakeUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	b, err := ioutil.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	u.inputs = append(u.inputs, in)
	u.bodies = append(u.bodies, b)
	return &s3manager.UploadOutput{Location: "https://example/" + aws.StringValue(in.Key)}, nil
}


func TestPublish(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "report")
	defer cleanup()
	up := new(fakeUploader)
	s3 := &S3{Uploader: up, Bucket: "bench", Prefix: "fsbench/"}
	ctx := context.Background()
	assert.NoError(t, Publish(ctx, testReport(), "test.html", Dir(dir), s3))

	b, err := ioutil.ReadFile(filepath.Join(dir, "test.html"))
	assert.NoError(t, err)
	expect.HasSubstr(t, string(b), "<html>")

	assert.EQ(t, len(up.inputs), 1)
	expect.EQ(t, aws.StringValue(up.inputs[0].Bucket), "bench")
	expect.EQ(t, aws.StringValue(up.inputs[0].Key), "fsbench/test.html")
	expect.EQ(t, aws.StringValue(up.inputs[0].ContentType), "text/html")
	expect.EQ(t, up.bodies[0], b)

	loc, err := s3.Publish(ctx, "x.html", []byte("x"))
	assert.NoError(t, err)
	expect.EQ(t, loc, "s3://bench/fsbench/x.html")
}
