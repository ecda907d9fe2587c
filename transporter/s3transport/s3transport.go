// Package s3transport is a transporter.Transporter backend over
// aws-sdk-go-v2/service/s3.
package s3transport

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/depotline/connector-basic/transporter"
)

// Transport implements transporter.Transporter against one S3-compatible
// bucket; uri is the object key within it.
type Transport struct {
	client *s3.Client
	bucket string
}

var _ transporter.Transporter = (*Transport)(nil)

func New(client *s3.Client, bucket string) *Transport {
	return &Transport{client: client, bucket: bucket}
}

func (t *Transport) Peek(ctx context.Context, uri string) error {
	_, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &t.bucket,
		Key:    &uri,
	})
	return err
}

func (t *Transport) Get(ctx context.Context, uri, localFile string, resume bool, onStart transporter.StartFunc, onProgress transporter.ProgressFunc) error {
	var offset int64
	if resume {
		if fi, err := os.Stat(localFile); err == nil {
			offset = fi.Size()
		}
	}

	in := &s3.GetObjectInput{Bucket: &t.bucket, Key: &uri}
	if offset > 0 {
		r := "bytes=" + strconv.FormatInt(offset, 10) + "-"
		in.Range = &r
	}

	out, err := t.client.GetObject(ctx, in)
	if err != nil {
		return err
	}
	defer out.Body.Close()

	dataOffset := int64(0)
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if offset > 0 && out.ContentRange != nil {
		dataOffset = offset
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	length := int64(0)
	if out.ContentLength != nil {
		length = *out.ContentLength + dataOffset
	}
	if err := onStart(dataOffset, length); err != nil {
		return err
	}

	f, err := os.OpenFile(localFile, flags, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return transporter.CopyWithProgress(f, out.Body, dataOffset, onProgress)
}

func (t *Transport) Put(ctx context.Context, uri, localFile string) error {
	f, err := os.Open(localFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &t.bucket,
		Key:    &uri,
		Body:   f,
	})
	return err
}

func (t *Transport) Classify(err error) transporter.Kind {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return transporter.NotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return transporter.NotFound
		}
	}
	return transporter.Other
}

func (t *Transport) Close() error { return nil }
