// Package gcstransport is a transporter.Transporter backend over
// cloud.google.com/go/storage.
package gcstransport

import (
	"context"
	"errors"
	"io"
	"os"

	"cloud.google.com/go/storage"

	"github.com/depotline/connector-basic/transporter"
)

// Transport implements transporter.Transporter against one GCS bucket;
// uri is the object name within it.
type Transport struct {
	client *storage.Client
	bucket string
}

var _ transporter.Transporter = (*Transport)(nil)

func New(client *storage.Client, bucket string) *Transport {
	return &Transport{client: client, bucket: bucket}
}

func (t *Transport) object(uri string) *storage.ObjectHandle {
	return t.client.Bucket(t.bucket).Object(uri)
}

func (t *Transport) Peek(ctx context.Context, uri string) error {
	_, err := t.object(uri).Attrs(ctx)
	return err
}

func (t *Transport) Get(ctx context.Context, uri, localFile string, resume bool, onStart transporter.StartFunc, onProgress transporter.ProgressFunc) error {
	var offset int64
	if resume {
		if fi, err := os.Stat(localFile); err == nil {
			offset = fi.Size()
		}
	}

	r, err := t.object(uri).NewRangeReader(ctx, offset, -1)
	if err != nil {
		// A missing object is reported as is; any other failure of the
		// ranged read (e.g. an out-of-range offset) restarts clean from 0.
		if offset > 0 && errors.Is(err, storage.ErrObjectNotExist) {
			return err
		}
		r, err = t.object(uri).NewRangeReader(ctx, 0, -1)
		offset = 0
		if err != nil {
			return err
		}
	}
	defer r.Close()

	dataOffset := int64(0)
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if offset > 0 {
		dataOffset = offset
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	length := r.Attrs.Size
	if err := onStart(dataOffset, length); err != nil {
		return err
	}

	f, err := os.OpenFile(localFile, flags, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return transporter.CopyWithProgress(f, r, dataOffset, onProgress)
}

func (t *Transport) Put(ctx context.Context, uri, localFile string) error {
	f, err := os.Open(localFile)
	if err != nil {
		return err
	}
	defer f.Close()

	w := t.object(uri).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (t *Transport) Classify(err error) transporter.Kind {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return transporter.NotFound
	}
	return transporter.Other
}

func (t *Transport) Close() error { return nil }
