// Package hdfstransport is a transporter.Transporter backend over
// colinmarc/hdfs/v2.
package hdfstransport

import (
	"context"
	"io"
	"os"

	"github.com/colinmarc/hdfs/v2"

	"github.com/depotline/connector-basic/transporter"
)

// Transport implements transporter.Transporter against one HDFS cluster;
// uri is an absolute HDFS path.
type Transport struct {
	client *hdfs.Client
}

var _ transporter.Transporter = (*Transport)(nil)

func New(client *hdfs.Client) *Transport {
	return &Transport{client: client}
}

func (t *Transport) Peek(ctx context.Context, uri string) error {
	_, err := t.client.Stat(uri)
	return err
}

func (t *Transport) Get(ctx context.Context, uri, localFile string, resume bool, onStart transporter.StartFunc, onProgress transporter.ProgressFunc) error {
	var offset int64
	if resume {
		if fi, err := os.Stat(localFile); err == nil {
			offset = fi.Size()
		}
	}

	info, err := t.client.Stat(uri)
	if err != nil {
		return err
	}

	r, err := t.client.Open(uri)
	if err != nil {
		return err
	}
	defer r.Close()

	dataOffset := int64(0)
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if offset > 0 && offset <= info.Size() {
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		dataOffset = offset
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	if err := onStart(dataOffset, info.Size()); err != nil {
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

	w, err := t.client.Create(uri)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (t *Transport) Classify(err error) transporter.Kind {
	if os.IsNotExist(err) {
		return transporter.NotFound
	}
	return transporter.Other
}

func (t *Transport) Close() error { return nil }
