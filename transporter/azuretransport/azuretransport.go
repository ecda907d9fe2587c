// Package azuretransport is a transporter.Transporter backend over
// azure-sdk-for-go/sdk/storage/azblob.
package azuretransport

import (
	"context"
	"errors"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/depotline/connector-basic/transporter"
)

// Transport implements transporter.Transporter against one Azure Blob
// Storage container; uri is the blob name within it.
type Transport struct {
	client    *azblob.Client
	container string
}

var _ transporter.Transporter = (*Transport)(nil)

func New(client *azblob.Client, container string) *Transport {
	return &Transport{client: client, container: container}
}

func (t *Transport) Peek(ctx context.Context, uri string) error {
	_, err := t.client.ServiceClient().NewContainerClient(t.container).NewBlobClient(uri).GetProperties(ctx, nil)
	return err
}

func (t *Transport) Get(ctx context.Context, uri, localFile string, resume bool, onStart transporter.StartFunc, onProgress transporter.ProgressFunc) error {
	var offset int64
	if resume {
		if fi, err := os.Stat(localFile); err == nil {
			offset = fi.Size()
		}
	}

	opts := &azblob.DownloadStreamOptions{}
	if offset > 0 {
		count := int64(azblob.CountToEnd)
		opts.Range = azblob.HTTPRange{Offset: offset, Count: count}
	}

	resp, err := t.client.DownloadStream(ctx, t.container, uri, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dataOffset := int64(0)
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if offset > 0 && resp.ContentRange != nil {
		dataOffset = offset
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	length := int64(0)
	if resp.ContentLength != nil {
		length = *resp.ContentLength + dataOffset
	}
	if err := onStart(dataOffset, length); err != nil {
		return err
	}

	f, err := os.OpenFile(localFile, flags, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return transporter.CopyWithProgress(f, resp.Body, dataOffset, onProgress)
}

func (t *Transport) Put(ctx context.Context, uri, localFile string) error {
	f, err := os.Open(localFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = t.client.UploadFile(ctx, t.container, uri, f, nil)
	return err
}

func (t *Transport) Classify(err error) transporter.Kind {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == 404 {
		return transporter.NotFound
	}
	return transporter.Other
}

func (t *Transport) Close() error { return nil }
