// Package httptransport is the default transporter.Transporter backend,
// built on valyala/fasthttp.
package httptransport

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/depotline/connector-basic/transporter"
)

// StatusError carries an HTTP status code from a failed request, so
// Classify can tell NotFound (404) apart from everything else.
type StatusError struct {
	URI    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d fetching %s", e.Status, e.URI)
}

// Transport implements transporter.Transporter over a shared fasthttp
// client, safe for concurrent use by every task in a Connector.
type Transport struct {
	client *fasthttp.Client
}

var _ transporter.Transporter = (*Transport)(nil)

// New builds a Transport with a fasthttp client configured to stream
// response bodies rather than buffer them whole.
func New(requestTimeout time.Duration) *Transport {
	return &Transport{
		client: &fasthttp.Client{
			StreamResponseBody:            true,
			ReadTimeout:                   requestTimeout,
			WriteTimeout:                  requestTimeout,
			MaxIdleConnDuration:           90 * time.Second,
			NoDefaultUserAgentHeader:      true,
			DisableHeaderNamesNormalizing: false,
		},
	}
}

func (t *Transport) Peek(ctx context.Context, uri string) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodHead)
	req.SetRequestURI(uri)

	if err := t.do(ctx, req, resp); err != nil {
		return err
	}
	return statusErr(uri, resp.StatusCode())
}

func (t *Transport) Get(ctx context.Context, uri, localFile string, resume bool, onStart transporter.StartFunc, onProgress transporter.ProgressFunc) error {
	var offset int64
	if resume {
		if fi, err := os.Stat(localFile); err == nil {
			offset = fi.Size()
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(uri)
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}

	if err := t.do(ctx, req, resp); err != nil {
		return err
	}
	if err := statusErr(uri, resp.StatusCode()); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY
	dataOffset := int64(0)
	if resp.StatusCode() == fasthttp.StatusPartialContent && offset > 0 {
		flags |= os.O_APPEND
		dataOffset = offset
	} else {
		// Server refused the range (200 OK to a ranged request): restart.
		flags |= os.O_TRUNC
	}

	length := int64(resp.Header.ContentLength())
	if length >= 0 {
		length += dataOffset
	}
	if err := onStart(dataOffset, length); err != nil {
		return err
	}

	f, err := os.OpenFile(localFile, flags, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return transporter.CopyWithProgress(f, resp.BodyStream(), dataOffset, onProgress)
}

func (t *Transport) Put(ctx context.Context, uri, localFile string) error {
	f, err := os.Open(localFile)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPut)
	req.SetRequestURI(uri)
	req.SetBodyStream(f, int(fi.Size()))

	if err := t.do(ctx, req, resp); err != nil {
		return err
	}
	return statusErr(uri, resp.StatusCode())
}

func (t *Transport) Classify(err error) transporter.Kind {
	var se *StatusError
	if as, ok := err.(*StatusError); ok {
		se = as
	}
	if se != nil && se.Status == fasthttp.StatusNotFound {
		return transporter.NotFound
	}
	return transporter.Other
}

func (t *Transport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *Transport) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if deadline, ok := ctx.Deadline(); ok {
		return t.client.DoDeadline(req, resp, deadline)
	}
	return t.client.Do(req, resp)
}

func statusErr(uri string, status int) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == fasthttp.StatusPartialContent {
		return nil
	}
	return &StatusError{URI: uri, Status: status}
}
