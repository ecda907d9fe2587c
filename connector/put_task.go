package connector

import (
	"context"
	"os"
	"path/filepath"

	"github.com/depotline/connector-basic/checksum"
	"github.com/depotline/connector-basic/cmn/cos"
	"github.com/depotline/connector-basic/cmn/nlog"
	"github.com/depotline/connector-basic/layout"
	"github.com/depotline/connector-basic/xfer"
)

// runPutTask implements PutTask from spec.md §4.7.
func (c *Connector) runPutTask(ctx context.Context, uri, src string, checksumLocs []layout.ChecksumLocation, listener xfer.Listener) {
	a := xfer.NewAdapter(listener, nil)
	if err := a.Initiated(); err != nil {
		_ = a.Failed(c.wrapAdapterErr(err))
		return
	}

	if err := c.transporter.Put(ctx, uri, src); err != nil {
		_ = a.Failed(c.classify(uri, err))
		return
	}

	if len(checksumLocs) > 0 {
		c.uploadChecksumSidecars(ctx, src, checksumLocs)
	}

	_ = a.Succeeded()
}

// uploadChecksumSidecars computes every required digest in one pass over
// src (reusing Calculator.Prime's "read N bytes from the start" primitive
// with N == the file's full size), then uploads each sidecar body.
// Failures are logged and never fail the parent PutTask (spec.md §4.7, §7).
func (c *Connector) uploadChecksumSidecars(ctx context.Context, src string, locs []layout.ChecksumLocation) {
	algorithms := make([]cos.ChecksumAlgorithm, 0, len(locs))
	for _, loc := range locs {
		if alg := algByName(c.layout.AlgorithmFactories(), loc.AlgorithmName); alg != nil {
			algorithms = append(algorithms, alg)
		}
	}

	calc := checksum.New(src, algorithms)
	if calc == nil {
		return
	}
	fi, err := os.Stat(src)
	if err != nil {
		nlog.Warnf("connector: stat %s for checksum sidecars: %v", src, err)
		return
	}
	calc.Prime(fi.Size())
	digests := calc.Finish()

	for _, loc := range locs {
		r, ok := digests[loc.AlgorithmName]
		if !ok || r.Err != nil {
			continue
		}
		if err := c.putChecksumBody(ctx, loc.URI, src, r.Hex); err != nil {
			nlog.Warnf("connector: uploading checksum sidecar %s: %v", loc.URI, err)
		}
	}
}

func (c *Connector) putChecksumBody(ctx context.Context, uri, src, hex string) error {
	tmp, err := os.CreateTemp(filepath.Dir(src), "checksum-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(hex); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return c.transporter.Put(ctx, uri, tmpPath)
}

func algByName(algorithms []cos.ChecksumAlgorithm, name string) cos.ChecksumAlgorithm {
	for _, a := range algorithms {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
