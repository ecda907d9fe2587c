package connector

import (
	"context"

	"github.com/depotline/connector-basic/xfer"
)

// runPeekTask implements PeekTask from spec.md §4.7: emits INITIATED,
// invokes transporter.Peek, emits SUCCEEDED or FAILED.
func (c *Connector) runPeekTask(ctx context.Context, uri string, listener xfer.Listener) {
	a := xfer.NewAdapter(listener, nil)

	if err := a.Initiated(); err != nil {
		_ = a.Failed(c.wrapAdapterErr(err))
		return
	}

	if err := c.transporter.Peek(ctx, uri); err != nil {
		_ = a.Failed(c.classify(uri, err))
		return
	}

	_ = a.Succeeded()
}

func (c *Connector) wrapAdapterErr(err error) error {
	if cancelled, ok := err.(*xfer.Cancelled); ok {
		return NewCancelled(cancelled.Cause)
	}
	return err
}
