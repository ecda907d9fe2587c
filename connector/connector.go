package connector

import (
	"context"
	"sync"

	"github.com/depotline/connector-basic/cmn/atomic"
	"github.com/depotline/connector-basic/cmn/nlog"
	"github.com/depotline/connector-basic/journal"
	"github.com/depotline/connector-basic/layout"
	"github.com/depotline/connector-basic/metrics"
	"github.com/depotline/connector-basic/partial"
	"github.com/depotline/connector-basic/policy"
	"github.com/depotline/connector-basic/tracetoken"
	"github.com/depotline/connector-basic/transporter"
	"github.com/depotline/connector-basic/validate"
	"github.com/depotline/connector-basic/xfer"
)

// ArtifactGet requests a single artifact download (spec.md §3 TransferRequest).
type ArtifactGet struct {
	Entity        layout.Artifact
	Dest          string
	Policy        policy.Policy
	ExistenceOnly bool
	Provided      map[string]string
	TraceToken    string
	Listener      xfer.Listener
}

// MetadataGet requests a single metadata-node download.
type MetadataGet struct {
	Entity        layout.Metadata
	Dest          string
	Policy        policy.Policy
	ExistenceOnly bool
	Provided      map[string]string
	TraceToken    string
	Listener      xfer.Listener
}

// ArtifactPut requests a single artifact upload.
type ArtifactPut struct {
	Entity     layout.Artifact
	Src        string
	TraceToken string
	Listener   xfer.Listener
}

// MetadataPut requests a single metadata-node upload.
type MetadataPut struct {
	Entity     layout.Metadata
	Src        string
	TraceToken string
	Listener   xfer.Listener
}

// Connector is the per-remote-repository object from spec.md §4.6: it owns
// a transporter, a layout, and a worker pool, and assembles GET/PEEK/PUT
// task runners over them.
type Connector struct {
	repositoryID string
	transporter  transporter.Transporter
	layout       layout.Layout
	cfg          *Config
	negCache     validate.NegativeCache

	metrics *metrics.Registry
	journal *journal.Journal
	tokens  *tracetoken.Generator

	partialFactory partial.Factory

	poolOnce sync.Once
	workPool *pool

	closed atomic.Bool
}

// New validates that transporter and layout were actually instantiated for
// repositoryID, failing with NoConnector otherwise (spec.md §4.6
// constructor contract).
func New(repositoryID string, t transporter.Transporter, l layout.Layout, cfg *Config) (*Connector, error) {
	if t == nil || l == nil {
		return nil, NewNoConnector("repository " + repositoryID + ": no transporter/layout for this content type or URL scheme")
	}
	if cfg == nil {
		cfg = NewConfig(nil)
	}
	return &Connector{
		repositoryID: repositoryID,
		transporter:  t,
		layout:       l,
		cfg:          cfg,
		partialFactory: partial.Factory{
			ResumeEnabled:        cfg.Resume(repositoryID),
			ResumeThresholdBytes: cfg.ResumeThresholdBytes(repositoryID),
			RequestTimeoutMs:     cfg.RequestTimeoutMs(repositoryID),
		},
	}, nil
}

// SetNegativeCache wires an optional negcache.NegativeCache into every
// GetTask's Validator. Nil (the default) disables the optimization.
func (c *Connector) SetNegativeCache(nc validate.NegativeCache) { c.negCache = nc }

// SetMetrics wires a metrics.Registry so every terminal task event
// increments its counters/histograms (SPEC_FULL.md §4.6, §9). Nil (the
// default) disables instrumentation.
func (c *Connector) SetMetrics(r *metrics.Registry) { c.metrics = r }

// SetJournal wires a journal.Journal so every terminal task event appends
// a journal.Record (SPEC_FULL.md §4.6, §9). Nil (the default) disables
// journaling.
func (c *Connector) SetJournal(j *journal.Journal) { c.journal = j }

// SetTraceTokenGenerator wires a tracetoken.Generator used to mint a trace
// token for any request that didn't supply one (spec.md §3).
func (c *Connector) SetTraceTokenGenerator(g *tracetoken.Generator) { c.tokens = g }

func (c *Connector) resolveTraceToken(given string) string {
	if given != "" {
		return given
	}
	if c.tokens != nil {
		return c.tokens.New()
	}
	return ""
}

// signForJournal signs traceToken for journal admission when both
// journaling and a tracetoken.Generator with a signing key are configured;
// otherwise it returns "", leaving the eventual journal.Record unsigned. A
// signing failure is logged and treated the same way: SPEC_FULL.md §9 never
// lets trace-token signing affect the transfer itself.
func (c *Connector) signForJournal(traceToken string) string {
	if c.journal == nil || c.tokens == nil || traceToken == "" {
		return ""
	}
	signed, err := c.tokens.Sign(traceToken)
	if err != nil {
		nlog.Warnf("connector: signing trace token %s: %v", traceToken, err)
		return ""
	}
	if signed == traceToken {
		return "" // keyless generator: Sign passed the bare token through
	}
	return signed
}

// VerifyJournalRecord looks up the journal record filed under traceToken
// and reports whether its signed trace token verifies against this
// connector's tracetoken.Generator — the journal-consumer side of the
// tracetoken feature named in SPEC_FULL.md §9. found is false when no
// record exists; verified is false whenever the record was appended
// unsigned, no generator is configured, or the signature doesn't check
// out. A caller never has to gate on verified before trusting a record's
// other fields — it's informational, not a transfer-path safety check.
func (c *Connector) VerifyJournalRecord(traceToken string) (rec journal.Record, found, verified bool) {
	return c.journal.LookupVerified(traceToken, c.tokens)
}

// Get dispatches a batch of artifact and metadata downloads. It never
// returns a per-task error: each task reports its outcome through its own
// listener (spec.md §4.6, §7). It does return ConnectorClosed if called
// after Close.
func (c *Connector) Get(ctx context.Context, artifactGets []ArtifactGet, metadataGets []MetadataGet) error {
	if c.closed.Load() {
		return NewConnectorClosed()
	}

	tasks := make([]func(), 0, len(artifactGets)+len(metadataGets))
	for _, g := range artifactGets {
		g := g
		tasks = append(tasks, func() {
			c.runEntityGet(ctx, g.Entity, g.Dest, g.Policy, g.ExistenceOnly, g.Provided, g.Listener, c.resolveTraceToken(g.TraceToken))
		})
	}
	for _, g := range metadataGets {
		g := g
		tasks = append(tasks, func() {
			c.runEntityGet(ctx, g.Entity, g.Dest, g.Policy, g.ExistenceOnly, g.Provided, g.Listener, c.resolveTraceToken(g.TraceToken))
		})
	}
	c.runBatch(tasks)
	return nil
}

// Put dispatches a batch of uploads: all artifact uploads run (subject to
// parallel-put), then metadata uploads proceed level by level (version,
// artifact, group, root) with a barrier between levels (spec.md §4.6, §5).
func (c *Connector) Put(ctx context.Context, artifactPuts []ArtifactPut, metadataPuts []MetadataPut) error {
	if c.closed.Load() {
		return NewConnectorClosed()
	}

	artifactTasks := make([]func(), 0, len(artifactPuts))
	for _, p := range artifactPuts {
		p := p
		artifactTasks = append(artifactTasks, func() { c.runEntityPut(ctx, p.Entity, p.Src, p.Listener, c.resolveTraceToken(p.TraceToken)) })
	}
	if !c.cfg.ParallelPut() {
		for _, t := range artifactTasks {
			t()
		}
	} else {
		c.runBatch(artifactTasks)
	}

	byLevel := make(map[layout.MetadataLevel][]MetadataPut)
	for _, p := range metadataPuts {
		byLevel[p.Entity.Level] = append(byLevel[p.Entity.Level], p)
	}
	levels := []layout.MetadataLevel{layout.LevelVersion, layout.LevelArtifact, layout.LevelGroup, layout.LevelRoot}
	for _, lvl := range levels {
		group := byLevel[lvl]
		if len(group) == 0 {
			continue
		}
		tasks := make([]func(), 0, len(group))
		for _, p := range group {
			p := p
			tasks = append(tasks, func() { c.runEntityPut(ctx, p.Entity, p.Src, p.Listener, c.resolveTraceToken(p.TraceToken)) })
		}
		if !c.cfg.ParallelPut() {
			for _, t := range tasks {
				t()
			}
			continue
		}
		c.runBatch(tasks)
	}
	return nil
}

// Close is idempotent: it shuts down the worker pool (awaiting drain) and
// closes the transporter. Submissions after Close fail with ConnectorClosed.
func (c *Connector) Close() error {
	if !c.closed.CAS(false, true) {
		return nil
	}
	if c.workPool != nil {
		c.workPool.close()
	}
	return c.transporter.Close()
}

// runBatch runs tasks[0] inline, then dispatches the rest to the executor
// selected for this batch size, blocking until every task has terminated
// (spec.md §4.6, §5).
func (c *Connector) runBatch(tasks []func()) {
	if len(tasks) == 0 {
		return
	}
	exec := c.executorFor(len(tasks))

	tasks[0]()
	if len(tasks) == 1 {
		return
	}

	var wg sync.WaitGroup
	for _, t := range tasks[1:] {
		t := t
		wg.Add(1)
		exec.submit(func() {
			defer wg.Done()
			t()
		})
	}
	wg.Wait()
}

func (c *Connector) executorFor(batchSize int) executor {
	threads := c.cfg.WorkerThreads(c.repositoryID)
	if threads <= 1 || batchSize <= 1 {
		return directExecutor{}
	}
	c.poolOnce.Do(func() {
		c.workPool = newPool(threads, c.metrics)
	})
	return c.workPool
}

func (c *Connector) runEntityGet(ctx context.Context, entity layout.Entity, dest string, pol policy.Policy, existenceOnly bool, provided map[string]string, listener xfer.Listener, traceToken string) {
	kind := metrics.KindGet
	if existenceOnly {
		kind = metrics.KindPeek
	}
	listener = wrapListener(listener, c.metrics, c.journal, kind, entity, traceToken, c.signForJournal(traceToken))

	loc, err := c.layout.LocationOf(entity, false)
	if err != nil {
		a := xfer.NewAdapter(listener, nil)
		_ = a.Initiated()
		_ = a.Failed(NewLocalIO("resolving location", err))
		return
	}

	if existenceOnly {
		c.runPeekTask(ctx, loc.URI, listener)
		return
	}
	c.runGetTask(ctx, entity, loc, dest, pol, provided, listener)
}

func (c *Connector) runEntityPut(ctx context.Context, entity layout.Entity, src string, listener xfer.Listener, traceToken string) {
	listener = wrapListener(listener, c.metrics, c.journal, metrics.KindPut, entity, traceToken, c.signForJournal(traceToken))

	loc, err := c.layout.LocationOf(entity, true)
	if err != nil {
		a := xfer.NewAdapter(listener, nil)
		_ = a.Initiated()
		_ = a.Failed(NewLocalIO("resolving location", err))
		return
	}
	checksumLocs, err := c.layout.ChecksumLocationsOf(entity, true, loc)
	if err != nil {
		a := xfer.NewAdapter(listener, nil)
		_ = a.Initiated()
		_ = a.Failed(NewLocalIO("resolving checksum locations", err))
		return
	}
	c.runPutTask(ctx, loc.URI, src, checksumLocs, listener)
}

func (c *Connector) classify(uri string, err error) error {
	var cancelled *xfer.Cancelled
	if as, ok := err.(*xfer.Cancelled); ok {
		cancelled = as
	}
	if cancelled != nil {
		return NewCancelled(cancelled.Cause)
	}
	switch c.transporter.Classify(err) {
	case transporter.NotFound:
		return NewNotFound(uri, err)
	default:
		return NewTransportFailure("transport error for "+uri, err)
	}
}

// fetchChecksumSidecar adapts Transport.Get into validate.Fetcher: an error
// the transporter classifies as NotFound becomes (false, nil); any other
// transport error propagates.
func (c *Connector) fetchChecksumSidecar(ctx context.Context, remoteURI, localFile string) (bool, error) {
	err := c.transporter.Get(ctx, remoteURI, localFile, false, func(int64, int64) error { return nil }, nil)
	if err == nil {
		return true, nil
	}
	if c.transporter.Classify(err) == transporter.NotFound {
		return false, nil
	}
	return false, err
}

