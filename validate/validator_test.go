package validate_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/depotline/connector-basic/checksum"
	"github.com/depotline/connector-basic/cmn/cos"
	"github.com/depotline/connector-basic/layout"
	"github.com/depotline/connector-basic/metrics"
	"github.com/depotline/connector-basic/policy"
	"github.com/depotline/connector-basic/validate"
)

// algNamed resolves a builtin algorithm by name so SidecarName's extension
// lines up with the real registry.
func algNamed(name string) cos.ChecksumAlgorithm {
	return checksum.ByName(name)
}

// recordingPolicy wraps InspectAll and records the match and no-more
// notifications it receives, in order.
type recordingPolicy struct {
	*policy.InspectAll
	calls []string
}

func (r *recordingPolicy) OnChecksumMatch(algorithm string, kind policy.Kind) bool {
	r.calls = append(r.calls, "match("+algorithm+", "+kind.String()+")")
	return r.InspectAll.OnChecksumMatch(algorithm, kind)
}

func (r *recordingPolicy) OnNoMoreChecksums() error {
	r.calls = append(r.calls, "noMore()")
	return r.InspectAll.OnNoMoreChecksums()
}

var _ = Describe("Validator", func() {
	var dest string

	BeforeEach(func() {
		dest = filepath.Join(GinkgoT().TempDir(), "artifact.jar")
	})

	It("matches S1: a single REMOTE_EXTERNAL checksum validates and commits", func() {
		sha1 := algNamed("SHA-1")
		locs := []layout.ChecksumLocation{{AlgorithmName: "SHA-1", URI: "artifact.jar.sha1"}}
		fetch := func(ctx context.Context, uri, localFile string) (bool, error) {
			Expect(uri).To(Equal("artifact.jar.sha1"))
			return true, os.WriteFile(localFile, []byte("0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33\n"), 0o644)
		}

		v := validate.New(dest, []cos.ChecksumAlgorithm{sha1}, locs, policy.Strict{}, nil, fetch, nil)
		actual := map[string]checksum.Result{"SHA-1": {Hex: "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"}}

		err := v.Validate(context.Background(), actual, nil)
		Expect(err).NotTo(HaveOccurred())

		v.Commit()
		v.Close()

		sidecar := dest + ".sha1"
		Expect(sidecar).To(BeAnExistingFile())
		raw, _ := os.ReadFile(sidecar)
		Expect(checksum.ParseSidecar(raw)).To(Equal("0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"))
	})

	It("matches S2: a mismatching REMOTE_EXTERNAL checksum aborts with a MismatchError and leaves no sidecar", func() {
		sha1 := algNamed("SHA-1")
		locs := []layout.ChecksumLocation{{AlgorithmName: "SHA-1", URI: "artifact.jar.sha1"}}
		fetch := func(ctx context.Context, uri, localFile string) (bool, error) {
			return true, os.WriteFile(localFile, []byte("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef\n"), 0o644)
		}

		v := validate.New(dest, []cos.ChecksumAlgorithm{sha1}, locs, policy.Strict{}, nil, fetch, nil)
		actual := map[string]checksum.Result{"SHA-1": {Hex: "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"}}

		err := v.Validate(context.Background(), actual, nil)
		Expect(err).To(HaveOccurred())
		var me *policy.MismatchError
		Expect(err).To(BeAssignableToTypeOf(me))

		v.Close()
		Expect(dest + ".sha1").NotTo(BeAnExistingFile())
	})

	It("increments connector_checksum_mismatches_total by algorithm on a mismatch", func() {
		sha1 := algNamed("SHA-1")
		locs := []layout.ChecksumLocation{{AlgorithmName: "SHA-1", URI: "artifact.jar.sha1"}}
		fetch := func(ctx context.Context, uri, localFile string) (bool, error) {
			return true, os.WriteFile(localFile, []byte("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef\n"), 0o644)
		}

		reg := prometheus.NewRegistry()
		v := validate.New(dest, []cos.ChecksumAlgorithm{sha1}, locs, policy.Strict{}, nil, fetch, nil)
		v.SetMetrics(metrics.New(reg))
		actual := map[string]checksum.Result{"SHA-1": {Hex: "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"}}

		err := v.Validate(context.Background(), actual, nil)
		Expect(err).To(HaveOccurred())
		v.Close()

		mfs, gatherErr := reg.Gather()
		Expect(gatherErr).NotTo(HaveOccurred())
		var mismatches float64
		for _, mf := range mfs {
			if mf.GetName() == "connector_checksum_mismatches_total" {
				for _, m := range mf.GetMetric() {
					mismatches += m.GetCounter().GetValue()
				}
			}
		}
		Expect(mismatches).To(Equal(1.0))
	})

	It("matches S3: a 404 SHA-1 sidecar is silently skipped while an MD5 match still commits", func() {
		sha1 := algNamed("SHA-1")
		md5 := algNamed("MD5")
		locs := []layout.ChecksumLocation{
			{AlgorithmName: "SHA-1", URI: "artifact.jar.sha1"},
			{AlgorithmName: "MD5", URI: "artifact.jar.md5"},
		}
		fetch := func(ctx context.Context, uri, localFile string) (bool, error) {
			if uri == "artifact.jar.sha1" {
				return false, nil
			}
			return true, os.WriteFile(localFile, []byte("acbd18db4cc2f85cedef654fccc4a4d8\n"), 0o644)
		}

		v := validate.New(dest, []cos.ChecksumAlgorithm{sha1, md5}, locs, &policy.InspectAll{}, nil, fetch, nil)
		actual := map[string]checksum.Result{
			"SHA-1": {Hex: "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"},
			"MD5":   {Hex: "acbd18db4cc2f85cedef654fccc4a4d8"},
		}

		err := v.Validate(context.Background(), actual, nil)
		Expect(err).NotTo(HaveOccurred())
		v.Commit()
		v.Close()

		Expect(dest + ".md5").To(BeAnExistingFile())
		Expect(dest + ".sha1").NotTo(BeAnExistingFile())
	})

	It("matches S6: PROVIDED then REMOTE_EXTERNAL both matching, in InspectAll mode, notifies both and concludes OK", func() {
		sha1 := algNamed("SHA-1")
		locs := []layout.ChecksumLocation{{AlgorithmName: "SHA-1", URI: "artifact.jar.sha1"}}
		fetch := func(ctx context.Context, uri, localFile string) (bool, error) {
			return true, os.WriteFile(localFile, []byte("0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"), 0o644)
		}
		provided := map[string]string{"SHA-1": "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"}

		p := &recordingPolicy{InspectAll: &policy.InspectAll{}}
		v := validate.New(dest, []cos.ChecksumAlgorithm{sha1}, locs, p, provided, fetch, nil)
		actual := map[string]checksum.Result{"SHA-1": {Hex: "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"}}

		err := v.Validate(context.Background(), actual, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.calls).To(Equal([]string{"match(SHA-1, PROVIDED)", "match(SHA-1, REMOTE_EXTERNAL)", "noMore()"}))
	})

	It("retry discards pending writes and deletes every temp file", func() {
		sha1 := algNamed("SHA-1")
		locs := []layout.ChecksumLocation{{AlgorithmName: "SHA-1", URI: "artifact.jar.sha1"}}
		fetch := func(ctx context.Context, uri, localFile string) (bool, error) {
			return true, os.WriteFile(localFile, []byte("0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"), 0o644)
		}

		v := validate.New(dest, []cos.ChecksumAlgorithm{sha1}, locs, policy.Tolerant{}, nil, fetch, nil)
		actual := map[string]checksum.Result{"SHA-1": {Hex: "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"}}

		err := v.Validate(context.Background(), actual, nil)
		Expect(err).NotTo(HaveOccurred()) // the match leaves a pending sidecar backed by a temp file

		v.Retry()
		tmps, _ := filepath.Glob(filepath.Join(filepath.Dir(dest), "checksum-*.tmp"))
		Expect(tmps).To(BeEmpty())
		v.Commit() // nothing pending after retry; must not recreate the sidecar
		Expect(dest + ".sha1").NotTo(BeAnExistingFile())
	})
})
