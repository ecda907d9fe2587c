package connector

import (
	"strconv"

	"github.com/depotline/connector-basic/cmn/nlog"
)

// Recognized configuration keys (spec.md §4.6/§6). All except
// KeyParallelPut may be overridden per repository id by appending
// "."+repositoryId.
const (
	KeyWorkerThreads        = "worker-threads"
	KeyResume               = "resume"
	KeyResumeThresholdBytes = "resume-threshold-bytes"
	KeyRequestTimeoutMs     = "request-timeout-ms"
	KeySmartChecksums       = "smart-checksums"
	KeyPersistedChecksums   = "persisted-checksums"
	KeyParallelPut          = "parallel-put"
)

const (
	defaultWorkerThreads        = 5
	defaultResume               = true
	defaultResumeThresholdBytes = int64(65536)
	defaultRequestTimeoutMs     = 0 // implementation default: no LockFile timeout
	defaultSmartChecksums       = true
	defaultPersistedChecksums   = true
	defaultParallelPut          = true
)

// Config is a flat string-keyed option map, the session-configuration
// surface spec.md treats as external input.
type Config struct {
	values map[string]string
}

func NewConfig(values map[string]string) *Config {
	if values == nil {
		values = map[string]string{}
	}
	return &Config{values: values}
}

func (c *Config) lookup(key, repositoryID string) (string, bool) {
	if repositoryID != "" {
		if v, ok := c.values[key+"."+repositoryID]; ok {
			return v, true
		}
	}
	v, ok := c.values[key]
	return v, ok
}

func (c *Config) WorkerThreads(repositoryID string) int {
	v, ok := c.lookup(KeyWorkerThreads, repositoryID)
	if !ok {
		return defaultWorkerThreads
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		nlog.Warnf("connector: invalid %s=%q, using default %d", KeyWorkerThreads, v, defaultWorkerThreads)
		return defaultWorkerThreads
	}
	return n
}

func (c *Config) Resume(repositoryID string) bool {
	return c.boolOpt(KeyResume, repositoryID, defaultResume)
}

func (c *Config) ResumeThresholdBytes(repositoryID string) int64 {
	v, ok := c.lookup(KeyResumeThresholdBytes, repositoryID)
	if !ok {
		return defaultResumeThresholdBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		nlog.Warnf("connector: invalid %s=%q, using default %d", KeyResumeThresholdBytes, v, defaultResumeThresholdBytes)
		return defaultResumeThresholdBytes
	}
	return n
}

func (c *Config) RequestTimeoutMs(repositoryID string) int {
	v, ok := c.lookup(KeyRequestTimeoutMs, repositoryID)
	if !ok {
		return defaultRequestTimeoutMs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		nlog.Warnf("connector: invalid %s=%q, using default %d", KeyRequestTimeoutMs, v, defaultRequestTimeoutMs)
		return defaultRequestTimeoutMs
	}
	return n
}

func (c *Config) SmartChecksums(repositoryID string) bool {
	return c.boolOpt(KeySmartChecksums, repositoryID, defaultSmartChecksums)
}

func (c *Config) PersistedChecksums(repositoryID string) bool {
	return c.boolOpt(KeyPersistedChecksums, repositoryID, defaultPersistedChecksums)
}

// ParallelPut is not overridable per repository id (spec.md §6).
func (c *Config) ParallelPut() bool {
	return c.boolOpt(KeyParallelPut, "", defaultParallelPut)
}

func (c *Config) boolOpt(key, repositoryID string, def bool) bool {
	v, ok := c.lookup(key, repositoryID)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		nlog.Warnf("connector: invalid %s=%q, using default %v", key, v, def)
		return def
	}
	return b
}
