package negcache_test

import (
	"testing"

	"github.com/depotline/connector-basic/negcache"
)

func TestMarkThenKnownAbsent(t *testing.T) {
	c := negcache.New(1000)
	uri := "https://example.test/repo/foo.jar.sha1"

	if c.KnownAbsent(uri) {
		t.Fatal("expected not absent before MarkAbsent")
	}
	c.MarkAbsent(uri)
	if !c.KnownAbsent(uri) {
		t.Fatal("expected absent after MarkAbsent")
	}
}

func TestClearAbsentUndoesMark(t *testing.T) {
	c := negcache.New(1000)
	uri := "https://example.test/repo/bar.jar.md5"

	c.MarkAbsent(uri)
	c.ClearAbsent(uri)
	if c.KnownAbsent(uri) {
		t.Fatal("expected not absent after ClearAbsent")
	}
}
