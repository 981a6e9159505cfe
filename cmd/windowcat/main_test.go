package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/akmistry/go-window/catalog"
)

const testContent = "prefix part 2 suffix"

func writeTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "container")
	if err := os.WriteFile(path, []byte(testContent), 0644); err != nil {
		t.Fatalf("Error writing file: %v", err)
	}
	return path
}

func TestParseExtent(t *testing.T) {
	e, err := parseExtent("7:6")
	if err != nil || e != (catalog.Extent{Start: 7, Size: 6}) {
		t.Errorf("parse (%v, %v) != expected (7:6, nil)", e, err)
	}
	e, err = parseExtent("0x10:0")
	if err != nil || e != (catalog.Extent{Start: 16, Size: 0}) {
		t.Errorf("parse (%v, %v) != expected (16:0, nil)", e, err)
	}
	for _, s := range []string{"7", "a:6", "7:b", "-1:6", "7:-6"} {
		if _, err := parseExtent(s); err == nil {
			t.Errorf("expected error parsing %q", s)
		}
	}
}

func TestParseRequestCatalog(t *testing.T) {
	kv, err := catalog.OpenBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("Error opening store: %v", err)
	}
	defer kv.Close()
	cat := catalog.New(kv, "extents")

	req, err := parseRequest(cat, 0, "part2=7:6")
	if err != nil || req.name != "part2" || req.Start != 7 || req.Size != 6 {
		t.Errorf("parse (%+v, %v) unexpected", req, err)
	}
	req, err = parseRequest(cat, 1, "part2")
	if err != nil || req.name != "part2" || req.Start != 7 || req.Size != 6 {
		t.Errorf("lookup (%+v, %v) unexpected", req, err)
	}
	if _, err := parseRequest(cat, 2, "missing"); err == nil {
		t.Error("expected error for missing extent")
	}
	if _, err := parseRequest(nil, 3, "part2"); err == nil {
		t.Error("expected error without catalog")
	}
	req, err = parseRequest(nil, 4, "0:6")
	if err != nil || req.name != "window-4" {
		t.Errorf("parse (%+v, %v) unexpected", req, err)
	}
}

func TestExtract(t *testing.T) {
	path := writeTestFile(t)

	var out bytes.Buffer
	err := extract(context.Background(), path, request{name: "w", Extent: catalog.Extent{Start: 7, Size: 6}}, &out)
	if err != nil {
		t.Errorf("Unexpected extract error: %v", err)
	} else if out.String() != "part 2" {
		t.Errorf("extracted %q != expected %q", out.String(), "part 2")
	}
}

func TestExtractThrottled(t *testing.T) {
	path := writeTestFile(t)
	*opRate = 5000
	defer func() { *opRate = 0 }()

	var out bytes.Buffer
	err := extract(context.Background(), path, request{name: "w", Extent: catalog.Extent{Start: 0, Size: 13}}, &out)
	if err != nil {
		t.Errorf("Unexpected extract error: %v", err)
	} else if out.String() != "prefix part 2" {
		t.Errorf("extracted %q != expected %q", out.String(), "prefix part 2")
	}
}

func TestRunToFiles(t *testing.T) {
	path := writeTestFile(t)
	*outDir = t.TempDir()
	defer func() { *outDir = "" }()

	err := run(context.Background(), path, []string{"7:6", "0:6", "14:6"})
	if err != nil {
		t.Fatalf("Unexpected run error: %v", err)
	}
	for name, expected := range map[string]string{
		"window-0": "part 2",
		"window-1": "prefix",
		"window-2": "suffix",
	} {
		buf, err := os.ReadFile(filepath.Join(*outDir, name))
		if err != nil {
			t.Errorf("Error reading %s: %v", name, err)
		} else if string(buf) != expected {
			t.Errorf("%s: %q != expected %q", name, buf, expected)
		}
	}
}
