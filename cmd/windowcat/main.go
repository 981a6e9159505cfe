// Command windowcat extracts windows of a file.
//
// Usage:
//
//	windowcat [flags] file spec...
//
// Each spec is either start:size, the name of an extent in the catalog, or
// name=start:size, which records the extent in the catalog before extracting
// it. Windows are written to stdout in order, or with -o, each to its own file
// in the output directory. With -catalog and no specs, the recorded extents
// are listed instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/akmistry/go-window/catalog"
	xio "github.com/akmistry/go-window/io"
	"github.com/akmistry/go-window/throttle"
	"github.com/akmistry/go-window/window"
)

var (
	catalogDir = flag.String("catalog", "", "Badger directory holding named extents")
	outDir     = flag.String("o", "", "Write each window to a file in this directory")
	jobs       = flag.Int("j", 4, "Windows extracted concurrently with -o")
	opRate     = flag.Float64("rate", 0, "Limit underlying operations per second (0 for unlimited)")
	verbose    = flag.Bool("v", false, "Log every underlying read")
)

// Enough underlying operations for any single window read to complete.
const windowOpBurst = 4

type request struct {
	name string
	catalog.Extent
}

func parseExtent(s string) (catalog.Extent, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return catalog.Extent{}, fmt.Errorf("invalid extent %q, expected start:size", s)
	}
	start, err := strconv.ParseInt(parts[0], 0, 64)
	if err != nil {
		return catalog.Extent{}, fmt.Errorf("invalid start in %q: %w", s, err)
	}
	size, err := strconv.ParseInt(parts[1], 0, 64)
	if err != nil {
		return catalog.Extent{}, fmt.Errorf("invalid size in %q: %w", s, err)
	}
	e := catalog.Extent{Start: start, Size: size}
	if err := window.CheckBounds(e.Start, e.Size); err != nil {
		return catalog.Extent{}, fmt.Errorf("%q: %w", s, err)
	}
	return e, nil
}

func parseRequest(cat *catalog.Catalog, i int, spec string) (request, error) {
	if name, ext, ok := strings.Cut(spec, "="); ok {
		if cat == nil {
			return request{}, errors.New("-catalog is required to record " + name)
		}
		e, err := parseExtent(ext)
		if err != nil {
			return request{}, err
		}
		if err := cat.Put(name, e); err != nil {
			return request{}, err
		}
		return request{name: name, Extent: e}, nil
	}

	if strings.Contains(spec, ":") {
		e, err := parseExtent(spec)
		if err != nil {
			return request{}, err
		}
		return request{name: fmt.Sprintf("window-%d", i), Extent: e}, nil
	}

	if cat == nil {
		return request{}, fmt.Errorf("-catalog is required to look up %q", spec)
	}
	e, err := cat.Get(spec)
	if err != nil {
		return request{}, fmt.Errorf("%q: %w", spec, err)
	}
	return request{name: spec, Extent: e}, nil
}

// openWindow opens its own handle on path, so that each window exclusively
// owns its underlying stream.
func openWindow(ctx context.Context, path string, req request) (*window.Reader, *xio.Driver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var rs io.ReadSeeker = f
	d := &xio.Driver{}
	if *opRate > 0 {
		t := throttle.NewReadSeeker(f, *opRate, windowOpBurst)
		rs = t
		d.Waiter = t
	}

	opts := &window.Options{Driver: d}
	if *verbose {
		opts.Trace = func(n int, err error) {
			log.Printf("%s: read %d bytes, err %v", req.name, n, err)
		}
	}
	w, err := window.Open(ctx, rs, req.Start, req.Size, opts)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return w, d, nil
}

func extract(ctx context.Context, path string, req request, out io.Writer) error {
	w, d, err := openWindow(ctx, path, req)
	if err != nil {
		return err
	}
	defer w.Close()

	n, err := d.Copy(ctx, out, w)
	if err != nil {
		return fmt.Errorf("%s: %w", req.name, err)
	}
	if n != req.Size {
		log.Printf("%s: short window, %d of %d bytes", req.name, n, req.Size)
	}
	return nil
}

func extractToFile(ctx context.Context, path string, req request) error {
	f, err := os.Create(filepath.Join(*outDir, req.name))
	if err != nil {
		return err
	}
	err = extract(ctx, path, req, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func run(ctx context.Context, path string, specs []string) error {
	var cat *catalog.Catalog
	if *catalogDir != "" {
		kv, err := catalog.OpenBadgerStore(*catalogDir)
		if err != nil {
			return err
		}
		defer kv.Close()
		cat = catalog.New(kv, "extents")
	}

	reqs := make([]request, 0, len(specs))
	for i, spec := range specs {
		req, err := parseRequest(cat, i, spec)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	if *outDir == "" {
		for _, req := range reqs {
			if err := extract(ctx, path, req, os.Stdout); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*jobs)
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			return extractToFile(ctx, path, req)
		})
	}
	return g.Wait()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file spec...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("windowcat: ")

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cf := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cf()

	if flag.NArg() == 1 && *catalogDir != "" {
		if err := listCatalog(); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
}

// listCatalog prints the catalog's extents when no specs are given.
func listCatalog() error {
	kv, err := catalog.OpenBadgerStore(*catalogDir)
	if err != nil {
		return err
	}
	defer kv.Close()

	entries, err := catalog.New(kv, "extents").List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%v\n", e.Name, e.Extent)
	}
	return nil
}
