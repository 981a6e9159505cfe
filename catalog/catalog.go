// Package catalog records named extents of a container stream in a key-value
// store, and opens windows onto them by name.
package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/docker/libkv/store"

	"github.com/akmistry/go-window/window"
)

const extentLen = 16

var (
	ErrNotFound    = errors.New("catalog: extent not found")
	ErrInvalidName = errors.New("catalog: invalid extent name")
	ErrCorrupt     = errors.New("catalog: corrupt extent record")
)

// Extent is the range [Start, Start+Size) of a stream.
type Extent struct {
	Start int64
	Size  int64
}

func (e Extent) String() string {
	return fmt.Sprintf("%d:%d", e.Start, e.Size)
}

func (e Extent) marshal() []byte {
	buf := make([]byte, extentLen)
	binary.LittleEndian.PutUint64(buf, uint64(e.Start))
	binary.LittleEndian.PutUint64(buf[8:], uint64(e.Size))
	return buf
}

func unmarshalExtent(buf []byte) (Extent, error) {
	if len(buf) != extentLen {
		return Extent{}, ErrCorrupt
	}
	e := Extent{
		Start: int64(binary.LittleEndian.Uint64(buf)),
		Size:  int64(binary.LittleEndian.Uint64(buf[8:])),
	}
	if window.CheckBounds(e.Start, e.Size) != nil {
		return Extent{}, ErrCorrupt
	}
	return e, nil
}

type Entry struct {
	Name string
	Extent
}

// Catalog stores extents under a key prefix of a libkv store. It performs no
// synchronisation of its own beyond what the store provides.
type Catalog struct {
	kv     store.Store
	prefix string
}

func New(kv store.Store, prefix string) *Catalog {
	return &Catalog{kv: kv, prefix: strings.Trim(prefix, "/")}
}

func (c *Catalog) key(name string) (string, error) {
	if name == "" || strings.Contains(name, "/") {
		return "", ErrInvalidName
	}
	if c.prefix == "" {
		return name, nil
	}
	return c.prefix + "/" + name, nil
}

func (c *Catalog) Put(name string, e Extent) error {
	key, err := c.key(name)
	if err != nil {
		return err
	}
	if err := window.CheckBounds(e.Start, e.Size); err != nil {
		return err
	}
	return c.kv.Put(key, e.marshal(), nil)
}

func (c *Catalog) Get(name string) (Extent, error) {
	key, err := c.key(name)
	if err != nil {
		return Extent{}, err
	}
	pair, err := c.kv.Get(key)
	if err == store.ErrKeyNotFound {
		return Extent{}, ErrNotFound
	} else if err != nil {
		return Extent{}, err
	}
	return unmarshalExtent(pair.Value)
}

func (c *Catalog) Delete(name string) error {
	key, err := c.key(name)
	if err != nil {
		return err
	}
	err = c.kv.Delete(key)
	if err == store.ErrKeyNotFound {
		return ErrNotFound
	}
	return err
}

// List returns all extents in the catalog, sorted by name.
func (c *Catalog) List() ([]Entry, error) {
	pairs, err := c.kv.List(c.prefix)
	if err == store.ErrKeyNotFound {
		// Some stores report an empty directory as not found.
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, p := range pairs {
		name := strings.TrimPrefix(strings.Trim(p.Key, "/"), c.prefix)
		name = strings.TrimPrefix(name, "/")
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		e, err := unmarshalExtent(p.Value)
		if err != nil {
			return nil, fmt.Errorf("catalog: extent %q: %w", name, err)
		}
		entries = append(entries, Entry{Name: name, Extent: e})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Open looks up the named extent and returns a window onto it. Ownership of
// rs passes to the returned Reader.
func (c *Catalog) Open(rs io.ReadSeeker, name string, opts *window.Options) (*window.Reader, error) {
	e, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return window.New(rs, e.Start, e.Size, opts)
}
