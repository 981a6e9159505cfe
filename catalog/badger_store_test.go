package catalog

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/docker/libkv/store"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("Error opening store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func expectEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("result %+v != expected %+v", actual, expected)
	}
}

func TestBadgerStoreGetPut(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("a/b")
	expectEqual(t, store.ErrKeyNotFound, err)
	ok, err := s.Exists("a/b")
	expectEqual(t, nil, err)
	expectEqual(t, false, ok)

	expectEqual(t, nil, s.Put("/a/b/", []byte("value"), nil))
	pair, err := s.Get("a/b")
	expectEqual(t, nil, err)
	if pair != nil {
		expectEqual(t, []byte("value"), pair.Value)
	}
	ok, err = s.Exists("a/b")
	expectEqual(t, nil, err)
	expectEqual(t, true, ok)

	expectEqual(t, nil, s.Delete("a/b"))
	_, err = s.Get("a/b")
	expectEqual(t, store.ErrKeyNotFound, err)
}

func TestBadgerStoreList(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 10; i++ {
		expectEqual(t, nil, s.Put(fmt.Sprintf("dir/%d", i), []byte{byte(i)}, nil))
	}
	expectEqual(t, nil, s.Put("dirx", []byte("x"), nil))
	expectEqual(t, nil, s.Put("other/0", []byte("o"), nil))

	pairs, err := s.List("dir")
	expectEqual(t, nil, err)
	expectEqual(t, 10, len(pairs))
	for i, p := range pairs {
		expectEqual(t, fmt.Sprintf("dir/%d", i), p.Key)
		expectEqual(t, []byte{byte(i)}, p.Value)
	}

	pairs, err = s.List("empty")
	expectEqual(t, nil, err)
	expectEqual(t, 0, len(pairs))

	expectEqual(t, nil, s.DeleteTree("dir"))
	pairs, err = s.List("dir")
	expectEqual(t, nil, err)
	expectEqual(t, 0, len(pairs))
	ok, err := s.Exists("dirx")
	expectEqual(t, nil, err)
	expectEqual(t, true, ok)
}

func TestBadgerStoreAtomic(t *testing.T) {
	s := openTestStore(t)

	ok, pair, err := s.AtomicPut("k", []byte("1"), nil, nil)
	expectEqual(t, nil, err)
	expectEqual(t, true, ok)

	_, _, err = s.AtomicPut("k", []byte("2"), nil, nil)
	expectEqual(t, store.ErrKeyExists, err)

	ok, _, err = s.AtomicPut("k", []byte("2"), pair, nil)
	expectEqual(t, nil, err)
	expectEqual(t, true, ok)

	// pair is now stale.
	ok, err = s.AtomicDelete("k", pair)
	expectEqual(t, store.ErrKeyModified, err)
	expectEqual(t, false, ok)

	_, err = s.AtomicDelete("k", nil)
	expectEqual(t, store.ErrPreviousNotSpecified, err)

	current, err := s.Get("k")
	expectEqual(t, nil, err)
	ok, err = s.AtomicDelete("k", current)
	expectEqual(t, nil, err)
	expectEqual(t, true, ok)

	_, _, err = s.AtomicPut("k", []byte("3"), current, nil)
	expectEqual(t, store.ErrKeyNotFound, err)
}

func TestBadgerStoreUnsupported(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Watch("k", nil)
	expectEqual(t, store.ErrCallNotSupported, err)
	_, err = s.WatchTree("k", nil)
	expectEqual(t, store.ErrCallNotSupported, err)
	_, err = s.NewLock("k", nil)
	expectEqual(t, store.ErrCallNotSupported, err)
}
