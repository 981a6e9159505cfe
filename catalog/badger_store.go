package catalog

import (
	"runtime"
	"strings"

	"github.com/dgraph-io/badger"
	"github.com/docker/libkv/store"
)

const (
	MaxValueLogFileSize      = 64 << 20
	MaxDeleteTransactionSize = 65536
)

// BadgerStore is a libkv store.Store backed by a local Badger database.
// Keys are treated as '/' separated paths for List and DeleteTree.
type BadgerStore struct {
	db *badger.DB
}

// Ensure BadgerStore satisfies store.Store interface
var _ = (store.Store)((*BadgerStore)(nil))

func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Dir = dir
	opts.ValueDir = dir
	opts.ValueLogFileSize = MaxValueLogFileSize
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func normalizeKey(key string) string {
	return strings.Trim(key, "/")
}

func dirPrefix(directory string) []byte {
	d := normalizeKey(directory)
	if d == "" {
		return nil
	}
	return []byte(d + "/")
}

func (s *BadgerStore) Close() {
	s.db.Close()
}

func (s *BadgerStore) Get(key string) (*store.KVPair, error) {
	var pair *store.KVPair
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(normalizeKey(key)))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		pair = &store.KVPair{Key: key, Value: val, LastIndex: item.Version()}
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, store.ErrKeyNotFound
	} else if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *BadgerStore) Exists(key string) (bool, error) {
	_, err := s.Get(key)
	if err == store.ErrKeyNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (s *BadgerStore) Put(key string, value []byte, options *store.WriteOptions) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(normalizeKey(key)), value)
	})
}

func (s *BadgerStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(normalizeKey(key)))
	})
}

// List returns all keys directly or indirectly under directory. An empty
// directory returns an empty list, not an error.
func (s *BadgerStore) List(directory string) ([]*store.KVPair, error) {
	prefix := dirPrefix(directory)
	var pairs []*store.KVPair
	err := s.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			item := iter.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			pairs = append(pairs, &store.KVPair{
				Key:       string(item.KeyCopy(nil)),
				Value:     val,
				LastIndex: item.Version(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// DeleteTree deletes every key under directory. Large trees are deleted over
// multiple transactions, and there are no guarantees which keys have been
// deleted on error.
func (s *BadgerStore) DeleteTree(directory string) error {
	prefix := dirPrefix(directory)
	more := true
	var err error
	for more && err == nil {
		more = false
		err = s.db.Update(func(txn *badger.Txn) error {
			iter := txn.NewIterator(badger.IteratorOptions{})
			defer iter.Close()
			iter.Seek(prefix)
			for i := 0; iter.ValidForPrefix(prefix) && i < MaxDeleteTransactionSize; i++ {
				// Txn.Delete holds onto the key slice, so a copy is needed.
				err := txn.Delete(iter.Item().KeyCopy(nil))
				if err == badger.ErrTxnTooBig {
					break
				} else if err != nil {
					return err
				}
				more = true
				iter.Next()
			}
			return nil
		})
		if more {
			// Give any pending GC a chance to stop the world between batches.
			runtime.Gosched()
		}
	}
	return err
}

func (s *BadgerStore) AtomicPut(key string, value []byte, previous *store.KVPair, options *store.WriteOptions) (bool, *store.KVPair, error) {
	bKey := []byte(normalizeKey(key))

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(bKey)
		if err == badger.ErrKeyNotFound {
			if previous != nil {
				return store.ErrKeyNotFound
			}
		} else if err != nil {
			return err
		} else if previous == nil {
			return store.ErrKeyExists
		} else if previous.LastIndex != 0 && item.Version() != previous.LastIndex {
			return store.ErrKeyModified
		}
		return txn.Set(bKey, value)
	})
	if err != nil {
		return false, nil, err
	}

	// Re-read to report the version assigned to the write.
	updated, err := s.Get(key)
	if err != nil {
		return false, nil, err
	}
	return true, updated, nil
}

func (s *BadgerStore) AtomicDelete(key string, previous *store.KVPair) (bool, error) {
	if previous == nil {
		return false, store.ErrPreviousNotSpecified
	}

	bKey := []byte(normalizeKey(key))
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(bKey)
		if err == badger.ErrKeyNotFound {
			return store.ErrKeyNotFound
		} else if err != nil {
			return err
		} else if previous.LastIndex != 0 && item.Version() != previous.LastIndex {
			return store.ErrKeyModified
		}
		return txn.Delete(bKey)
	})

	return err == nil, err
}

func (*BadgerStore) Watch(key string, stopCh <-chan struct{}) (<-chan *store.KVPair, error) {
	return nil, store.ErrCallNotSupported
}

func (*BadgerStore) WatchTree(directory string, stopCh <-chan struct{}) (<-chan []*store.KVPair, error) {
	return nil, store.ErrCallNotSupported
}

func (*BadgerStore) NewLock(key string, options *store.LockOptions) (store.Locker, error) {
	return nil, store.ErrCallNotSupported
}
