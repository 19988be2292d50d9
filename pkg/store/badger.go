package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"igfollow/pkg/logger"
)

// memberSep separates a set key from its member in badger keys. Handles
// never contain NUL.
const memberSep = "\x00"

// BadgerStore is the default embedded backend. Sets are stored as one key
// per member under the set key prefix so membership is a point lookup.
type BadgerStore struct {
	db *badger.DB
}

// badgerLogger adapts Logger to badger's logging interface
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {}

// NewBadgerStore opens (or creates) a badger database at path. An empty
// path opens an in-memory database.
func NewBadgerStore(path string, log logger.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if log != nil {
		opts = opts.WithLogger(&badgerLogger{log: log.WithField("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func memberKey(key, member string) []byte {
	return []byte(key + memberSep + member)
}

func (b *BadgerStore) Get(ctx context.Context, key string) (string, error) {
	var out string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		out = string(v)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	return out, err
}

func (b *BadgerStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), []byte(value))
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes a plain key or every member of a set
func (b *BadgerStore) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		members, err := setMembers(txn, key)
		if err != nil {
			return err
		}
		for _, k := range members {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		err = txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// SetAdd writes the new member and rewrites every existing member with the
// same ttl so the whole set expires together
func (b *BadgerStore) SetAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		members, err := setMembers(txn, key)
		if err != nil {
			return err
		}
		members = append(members, memberKey(key, member))
		for _, k := range members {
			e := badger.NewEntry(k, nil)
			if ttl > 0 {
				e = e.WithTTL(ttl)
			}
			if err := txn.SetEntry(e); err != nil {
				return err
			}
		}
		return nil
	})
}

func setMembers(txn *badger.Txn, key string) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(key + memberSep)

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}

func (b *BadgerStore) SetContains(ctx context.Context, key, member string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(key, member))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (b *BadgerStore) Ping(ctx context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return ctx.Err()
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
