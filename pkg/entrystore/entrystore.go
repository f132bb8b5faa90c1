// SPDX-License-Identifier: Apache-2.0

// Package entrystore keeps a shadow copy of every table entry this
// controller has installed, keyed by table name. The verification reader
// diffs device read-back against it.
package entrystore

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/philippgille/gokv"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"

	p4_v1 "github.com/p4lang/p4runtime/go/p4/v1"

	"github.com/netprog/p4route-ctrl/pkg/storage"
)

var ErrKeyNotFound = errors.New("key not found")

// record is the stored form of one installed entry.
type record struct {
	Table string
	Entry []byte
}

// index lists the entry keys of one table.
type index struct {
	Keys []string
}

// Store is safe for use by one writer and concurrent readers.
type Store struct {
	mu     sync.Mutex
	client gokv.Store
}

// New opens a shadow store on the configured backend ("gomap" or "redis").
func New(dbtype, address string) (*Store, error) {
	st, err := storage.NewStore(dbtype, address)
	if err != nil {
		return nil, err
	}
	return &Store{client: st.GetClient()}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func entryKey(table string, raw []byte) string {
	sum := sha1.Sum(raw)
	return table + "/" + hex.EncodeToString(sum[:])
}

func indexKey(table string) string {
	return "index/" + table
}

// Put records one installed entry. Re-recording the same entry is a no-op.
func (s *Store) Put(table string, entry *p4_v1.TableEntry) error {
	raw, err := proto.Marshal(entry)
	if err != nil {
		return err
	}
	key := entryKey(table, raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Set(key, record{Table: table, Entry: raw}); err != nil {
		return err
	}

	var idx index
	if _, err := s.client.Get(indexKey(table), &idx); err != nil {
		return err
	}
	for _, k := range idx.Keys {
		if k == key {
			return nil
		}
	}
	idx.Keys = append(idx.Keys, key)
	return s.client.Set(indexKey(table), idx)
}

// Remove forgets one entry, typically after a successful delete write.
func (s *Store) Remove(table string, entry *p4_v1.TableEntry) error {
	raw, err := proto.Marshal(entry)
	if err != nil {
		return err
	}
	key := entryKey(table, raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Delete(key); err != nil {
		return err
	}

	var idx index
	found, err := s.client.Get(indexKey(table), &idx)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	kept := idx.Keys[:0]
	for _, k := range idx.Keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	idx.Keys = kept
	return s.client.Set(indexKey(table), idx)
}

// Entries returns everything recorded for one table, in no particular
// order.
func (s *Store) Entries(table string) ([]*p4_v1.TableEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx index
	found, err := s.client.Get(indexKey(table), &idx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var entries []*p4_v1.TableEntry
	for _, key := range idx.Keys {
		var rec record
		found, err := s.client.Get(key, &rec)
		if err != nil {
			return nil, err
		}
		if !found {
			log.Warnf("entrystore: index of table %q references missing key %s", table, key)
			continue
		}
		var entry p4_v1.TableEntry
		if err := proto.Unmarshal(rec.Entry, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
