package dump

import (
	"encoding/json"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// The index is a BadgerDB key-value store rebuilt from the filesystem at
// startup; the filesystem stays the source of truth. Keys:
//
// Data Type    Prefix   Key Format           Value Type
// =========================================================
// Dump Info    "d:"     d:<userId>:<dumpId>  Info (JSON)

const prefixDump = "d:"

func keyDump(userID, dumpID string) []byte {
	return []byte(prefixDump + userID + ":" + dumpID)
}

func keyUserPrefix(userID string) []byte {
	return []byte(prefixDump + userID + ":")
}

// index is the badger-backed metadata index serving List ordering and Stats
// aggregation without walking the filesystem per request.
type index struct {
	db *badger.DB
}

// openIndex opens (or creates) the badger index at dir.
func openIndex(dir string) (*index, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own logger is too chatty for an embedded index
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening dump index: %w", err)
	}
	return &index{db: db}, nil
}

// openInMemoryIndex opens an ephemeral index, used in tests.
func openInMemoryIndex() (*index, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory dump index: %w", err)
	}
	return &index{db: db}, nil
}

func (ix *index) close() error {
	return ix.db.Close()
}

// put stores or replaces the index entry for info.
func (ix *index) put(info *Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding dump info: %w", err)
	}
	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyDump(info.UserID, info.ID), data)
	})
}

// delete removes the index entry. Missing entries are not an error.
func (ix *index) delete(userID, dumpID string) error {
	return ix.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(keyDump(userID, dumpID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// get returns the entry or nil when absent.
func (ix *index) get(userID, dumpID string) (*Info, error) {
	var info *Info
	err := ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyDump(userID, dumpID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded Info
			if err := json.Unmarshal(val, &decoded); err != nil {
				return fmt.Errorf("decoding dump info: %w", err)
			}
			info = &decoded
			return nil
		})
	})
	return info, err
}

// listUser returns the user's dumps ordered by upload time descending.
func (ix *index) listUser(userID string) ([]*Info, error) {
	var infos []*Info
	prefix := keyUserPrefix(userID)

	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info Info
				if err := json.Unmarshal(val, &info); err != nil {
					return fmt.Errorf("decoding dump info: %w", err)
				}
				infos = append(infos, &info)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UploadedAt.After(infos[j].UploadedAt)
	})
	return infos, nil
}

// stats aggregates every entry in the index.
func (ix *index) stats() (*Stats, error) {
	st := &Stats{
		PerFormat: make(map[Format]int),
		PerUser:   make(map[string]int),
	}

	err := ix.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixDump)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info Info
				if err := json.Unmarshal(val, &info); err != nil {
					return fmt.Errorf("decoding dump info: %w", err)
				}
				st.TotalDumps++
				st.TotalBytes += info.Size
				st.PerFormat[info.Format]++
				st.PerUser[info.UserID]++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// clear drops every index entry, used before a rebuild.
func (ix *index) clear() error {
	return ix.db.DropAll()
}
