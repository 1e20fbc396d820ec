package batch

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Record is one journal line. From == To marks an annotation (a rename or
// the built tx bytes) rather than a state change.
type Record struct {
	Seq   uint64
	TxID  string
	Name  string
	From  State
	To    State
	At    time.Time
	TxHex string
	Error string
	Note  string
}

var bucketBatches = []byte("batches")

// BoltJournal persists records in bbolt, one nested bucket per batch keyed
// by a big-endian sequence number.
type BoltJournal struct {
	db *bbolt.DB
}

var _ Journal = (*BoltJournal)(nil)

// OpenBoltJournal opens or creates the journal at dbPath. The parent
// directory is created if it does not exist.
func OpenBoltJournal(dbPath string) (*BoltJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("batch: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("batch: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBatches)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("batch: create buckets: %w", err)
	}
	return &BoltJournal{db: db}, nil
}

// Close closes the underlying database.
func (j *BoltJournal) Close() error { return j.db.Close() }

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Record appends rec to batchID's log, assigning Seq and (if unset) At.
func (j *BoltJournal) Record(batchID string, rec Record) error {
	err := j.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketBatches).CreateBucketIfNotExists([]byte(batchID))
		if err != nil {
			return fmt.Errorf("batch: create batch bucket: %w", err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq
		if rec.At.IsZero() {
			rec.At = time.Now()
		}
		data, err := encodeGob(rec)
		if err != nil {
			return fmt.Errorf("batch: encode record: %w", err)
		}
		return b.Put(seqKey(seq), data)
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrJournalClosed
	}
	return err
}

// Entries returns every record of a batch in order.
func (j *BoltJournal) Entries(batchID string) ([]Record, error) {
	var out []Record
	err := j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBatches).Bucket([]byte(batchID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := decodeGob(v, &rec); err != nil {
				return fmt.Errorf("batch: decode record: %w", err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the records of one transaction in a batch.
func (j *BoltJournal) History(batchID, txID string) ([]Record, error) {
	all, err := j.Entries(batchID)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range all {
		if r.TxID == txID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Batches returns the ids of every journaled batch.
func (j *BoltJournal) Batches() ([]string, error) {
	var out []string
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBatches).ForEach(func(k, v []byte) error {
			if v == nil {
				out = append(out, string(k))
			}
			return nil
		})
	})
	return out, err
}
