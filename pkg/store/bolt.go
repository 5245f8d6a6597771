package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.etcd.io/bbolt"

	"smartreceipts/pkg/nfce"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var receiptsBucket = []byte("receipts")

// Bolt keeps receipts in a local bbolt file, keyed by big-endian ID.
type Bolt struct {
	db *bbolt.DB
}

// NewBolt opens (creating if needed) the database at path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(receiptsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

func key(id uint) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func (b *Bolt) Save(_ context.Context, r *nfce.Receipt) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(receiptsBucket)
		if r.ID == 0 {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			r.ID = uint(seq)
		} else if uint64(r.ID) > bucket.Sequence() {
			if err := bucket.SetSequence(uint64(r.ID)); err != nil {
				return err
			}
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		if r.Items == nil {
			r.Items = []nfce.ReceiptItem{}
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return bucket.Put(key(r.ID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

func (b *Bolt) Get(_ context.Context, id uint) (nfce.Receipt, error) {
	var r nfce.Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(receiptsBucket).Get(key(id))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		return nil
	})
	if err != nil {
		return nfce.Receipt{}, err
	}
	return r, nil
}

func (b *Bolt) List(_ context.Context) ([]nfce.Receipt, error) {
	receipts := make([]nfce.Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(receiptsBucket).ForEach(func(k, v []byte) error {
			var r nfce.Receipt
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshaling receipt %d: %w", binary.BigEndian.Uint64(k), err)
			}
			receipts = append(receipts, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	slices.SortStableFunc(receipts, func(a, b nfce.Receipt) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	return receipts, nil
}

func (b *Bolt) Delete(_ context.Context, id uint) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(receiptsBucket)
		if bucket.Get(key(id)) == nil {
			return ErrNotFound
		}
		return bucket.Delete(key(id))
	})
	if err == nil || err == ErrNotFound {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
