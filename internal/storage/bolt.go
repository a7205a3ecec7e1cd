// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ipdossier/internal/investigation"

	"github.com/pterm/pterm"
	"go.etcd.io/bbolt"
)

var bucketDocuments = []byte("documents")

// BoltAdapter keeps the document in a local bbolt file. bbolt serialises
// writers, so the version check and the write share one transaction.
type BoltAdapter struct {
	db         *bbolt.DB
	logger     *pterm.Logger
	bodyKey    []byte
	versionKey []byte
}

func OpenBolt(path, namespace string, logger *pterm.Logger) (*BoltAdapter, error) {
	if namespace == "" {
		namespace = investigation.DefaultNamespace
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistArrayType,
	})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	logger.Debug("Bolt document store opened", logger.Args("path", path, "namespace", namespace))
	return &BoltAdapter{
		db:         db,
		logger:     logger,
		bodyKey:    []byte(namespace + "/" + fieldBody),
		versionKey: []byte(namespace + "/" + fieldVersion),
	}, nil
}

func (a *BoltAdapter) Load(ctx context.Context) (investigation.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return investigation.Snapshot{}, err
	}

	var snap investigation.Snapshot
	err := a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if body := b.Get(a.bodyKey); body != nil {
			// Values are only valid for the life of the transaction
			snap.Body = append([]byte(nil), body...)
		}
		snap.Version = decodeVersion(b.Get(a.versionKey))
		return nil
	})
	return snap, err
}

func (a *BoltAdapter) Save(ctx context.Context, body []byte, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	next := expectedVersion + 1
	err := a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if current := decodeVersion(b.Get(a.versionKey)); current != expectedVersion {
			return fmt.Errorf("%w: stored version %d, expected %d", investigation.ErrVersionConflict, current, expectedVersion)
		}
		if err := b.Put(a.bodyKey, body); err != nil {
			return err
		}
		return b.Put(a.versionKey, encodeVersion(next))
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (a *BoltAdapter) Close() error {
	return a.db.Close()
}

func encodeVersion(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeVersion(raw []byte) int64 {
	if len(raw) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(raw))
}
