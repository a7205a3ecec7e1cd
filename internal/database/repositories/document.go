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
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipdossier/internal/database/models"
	"ipdossier/internal/investigation"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository stores the investigation document in SQL and satisfies
// investigation.Adapter.
type DocumentRepository interface {
	Load(ctx context.Context) (investigation.Snapshot, error)
	Save(ctx context.Context, body []byte, expectedVersion int64) (int64, error)
	Namespace() string
}

type documentRepo struct {
	db        *gorm.DB
	logger    *pterm.Logger
	namespace string
}

func NewDocumentRepository(db *gorm.DB, logger *pterm.Logger, namespace string) DocumentRepository {
	if namespace == "" {
		namespace = investigation.DefaultNamespace
	}
	return &documentRepo{db: db, logger: logger, namespace: namespace}
}

func (r *documentRepo) Namespace() string {
	return r.namespace
}

func (r *documentRepo) Load(ctx context.Context) (investigation.Snapshot, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where("namespace = ?", r.namespace).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return investigation.Snapshot{}, nil
	}
	if err != nil {
		return investigation.Snapshot{}, err
	}
	return investigation.Snapshot{Body: []byte(doc.Body), Version: doc.Version}, nil
}

// Save writes body if the stored version still equals expectedVersion.
func (r *documentRepo) Save(ctx context.Context, body []byte, expectedVersion int64) (int64, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		r.logger.WithCaller().Error("Failed to begin transaction", r.logger.Args("error", tx.Error))
		return 0, tx.Error
	}

	next := expectedVersion + 1
	var result *gorm.DB
	if expectedVersion == 0 {
		result = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}},
			DoNothing: true,
		}).Create(&models.Document{
			Namespace: r.namespace,
			Version:   next,
			Body:      string(body),
		})
	} else {
		result = tx.Model(&models.Document{}).
			Where("namespace = ? AND version = ?", r.namespace, expectedVersion).
			Updates(map[string]interface{}{
				"version":    next,
				"body":       string(body),
				"updated_at": time.Now(),
			})
	}
	if result.Error != nil {
		tx.Rollback()
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		r.logger.Debug("Document version moved",
			r.logger.Args("namespace", r.namespace, "expected_version", expectedVersion))
		return 0, fmt.Errorf("%w: namespace %s expected version %d", investigation.ErrVersionConflict, r.namespace, expectedVersion)
	}

	if err := tx.Commit().Error; err != nil {
		r.logger.WithCaller().Error("Failed to commit transaction", r.logger.Args("error", err))
		return 0, err
	}
	return next, nil
}
