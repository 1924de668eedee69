package services

import (
	"context"
	"log/slog"
	"sort"

	"obpm/pkg/models"
	"obpm/pkg/store"
	"obpm/pkg/tree"
)

// RecordService answers audit-trail queries. Records are written by the
// executor and immutable afterwards; this service only reads them.
type RecordService struct {
	store  store.Store
	reader *tree.GraphReader
	logger *slog.Logger
}

func NewRecordService(s store.Store, reader *tree.GraphReader, logger *slog.Logger) *RecordService {
	return &RecordService{
		store:  s,
		reader: reader,
		logger: logger.With("module", "record_service"),
	}
}

// RecordsByCase lists the audit records of every document in the case's
// graph, newest first.
func (s *RecordService) RecordsByCase(ctx context.Context, caseKey string) ([]*models.Record, error) {
	caseTree, err := s.reader.CaseTree(ctx, caseKey)
	if err != nil {
		return nil, err
	}

	members := make(map[string]bool)

	for id := range caseTree.Documents() {
		members[store.KeyFromID(id)] = true
	}

	return s.records(ctx, func(record *models.Record) bool {
		return members[record.Document.Key]
	})
}

// RecordsByDocument lists the audit records of a single document, newest
// first.
func (s *RecordService) RecordsByDocument(ctx context.Context, documentKey string) ([]*models.Record, error) {
	return s.records(ctx, func(record *models.Record) bool {
		return record.Document.Key == documentKey
	})
}

func (s *RecordService) records(ctx context.Context, keep func(*models.Record) bool) ([]*models.Record, error) {
	bodies, err := s.store.Documents(ctx, models.CollectionRecord)
	if err != nil {
		return nil, err
	}

	var records []*models.Record

	for _, body := range bodies {
		var record models.Record
		if err := decode(body, &record); err != nil {
			return nil, err
		}

		if keep(&record) {
			records = append(records, &record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})

	return records, nil
}
