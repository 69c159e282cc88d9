package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/blugelabs/bluge"

	reportmodel "github.com/crowdshield/dashboard/backend/internal/model/report"
)

const (
	fieldType  = "type"
	fieldNote  = "note"
	fieldState = "state"
)

// Index is a full-text index over report notes and types.
type Index struct {
	writer *bluge.Writer
}

// OpenIndex opens a bluge index at path, or an in-memory one when path is empty.
func OpenIndex(path string) (*Index, error) {
	cfg := bluge.InMemoryOnlyConfig()
	if strings.TrimSpace(path) != "" {
		cfg = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("open report index: %w", err)
	}
	return &Index{writer: writer}, nil
}

func (i *Index) Add(r reportmodel.Report) error {
	doc := bluge.NewDocument(r.ID).
		AddField(bluge.NewTextField(fieldType, r.Type).StoreValue()).
		AddField(bluge.NewTextField(fieldNote, r.Note).StoreValue()).
		AddField(bluge.NewKeywordField(fieldState, strings.ToLower(r.State)).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the IDs of the best matching reports, best first.
func (i *Index) Search(ctx context.Context, text string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(text).SetField(fieldNote)).
		AddShould(bluge.NewMatchQuery(text).SetField(fieldType)).
		AddShould(bluge.NewTermQuery(strings.ToLower(text)).SetField(fieldState))
	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
				return false
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}
