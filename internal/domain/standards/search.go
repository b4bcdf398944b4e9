package standards

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// searchDocument is the indexed form of a quality standard
type searchDocument struct {
	ItemName string `json:"item_name"`
	ItemType string `json:"item_type"`
	Text     string `json:"text"` // inspection items, methods and criteria
}

// SearchHit is a standard id with its relevance score
type SearchHit struct {
	StandardID int64
	Score      float64
}

// SearchIndex is an in-memory full-text index over quality standards.
// Chinese text is split into bigrams.
type SearchIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewSearchIndex creates an empty in-memory index
func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = cjk.AnalyzerName

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("item_name", textField)
	doc.AddFieldMappingsAt("text", textField)
	doc.AddFieldMappingsAt("item_type", keywordField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = cjk.AnalyzerName
	return im
}

// Rebuild replaces the index contents with standards
func (si *SearchIndex) Rebuild(standards []QualityStandard) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	count, err := si.index.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count indexed standards: %w", err)
	}
	all := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	all.Size = int(count)
	existing, err := si.index.Search(all)
	if err != nil {
		return fmt.Errorf("failed to list indexed standards: %w", err)
	}

	batch := si.index.NewBatch()
	for _, hit := range existing.Hits {
		batch.Delete(hit.ID)
	}
	for _, qs := range standards {
		doc := searchDocument{
			ItemName: qs.ItemName,
			ItemType: qs.ItemType,
			Text: strings.Join(append(append(append([]string{},
				qs.InspectionItems...), qs.InspectionMethods...), qs.AcceptanceCriteria...), " "),
		}
		if err := batch.Index(strconv.FormatInt(qs.StandardID, 10), doc); err != nil {
			return fmt.Errorf("failed to index standard %d: %w", qs.StandardID, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute index batch: %w", err)
	}
	return nil
}

// Search matches keyword against names and inspection text. A non-empty
// itemType restricts hits to that type.
func (si *SearchIndex) Search(keyword, itemType string, limit int) ([]SearchHit, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	nameQuery := bleve.NewMatchQuery(keyword)
	nameQuery.SetField("item_name")
	nameQuery.SetBoost(2)
	textQuery := bleve.NewMatchQuery(keyword)
	textQuery.SetField("text")

	var q query.Query = bleve.NewDisjunctionQuery(nameQuery, textQuery)
	if itemType != "" {
		typeQuery := bleve.NewTermQuery(itemType)
		typeQuery.SetField("item_type")
		q = bleve.NewConjunctionQuery(q, typeQuery)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit

	res, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, SearchHit{StandardID: id, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed standards
func (si *SearchIndex) Count() (uint64, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return si.index.DocCount()
}

// Close releases the index
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Close()
}
