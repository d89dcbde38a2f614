package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"Aethena/backend/go/internal/config"
	"Aethena/backend/go/internal/database/milvus"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/logger"
	"Aethena/backend/go/pkg/util"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// Schema fields of every tenant collection.
	FieldID          = "id"
	FieldEmbedding   = "embedding"
	FieldText        = "text"
	FieldTenantID    = "tenant_id"
	FieldSourceFile  = "source_file"
	FieldStoragePath = "storage_path"
	FieldFileType    = "file_type"
	FieldPosition    = "position"
	FieldSourceLabel = "source_label"

	idMaxLength    = 64
	shortMaxLength = 1024
)

var outputFields = []string{
	FieldID, FieldText, FieldTenantID, FieldSourceFile, FieldStoragePath,
	FieldFileType, FieldPosition, FieldSourceLabel,
}

// collectionState serializes provisioning of one collection.
type collectionState struct {
	mu    sync.Mutex
	ready bool
}

// MilvusIndex implements the VectorIndex interface with one Milvus collection
// per tenant. Collections are created, indexed and loaded on first use.
type MilvusIndex struct {
	client      client.Client
	cfg         config.MilvusConfig
	index       entity.Index
	searchParam entity.SearchParam
	metric      entity.MetricType
	collections *util.LRUCache[string, *collectionState]
	log         *logger.Logger
}

// NewMilvusIndex creates a MilvusIndex over an existing client connection.
func NewMilvusIndex(c client.Client, cfg config.MilvusConfig, log *logger.Logger) (*MilvusIndex, error) {
	if c == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if cfg.Dim <= 0 {
		return nil, fmt.Errorf("milvus dim must be positive, got %d", cfg.Dim)
	}
	idx, err := milvus.BuildIndex(cfg.Index)
	if err != nil {
		return nil, err
	}
	sp, err := milvus.BuildSearchParam(cfg.Index)
	if err != nil {
		return nil, err
	}
	cache, err := util.NewWithConfig[string, *collectionState](util.CacheConfig{Capacity: 4096})
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &MilvusIndex{
		client:      c,
		cfg:         cfg,
		index:       idx,
		searchParam: sp,
		metric:      milvus.MetricType(cfg.Index),
		collections: cache,
		log:         log.WithField("component", "milvus_index"),
	}, nil
}

// Upsert writes units into the tenant's collection, creating it if needed.
// Units are keyed by ID so re-ingesting a file replaces its earlier units.
func (s *MilvusIndex) Upsert(ctx context.Context, tenantID string, units []*schema.RetrievableUnit) error {
	if len(units) == 0 {
		return nil
	}
	name, err := CollectionName(s.cfg.CollectionPrefix, tenantID)
	if err != nil {
		return err
	}

	n := len(units)
	var (
		ids          = make([]string, n)
		texts        = make([]string, n)
		tenants      = make([]string, n)
		files        = make([]string, n)
		storagePaths = make([]string, n)
		fileTypes    = make([]string, n)
		positions    = make([]int64, n)
		labels       = make([]string, n)
		vectors      = make([][]float32, n)
	)
	for i, u := range units {
		if len(u.Embedding) != s.cfg.Dim {
			return fmt.Errorf("%w: unit %s has dimension %d, collection expects %d",
				schema.ErrInvalidInput, u.ID, len(u.Embedding), s.cfg.Dim)
		}
		if u.TenantID != "" && u.TenantID != tenantID {
			return fmt.Errorf("%w: unit %s belongs to another tenant", schema.ErrInvalidInput, u.ID)
		}
		ids[i] = u.ID
		texts[i] = truncateBytes(u.Text, s.cfg.TextMaxLength)
		tenants[i] = tenantID
		files[i] = truncateBytes(u.SourceFile, shortMaxLength)
		storagePaths[i] = truncateBytes(u.StoragePath, shortMaxLength)
		fileTypes[i] = string(u.FileType)
		positions[i] = int64(u.PositionOrZero())
		labels[i] = truncateBytes(u.SourceLabel, shortMaxLength)
		vectors[i] = u.Embedding
	}

	if err := s.ensureCollection(ctx, name, true); err != nil {
		return err
	}

	_, err = s.client.Upsert(ctx, name, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnVarChar(FieldTenantID, tenants),
		entity.NewColumnVarChar(FieldSourceFile, files),
		entity.NewColumnVarChar(FieldStoragePath, storagePaths),
		entity.NewColumnVarChar(FieldFileType, fileTypes),
		entity.NewColumnInt64(FieldPosition, positions),
		entity.NewColumnVarChar(FieldSourceLabel, labels),
		entity.NewColumnFloatVector(FieldEmbedding, s.cfg.Dim, vectors),
	)
	if err != nil {
		s.log.WithField("collection", name).Error(fmt.Sprintf("upsert failed: %v", err))
		return fmt.Errorf("%w: upsert into %s: %w", schema.ErrIndexUnavailable, name, err)
	}
	s.log.WithPayload(map[string]interface{}{"collection": name, "units": n}).Debug("upserted units")
	return nil
}

// SimilaritySearch returns the k most similar units of the tenant. A tenant
// that never ingested anything has no collection and gets an empty result.
func (s *MilvusIndex) SimilaritySearch(ctx context.Context, tenantID string, vector []float32, k int) ([]schema.SearchHit, error) {
	name, err := CollectionName(s.cfg.CollectionPrefix, tenantID)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != s.cfg.Dim {
		return nil, fmt.Errorf("%w: query dimension %d, collection expects %d", schema.ErrInvalidInput, len(vector), s.cfg.Dim)
	}

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	if err := s.ensureCollection(ctx, name, false); err != nil {
		return nil, err
	}

	results, err := s.client.Search(
		ctx, name, []string{}, tenantFilter(tenantID), outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, s.metric, k, s.searchParam,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		s.log.WithField("collection", name).Error(fmt.Sprintf("search failed: %v", err))
		return nil, fmt.Errorf("%w: search %s: %w", schema.ErrIndexUnavailable, name, err)
	}

	var hits []schema.SearchHit
	for _, res := range results {
		hits = append(hits, s.decode(res)...)
	}
	return hits, nil
}

func (s *MilvusIndex) decode(res client.SearchResult) []schema.SearchHit {
	column := func(name string) entity.Column {
		for _, field := range res.Fields {
			if field.Name() == name {
				return field
			}
		}
		return nil
	}
	varchars := func(name string) []string {
		if col, ok := column(name).(*entity.ColumnVarChar); ok {
			return col.Data()
		}
		return nil
	}
	at := func(data []string, i int) string {
		if i < len(data) {
			return data[i]
		}
		return ""
	}

	ids := varchars(FieldID)
	if ids == nil {
		if col, ok := res.IDs.(*entity.ColumnVarChar); ok {
			ids = col.Data()
		}
	}
	texts := varchars(FieldText)
	tenants := varchars(FieldTenantID)
	files := varchars(FieldSourceFile)
	storagePaths := varchars(FieldStoragePath)
	fileTypes := varchars(FieldFileType)
	labels := varchars(FieldSourceLabel)
	var positions []int64
	if col, ok := column(FieldPosition).(*entity.ColumnInt64); ok {
		positions = col.Data()
	}

	hits := make([]schema.SearchHit, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		u := &schema.RetrievableUnit{
			ID:          at(ids, i),
			Text:        at(texts, i),
			TenantID:    at(tenants, i),
			SourceFile:  at(files, i),
			StoragePath: at(storagePaths, i),
			FileType:    schema.FileType(at(fileTypes, i)),
			SourceLabel: at(labels, i),
		}
		if i < len(positions) && positions[i] > 0 {
			u.Position = schema.IntPtr(int(positions[i]))
		}
		var score float32
		if i < len(res.Scores) {
			score = res.Scores[i]
		}
		// L2 返回的是距离, 取负数后与 COSINE/IP 一样越大越相似
		if s.metric == entity.L2 {
			score = -score
		}
		hits = append(hits, schema.SearchHit{Unit: u, Score: score})
	}
	return hits
}

func (s *MilvusIndex) collectionExists(ctx context.Context, name string) (bool, error) {
	if state, ok := s.collections.Get(name); ok {
		state.mu.Lock()
		ready := state.ready
		state.mu.Unlock()
		if ready {
			return true, nil
		}
	}
	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: check collection %s: %w", schema.ErrIndexUnavailable, name, err)
	}
	return exists, nil
}

// ensureCollection makes sure the collection exists (when create is set),
// has its vector index and is loaded. Concurrent callers for the same name
// wait for one provisioning attempt.
func (s *MilvusIndex) ensureCollection(ctx context.Context, name string, create bool) error {
	state, _ := s.collections.GetOrPut(name, func() *collectionState { return &collectionState{} }, 1)
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.ready {
		return nil
	}

	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: check collection %s: %w", schema.ErrIndexUnavailable, name, err)
	}
	if !exists {
		if !create {
			return nil
		}
		if err := s.client.CreateCollection(ctx, s.collectionSchema(name), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("%w: create collection %s: %w", schema.ErrIndexUnavailable, name, err)
		}
		if err := s.client.CreateIndex(ctx, name, FieldEmbedding, s.index, false); err != nil {
			return fmt.Errorf("%w: create index on %s: %w", schema.ErrIndexUnavailable, name, err)
		}
		s.log.WithField("collection", name).Info("provisioned tenant collection")
	}
	if err := s.client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("%w: load collection %s: %w", schema.ErrIndexUnavailable, name, err)
	}
	state.ready = true
	return nil
}

func (s *MilvusIndex) collectionSchema(name string) *entity.Schema {
	varchar := func(field string, maxLen int) *entity.Field {
		return entity.NewField().WithName(field).WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(maxLen))
	}
	return entity.NewSchema().
		WithName(name).
		WithDescription("retrievable units of one tenant").
		WithField(varchar(FieldID, idMaxLength).WithIsPrimaryKey(true)).
		WithField(varchar(FieldText, s.cfg.TextMaxLength)).
		WithField(varchar(FieldTenantID, shortMaxLength)).
		WithField(varchar(FieldSourceFile, shortMaxLength)).
		WithField(varchar(FieldStoragePath, shortMaxLength)).
		WithField(varchar(FieldFileType, 16)).
		WithField(entity.NewField().WithName(FieldPosition).WithDataType(entity.FieldTypeInt64)).
		WithField(varchar(FieldSourceLabel, shortMaxLength)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.cfg.Dim)))
}

// tenantFilter builds the boolean expression restricting a search to one tenant.
func tenantFilter(tenantID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(tenantID)
	return fmt.Sprintf(`%s == "%s"`, FieldTenantID, escaped)
}

// truncateBytes cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateBytes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// compile-time check to ensure MilvusIndex implements the VectorIndex interface
var _ interfaces.VectorIndex = (*MilvusIndex)(nil)
