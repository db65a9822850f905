package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"
	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/component/milvus"
	"github.com/kart-io/casegen/pkg/llm"
	apierrors "github.com/kart-io/casegen/pkg/utils/errors"
	"github.com/kart-io/casegen/pkg/utils/id"
	"github.com/kart-io/casegen/pkg/utils/validator"
)

// Milvus 集合字段。
const (
	fieldContent  = "content"
	fieldSource   = "source"
	fieldPosition = "position"

	maxContentLen = 65535
	maxSourceLen  = 1024
	// maxDimension 为 Milvus 浮点向量的最大维度。
	maxDimension = 32768
)

var outputFields = []string{fieldContent, fieldSource, fieldPosition}

// MilvusIndex 为每个请求创建独立的 Milvus 集合（COSINE 度量）。
type MilvusIndex struct {
	client   *milvus.Client
	embedder embedder
	prefix   string
}

var _ VectorIndex = (*MilvusIndex)(nil)

// NewMilvusIndex 创建 Milvus 索引。
func NewMilvusIndex(client *milvus.Client, provider llm.EmbeddingProvider, v *validator.Validator) *MilvusIndex {
	if v == nil {
		v = validator.New()
	}
	return &MilvusIndex{
		client:   client,
		embedder: embedder{provider: provider, validator: v},
		prefix:   client.Options().CollectionPrefix,
	}
}

// Name 返回后端名称。
func (m *MilvusIndex) Name() string { return "milvus" }

// BuildIndex 创建请求集合并写入全部文档块。
func (m *MilvusIndex) BuildIndex(ctx context.Context, chunks []model.Chunk) (IndexHandle, error) {
	provider, vectors, err := m.embedder.prepare(ctx, chunks)
	if errors.Is(err, errNoVocabulary) {
		return emptyHandle{size: len(chunks)}, nil
	}
	if err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	if dim == 0 || dim > maxDimension {
		return nil, apierrors.ErrIndexFailed.WithMessagef("embedding dimension %d out of range (1-%d)", dim, maxDimension)
	}

	collection := id.NewULIDWithPrefix(m.prefix + "_")
	schema := &milvus.CollectionSchema{
		Name:        collection,
		Description: "casegen request index",
		Dimension:   dim,
		Metric:      entity.COSINE,
		MetaFields: []milvus.MetaField{
			{Name: fieldContent, DataType: entity.FieldTypeVarChar, MaxLen: maxContentLen},
			{Name: fieldSource, DataType: entity.FieldTypeVarChar, MaxLen: maxSourceLen},
			{Name: fieldPosition, DataType: entity.FieldTypeInt64},
		},
	}
	if err := m.client.CreateCollection(ctx, schema); err != nil {
		return nil, apierrors.ErrIndexFailed.WithCause(err)
	}

	h := &milvusHandle{client: m.client, provider: provider, collection: collection, size: len(chunks)}
	if _, err := m.client.Insert(ctx, collection, insertData(chunks, vectors)); err != nil {
		_ = h.Close(context.WithoutCancel(ctx))
		return nil, apierrors.ErrIndexFailed.WithCause(err)
	}

	logger.Debugw("milvus request collection created", "collection", collection, "chunks", len(chunks), "dimension", dim)
	return h, nil
}

func insertData(chunks []model.Chunk, vectors [][]float32) *milvus.InsertData {
	metadata := map[string][]any{
		fieldContent:  make([]any, len(chunks)),
		fieldSource:   make([]any, len(chunks)),
		fieldPosition: make([]any, len(chunks)),
	}
	for i, c := range chunks {
		metadata[fieldContent][i] = truncateBytes(c.Content, maxContentLen)
		metadata[fieldSource][i] = truncateBytes(c.Source, maxSourceLen)
		metadata[fieldPosition][i] = int64(c.Position)
	}
	return &milvus.InsertData{Embeddings: vectors, Metadata: metadata}
}

// truncateBytes 按字节上限截断，且不拆分 UTF-8 字符。
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}

type milvusHandle struct {
	client     *milvus.Client
	provider   llm.EmbeddingProvider
	collection string
	size       int
}

func (h *milvusHandle) Size() int { return h.size }

func (h *milvusHandle) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	qv, err := h.provider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if isZero(qv) {
		return nil, nil
	}

	results, err := h.client.Search(ctx, h.collection, qv, k, outputFields)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hit, err := hitFromResult(r)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	sortHits(hits)
	return hits, nil
}

func (h *milvusHandle) Close(ctx context.Context) error {
	if err := h.client.DropCollection(ctx, h.collection); err != nil {
		logger.Warnw("failed to drop request collection", "collection", h.collection, "error", err.Error())
		return err
	}
	return nil
}

// hitFromResult 将 Milvus 检索结果转换为 Hit。
func hitFromResult(r milvus.SearchResult) (Hit, error) {
	content, ok := r.Metadata[fieldContent].(string)
	if !ok {
		return Hit{}, fmt.Errorf("milvus result %d: missing %s", r.ID, fieldContent)
	}
	source, _ := r.Metadata[fieldSource].(string)
	position, ok := r.Metadata[fieldPosition].(int64)
	if !ok {
		return Hit{}, fmt.Errorf("milvus result %d: missing %s", r.ID, fieldPosition)
	}
	return Hit{
		Content:  content,
		Source:   source,
		Position: int(position),
		Score:    float64(r.Score),
	}, nil
}
