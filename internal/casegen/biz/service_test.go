package biz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/casegen/internal/casegen/ingest"
	"github.com/kart-io/casegen/internal/casegen/metrics"
	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/casegen/store"
	"github.com/kart-io/casegen/pkg/infra/middleware"
	"github.com/kart-io/casegen/pkg/llm/resilience"
	"github.com/kart-io/casegen/pkg/llm/tfidf"
	apierrors "github.com/kart-io/casegen/pkg/utils/errors"
	"github.com/kart-io/casegen/pkg/utils/httpclient"
)

const loginDoc = "Login page: the user enters a username and a password. " +
	"When the password is shorter than 8 characters the page shows the error Password too short. " +
	"After a successful login the dashboard is displayed."

const cafeteriaDoc = "The cafeteria menu lists soup, salad and sandwiches for lunch on weekdays."

type serviceFixture struct {
	service *Service
	chat    *fakeChat
	metrics *metrics.Collector
}

func newServiceFixture(t *testing.T, chat *fakeChat, cache *ResultCache) *serviceFixture {
	t.Helper()
	m := metrics.New()
	svc := NewService(&Components{
		Extractor: ingest.NewExtractor(nil, nil),
		Chunker:   NewChunker(&ChunkerConfig{ChunkSize: 500, ChunkOverlap: 100}),
		Index:     store.NewMemoryIndex(tfidf.NewEmbedder(), nil),
		Retriever: NewRetriever(&RetrieverConfig{VectorWeight: 0.7, LexicalWeight: 0.3, CandidateFactor: 4}),
		Gate:      NewEvidenceGate(0.35),
		Generator: NewGenerator(chat, &GeneratorConfig{
			MaxContextRunes: 12000,
			Retry:           &resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 1},
		}, m),
		Cache:   cache,
		Metrics: m,
	}, &ServiceConfig{TopK: 5})
	return &serviceFixture{service: svc, chat: chat, metrics: m}
}

func txt(name, content string) ingest.File {
	return ingest.File{Name: name, Data: []byte(content)}
}

func assertInsufficient(t *testing.T, resp *model.QueryResponse) {
	t.Helper()
	require.NotNil(t, resp)
	assert.Equal(t, model.StatusInsufficientInfo, resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, model.StatusInsufficientInfo, resp.Result.Status)
	assert.NotEmpty(t, resp.Result.MissingInformation)
	assert.NotNil(t, resp.Result.UseCases)
	assert.Empty(t, resp.Result.UseCases)
}

func TestHandleQuery_NoFiles(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{responses: []string{successJSON}}, nil)

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{Query: "login tests"})

	require.NoError(t, err)
	assertInsufficient(t, resp)
	assert.Equal(t, "No readable text found in uploaded files.", resp.Message)
	assert.NotEmpty(t, resp.RequestID)
	assert.Zero(t, f.chat.Calls())
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ShortCircuits[metrics.ReasonEmptyInput])
}

func TestHandleQuery_UnrelatedDocumentRejectedByGate(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{responses: []string{successJSON}}, nil)

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("menu.txt", cafeteriaDoc)},
		Query: "Generate test cases for login password validation",
		Debug: true,
	})

	require.NoError(t, err)
	assertInsufficient(t, resp)
	assert.Equal(t, "Insufficient context to generate a reliable answer. Please upload more relevant documents.", resp.Message)
	assert.Zero(t, f.chat.Calls(), "the model must not be called when evidence is insufficient")

	require.NotNil(t, resp.EvidenceScore)
	assert.Less(t, *resp.EvidenceScore, 0.35)
	require.NotNil(t, resp.RetrievedChunkCount)
	require.NotNil(t, resp.Evaluation)
	assert.True(t, resp.Evaluation.Passed)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ShortCircuits[metrics.ReasonInsufficientEvidence])
}

func TestHandleQuery_GroundedSuccess(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{responses: []string{successJSON}}, nil)
	expected, err := ParseResult(successJSON)
	require.NoError(t, err)

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("login.txt", loginDoc)},
		Query: "login password validation",
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, model.StatusSuccess, resp.Status)
	assert.Empty(t, resp.Message)
	assert.Equal(t, expected.UseCases, resp.Result.UseCases)
	assert.Equal(t, 1, f.chat.Calls())
	assert.GreaterOrEqual(t, resp.LatencySeconds, 0.0)
	assert.Nil(t, resp.Evaluation, "debug fields only on request")
	assert.Nil(t, resp.EvidenceScore)

	// 上下文即检索到的文本块
	assert.Contains(t, f.chat.messages[0][1].Content, "CONTEXT:\n"+loginDoc+"\n\nUSER QUERY:\nlogin password validation")
	assert.Equal(t, uint64(1), f.metrics.Snapshot().QueriesSuccess)
}

func TestHandleQuery_UnrelatedUploadDoesNotDiluteEvidence(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{responses: []string{successJSON}}, nil)

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("login.txt", loginDoc), txt("menu.txt", cafeteriaDoc)},
		Query: "login password validation",
		Debug: true,
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, model.StatusSuccess, resp.Status)
	assert.Equal(t, 1, f.chat.Calls())
	require.NotNil(t, resp.RetrievedChunkCount)
	assert.Equal(t, 1, *resp.RetrievedChunkCount)
	require.NotNil(t, resp.EvidenceScore)
	assert.GreaterOrEqual(t, *resp.EvidenceScore, 0.35)
}

type staticExtractor struct {
	docs []model.RawDocument
}

func (e staticExtractor) ExtractAll(context.Context, []ingest.File) []model.RawDocument {
	return e.docs
}

func TestHandleQuery_NoChunks(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{responses: []string{successJSON}}, nil)
	f.service.extractor = staticExtractor{docs: []model.RawDocument{{Source: "blank.txt", Content: " \n\t "}}}

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("blank.txt", " ")},
		Query: "login",
	})

	require.NoError(t, err)
	assertInsufficient(t, resp)
	assert.Equal(t, apierrors.ErrNoChunks.MessageEN, resp.Message)
	assert.Zero(t, f.chat.Calls())
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ShortCircuits[metrics.ReasonNoChunks])
}

func TestHandleQuery_StopwordOnlyDocument(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{responses: []string{successJSON}}, nil)

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("noise.txt", "the and of to")},
		Query: "login",
	})

	require.NoError(t, err)
	assertInsufficient(t, resp)
	assert.Zero(t, f.chat.Calls())
}

func TestHandleQuery_BlankFilesProduceNoDocuments(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{}, nil)

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("blank.txt", "  \n "), {Name: "image.gif", Data: []byte("GIF89a")}},
		Query: "login",
	})

	require.NoError(t, err)
	assertInsufficient(t, resp)
	assert.Equal(t, apierrors.ErrEmptyInput.MessageEN, resp.Message)
}

func TestHandleQuery_ModelDeclines(t *testing.T) {
	chat := &fakeChat{responses: []string{`{"status":"insufficient_info","assumptions":[],"missing_information":["Lockout policy"],"use_cases":[]}`}}
	f := newServiceFixture(t, chat, nil)

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("login.txt", loginDoc)},
		Query: "login password validation",
		Debug: true,
	})

	require.NoError(t, err)
	assertInsufficient(t, resp)
	assert.Equal(t, []string{"Lockout policy"}, resp.Result.MissingInformation)
	assert.Empty(t, resp.Message)
	require.NotNil(t, resp.EvidenceScore)
	assert.GreaterOrEqual(t, *resp.EvidenceScore, 0.35)
}

func TestHandleQuery_TransportErrorPropagates(t *testing.T) {
	chat := &fakeChat{errs: []error{&httpclient.StatusError{StatusCode: 400, Body: "bad deployment"}}}
	f := newServiceFixture(t, chat, nil)

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("login.txt", loginDoc)},
		Query: "login password validation",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, apierrors.ErrTransport)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().QueriesErrors)
}

func TestHandleQuery_InvalidRequests(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{}, nil)
	negative := -1

	_, err := f.service.HandleQuery(context.Background(), &QueryRequest{Query: "   "})
	assert.ErrorIs(t, err, apierrors.ErrCaseGenInvalidRequest)

	_, err = f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("login.txt", loginDoc)},
		Query: "login",
		TopK:  &negative,
	})
	assert.ErrorIs(t, err, apierrors.ErrCaseGenInvalidRequest)
	assert.Zero(t, f.chat.Calls())
}

func TestHandleQuery_ZeroTopKRejectedByGate(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{responses: []string{successJSON}}, nil)
	zero := 0

	resp, err := f.service.HandleQuery(context.Background(), &QueryRequest{
		Files: []ingest.File{txt("login.txt", loginDoc)},
		Query: "login password validation",
		TopK:  &zero,
	})

	require.NoError(t, err)
	assertInsufficient(t, resp)
	assert.Zero(t, f.chat.Calls())
}

func TestHandleQuery_UsesRequestIDFromContext(t *testing.T) {
	f := newServiceFixture(t, &fakeChat{}, nil)
	ctx := middleware.WithRequestID(context.Background(), "01HZYREQUEST")

	resp, err := f.service.HandleQuery(ctx, &QueryRequest{Query: "login"})
	require.NoError(t, err)
	assert.Equal(t, "01HZYREQUEST", resp.RequestID)
}

func TestHandleQuery_CachedResultSkipsModel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	chat := &fakeChat{responses: []string{successJSON}}
	f := newServiceFixture(t, chat, NewResultCache(client, nil))
	req := &QueryRequest{
		Files: []ingest.File{txt("login.txt", loginDoc)},
		Query: "login password validation",
	}

	first, err := f.service.HandleQuery(context.Background(), req)
	require.NoError(t, err)
	second, err := f.service.HandleQuery(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, chat.Calls())
	assert.Equal(t, first.Result.UseCases, second.Result.UseCases)
	assert.NotEqual(t, first.RequestID, second.RequestID)

	s := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), s.CacheHits)
	assert.Equal(t, uint64(1), s.CacheMisses)
}
