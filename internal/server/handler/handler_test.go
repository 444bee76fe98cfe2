package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/skappel/farescout/internal/airports"
	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
	"github.com/skappel/farescout/internal/jobs"
	"github.com/skappel/farescout/internal/mocks"
	"github.com/skappel/farescout/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory job store that counts reads so tests can assert
// a rejected request never touched it.
type fakeStore struct {
	mu       sync.Mutex
	next     int
	jobs     map[string]*core.SearchJob
	getCalls int

	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*core.SearchJob)}
}

func (f *fakeStore) CreateJob(_ context.Context, owner string, params core.SearchParams) (*core.SearchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	job := &core.SearchJob{
		ID:        fmt.Sprintf("job-%d", f.next),
		Owner:     owner,
		Params:    params,
		Status:    core.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeStore) GetJob(_ context.Context, id string) (*core.SearchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, core.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) ListJobsByOwner(_ context.Context, owner string, _ int) ([]core.SearchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.SearchJob, 0)
	for _, job := range f.jobs {
		if job.Owner == owner {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkProcessing(_ context.Context, id string) (bool, error) {
	return f.transition(id, core.StatusPending, core.StatusProcessing, nil, nil)
}

func (f *fakeStore) CompleteJob(_ context.Context, id string, results *core.SearchResults) (bool, error) {
	return f.transition(id, core.StatusProcessing, core.StatusCompleted, results, nil)
}

func (f *fakeStore) FailJob(_ context.Context, id string, message string) (bool, error) {
	return f.transition(id, core.StatusProcessing, core.StatusFailed, nil, &message)
}

func (f *fakeStore) transition(id string, from, to core.Status, results *core.SearchResults, msg *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != from {
		return false, nil
	}
	job.Status = to
	job.Results = results
	job.ErrorMessage = msg
	return true, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, jobID)
	return nil
}

func newMetros(t *testing.T) *airports.Index {
	t.Helper()
	metros, err := airports.NewIndex()
	require.NoError(t, err)
	return metros
}

func searchBody(t *testing.T, params core.SearchParams) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{"searchParams": params})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func validParams() core.SearchParams {
	return core.SearchParams{
		Origin:        "LHR",
		Destination:   "JFK",
		DepartureDate: "2025-07-15",
		Passengers:    core.PassengerCounts{Adults: 1},
		CabinClass:    core.CabinEconomy,
	}
}

func TestSearchHandle_SinglePair(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	h := NewSearchHandler(store, pub, newMetros(t), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", searchBody(t, validParams()))
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		JobID  string   `json:"job_id"`
		JobIDs []string `json:"job_ids"`
		Status string   `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Empty(t, resp.JobIDs)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, []string{"job-1"}, pub.published)
}

func TestSearchHandle_MetroFanOut(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	h := NewSearchHandler(store, pub, newMetros(t), testLogger())

	params := validParams()
	params.Origin = "LON"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", searchBody(t, params))
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		JobIDs []string `json:"job_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.JobIDs, 5)
	assert.Len(t, pub.published, 5)
}

func TestSearchHandle_Unauthorized(t *testing.T) {
	h := NewSearchHandler(newFakeStore(), &fakePublisher{}, newMetros(t), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", searchBody(t, validParams()))
	rec := httptest.NewRecorder()

	h.Handle(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchHandle_InvalidParams(t *testing.T) {
	h := NewSearchHandler(newFakeStore(), &fakePublisher{}, newMetros(t), testLogger())

	params := validParams()
	params.DepartureDate = "15/07/2025"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", searchBody(t, params))
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()

	h.Handle(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandle_MalformedBody(t *testing.T) {
	h := NewSearchHandler(newFakeStore(), &fakePublisher{}, newMetros(t), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte(`{"searchParams":`)))
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()

	h.Handle(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandle_PublishFailure(t *testing.T) {
	h := NewSearchHandler(newFakeStore(), &fakePublisher{err: errors.New("queue unreachable")}, newMetros(t), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", searchBody(t, validParams()))
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()

	h.Handle(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// webhookFixture wires a webhook handler around a fake store and a mocked
// vendor client.
type webhookFixture struct {
	handler *WebhookHandler
	store   *fakeStore
	vendor  *mocks.MockClient
	cfg     *config.Config
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	vendor := mocks.NewMockClient(ctrl)
	store := newFakeStore()

	cfg := &config.Config{}
	cfg.Queue.SigningKey = "current-key"
	cfg.Queue.NextSigningKey = "next-key"
	cfg.Vendor.OfferSort = "total_amount"
	cfg.Vendor.OfferCap = 15

	worker := jobs.NewSearchWorker(cfg, store, vendor, testLogger())
	return &webhookFixture{
		handler: NewWebhookHandler(cfg, worker, testLogger()),
		store:   store,
		vendor:  vendor,
		cfg:     cfg,
	}
}

func (f *webhookFixture) request(t *testing.T, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/queue", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(queue.TimestampHeader, strconv.FormatInt(time.Now().Unix(), 10))
	if signature != "" {
		req.Header.Set(queue.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	f.handler.Handle(rec, req)
	return rec
}

func (f *webhookFixture) pendingJob(t *testing.T) *core.SearchJob {
	t.Helper()
	job, err := f.store.CreateJob(context.Background(), "user-1", validParams())
	require.NoError(t, err)
	return job
}

func TestWebhook_InvalidSignatureThenValidDelivery(t *testing.T) {
	f := newWebhookFixture(t)
	job := f.pendingJob(t)
	body := []byte(`{"job_id":"` + job.ID + `"}`)

	// A forged delivery is rejected before the job store is consulted.
	rec := f.request(t, body, queue.Sign(body, "wrong-key"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, f.store.getCalls)

	// The same message, properly signed, then processes normally.
	f.vendor.EXPECT().CreateOfferRequest(gomock.Any(), gomock.Any()).Return("orq_1", nil)
	f.vendor.EXPECT().ListOffers(gomock.Any(), "orq_1", "total_amount", 15).
		Return([]core.Offer{{ID: "off_1", TotalAmount: "312.40"}}, nil)

	rec = f.request(t, body, queue.Sign(body, "current-key"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		JobID   string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, job.ID, resp.JobID)

	stored, err := f.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
}

func TestWebhook_MissingSignature(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"job_id":"job-1"}`)

	rec := f.request(t, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_NextKeyAccepted(t *testing.T) {
	f := newWebhookFixture(t)
	job := f.pendingJob(t)
	body := []byte(`{"job_id":"` + job.ID + `"}`)

	f.vendor.EXPECT().CreateOfferRequest(gomock.Any(), gomock.Any()).Return("orq_1", nil)
	f.vendor.EXPECT().ListOffers(gomock.Any(), "orq_1", "total_amount", 15).
		Return([]core.Offer{{ID: "off_1"}}, nil)

	rec := f.request(t, body, queue.Sign(body, "next-key"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_MissingTimestampStillVerifies(t *testing.T) {
	f := newWebhookFixture(t)
	job := f.pendingJob(t)
	body := []byte(`{"job_id":"` + job.ID + `"}`)

	f.vendor.EXPECT().CreateOfferRequest(gomock.Any(), gomock.Any()).Return("orq_1", nil)
	f.vendor.EXPECT().ListOffers(gomock.Any(), "orq_1", "total_amount", 15).
		Return([]core.Offer{{ID: "off_1"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/queue", bytes.NewReader(body))
	req.Header.Set(queue.SignatureHeader, queue.Sign(body, "current-key"))
	rec := httptest.NewRecorder()
	f.handler.Handle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_MalformedBody(t *testing.T) {
	f := newWebhookFixture(t)

	for _, body := range [][]byte{
		[]byte(`{"job_id":`),
		[]byte(`{"job_id":""}`),
		[]byte(`{}`),
	} {
		rec := f.request(t, body, queue.Sign(body, "current-key"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestWebhook_UnknownJob(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"job_id":"no-such-job"}`)

	rec := f.request(t, body, queue.Sign(body, "current-key"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWebhook_InfrastructureFailure(t *testing.T) {
	f := newWebhookFixture(t)
	f.store.getErr = errors.New("connection refused")
	body := []byte(`{"job_id":"job-1"}`)

	rec := f.request(t, body, queue.Sign(body, "current-key"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhook_VendorFailureStillAcks(t *testing.T) {
	f := newWebhookFixture(t)
	job := f.pendingJob(t)
	body := []byte(`{"job_id":"` + job.ID + `"}`)

	f.vendor.EXPECT().CreateOfferRequest(gomock.Any(), gomock.Any()).
		Return("", errors.New("connection reset"))

	// The job failed but the delivery is handled: the queue must not retry.
	rec := f.request(t, body, queue.Sign(body, "current-key"))
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, stored.Status)
}

func jobsRouter(h *JobsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/jobs", h.List)
	r.Get("/api/v1/jobs/{id}", h.Get)
	return r
}

func TestJobsGet(t *testing.T) {
	store := newFakeStore()
	job, err := store.CreateJob(context.Background(), "user-1", validParams())
	require.NoError(t, err)

	router := jobsRouter(NewJobsHandler(store, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got core.SearchJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, core.StatusPending, got.Status)
}

func TestJobsGet_OwnerMismatchLooksLikeMissing(t *testing.T) {
	store := newFakeStore()
	job, err := store.CreateJob(context.Background(), "user-1", validParams())
	require.NoError(t, err)

	router := jobsRouter(NewJobsHandler(store, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	req.Header.Set("Authorization", "Bearer somebody-else")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobsGet_NotFound(t *testing.T) {
	router := jobsRouter(NewJobsHandler(newFakeStore(), testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil)
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobsList(t *testing.T) {
	store := newFakeStore()
	_, err := store.CreateJob(context.Background(), "user-1", validParams())
	require.NoError(t, err)
	_, err = store.CreateJob(context.Background(), "somebody-else", validParams())
	require.NoError(t, err)

	router := jobsRouter(NewJobsHandler(store, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Jobs []core.SearchJob `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "user-1", resp.Jobs[0].Owner)
}
