package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loanterms/internal/domain"
	"loanterms/internal/service"
	"loanterms/mocks"
)

func TestBatchWorker_ResultsInInputOrder(t *testing.T) {
	svc := new(mocks.MockTermsService)
	doc := sampleDoc()

	svc.On("Process", mock.Anything, doc).
		Return(&service.ExtractionResult{Record: domain.OutputRecord{ID: "local"}}, nil)
	svc.On("ProcessObject", mock.Anything, "terms", "ocr/a.json").
		Return(&service.ExtractionResult{Record: domain.OutputRecord{ID: "A"}}, nil)
	svc.On("ProcessObject", mock.Anything, "terms", "ocr/b.json").
		Return(nil, errors.New("no such key"))

	w := service.NewBatchWorker(svc, service.BatchConfig{Concurrency: 2}, nil)
	results := w.Run(context.Background(), []service.BatchJob{
		{Name: "a", Bucket: "terms", Key: "ocr/a.json"},
		{Name: "local", Doc: &doc},
		{Name: "b", Bucket: "terms", Key: "ocr/b.json"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "A", results[0].Result.Record.ID)
	assert.Equal(t, "local", results[1].Result.Record.ID)
	assert.Nil(t, results[2].Result)
	assert.EqualError(t, results[2].Err, "no such key")
	svc.AssertExpectations(t)
}

func TestBatchWorker_BoundsConcurrency(t *testing.T) {
	svc := new(mocks.MockTermsService)

	var inFlight, peak int32
	svc.On("ProcessObject", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}).
		Return(&service.ExtractionResult{}, nil)

	jobs := make([]service.BatchJob, 8)
	for i := range jobs {
		jobs[i] = service.BatchJob{Bucket: "b", Key: "k"}
	}

	w := service.NewBatchWorker(svc, service.BatchConfig{Concurrency: 3}, nil)
	results := w.Run(context.Background(), jobs)

	assert.Len(t, results, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	svc.AssertNumberOfCalls(t, "ProcessObject", 8)
}

func TestBatchWorker_CanceledContext(t *testing.T) {
	svc := new(mocks.MockTermsService)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := service.NewBatchWorker(svc, service.BatchConfig{Concurrency: 1}, nil)
	results := w.Run(ctx, []service.BatchJob{{Bucket: "b", Key: "k"}})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	svc.AssertNotCalled(t, "ProcessObject", mock.Anything, mock.Anything, mock.Anything)
}
