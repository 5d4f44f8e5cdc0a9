package octokit

import (
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
)

// BatchCall is a single operation call in a batch.
type BatchCall struct {
	ID        string
	Group     string
	Operation string
	Args      Args
	Callback  func(result *BatchResult)
}

// BatchResult represents the outcome of a batch call. Result is set whenever
// a response was received, including error responses.
type BatchResult struct {
	ID       string
	Success  bool
	Result   *Result
	Error    error
	Duration time.Duration
}

// BatchExecutor runs operation calls concurrently against one client
// snapshot.
type BatchExecutor struct {
	client      Client
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(client Client, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultBatchConcurrency
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the per-call timeout.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs calls with bounded concurrency. Results are returned in the
// order of calls; individual failures are reported per result.
func (b *BatchExecutor) Execute(ctx context.Context, calls []BatchCall) []BatchResult {
	results := make([]BatchResult, len(calls))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, call := range calls {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			results[index] = b.execute(ctx, call)

			if call.Callback != nil {
				call.Callback(&results[index])
			}
		}()
	}

	waitGroup.Wait()

	return results
}

func (b *BatchExecutor) execute(ctx context.Context, call BatchCall) BatchResult {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	result, err := b.client.Call(callCtx, call.Group, call.Operation, call.Args)

	return BatchResult{
		ID:       call.ID,
		Success:  err == nil,
		Result:   result,
		Error:    err,
		Duration: time.Since(start),
	}
}

// BatchBuilder helps build a list of batch calls.
type BatchBuilder struct {
	calls []BatchCall
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{}
}

// Add appends a call of group/operation with args.
func (b *BatchBuilder) Add(id, group, operation string, args Args) *BatchBuilder {
	b.calls = append(b.calls, BatchCall{ID: id, Group: group, Operation: operation, Args: args})

	return b
}

// AddCall appends a prepared call.
func (b *BatchBuilder) AddCall(call BatchCall) *BatchBuilder {
	b.calls = append(b.calls, call)

	return b
}

// Build returns the built calls.
func (b *BatchBuilder) Build() []BatchCall {
	return b.calls
}
