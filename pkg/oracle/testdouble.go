package oracle

import (
	"context"
	"fmt"
	"sync"
)

// QueuedResponse is one canned oracle response, matched against the call
// type it should answer (spec §9's "pluggable oracle trait": "the test
// oracle is a deterministic queue matching operation type and model
// pattern", grounded in the teacher's mock LLM client response-queue test
// fixtures).
type QueuedResponse struct {
	Intent    *IntentResult
	Atomic    *AtomicResult
	Decompose *DecomposeResult
	Err       error
}

// TestDouble is a deterministic FIFO queue of canned responses, one queue
// per call type, so a test can script a whole decomposition session (e.g.
// S2: non-atomic at depth 0, atomic children at depth 1) without any
// network call. Not safe for concurrent use across goroutines issuing
// unrelated calls, matching the teacher's mock client's documented
// single-threaded-use caveat.
type TestDouble struct {
	mu         sync.Mutex
	intents    []QueuedResponse
	atomics    []QueuedResponse
	decomposes []QueuedResponse

	intentCalls    int
	atomicCalls    int
	decomposeCalls int
}

// NewTestDouble constructs an empty TestDouble; use the Queue* methods to
// script responses before exercising the component under test.
func NewTestDouble() *TestDouble { return &TestDouble{} }

// QueueIntent appends a canned recognizeIntent response.
func (d *TestDouble) QueueIntent(r *IntentResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.intents = append(d.intents, QueuedResponse{Intent: r, Err: err})
}

// QueueAtomic appends a canned detectAtomic response.
func (d *TestDouble) QueueAtomic(r *AtomicResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.atomics = append(d.atomics, QueuedResponse{Atomic: r, Err: err})
}

// QueueDecompose appends a canned decomposeTask response.
func (d *TestDouble) QueueDecompose(r *DecomposeResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decomposes = append(d.decomposes, QueuedResponse{Decompose: r, Err: err})
}

// AtomicCallCount reports how many times DetectAtomic has been called,
// so a test can assert the oracle was never consulted (e.g. spec §8's
// "depth == MAX_DEPTH returns isAtomic=true without calling the oracle").
func (d *TestDouble) AtomicCallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.atomicCalls
}

// DecomposeCallCount reports how many times DecomposeTask has been called.
func (d *TestDouble) DecomposeCallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decomposeCalls
}

// IntentCallCount reports how many times RecognizeIntent has been called.
func (d *TestDouble) IntentCallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.intentCalls
}

func (d *TestDouble) RecognizeIntent(_ context.Context, _ string, _ map[string]any) (*IntentResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.intentCalls++
	if len(d.intents) == 0 {
		return nil, fmt.Errorf("oracle testdouble: no queued intent responses")
	}
	r := d.intents[0]
	d.intents = d.intents[1:]
	return r.Intent, r.Err
}

func (d *TestDouble) DetectAtomic(_ context.Context, _ AtomicRequest) (*AtomicResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.atomicCalls++
	if len(d.atomics) == 0 {
		return nil, fmt.Errorf("oracle testdouble: no queued atomic responses")
	}
	r := d.atomics[0]
	d.atomics = d.atomics[1:]
	return r.Atomic, r.Err
}

func (d *TestDouble) DecomposeTask(_ context.Context, _ DecomposeRequest) (*DecomposeResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decomposeCalls++
	if len(d.decomposes) == 0 {
		return nil, fmt.Errorf("oracle testdouble: no queued decompose responses")
	}
	r := d.decomposes[0]
	d.decomposes = d.decomposes[1:]
	return r.Decompose, r.Err
}

var _ Client = (*TestDouble)(nil)
