package atomic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/taskcore/pkg/oracle"
)

func TestIsAtomic_UsesOracleWhenConfident(t *testing.T) {
	double := oracle.NewTestDouble()
	double.QueueAtomic(&oracle.AtomicResult{IsAtomic: true, Confidence: 0.95, EstimatedHours: 0.1}, nil)

	d := New(double, nil)
	res, err := d.IsAtomic(context.Background(), Request{EstimatedHours: 0.1, AcceptanceCriteria: 1, FilePaths: 1})
	require.NoError(t, err)
	assert.True(t, res.IsAtomic)
	assert.False(t, res.FromHeuristic)
}

func TestIsAtomic_FallsBackOnUnavailable(t *testing.T) {
	double := oracle.NewTestDouble()
	double.QueueAtomic(nil, &oracle.Unavailable{Err: assert.AnError})

	d := New(double, nil)
	res, err := d.IsAtomic(context.Background(), Request{EstimatedHours: 0.1, AcceptanceCriteria: 1, FilePaths: 1})
	require.NoError(t, err)
	assert.True(t, res.IsAtomic)
	assert.True(t, res.FromHeuristic)
}

func TestIsAtomic_LowConfidenceDisagreementDefersToHeuristic(t *testing.T) {
	double := oracle.NewTestDouble()
	// Oracle says atomic with low confidence, but heuristic disagrees
	// (5 hours is far outside the atomic range).
	double.QueueAtomic(&oracle.AtomicResult{IsAtomic: true, Confidence: 0.3}, nil)

	d := New(double, nil)
	res, err := d.IsAtomic(context.Background(), Request{EstimatedHours: 5, AcceptanceCriteria: 3, FilePaths: 10})
	require.NoError(t, err)
	assert.False(t, res.IsAtomic)
	assert.True(t, res.FromHeuristic)
}

func TestIsAtomic_LowConfidenceDisagreementReverseDirectionDefersToHeuristic(t *testing.T) {
	double := oracle.NewTestDouble()
	// Oracle says not-atomic with low confidence, but heuristic disagrees
	// (hours/criteria/file paths all sit inside the atomic range).
	double.QueueAtomic(&oracle.AtomicResult{IsAtomic: false, Confidence: 0.4}, nil)

	d := New(double, nil)
	res, err := d.IsAtomic(context.Background(), Request{EstimatedHours: 0.1, AcceptanceCriteria: 1, FilePaths: 1})
	require.NoError(t, err)
	assert.True(t, res.IsAtomic)
	assert.True(t, res.FromHeuristic)
}

func TestHeuristic_BoundaryEdges(t *testing.T) {
	d := New(oracle.NewTestDouble(), nil)

	atLow := d.heuristic(Request{EstimatedHours: 0.08, AcceptanceCriteria: 1, FilePaths: 3})
	assert.True(t, atLow.IsAtomic)

	justAbove := d.heuristic(Request{EstimatedHours: 0.18, AcceptanceCriteria: 1, FilePaths: 3})
	assert.False(t, justAbove.IsAtomic)

	tooManyCriteria := d.heuristic(Request{EstimatedHours: 0.1, AcceptanceCriteria: 2, FilePaths: 1})
	assert.False(t, tooManyCriteria.IsAtomic)

	tooManyFiles := d.heuristic(Request{EstimatedHours: 0.1, AcceptanceCriteria: 1, FilePaths: 4})
	assert.False(t, tooManyFiles.IsAtomic)
}
