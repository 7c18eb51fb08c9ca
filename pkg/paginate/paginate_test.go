package paginate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves n sequential integers in pages.
type fakeSource struct {
	total  int
	calls  []int
	failAt int // call index (1-based) that fails; 0 disables
}

func (f *fakeSource) fetch(_ context.Context, skip, limit int) (Page[int], error) {
	f.calls = append(f.calls, skip)
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return Page[int]{}, errors.New("upstream unavailable")
	}
	var rows []int
	for i := skip; i < skip+limit && i < f.total; i++ {
		rows = append(rows, i)
	}
	return Page[int]{Rows: rows, Total: f.total}, nil
}

func TestAll_Completeness(t *testing.T) {
	const limit = 10
	for _, n := range []int{0, 1, limit, limit + 1, 3 * limit} {
		src := &fakeSource{total: n}
		rows, err := All(context.Background(), src.fetch, limit)
		require.NoError(t, err, "n=%d", n)
		require.Len(t, rows, n, "n=%d", n)
		for i, v := range rows {
			assert.Equal(t, i, v, "rows must be in page order")
		}
	}
}

func TestAll_SequentialSkips(t *testing.T) {
	src := &fakeSource{total: 25}
	_, err := All(context.Background(), src.fetch, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20}, src.calls)
}

func TestAll_EmptyTotalFetchesOnce(t *testing.T) {
	src := &fakeSource{total: 0}
	rows, err := All(context.Background(), src.fetch, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	assert.Len(t, src.calls, 1)
}

func TestAll_DefaultLimit(t *testing.T) {
	var gotLimit int
	_, err := All(context.Background(), func(_ context.Context, _, limit int) (Page[string], error) {
		gotLimit = limit
		return Page[string]{}, nil
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, gotLimit)
}

func TestAll_FailureDiscardsPartialResults(t *testing.T) {
	src := &fakeSource{total: 30, failAt: 2}
	rows, err := All(context.Background(), src.fetch, 10)
	require.Error(t, err)
	assert.Nil(t, rows)
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.Len(t, src.calls, 2, "no page is fetched after a failure")
}

func TestAll_EmptyPageBeforeTotal(t *testing.T) {
	rows, err := All(context.Background(), func(_ context.Context, skip, _ int) (Page[int], error) {
		if skip == 0 {
			return Page[int]{Rows: []int{1, 2}, Total: 5}, nil
		}
		return Page[int]{Total: 5}, nil
	}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompletePage))
	assert.Nil(t, rows)
}

func TestAll_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{total: 5}
	rows, err := All(ctx, src.fetch, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rows)
	assert.Empty(t, src.calls)
}
