package paginate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

// pager serves fixed pages keyed by cursor and records every request.
type pager struct {
	pages    map[string]Page[int]
	requests []string
	failOn   string
}

func (p *pager) fetch(_ context.Context, cursor string) (Page[int], error) {
	p.requests = append(p.requests, cursor)
	if p.failOn != "" && cursor == p.failOn {
		return Page[int]{}, errors.New("boom")
	}
	page, ok := p.pages[cursor]
	if !ok {
		return Page[int]{}, fmt.Errorf("unexpected cursor %q", cursor)
	}
	return page, nil
}

func threePages() *pager {
	return &pager{pages: map[string]Page[int]{
		"":   {Nodes: []int{1, 2}, PageInfo: PageInfo{HasNextPage: true, EndCursor: "c1"}},
		"c1": {Nodes: []int{3}, PageInfo: PageInfo{HasNextPage: true, EndCursor: "c2"}},
		"c2": {Nodes: []int{4, 5, 6}, PageInfo: PageInfo{HasNextPage: false, EndCursor: "c3"}},
	}}
}

func TestAllConcatenatesPagesInOrder(t *testing.T) {
	p := threePages()
	items, err := All(context.Background(), p.fetch)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, items)
	assert.Equal(t, []string{"", "c1", "c2"}, p.requests)
}

func TestAllStopsWhenCursorMissing(t *testing.T) {
	p := &pager{pages: map[string]Page[int]{
		"": {Nodes: []int{1}, PageInfo: PageInfo{HasNextPage: true}},
	}}
	items, err := All(context.Background(), p.fetch)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, items)
	assert.Len(t, p.requests, 1)
}

func TestAllEmptyCollection(t *testing.T) {
	p := &pager{pages: map[string]Page[int]{"": {}}}
	items, err := All(context.Background(), p.fetch)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAllAbortsOnPageError(t *testing.T) {
	p := threePages()
	p.failOn = "c1"
	items, err := All(context.Background(), p.fetch)
	require.Error(t, err)
	assert.Nil(t, items)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamFetch))
	assert.Equal(t, []string{"", "c1"}, p.requests)
}

func TestCollectLimitAndKeep(t *testing.T) {
	p := threePages()
	items, err := Collect(context.Background(), p.fetch, Options[int]{
		Keep:  func(n int) bool { return n%2 == 0 },
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, items)
	assert.Equal(t, []string{"", "c1", "c2"}, p.requests)

	p = threePages()
	items, err = Collect(context.Background(), p.fetch, Options[int]{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, items)
	assert.Len(t, p.requests, 1)
}
