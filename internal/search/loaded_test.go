package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/roundnews/internal/newsapi"
)

// recordingFinder wraps an Engine and counts resets and adds.
type recordingFinder struct {
	*Engine
	resets  int
	offsets []int
	addErr  error
}

func (r *recordingFinder) Reset() error {
	r.resets++
	return r.Engine.Reset()
}

func (r *recordingFinder) Add(offset int, articles []newsapi.Article) error {
	if r.addErr != nil {
		return r.addErr
	}
	r.offsets = append(r.offsets, offset)
	return r.Engine.Add(offset, articles)
}

func TestLoadedSyncIndexesOnlyNewArticles(t *testing.T) {
	rf := &recordingFinder{Engine: NewEngine()}
	l := NewLoaded(rf)
	articles := sampleArticles()

	require.NoError(t, l.Sync(1, articles[:2]))
	require.NoError(t, l.Sync(1, articles[:2]))
	require.NoError(t, l.Sync(1, articles))

	assert.Equal(t, 1, rf.resets)
	assert.Equal(t, []int{0, 2}, rf.offsets)
	assert.Equal(t, 3, l.Indexed())

	results, err := l.Find("android", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestLoadedSyncNewSessionStartsOver(t *testing.T) {
	rf := &recordingFinder{Engine: NewEngine()}
	l := NewLoaded(rf)
	articles := sampleArticles()

	require.NoError(t, l.Sync(1, articles))
	require.NoError(t, l.Sync(2, articles[1:2]))

	assert.Equal(t, 2, rf.resets)
	assert.Equal(t, 1, l.Indexed())

	results, err := l.Find("android", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "articles of the old session are gone")

	results, err = l.Find("galaxy", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Index)
}

func TestLoadedSyncError(t *testing.T) {
	rf := &recordingFinder{Engine: NewEngine(), addErr: errors.New("index full")}
	l := NewLoaded(rf)

	err := l.Sync(1, sampleArticles())
	require.Error(t, err)
	assert.Equal(t, 0, l.Indexed(), "failed batch is retried on the next sync")
}
