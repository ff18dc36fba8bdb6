package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSubredditsCSV(t *testing.T) {
	path := write(t, "subs.csv", "\uFEFFsubreddit,min_score\nworldcup,10\nr/soccer, 5\nbad name!,1\nworldcup,3\n\nqatar2022\n")

	subs, err := LoadSubreddits(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"worldcup", "soccer", "qatar2022"}, subs)
}

func TestLoadSubredditsPlainList(t *testing.T) {
	subs, err := LoadSubreddits(write(t, "subs.txt", "news\nFIFA\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "FIFA"}, subs)
}

func TestLoadSubredditsErrors(t *testing.T) {
	_, err := LoadSubreddits(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = LoadSubreddits(write(t, "subs.csv", "subreddit\n!!\n"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoadKeywords(t *testing.T) {
	kws, err := LoadKeywords(write(t, "kw.txt", "\uFEFFMessi\n  world cup \n\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"messi", "world cup"}, kws)
}

func TestLoadTweetIDs(t *testing.T) {
	ids, skipped, err := LoadTweetIDs(write(t, "ids.txt", "1595000000000000000\nnot-an-id\n42\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1595000000000000000", "42"}, ids)
	assert.Equal(t, 1, skipped)
}

func TestBuildQuery(t *testing.T) {
	terms := []string{"a", "b c", "d", "e", "f", "g"}
	assert.Equal(t, "(a) OR (b c) OR (d) OR (e) OR (f)", BuildQuery(terms, 5))
	assert.Equal(t, "(a)", BuildQuery(terms[:1], 5))
	assert.Equal(t, "", BuildQuery(nil, 5))
}
