package dashboard

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/session"
	"github.com/qepting91/misinfo-collector/internal/storage"
)

// twitterTarget labels tweet files in the per-target chart.
const twitterTarget = "twitter"

// Stats is what the dashboard charts.
type Stats struct {
	Targets  []session.Count
	Keywords []session.Count
	Domains  []session.Count
	Entities []session.Count
}

// LoadStats counts records per subreddit directory and for the tweets
// directory, tallies keyword hits, and reads the top entries of the newest
// domain and entity aggregates. Missing directories count as empty.
func LoadStats(redditDir, tweetsDir, metaDir string, top int) (Stats, error) {
	targets := session.NewCounts()
	keywords := session.NewCounts()

	tally := func(target string, files []string) error {
		for _, path := range files {
			err := storage.EachRecord(path, func(r domain.Record) error {
				targets.Add(target, 1)
				if raw, ok := r.Get("keywords_hit"); ok {
					gjson.ParseBytes(raw).ForEach(func(_, k gjson.Result) bool {
						keywords.Add(k.String(), 1)
						return true
					})
				}
				return nil
			})
			if err != nil && !errors.Is(err, domain.ErrMissingFile) {
				return err
			}
		}
		return nil
	}

	subs, err := os.ReadDir(redditDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Stats{}, err
	}
	for _, e := range subs {
		if !e.IsDir() {
			continue
		}
		files, err := storage.FilesByModTime(filepath.Join(redditDir, e.Name()))
		if err != nil {
			return Stats{}, err
		}
		if err := tally("r/"+e.Name(), files); err != nil {
			return Stats{}, err
		}
	}
	tweetFiles, err := filepath.Glob(filepath.Join(tweetsDir, "*.json"))
	if err != nil {
		return Stats{}, err
	}
	if err := tally(twitterTarget, tweetFiles); err != nil {
		return Stats{}, err
	}

	stats := Stats{Targets: targets.Sorted(), Keywords: limit(keywords.Sorted(), top)}
	if stats.Domains, err = latestCounts(metaDir, "domains_", top); err != nil {
		return Stats{}, err
	}
	if stats.Entities, err = latestCounts(metaDir, "entities_", top); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// latestCounts reads the newest <prefix><stamp>.json in dir. Stamps sort
// chronologically as strings.
func latestCounts(dir, prefix string, top int) ([]session.Count, error) {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"*.json"))
	if err != nil || len(files) == 0 {
		return nil, err
	}
	sort.Strings(files)
	entries, err := storage.ReadCounts(files[len(files)-1])
	if err != nil {
		return nil, err
	}
	c := session.NewCounts()
	for _, e := range entries {
		c.Add(e.Name, e.Count)
	}
	return limit(c.Sorted(), top), nil
}

func limit(counts []session.Count, n int) []session.Count {
	if n > 0 && len(counts) > n {
		return counts[:n]
	}
	return counts
}
