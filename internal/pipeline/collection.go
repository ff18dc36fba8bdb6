// Package pipeline drives the collection loop: fetch, normalize, write and
// aggregate, one item at a time.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/qepting91/misinfo-collector/internal/dedupe"
	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/normalize"
	"github.com/qepting91/misinfo-collector/internal/session"
	"github.com/qepting91/misinfo-collector/internal/storage"
)

// KeywordsField lists the keywords a record's text matched.
const KeywordsField = "keywords_hit"

// Collection writes one target's items. Every item that comes out of the
// sequence is appended before the next one is requested.
type Collection struct {
	Run        *session.Run
	Normalizer *normalize.Normalizer
	Writer     *storage.Writer
	// IDField identifies records for Seen.
	IDField string
	// Seen skips items already written. Nil disables it.
	Seen dedupe.Set
	// Keywords are matched, lowercased, against KeywordFields.
	Keywords      []string
	KeywordFields []string
	// Aggregator receives annotation counts. Nil disables it.
	Aggregator *session.Aggregator

	Written    int
	Duplicates int
	NoUser     int
}

// Consume drains seq. The first error from the sequence, the writer or the
// seen set ends it.
func (c *Collection) Consume(ctx context.Context, seq iter.Seq2[domain.Item, error]) error {
	for item, err := range seq {
		if err != nil {
			return err
		}
		if err := c.consumeOne(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) consumeOne(ctx context.Context, item domain.Item) error {
	id := item.Raw.String(c.IDField)
	if c.Seen != nil && id != "" {
		seen, err := c.Seen.Seen(ctx, id)
		if err != nil {
			return fmt.Errorf("checking %s: %w", id, err)
		}
		if seen {
			c.Duplicates++
			return nil
		}
	}

	res := c.Normalizer.Normalize(item)
	if !res.UserFound {
		c.NoUser++
	}
	if hits := MatchKeywords(item.Raw, c.KeywordFields, c.Keywords); len(hits) > 0 {
		res.Record.MustSetValue(KeywordsField, hits)
	}
	if err := c.Writer.Append(res.Record); err != nil {
		return err
	}
	if c.Seen != nil && id != "" {
		if err := c.Seen.Mark(ctx, id); err != nil {
			return fmt.Errorf("marking %s: %w", id, err)
		}
	}
	if c.Aggregator != nil {
		c.Aggregator.Accumulate(res.Domains, res.Entities)
	}
	c.Written++
	c.Run.Items++
	return nil
}

// MatchKeywords returns the keywords contained in any of fields, in keyword
// order. Keywords are expected lowercased.
func MatchKeywords(raw domain.RawItem, fields, keywords []string) []string {
	if len(keywords) == 0 || len(fields) == 0 {
		return nil
	}
	var text strings.Builder
	for _, f := range fields {
		text.WriteString(strings.ToLower(raw.String(f)))
		text.WriteByte('\n')
	}
	s := text.String()
	var hits []string
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			hits = append(hits, k)
		}
	}
	return hits
}

// FlushCounts writes the aggregate to domains_<stamp>.json and
// entities_<stamp>.json in dir.
func FlushCounts(dir, stamp string, agg *session.Aggregator) (domainsPath, entitiesPath string, err error) {
	domains, entities := agg.Finalize()
	domainsPath = filepath.Join(dir, "domains_"+stamp+".json")
	entitiesPath = filepath.Join(dir, "entities_"+stamp+".json")
	if err := storage.WriteCounts(domainsPath, domains); err != nil {
		return "", "", err
	}
	if err := storage.WriteCounts(entitiesPath, entities); err != nil {
		return "", "", err
	}
	return domainsPath, entitiesPath, nil
}
