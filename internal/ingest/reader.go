// Package ingest loads the input lists a collection run works from:
// subreddits, search terms, keywords and tweet ids.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// Regex for valid subreddit names
var subNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

var tweetIDRegex = regexp.MustCompile(`^[0-9]{1,20}$`)

// LoadSubreddits reads subreddit names from either a plain list (one per
// line) or a CSV whose first column holds the name, with an optional
// "subreddit" header. Invalid names are skipped.
func LoadSubreddits(path string) ([]string, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Wrap in BOM stripper
	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var subs []string
	seen := make(map[string]bool)
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) == 0 {
			continue
		}
		sub := strings.TrimPrefix(strings.TrimSpace(record[0]), "r/")
		if line == 1 && strings.EqualFold(sub, "subreddit") {
			continue
		}
		// Validation (Fail-Soft)
		if !subNameRegex.MatchString(sub) || seen[sub] {
			continue
		}
		seen[sub] = true
		subs = append(subs, sub)
	}
	if len(subs) == 0 {
		return nil, domain.Configf("no valid subreddits in %s", path)
	}
	return subs, nil
}

// LoadLines reads the non-blank, trimmed lines of a text file.
func LoadLines(path string) ([]string, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(stripBOM(f))
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// LoadKeywords reads lower-cased keywords, one per line.
func LoadKeywords(path string) ([]string, error) {
	lines, err := LoadLines(path)
	if err != nil {
		return nil, err
	}
	kws := make([]string, 0, len(lines))
	for _, l := range lines {
		kws = append(kws, strings.ToLower(l))
	}
	return kws, nil
}

// LoadTweetIDs reads tweet ids, one per line, skipping anything that is not
// a numeric id. The count of skipped lines is returned alongside.
func LoadTweetIDs(path string) (ids []string, skipped int, err error) {
	lines, err := LoadLines(path)
	if err != nil {
		return nil, 0, err
	}
	for _, l := range lines {
		if !tweetIDRegex.MatchString(l) {
			skipped++
			continue
		}
		ids = append(ids, l)
	}
	return ids, skipped, nil
}

// BuildQuery joins the first max terms into "(a) OR (b) ...".
func BuildQuery(terms []string, max int) string {
	if max > 0 && len(terms) > max {
		terms = terms[:max]
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, "("+t+")")
	}
	return strings.Join(parts, " OR ")
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.Configf("input file %s does not exist", path)
		}
		return nil, err
	}
	return f, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
