package collector

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// streamCursor keeps the fetcher asking for more; a stream has no real
// cursor and only ends with its context.
const streamCursor = "stream"

// Stream reads the filtered stream one message at a time. Each message is
// returned as a single-item page. A dropped connection is reported as
// transient and the next call reconnects.
type Stream struct {
	t      *Twitter
	body   io.ReadCloser
	reader *bufio.Reader
}

// Stream opens nothing until the first FetchPage.
func (t *Twitter) Stream() *Stream {
	return &Stream{t: t}
}

func (s *Stream) FetchPage(ctx context.Context, _ string) (domain.Page, error) {
	if s.body == nil {
		if err := s.connect(ctx); err != nil {
			return domain.Page{}, err
		}
	}
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			s.Close()
			if ctx.Err() != nil {
				return domain.Page{}, ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return domain.Page{}, &domain.UpstreamError{Service: "twitter stream", Err: err}
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			// keep-alive
			continue
		}
		if !gjson.ValidBytes(line) {
			continue
		}
		msg := gjson.ParseBytes(line)
		if !msg.Get("data").Exists() {
			if errs := msg.Get("errors"); errs.Exists() {
				s.Close()
				return domain.Page{}, &domain.UpstreamError{
					Service: "twitter stream",
					Err:     errors.New(errs.Array()[0].Get("title").String()),
				}
			}
			continue
		}
		page := parseTweetPage(line)
		page.Next = streamCursor
		return page, nil
	}
}

func (s *Stream) connect(ctx context.Context) error {
	params := s.t.fields.params()
	resp, err := s.t.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParams(params).
		Get("/2/tweets/search/stream")
	if err != nil {
		return transportError("twitter stream", err)
	}
	body := resp.RawBody()
	if resp.StatusCode() != 200 {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		body.Close()
		if err := statusError("twitter stream", resp.StatusCode(), resp.Header(), string(msg)); err != nil {
			return err
		}
		return fmt.Errorf("twitter stream: unexpected status %d", resp.StatusCode())
	}
	s.body = body
	s.reader = bufio.NewReaderSize(body, 64*1024)
	return nil
}

// Close drops the connection.
func (s *Stream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body, s.reader = nil, nil
	return err
}
