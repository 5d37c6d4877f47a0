package llm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// LineDecoder turns one upstream line into a fragment. done=true ends the stream.
// Empty fragments are skipped.
type LineDecoder func(line string) (fragment string, done bool, err error)

type lineStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	decode  LineDecoder
	done    bool
	once    sync.Once
}

// NewLineStream reads an upstream body line by line (SSE or NDJSON) and
// decodes fragments lazily on each Recv.
func NewLineStream(body io.ReadCloser, decode LineDecoder) Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineStream{body: body, scanner: scanner, decode: decode}
}

func (s *lineStream) Recv() (string, error) {
	for !s.done {
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return "", fmt.Errorf("read stream: %w", err)
			}
			return "", io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		fragment, done, err := s.decode(line)
		if err != nil {
			s.done = true
			return "", err
		}
		if done {
			s.done = true
		}
		if fragment != "" {
			return fragment, nil
		}
	}
	return "", io.EOF
}

func (s *lineStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
	})
	return err
}

// SSEData returns the payload of an SSE "data:" line, or ok=false for other fields.
func SSEData(line string) (string, bool) {
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), true
}

type fragmentStream struct {
	ctx       context.Context
	fragments []string
	delay     time.Duration
	pos       int
}

// NewFragmentStream replays prepared fragments, pausing delay between them.
func NewFragmentStream(ctx context.Context, fragments []string, delay time.Duration) Stream {
	return &fragmentStream{ctx: ctx, fragments: fragments, delay: delay}
}

func (s *fragmentStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	if s.delay > 0 && s.pos > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return "", s.ctx.Err()
		case <-timer.C:
		}
	}
	f := s.fragments[s.pos]
	s.pos++
	return f, nil
}

func (s *fragmentStream) Close() error {
	s.pos = len(s.fragments)
	return nil
}

// Collect drains a stream into one string and closes it.
func Collect(stream Stream) (string, error) {
	defer stream.Close()
	var sb strings.Builder
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
}
