// Package generator acquires AI-generated exam questions from the
// generation collaborator's streaming HTTP endpoint.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/proctorly/proctorly-backend/internal/config"
	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/proctorly/proctorly-backend/internal/sse"
	"github.com/rs/zerolog"
)

// Source reports where a question batch came from.
type Source string

const (
	SourceAI    Source = "ai"
	SourceMock  Source = "mock"
	SourceCache Source = "cache"
)

// Result is the uniform outcome of a load: a batch plus its origin.
type Result struct {
	Questions []model.Question `json:"questions"`
	Source    Source           `json:"source"`
}

// ProgressFunc receives partial batches as they stream in.
type ProgressFunc func(questions []model.Question, count int)

// SectionSink receives side-channel persistence of partial and complete
// batches, independent of the returned value.
type SectionSink interface {
	SaveSectionQuestions(ctx context.Context, section model.Section, questions []model.Question) error
}

// Client is the streaming question loader. A load makes up to 1+Retries
// attempts, each bounded by Timeout, with exponential backoff between them,
// and degrades to the static fallback bank when every attempt fails.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	sink       SectionSink
	log        zerolog.Logger
}

// New creates a loader from config. sink may be nil (no side-channel writes).
func New(cfg *config.Config, sink SectionSink, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    cfg.GeneratorURL,
		apiKey:     cfg.GeneratorAPIKey,
		timeout:    cfg.GeneratorTimeout,
		retries:    cfg.GeneratorRetries,
		backoff:    cfg.GeneratorBackoff,
		sink:       sink,
		log:        logger.Component(log, "generator"),
	}
}

type generateRequest struct {
	Section      model.Section `json:"section"`
	Count        int           `json:"count"`
	RetryAttempt int           `json:"retryAttempt,omitempty"`
}

// errNoRetry wraps attempt errors that exhaust the retry loop immediately
// (the collaborator said shouldRetry=false).
type errNoRetry struct{ err error }

func (e errNoRetry) Error() string { return e.err.Error() }
func (e errNoRetry) Unwrap() error { return e.err }

// Load fetches the configured number of questions for a section. It never
// returns an error: when the generation collaborator is unreachable or the
// retry budget is exhausted the static bank is returned with SourceMock.
func (c *Client) Load(ctx context.Context, section model.Section, onProgress ProgressFunc) Result {
	count := config.SectionTargets[section]

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<(attempt-1))
			c.log.Warn().
				Str("section", string(section)).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying question generation")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return c.fallback(section)
			}
		}

		questions, err := c.attempt(ctx, section, count, attempt, onProgress)
		if err == nil {
			return Result{Questions: questions, Source: SourceAI}
		}

		c.log.Error().Err(err).
			Str("section", string(section)).
			Int("attempt", attempt).
			Msg("Generation attempt failed")

		var fatal errNoRetry
		if errors.As(err, &fatal) || ctx.Err() != nil {
			break
		}
	}

	return c.fallback(section)
}

// attempt performs one bounded request/stream cycle.
func (c *Client) attempt(ctx context.Context, section model.Section, count, retryAttempt int, onProgress ProgressFunc) ([]model.Question, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Section: section, Count: count, RetryAttempt: retryAttempt})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/v1/questions/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generation status %d", resp.StatusCode)
	}

	return c.consume(attemptCtx, section, resp.Body, onProgress)
}

// consume drains the frame stream until a complete frame resolves the batch.
func (c *Client) consume(ctx context.Context, section model.Section, body io.Reader, onProgress ProgressFunc) ([]model.Question, error) {
	reader := sse.NewReader(body)
	partialSaved := false

	for {
		frame, err := reader.Next()
		if err == io.EOF {
			return nil, errors.New("stream ended without complete frame")
		}
		if err != nil {
			// Malformed content fails this batch; the retry loop above
			// decides whether another attempt remains.
			return nil, err
		}

		switch frame.Type {
		case sse.FrameInit:
			c.log.Debug().
				Str("section", string(section)).
				Str("request_id", frame.RequestID).
				Msg("Generation stream opened")

		case sse.FramePartial:
			if onProgress != nil {
				onProgress(frame.Questions, frame.Count)
			}
			// Once enough questions arrived, persist opportunistically so
			// dependent pages can unblock before full completion.
			if !partialSaved && frame.Count >= config.MinPartialPersist && c.sink != nil {
				partial := numberQuestions(model.DedupQuestions(frame.Questions))
				if err := c.sink.SaveSectionQuestions(ctx, section, partial); err != nil {
					c.log.Warn().Err(err).Str("section", string(section)).Msg("Partial persist failed")
				} else {
					partialSaved = true
				}
			}

		case sse.FrameComplete:
			questions := numberQuestions(model.DedupQuestions(frame.Questions))
			if err := validateBatch(questions); err != nil {
				return nil, err
			}
			if c.sink != nil {
				if err := c.sink.SaveSectionQuestions(ctx, section, questions); err != nil {
					// The returned batch is still authoritative for the caller.
					c.log.Warn().Err(err).Str("section", string(section)).Msg("Complete persist failed")
				}
			}
			return questions, nil

		case sse.FrameError:
			err := fmt.Errorf("generation error: %s", frame.Message)
			if !frame.ShouldRetry {
				return nil, errNoRetry{err}
			}
			return nil, err
		}
	}
}

// fallback serves the hardcoded bank. This path never fails.
func (c *Client) fallback(section model.Section) Result {
	c.log.Warn().Str("section", string(section)).Msg("Generation exhausted, using fallback bank")
	questions := numberQuestions(FallbackQuestions(section))
	if c.sink != nil {
		if err := c.sink.SaveSectionQuestions(context.Background(), section, questions); err != nil {
			c.log.Warn().Err(err).Str("section", string(section)).Msg("Fallback persist failed")
		}
	}
	return Result{Questions: questions, Source: SourceMock}
}

// numberQuestions reassigns 1-based ids in insertion order.
func numberQuestions(questions []model.Question) []model.Question {
	for i := range questions {
		questions[i].ID = i + 1
	}
	return questions
}

// validateBatch rejects batches whose MCQ entries break the four-option /
// correct-answer-membership shape.
func validateBatch(questions []model.Question) error {
	for _, q := range questions {
		if !q.Valid() {
			return fmt.Errorf("invalid question shape: %q", q.Title)
		}
	}
	return nil
}
