package factextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Extractor turns documents into ordered facts.
type Extractor struct {
	invoker Invoker
	log     *slog.Logger
	base    []func(*Options)
}

// New returns an Extractor backed by Gemini that logs with slog.Default().
func New(client *genai.Client, optFns ...func(*Options)) *Extractor {
	log := slog.Default()
	return NewWithLogger(NewGeminiInvoker(client, log), log, optFns...)
}

// NewWithLogger builds an Extractor around any Invoker. optFns become the
// defaults for every Extract call.
func NewWithLogger(inv Invoker, log *slog.Logger, optFns ...func(*Options)) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{invoker: inv, log: log, base: optFns}
}

// options layers per-call options over the constructor's.
func (x *Extractor) options(optFns []func(*Options)) (Options, error) {
	opts := defaultOptions()
	for _, fn := range x.base {
		fn(&opts)
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		return opts, ErrModelMissing
	}
	if opts.Now == nil {
		opts.Now = defaultOptions().Now
	}
	if opts.Prompts == nil {
		p, err := DefaultPromptProvider()
		if err != nil {
			return opts, fmt.Errorf("load default prompts: %w", err)
		}
		opts.Prompts = p
	}
	return opts, nil
}

// ExtractFacts is Extract without the stats.
func (x *Extractor) ExtractFacts(ctx context.Context, doc Document, optFns ...func(*Options)) ([]Fact, error) {
	res, err := x.Extract(ctx, doc, optFns...)
	if err != nil {
		return nil, err
	}
	return res.Facts, nil
}

// Extract chunks the document, extracts every chunk concurrently, and returns
// the facts in document order. If any chunk fails for good the whole call
// fails and no facts are returned.
func (x *Extractor) Extract(ctx context.Context, doc Document, optFns ...func(*Options)) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	opts, err := x.options(optFns)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	log := x.log.With("run", uuid.NewString())
	units := NewChunker(opts.ChunkSize).Split(doc.Text)
	log.Debug("Document chunked",
		"document_length", utf8.RuneCountInString(doc.Text),
		"chunk_size", opts.ChunkSize,
		"chunks", len(units),
		"mode", doc.Mode.String())

	j := &job{
		invoker: x.invoker,
		doc:     doc,
		opts:    opts,
		log:     log,
		gate:    newGate(opts.Concurrency),
	}

	r := opts.runner(ctx)
	rctx := runnerContext(r, ctx)
	results := make([]outcome, len(units))
	for i, u := range units {
		r.Go(func() error {
			out, err := j.extractWithSplit(rctx, u)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := r.Wait(); err != nil {
		log.Debug("Extraction failed", "error", err)
		return nil, err
	}

	res := &Result{Facts: make([]Fact, 0)}
	for _, out := range results {
		res.Facts = append(res.Facts, out.facts...)
		res.Stats = res.Stats.add(out.stats)
	}
	res.Stats.Units = len(units)

	log.Info("Extraction completed",
		"facts", len(res.Facts),
		"chunks", res.Stats.Units,
		"calls", res.Stats.Calls,
		"splits", res.Stats.Splits)
	return res, nil
}

// job carries everything one document extraction needs down the split tree.
// It is read-only once built.
type job struct {
	invoker Invoker
	doc     Document
	opts    Options
	log     *slog.Logger
	gate    gate
}

// outcome is what a subtree hands back to its parent.
type outcome struct {
	facts []Fact
	stats Stats
}

// extractWithSplit extracts u and, when the output overflows, bisects u and
// extracts both halves concurrently. The halves' facts are joined first-half
// first regardless of which finishes earlier.
func (j *job) extractWithSplit(ctx context.Context, u Unit) (outcome, error) {
	out, err := j.extractUnit(ctx, u)
	if err == nil {
		return out, nil
	}
	var tooLong *OutputTooLongError
	if !errors.As(err, &tooLong) {
		return outcome{}, err
	}

	length := utf8.RuneCountInString(u.Text)
	unsplittable := func(reason string) error {
		return &UnsplittableUnitError{Unit: u.ID(), Depth: u.Depth, Length: length, Reason: reason, Err: err}
	}
	if j.opts.MaxSplitDepth > 0 && u.Depth >= j.opts.MaxSplitDepth {
		return outcome{}, unsplittable(fmt.Sprintf("maximum split depth %d reached", j.opts.MaxSplitDepth))
	}
	if j.opts.MinUnitChars > 0 && length < j.opts.MinUnitChars {
		return outcome{}, unsplittable(fmt.Sprintf("shorter than the %d character floor", j.opts.MinUnitChars))
	}
	first, second, ok := bisect(u.Text)
	if !ok {
		return outcome{}, unsplittable("no split point leaves two non-empty halves")
	}

	j.log.Warn("Output too long, splitting unit in half",
		"unit", u.ID(),
		"depth", u.Depth,
		"length", length,
		"first_length", utf8.RuneCountInString(first),
		"second_length", utf8.RuneCountInString(second))

	r := j.opts.runner(ctx)
	rctx := runnerContext(r, ctx)
	var halves [2]outcome
	for i, text := range [2]string{first, second} {
		child := u.child(text, i)
		r.Go(func() error {
			o, err := j.extractWithSplit(rctx, child)
			if err != nil {
				return err
			}
			halves[i] = o
			return nil
		})
	}
	if err := r.Wait(); err != nil {
		return outcome{}, err
	}

	merged := outcome{
		facts: append(append(make([]Fact, 0, len(halves[0].facts)+len(halves[1].facts)), halves[0].facts...), halves[1].facts...),
		stats: out.stats.add(halves[0].stats).add(halves[1].stats),
	}
	merged.stats.Splits++
	j.log.Info("Extracted facts from split unit", "unit", u.ID(), "facts", len(merged.facts))
	return merged, nil
}

// extractUnit runs the bounded retry loop around a single unit. The returned
// stats are valid even when err is not nil.
func (j *job) extractUnit(ctx context.Context, u Unit) (outcome, error) {
	out := outcome{stats: Stats{MaxDepth: u.Depth}}

	req, err := buildRequest(j.opts.Prompts, j.doc, u, j.opts)
	if err != nil {
		return out, fmt.Errorf("unit %s: %w", u.ID(), err)
	}

	var batch Batch
	log := j.log.With("unit", u.ID())
	err = retryValidation(j.opts.MaxAttempts, func(attempt int) error {
		out.stats.Calls++
		if attempt > 1 {
			out.stats.Retries++
		}
		b, err := j.call(ctx, u, req, attempt)
		if err != nil {
			return err
		}
		batch = b
		return nil
	}, log)
	if err != nil {
		return out, err
	}

	for i := range batch {
		batch[i].ID = uuid.NewString()
		batch[i].Source = Source{Unit: u.ID(), Chunk: u.Chunk(), Depth: u.Depth, Position: i}
	}
	out.facts = batch
	out.stats.Leaves = 1
	out.stats.Facts = len(batch)
	log.Debug("Unit extracted", "facts", len(batch), "length", len(u.Text))
	return out, nil
}

// call makes exactly one generation call and classifies its outcome.
func (j *job) call(ctx context.Context, u Unit, req *Request, attempt int) (Batch, error) {
	if err := j.gate.acquire(ctx); err != nil {
		return nil, fmt.Errorf("unit %s: %w", u.ID(), err)
	}
	raw, err := j.invoker.Generate(ctx, Model(j.opts.Model), req)
	j.gate.release()

	if err != nil {
		var tooLong *OutputTooLongError
		if errors.As(err, &tooLong) {
			cp := *tooLong
			cp.Unit = u.ID()
			return nil, &cp
		}
		var invalid *ValidationError
		if errors.As(err, &invalid) {
			cp := *invalid
			cp.Unit, cp.Attempt = u.ID(), attempt
			return nil, &cp
		}
		return nil, fmt.Errorf("unit %s: generate: %w", u.ID(), err)
	}

	batch, err := parseBatch(raw)
	if err != nil {
		return nil, &ValidationError{Unit: u.ID(), Attempt: attempt, Err: err}
	}
	return batch, nil
}
