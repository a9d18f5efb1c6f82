package factextract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedInvoker records every call and answers through fn. attempt counts
// earlier calls for the same unit text, starting at 1.
type scriptedInvoker struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, text string, attempt int) ([]byte, error)
}

func (s *scriptedInvoker) Generate(ctx context.Context, _ Model, req *Request) ([]byte, error) {
	text := DocumentText(req)
	s.mu.Lock()
	attempt := 1
	for _, c := range s.calls {
		if c == text {
			attempt++
		}
	}
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	return s.fn(ctx, text, attempt)
}

func (s *scriptedInvoker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// factsJSON returns a response with one world fact per statement.
func factsJSON(statements ...string) []byte {
	facts := make([]map[string]any, 0, len(statements))
	for _, s := range statements {
		facts = append(facts, map[string]any{
			"fact":           s,
			"occurred_start": "2024-03-14T00:00:00Z",
			"occurred_end":   "2024-03-14T00:00:00Z",
			"fact_type":      "world",
			"entities":       []map[string]string{{"text": "Alice"}},
		})
	}
	b, _ := json.Marshal(map[string]any{"facts": facts})
	return b
}

func newTestExtractor(inv Invoker, optFns ...func(*Options)) *Extractor {
	return NewWithLogger(inv, discardLog, append([]func(*Options){
		WithModel("test-model"),
		WithClock(fixedClock),
	}, optFns...)...)
}

func factTexts(facts []Fact) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.Text
	}
	return out
}

var sentence = "Alice met Bob at the market. "

func TestExtract_SingleChunk(t *testing.T) {
	inv := &scriptedInvoker{fn: func(_ context.Context, text string, _ int) ([]byte, error) {
		return factsJSON("Alice met Bob.", "Bob bought apples."), nil
	}}
	x := newTestExtractor(inv)

	res, err := x.Extract(context.Background(), testDocument("Alice met Bob. Bob bought apples."))
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice met Bob.", "Bob bought apples."}, factTexts(res.Facts))
	for i, f := range res.Facts {
		_, err := uuid.Parse(f.ID)
		assert.NoError(t, err, "fact %d id", i)
		assert.Equal(t, Source{Unit: "0", Chunk: 0, Depth: 0, Position: i}, f.Source)
		assert.Equal(t, []string{"Alice"}, f.Entities)
	}
	assert.NotEqual(t, res.Facts[0].ID, res.Facts[1].ID)
	assert.Equal(t, Stats{Units: 1, Leaves: 1, Calls: 1, Facts: 2}, res.Stats)
}

func TestExtract_ThreeChunksInDocumentOrder(t *testing.T) {
	text := paragraphs(120, 98)

	inv := &scriptedInvoker{fn: func(_ context.Context, text string, _ int) ([]byte, error) {
		head := text[:len("Paragraph 000")]
		// later chunks finish first
		switch head {
		case "Paragraph 000":
			time.Sleep(30 * time.Millisecond)
		case "Paragraph 050":
			time.Sleep(15 * time.Millisecond)
		}
		return factsJSON(head+" a", head+" b"), nil
	}}
	x := newTestExtractor(inv)

	res, err := x.Extract(context.Background(), testDocument(text))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Paragraph 000 a", "Paragraph 000 b",
		"Paragraph 050 a", "Paragraph 050 b",
		"Paragraph 100 a", "Paragraph 100 b",
	}, factTexts(res.Facts))
	assert.Equal(t, 3, res.Stats.Units)
	assert.Equal(t, 3, res.Stats.Calls)
	assert.Equal(t, 6, res.Stats.Facts)
	assert.Equal(t, 2, res.Facts[5].Source.Chunk)
}

func TestExtract_OverflowSplitsInHalves(t *testing.T) {
	full := strings.TrimSpace(strings.Repeat(sentence, 10))

	inv := &scriptedInvoker{fn: func(_ context.Context, text string, _ int) ([]byte, error) {
		if text == full {
			return nil, NewOutputTooLongError("MAX_TOKENS")
		}
		return factsJSON(text), nil
	}}
	x := newTestExtractor(inv)

	res, err := x.Extract(context.Background(), testDocument(full))
	require.NoError(t, err)
	require.Len(t, res.Facts, 2)

	first, second, ok := bisect(full)
	require.True(t, ok)
	assert.Equal(t, []string{first, second}, factTexts(res.Facts))
	assert.Equal(t, stripSpace(full), stripSpace(first+second))

	assert.Equal(t, "0.0", res.Facts[0].Source.Unit)
	assert.Equal(t, "0.1", res.Facts[1].Source.Unit)
	assert.Equal(t, 1, res.Facts[1].Source.Depth)
	assert.Equal(t, Stats{Units: 1, Leaves: 2, Calls: 3, Splits: 1, MaxDepth: 1, Facts: 2}, res.Stats)
}

func TestExtract_RecursiveSplitKeepsOrder(t *testing.T) {
	full := strings.TrimSpace(strings.Repeat("Sentence number one goes here. ", 40))

	var inFlight, peak int32
	inv := &scriptedInvoker{fn: func(_ context.Context, text string, _ int) ([]byte, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		if len(text) > 300 {
			return nil, NewOutputTooLongError("length")
		}
		if len(text)%2 == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		return factsJSON(text), nil
	}}

	for _, tt := range []struct {
		name        string
		concurrency int
	}{
		{"unbounded", 0},
		{"single call slot", 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			atomic.StoreInt32(&peak, 0)
			x := newTestExtractor(inv, WithMinUnitChars(0), WithConcurrency(tt.concurrency))

			res, err := x.Extract(context.Background(), testDocument(full))
			require.NoError(t, err)

			leaves := factTexts(res.Facts)
			assert.Equal(t, stripSpace(full), stripSpace(strings.Join(leaves, "")))
			for _, leaf := range leaves {
				assert.LessOrEqual(t, len(leaf), 300)
			}
			assert.Equal(t, res.Stats.Leaves-1, res.Stats.Splits)
			assert.Equal(t, res.Stats.Leaves+res.Stats.Splits, res.Stats.Calls)
			assert.GreaterOrEqual(t, res.Stats.MaxDepth, 2)
			if tt.concurrency == 1 {
				assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
			}
		})
	}
}

func TestExtract_ValidationRetry(t *testing.T) {
	doc := testDocument("Alice met Bob.")

	t.Run("second attempt succeeds", func(t *testing.T) {
		inv := &scriptedInvoker{fn: func(_ context.Context, text string, attempt int) ([]byte, error) {
			if attempt == 1 {
				return []byte(`{"facts": [`), nil
			}
			return factsJSON(text), nil
		}}

		res, err := newTestExtractor(inv).Extract(context.Background(), doc)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice met Bob."}, factTexts(res.Facts))
		assert.Equal(t, 2, res.Stats.Calls)
		assert.Equal(t, 1, res.Stats.Retries)
	})

	t.Run("provider-reported validation failure is retried", func(t *testing.T) {
		inv := &scriptedInvoker{fn: func(_ context.Context, text string, attempt int) ([]byte, error) {
			if attempt == 1 {
				return nil, NewValidationError(errors.New(codeJSONValidateFailed))
			}
			return factsJSON(text), nil
		}}

		res, err := newTestExtractor(inv).Extract(context.Background(), doc)
		require.NoError(t, err)
		assert.Len(t, res.Facts, 1)
		assert.Equal(t, 2, inv.callCount())
	})

	t.Run("invariant violation is retried", func(t *testing.T) {
		inv := &scriptedInvoker{fn: func(_ context.Context, text string, attempt int) ([]byte, error) {
			if attempt == 1 {
				return []byte(`{"facts": [{"fact": "x", "occurred_start": "2024-01-01", "occurred_end": "2024-01-01",
					"fact_type": "world", "causal_relations": [{"target_fact_index": 4, "relation_type": "causes"}]}]}`), nil
			}
			return factsJSON(text), nil
		}}

		res, err := newTestExtractor(inv).Extract(context.Background(), doc)
		require.NoError(t, err)
		assert.Len(t, res.Facts, 1)
	})

	t.Run("exhaustion surfaces the last attempt", func(t *testing.T) {
		inv := &scriptedInvoker{fn: func(context.Context, string, int) ([]byte, error) {
			return []byte(`not json`), nil
		}}

		res, err := newTestExtractor(inv).Extract(context.Background(), doc)
		require.Error(t, err)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrValidation)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, 2, ve.Attempt)
		assert.Equal(t, "0", ve.Unit)
		assert.Equal(t, 2, inv.callCount())
	})

	t.Run("attempt cap is configurable", func(t *testing.T) {
		inv := &scriptedInvoker{fn: func(context.Context, string, int) ([]byte, error) {
			return []byte(`{}`), nil
		}}

		_, err := newTestExtractor(inv, WithMaxAttempts(3)).Extract(context.Background(), doc)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, 3, ve.Attempt)
		assert.Equal(t, 3, inv.callCount())
	})
}

func TestExtract_OverflowOnRetryAttempt(t *testing.T) {
	full := strings.TrimSpace(strings.Repeat(sentence, 10))

	inv := &scriptedInvoker{fn: func(_ context.Context, text string, attempt int) ([]byte, error) {
		if text == full {
			if attempt == 1 {
				return []byte(`{"facts": "nope"}`), nil
			}
			return nil, NewOutputTooLongError("MAX_TOKENS")
		}
		return factsJSON(text), nil
	}}

	res, err := newTestExtractor(inv).Extract(context.Background(), testDocument(full))
	require.NoError(t, err)
	assert.Len(t, res.Facts, 2)
	assert.Equal(t, Stats{Units: 1, Leaves: 2, Calls: 4, Retries: 1, Splits: 1, MaxDepth: 1, Facts: 2}, res.Stats)
}

func TestExtract_UnsplittableUnit(t *testing.T) {
	alwaysOverflow := func(context.Context, string, int) ([]byte, error) {
		return nil, NewOutputTooLongError("MAX_TOKENS")
	}

	t.Run("below minimum size", func(t *testing.T) {
		inv := &scriptedInvoker{fn: alwaysOverflow}
		text := strings.TrimSpace(strings.Repeat(sentence, 5))
		require.Less(t, len(text), DefaultMinUnitChars)

		_, err := newTestExtractor(inv).Extract(context.Background(), testDocument(text))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsplittableUnit)
		assert.ErrorIs(t, err, ErrOutputTooLong)

		var ue *UnsplittableUnitError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, "0", ue.Unit)
		assert.Equal(t, 0, ue.Depth)
		assert.Equal(t, 1, inv.callCount())
	})

	t.Run("maximum depth", func(t *testing.T) {
		inv := &scriptedInvoker{fn: alwaysOverflow}
		text := strings.TrimSpace(strings.Repeat(sentence, 10))

		_, err := newTestExtractor(inv, WithMinUnitChars(0), WithMaxSplitDepth(1)).
			Extract(context.Background(), testDocument(text))

		var ue *UnsplittableUnitError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, 1, ue.Depth)
		assert.Contains(t, ue.Reason, "depth")
	})

	t.Run("no split point", func(t *testing.T) {
		inv := &scriptedInvoker{fn: alwaysOverflow}

		_, err := newTestExtractor(inv, WithMinUnitChars(0)).Extract(context.Background(), testDocument("a"))

		var ue *UnsplittableUnitError
		require.ErrorAs(t, err, &ue)
		assert.Contains(t, ue.Reason, "no split point")
	})
}

func TestExtract_FailFast(t *testing.T) {
	boom := errors.New("quota exceeded")

	t.Run("top-level chunk", func(t *testing.T) {
		inv := &scriptedInvoker{fn: func(ctx context.Context, text string, _ int) ([]byte, error) {
			if strings.HasPrefix(text, "Paragraph 050") {
				return nil, boom
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return factsJSON(text[:13]), nil
			}
		}}

		start := time.Now()
		res, err := newTestExtractor(inv).Extract(context.Background(), testDocument(paragraphs(120, 98)))
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "unit 1")
		assert.Less(t, time.Since(start), 500*time.Millisecond, "siblings are cancelled")
	})

	t.Run("inside a split", func(t *testing.T) {
		full := strings.TrimSpace(strings.Repeat(sentence, 10))
		_, second, _ := bisect(full)

		inv := &scriptedInvoker{fn: func(_ context.Context, text string, _ int) ([]byte, error) {
			switch text {
			case full:
				return nil, NewOutputTooLongError("length")
			case second:
				return nil, boom
			}
			return factsJSON(text), nil
		}}

		res, err := newTestExtractor(inv).Extract(context.Background(), testDocument(full))
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "unit 0.1")
	})
}

func TestExtract_Cancellation(t *testing.T) {
	blocking := func(ctx context.Context, _ string, _ int) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	t.Run("caller cancels", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := newTestExtractor(&scriptedInvoker{fn: blocking}).Extract(ctx, testDocument("Alice met Bob."))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("timeout option", func(t *testing.T) {
		_, err := newTestExtractor(&scriptedInvoker{fn: blocking}, WithTimeout(20*time.Millisecond)).
			Extract(context.Background(), testDocument("Alice met Bob."))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestExtract_InvalidInput(t *testing.T) {
	inv := &scriptedInvoker{fn: func(context.Context, string, int) ([]byte, error) {
		return factsJSON("x"), nil
	}}

	t.Run("empty document", func(t *testing.T) {
		_, err := newTestExtractor(inv).Extract(context.Background(), testDocument("  \n "))
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})

	t.Run("missing event time", func(t *testing.T) {
		_, err := newTestExtractor(inv).Extract(context.Background(), Document{Text: "x"})
		assert.ErrorIs(t, err, ErrMissingEventTime)
	})

	t.Run("missing model", func(t *testing.T) {
		x := NewWithLogger(inv, discardLog)
		_, err := x.Extract(context.Background(), testDocument("x"))
		assert.ErrorIs(t, err, ErrModelMissing)
	})

	assert.Zero(t, inv.callCount())
}

func TestExtract_CausalRelationsStayBatchLocal(t *testing.T) {
	inv := &scriptedInvoker{fn: func(context.Context, string, int) ([]byte, error) {
		return []byte(`{"facts": [
			{"fact": "It rained all day.", "occurred_start": "2024-03-14", "occurred_end": "2024-03-14", "fact_type": "world",
			 "causal_relations": [{"target_fact_index": 1, "relation_type": "causes", "strength": 0.9}]},
			{"fact": "The picnic was cancelled.", "occurred_start": "2024-03-14", "occurred_end": "2024-03-14", "fact_type": "world"}
		]}`), nil
	}}

	res, err := newTestExtractor(inv, WithChunkSize(60)).
		Extract(context.Background(), testDocument("It rained all day on Thursday.\n\nSo the picnic was cancelled by everyone."))
	require.NoError(t, err)
	require.Len(t, res.Facts, 4)

	second := res.Facts[2]
	assert.Equal(t, "1", second.Source.Unit)
	assert.Equal(t, 0, second.Source.Position)
	assert.Equal(t, 1, second.CausalRelations[0].TargetIndex, "index is relative to the batch")
	assert.Equal(t, res.Facts[3].Source.Unit, second.Source.Unit)
}

func TestExtract_CustomRunner(t *testing.T) {
	var order []string
	inv := InvokerFunc(func(_ context.Context, _ Model, req *Request) ([]byte, error) {
		text := DocumentText(req)
		order = append(order, text[:13])
		return factsJSON(text[:13]), nil
	})

	runners := 0
	x := newTestExtractor(inv, WithRunnerFactory(func(context.Context) Runner {
		runners++
		return &serialRunner{}
	}))

	res, err := x.Extract(context.Background(), testDocument(paragraphs(120, 98)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Paragraph 000", "Paragraph 050", "Paragraph 100"}, order)
	assert.Equal(t, order, factTexts(res.Facts))
	assert.Equal(t, 1, runners)
}

func TestExtract_PerCallOptionsOverrideConstructor(t *testing.T) {
	var temps []float32
	var mu sync.Mutex
	inv := InvokerFunc(func(_ context.Context, _ Model, req *Request) ([]byte, error) {
		mu.Lock()
		temps = append(temps, req.Temperature)
		mu.Unlock()
		return factsJSON("x"), nil
	})

	x := newTestExtractor(inv, WithTemperature(0.5))
	_, err := x.Extract(context.Background(), testDocument("a"), WithTemperature(0.9))
	require.NoError(t, err)
	_, err = x.Extract(context.Background(), testDocument("a"))
	require.NoError(t, err)

	assert.Equal(t, []float32{0.9, 0.5}, temps)
}

func TestExtractFacts(t *testing.T) {
	x := NewForTesting(nil)

	facts, err := x.ExtractFacts(context.Background(), testDocument("Alice met Bob. Bob sold his bike. They parted"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice met Bob", "Bob sold his bike", "They parted"}, factTexts(facts))

	_, err = x.ExtractFacts(context.Background(), Document{})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}
