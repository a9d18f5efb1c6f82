// Package factextract turns narrative or conversational text into an ordered
// list of discrete facts using a generation model. Each fact carries a
// temporal range, a classification, the entities it mentions, and optional
// causal links to other facts extracted alongside it.
//
// # Problem Statement
//
// Generation models are a poor fit for long documents when used naively:
//
//   - Output is capped: a dense document can yield more facts than the model
//     may emit in one response, and a truncated response is useless
//   - Output is unreliable: the model sometimes returns JSON that does not
//     match the requested shape
//   - Long inputs are slow when processed one call at a time
//
// The factextract package handles all of it:
//
//   - Chunking: the document is cut at natural boundaries into units of at
//     most 5000 characters
//   - Retry: a response that fails validation is retried once with the same
//     request
//   - Self-healing: a unit whose output overflowed is cut in half near a
//     sentence boundary and each half is extracted on its own, recursively
//   - Concurrency: every unit and every half runs concurrently, yet the facts
//     always come back in document order
//
// # Basic Usage
//
//	ctx := context.Background()
//	client, _ := genai.NewClient(ctx, &genai.ClientConfig{APIKey: os.Getenv("GEMINI_API_KEY")})
//	x := factextract.New(client, factextract.WithModel("gemini-2.5-flash"))
//
//	facts, err := x.ExtractFacts(ctx, factextract.Document{
//	    Text:      transcript,
//	    EventTime: time.Now(),
//	    AgentName: "Memora",
//	})
//
// Extract returns the same facts together with execution statistics:
//
//	res, err := x.Extract(ctx, doc)
//	fmt.Println(len(res.Facts), res.Stats.Calls, res.Stats.Splits)
//
// # Providers
//
// Any Invoker can drive the extractor. Gemini, OpenAI-compatible endpoints and
// Ollama are built in:
//
//	x := factextract.NewWithLogger(
//	    factextract.NewOpenAIInvoker(os.Getenv("OPENAI_API_KEY"), "", log),
//	    log,
//	    factextract.WithModel("gpt-4o-mini"),
//	)
//
//	inv, _ := factextract.NewOllamaInvoker("http://localhost:11434", 5*time.Minute, log)
//	x := factextract.NewWithLogger(inv, log, factextract.WithModel("llama3.1"))
//
// An Invoker reports a truncated response with NewOutputTooLongError and a
// provider-side schema failure with NewValidationError. Every other error is
// final.
//
// # Modes
//
// By default world and agent facts are extracted. ModeOpinions asks for the
// agent's opinions instead:
//
//	doc.Mode = factextract.ModeOpinions
//
// # Prompts
//
// Prompts are Twig templates rendered with Stick. The embedded defaults can be
// replaced per tag:
//
//	p, _ := factextract.DefaultPromptProvider(
//	    factextract.WithTemplates(map[string]string{"system": "You are a meticulous archivist."}),
//	)
//	x := factextract.New(client, factextract.WithModel(m), factextract.WithPromptProvider(p))
//
// Templates see today, event_time, context, agent_name, extract_opinions,
// mode, text and unit.
//
// # Splitting Guards
//
// A unit that overflows while shorter than WithMinUnitChars, or once
// WithMaxSplitDepth halvings deep, fails with an *UnsplittableUnitError. Pass
// 0 to either option to disable the guard.
//
// # Causal Relations
//
// CausalRelation.TargetIndex refers to a position inside the batch the fact
// was extracted with, not inside the final list. Fact.Source identifies that
// batch: facts with equal Source.Unit share an index space, and
// Source.Position is the fact's own index there.
//
// # Errors
//
// Extraction is all-or-nothing. Either every unit succeeds and the full
// ordered list is returned, or the first terminal error is returned with no
// facts. Use errors.Is with ErrValidation, ErrOutputTooLong and
// ErrUnsplittableUnit to classify it.
//
// # Execution Planning
//
// DryRun renders every top-level request without calling the model and
// estimates token usage; Explain formats the same as a tree:
//
//	plan, _ := x.Explain(ctx, doc)
//	fmt.Print(plan)
//
//	Extraction Plan (estimated costs)
//	GatherFacts (model=gemini-2.5-flash, cost=14.3, $0.012514)
//	  ├─ ChunkDocument (cost=2.2, chars=11873)
//	  ├─ ExtractCall "0" (model=gemini-2.5-flash, cost=16.1, chars=4987, tokens(in=1310,out=1890))
//	  ...
//
// # Concurrency
//
// Work is scheduled through a Runner, an errgroup by default. Generation calls
// are bounded by WithConcurrency; the bound wraps the call only, so a split
// waiting on its halves never holds a slot.
package factextract
