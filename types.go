package factextract

import (
	"context"
	"runtime"
	"time"
)

// Model represents a model identifier
type Model string

// Runner lets the Extractor schedule work with any concurrency model.
type Runner interface {
	Go(fn func() error) // schedule
	Wait() error        // join / propagate first err
}

// PromptProvider should return the prompt template text for the given tag
type PromptProvider interface {
	GetPrompt(tag string, version int) (string, error)
}

// ContextualPromptProvider extends PromptProvider to support template variables.
type ContextualPromptProvider interface {
	PromptProvider
	GetPromptWithVars(tag string, version int, vars map[string]any) (string, error)
}

// Invoker is the generation capability. Implementations return the raw JSON
// body of the response, *OutputTooLongError when generation hit its output
// budget, *ValidationError when the provider rejected its own output against
// the schema, or any other error for failures that must not be retried.
type Invoker interface {
	Generate(ctx context.Context, model Model, req *Request) ([]byte, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, model Model, req *Request) ([]byte, error)

func (f InvokerFunc) Generate(ctx context.Context, model Model, req *Request) ([]byte, error) {
	return f(ctx, model, req)
}

// Defaults used when the corresponding option is left unset.
const (
	DefaultMaxAttempts     = 2
	DefaultTemperature     = 0.1
	DefaultMaxOutputTokens = 65000
	DefaultScope           = "memory_extract_facts"
	DefaultMinUnitChars    = 200
	DefaultMaxSplitDepth   = 8
)

// Options represents functional options for extraction
type Options struct {
	Model           string
	ChunkSize       int // top-level unit budget in characters
	MaxAttempts     int // total attempts on validation failure
	Temperature     float32
	MaxOutputTokens int
	Scope           string                           // attribution tag sent with every call
	Concurrency     int                              // max in-flight generation calls, 0 → unlimited
	Timeout         time.Duration                    // whole-document deadline, 0 → none
	MinUnitChars    int                              // overflowing units shorter than this fail, 0 → no floor
	MaxSplitDepth   int                              // 0 → unbounded recursion
	Prompts         PromptProvider                   // nil → embedded templates
	NewRunner       func(ctx context.Context) Runner // nil → DefaultRunner
	Now             func() time.Time                 // clock for the "today" prompt variable
}

func defaultOptions() Options {
	return Options{
		ChunkSize:       DefaultChunkSize,
		MaxAttempts:     DefaultMaxAttempts,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Scope:           DefaultScope,
		Concurrency:     runtime.NumCPU() * 4,
		MinUnitChars:    DefaultMinUnitChars,
		MaxSplitDepth:   DefaultMaxSplitDepth,
		Now:             time.Now,
	}
}

func (o Options) runner(ctx context.Context) Runner {
	if o.NewRunner != nil {
		return o.NewRunner(ctx)
	}
	return DefaultRunner(ctx)
}

// Functional option constructors
func WithModel(name string) func(*Options) {
	return func(o *Options) { o.Model = name }
}

func WithChunkSize(chars int) func(*Options) {
	return func(o *Options) { o.ChunkSize = chars }
}

// WithMaxAttempts sets the total number of calls made for a unit whose
// output fails validation. Values below 1 are treated as 1.
func WithMaxAttempts(n int) func(*Options) {
	return func(o *Options) { o.MaxAttempts = max(1, n) }
}

func WithTemperature(t float32) func(*Options) {
	return func(o *Options) { o.Temperature = t }
}

func WithMaxOutputTokens(n int) func(*Options) {
	return func(o *Options) { o.MaxOutputTokens = n }
}

func WithScope(scope string) func(*Options) {
	return func(o *Options) { o.Scope = scope }
}

func WithConcurrency(n int) func(*Options) {
	return func(o *Options) { o.Concurrency = n }
}

func WithTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.Timeout = d }
}

// WithMinUnitChars sets the size below which an overflowing unit is reported
// as unsplittable instead of being bisected again.
func WithMinUnitChars(n int) func(*Options) {
	return func(o *Options) { o.MinUnitChars = n }
}

func WithMaxSplitDepth(n int) func(*Options) {
	return func(o *Options) { o.MaxSplitDepth = n }
}

func WithPromptProvider(p PromptProvider) func(*Options) {
	return func(o *Options) { o.Prompts = p }
}

// WithRunnerFactory plugs a custom Runner. The factory is called once for the
// top-level fan-out and once per overflow split.
func WithRunnerFactory(fn func(ctx context.Context) Runner) func(*Options) {
	return func(o *Options) { o.NewRunner = fn }
}

func WithClock(now func() time.Time) func(*Options) {
	return func(o *Options) { o.Now = now }
}
