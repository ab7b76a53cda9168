// Package agent runs templated completion calls and turns the responses into
// schema-validated records.
//
// An Agent renders one prompt template, sends it to the injected llm.Client, validates
// the JSON answer against the agent's schema and decodes it. Identical concurrent
// invocations share one upstream call, validated answers are cached, and transient
// provider failures are retried with a linear backoff.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/prompts"
	"github.com/jonathan/cover-letter-agent/internal/schemas"
)

// FormatInstructionsKey is the template placeholder filled with the output schema.
const FormatInstructionsKey = "FormatInstructions"

// Call outcomes reported to the Recorder
const (
	OutcomeSuccess  = "success"
	OutcomeCacheHit = "cache_hit"
	OutcomeInvalid  = "invalid_input"
	OutcomeUpstream = "upstream_error"
	OutcomeParse    = "parse_error"
)

// Recorder receives per-call measurements.
type Recorder interface {
	ObserveCall(agent, outcome string, d time.Duration)
	ObserveRetry(agent string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCall(string, string, time.Duration) {}
func (nopRecorder) ObserveRetry(string)                       {}

// Runtime is the shared capability injected into every agent.
type Runtime struct {
	Client llm.Client
	// Cache is optional; nil disables caching.
	Cache Cache
	Retry RetryPolicy
	// Timeout bounds each completion attempt. Zero means no per-attempt timeout.
	Timeout  time.Duration
	Logger   *slog.Logger
	Recorder Recorder
}

func (rt Runtime) withDefaults() Runtime {
	if rt.Logger == nil {
		rt.Logger = slog.New(slog.DiscardHandler)
	}
	if rt.Recorder == nil {
		rt.Recorder = nopRecorder{}
	}
	return rt
}

// Spec describes one agent.
type Spec struct {
	Name      string
	PromptKey string
	// Required inputs must be present and non-blank.
	Required []string
	// Schema names the embedded output schema. Empty for plain-text agents.
	Schema      string
	Tier        llm.ModelTier
	Temperature float64
}

type runner struct {
	spec     Spec
	rt       Runtime
	template string
	group    singleflight.Group
}

func newRunner(spec Spec, rt Runtime) (*runner, error) {
	if rt.Client == nil {
		return nil, errors.New("agent runtime has no LLM client")
	}
	template, err := prompts.Get(prompts.AgentsFile, spec.PromptKey)
	if err != nil {
		return nil, err
	}
	return &runner{spec: spec, rt: rt.withDefaults(), template: template}, nil
}

func (r *runner) checkRequired(inputs map[string]string) error {
	for _, field := range r.spec.Required {
		if v, ok := inputs[field]; !ok || strings.TrimSpace(v) == "" {
			return InvalidInput(r.spec.Name, field)
		}
	}
	return nil
}

func (r *runner) render(inputs map[string]string, extra map[string]string) (string, error) {
	data := make(map[string]string, len(inputs)+len(extra))
	for k, v := range inputs {
		data[k] = v
	}
	for k, v := range extra {
		data[k] = v
	}
	prompt, err := prompts.Render(r.template, data)
	if err != nil {
		return "", &Error{Kind: KindInvalidInput, Agent: r.spec.Name, Err: err}
	}
	return prompt, nil
}

// run executes the full invocation. check validates raw output before it is cached.
func (r *runner) run(ctx context.Context, inputs map[string]string, extra map[string]string, jsonMode bool, check func(string) error) (string, error) {
	start := time.Now()
	name := r.spec.Name

	if err := r.checkRequired(inputs); err != nil {
		r.rt.Recorder.ObserveCall(name, OutcomeInvalid, time.Since(start))
		return "", err
	}
	prompt, err := r.render(inputs, extra)
	if err != nil {
		r.rt.Recorder.ObserveCall(name, OutcomeInvalid, time.Since(start))
		return "", err
	}

	key := CacheKey(name, inputs)
	// The shared call outlives any single caller: a caller that goes away stops waiting
	// but the others still get the result. Attempts stay bounded by rt.Timeout.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		if r.rt.Cache != nil {
			if cached, ok := r.rt.Cache.Get(shared, key); ok {
				r.rt.Recorder.ObserveCall(name, OutcomeCacheHit, time.Since(start))
				return string(cached), nil
			}
		}

		raw, err := r.complete(shared, prompt, jsonMode)
		if err != nil {
			r.rt.Recorder.ObserveCall(name, OutcomeUpstream, time.Since(start))
			return "", &Error{Kind: KindUpstream, Agent: name, Err: err}
		}
		if jsonMode {
			raw = llm.CleanJSONBlock(raw)
		}
		if check != nil {
			if err := check(raw); err != nil {
				r.rt.Recorder.ObserveCall(name, OutcomeParse, time.Since(start))
				return "", &Error{Kind: KindOutputParse, Agent: name, Raw: raw, Err: err}
			}
		}

		if r.rt.Cache != nil {
			r.rt.Cache.Set(shared, key, []byte(raw))
		}
		r.rt.Recorder.ObserveCall(name, OutcomeSuccess, time.Since(start))
		return raw, nil
	})

	select {
	case <-ctx.Done():
		r.rt.Logger.Debug("caller stopped waiting for agent call", "agent", name, "error", ctx.Err())
		return "", &Error{Kind: KindUpstream, Agent: name, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			r.rt.Logger.Debug("agent call shared with concurrent caller", "agent", name)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *runner) complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	name := r.spec.Name
	attempt := 0

	op := func(callCtx context.Context) (string, error) {
		attempt++
		opt := llm.WithTemperature(r.spec.Temperature)
		if jsonMode {
			return r.rt.Client.GenerateJSON(callCtx, prompt, r.spec.Tier, opt)
		}
		return r.rt.Client.GenerateContent(callCtx, prompt, r.spec.Tier, opt)
	}

	onRetry := func(err error, wait time.Duration) {
		r.rt.Recorder.ObserveRetry(name)
		r.rt.Logger.Warn("transient completion failure, retrying",
			"agent", name, "attempt", attempt, "wait", wait, "error", err)
	}

	out, err := Retry(ctx, r.rt.Retry, r.rt.Timeout, op, onRetry)
	if err != nil {
		r.rt.Logger.Error("completion failed", "agent", name, "attempts", attempt, "error", err)
		return "", err
	}
	r.rt.Logger.Debug("completion finished", "agent", name, "attempts", attempt, "bytes", len(out))
	return out, nil
}

// Agent is a structured-output agent producing T.
type Agent[T any] struct {
	r          *runner
	schemaDesc string
}

// New builds an agent. It fails when the template or schema is unknown.
func New[T any](spec Spec, rt Runtime) (*Agent[T], error) {
	r, err := newRunner(spec, rt)
	if err != nil {
		return nil, err
	}
	desc, err := schemas.Describe(spec.Schema)
	if err != nil {
		return nil, err
	}
	return &Agent[T]{r: r, schemaDesc: desc}, nil
}

// Name returns the agent name
func (a *Agent[T]) Name() string {
	return a.r.spec.Name
}

// Model returns the model serving this agent's tier
func (a *Agent[T]) Model() string {
	return a.r.rt.Client.GetModel(a.r.spec.Tier)
}

// Temperature returns the sampling temperature of this agent
func (a *Agent[T]) Temperature() float64 {
	return a.r.spec.Temperature
}

// Invoke renders the template with inputs and returns the decoded, schema-valid record.
// Every placeholder of the template except the output schema must be present in inputs.
func (a *Agent[T]) Invoke(ctx context.Context, inputs map[string]string) (*T, error) {
	extra := map[string]string{FormatInstructionsKey: a.schemaDesc}
	raw, err := a.r.run(ctx, inputs, extra, true, a.check)
	if err != nil {
		return nil, err
	}

	out := new(T)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return nil, &Error{Kind: KindOutputParse, Agent: a.r.spec.Name, Raw: raw, Err: err}
	}
	return out, nil
}

func (a *Agent[T]) check(raw string) error {
	if err := schemas.Validate(a.r.spec.Schema, raw); err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), new(T))
}

// TextAgent returns free text instead of a structured record.
type TextAgent struct {
	r *runner
}

// NewText builds a plain-text agent. spec.Schema is ignored.
func NewText(spec Spec, rt Runtime) (*TextAgent, error) {
	r, err := newRunner(spec, rt)
	if err != nil {
		return nil, err
	}
	return &TextAgent{r: r}, nil
}

// Model returns the model serving this agent's tier
func (a *TextAgent) Model() string {
	return a.r.rt.Client.GetModel(a.r.spec.Tier)
}

// Invoke renders the template and returns the trimmed completion.
// An empty completion is an output parse error.
func (a *TextAgent) Invoke(ctx context.Context, inputs map[string]string) (string, error) {
	out, err := a.r.run(ctx, inputs, nil, false, func(raw string) error {
		if strings.TrimSpace(raw) == "" {
			return errors.New("empty completion")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
