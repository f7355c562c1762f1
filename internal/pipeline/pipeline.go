// Package pipeline runs the user-initiated actions: generate, analyze,
// authenticate and submit. Each action validates against a store snapshot,
// makes exactly one external call and only then mutates the store.
//
// Begin* and Complete must be called from the goroutine that owns the store.
// Job.Execute may run anywhere; it never touches the store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tekshila/internal/credentials"
	"tekshila/internal/forge"
	"tekshila/internal/generate"
	"tekshila/internal/logging"
	"tekshila/internal/quality"
	"tekshila/internal/state"
)

// Kind identifies an action.
type Kind int

const (
	KindGenerate Kind = iota
	KindAnalyze
	KindAuthenticate
	KindSubmit
)

func (k Kind) String() string {
	switch k {
	case KindGenerate:
		return "generate"
	case KindAnalyze:
		return "analyze"
	case KindAuthenticate:
		return "authenticate"
	case KindSubmit:
		return "submit"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Phase is the lifecycle position of an action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhasePending:
		return "pending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether p ends an action.
func (p Phase) Terminal() bool { return p == PhaseSucceeded || p == PhaseFailed }

// Event is emitted on every phase change.
type Event struct {
	Kind   Kind
	Phase  Phase
	JobID  string
	Err    error  // set for PhaseFailed
	Detail string // success detail: identity label for authenticate, URL for submit
}

// Observer receives pipeline events.
type Observer interface {
	PipelineEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) PipelineEvent(e Event) { f(e) }

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Store       *state.Store
	Generator   generate.Service
	Quality     quality.Service
	Host        forge.Host
	Credentials credentials.Store
	HeadPrefix  string // prefix for created head branches
	Logger      *slog.Logger
}

// Pipeline sequences actions against a store.
type Pipeline struct {
	deps      Deps
	log       *slog.Logger
	pending   map[Kind]string // kind -> job id
	observers []subscription
	nextID    int
}

type subscription struct {
	id  int
	obs Observer
}

// New returns a pipeline over d.
func New(d Deps) *Pipeline {
	if d.Credentials == nil {
		d.Credentials = &credentials.Memory{}
	}
	return &Pipeline{
		deps:    d,
		log:     logging.Component(d.Logger, "pipeline"),
		pending: make(map[Kind]string),
	}
}

// Subscribe registers obs for every event and returns a function that
// unregisters it.
func (p *Pipeline) Subscribe(obs Observer) (unsubscribe func()) {
	p.nextID++
	id := p.nextID
	p.observers = append(p.observers, subscription{id: id, obs: obs})
	return func() {
		for i, sub := range p.observers {
			if sub.id == id {
				p.observers = append(p.observers[:i:i], p.observers[i+1:]...)
				return
			}
		}
	}
}

// Host returns the repository host the pipeline talks to.
func (p *Pipeline) Host() forge.Host { return p.deps.Host }

// Phase reports whether an action of kind k is pending.
func (p *Pipeline) Phase(k Kind) Phase {
	if _, ok := p.pending[k]; ok {
		return PhasePending
	}
	return PhaseIdle
}

// Job is an accepted action waiting for its external call.
type Job struct {
	ID   string
	Kind Kind
	call func(ctx context.Context) (apply func() string, err error)
}

// Outcome is the result of Job.Execute, applied by Pipeline.Complete.
type Outcome struct {
	JobID string
	Kind  Kind
	Err   error
	apply func() string
}

// Execute performs the job's single external call. It does not mutate any
// state and may run on any goroutine. A panicking call becomes a failed
// outcome so Complete still releases the kind.
func (j *Job) Execute(ctx context.Context) (o Outcome) {
	o = Outcome{JobID: j.ID, Kind: j.Kind}
	defer func() {
		if r := recover(); r != nil {
			o.apply = nil
			o.Err = fmt.Errorf("%s: panic: %v", j.Kind, r)
		}
	}()
	o.apply, o.Err = j.call(ctx)
	return o
}

// Complete applies an outcome: on success the job's mutation set is written
// to the store, on failure nothing is. The returned error is the classified
// failure, if any.
func (p *Pipeline) Complete(o Outcome) error {
	if p.pending[o.Kind] != o.JobID {
		p.log.Warn("outcome for unknown job ignored",
			slog.String("kind", o.Kind.String()),
			slog.String("job_id", o.JobID),
		)
		return fmt.Errorf("%s: unknown job %s", o.Kind, o.JobID)
	}
	delete(p.pending, o.Kind)

	if o.Err != nil {
		err := classify(o.Kind, o.Err)
		p.emit(Event{Kind: o.Kind, Phase: PhaseFailed, JobID: o.JobID, Err: err}, PhasePending)
		return err
	}
	detail := ""
	if o.apply != nil {
		detail = o.apply()
	}
	p.emit(Event{Kind: o.Kind, Phase: PhaseSucceeded, JobID: o.JobID, Detail: detail}, PhasePending)
	return nil
}

// begin runs validation and, on success, marks kind pending and returns the job.
func (p *Pipeline) begin(k Kind, validate func() (func(context.Context) (func() string, error), error)) (*Job, error) {
	id := uuid.NewString()
	if _, busy := p.pending[k]; busy {
		p.emit(Event{Kind: k, Phase: PhaseFailed, JobID: id, Err: ErrConcurrentInvocation}, PhaseIdle)
		return nil, ErrConcurrentInvocation
	}

	p.emit(Event{Kind: k, Phase: PhaseValidating, JobID: id}, PhaseIdle)
	call, err := validate()
	if err != nil {
		p.emit(Event{Kind: k, Phase: PhaseFailed, JobID: id, Err: err}, PhaseValidating)
		return nil, err
	}

	p.pending[k] = id
	p.emit(Event{Kind: k, Phase: PhasePending, JobID: id}, PhaseValidating)
	return &Job{ID: id, Kind: k, call: call}, nil
}

func (p *Pipeline) emit(e Event, from Phase) {
	attrs := []any{
		slog.String("kind", e.Kind.String()),
		slog.String("job_id", e.JobID),
		slog.String("from", from.String()),
		slog.String("to", e.Phase.String()),
	}
	if e.Err != nil {
		p.log.Info("phase transition", append(attrs, slog.Any("error", e.Err))...)
	} else {
		p.log.Info("phase transition", attrs...)
	}
	subs := append([]subscription(nil), p.observers...)
	for _, sub := range subs {
		sub.obs.PipelineEvent(e)
	}
}

// run is a blocking Begin, Execute and Complete.
func (p *Pipeline) run(ctx context.Context, job *Job, err error) error {
	if err != nil {
		return err
	}
	return p.Complete(job.Execute(ctx))
}
