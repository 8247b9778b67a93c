package testharness

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/recera/tmcanvas/internal/localstore"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Call is one recorded collaborator call.
type Call struct {
	Method string
	ID     topicmap.ID
	Point  topicmap.Point
}

// Persistence is a localstore.Store that records calls and can be told to
// fail the next call of a method.
type Persistence struct {
	*localstore.Store

	mu    sync.Mutex
	calls []Call
	fail  map[string]error
}

// NewPersistence creates an empty scripted persistence.
func NewPersistence() *Persistence {
	return &Persistence{
		Store: localstore.New(slog.New(slog.NewTextHandler(io.Discard, nil))),
		fail:  make(map[string]error),
	}
}

// FailNext makes the next call of method return err.
func (p *Persistence) FailNext(method string, err error) {
	p.mu.Lock()
	p.fail[method] = err
	p.mu.Unlock()
}

// Calls returns all recorded calls.
func (p *Persistence) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallsTo returns the recorded calls of one method.
func (p *Persistence) CallsTo(method string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (p *Persistence) record(c Call) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
	if err, ok := p.fail[c.Method]; ok {
		delete(p.fail, c.Method)
		return err
	}
	return nil
}

func (p *Persistence) CreateTopic(ctx context.Context, typeURI, label string) (topicmap.Topic, error) {
	if err := p.record(Call{Method: "CreateTopic"}); err != nil {
		return topicmap.Topic{}, err
	}
	return p.Store.CreateTopic(ctx, typeURI, label)
}

func (p *Persistence) CreateAssociation(ctx context.Context, typeURI string, role1, role2 topicmap.ID) (topicmap.Association, error) {
	if err := p.record(Call{Method: "CreateAssociation", ID: role1}); err != nil {
		return topicmap.Association{}, err
	}
	return p.Store.CreateAssociation(ctx, typeURI, role1, role2)
}

func (p *Persistence) UpdateTopic(ctx context.Context, t topicmap.Topic) ([]topicmap.Directive, error) {
	if err := p.record(Call{Method: "UpdateTopic", ID: t.ID}); err != nil {
		return nil, err
	}
	return p.Store.UpdateTopic(ctx, t)
}

func (p *Persistence) DeleteTopic(ctx context.Context, id topicmap.ID) ([]topicmap.Directive, error) {
	if err := p.record(Call{Method: "DeleteTopic", ID: id}); err != nil {
		return nil, err
	}
	return p.Store.DeleteTopic(ctx, id)
}

func (p *Persistence) UpdateAssociation(ctx context.Context, a topicmap.Association) ([]topicmap.Directive, error) {
	if err := p.record(Call{Method: "UpdateAssociation", ID: a.ID}); err != nil {
		return nil, err
	}
	return p.Store.UpdateAssociation(ctx, a)
}

func (p *Persistence) DeleteAssociation(ctx context.Context, id topicmap.ID) ([]topicmap.Directive, error) {
	if err := p.record(Call{Method: "DeleteAssociation", ID: id}); err != nil {
		return nil, err
	}
	return p.Store.DeleteAssociation(ctx, id)
}

func (p *Persistence) FetchTopic(ctx context.Context, id topicmap.ID) (topicmap.Topic, error) {
	if err := p.record(Call{Method: "FetchTopic", ID: id}); err != nil {
		return topicmap.Topic{}, err
	}
	return p.Store.FetchTopic(ctx, id)
}

func (p *Persistence) FetchAssociation(ctx context.Context, id topicmap.ID) (topicmap.Association, error) {
	if err := p.record(Call{Method: "FetchAssociation", ID: id}); err != nil {
		return topicmap.Association{}, err
	}
	return p.Store.FetchAssociation(ctx, id)
}

func (p *Persistence) MoveTopic(ctx context.Context, topicmapID, topicID topicmap.ID, pt topicmap.Point) error {
	if err := p.record(Call{Method: "MoveTopic", ID: topicID, Point: pt}); err != nil {
		return err
	}
	return p.Store.MoveTopic(ctx, topicmapID, topicID, pt)
}

func (p *Persistence) SetTranslation(ctx context.Context, topicmapID topicmap.ID, t topicmap.Point) error {
	if err := p.record(Call{Method: "SetTranslation", ID: topicmapID, Point: t}); err != nil {
		return err
	}
	return p.Store.SetTranslation(ctx, topicmapID, t)
}

// ManualExecutor queues collaborator tasks until Flush, so tests can
// observe the state between an optimistic change and the server answer.
type ManualExecutor struct {
	mu    sync.Mutex
	tasks []func() func()
}

// Go queues task.
func (e *ManualExecutor) Go(task func() func()) {
	e.mu.Lock()
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()
}

// Pending returns the number of queued tasks.
func (e *ManualExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Flush runs queued tasks and their continuations in order, including
// tasks queued while flushing.
func (e *ManualExecutor) Flush() {
	for {
		e.mu.Lock()
		if len(e.tasks) == 0 {
			e.mu.Unlock()
			return
		}
		task := e.tasks[0]
		e.tasks = e.tasks[1:]
		e.mu.Unlock()

		if cont := task(); cont != nil {
			cont()
		}
	}
}
