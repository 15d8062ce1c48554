// Package listener implements the Listener Adapter (spec.md §4.9): HTTP and
// gRPC event sources that `Listen` tasks bind to, matched against
// one/any/all strategies. Adapted from the teacher's
// internal/server/webhook_server.go — one long-lived HTTP server accepting
// inbound events and routing them to whichever workflow instance is
// waiting, generalized from "one /webhook route per git host" to "one route
// per registered binding", and from a bare http.ServeMux to
// github.com/go-chi/chi/v5 for path-parameterized routes.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/google/uuid"

	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/pkg/logging"
)

// Delivery is one inbound event matched to a binding.
type Delivery struct {
	Source    model.EventSourceSpec
	Body      []byte
	Headers   http.Header
	ReceivedAt time.Time
}

// Binding is a live registration for one `Listen` task's event sources,
// created by the Scheduler when it reaches a Listen step and torn down when
// the step completes or is cancelled.
type Binding struct {
	ID       string
	Sources  []model.EventSourceSpec
	Strategy model.ListenStrategy

	mu        sync.Mutex
	received  []Delivery
	done      chan struct{}
	closeOnce sync.Once
}

func newBinding(sources []model.EventSourceSpec, strategy model.ListenStrategy) *Binding {
	return &Binding{
		ID:       uuid.NewString(),
		Sources:  sources,
		Strategy: strategy,
		done:     make(chan struct{}),
	}
}

// Deliver hands one matched event to the binding, completing it if the
// strategy is satisfied.
func (b *Binding) deliver(d Delivery) {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		return
	default:
	}
	b.received = append(b.received, d)

	satisfied := false
	switch b.Strategy {
	case model.ListenOne:
		satisfied = len(b.received) >= 1
	case model.ListenAny:
		satisfied = len(b.received) >= 1
	case model.ListenAll:
		satisfied = true
		for _, s := range b.Sources {
			seen := false
			for _, r := range b.received {
				if r.Source.HTTP == s.HTTP && r.Source.GRPC == s.GRPC {
					seen = true
					break
				}
			}
			if !seen {
				satisfied = false
				break
			}
		}
	}
	if satisfied {
		b.closeOnce.Do(func() { close(b.done) })
	}
}

// Wait blocks until the binding is satisfied, cancelled, or ctx is done, and
// returns the deliveries received so far.
func (b *Binding) Wait(ctx context.Context) ([]Delivery, error) {
	select {
	case <-b.done:
		b.mu.Lock()
		defer b.mu.Unlock()
		return append([]Delivery(nil), b.received...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Adapter is the shared HTTP/gRPC ingress point for every `Listen` task
// across every running instance; the Scheduler registers one Binding per
// Listen step and routes inbound events to it.
type Adapter struct {
	logger logging.Logger
	router chi.Router
	server *http.Server

	mu       sync.RWMutex
	bindings map[string]*Binding   // binding id -> binding
	byPath   map[string][]*Binding // http path -> bindings currently listening on it

	loader *openapi3.Loader
}

func New(logger logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Nop()
	}
	a := &Adapter{
		logger:   logger,
		router:   chi.NewRouter(),
		bindings: make(map[string]*Binding),
		byPath:   make(map[string][]*Binding),
		loader:   openapi3.NewLoader(),
	}
	a.router.Get("/health", a.handleHealth)
	a.router.HandleFunc("/events/*", a.handleEvent)
	return a
}

// Listen starts the shared HTTP ingress server on addr; it runs for the
// lifetime of the process, not per instance.
func (a *Adapter) Listen(addr string) error {
	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	a.logger.Info("listener adapter starting").Str("addr", addr).Send()
	return a.server.ListenAndServe()
}

func (a *Adapter) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Bind registers a new Listen step's event sources and returns the Binding
// the caller waits on. HTTP sources are routed by their declared path under
// /events/; gRPC sources are matched by service+method when delivered
// through DeliverGRPC.
func (a *Adapter) Bind(sources []model.EventSourceSpec, strategy model.ListenStrategy) *Binding {
	b := newBinding(sources, strategy)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bindings[b.ID] = b
	for _, s := range sources {
		if s.HTTP != nil {
			a.byPath[s.HTTP.Path] = append(a.byPath[s.HTTP.Path], b)
		}
	}
	return b
}

// Unbind removes a binding once the Listen step has completed or the
// instance that owned it has terminated.
func (a *Adapter) Unbind(b *Binding) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bindings, b.ID)
	for path, list := range a.byPath {
		filtered := list[:0]
		for _, candidate := range list {
			if candidate.ID != b.ID {
				filtered = append(filtered, candidate)
			}
		}
		a.byPath[path] = filtered
	}
}

func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (a *Adapter) handleEvent(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	a.mu.RLock()
	targets := append([]*Binding(nil), a.byPath[path]...)
	a.mu.RUnlock()

	if len(targets) == 0 {
		http.Error(w, fmt.Sprintf("no listener bound to %s", path), http.StatusNotFound)
		return
	}

	for _, b := range targets {
		source := sourceFor(b, path)
		if source.HTTP != nil && source.HTTP.Schema != "" {
			if err := a.validateAgainstSchema(r, body, source.HTTP.Schema); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		b.deliver(Delivery{Source: source, Body: body, Headers: r.Header.Clone(), ReceivedAt: time.Now()})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

func sourceFor(b *Binding, path string) model.EventSourceSpec {
	for _, s := range b.Sources {
		if s.HTTP != nil && s.HTTP.Path == path {
			return s
		}
	}
	return model.EventSourceSpec{}
}

func (a *Adapter) validateAgainstSchema(r *http.Request, body []byte, documentPath string) error {
	doc, err := a.loader.LoadFromFile(documentPath)
	if err != nil {
		return fmt.Errorf("listener: load schema %s: %w", documentPath, err)
	}
	if err := doc.Validate(r.Context()); err != nil {
		return fmt.Errorf("listener: invalid schema document %s: %w", documentPath, err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return fmt.Errorf("listener: build schema router: %w", err)
	}
	clone := r.Clone(r.Context())
	route, pathParams, err := router.FindRoute(clone)
	if err != nil {
		return fmt.Errorf("listener: %s does not match schema %s: %w", r.URL.Path, documentPath, err)
	}
	return openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request:    clone,
		PathParams: pathParams,
		Route:      route,
	})
}

// DeliverGRPC hands an inbound gRPC event to every binding listening for the
// given service/method pair; used by the gRPC server's generic handler.
func (a *Adapter) DeliverGRPC(service, method string, body []byte) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	matched := 0
	for _, b := range a.bindings {
		for _, s := range b.Sources {
			if s.GRPC != nil && s.GRPC.Service == service && s.GRPC.Method == method {
				b.deliver(Delivery{Source: s, Body: body, ReceivedAt: time.Now()})
				matched++
			}
		}
	}
	return matched
}
