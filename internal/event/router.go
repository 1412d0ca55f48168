package event

import (
	"context"
	"log"
	"time"

	"github.com/augurhq/augur/internal/config"
)

// Handler processes a normalized event.
type Handler func(ctx context.Context, event *Event) error

// Router filters and debounces events before handing them off.
type Router struct {
	cfg       *config.Config
	handler   Handler
	debouncer *Debouncer
}

// NewRouter creates a new event router.
func NewRouter(cfg *config.Config, handler Handler) *Router {
	debounceWindow := time.Duration(cfg.Review.DebounceSeconds) * time.Second
	if debounceWindow == 0 {
		debounceWindow = 10 * time.Second
	}
	return &Router{
		cfg:       cfg,
		handler:   handler,
		debouncer: NewDebouncer(debounceWindow),
	}
}

// Route processes an event through the routing pipeline.
func (r *Router) Route(ctx context.Context, event *Event) error {
	if !r.isEventEnabled(event.Type) {
		log.Printf("Event type disabled: %s", event.Type)
		return nil
	}

	if !r.debouncer.ShouldProcess(event) {
		log.Printf("Event debounced: %s", event.Key())
		return nil
	}

	return r.handler(ctx, event)
}

func (r *Router) isEventEnabled(t Type) bool {
	switch t {
	case TypeChangeOpened:
		return r.cfg.Events.ChangeOpened
	case TypeChangeUpdated:
		return r.cfg.Events.ChangeUpdated
	default:
		return false
	}
}
