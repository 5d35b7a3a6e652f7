package display

import (
	"context"

	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/metrics"
)

// Loader reports whether the image at uri can be displayed.
type Loader interface {
	Load(ctx context.Context, uri string) error
}

type LoaderFunc func(ctx context.Context, uri string) error

func (f LoaderFunc) Load(ctx context.Context, uri string) error {
	return f(ctx, uri)
}

// Resolver drives a Machine to a final View with one Loader. Loads run one at a time,
// primary first.
type Resolver struct {
	loader   Loader
	observer metrics.Observer
}

func NewResolver(loader Loader, observer metrics.Observer) *Resolver {
	if observer == nil {
		observer = metrics.Nop{}
	}
	return &Resolver{loader: loader, observer: observer}
}

// Resolve never fails: every load error degrades to the next candidate and finally to the
// placeholder.
func (r *Resolver) Resolve(ctx context.Context, props Props) View {
	m := NewMachine(props)
	for {
		a, ok := m.Next()
		if !ok {
			break
		}
		if err := r.loader.Load(ctx, a.URI); err != nil {
			zlog.Logger.Debug().
				Err(err).
				Str("candidate", string(a.Candidate)).
				Str("uri", a.URI).
				Msg("avatar image unavailable")
			m.Failed(a)
			continue
		}
		m.Loaded(a)
	}

	v := m.View()
	r.observer.RecordDisplay(string(v.Kind))
	return v
}
