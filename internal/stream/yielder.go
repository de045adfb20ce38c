package stream

import (
	"context"
	"runtime"
)

// Yielder hands control back to the host between two steps of a load
type Yielder interface {
	Yield(ctx context.Context) error
}

// YielderFunc adapts a function to the Yielder interface
type YielderFunc func(ctx context.Context) error

func (f YielderFunc) Yield(ctx context.Context) error {
	return f(ctx)
}

// GoschedYielder lets other goroutines run and reports cancellation of ctx
type GoschedYielder struct{}

func (GoschedYielder) Yield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}
