package pkg

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/transport/ws"
)

// RunServer serves the clouds below opts.Input until ctx is done
func RunServer(ctx context.Context, opts *loader.LoaderOptions) error {
	if opts.ServeOptions == nil {
		return errors.New("missing serve options")
	}
	srv := &http.Server{
		Addr:              opts.ServeOptions.Address,
		Handler:           ws.NewServer(opts.Input, opts).Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	glog.Infof("serving clouds of %s on %s", opts.Input, opts.ServeOptions.Address)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "cannot serve")
	}
	return nil
}
