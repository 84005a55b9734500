package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/drstein77/cartview/internal/config"
	"github.com/drstein77/cartview/internal/controllers"
	"github.com/drstein77/cartview/internal/logger"
	"github.com/drstein77/cartview/internal/middleware"
	"github.com/drstein77/cartview/internal/render"
	"github.com/drstein77/cartview/internal/source"
	"github.com/drstein77/cartview/internal/storage"
	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

type Server struct {
	srv    *http.Server
	ctx    context.Context
	option *config.Options
	Log    *logger.Logger
	done   chan struct{}
}

// NewServer creates a new Server instance with the provided context
func NewServer(ctx context.Context) *Server {
	// create and initialize a new option instance
	option := config.NewOptions()
	option.ParseFlags()

	// get a new logger
	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		log.Fatalln(err)
	}

	server := &Server{
		ctx:    ctx,
		option: option,
		Log:    nLogger,
		done:   make(chan struct{}),
	}

	handler, err := server.handler()
	if err != nil {
		log.Fatalln(err)
	}

	// configure the server
	server.srv = &http.Server{
		Addr:              option.RunAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return server
}

// Serve blocks until the listener fails or a graceful shutdown completes.
func (server *Server) Serve() {
	server.Log.Info("Cart page server starting",
		zap.String("addr", server.option.RunAddr()),
		zap.String("source", server.option.CartSourceURL()),
	)

	err := server.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		server.Log.Error("Server stopped unexpectedly", zap.Error(err))
		return
	}
	<-server.done
}

func (server *Server) handler() (http.Handler, error) {
	renderer, err := render.NewRenderer(server.option.CurrencySymbol())
	if err != nil {
		return nil, err
	}

	src := source.NewHTTPSource(server.option.CartSourceURL(), server.option.FetchTimeout(), server.Log.Named("source"))

	pages := storage.NewMemoryStorage(server.option.PageTTL(), server.Log.Named("storage"))
	go pages.Run(server.ctx, sweepInterval)

	basecontr := controllers.NewBaseController(pages, src, renderer, server.Log.Named("cart"))

	// create router and mount routes
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(server.Log))
	r.Use(chimw.Recoverer)
	r.Mount("/", basecontr.Route())

	return r, nil
}

// Shutdown stops accepting requests and waits up to timeout for in-flight ones.
func (server *Server) Shutdown(timeout time.Duration) {
	defer close(server.done)
	defer server.Log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.srv.Shutdown(ctx); err != nil {
		server.Log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	server.Log.Info("Server exited")
}
