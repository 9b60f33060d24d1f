package handlers

import (
	"context"
	"errors"
	"messenger/internal/config"
	"messenger/internal/hub"
	"messenger/internal/messenger"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	sugar *zap.SugaredLogger
	svc   messenger.Service
	hub   *hub.Hub
}

// NewRouter serves svc over HTTP. h may be nil, then there is no /ws.
func NewRouter(cfg *config.Config, sugar *zap.SugaredLogger, svc messenger.Service, h *hub.Hub) http.Handler {
	handlers := &Handlers{sugar: sugar, svc: svc, hub: h}

	r := chi.NewRouter()
	if cfg.Cors {
		r.Use(AllowCors)
	}
	if cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		// websockets live longer, they stay outside of the timeout
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/test", Test)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", handlers.GetUsers)
			r.Get("/{userID}", handlers.GetUser)
			r.Post("/create", handlers.CreateUser)
			r.Post("/ban", handlers.BanUser)
		})

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", handlers.GetChannels)
			r.Post("/create", handlers.CreateChannel)
			r.Post("/ban", handlers.BanChannel)

			r.Route("/{channelID}", func(r chi.Router) {
				r.Get("/members", handlers.GetMembers)
				r.Post("/join", handlers.JoinChannel)
				r.Get("/messages", handlers.GetChannelMessages)
				r.Post("/messages/post", handlers.PostMessage)
			})
		})

		r.Get("/messages", handlers.GetMessages)
	})

	if h != nil {
		r.Get("/ws", h.HandleClient)
	}

	return r
}

// Serve listens until ctx is done, then shuts the server down.
func Serve(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger, handler http.Handler) error {
	server := &http.Server{
		Addr:    cfg.Address + ":" + cfg.Port,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infof("Listening on %s", cfg.FullAddress())

		var err error
		if cfg.IsHttps() {
			err = server.ListenAndServeTLS(cfg.TlsCert, cfg.TlsKey)
		} else {
			err = server.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
