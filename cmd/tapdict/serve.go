package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/japaniel/tapdict/internal/api"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "serve the lookup API over HTTP",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "port",
			Usage: "listen on `PORT` (overrides config)",
		},
	},
	Action: func(c *cli.Context) error {
		e, cfg, err := openEngine(c, true)
		if err != nil {
			return err
		}
		defer e.Close()

		port := cfg.Server.Port
		if p := c.Int("port"); p > 0 {
			port = p
		}
		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, port),
			Handler: api.NewRouter(e),
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", srv.Addr).Strs("dictionaries", e.Enabled()).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-c.Context.Done():
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(ctx)
	},
}
