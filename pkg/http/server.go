package http

import (
	"context"

	http_router "github.com/lintang-b-s/replanx/pkg/http/router"
	"github.com/lintang-b-s/replanx/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/replanx/pkg/http/server"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
	g   *errgroup.Group
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use starts the api, the websocket server and its proxy in the background. Wait blocks until
// they stop, which happens when ctx is canceled or one of them fails.
func (s *Server) Use(
	ctx context.Context,
	useRateLimit bool,
	plannerService controllers.PlannerService,
) *Server {
	viper.SetDefault("API_PORT", 6060)
	viper.SetDefault("WEBSOCKET_PORT", 6666)
	viper.SetDefault("PROXY_PORT", 6767)
	viper.SetDefault("API_TIMEOUT", "30s")

	config := http_server.Config{
		Port:          viper.GetInt("API_PORT"),
		WebsocketPort: viper.GetInt("WEBSOCKET_PORT"),
		Timeout:       viper.GetDuration("API_TIMEOUT"),
		ProxyPort:     viper.GetInt("PROXY_PORT"),
	}

	server := http_router.NewAPI(s.Log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, config, useRateLimit, plannerService)
	})
	s.g = g

	return s
}

func (s *Server) Wait() error {
	if s.g == nil {
		return nil
	}
	return s.g.Wait()
}
