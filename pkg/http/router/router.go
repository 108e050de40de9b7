package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/replanx/pkg/concurrent"
	"github.com/lintang-b-s/replanx/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/replanx/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/replanx/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"github.com/rs/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "net/http/pprof"
)

type API struct {
	log    *zap.Logger
	hub    *controllers.Hub
	poller netpoll.Poller
	pool   *concurrent.WorkerPool[int, int]
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

func newCors() *cors.Cors {
	return cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})
}

func (api *API) middlewares(useRateLimit bool) alice.Chain {
	mwChain := []alice.Constructor{newCors().Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("healthz"), Labels, Logger(api.log)}
	if useRateLimit {
		mwChain = append(mwChain, Limit)
	}
	return alice.New(mwChain...)
}

// Handler wires the planner routes, swagger and pprof behind the middleware chain.
func (api *API) Handler(useRateLimit bool, plannerService controllers.PlannerService) http.Handler {
	router := httprouter.New()

	router.GET("/doc/*any", swaggerHandler)
	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	group := router_helper.NewRouteGroup(router, "/api")
	plannerRoutes := controllers.New(plannerService, api.log)
	plannerRoutes.Routes(group)

	return api.middlewares(useRateLimit).Then(router)
}

//	@title			Replanx API
//	@version		1.0
//	@description	Incremental D* Lite replanning sessions over grid maps and OpenStreetMap road graphs.

//	@contact.name	Lintang Birda Saputra
//	@contact.url	_
//	@contact.email	lintang.birda.saputra@mail.ugm.ac.id

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	useRateLimit bool,
	plannerService controllers.PlannerService,
) error {
	api.log.Info("Run httprouter API")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	var (
		errChan      = make(chan error, 1)
		errProxyChan = make(chan error, 1)
	)

	go func() {
		if err := api.handleWebsocket(ctx, config, plannerService); err != nil {
			errChan <- err
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", api.upstream("replan stream", "tcp", "localhost"+":"+strconv.Itoa(config.WebsocketPort)))
	wsProxy := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.ProxyPort),
		Handler: mux,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadTimeout:       viper.GetDuration("HTTP_SERVER_READ_TIMEOUT"),
		IdleTimeout:       viper.GetDuration("HTTP_SERVER_IDLE_TIMEOUT"),
		ReadHeaderTimeout: viper.GetDuration("HTTP_SERVER_READ_HEADER_TIMEOUT"),
	}
	go func() {
		api.log.Info(fmt.Sprintf("WebSocket proxy running on port %d", config.ProxyPort))
		if err := wsProxy.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errProxyChan <- err
		}
	}()

	srv := http_server.New(ctx, api.Handler(useRateLimit, plannerService), config, false)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("SHUTDOWN_TIMEOUT"))
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = wsProxy.Shutdown(shutdownCtx)
	}

	select {
	case err := <-errChan:
		api.log.Error("Websocket error, shutting down server", zap.Error(err))
		shutdown()
		return err
	case err := <-errProxyChan:
		api.log.Error("Websocket proxy error, shutting down server", zap.Error(err))
		shutdown()
		return err
	case err := <-serverErr:
		api.log.Info("HTTP server stopped", zap.Error(err))
		shutdown()
		return err
	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		shutdown()
		return nil
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
