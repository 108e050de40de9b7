package router

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gobwas/ws"
	"github.com/lintang-b-s/replanx/pkg/concurrent"
	"github.com/lintang-b-s/replanx/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/replanx/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// handleWebsocket serves replan streams until ctx is done. Connections are accepted and served
// on the worker pool; netpoll wakes a worker only when a connection has data to read.
func (api *API) handleWebsocket(ctx context.Context, config http_server.Config,
	plannerService controllers.PlannerService,
) error {
	viper.SetDefault("WEBSOCKET_WORKERS", 15)
	viper.SetDefault("WEBSOCKET_QUEUE_SIZE", 10)
	viper.SetDefault("WEBSOCKET_SPAWN", 10)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", config.WebsocketPort))
	if err != nil {
		return err
	}
	api.log.Info(fmt.Sprintf("replan websocket API run on port %d", config.WebsocketPort))

	acceptDesc, err := netpoll.HandleListener(ln, netpoll.EventRead|netpoll.EventOneShot)
	if err != nil {
		ln.Close()
		return err
	}

	api.poller, err = netpoll.New(nil)
	if err != nil {
		ln.Close()
		return err
	}

	api.pool = concurrent.NewWorkerPool[int, int](viper.GetInt("WEBSOCKET_WORKERS"), viper.GetInt("WEBSOCKET_QUEUE_SIZE"))
	api.hub = controllers.NewHub(plannerService, api.log)
	api.pool.Spawn(viper.GetInt("WEBSOCKET_SPAWN"))

	// accept carries the result of the next Accept() call.
	accept := make(chan error, 1)

	err = api.poller.Start(acceptDesc, func(ev netpoll.Event) {
		defer api.poller.Resume(acceptDesc)
		err := api.pool.ScheduleTimeout(time.Millisecond, func() {
			conn, err := ln.Accept()
			if err != nil {
				accept <- err
				return
			}

			accept <- nil
			api.handle(conn)
		})
		if err == nil {
			err = <-accept
		}
		if err != nil {
			// pool saturated or a temporary accept error: cool down before the next accept.
			var ne net.Error
			if errors.Is(err, concurrent.ErrScheduleTimeout) || (errors.As(err, &ne) && ne.Timeout()) {
				delay := 5 * time.Millisecond
				api.log.Sugar().Infof("accept error: %v; retrying in %s", err, delay)
				time.Sleep(delay)
				return
			}
			if errors.Is(err, net.ErrClosed) || errors.Is(err, concurrent.ErrPoolClosed) {
				return
			}
			api.log.Error("accept error", zap.Error(err))
		}
	})
	if err != nil {
		ln.Close()
		api.pool.Close()
		return err
	}

	<-ctx.Done()

	api.poller.Stop(acceptDesc)
	ln.Close()
	api.hub.RemoveAllUser()
	api.pool.Close()

	api.log.Info("websocket server stopped")
	return nil
}

// handle upgrades conn and registers it with the poller. Each readable event schedules one
// replan on the pool; errors drop the connection from the hub.
func (api *API) handle(conn net.Conn) {
	br := bufio.NewReader(conn)

	rw := struct {
		io.Reader
		io.Writer
	}{br, conn}

	hs, err := ws.Upgrade(rw)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("connection", nameConn(conn)))
		conn.Close()
		return
	}

	api.log.Info("established websocket connection", zap.String("connection", nameConn(conn)),
		zap.String("protocol", hs.Protocol))

	user := api.hub.Register(conn)

	desc, err := netpoll.HandleRead(conn)
	if err != nil {
		api.log.Error("netpoll handle read", zap.Error(err))
		api.hub.Remove(user)
		conn.Close()
		return
	}

	api.poller.Start(desc, func(ev netpoll.Event) {
		if ev&(netpoll.EventReadHup|netpoll.EventHup) != 0 {
			api.log.Info("user disconnected from websocket server", zap.String("connection", nameConn(conn)))
			api.poller.Stop(desc)
			api.hub.Remove(user)
			return
		}

		api.pool.Schedule(func() {
			if err := user.Replan(); err != nil {
				api.log.Info("closing replan stream", zap.Error(err))
				api.poller.Stop(desc)
				api.hub.Remove(user)
			}
		})
	})
}

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}
