package router

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// upstream forwards an upgrade request to the websocket server and splices the two connections.
func (api *API) upstream(name, network, addr string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peer, err := net.Dial(network, addr)
		if err != nil {
			api.log.Error("dial upstream error", zap.String("upstream", name), zap.Error(err))
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if err := r.Write(peer); err != nil {
			peer.Close()
			api.log.Error("write request to upstream error", zap.String("upstream", name), zap.Error(err))
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		hj, ok := w.(http.Hijacker)
		if !ok {
			peer.Close()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		conn, brw, err := hj.Hijack()
		if err != nil {
			peer.Close()
			api.log.Error("hijack error", zap.String("upstream", name), zap.Error(err))
			return
		}

		var once sync.Once
		closeBoth := func() {
			once.Do(func() {
				peer.Close()
				conn.Close()
			})
		}
		go splice(peer, clientReader(conn, brw), closeBoth)
		go splice(conn, peer, closeBoth)
	}
}

// clientReader drains bytes the server already buffered before reading from the raw conn.
func clientReader(conn net.Conn, brw *bufio.ReadWriter) io.Reader {
	if brw == nil || brw.Reader.Buffered() == 0 {
		return conn
	}
	buffered, _ := brw.Reader.Peek(brw.Reader.Buffered())
	return io.MultiReader(bytes.NewReader(bytes.Clone(buffered)), conn)
}

func splice(dst io.Writer, src io.Reader, done func()) {
	defer done()
	_, _ = io.Copy(dst, src)
}
