package controllers

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

// User is one websocket connection that streams replan requests.
type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id  uint
	hub *Hub
}

func (u *User) readRequest() (*streamReplanRequest, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	req := &streamReplanRequest{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Replan reads one request from the connection, replans the named session and writes the
// result back. Request errors are answered on the socket; only connection errors are returned.
func (u *User) Replan() error {
	req, err := u.readRequest()
	if err != nil {
		u.conn.Close()
		return err
	}

	if req == nil {
		return nil
	}

	if err := validateRequest(req); err != nil {
		return u.write(errorEnvelope(http.StatusBadRequest, err.Error()))
	}

	res, err := replanWith(u.hub.plannerService, req.SessionID, req.replanRequest)
	if err != nil {
		u.hub.log.Debug("stream replan failed", zap.String("session_id", req.SessionID), zap.Error(err))
		return u.write(errorEnvelope(statusFor(err), err.Error()))
	}

	return u.write(envelope{"session_id": req.SessionID, "data": NewPlanResponse(res)})
}

func errorEnvelope(status int, message string) envelope {
	return envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": message,
	}}
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

type Hub struct {
	mu             sync.RWMutex
	seq            uint
	us             []*User
	ns             map[uint]*User
	plannerService PlannerService
	log            *zap.Logger
}

func NewHub(plannerService PlannerService, log *zap.Logger) *Hub {
	return &Hub{
		ns:             make(map[uint]*User),
		us:             make([]*User, 0),
		plannerService: plannerService,
		log:            log,
	}
}

func (h *Hub) Register(conn net.Conn) *User {
	user := &User{
		hub:  h,
		conn: conn,
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)

	h.seq++
	h.mu.Unlock()

	return user
}

func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(user)
}

// remove expects h.mu to be held. us stays sorted by id since ids are handed out in order.
func (h *Hub) remove(user *User) {
	if _, ok := h.ns[user.id]; !ok {
		return
	}
	delete(h.ns, user.id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})

	newUs := make([]*User, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs
}

func (h *Hub) NumberOfUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.us)
}

func (h *Hub) RemoveAllUser() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, user := range append([]*User(nil), h.us...) {
		user.conn.Close()
		h.remove(user)
	}
}
