package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// requestTimeout bounds one client exchange.
const requestTimeout = 2 * time.Second

// Handler answers one control command.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers clients on listener until ctx ends or the listener closes.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		reply(conn, Response{Error: fmt.Sprintf("read request: %v", err)})
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		reply(conn, Response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		reply(conn, Response{Error: "empty command"})
		return
	}

	reply(conn, handler.Handle(ctx, req))
}

func reply(conn net.Conn, resp Response) {
	_ = json.NewEncoder(conn).Encode(resp)
}
