// Package realtime serves live game connections over websockets. Each
// connection receives a snapshot on open, then every event published for
// its session, and may submit moves and resignations.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mcoot/chessgame-go/internal/api/apierr"
	"github.com/mcoot/chessgame-go/internal/broadcast"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/services/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Largest inbound message accepted
	readLimit = 4096
)

// errDutyEnded stops the sibling duty once either side of a connection finishes
var errDutyEnded = errors.New("connection duty ended")

// Config holds options for accepting connections
type Config struct {
	// OriginPatterns lists the cross-origin hosts allowed to connect.
	// A single "*" accepts any origin.
	OriginPatterns []string
}

// Handler upgrades requests on /ws/games/{id} to live game connections
type Handler struct {
	controller *session.Controller
	registry   *broadcast.Registry
	config     Config
	logger     *slog.Logger

	// done is cancelled by Close to end every open connection
	done     context.Context
	shutdown context.CancelFunc
}

// NewHandler creates a new Handler
func NewHandler(controller *session.Controller, registry *broadcast.Registry, config Config, logger *slog.Logger) *Handler {
	done, shutdown := context.WithCancel(context.Background())
	return &Handler{
		controller: controller,
		registry:   registry,
		config:     config,
		logger:     logger.With(slog.String("component", "realtime")),
		done:       done,
		shutdown:   shutdown,
	}
}

// Close ends all open connections with a going-away status. Hijacked
// connections are not tracked by http.Server, so the server calls this
// when it shuts down.
func (h *Handler) Close() {
	h.shutdown()
}

func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, p := range h.config.OriginPatterns {
		if p == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
	}
	opts.OriginPatterns = h.config.OriginPatterns
	return opts
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := model.SessionID(mux.Vars(r)["id"])

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("game_id", string(id)),
			slog.String("error", err.Error()),
		)
		return
	}
	conn.SetReadLimit(readLimit)

	ctx := r.Context()
	logger := h.logger.With(slog.String("game_id", string(id)))

	// Subscribe before loading the snapshot. Anything published while the
	// snapshot is read is then queued behind it rather than lost.
	sub := h.registry.GetOrCreate(id).Subscribe()
	defer sub.Close()

	snapshot, err := h.controller.Snapshot(ctx, id)
	if err != nil {
		if apierr.IsInternal(err) {
			logger.Error("failed to load session for connection", slog.String("error", err.Error()))
		}
		sub.Close()
		if errors.Is(err, model.ErrSessionNotFound) {
			h.registry.Discard(id)
		}
		_ = conn.Close(websocket.StatusPolicyViolation, apierr.Message(err))
		return
	}

	if err := write(ctx, conn, snapshot); err != nil {
		logger.Debug("failed to send snapshot", slog.String("error", err.Error()))
		_ = conn.Close(websocket.StatusInternalError, "")
		return
	}

	logger.Info("connection opened")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.forward(gctx, conn, sub)
	})
	g.Go(func() error {
		return h.receive(gctx, conn, id, logger)
	})
	err = g.Wait()

	if err != nil && !errors.Is(err, errDutyEnded) {
		logger.Debug("connection ended with error", slog.String("error", err.Error()))
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
	logger.Info("connection closed")
}

// forward writes every published event to the peer until the stream fails
func (h *Handler) forward(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscription) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				return errDutyEnded
			}
			if err := write(ctx, conn, evt); err != nil {
				return err
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}

		case <-h.done.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return errDutyEnded

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// receive decodes commands from the peer until it disconnects.
// Failed commands are reported to the session's viewers, not by closing.
func (h *Handler) receive(ctx context.Context, conn *websocket.Conn, id model.SessionID, logger *slog.Logger) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				return errDutyEnded
			}
			return err
		}

		cmd, err := model.DecodeCommand(data)
		if err != nil {
			logger.Warn("ignoring invalid message", slog.String("error", err.Error()))
			continue
		}

		if err := h.dispatch(ctx, id, cmd); err != nil {
			if apierr.IsInternal(err) {
				logger.Error("command failed",
					slog.String("command", string(cmd.Type)),
					slog.String("error", err.Error()),
				)
			}
			h.registry.Publish(id, model.ErrorEvent{Message: apierr.Message(err)})
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, id model.SessionID, cmd model.Command) error {
	switch cmd.Type {
	case model.CommandMakeMove:
		_, err := h.controller.AdmitMove(ctx, id, cmd.Move, cmd.Secret)
		return err
	case model.CommandResign:
		_, err := h.controller.AdmitResignation(ctx, id, cmd.Secret)
		return err
	default:
		return model.ErrUnknownCommand
	}
}

func write(ctx context.Context, conn *websocket.Conn, evt model.Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return wsjson.Write(writeCtx, conn, evt)
}
