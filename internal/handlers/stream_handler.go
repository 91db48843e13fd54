package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
	"github.com/anonto42/chirp/backend/pkg/logger"
)

// HeartbeatInterval is how often an idle stream writes a comment line to
// keep proxies from closing it.
var HeartbeatInterval = 25 * time.Second

// StreamHandler exposes live reads as Server-Sent Events. Every event is a
// full snapshot of the result set, sent as JSON in a "snapshot" event.
type StreamHandler struct {
	timeline      *services.TimelineService
	identity      *services.IdentityService
	notifications *services.NotificationService
	moderation    *services.ModerationService
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(timeline *services.TimelineService, identitySvc *services.IdentityService, notifications *services.NotificationService, moderation *services.ModerationService) *StreamHandler {
	return &StreamHandler{timeline: timeline, identity: identitySvc, notifications: notifications, moderation: moderation}
}

// RegisterStreamRoutes registers the event stream routes
func (h *StreamHandler) RegisterStreamRoutes(g *echo.Group) {
	g.GET("/stream/feed", h.StreamFeed)
	g.GET("/stream/users/:id/posts", h.StreamAuthorFeed)
	g.GET("/stream/posts/:id/replies", h.StreamReplies)
	g.GET("/stream/notifications", h.StreamNotifications)
	g.GET("/stream/profile", h.StreamProfile)
	g.GET("/stream/admin/reports", h.StreamPendingReports)
}

// subscribeFunc starts a subscription whose callbacks hand snapshots to push.
type subscribeFunc func(ctx context.Context, push func(v interface{})) (*docstore.Subscription, error)

// StreamFeed streams the caller's root feed. The followed accounts are read
// once, so a follow made later shows up after the client reconnects.
func (h *StreamHandler) StreamFeed(c echo.Context) error {
	uid := middleware.UID(c)
	acct, err := h.identity.Get(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	if acct == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Account not found")
	}
	return h.serve(c, func(ctx context.Context, push func(v interface{})) (*docstore.Subscription, error) {
		return h.timeline.WatchRootFeed(ctx, acct.FollowingIDs, uid, 0, func(posts []*models.Post) {
			push(enrich(posts, uid))
		})
	})
}

func (h *StreamHandler) StreamAuthorFeed(c echo.Context) error {
	return h.serve(c, func(ctx context.Context, push func(v interface{})) (*docstore.Subscription, error) {
		return h.timeline.WatchAuthorFeed(ctx, c.Param("id"), func(posts []*models.Post) { push(posts) })
	})
}

func (h *StreamHandler) StreamReplies(c echo.Context) error {
	return h.serve(c, func(ctx context.Context, push func(v interface{})) (*docstore.Subscription, error) {
		return h.timeline.WatchReplies(ctx, c.Param("id"), func(posts []*models.Post) { push(posts) })
	})
}

func (h *StreamHandler) StreamNotifications(c echo.Context) error {
	uid := middleware.UID(c)
	return h.serve(c, func(ctx context.Context, push func(v interface{})) (*docstore.Subscription, error) {
		return h.notifications.Watch(ctx, uid, func(ns []*models.Notification) { push(ns) })
	})
}

// StreamProfile streams the caller's own account, including counters and
// the blocked flag.
func (h *StreamHandler) StreamProfile(c echo.Context) error {
	uid := middleware.UID(c)
	return h.serve(c, func(ctx context.Context, push func(v interface{})) (*docstore.Subscription, error) {
		return h.identity.WatchAccount(ctx, uid, func(a *models.Account) { push(a) })
	})
}

func (h *StreamHandler) StreamPendingReports(c echo.Context) error {
	uid := middleware.UID(c)
	return h.serve(c, func(ctx context.Context, push func(v interface{})) (*docstore.Subscription, error) {
		return h.moderation.WatchPendingReports(ctx, uid, func(rs []*models.Report) { push(rs) })
	})
}

// serve runs one subscription for the lifetime of the request. Backends
// deliver serially, so push has a single producer and never blocks: an
// unsent snapshot is replaced by the newer one.
func (h *StreamHandler) serve(c echo.Context, subscribe subscribeFunc) error {
	ctx := c.Request().Context()
	events := make(chan []byte, 1)
	push := func(v interface{}) {
		b, err := json.Marshal(v)
		if err != nil {
			logger.L().Warn("encode stream snapshot", zap.Error(err))
			return
		}
		select {
		case <-events:
		default:
		}
		events <- b
	}

	sub, err := subscribe(ctx, push)
	if err != nil {
		return respondError(c, err)
	}
	defer sub.Cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			if err := sub.Err(); err != nil {
				logger.L().Warn("stream ended", zap.String("path", c.Path()), zap.Error(err))
				fmt.Fprint(res, "event: error\ndata: {\"code\":\"stream_failed\"}\n\n")
				res.Flush()
			}
			return nil
		case b := <-events:
			if _, err := fmt.Fprintf(res, "event: snapshot\ndata: %s\n\n", b); err != nil {
				return nil
			}
			res.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
