package handler

import (
	"net/http"
	"time"

	"marketplace_backend/internal/pipeline/access"
	"marketplace_backend/internal/pipeline/errmap"
	"marketplace_backend/internal/pipeline/transport"
	"marketplace_backend/internal/session"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	defaultHeartbeat = 25 * time.Second
	streamBuffer     = 64
)

// Snapshot returns every record currently held by the caller's surface.
func (h *Handler) Snapshot(c *gin.Context) {
	caller := session.FromContext(c)
	if err := h.policy.Authorize(caller, access.OpList, ""); err != nil {
		httpkit.HandleError(c, errmap.Map(err))
		return
	}

	surface := h.surface(c, caller)
	if err := surface.WaitReady(c.Request.Context()); err != nil {
		httpkit.HandleError(c, apperr.Unavailable("surface not ready", err))
		return
	}

	records := surface.View().Records()
	items := make([]any, 0, len(records))
	for _, rec := range records {
		items = append(items, transport.ToRecordResponse(rec))
	}

	httpkit.OK(c, gin.H{"items": items})
}

// Stream pushes the caller's surface events as server-sent events until the
// client disconnects or the surface stops.
func (h *Handler) Stream(c *gin.Context) {
	caller := session.FromContext(c)
	if err := h.policy.Authorize(caller, access.OpList, ""); err != nil {
		httpkit.HandleError(c, errmap.Map(err))
		return
	}

	surface := h.surface(c, caller)
	events, stop := surface.Listen(streamBuffer)
	defer stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("connected", gin.H{"surfaceId": surface.ID(), "userId": caller.UserID})
	c.Writer.Flush()

	log := h.log.WithContext(c.Request.Context())
	log.Debug("sync stream connected", "surface_id", surface.ID())

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			log.Debug("sync stream disconnected", "surface_id", surface.ID())
			return
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC()})
			c.Writer.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Type), transport.ToSyncEvent(ev))
			c.Writer.Flush()
			surface.Touch()
		}
	}
}
