package httpgin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
	"github.com/studioline/showtix/internal/service/query"
)

const sseKeepAlive = 15 * time.Second

// @Summary  Stream seat changes of a show
// @Description  Server-sent events. Each "seats" event means the seat map changed and should be refetched.
// @Tags     shows
// @Produce  text/event-stream
// @Param    id  path  int  true  "Show ID"
// @Success  200
// @Failure  404  {object}  ErrorResponse
// @Router   /shows/{id}/events [get]
func handleShowEvents(q QueryService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		if _, err := q.GetShow(c.Request.Context(), showID); err != nil {
			respondErr(c, err)
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		changes := make(chan redisrepo.ShowChange, 16)
		go func() {
			defer cancel()
			err := q.WatchShow(ctx, showID, func(ch redisrepo.ShowChange) {
				select {
				case changes <- ch:
				default:
					// the client only needs to know something changed
				}
			})
			if err != nil && !errors.Is(err, query.ErrShowNotFound) {
				logger.Warn("show watch ended", slog.Int64("show_id", showID), slog.Any("err", err))
			}
		}()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		c.Status(http.StatusOK)
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case ch := <-changes:
				c.SSEvent("seats", ch)
				return true
			case <-ticker.C:
				c.SSEvent("ping", time.Now().Unix())
				return true
			}
		})
	}
}
