package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pedrohsmesquita/Lectria/internal/http/response"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{Log: log.With("handler", "RealtimeHandler"), Hub: hub}
}

// GET /api/sse/stream?channel=<book_id>
//
// channel may repeat; each value subscribes the stream to one book or job.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	var channels []string
	for _, raw := range c.QueryArray("channel") {
		for _, ch := range strings.Split(raw, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				channels = append(channels, ch)
			}
		}
	}
	if len(channels) == 0 {
		response.RespondErr(c, "invalid_channel", fmt.Errorf("%w: channel is required", apperrors.ErrInvalidArgument))
		return
	}

	client := h.Hub.NewSSEClient()
	for _, ch := range channels {
		h.Hub.AddChannel(client, ch)
	}
	h.Log.Info("SSEStream open", "client_id", client.ID, "channels", channels)

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	h.Log.Debug("SSEStream closed", "client_id", client.ID)
}
