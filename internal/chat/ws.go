package chat

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"safetyagent-backend/internal/shared/telemetry"
)

const wsSourceLimit = 3
const wsExcerptLimit = 100

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin enforcement happens in the CORS middleware for REST; the
	// websocket endpoint accepts any origin like the rest of the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsFrame struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type wsSource struct {
	FileName   string  `json:"file_name"`
	Excerpt    string  `json:"excerpt"`
	Similarity float32 `json:"similarity"`
}

type wsAnswer struct {
	Answer    string     `json:"answer"`
	Sources   []wsSource `json:"sources"`
	Timestamp time.Time  `json:"timestamp"`
}

type wsError struct {
	Error string `json:"error"`
}

// WSHandler serves the chat service over a websocket: one JSON frame
// in, one answer frame out. A frame that is not valid JSON is taken as
// the question text itself; empty frames are skipped; only a read
// error ends the connection.
func (h *Handler) WSHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					telemetry.Warn("ws read failed", map[string]any{"err": err.Error()})
				}
				return
			}

			// Only the read error above ends the connection. A frame
			// that is not valid JSON is treated as a bare question.
			var frame wsFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				frame = wsFrame{Message: strings.TrimSpace(string(data))}
			}
			if frame.Message == "" {
				continue
			}

			answer, err := h.Svc.Ask(c.Request.Context(), frame.Message, frame.SessionID)
			if err != nil {
				if writeErr := conn.WriteJSON(wsError{Error: "failed to answer question"}); writeErr != nil {
					return
				}
				continue
			}

			sources := make([]wsSource, 0, wsSourceLimit)
			for _, src := range answer.Sources {
				if len(sources) == wsSourceLimit {
					break
				}
				sources = append(sources, wsSource{
					FileName:   src.FileName,
					Excerpt:    Truncate(src.Excerpt, wsExcerptLimit),
					Similarity: src.Similarity,
				})
			}

			if err := conn.WriteJSON(wsAnswer{
				Answer:    answer.Answer,
				Sources:   sources,
				Timestamp: answer.Timestamp,
			}); err != nil {
				return
			}
		}
	}
}
