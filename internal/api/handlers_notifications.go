package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/bell"
	"github.com/valyala/fasthttp"
)

const streamHeartbeat = 25 * time.Second

func (handler *Handler) userBell(c *fiber.Ctx) (*bell.Bell, error) {
	return handler.bells.Get(c.UserContext(), currentUserID(c))
}

func (handler *Handler) ListNotifications(c *fiber.Ctx) error {
	userBell, err := handler.userBell(c)
	if err != nil {
		log.Printf("api: open bell failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load notifications")
	}
	return c.JSON(bellPayload(userBell))
}

func (handler *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid notification id")
	}
	userBell, err := handler.userBell(c)
	if err != nil {
		log.Printf("api: open bell failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load notifications")
	}

	userBell.MarkAsRead(id)
	return c.JSON(fiber.Map{"ok": true, "unread": userBell.UnreadCount(), "badge": userBell.Badge()})
}

func (handler *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userBell, err := handler.userBell(c)
	if err != nil {
		log.Printf("api: open bell failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load notifications")
	}

	userBell.MarkAllRead()
	return c.JSON(fiber.Map{"ok": true, "unread": 0, "badge": userBell.Badge()})
}

// StreamNotifications forwards pushed items as server-sent events until the
// client goes away or the bell closes.
func (handler *Handler) StreamNotifications(c *fiber.Ctx) error {
	userBell, err := handler.userBell(c)
	if err != nil {
		log.Printf("api: open bell failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load notifications")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	events, stop := userBell.Listen()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(writer *bufio.Writer) {
		defer stop()
		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		if err := writeSSEComment(writer, "connected"); err != nil {
			return
		}
		for {
			select {
			case item, ok := <-events:
				if !ok {
					return
				}
				if err := writeSSEItem(writer, item); err != nil {
					return
				}
			case <-heartbeat.C:
				if err := writeSSEComment(writer, "ping"); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeSSEItem(writer *bufio.Writer, item bell.Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "event: notification\nid: %s\ndata: %s\n\n", item.ID, payload); err != nil {
		return err
	}
	return writer.Flush()
}

func writeSSEComment(writer *bufio.Writer, comment string) error {
	if _, err := io.WriteString(writer, ": "+comment+"\n\n"); err != nil {
		return err
	}
	return writer.Flush()
}

func bellPayload(userBell *bell.Bell) fiber.Map {
	return fiber.Map{
		"notifications": userBell.Items(),
		"unread":        userBell.UnreadCount(),
		"badge":         userBell.Badge(),
		"permission":    userBell.Permission(),
	}
}
