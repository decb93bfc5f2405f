package middleware

import (
	"ovostore/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	localsVisitor  = "visitor"
	localsRecorder = "notifications"
	flashKey       = "flash"
)

// Visitor loads the visitor session and a notification recorder for the request.
// Notifications raised by a request answered with a redirect are kept as flash
// for the next page.
func Visitor(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			zap.S().Errorf("Error loading visitor session: %v", err)
			return fiber.ErrInternalServerError
		}
		ctx, rec := notify.WithRecorder(c.UserContext())
		c.SetUserContext(ctx)
		c.Locals(localsVisitor, sess)
		c.Locals(localsRecorder, rec)

		handlerErr := c.Next()

		status := c.Response().StatusCode()
		if status >= fiber.StatusMultipleChoices && status < fiber.StatusBadRequest {
			if pending := rec.All(); len(pending) > 0 {
				keep := append(readFlash(sess), pending...)
				if body, err := json.Marshal(keep); err == nil {
					sess.Set(flashKey, string(body))
				}
			}
		}
		if err := sess.Save(); err != nil {
			zap.S().Errorf("Error saving visitor session: %v", err)
		}
		return handlerErr
	}
}

// VisitorID identifies the visitor across requests.
func VisitorID(c *fiber.Ctx) string {
	if sess := visitorSession(c); sess != nil {
		return sess.ID()
	}
	return ""
}

// VisitorValue reads key from the visitor session.
func VisitorValue(c *fiber.Ctx, key string) string {
	if sess := visitorSession(c); sess != nil {
		value, _ := sess.Get(key).(string)
		return value
	}
	return ""
}

// SetVisitorValue stores key in the visitor session. An empty value deletes it.
func SetVisitorValue(c *fiber.Ctx, key, value string) {
	sess := visitorSession(c)
	if sess == nil {
		return
	}
	if value == "" {
		sess.Delete(key)
		return
	}
	sess.Set(key, value)
}

// Notifications returns what the current request recorded so far.
func Notifications(c *fiber.Ctx) []notify.Notification {
	if rec, ok := c.Locals(localsRecorder).(*notify.Recorder); ok {
		return rec.All()
	}
	return nil
}

// TakeFlash returns the notifications carried over from earlier requests and clears them.
func TakeFlash(c *fiber.Ctx) []notify.Notification {
	sess := visitorSession(c)
	if sess == nil {
		return nil
	}
	flash := readFlash(sess)
	sess.Delete(flashKey)
	return append(flash, Notifications(c)...)
}

func visitorSession(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(localsVisitor).(*session.Session)
	return sess
}

func readFlash(sess *session.Session) []notify.Notification {
	raw, _ := sess.Get(flashKey).(string)
	if raw == "" {
		return nil
	}
	var flash []notify.Notification
	if err := json.Unmarshal([]byte(raw), &flash); err != nil {
		zap.S().Warnf("Dropping unreadable flash: %v", err)
		return nil
	}
	return flash
}
