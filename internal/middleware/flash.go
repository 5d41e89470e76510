package middleware

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

const (
	flashCookieName = "warbler_flash"
	flashLocalsKey  = "flashes"
	flashReadKey    = "flashesRead"
)

// Flash categories map onto Bootstrap alert classes in the templates.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Flash queues a message. It survives a redirect through a cookie and is shown
// by the next page that calls Flashes.
func Flash(c *fiber.Ctx, category, message string) {
	pending := pendingFlashes(c)
	pending = append(pending, FlashMessage{Category: category, Message: message})
	c.Locals(flashLocalsKey, pending)

	payload, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Flashes returns and consumes every queued message.
func Flashes(c *fiber.Ctx) []FlashMessage {
	pending := pendingFlashes(c)
	c.Locals(flashLocalsKey, []FlashMessage(nil))
	if c.Cookies(flashCookieName) != "" || len(pending) > 0 {
		expireCookie(c, flashCookieName)
	}
	return pending
}

// pendingFlashes merges messages carried in from the previous response with the
// ones queued during this request. The request cookie is read only once.
func pendingFlashes(c *fiber.Ctx) []FlashMessage {
	pending, _ := c.Locals(flashLocalsKey).([]FlashMessage)
	if read, _ := c.Locals(flashReadKey).(bool); read {
		return pending
	}
	c.Locals(flashReadKey, true)

	raw := c.Cookies(flashCookieName)
	if raw == "" {
		return pending
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return pending
	}
	var carried []FlashMessage
	if err := json.Unmarshal(decoded, &carried); err != nil {
		return pending
	}
	return append(carried, pending...)
}
