package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashRoundTrip(t *testing.T) {
	app := fiber.New()
	app.Post("/act", func(c *fiber.Ctx) error {
		Flash(c, FlashSuccess, "Saved.")
		Flash(c, FlashWarning, "Careful.")
		return c.Redirect("/show")
	})
	app.Get("/show", func(c *fiber.Ctx) error {
		return c.JSON(Flashes(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/act", nil))
	require.NoError(t, err)

	var carried *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == flashCookieName {
			carried = ck
		}
	}
	require.NotNil(t, carried)

	req := httptest.NewRequest(http.MethodGet, "/show", nil)
	req.AddCookie(&http.Cookie{Name: carried.Name, Value: carried.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)

	var got []FlashMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []FlashMessage{
		{Category: FlashSuccess, Message: "Saved."},
		{Category: FlashWarning, Message: "Careful."},
	}, got)

	var cleared bool
	for _, ck := range resp.Cookies() {
		if ck.Name == flashCookieName && ck.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared, "flash cookie should be expired once read")
}

func TestFlashes_SameRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		Flash(c, FlashDanger, "Invalid credentials.")
		first := Flashes(c)
		second := Flashes(c)
		return c.JSON(fiber.Map{"first": len(first), "second": len(second)})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got["first"])
	assert.Equal(t, 0, got["second"])
}

func TestFlashes_IgnoresTamperedCookie(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(Flashes(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: "%%%not-base64"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
