package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	currentUserLocalsKey = "currentUser"
	csrfContextKey       = "csrf"
	csrfFormField        = "_csrf"
)

// loadCurrentUser resolves the session's user id into a *models.User. A session
// for a user that no longer exists is dropped and the request continues anonymous.
func (s *Server) loadCurrentUser(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Next()
	}

	user, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		if models.IsNotFound(err) {
			s.sessions.Clear(c)
			return c.Next()
		}
		return err
	}

	c.Locals(currentUserLocalsKey, user)
	return c.Next()
}

// currentUser returns the logged-in user, or nil for anonymous requests.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(currentUserLocalsKey).(*models.User)
	return user
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals(csrfContextKey).(string)
	return token
}

// render executes a page template inside the base layout, adding the values
// every page needs.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["CurrentUser"] = currentUser(c)
	data["Flashes"] = middleware.Flashes(c)
	data["CSRFToken"] = csrfToken(c)

	return c.Status(status).Render(name, data)
}

// parseID extracts a route parameter as a positive uint. Anything else is a 404,
// the same as an id that does not exist.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// bindForm decodes a form body into out. An empty body leaves out untouched.
func bindForm(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	return nil
}

func userPath(id uint) string {
	return fmt.Sprintf("/users/%d", id)
}

// idSet indexes users by id for template lookups.
func idSet(users []models.User) map[uint]bool {
	set := make(map[uint]bool, len(users))
	for i := range users {
		set[users[i].ID] = true
	}
	return set
}

// errorHandler renders the 404 page for unknown routes and missing records and
// the 500 page for everything else.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if models.IsNotFound(err) {
		code = fiber.StatusNotFound
	}

	switch {
	case code == fiber.StatusNotFound:
		if rerr := s.render(c, code, "errors/404", nil); rerr != nil {
			return c.Status(code).SendString("Not Found")
		}
		return nil
	case code < fiber.StatusInternalServerError:
		return c.Status(code).SendString(fe.Message)
	}

	middleware.Logger.ErrorContext(c.UserContext(), "request error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	if rerr := s.render(c, code, "errors/500", nil); rerr != nil {
		return c.Status(code).SendString("Internal Server Error")
	}
	return nil
}

func isStaticPath(path string) bool {
	return strings.HasPrefix(path, "/static/")
}
