package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

type messageForm struct {
	Text string `form:"text"`
}

// NewMessageForm renders the compose form.
func (s *Server) NewMessageForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "messages/new", fiber.Map{"Text": ""})
}

// CreateMessage posts a message for the current user.
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	user := currentUser(c)

	var form messageForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	if _, err := s.messageService.CreateMessage(c.UserContext(), user.ID, form.Text); err != nil {
		if models.ErrorCode(err) == models.CodeValidation {
			middleware.Flash(c, middleware.FlashDanger, err.Error())
			return s.render(c, fiber.StatusOK, "messages/new", fiber.Map{"Text": form.Text})
		}
		return err
	}

	return c.Redirect(userPath(user.ID), fiber.StatusFound)
}

// ShowMessage renders a single message.
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	msg, err := s.messageService.GetMessage(c.UserContext(), id)
	if err != nil {
		return err
	}

	user := currentUser(c)
	return s.render(c, fiber.StatusOK, "messages/show", fiber.Map{
		"Message": msg,
		"IsOwner": user != nil && user.ID == msg.UserID,
	})
}

// DeleteMessage deletes one of the current user's messages.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	user := currentUser(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := s.messageService.DeleteMessage(c.UserContext(), user.ID, id); err != nil {
		if models.ErrorCode(err) == models.CodeUnauthorized {
			middleware.Flash(c, middleware.FlashDanger, "Access unauthorized.")
			return c.Redirect("/", fiber.StatusFound)
		}
		return err
	}

	middleware.Flash(c, middleware.FlashSuccess, "Message deleted.")
	return c.Redirect(userPath(user.ID), fiber.StatusFound)
}

// ToggleLike likes or unlikes a message and returns to the timeline.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	user := currentUser(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	outcome, err := s.messageService.ToggleLike(c.UserContext(), user.ID, id)
	if err != nil {
		return err
	}
	if outcome == service.LikeIgnored {
		middleware.Flash(c, middleware.FlashWarning, "You cannot like your own warble.")
	}

	return c.Redirect("/", fiber.StatusFound)
}
