package server

import (
	"warbler/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// Home shows the timeline to logged-in users and the landing page to everyone
// else.
func (s *Server) Home(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return s.render(c, fiber.StatusOK, "home-anon", nil)
	}

	ctx := c.UserContext()
	msgs, err := s.messageService.Timeline(ctx, user.ID, repository.DefaultTimelineLimit)
	if err != nil {
		return err
	}
	liked, err := s.messageService.LikedIDs(ctx, user.ID, msgs)
	if err != nil {
		return err
	}
	stats, err := s.userService.Stats(ctx, user.ID)
	if err != nil {
		return err
	}

	return s.render(c, fiber.StatusOK, "home", fiber.Map{
		"Messages": msgs,
		"Liked":    liked,
		"Stats":    stats,
	})
}
