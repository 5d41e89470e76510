package server

import (
	"fmt"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
	ImageURL string `form:"image_url"`
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// SignupForm renders the account creation form.
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/signup", fiber.Map{"Form": signupForm{}})
}

// Signup creates the account and logs the new user in. A taken username or
// email sends the user back to the form.
func (s *Server) Signup(c *fiber.Ctx) error {
	var form signupForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	user, err := s.userService.Signup(c.UserContext(), service.SignupInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		ImageURL: form.ImageURL,
	})
	if err != nil {
		switch models.ErrorCode(err) {
		case models.CodeConflict:
			middleware.Flash(c, middleware.FlashDanger, "Username already taken")
		case models.CodeValidation:
			middleware.Flash(c, middleware.FlashDanger, err.Error())
		default:
			return err
		}
		form.Password = ""
		return s.render(c, fiber.StatusOK, "users/signup", fiber.Map{"Form": form})
	}

	if err := s.sessions.Login(c, user.ID); err != nil {
		return err
	}
	middleware.Flash(c, middleware.FlashSuccess, fmt.Sprintf("Welcome to Warbler, %s!", user.Username))
	return c.Redirect("/", fiber.StatusFound)
}

// LoginForm renders the login form.
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/login", fiber.Map{"Username": ""})
}

// Login checks the credentials and starts a session.
func (s *Server) Login(c *fiber.Ctx) error {
	var form loginForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	user, err := s.userService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return err
	}
	if user == nil {
		middleware.Flash(c, middleware.FlashDanger, "Invalid credentials.")
		return s.render(c, fiber.StatusOK, "users/login", fiber.Map{"Username": form.Username})
	}

	if err := s.sessions.Login(c, user.ID); err != nil {
		return err
	}
	middleware.Flash(c, middleware.FlashSuccess, fmt.Sprintf("Hello, %s!", user.Username))
	return c.Redirect("/", fiber.StatusFound)
}

// Logout ends the session. Anonymous callers are simply sent home.
func (s *Server) Logout(c *fiber.Ctx) error {
	if _, ok := middleware.CurrentUserID(c); ok {
		if err := s.sessions.Logout(c); err != nil {
			return err
		}
		middleware.Flash(c, middleware.FlashSuccess, "You have successfully logged out.")
	}
	return c.Redirect("/", fiber.StatusFound)
}
