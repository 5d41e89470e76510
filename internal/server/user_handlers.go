package server

import (
	"context"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

type profileForm struct {
	Username       string `form:"username"`
	Email          string `form:"email"`
	ImageURL       string `form:"image_url"`
	HeaderImageURL string `form:"header_image_url"`
	Bio            string `form:"bio"`
	Location       string `form:"location"`
	Password       string `form:"password"`
}

// ListUsers renders every user, or those matching ?q=.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	users, err := s.userService.ListUsers(c.UserContext(), query)
	if err != nil {
		return err
	}

	followingIDs, err := s.myFollowingIDs(c)
	if err != nil {
		return err
	}

	return s.render(c, fiber.StatusOK, "users/index", fiber.Map{
		"Users":        users,
		"Query":        query,
		"FollowingIDs": followingIDs,
	})
}

// ShowUser renders a profile with the user's messages.
func (s *Server) ShowUser(c *fiber.Ctx) error {
	user, data, err := s.profileData(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	msgs, err := s.messageService.UserMessages(ctx, user.ID)
	if err != nil {
		return err
	}
	liked, err := s.messageService.LikedIDs(ctx, viewerID(c), msgs)
	if err != nil {
		return err
	}

	data["Messages"] = msgs
	data["Liked"] = liked
	return s.render(c, fiber.StatusOK, "users/show", data)
}

// ShowFollowing lists the users a profile follows.
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	return s.renderFollowList(c, "users/following", s.followService.Following)
}

// ShowFollowers lists the users following a profile.
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	return s.renderFollowList(c, "users/followers", s.followService.Followers)
}

func (s *Server) renderFollowList(c *fiber.Ctx, view string, list func(context.Context, uint) ([]models.User, error)) error {
	user, data, err := s.profileData(c)
	if err != nil {
		return err
	}

	users, err := list(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	followingIDs, err := s.myFollowingIDs(c)
	if err != nil {
		return err
	}

	data["Users"] = users
	data["FollowingIDs"] = followingIDs
	return s.render(c, fiber.StatusOK, view, data)
}

// ShowLikes lists the messages a user has liked.
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	user, data, err := s.profileData(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	msgs, err := s.messageService.LikedMessages(ctx, user.ID)
	if err != nil {
		return err
	}
	liked, err := s.messageService.LikedIDs(ctx, viewerID(c), msgs)
	if err != nil {
		return err
	}

	data["Messages"] = msgs
	data["Liked"] = liked
	return s.render(c, fiber.StatusOK, "users/likes", data)
}

// Follow makes the current user follow :id.
func (s *Server) Follow(c *fiber.Ctx) error {
	return s.changeFollow(c, s.followService.Follow)
}

// StopFollowing makes the current user unfollow :id.
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	return s.changeFollow(c, s.followService.Unfollow)
}

func (s *Server) changeFollow(c *fiber.Ctx, change func(context.Context, uint, uint) error) error {
	me := currentUser(c)
	targetID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := change(c.UserContext(), me.ID, targetID); err != nil {
		if models.ErrorCode(err) != models.CodeValidation {
			return err
		}
		middleware.Flash(c, middleware.FlashWarning, err.Error())
	}

	return c.Redirect(userPath(me.ID)+"/following", fiber.StatusFound)
}

// EditProfileForm renders the profile form filled with the current values.
func (s *Server) EditProfileForm(c *fiber.Ctx) error {
	me := currentUser(c)
	return s.render(c, fiber.StatusOK, "users/edit", fiber.Map{
		"Form": profileForm{
			Username:       me.Username,
			Email:          me.Email,
			ImageURL:       me.ImageURL,
			HeaderImageURL: me.HeaderImageURL,
			Bio:            me.Bio,
			Location:       me.Location,
		},
	})
}

// UpdateProfile saves the profile after re-checking the password. Any failure
// re-renders the form with the submitted values.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	me := currentUser(c)

	var form profileForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	_, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:         me.ID,
		Username:       form.Username,
		Email:          form.Email,
		ImageURL:       form.ImageURL,
		HeaderImageURL: form.HeaderImageURL,
		Bio:            form.Bio,
		Location:       form.Location,
		Password:       form.Password,
	})
	if err != nil {
		switch models.ErrorCode(err) {
		case models.CodeUnauthorized:
			middleware.Flash(c, middleware.FlashDanger, "Wrong password, please try again.")
		case models.CodeConflict:
			middleware.Flash(c, middleware.FlashDanger, "Username or email already taken")
		case models.CodeValidation:
			middleware.Flash(c, middleware.FlashDanger, err.Error())
		default:
			return err
		}
		form.Password = ""
		return s.render(c, fiber.StatusOK, "users/edit", fiber.Map{"Form": form})
	}

	middleware.Flash(c, middleware.FlashSuccess, "Profile updated.")
	return c.Redirect(userPath(me.ID), fiber.StatusFound)
}

// DeleteUser removes the current account and logs out.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	me := currentUser(c)

	if err := s.userService.DeleteAccount(c.UserContext(), me.ID); err != nil {
		return err
	}
	if err := s.sessions.Logout(c); err != nil {
		return err
	}

	middleware.Flash(c, middleware.FlashSuccess, "Your account has been deleted.")
	return c.Redirect("/signup", fiber.StatusFound)
}

// profileData loads the user named by :id along with the sidebar data shared
// by every profile page.
func (s *Server) profileData(c *fiber.Ctx) (*models.User, fiber.Map, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, nil, err
	}

	ctx := c.UserContext()
	user, err := s.userService.GetUser(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.userService.Stats(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	isFollowing := false
	if me := currentUser(c); me != nil && me.ID != id {
		isFollowing, err = s.followService.IsFollowing(ctx, me.ID, id)
		if err != nil {
			return nil, nil, err
		}
	}

	return user, fiber.Map{
		"User":        user,
		"Stats":       stats,
		"IsFollowing": isFollowing,
	}, nil
}

// myFollowingIDs returns the ids the viewer follows, empty when anonymous.
func (s *Server) myFollowingIDs(c *fiber.Ctx) (map[uint]bool, error) {
	me := currentUser(c)
	if me == nil {
		return map[uint]bool{}, nil
	}
	following, err := s.followService.Following(c.UserContext(), me.ID)
	if err != nil {
		return nil, err
	}
	return idSet(following), nil
}

func viewerID(c *fiber.Ctx) uint {
	if me := currentUser(c); me != nil {
		return me.ID
	}
	return 0
}
