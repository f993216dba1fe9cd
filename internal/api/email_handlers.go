package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/source"
	"github.com/nhle/trackmate/internal/store"
)

// emailList renders a list as a JSON array, never null.
func emailList(emails []model.Email) []model.Email {
	if emails == nil {
		return []model.Email{}
	}
	return emails
}

// mailbox opens the current user's mailbox.
func (s *Server) mailbox(c *fiber.Ctx) (source.Source, error) {
	user := currentUser(c)
	if !user.HasToken() {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Mailbox access has not been granted")
	}
	return s.deps.Sources(c.UserContext(), user)
}

func (s *Server) unreadEmails(c *fiber.Ctx) error {
	unread := true
	return s.list(c, model.EmailFilter{
		IsUnread:   &unread,
		TimeRange:  "24h",
		MaxResults: c.QueryInt("max", 0),
	})
}

func (s *Server) attentionEmails(c *fiber.Ctx) error {
	return s.list(c, model.EmailFilter{
		Labels:     []string{s.deps.AttentionLabel},
		MaxResults: c.QueryInt("max", 0),
	})
}

func (s *Server) listEmails(c *fiber.Ctx) error {
	filter := model.EmailFilter{
		TimeRange:  c.Query("timeRange"),
		Query:      c.Query("q"),
		MaxResults: c.QueryInt("max", 0),
	}
	if _, err := filter.Window(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if label := c.Query("label"); label != "" {
		filter.Labels = []string{label}
	}
	if raw := c.Query("unread"); raw != "" {
		unread := c.QueryBool("unread")
		filter.IsUnread = &unread
	}
	return s.list(c, filter)
}

func (s *Server) list(c *fiber.Ctx, filter model.EmailFilter) error {
	if filter.MaxResults < 0 || filter.MaxResults > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "max must be between 1 and 100")
	}

	src, err := s.mailbox(c)
	if err != nil {
		return err
	}

	emails, err := src.ListEmails(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(emailList(emails))
}

func (s *Server) getEmail(c *fiber.Ctx) error {
	src, err := s.mailbox(c)
	if err != nil {
		return err
	}

	email, err := src.GetEmail(c.UserContext(), c.Params("id"))
	if errors.Is(err, source.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Email not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(email)
}

func (s *Server) syncEmails(c *fiber.Ctx) error {
	src, err := s.mailbox(c)
	if err != nil {
		return err
	}

	summary, err := s.deps.Syncer.SyncOnce(c.UserContext(), src, currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// storedEmails lists messages saved by earlier sync passes without
// contacting the mailbox.
func (s *Server) storedEmails(c *fiber.Ctx) error {
	filter := model.EmailFilter{TimeRange: c.Query("timeRange")}
	window, err := filter.Window()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	query := store.EmailQuery{
		UnreadOnly: c.QueryBool("unread"),
		Label:      c.Query("label"),
		Limit:      c.QueryInt("limit", 50),
	}
	if window > 0 {
		query.Since = time.Now().Add(-window)
	}

	emails, err := s.deps.Store.GetEmails(c.UserContext(), currentUser(c).ID, query)
	if err != nil {
		return err
	}
	return c.JSON(emailList(emails))
}
