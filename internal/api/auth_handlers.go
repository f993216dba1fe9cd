package api

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
)

const userKey = "user"

type loginRequest struct {
	Code string `json:"code"`
}

type tokenResponse struct {
	AccessToken string      `json:"accessToken"`
	TokenType   string      `json:"tokenType"`
	User        *model.User `json:"user"`
}

// requireUser resolves the bearer token to a stored user.
func (s *Server) requireUser(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	userID, err := s.deps.Issuer.VerifyToken(strings.TrimSpace(token))
	if err != nil {
		return err
	}

	user, err := s.deps.Store.GetUserByID(c.UserContext(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "Could not validate credentials")
	}
	if err != nil {
		return err
	}

	c.Locals(userKey, user)
	return c.Next()
}

func currentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(userKey).(*model.User)
	return user
}

func (s *Server) googleAuthURL(c *fiber.Ctx) error {
	if !s.deps.Google.Configured() {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Google sign-in is not configured")
	}
	state, err := s.deps.Issuer.IssueState()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"authUrl": s.deps.Google.AuthURL(state),
		"state":   state,
	})
}

func (s *Server) googleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Authorization code is required")
	}

	resp, err := s.signIn(c, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// googleCallback finishes a browser redirect from Google. The state must be
// one issued by googleAuthURL. Clients asking for format=json get the token
// response; browsers are sent on to the frontend with the token in the URL
// fragment.
func (s *Server) googleCallback(c *fiber.Ctx) error {
	if msg := c.Query("error"); msg != "" {
		return fiber.NewError(fiber.StatusBadRequest, "Authorization failed: "+msg)
	}
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Authorization code is missing")
	}
	if err := s.deps.Issuer.VerifyState(c.Query("state")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid or expired state")
	}

	resp, err := s.signIn(c, code)
	if err != nil {
		return err
	}

	if c.Query("format") == "json" {
		return c.JSON(resp)
	}

	target := strings.TrimRight(s.deps.Config.FrontendURL, "/") + "/auth/callback#token=" +
		url.QueryEscape(resp.AccessToken)
	return c.Redirect(target, fiber.StatusFound)
}

func (s *Server) signIn(c *fiber.Ctx, code string) (*tokenResponse, error) {
	user, err := s.deps.Google.SignIn(c.UserContext(), code, s.deps.Store)
	if err != nil {
		s.log.Warn().Err(err).Msg("google sign-in failed")
		return nil, fiber.NewError(fiber.StatusBadRequest, "Failed to authenticate with Google")
	}

	token, err := s.deps.Issuer.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &tokenResponse{AccessToken: token, TokenType: "bearer", User: user}, nil
}

func (s *Server) me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}
