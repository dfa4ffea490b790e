package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/shared"
)

const (
	pathLogin  = "/login"
	pathJoin   = "/join"
	pathLogout = "/logout"
)

// LoginResult is the outcome of [AuthService.Login]. Message is set on failure.
type LoginResult struct {
	Success     bool
	AccessToken string
	User        *models.User
	Message     string
	Err         error
}

// RegisterResult is the outcome of [AuthService.Register].
type RegisterResult struct {
	Success bool
	Message string
	Err     error
}

// ReissueResult is the outcome of [AuthService.Reissue].
type ReissueResult struct {
	Success     bool
	AccessToken string
	User        *models.User
	Err         error
}

// AuthService performs login, registration, logout and token reissue, and keeps
// the stored access token in step with their outcome.
type AuthService struct {
	clients  *Clients
	tokens   TokenStore
	identity IdentityResolver
	validate *validator.Validate
	logger   *log.Logger
}

// NewAuthService creates an AuthService. A nil identity resolver reports the placeholder user after reissue.
func NewAuthService(clients *Clients, tokens TokenStore, identity IdentityResolver, logger *log.Logger) *AuthService {
	if identity == nil {
		identity = PlaceholderIdentity{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthService{
		clients:  clients,
		tokens:   tokens,
		identity: identity,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Login posts the credentials. The access token arrives in the access response header;
// the server returns no profile, so the user is built from the given username.
//
// Login goes through the same 401 handling as any other call: a rejected login with a
// refresh cookie reissues once and replays, and one without a cookie expires the session.
func (s *AuthService) Login(ctx context.Context, username, password string) LoginResult {
	body, err := JSONBody(models.Credentials{Username: username, Password: password})
	if err != nil {
		return LoginResult{Message: shared.MsgLoginError, Err: err}
	}

	resp, err := s.clients.Default.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        pathLogin,
		Body:        body,
		Credentials: true,
	})
	if err != nil {
		s.logger.Warn("login failed", "username", username, "error", err)
		return LoginResult{Message: UserMessage(err, shared.MsgLoginError), Err: err}
	}

	token := resp.AccessToken()
	if token == "" {
		return LoginResult{Message: shared.MsgLoginFailed, Err: shared.ErrAuthFailed}
	}

	if err := s.tokens.Save(ctx, token); err != nil {
		return LoginResult{Message: shared.MsgLoginError, Err: err}
	}

	s.logger.Info("logged in", "username", username)
	return LoginResult{Success: true, AccessToken: token, User: &models.User{Username: username}}
}

// Register posts a registration without an access header or cookies.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) RegisterResult {
	if err := s.validate.Struct(req); err != nil {
		return RegisterResult{Message: shared.MsgRequiredFields, Err: fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)}
	}

	body, err := JSONBody(req)
	if err != nil {
		return RegisterResult{Message: shared.MsgRegisterError, Err: err}
	}

	if _, err := s.clients.Default.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   pathJoin,
		Body:   body,
		NoAuth: true,
	}); err != nil {
		s.logger.Warn("registration failed", "username", req.Username, "error", err)
		return RegisterResult{Message: UserMessage(err, shared.MsgRegisterError), Err: err}
	}

	s.logger.Info("registered", "username", req.Username)
	return RegisterResult{Success: true, Message: shared.MsgRegisterSuccess}
}

// Logout asks the server to invalidate the session and always clears the local access token.
// Server errors are logged, not returned.
func (s *AuthService) Logout(ctx context.Context) error {
	if _, err := s.clients.Default.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        pathLogout,
		Credentials: true,
	}); err != nil && !errors.Is(err, shared.ErrSessionExpired) {
		s.logger.Warn("server logout failed", "error", err)
	}

	if err := s.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	return nil
}

// Reissue exchanges the refresh cookie for a new access token.
func (s *AuthService) Reissue(ctx context.Context) ReissueResult {
	token, err := s.clients.Reissue(ctx)
	if err != nil {
		s.logger.Warn("reissue failed", "error", err)
		return ReissueResult{Err: err}
	}

	user := s.identity.Resolve(token)
	return ReissueResult{Success: true, AccessToken: token, User: &user}
}
