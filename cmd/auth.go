package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/formcheck/internal/cookies"
	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/services"
	"github.com/desertthunder/formcheck/internal/shared"
)

// Login authenticates and stores the access token and refresh cookie.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return err
	}

	username, err := r.prompt(cmd.String("username"), "사용자명")
	if err != nil {
		return err
	}
	password, err := r.promptSecret(cmd.String("password"), "비밀번호")
	if err != nil {
		return err
	}

	r.logger.Info("logging in", "username", username)

	result := r.session.Login(ctx, username, password)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, result.Message)
	}

	r.writePlain("✓ 로그인 성공\n")
	r.writePlain("환영합니다, %s님!\n", result.User.DisplayName())
	return nil
}

// Register creates an account. It does not log in.
func (r *Runner) Register(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return err
	}

	var req models.RegisterRequest
	var err error
	if req.Username, err = r.prompt(cmd.String("username"), "사용자명"); err != nil {
		return err
	}
	if req.Password, err = r.promptSecret(cmd.String("password"), "비밀번호"); err != nil {
		return err
	}
	if req.RealName, err = r.prompt(cmd.String("name"), "이름"); err != nil {
		return err
	}

	result := r.session.Register(ctx, req)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrInvalidInput, result.Message)
	}

	r.writePlain("✓ %s\n", result.Message)
	r.writePlain("Run 'formcheck login -u %s' to sign in\n", req.Username)
	return nil
}

// Logout ends the session. Stored credentials are removed even when the server call fails.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return err
	}

	if err := r.session.Logout(ctx); err != nil {
		r.logger.Warn("logout request failed", "error", err)
	}
	return r.writePlain("✓ %s\n", shared.MsgLogoutSuccess)
}

// Reissue exchanges the stored refresh cookie for a new access token.
func (r *Runner) Reissue(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return err
	}

	if _, ok, _ := r.cookies.Get(ctx, cookies.RefreshCookie); !ok {
		return fmt.Errorf("%w: log in or import a session first", shared.ErrNoRefreshToken)
	}

	result := r.auth.Reissue(ctx)
	if !result.Success {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, result.Err)
	}

	r.writePlain("✓ Access token reissued\n")
	r.writeTokenExpiry(result.AccessToken)
	return nil
}

// sessionStatus is the JSON form of [Runner.Status].
type sessionStatus struct {
	State         string     `json:"state"`
	Authenticated bool       `json:"authenticated"`
	Username      string     `json:"username,omitempty"`
	RealName      string     `json:"realName,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	BaseURL       string     `json:"baseUrl"`
}

// Status restores the session as the app does on startup (reissuing from the refresh cookie) and reports it.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return err
	}

	r.session.Start(ctx)
	if err := r.session.Wait(ctx); err != nil {
		return err
	}
	snap := r.session.Snapshot()

	status := sessionStatus{
		State:         snap.State.String(),
		Authenticated: snap.IsAuthenticated,
		BaseURL:       r.config.API.BaseURL,
	}
	if snap.User != nil {
		status.Username = snap.User.Username
		status.RealName = snap.User.RealName
	}
	if tok, err := services.TokenInfo(snap.AccessToken); err == nil && !tok.Expiry.IsZero() {
		status.ExpiresAt = &tok.Expiry
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("formcheck session")
	r.writePlain("Server: %s\n", status.BaseURL)
	r.writePlain("State: %s\n", status.State)
	if !snap.IsAuthenticated {
		r.writePlain("Authentication: ✗ Not authenticated\n")
		return nil
	}
	r.writePlain("Authentication: ✓ Authenticated\n")
	r.writePlain("User: %s\n", snap.User.DisplayName())
	r.writeTokenExpiry(snap.AccessToken)
	return nil
}

func (r *Runner) writeTokenExpiry(raw string) {
	tok, err := services.TokenInfo(raw)
	if err != nil || tok.Expiry.IsZero() {
		return
	}
	if tok.Valid() {
		r.writePlain("Expires: %s (in %s)\n", tok.Expiry.Local().Format(time.RFC3339), time.Until(tok.Expiry).Round(time.Second))
	} else {
		r.writePlain("Expired: %s\n", tok.Expiry.Local().Format(time.RFC3339))
	}
}

// SessionImport stores the refresh cookie and access token found in a browser "Copy as cURL" command.
func (r *Runner) SessionImport(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return err
	}

	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var curlHeaders *shared.CurlHeaders
	var err error

	if curlFile != "" {
		curlHeaders, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		curlHeaders, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	refresh, ok := curlHeaders.CookieValue(cookies.RefreshCookie)
	if !ok || refresh == "" {
		return fmt.Errorf("%w: no %q cookie in cURL command", shared.ErrNoRefreshToken, cookies.RefreshCookie)
	}
	if err := r.cookies.Set(ctx, cookies.RefreshCookie, refresh); err != nil {
		return fmt.Errorf("failed to store refresh cookie: %w", err)
	}
	r.writePlain("✓ Refresh cookie imported\n")

	if access, ok := curlHeaders.Header(services.AccessHeader); ok && access != "" {
		if err := r.tokens.Save(ctx, access); err != nil {
			return fmt.Errorf("failed to store access token: %w", err)
		}
		r.writePlain("✓ Access token imported\n")
		r.writeTokenExpiry(access)
	}

	r.writePlainln("Next steps:")
	r.writePlain("Run 'formcheck status' to verify the session\n")
	return nil
}
