package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/formcheck/internal/cookies"
	"github.com/desertthunder/formcheck/internal/repositories"
	"github.com/desertthunder/formcheck/internal/services"
	"github.com/desertthunder/formcheck/internal/session"
	"github.com/desertthunder/formcheck/internal/shared"
	"github.com/desertthunder/formcheck/internal/tasks"
	"github.com/desertthunder/formcheck/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	transport  http.RoundTripper
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	reader     *bufio.Reader

	tokens    services.TokenStore
	cookies   *cookies.Store
	clients   *services.Clients
	auth      *services.AuthService
	uploads   *services.UploadService
	history   *repositories.UploadRepository
	recorder  *repositories.HistoryRecorder
	session   *session.Controller
	navigator *ui.Navigator
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Without a DB the runner has no services and commands that need them fail with
// [shared.ErrServiceUnavailable]. Tokens overrides the configured token backend.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB
	Tokens     services.TokenStore
	Transport  http.RoundTripper
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		transport:  opts.Transport,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		reader:     bufio.NewReader(opts.Input),
		tokens:     opts.Tokens,
		navigator:  &ui.Navigator{},
	}
	r.wire()
	return r
}

// wire builds the service graph from the database and configuration.
func (r *Runner) wire() {
	if r.db == nil {
		return
	}

	host := apiHost(r.config.API.BaseURL)
	if r.tokens == nil {
		r.tokens = r.newTokenStore(host)
	}

	r.cookies = cookies.NewStore(repositories.NewCookieRepository(r.db), host, r.config.Production())
	r.cookies.SetLogger(r.logger)
	r.clients = services.NewClients(services.ClientOptions{
		BaseURL:       r.config.API.BaseURL,
		Timeout:       r.config.API.Timeout,
		UploadTimeout: r.config.API.UploadTimeout,
		Tokens:        r.tokens,
		Cookies:       r.cookies,
		Logger:        r.logger,
		Transport:     r.transport,
	})
	r.auth = services.NewAuthService(r.clients, r.tokens, services.NewIdentityResolver(r.config.Session.Identity), r.logger)
	r.uploads = services.NewUploadService(r.clients, r.config.Upload.MaxSizeMB<<20, r.logger)
	r.history = repositories.NewUploadRepository(r.db)
	r.recorder = repositories.NewHistoryRecorder(r.history)
	r.session = session.NewController(r.auth, r.cookies, r.navigator, r.logger)
	r.clients.OnExpire(r.session.Expire)
}

func (r *Runner) newTokenStore(host string) services.TokenStore {
	if r.config.Session.TokenBackend == shared.TokenBackendKeyring {
		return repositories.NewKeyringTokenRepository(host)
	}
	return repositories.NewTokenRepository(r.db, host)
}

// SetLogger replaces the logger and rebuilds the services around it.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.wire()
}

func (r *Runner) ready() error {
	if r.session == nil {
		return fmt.Errorf("%w: database not initialized, run 'formcheck setup database'", shared.ErrServiceUnavailable)
	}
	return nil
}

// uploadEngine returns an engine that records history under the session user.
func (r *Runner) uploadEngine(snap session.Snapshot) *tasks.UploadEngine {
	owner := services.PlaceholderUsername
	if snap.User != nil {
		owner = snap.User.Username
	}
	return tasks.NewUploadEngine(r.uploads, r.recorder, owner)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, registerCommand, logoutCommand, reissueCommand, statusCommand,
		uploadCommand, historyCommand, sessionCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// apiHost is the host:port that scopes stored credentials.
func apiHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
