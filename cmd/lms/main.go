package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-lms-client/api"
	"github.com/jrsteele09/go-lms-client/auth"
	"github.com/jrsteele09/go-lms-client/credentials"
	"github.com/jrsteele09/go-lms-client/gateway"
	"github.com/jrsteele09/go-lms-client/guard"
	"github.com/jrsteele09/go-lms-client/internal/config"
	"github.com/jrsteele09/go-lms-client/internal/logging"
	"github.com/jrsteele09/go-lms-client/refresh"
	"github.com/jrsteele09/go-lms-client/session"
	"github.com/jrsteele09/go-lms-client/users"
)

const usage = `usage: lms <command> [flags]

commands:
  login        -u <username> -p <password>
  register     -u <username> -p <password> -e <email> [-first NAME] [-last NAME]
  logout
  whoami
  courses
  assignments  [-course ID]
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// client bundles the wired-up stack for command handlers.
type client struct {
	manager *auth.Manager
	api     *api.Client
	session *session.Session
	logger  zerolog.Logger
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Environment)

	c, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch args[0] {
	case "login":
		return c.login(ctx, args[1:])
	case "register":
		return c.register(ctx, args[1:])
	case "logout":
		c.manager.Logout()
		fmt.Println("Logged out.")
		return nil
	case "whoami":
		return c.whoami(ctx)
	case "courses":
		return c.courses(ctx)
	case "assignments":
		return c.assignments(ctx, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// buildClient wires store -> session -> refresh coordinator -> gateway ->
// api -> manager. The refresh endpoint deliberately sits on a bare HTTP
// client outside the gateway pipeline.
func buildClient(cfg *config.ClientConfig, logger zerolog.Logger) (*client, error) {
	store, err := credentials.NewFileStore(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	sess := session.New()

	httpClient := &http.Client{Timeout: cfg.Timeout}
	endpoint := api.NewRefreshEndpoint(cfg.BaseURL, httpClient)

	coordinator, err := refresh.NewCoordinator(endpoint, store, sess, refresh.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	gw, err := gateway.New(cfg.BaseURL, store, sess, coordinator,
		gateway.WithHTTPClient(httpClient),
		gateway.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	apiClient, err := api.New(gw)
	if err != nil {
		return nil, err
	}
	manager, err := auth.NewManager(apiClient, store, sess, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &client{manager: manager, api: apiClient, session: sess, logger: logger}, nil
}

func (c *client) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("login requires -u and -p")
	}

	user, err := c.manager.Login(ctx, *username, *password)
	if err != nil {
		return err
	}

	displayWelcome(user)
	fmt.Printf("Landing: %s\n", guard.LandingPathFor(user.Role))
	return nil
}

func (c *client) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	email := fs.String("e", "", "email")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" || *email == "" {
		return fmt.Errorf("register requires -u, -p and -e")
	}

	user, err := c.manager.Register(ctx, api.RegisterRequest{
		Username:  *username,
		Password:  *password,
		Email:     *email,
		FirstName: *first,
		LastName:  *last,
		Role:      users.RoleStudent,
	})
	if err != nil {
		return err
	}

	displayWelcome(user)
	return nil
}

func (c *client) whoami(ctx context.Context) error {
	if _, err := c.manager.Restore(ctx); err != nil {
		return err
	}

	if guard.Decide(c.session.Snapshot()) != guard.Allow {
		fmt.Println("Not logged in.")
		return nil
	}
	user := c.manager.CurrentUser()
	fmt.Printf("%s <%s> (%s)\n", user.FullName(), user.Email, user.Role)
	return nil
}

func (c *client) courses(ctx context.Context) error {
	if _, err := c.manager.Restore(ctx); err != nil {
		return err
	}

	courses, err := c.api.ListCourses(ctx)
	if err != nil {
		return describeFailure(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTEACHER")
	for _, course := range courses {
		fmt.Fprintf(w, "%d\t%s\t%s\n", course.ID, course.Title, course.TeacherName)
	}
	return w.Flush()
}

func (c *client) assignments(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("assignments", flag.ExitOnError)
	courseID := fs.Int64("course", 0, "filter by course ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := c.manager.Restore(ctx); err != nil {
		return err
	}

	assignments, err := c.api.ListAssignments(ctx, *courseID)
	if err != nil {
		return describeFailure(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOURSE\tTITLE\tDUE")
	for _, a := range assignments {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", a.ID, a.Course, a.Title, a.DueDate.Format("2006-01-02"))
	}
	return w.Flush()
}

// describeFailure translates the gateway taxonomy into operator-friendly
// messages; anything unrecognised propagates as-is.
func describeFailure(err error) error {
	switch {
	case gateway.IsSessionExpired(err):
		return fmt.Errorf("session expired, run `lms login` again")
	case gateway.IsForbidden(err):
		return fmt.Errorf("your role does not allow this")
	default:
		return err
	}
}

func displayWelcome(user *users.User) {
	banner := figure.NewFigure("LMS", "", true)
	banner.Print()
	fmt.Printf("Welcome, %s (%s)\n", user.FullName(), user.Role)
}
