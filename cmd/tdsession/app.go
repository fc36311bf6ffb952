package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/goliatone/go-brokerage"
	"github.com/goliatone/go-brokerage/adapters/gocommand"
	"github.com/goliatone/go-brokerage/adapters/gologger"
	"github.com/goliatone/go-brokerage/core"
	"github.com/goliatone/go-command/runner"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const appName = "tdsession"

func newApp(in io.Reader, out io.Writer, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      appName,
		Usage:     "Authenticate against the brokerage API and inspect the stored session",
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "OAuth client id (consumer key)",
				EnvVars: []string{"TD_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:    "redirect-uri",
				Usage:   "Redirect URI registered for the application",
				EnvVars: []string{"TD_REDIRECT_URI"},
			},
			&cli.StringFlag{
				Name:    "account",
				Aliases: []string{"a"},
				Usage:   "Default account number",
				EnvVars: []string{"TD_ACCOUNT_NUMBER"},
			},
			&cli.StringFlag{
				Name:    "credentials-path",
				Usage:   "Session state file, defaults to the user config dir",
				EnvVars: []string{"TD_CREDENTIALS_PATH"},
			},
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Dotenv file loaded before reading TD_* variables",
				Value:   ".env",
				EnvVars: []string{"TD_ENV_FILE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"TD_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "api-endpoint",
				Usage:   "Override the API base URL",
				EnvVars: []string{"TD_API_ENDPOINT"},
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Keep the session in memory only",
			},
			&cli.BoolFlag{
				Name:  "no-banner",
				Usage: "Skip the startup banner",
			},
		},
		Before: beforeAction,
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Run the authorization code flow, reusing stored tokens when possible",
				Action: loginAction,
			},
			{
				Name:   "logout",
				Usage:  "Forget the tokens and delete the stored session",
				Action: logoutAction,
			},
			{
				Name:   "status",
				Usage:  "Show the auth state and remaining token lifetimes",
				Action: statusAction,
			},
			{
				Name:      "quotes",
				Usage:     "Fetch quotes for one or more symbols",
				ArgsUsage: "SYMBOL [SYMBOL...]",
				Action:    quotesAction,
			},
			{
				Name:   "stream-credentials",
				Usage:  "Print the streamer login handoff",
				Action: streamCredentialsAction,
			},
		},
	}
}

// beforeAction loads the dotenv file. Flags are parsed before it runs, so
// any flag still empty afterwards is filled from its TD_* variable.
func beforeAction(c *cli.Context) error {
	envFile := c.String("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err == nil {
			for _, name := range []string{"client-id", "redirect-uri", "account", "credentials-path", "api-endpoint"} {
				if c.String(name) != "" {
					continue
				}
				if value := lookupFlagEnv(c, name); value != "" {
					if err := c.Set(name, value); err != nil {
						return err
					}
				}
			}
		}
	}
	if !c.Bool("no-banner") {
		banner := figure.NewFigure(appName, "cybermedium", true)
		fmt.Fprintln(c.App.ErrWriter, banner.String())
	}
	return nil
}

func lookupFlagEnv(c *cli.Context, name string) string {
	for _, flag := range c.App.Flags {
		sf, ok := flag.(*cli.StringFlag)
		if !ok || sf.Name != name {
			continue
		}
		for _, env := range sf.EnvVars {
			if value := strings.TrimSpace(os.Getenv(env)); value != "" {
				return value
			}
		}
	}
	return ""
}

func loginAction(c *cli.Context) error {
	return withSession(c, func(ctx context.Context, _ *brokerage.Client) error {
		if _, err := gocommand.Login(ctx); err != nil {
			return err
		}
		return printStatus(ctx, c.App.Writer)
	})
}

func logoutAction(c *cli.Context) error {
	return withSession(c, func(ctx context.Context, _ *brokerage.Client) error {
		if err := gocommand.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "logged out")
		return nil
	})
}

func statusAction(c *cli.Context) error {
	return withSession(c, func(ctx context.Context, _ *brokerage.Client) error {
		return printStatus(ctx, c.App.Writer)
	})
}

func quotesAction(c *cli.Context) error {
	symbols := c.Args().Slice()
	if len(symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	return withSession(c, func(ctx context.Context, client *brokerage.Client) error {
		result, err := client.GetQuotes(ctx, symbols...)
		if err != nil {
			return err
		}
		var payload any
		if err := result.Decode(&payload); err != nil {
			return err
		}
		return writeJSON(c.App.Writer, payload)
	})
}

func streamCredentialsAction(c *cli.Context) error {
	return withSession(c, func(ctx context.Context, _ *brokerage.Client) error {
		handoff, err := gocommand.StreamingHandoff(ctx)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, handoff)
	})
}

func printStatus(ctx context.Context, w io.Writer) error {
	status, err := gocommand.TokenStatus(ctx)
	if err != nil {
		return err
	}
	return writeJSON(w, status)
}

// withSession builds the client, binds its session on the command bus for
// the duration of fn and releases the bindings afterwards.
func withSession(c *cli.Context, fn func(ctx context.Context, client *brokerage.Client) error) error {
	logger := gologger.NewConsoleLogger(c.App.ErrWriter, c.String("log-level"))
	credentials := core.Credentials{
		ClientID:        c.String("client-id"),
		RedirectURI:     c.String("redirect-uri"),
		AccountNumber:   c.String("account"),
		CredentialsPath: c.String("credentials-path"),
	}
	// Only runtime overrides go here; endpoints resolve through rawConfig.
	cfg := brokerage.Config{DisableStateCache: c.Bool("no-cache")}

	client, err := brokerage.New(credentials, cfg, brokerage.WithSessionOptions(
		core.WithConfigProvider(core.NewCfgxConfigProvider(core.NewStaticConfigLoader(rawConfig(c)))),
		core.WithLoggerProvider(gologger.NewZerologProvider(logger)),
		core.WithLogger(logger),
		core.WithRedirectPrompter(stdinPrompter(c.App.Reader, c.App.ErrWriter)),
	))
	if err != nil {
		return err
	}

	bindings, err := gocommand.RegisterSession(
		gocommand.NewRegistryAdapter(nil),
		client.Session(),
		client.StateStore(),
		client,
		runner.WithNoTimeout(),
		runner.WithErrorHandler(func(err error) {
			logger.Debug("command handler failed", "error", err)
		}),
	)
	if err != nil {
		return err
	}
	defer bindings.Unsubscribe()

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, client)
}

// rawConfig maps flags and TD_* variables onto core.Config keys.
func rawConfig(c *cli.Context) map[string]any {
	raw := map[string]any{
		"disable_state_cache": c.Bool("no-cache"),
	}
	if endpoint := strings.TrimSpace(c.String("api-endpoint")); endpoint != "" {
		raw["api_endpoint"] = endpoint
	}
	return raw
}

// stdinPrompter prints the authorization URL and reads the redirect URL the
// user pastes back from the browser.
func stdinPrompter(in io.Reader, out io.Writer) core.RedirectPrompter {
	reader := bufio.NewReader(in)
	return core.RedirectPrompterFunc(func(ctx context.Context, authorizationURL string) (string, error) {
		fmt.Fprintf(out, "Open this URL in a browser and sign in:\n\n  %s\n\n", authorizationURL)
		fmt.Fprint(out, "Paste the full redirect URL: ")

		type line struct {
			value string
			err   error
		}
		done := make(chan line, 1)
		go func() {
			value, err := reader.ReadString('\n')
			done <- line{value: value, err: err}
		}()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case got := <-done:
			value := strings.TrimSpace(got.value)
			if value == "" && got.err != nil {
				return "", fmt.Errorf("read redirect url: %w", got.err)
			}
			return value, nil
		}
	})
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
