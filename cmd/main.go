package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"calassist/internal/assistant"
	"calassist/internal/caldav"
	"calassist/internal/google"
	"calassist/internal/nlp"
	"calassist/internal/notify"
	"calassist/internal/speech"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calassist",
		Usage: "Conversational calendar assistant: talk to your calendar in plain language.",
		Commands: []*cli.Command{
			authCommand(),
			chatCommand(),
			askCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive conversation with the assistant.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "voice", Usage: "Use the configured speech engine for prompts and input."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			session, engine, err := buildSession(c.Context, logger, c.Bool("voice"))
			if err != nil {
				return err
			}

			say := func(text string) {
				if c.Bool("voice") && engine != nil && engine.Ready() {
					if err := engine.Speak(text); err != nil {
						logger.Warn("Speech output failed", "error", err)
					}
				}
				fmt.Printf("Assistant: %s\n", text)
			}

			say("Hello! I'm your calendar assistant. Type a command, or 'exit' to quit.")
			reader := bufio.NewReader(os.Stdin)
			for {
				var utterance string
				if c.Bool("voice") && engine != nil && engine.Ready() {
					fmt.Println("Listening...")
					utterance, err = engine.Transcribe(c.Context)
					if err != nil {
						logger.Error("Transcription failed", "error", err)
						continue
					}
					fmt.Printf("You: %s\n", utterance)
				} else {
					fmt.Print("You: ")
					line, err := reader.ReadString('\n')
					if err != nil {
						break
					}
					utterance = strings.TrimSpace(line)
				}

				if utterance == "exit" || utterance == "quit" {
					say("Goodbye!")
					return nil
				}
				say(session.ProcessCommand(c.Context, utterance))
			}
			return nil
		},
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Run a single command and print the result.",
		ArgsUsage: "\"what's on today\"",
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			session, _, err := buildSession(c.Context, logger, false)
			if err != nil {
				return err
			}
			fmt.Println(session.ProcessCommand(c.Context, strings.Join(c.Args().Slice(), " ")))
			return nil
		},
	}
}

// buildSession wires a conversation: backend (Google or CalDAV per
// CALENDAR_PROVIDER), NLP, notification, speech, and per-session config.
func buildSession(ctx context.Context, logger *slog.Logger, voice bool) (*assistant.Session, *speech.Engine, error) {
	backend, err := buildBackend(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	tzName, err := backend.Timezone(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve calendar timezone: %w", err)
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid calendar timezone %q: %w", tzName, err)
	}
	logger.Info("Resolved calendar timezone", "timezone", tzName)

	parser := nlp.NewParser()
	extractor := nlp.NewExtractor(logger, os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"), parser, loc)

	var notifier assistant.Notifier
	mailer := notify.NewClient(logger, os.Getenv("POSTMARK_SERVER_TOKEN"), os.Getenv("NOTIFY_FROM_EMAIL"))
	if mailer.Configured() {
		notifier = mailer
	} else {
		logger.Warn("Notifier not configured, attendee email disabled")
	}

	engine := speech.NewEngine(logger, os.Getenv("SPEECH_STT_CMD"), os.Getenv("SPEECH_TTS_CMD"))
	if voice && !engine.Ready() {
		logger.Warn("Voice mode requested but speech engine not configured, using text")
	}

	cfg := assistant.DefaultConfig()
	cfg.Voice = voice && engine.Ready()
	if minutes := envInt("DEFAULT_EVENT_DURATION_MINUTES"); minutes > 0 {
		cfg.DefaultEventDuration = time.Duration(minutes) * time.Minute
	}
	if minutes := envInt("FREE_SLOT_DURATION_MINUTES"); minutes > 0 {
		cfg.SlotDuration = time.Duration(minutes) * time.Minute
	}
	if days := envInt("APPROX_SEARCH_RANGE_DAYS"); days > 0 {
		cfg.LookaheadDays = days
	}

	session, err := assistant.NewSession(logger, backend, extractor, parser,
		&consolePrompter{reader: bufio.NewReader(os.Stdin)}, engine, notifier, loc, cfg)
	if err != nil {
		return nil, nil, err
	}
	return session, engine, nil
}

func buildBackend(ctx context.Context, logger *slog.Logger) (assistant.Backend, error) {
	switch provider := os.Getenv("CALENDAR_PROVIDER"); provider {
	case "", "google":
		account := os.Getenv("GOOGLE_ACCOUNT")
		if account == "" {
			accounts, err := google.GetTokenAccounts()
			if err != nil || len(accounts) == 0 {
				return nil, fmt.Errorf("no google accounts found. Run the 'auth' command first")
			}
			account = accounts[0]
		}
		return google.NewClient(ctx, logger,
			os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"),
			account, os.Getenv("GOOGLE_CALENDAR_ID"))
	case "caldav":
		return caldav.NewClient(ctx, logger,
			os.Getenv("CALDAV_ENDPOINT"),
			os.Getenv("CALDAV_USERNAME"), os.Getenv("CALDAV_PASSWORD"),
			os.Getenv("CALDAV_CALENDAR_NAME"), os.Getenv("PRIMARY_TIMEZONE"))
	default:
		return nil, fmt.Errorf("unknown CALENDAR_PROVIDER %q (want google or caldav)", provider)
	}
}

// consolePrompter asks clarification questions on the terminal.
type consolePrompter struct {
	reader *bufio.Reader
}

func (p *consolePrompter) Ask(prompt string) (string, error) {
	fmt.Printf("Assistant: %s\n> ", prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func envInt(name string) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return v
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
