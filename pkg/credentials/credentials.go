package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/99designs/keyring"
	"github.com/levenlabs/go-lflag"
	"golang.org/x/term"

	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/types"
)

const keyringServiceName = "leafremote"

// Credentials are what a carwings session logs in with.
type Credentials struct {
	Username string
	Password string
	Region   types.Region
}

// Source resolves credentials from flags, the OS keyring or a terminal prompt.
type Source struct {
	username string
	password string
	region   types.Region

	openKeyring func() (keyring.Keyring, error)
	prompt      func(label string) (string, error)
}

// Configured registers the credential flags.
func Configured() *Source {
	username := lflag.String("carwings-username", "", "Carwings account username (email)")
	password := lflag.String("carwings-password", "", "Carwings account password. Prefer storing it with --command=save-password")
	region := lflag.String("carwings-region", string(types.DefaultRegion), "Carwings region code (NNA, NE, NCI, NMA, NML)")
	backend := lflag.String("keyring-backend", "", "Keyring backend to store the password in (default: first available)")
	dir := lflag.String("keyring-dir", "~/.leafremote", "Directory for the file keyring backend")

	s := &Source{prompt: promptPassword}
	lflag.Do(func() {
		s.username = *username
		s.password = *password
		s.region = types.Region(*region)

		cfg := keyring.Config{
			ServiceName:      keyringServiceName,
			FileDir:          *dir,
			FilePasswordFunc: keyring.TerminalPrompt,
		}
		if *backend != "" {
			cfg.AllowedBackends = []keyring.BackendType{keyring.BackendType(*backend)}
		}
		s.openKeyring = func() (keyring.Keyring, error) {
			return keyring.Open(cfg)
		}
	})
	return s
}

// Resolve returns the configured credentials. The password comes from the
// flag, then the keyring entry for the username, then an interactive prompt.
func (s *Source) Resolve(ctx context.Context) (Credentials, error) {
	if s.username == "" {
		return Credentials{}, errors.New("missing carwings username")
	}
	c := Credentials{
		Username: s.username,
		Password: s.password,
		Region:   s.region,
	}
	if c.Region != "" && !c.Region.Known() {
		log.Ctx(ctx).WarnContext(ctx, "unconfirmed carwings region", slog.String("region", string(c.Region)))
	}
	if c.Password != "" {
		return c, nil
	}

	if s.openKeyring != nil {
		ring, err := s.openKeyring()
		if err != nil {
			log.Ctx(ctx).DebugContext(ctx, "keyring unavailable", slog.Any("error", err))
		} else {
			item, err := ring.Get(s.username)
			switch {
			case err == nil:
				c.Password = string(item.Data)
				return c, nil
			case errors.Is(err, keyring.ErrKeyNotFound):
				log.Ctx(ctx).DebugContext(ctx, "no password in keyring", slog.String("username", s.username))
			default:
				return Credentials{}, fmt.Errorf("failed to read keyring: %w", err)
			}
		}
	}

	if s.prompt == nil {
		return Credentials{}, errors.New("missing carwings password")
	}
	pw, err := s.prompt(fmt.Sprintf("Carwings password for %s", s.username))
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read password: %w", err)
	}
	if pw == "" {
		return Credentials{}, errors.New("missing carwings password")
	}
	c.Password = pw
	return c, nil
}

// Store saves password in the keyring under the configured username.
func (s *Source) Store(ctx context.Context, password string) error {
	if s.username == "" {
		return errors.New("missing carwings username")
	}
	if password == "" {
		return errors.New("refusing to store an empty password")
	}
	if s.openKeyring == nil {
		return errors.New("no keyring configured")
	}
	ring, err := s.openKeyring()
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}
	err = ring.Set(keyring.Item{
		Key:   s.username,
		Data:  []byte(password),
		Label: "LeafRemote carwings password",
	})
	if err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "stored carwings password in keyring", slog.String("username", s.username))
	return nil
}

// Password returns the password given on the command line, if any.
func (s *Source) Password() string {
	return s.password
}

// Prompt asks for a password on the terminal.
func (s *Source) Prompt(label string) (string, error) {
	if s.prompt == nil {
		return "", errors.New("no terminal available")
	}
	return s.prompt(label)
}

func promptPassword(label string) (string, error) {
	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		}
		w = os.Stderr
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	return string(b), nil
}
