package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/relaykit/pnba"
)

// ErrPasswordRequired reports that the account has two-step verification
// enabled and the handshake must continue with the password step.
var ErrPasswordRequired = errors.New("two-step verification password required")

// User is the minimal account profile the adapter reports back to the host.
type User struct {
	FirstName string
}

// Client is the narrow surface of the Telegram client the adapter needs. One
// Client corresponds to one short-lived connection over one session file.
type Client interface {
	// Run connects, executes fn, and disconnects on every exit path.
	Run(ctx context.Context, fn func(ctx context.Context) error) error

	// Authorized reports whether the session already holds a valid
	// authorization.
	Authorized(ctx context.Context) (bool, error)

	// SendCode requests a one-time login code and returns the server-issued
	// verification token (phone_code_hash).
	SendCode(ctx context.Context, phoneNumber string) (string, error)

	// SignIn submits the code together with the verification token. Returns
	// ErrPasswordRequired when the account is password-gated.
	SignIn(ctx context.Context, phoneNumber, code, codeHash string) error

	// SignInWithPassword submits the second-factor password. The server-side
	// handshake context is carried by the session, not by the token.
	SignInWithPassword(ctx context.Context, password string) error

	// Self fetches the authenticated account's profile.
	Self(ctx context.Context) (*User, error)

	// LogOut terminates the authorization on the server.
	LogOut(ctx context.Context) error

	// SendMessage delivers text to a recipient (username or international
	// phone number).
	SendMessage(ctx context.Context, recipient, text string) error
}

// ClientFactory builds a Client over the given session file. The adapter
// calls it once per operation.
type ClientFactory func(creds pnba.Credentials, sessionFile string) (Client, error)

// NewClient is the production factory, backed by gotd.
func NewClient(creds pnba.Credentials, sessionFile string) (Client, error) {
	return newGotdClient(creds, sessionFile, false)
}

// NewDebugClient is NewClient with wire-level logging enabled.
func NewDebugClient(creds pnba.Credentials, sessionFile string) (Client, error) {
	return newGotdClient(creds, sessionFile, true)
}

type gotdClient struct {
	tg *tdclient.Client
}

func newGotdClient(creds pnba.Credentials, sessionFile string, debug bool) (Client, error) {
	opts := tdclient.Options{
		SessionStorage: &session.FileStorage{Path: sessionFile},
		Middlewares: []tdclient.Middleware{
			floodwait.NewSimpleWaiter(),
		},
	}
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts.Logger = logger
	}
	return &gotdClient{tg: tdclient.NewClient(creds.APIID, creds.APIHash, opts)}, nil
}

func (c *gotdClient) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.tg.Run(ctx, fn)
}

func (c *gotdClient) Authorized(ctx context.Context) (bool, error) {
	status, err := c.tg.Auth().Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Authorized, nil
}

func (c *gotdClient) SendCode(ctx context.Context, phoneNumber string) (string, error) {
	sent, err := c.tg.Auth().SendCode(ctx, phoneNumber, auth.SendCodeOptions{})
	if err != nil {
		return "", err
	}
	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", fmt.Errorf("unexpected sent code type: %T", sent)
	}
	return code.PhoneCodeHash, nil
}

func (c *gotdClient) SignIn(ctx context.Context, phoneNumber, code, codeHash string) error {
	_, err := c.tg.Auth().SignIn(ctx, phoneNumber, code, codeHash)
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		return ErrPasswordRequired
	}
	return err
}

func (c *gotdClient) SignInWithPassword(ctx context.Context, password string) error {
	_, err := c.tg.Auth().Password(ctx, password)
	return err
}

func (c *gotdClient) Self(ctx context.Context) (*User, error) {
	self, err := c.tg.Self(ctx)
	if err != nil {
		return nil, err
	}
	return &User{FirstName: self.FirstName}, nil
}

func (c *gotdClient) LogOut(ctx context.Context) error {
	_, err := c.tg.API().AuthLogOut(ctx)
	return err
}

func (c *gotdClient) SendMessage(ctx context.Context, recipient, text string) error {
	sender := message.NewSender(c.tg.API())
	_, err := sender.Resolve(recipient).Text(ctx, text)
	return err
}
