// Package telegram implements the PNBA protocol against Telegram.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaykit/pnba"
	"github.com/relaykit/pnba/stores"
)

// Adapter implements pnba.Protocol. It holds the loaded credentials and
// constructs a short-lived client per call; no connection survives an
// operation.
type Adapter struct {
	Credentials pnba.Credentials

	// Root directory for per-phone session directories. Empty means the
	// default sessions root.
	SessionsDir string

	// NewClient builds the client for one operation. Defaults to the
	// gotd-backed NewClient; tests inject fakes here.
	NewClient ClientFactory

	// Records is the bookkeeping backend carrying handshake state between
	// steps. Defaults to the file-system registry under SessionsDir; hosts
	// can swap in another pnba.RecordStore such as stores/gorm.
	Records pnba.RecordStore
}

var _ pnba.Protocol = (*Adapter)(nil)

// NewAdapter returns an adapter using the production Telegram client and the
// file-system record store.
func NewAdapter(creds pnba.Credentials, sessionsDir string) *Adapter {
	return &Adapter{
		Credentials: creds,
		SessionsDir: sessionsDir,
		NewClient:   NewClient,
		Records:     stores.NewFSRecordStore(sessionsDir),
	}
}

func (a *Adapter) records() pnba.RecordStore {
	if a.Records != nil {
		return a.Records
	}
	return stores.NewFSRecordStore(a.SessionsDir)
}

func (a *Adapter) client(sessionFile string) (Client, error) {
	factory := a.NewClient
	if factory == nil {
		factory = NewClient
	}
	client, err := factory(a.Credentials, sessionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to construct client: %w", err)
	}
	return client, nil
}

// SendAuthorizationCode destroys and recreates the session directory for the
// phone number, then requests a one-time code. The returned verification
// token is persisted in the registry for the validation step. An account
// that already holds a valid authorization is a soft failure, not an error.
func (a *Adapter) SendAuthorizationCode(ctx context.Context, phoneNumber string) (*pnba.SendCodeResult, error) {
	registry, err := stores.NewSessionRegistry(phoneNumber, a.SessionsDir)
	if err != nil {
		return nil, err
	}
	// Discard any in-flight handshake: the record first, then the session
	// directory wholesale.
	if _, err := a.records().Clear(phoneNumber); err != nil {
		return nil, err
	}
	if _, err := registry.EnsureDir(true); err != nil {
		return nil, err
	}

	client, err := a.client(registry.SessionFilePath())
	if err != nil {
		return nil, err
	}

	var result *pnba.SendCodeResult
	err = client.Run(ctx, func(ctx context.Context) error {
		authorized, err := client.Authorized(ctx)
		if err != nil {
			return err
		}
		if authorized {
			slog.Error("user is already authorized")
			result = &pnba.SendCodeResult{
				Success: false,
				Message: "User is already authorized.",
			}
			return nil
		}

		codeHash, err := client.SendCode(ctx, phoneNumber)
		if err != nil {
			return err
		}
		if err := a.records().Update(phoneNumber, pnba.RegistryRecord{"phone_code_hash": codeHash}); err != nil {
			return err
		}

		slog.Info("authorization code sent")
		result = &pnba.SendCodeResult{
			Success: true,
			Message: "Authorization code sent. Check your Telegram app.",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateCodeAndFetchUserInfo submits the code with the stored verification
// token. On success the registry is cleared and the account profile
// returned. When the account requires a second factor the registry is left
// intact and the result says a password step is pending.
func (a *Adapter) ValidateCodeAndFetchUserInfo(ctx context.Context, phoneNumber, code string) (*pnba.ValidationResult, error) {
	registry, err := stores.NewSessionRegistry(phoneNumber, a.SessionsDir)
	if err != nil {
		return nil, err
	}

	record, err := a.records().Read(phoneNumber)
	if err != nil {
		return nil, err
	}
	codeHash, _ := record["phone_code_hash"].(string)
	if codeHash == "" {
		slog.Warn("no verification token in registry; proceeding with empty token")
	}

	client, err := a.client(registry.SessionFilePath())
	if err != nil {
		return nil, err
	}

	var result *pnba.ValidationResult
	err = client.Run(ctx, func(ctx context.Context) error {
		enabled := false
		if err := client.SignIn(ctx, phoneNumber, code, codeHash); err != nil {
			if errors.Is(err, ErrPasswordRequired) {
				slog.Info("two-step verification is enabled")
				enabled = true
				result = &pnba.ValidationResult{
					TwoStepVerificationEnabled: &enabled,
					UserInfo: pnba.UserInfo{
						AccountIdentifier: phoneNumber,
					},
				}
				return nil
			}
			return err
		}

		user, err := client.Self(ctx)
		if err != nil {
			return err
		}
		if _, err := a.records().Clear(phoneNumber); err != nil {
			return err
		}

		slog.Info("user authorized successfully")
		name := user.FirstName
		result = &pnba.ValidationResult{
			TwoStepVerificationEnabled: &enabled,
			UserInfo: pnba.UserInfo{
				AccountIdentifier: phoneNumber,
				Name:              &name,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ValidatePasswordAndFetchUserInfo completes a password-gated handshake. The
// server-side handshake context is keyed by the session artifact, so the
// stored verification token is not resubmitted here.
func (a *Adapter) ValidatePasswordAndFetchUserInfo(ctx context.Context, phoneNumber, password string) (*pnba.ValidationResult, error) {
	registry, err := stores.NewSessionRegistry(phoneNumber, a.SessionsDir)
	if err != nil {
		return nil, err
	}

	client, err := a.client(registry.SessionFilePath())
	if err != nil {
		return nil, err
	}

	var result *pnba.ValidationResult
	err = client.Run(ctx, func(ctx context.Context) error {
		if err := client.SignInWithPassword(ctx, password); err != nil {
			return err
		}

		user, err := client.Self(ctx)
		if err != nil {
			return err
		}
		if _, err := a.records().Clear(phoneNumber); err != nil {
			return err
		}

		slog.Info("user authorized successfully")
		name := user.FirstName
		result = &pnba.ValidationResult{
			UserInfo: pnba.UserInfo{
				AccountIdentifier: phoneNumber,
				Name:              &name,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// InvalidateSession logs the account out and removes the entire session
// directory. Directory removal is best-effort once the log-out succeeded.
func (a *Adapter) InvalidateSession(ctx context.Context, phoneNumber string) (bool, error) {
	registry, err := stores.NewSessionRegistry(phoneNumber, a.SessionsDir)
	if err != nil {
		return false, err
	}

	client, err := a.client(registry.SessionFilePath())
	if err != nil {
		return false, err
	}

	var invalidated bool
	err = client.Run(ctx, func(ctx context.Context) error {
		if err := client.LogOut(ctx); err != nil {
			return err
		}
		if _, err := a.records().Clear(phoneNumber); err != nil {
			slog.Warn("failed to clear registry record", "err", err)
		}
		_ = registry.Destroy(true)

		slog.Info("session invalidated successfully")
		invalidated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return invalidated, nil
}

// SendMessage delivers text to a recipient from the authenticated account.
// There is no explicit authentication check; an unauthenticated session
// fails at the remote call.
func (a *Adapter) SendMessage(ctx context.Context, phoneNumber, recipient, text string) (bool, error) {
	registry, err := stores.NewSessionRegistry(phoneNumber, a.SessionsDir)
	if err != nil {
		return false, err
	}

	client, err := a.client(registry.SessionFilePath())
	if err != nil {
		return false, err
	}

	var sent bool
	err = client.Run(ctx, func(ctx context.Context) error {
		if err := client.SendMessage(ctx, recipient, text); err != nil {
			return err
		}

		slog.Info("message sent successfully")
		sent = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return sent, nil
}
