package pnba

import "context"

// Protocol is the capability set a PNBA adapter exposes to a host
// authentication framework. Implementations hold loaded credentials and
// construct a short-lived client connection per call; no connection is held
// across operations.
type Protocol interface {
	// SendAuthorizationCode requests a one-time login code for the phone
	// number. Any prior session directory for the number is destroyed and
	// recreated, discarding an in-flight handshake. An already-authorized
	// account is reported as a soft failure in the result, not an error.
	SendAuthorizationCode(ctx context.Context, phoneNumber string) (*SendCodeResult, error)

	// ValidateCodeAndFetchUserInfo submits the received code together with
	// the stored verification token. When the account has two-step
	// verification enabled the result says so and carries no name; the
	// registry is left intact for the password step.
	ValidateCodeAndFetchUserInfo(ctx context.Context, phoneNumber, code string) (*ValidationResult, error)

	// ValidatePasswordAndFetchUserInfo submits the second-factor password,
	// completing a handshake that validate-code reported as password-gated.
	ValidatePasswordAndFetchUserInfo(ctx context.Context, phoneNumber, password string) (*ValidationResult, error)

	// InvalidateSession logs the account out and removes the entire session
	// directory, registry included.
	InvalidateSession(ctx context.Context, phoneNumber string) (bool, error)

	// SendMessage delivers a text message from the authenticated account to
	// a recipient (username or phone number). Fails if the session is not
	// authenticated.
	SendMessage(ctx context.Context, phoneNumber, recipient, message string) (bool, error)
}

// SendCodeResult reports the outcome of a send-code request.
type SendCodeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserInfo identifies the authenticated account.
type UserInfo struct {
	AccountIdentifier string  `json:"account_identifier"`
	Name              *string `json:"name"`
}

// ValidationResult is returned by the code and password validation steps.
// TwoStepVerificationEnabled is set only by the code step; when true the
// handshake is not finished and Name is nil. The password step leaves it nil
// and its serialized result carries userinfo alone.
type ValidationResult struct {
	TwoStepVerificationEnabled *bool    `json:"two_step_verification_enabled,omitempty"`
	UserInfo                   UserInfo `json:"userinfo"`
}

// PasswordGated reports whether the result demands a second-factor password
// before the handshake can finish.
func (r *ValidationResult) PasswordGated() bool {
	return r.TwoStepVerificationEnabled != nil && *r.TwoStepVerificationEnabled
}

// RegistryRecord is the open-ended key/value bookkeeping carried between
// handshake steps. There is no schema; the only key the adapter itself uses
// is "phone_code_hash".
type RegistryRecord = map[string]any

// RecordStore gives hosts a pluggable backend for registry records, keyed by
// phone number. The stores package implements it over per-phone JSON files;
// stores/gorm over a database table.
type RecordStore interface {
	// Read returns the record for the phone number, or an empty record if
	// none exists.
	Read(phoneNumber string) (RegistryRecord, error)

	// Write replaces the record wholesale.
	Write(phoneNumber string, record RegistryRecord) error

	// Update shallow-merges fields into the current record. Creating the
	// record if missing is equivalent to Write.
	Update(phoneNumber string, fields RegistryRecord) error

	// Clear deletes the record, reporting whether one existed. Idempotent.
	Clear(phoneNumber string) (bool, error)
}
