package telegram_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/relaykit/pnba"
	"github.com/relaykit/pnba/stores"
	"github.com/relaykit/pnba/telegram"
)

// fakeClient scripts the remote calls of one adapter operation.
type fakeClient struct {
	authorized  bool
	codeHash    string
	sendCodeErr error
	signInErr   error
	passwordErr error
	logOutErr   error
	sendMsgErr  error
	firstName   string

	// captured arguments
	gotPhone     string
	gotCode      string
	gotCodeHash  string
	gotRecipient string
	gotText      string

	ran       bool
	loggedOut bool
}

func (f *fakeClient) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	f.ran = true
	return fn(ctx)
}

func (f *fakeClient) Authorized(ctx context.Context) (bool, error) {
	return f.authorized, nil
}

func (f *fakeClient) SendCode(ctx context.Context, phoneNumber string) (string, error) {
	f.gotPhone = phoneNumber
	if f.sendCodeErr != nil {
		return "", f.sendCodeErr
	}
	return f.codeHash, nil
}

func (f *fakeClient) SignIn(ctx context.Context, phoneNumber, code, codeHash string) error {
	f.gotPhone = phoneNumber
	f.gotCode = code
	f.gotCodeHash = codeHash
	return f.signInErr
}

func (f *fakeClient) SignInWithPassword(ctx context.Context, password string) error {
	return f.passwordErr
}

func (f *fakeClient) Self(ctx context.Context) (*telegram.User, error) {
	return &telegram.User{FirstName: f.firstName}, nil
}

func (f *fakeClient) LogOut(ctx context.Context) error {
	if f.logOutErr != nil {
		return f.logOutErr
	}
	f.loggedOut = true
	return nil
}

func (f *fakeClient) SendMessage(ctx context.Context, recipient, text string) error {
	f.gotRecipient = recipient
	f.gotText = text
	return f.sendMsgErr
}

func setupAdapter(t *testing.T, fake *fakeClient) *telegram.Adapter {
	t.Helper()
	adapter := telegram.NewAdapter(pnba.Credentials{APIID: 12345, APIHash: "hash"}, t.TempDir())
	adapter.NewClient = func(creds pnba.Credentials, sessionFile string) (telegram.Client, error) {
		return fake, nil
	}
	return adapter
}

func registryFor(t *testing.T, adapter *telegram.Adapter, phone string) *stores.SessionRegistry {
	t.Helper()
	registry, err := stores.NewSessionRegistry(phone, adapter.SessionsDir)
	if err != nil {
		t.Fatalf("Failed to open registry: %v", err)
	}
	return registry
}

func TestSendAuthorizationCode(t *testing.T) {
	fake := &fakeClient{codeHash: "hash-1"}
	adapter := setupAdapter(t, fake)

	result, err := adapter.SendAuthorizationCode(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("SendAuthorizationCode failed: %v", err)
	}
	if !result.Success {
		t.Errorf("Expected success, got %+v", result)
	}
	if result.Message != "Authorization code sent. Check your Telegram app." {
		t.Errorf("Unexpected message: %q", result.Message)
	}
	if !fake.ran {
		t.Error("Operation never connected the client")
	}

	record, err := registryFor(t, adapter, "+15551234567").Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if record["phone_code_hash"] != "hash-1" {
		t.Errorf("Verification token not persisted: %v", record)
	}
}

func TestSendAuthorizationCodeAlreadyAuthorized(t *testing.T) {
	fake := &fakeClient{authorized: true}
	adapter := setupAdapter(t, fake)

	result, err := adapter.SendAuthorizationCode(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("Expected a soft failure, got error: %v", err)
	}
	if result.Success {
		t.Error("Expected success=false for an already authorized account")
	}
	if result.Message != "User is already authorized." {
		t.Errorf("Unexpected message: %q", result.Message)
	}

	registry := registryFor(t, adapter, "+15551234567")
	if _, err := os.Stat(registry.RegistryPath()); !os.IsNotExist(err) {
		t.Error("No registry file should be created for an already authorized account")
	}
}

func TestSendAuthorizationCodeTwiceDiscardsPriorState(t *testing.T) {
	fake := &fakeClient{codeHash: "hash-1"}
	adapter := setupAdapter(t, fake)
	phone := "+15551234567"

	if _, err := adapter.SendAuthorizationCode(context.Background(), phone); err != nil {
		t.Fatalf("First send failed: %v", err)
	}
	// Extra state from the first handshake must not survive the second.
	if err := registryFor(t, adapter, phone).Update(pnba.RegistryRecord{"leftover": "yes"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fake.codeHash = "hash-2"
	if _, err := adapter.SendAuthorizationCode(context.Background(), phone); err != nil {
		t.Fatalf("Second send failed: %v", err)
	}

	record, err := registryFor(t, adapter, phone).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(record) != 1 || record["phone_code_hash"] != "hash-2" {
		t.Errorf("Expected only the second token, got %v", record)
	}
}

func TestValidateCodeAndFetchUserInfo(t *testing.T) {
	fake := &fakeClient{firstName: "Alice"}
	adapter := setupAdapter(t, fake)
	phone := "+15551234567"

	registry := registryFor(t, adapter, phone)
	if err := registry.Write(pnba.RegistryRecord{"phone_code_hash": "hash-1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	result, err := adapter.ValidateCodeAndFetchUserInfo(context.Background(), phone, "12345")
	if err != nil {
		t.Fatalf("ValidateCodeAndFetchUserInfo failed: %v", err)
	}

	if result.TwoStepVerificationEnabled == nil || *result.TwoStepVerificationEnabled {
		t.Error("Expected two_step_verification_enabled=false")
	}
	if result.UserInfo.AccountIdentifier != phone {
		t.Errorf("Unexpected account identifier: %q", result.UserInfo.AccountIdentifier)
	}
	if result.UserInfo.Name == nil || *result.UserInfo.Name != "Alice" {
		t.Errorf("Expected name Alice, got %v", result.UserInfo.Name)
	}
	if fake.gotCodeHash != "hash-1" || fake.gotCode != "12345" {
		t.Errorf("Stored token not submitted: hash=%q code=%q", fake.gotCodeHash, fake.gotCode)
	}

	if _, err := os.Stat(registry.RegistryPath()); !os.IsNotExist(err) {
		t.Error("Registry file should be cleared after successful authentication")
	}
}

func TestValidateCodePasswordRequired(t *testing.T) {
	fake := &fakeClient{signInErr: telegram.ErrPasswordRequired}
	adapter := setupAdapter(t, fake)
	phone := "+15551234567"

	registry := registryFor(t, adapter, phone)
	if err := registry.Write(pnba.RegistryRecord{"phone_code_hash": "hash-1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	result, err := adapter.ValidateCodeAndFetchUserInfo(context.Background(), phone, "12345")
	if err != nil {
		t.Fatalf("Second factor should not surface as an error: %v", err)
	}

	if !result.PasswordGated() {
		t.Error("Expected two_step_verification_enabled=true")
	}
	if result.UserInfo.Name != nil {
		t.Errorf("Expected nil name before the password step, got %q", *result.UserInfo.Name)
	}

	// The registry stays intact for the password step.
	record, err := registry.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if record["phone_code_hash"] != "hash-1" {
		t.Errorf("Registry should survive a password-gated validation: %v", record)
	}
}

func TestValidateCodeWithoutStoredToken(t *testing.T) {
	wantErr := errors.New("PHONE_CODE_HASH_EMPTY")
	fake := &fakeClient{signInErr: wantErr}
	adapter := setupAdapter(t, fake)

	// No send-code happened; the call proceeds with an empty token and the
	// remote rejection propagates untranslated.
	_, err := adapter.ValidateCodeAndFetchUserInfo(context.Background(), "+15551234567", "12345")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected remote error to propagate, got %v", err)
	}
	if fake.gotCodeHash != "" {
		t.Errorf("Expected empty token, got %q", fake.gotCodeHash)
	}
}

func TestValidatePasswordAndFetchUserInfo(t *testing.T) {
	fake := &fakeClient{firstName: "Alice"}
	adapter := setupAdapter(t, fake)
	phone := "+15551234567"

	registry := registryFor(t, adapter, phone)
	if err := registry.Write(pnba.RegistryRecord{"phone_code_hash": "hash-1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	result, err := adapter.ValidatePasswordAndFetchUserInfo(context.Background(), phone, "hunter2")
	if err != nil {
		t.Fatalf("ValidatePasswordAndFetchUserInfo failed: %v", err)
	}
	if result.UserInfo.Name == nil || *result.UserInfo.Name != "Alice" {
		t.Errorf("Expected name Alice, got %v", result.UserInfo.Name)
	}
	if result.TwoStepVerificationEnabled != nil {
		t.Error("Password-step result should not carry the two-step flag")
	}

	if _, err := os.Stat(registry.RegistryPath()); !os.IsNotExist(err) {
		t.Error("Registry file should be cleared after the password step")
	}
}

func TestValidatePasswordFailurePropagates(t *testing.T) {
	wantErr := errors.New("PASSWORD_HASH_INVALID")
	fake := &fakeClient{passwordErr: wantErr}
	adapter := setupAdapter(t, fake)

	_, err := adapter.ValidatePasswordAndFetchUserInfo(context.Background(), "+15551234567", "wrong")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected remote error to propagate, got %v", err)
	}
}

func TestInvalidateSession(t *testing.T) {
	fake := &fakeClient{}
	adapter := setupAdapter(t, fake)
	phone := "+15551234567"

	registry := registryFor(t, adapter, phone)
	if err := registry.Write(pnba.RegistryRecord{"phone_code_hash": "hash-1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.WriteFile(registry.SessionFilePath(), []byte("session"), 0644); err != nil {
		t.Fatalf("Failed to write session artifact: %v", err)
	}

	invalidated, err := adapter.InvalidateSession(context.Background(), phone)
	if err != nil {
		t.Fatalf("InvalidateSession failed: %v", err)
	}
	if !invalidated {
		t.Error("Expected invalidated=true")
	}
	if !fake.loggedOut {
		t.Error("Expected a remote log-out")
	}
	if _, err := os.Stat(registry.Dir()); !os.IsNotExist(err) {
		t.Error("Session directory should be removed entirely")
	}
}

func TestInvalidateSessionLogOutFailurePropagates(t *testing.T) {
	wantErr := errors.New("connection reset")
	fake := &fakeClient{logOutErr: wantErr}
	adapter := setupAdapter(t, fake)
	phone := "+15551234567"

	registry := registryFor(t, adapter, phone)
	if err := registry.Write(pnba.RegistryRecord{"phone_code_hash": "hash-1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	_, err := adapter.InvalidateSession(context.Background(), phone)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected log-out error to propagate, got %v", err)
	}
	if _, statErr := os.Stat(registry.Dir()); statErr != nil {
		t.Error("Session directory should survive a failed log-out")
	}
}

func TestSendMessage(t *testing.T) {
	fake := &fakeClient{}
	adapter := setupAdapter(t, fake)

	sent, err := adapter.SendMessage(context.Background(), "+15551234567", "@bob", "hello")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if !sent {
		t.Error("Expected sent=true")
	}
	if fake.gotRecipient != "@bob" || fake.gotText != "hello" {
		t.Errorf("Unexpected delivery: recipient=%q text=%q", fake.gotRecipient, fake.gotText)
	}
}

// memoryRecordStore is a swapped-in bookkeeping backend.
type memoryRecordStore struct {
	records map[string]pnba.RegistryRecord
}

func newMemoryRecordStore() *memoryRecordStore {
	return &memoryRecordStore{records: map[string]pnba.RegistryRecord{}}
}

func (s *memoryRecordStore) Read(phoneNumber string) (pnba.RegistryRecord, error) {
	record := pnba.RegistryRecord{}
	for k, v := range s.records[phoneNumber] {
		record[k] = v
	}
	return record, nil
}

func (s *memoryRecordStore) Write(phoneNumber string, record pnba.RegistryRecord) error {
	s.records[phoneNumber] = record
	return nil
}

func (s *memoryRecordStore) Update(phoneNumber string, fields pnba.RegistryRecord) error {
	record, ok := s.records[phoneNumber]
	if !ok {
		record = pnba.RegistryRecord{}
		s.records[phoneNumber] = record
	}
	for k, v := range fields {
		record[k] = v
	}
	return nil
}

func (s *memoryRecordStore) Clear(phoneNumber string) (bool, error) {
	_, existed := s.records[phoneNumber]
	delete(s.records, phoneNumber)
	return existed, nil
}

func TestSwappedRecordStoreServesHandshake(t *testing.T) {
	fake := &fakeClient{codeHash: "hash-1", firstName: "Alice"}
	adapter := setupAdapter(t, fake)
	store := newMemoryRecordStore()
	adapter.Records = store
	phone := "+15551234567"

	if _, err := adapter.SendAuthorizationCode(context.Background(), phone); err != nil {
		t.Fatalf("SendAuthorizationCode failed: %v", err)
	}
	if store.records[phone]["phone_code_hash"] != "hash-1" {
		t.Errorf("Verification token not routed through the store: %v", store.records)
	}

	// Nothing handshake-related lands on disk when the backend is swapped.
	registry := registryFor(t, adapter, phone)
	if _, err := os.Stat(registry.RegistryPath()); !os.IsNotExist(err) {
		t.Error("File registry should stay untouched with a swapped store")
	}

	if _, err := adapter.ValidateCodeAndFetchUserInfo(context.Background(), phone, "12345"); err != nil {
		t.Fatalf("ValidateCodeAndFetchUserInfo failed: %v", err)
	}
	if fake.gotCodeHash != "hash-1" {
		t.Errorf("Stored token not submitted: %q", fake.gotCodeHash)
	}
	if _, present := store.records[phone]; present {
		t.Errorf("Record should be cleared after successful authentication: %v", store.records)
	}
}

func TestSendMessageUnauthenticatedPropagates(t *testing.T) {
	wantErr := errors.New("AUTH_KEY_UNREGISTERED")
	fake := &fakeClient{sendMsgErr: wantErr}
	adapter := setupAdapter(t, fake)

	_, err := adapter.SendMessage(context.Background(), "+15551234567", "@bob", "hello")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected remote error to propagate, got %v", err)
	}
}
