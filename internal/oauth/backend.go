package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by a Backend that holds no credential.
var ErrNoToken = errors.New("no stored credential")

// Backend persists a single credential record.
type Backend interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	Delete() error
}

// record is the on-disk shape of a credential.
type record struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	Scope        string    `json:"scope,omitempty"`
}

func encodeToken(tok *oauth2.Token) ([]byte, error) {
	if tok == nil {
		return nil, errors.New("missing oauth token")
	}
	rec := record{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scope:        Scope(tok),
	}
	return json.MarshalIndent(rec, "", "  ")
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("malformed credential: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken:  rec.AccessToken,
		TokenType:    rec.TokenType,
		RefreshToken: rec.RefreshToken,
		Expiry:       rec.Expiry,
	}
	if rec.Scope != "" {
		tok = tok.WithExtra(map[string]any{"scope": rec.Scope})
	}
	return tok, nil
}

// Scope returns the scope granted with tok, if the server reported one.
func Scope(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	scope, _ := tok.Extra("scope").(string)
	return scope
}

// FileBackend keeps the credential in a JSON file.
type FileBackend struct {
	Path string
}

func (b FileBackend) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, err
	}
	return decodeToken(data)
}

// Save writes through a temp file and rename so a crash never leaves a
// truncated credential behind.
func (b FileBackend) Save(tok *oauth2.Token) error {
	data, err := encodeToken(tok)
	if err != nil {
		return err
	}
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.Path)
}

func (b FileBackend) Delete() error {
	if err := os.Remove(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (b FileBackend) String() string {
	return b.Path
}

const keyringService = "go.withmatt.com/otpwatch"

// KeyringBackend keeps the credential in the OS keyring.
type KeyringBackend struct {
	Account string
}

func (b KeyringBackend) account() string {
	return strings.ToLower(strings.TrimSpace(b.Account))
}

func (b KeyringBackend) Load() (*oauth2.Token, error) {
	value, err := keyring.Get(keyringService, b.account())
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("unable to load oauth token from keyring: %w", err)
	}
	return decodeToken([]byte(value))
}

func (b KeyringBackend) Save(tok *oauth2.Token) error {
	data, err := encodeToken(tok)
	if err != nil {
		return err
	}
	return keyring.Set(keyringService, b.account(), string(data))
}

func (b KeyringBackend) Delete() error {
	if err := keyring.Delete(keyringService, b.account()); err != nil &&
		!errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("unable to delete token from keyring: %w", err)
	}
	return nil
}

func (b KeyringBackend) String() string {
	return "keyring:" + b.account()
}
