package credential

import (
	"fmt"
	"net/url"

	"github.com/99designs/keyring"

	"github.com/nhle/compliance-notifier/internal/model"
)

const serviceName = "compliance-notifier"

// openKeyring is replaced in tests with an in-memory keyring.
var openKeyring = openSystemKeyring

// openSystemKeyring returns a configured keyring instance.
func openSystemKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/compliance-notifier/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("compliance-notifier-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "compliance-notifier " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// ResolveDSN returns the database DSN with the keyring password filled in
// when cfg.PasswordKey is set. SQLite DSNs are returned unchanged.
func ResolveDSN(cfg model.DatabaseConfig) (string, error) {
	if cfg.PasswordKey == "" || cfg.Driver != "postgres" {
		return cfg.DSN, nil
	}

	password, err := Get(cfg.PasswordKey)
	if err != nil {
		return "", err
	}

	return InjectPassword(cfg.DSN, password)
}

// InjectPassword sets the password of a postgres:// URL DSN, keeping the
// existing user name.
func InjectPassword(dsn, password string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing dsn: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("dsn must be a postgres:// URL to inject a password")
	}

	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, password)

	return u.String(), nil
}
