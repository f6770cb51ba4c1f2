package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/robinhood-client/robinhood-client-go/pkg/encoder"
)

// ErrInvalidProfile is returned for profile names that cannot be used as a storage key.
var ErrInvalidProfile = errors.New("invalid profile name")

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9@._+-]{1,128}$`)

// ValidateProfile reports whether profile can be used as a storage key.
func ValidateProfile(profile string) error {
	if !profilePattern.MatchString(profile) || profile == "." || profile == ".." {
		return fmt.Errorf("%w: '%s'", ErrInvalidProfile, profile)
	}
	return nil
}

// storedSession is the on-disk form of a Session. Tokens are sealed.
type storedSession struct {
	TokenType     string `json:"token_type"`
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	DeviceToken   string `json:"device_token"`
	AccountNumber string `json:"account_number,omitempty"`
	ExpiresIn     int64  `json:"expires_in"`
	CreatedAt     int64  `json:"created_at"`
}

// FileStore keeps one JSON file per profile in a directory.
type FileStore struct {
	dir    string
	sealer *encoder.Sealer
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at dir, creating the directory if needed.
func NewFileStore(dir string, sealer *encoder.Sealer) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file session store requires a path")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return &FileStore{dir: dir, sealer: sealer}, nil
}

func (f *FileStore) path(profile string) string {
	return filepath.Join(f.dir, profile+".json")
}

func (f *FileStore) Load(_ context.Context, profile string) (*Session, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path(profile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return unseal(f.sealer, stored)
}

func (f *FileStore) Save(_ context.Context, profile string, s *Session) error {
	if err := ValidateProfile(profile); err != nil {
		return err
	}

	stored, err := seal(f.sealer, s)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, profile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return os.Rename(tmp.Name(), f.path(profile))
}

func (f *FileStore) Delete(_ context.Context, profile string) error {
	if err := ValidateProfile(profile); err != nil {
		return err
	}

	err := os.Remove(f.path(profile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}

func seal(sealer *encoder.Sealer, s *Session) (storedSession, error) {
	access, err := sealer.Seal(s.AccessToken)
	if err != nil {
		return storedSession{}, fmt.Errorf("failed to seal access token: %w", err)
	}
	refresh, err := sealer.Seal(s.RefreshToken)
	if err != nil {
		return storedSession{}, fmt.Errorf("failed to seal refresh token: %w", err)
	}

	return storedSession{
		TokenType:     s.TokenType,
		AccessToken:   access,
		RefreshToken:  refresh,
		DeviceToken:   s.DeviceToken,
		AccountNumber: s.AccountNumber,
		ExpiresIn:     int64(s.ExpiresIn / time.Second),
		CreatedAt:     s.CreatedAt.UnixMilli(),
	}, nil
}

func unseal(sealer *encoder.Sealer, stored storedSession) (*Session, error) {
	access, err := sealer.Open(stored.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to open access token: %w", err)
	}
	refresh, err := sealer.Open(stored.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to open refresh token: %w", err)
	}

	return &Session{
		TokenType:     stored.TokenType,
		AccessToken:   access,
		RefreshToken:  refresh,
		DeviceToken:   stored.DeviceToken,
		AccountNumber: stored.AccountNumber,
		ExpiresIn:     time.Duration(stored.ExpiresIn) * time.Second,
		CreatedAt:     time.UnixMilli(stored.CreatedAt).UTC(),
	}, nil
}
