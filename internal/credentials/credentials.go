package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	ErrInvalidCredentials = errors.New("credentials: invalid username or password")
	ErrNotFound           = errors.New("credentials: reference not found")
)

const hiddenPassword = "********"

// Credentials is a database login. Its formatting methods never print the
// password.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrInvalidCredentials
	}
	return nil
}

func (c Credentials) String() string {
	return c.Username + "/" + hiddenPassword
}

func (c Credentials) GoString() string {
	return fmt.Sprintf("credentials.Credentials{Username:%q, Password:%q}", c.Username, hiddenPassword)
}

// Store resolves an opaque credential reference.
type Store interface {
	Lookup(ctx context.Context, ref string) (Credentials, error)
}

// Resolve prefers the store entry for ref and falls back to the directly
// supplied pair. The result must carry both a username and a password.
func Resolve(ctx context.Context, store Store, ref string, direct Credentials) (Credentials, error) {
	creds := direct
	if ref = strings.TrimSpace(ref); ref != "" && store != nil {
		found, err := store.Lookup(ctx, ref)
		switch {
		case err == nil:
			creds = found
		case errors.Is(err, ErrNotFound):
		default:
			return Credentials{}, err
		}
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("%w: credentials_id=%q", err, ref)
	}
	return creds, nil
}

type fileCredential struct {
	ID       string `toml:"id"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type fileCredentials struct {
	Credential []fileCredential `toml:"credential"`
}

// FileStore reads [[credential]] entries from a TOML file.
type FileStore struct {
	items map[string]Credentials
}

// LoadFileStore parses path once; lookups are served from memory.
func LoadFileStore(path string) (*FileStore, error) {
	var raw fileCredentials
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	items := make(map[string]Credentials, len(raw.Credential))
	for i, entry := range raw.Credential {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("credential[%d]: missing id", i)
		}
		if _, ok := items[id]; ok {
			return nil, fmt.Errorf("credential[%d]: duplicate id %q", i, id)
		}
		items[id] = Credentials{Username: strings.TrimSpace(entry.Username), Password: entry.Password}
	}
	return &FileStore{items: items}, nil
}

func (s *FileStore) Lookup(_ context.Context, ref string) (Credentials, error) {
	creds, ok := s.items[ref]
	if !ok {
		return Credentials{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	return creds, nil
}
