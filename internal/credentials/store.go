// Package credentials persists the repository-host connection between runs.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/denisbrodbeck/machineid"
	"gopkg.in/yaml.v3"

	"tekshila/internal/model"
)

// Store saves and restores a single connection.
type Store interface {
	// Load returns the saved connection; ok is false when nothing is saved.
	Load() (c model.Connection, ok bool, err error)
	Save(c model.Connection) error
	Clear() error
}

const appID = "tekshila"

// DefaultPath returns the credentials file under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appID, "credentials.yaml"), nil
}

// record is the on-disk shape. The token is sealed; the identity is not.
type record struct {
	Host        string    `yaml:"host"`
	Handle      string    `yaml:"handle"`
	DisplayName string    `yaml:"display_name,omitempty"`
	Token       string    `yaml:"token"` // base64(nonce || AES-GCM ciphertext)
	SavedAt     time.Time `yaml:"saved_at"`
}

// File stores the connection in a 0600 YAML file with the token sealed by a
// key derived from the machine id. It keeps casual readers and backups from
// seeing a plain-text token; it is not a keychain.
type File struct {
	Path string
	Host string // connections saved for another host are ignored on Load

	key func() ([]byte, error)
}

// NewFile returns a file store at path for host.
func NewFile(path, host string) *File {
	return &File{Path: path, Host: host, key: machineKey}
}

func (f *File) Load() (model.Connection, bool, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Connection{}, false, nil
		}
		return model.Connection{}, false, fmt.Errorf("read credentials: %w", err)
	}
	var r record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return model.Connection{}, false, fmt.Errorf("parse credentials: %w", err)
	}
	if r.Host != f.Host {
		return model.Connection{}, false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(r.Token)
	if err != nil {
		return model.Connection{}, false, fmt.Errorf("decode token: %w", err)
	}
	token, err := f.open(raw)
	if err != nil {
		return model.Connection{}, false, fmt.Errorf("unseal token: %w", err)
	}
	c, err := model.NewConnection(string(token), model.Identity{Handle: r.Handle, DisplayName: r.DisplayName})
	if err != nil {
		return model.Connection{}, false, fmt.Errorf("saved credentials: %w", err)
	}
	return c, true, nil
}

func (f *File) Save(c model.Connection) error {
	if !c.Valid() {
		return errors.New("refusing to save an incomplete connection")
	}
	sealed, err := f.seal([]byte(c.Token))
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	data, err := yaml.Marshal(record{
		Host:        f.Host,
		Handle:      c.Identity.Handle,
		DisplayName: c.Identity.DisplayName,
		Token:       base64.StdEncoding.EncodeToString(sealed),
		SavedAt:     time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (f *File) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func (f *File) gcm() (cipher.AEAD, error) {
	keyFn := f.key
	if keyFn == nil {
		keyFn = machineKey
	}
	key, err := keyFn()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *File) seal(plain []byte) ([]byte, error) {
	g, err := f.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, g.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return g.Seal(nonce, nonce, plain, nil), nil
}

func (f *File) open(sealed []byte) ([]byte, error) {
	g, err := f.gcm()
	if err != nil {
		return nil, err
	}
	if len(sealed) < g.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	return g.Open(nil, sealed[:g.NonceSize()], sealed[g.NonceSize():], nil)
}

// machineKey derives the sealing key from the app-scoped machine id, falling
// back to OS and user name where no machine id is available.
func machineKey() ([]byte, error) {
	id, err := machineid.ProtectedID(appID)
	if err != nil || id == "" {
		id = fmt.Sprintf("%s-%s-%s", appID, runtime.GOOS, os.Getenv("USER"))
	}
	sum := sha256.Sum256([]byte(id))
	return sum[:], nil
}

// Memory keeps the connection in process; used where nothing may touch disk.
type Memory struct {
	conn *model.Connection
}

func (m *Memory) Load() (model.Connection, bool, error) {
	if m.conn == nil {
		return model.Connection{}, false, nil
	}
	return *m.conn, true, nil
}

func (m *Memory) Save(c model.Connection) error {
	if !c.Valid() {
		return errors.New("refusing to save an incomplete connection")
	}
	m.conn = &c
	return nil
}

func (m *Memory) Clear() error {
	m.conn = nil
	return nil
}
