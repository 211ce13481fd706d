// Package signature signs the top-level Release file with an OpenPGP key,
// producing the InRelease and Release.gpg variants APT verifies.
package signature

import (
	"bytes"
	"crypto"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// EntityFromFile loads the first signing entity from an armored key file.
func EntityFromFile(path string) (*openpgp.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return EntityFromReader(f)
}

// EntityFromReader loads the first signing entity from an armored keyring.
// The private key must be present and unencrypted.
func EntityFromReader(in io.Reader) (*openpgp.Entity, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(in)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring contains no keys")
	}
	entity := keyring[0]
	if entity.PrivateKey == nil {
		return nil, fmt.Errorf("key has no private part")
	}
	if entity.PrivateKey.Encrypted {
		return nil, fmt.Errorf("private key is passphrase-protected")
	}
	return entity, nil
}

// signConfig matches gpg --digest-algo sha512.
func signConfig() *packet.Config {
	return &packet.Config{DefaultHash: crypto.SHA512}
}

// SignRelease reads dists' Release file and writes InRelease (clearsigned)
// and Release.gpg (armored detached signature) next to it.
func SignRelease(distDir, keyPath string) error {
	entity, err := EntityFromFile(keyPath)
	if err != nil {
		return fmt.Errorf("loading signing key %s: %w", keyPath, err)
	}

	release, err := os.ReadFile(filepath.Join(distDir, "Release"))
	if err != nil {
		return err
	}
	slog.Info("signing release",
		slog.String("dist", distDir),
		slog.String("key_id", entity.PrivateKey.KeyIdString()),
	)

	if err := writeInRelease(filepath.Join(distDir, "InRelease"), entity, release); err != nil {
		return fmt.Errorf("writing InRelease: %w", err)
	}
	if err := writeDetached(filepath.Join(distDir, "Release.gpg"), entity, release); err != nil {
		return fmt.Errorf("writing Release.gpg: %w", err)
	}
	return nil
}

func writeInRelease(path string, entity *openpgp.Entity, release []byte) error {
	var buf bytes.Buffer
	enc, err := clearsign.Encode(&buf, entity.PrivateKey, signConfig())
	if err != nil {
		return err
	}
	if _, err := enc.Write(release); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func writeDetached(path string, entity *openpgp.Entity, release []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := openpgp.ArmoredDetachSign(f, entity, bytes.NewReader(release), signConfig()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
