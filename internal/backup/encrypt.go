package backup

import (
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// ParseRecipients parses age public keys ("age1...").
func ParseRecipients(keys []string) ([]age.Recipient, error) {
	var out []age.Recipient
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		r, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("invalid age recipient %q: %w", key, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// PassphraseRecipient returns a scrypt recipient for passphrase.
func PassphraseRecipient(passphrase string) (age.Recipient, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("empty passphrase")
	}
	r, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("initialize passphrase encryption: %w", err)
	}
	return r, nil
}

// EncryptFile encrypts src to dst for recipients. dst is removed on failure.
func EncryptFile(src, dst string, recipients ...age.Recipient) (err error) {
	if len(recipients) == 0 {
		return fmt.Errorf("encryption enabled but no AGE recipients configured")
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dst, cerr)
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	w, err := age.Encrypt(out, recipients...)
	if err != nil {
		return fmt.Errorf("initialize age encryption: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("encrypt %s: %w", src, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize encrypted archive: %w", err)
	}
	return nil
}
