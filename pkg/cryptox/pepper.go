package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	pepperOnce sync.Once
	pepper     string
	pepperFile string
)

// SetPepperPath configures where the pepper file lives. Must be called before
// the first hash/verify; later calls have no effect once the pepper loaded.
func SetPepperPath(file string) {
	pepperFile = file
}

// GetPepper returns the process-wide pepper, loading or generating it on
// first use. An empty pepper path disables peppering entirely.
func GetPepper() string {
	pepperOnce.Do(func() {
		if pepperFile == "" {
			return
		}
		p, err := loadOrGeneratePepper(pepperFile)
		if err != nil {
			slog.Error("failed to load or generate pepper", slog.Any("err", err))
			os.Exit(1)
		}
		pepper = p
	})
	return pepper
}

// loadOrGeneratePepper reads the pepper file, creating it with fresh random
// material when absent.
func loadOrGeneratePepper(file string) (string, error) {
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", err
	}

	if _, err := os.Stat(file); os.IsNotExist(err) {
		buf := make([]byte, keyLength)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		p := base64.RawURLEncoding.EncodeToString(buf)
		if err := os.WriteFile(file, []byte(p), 0600); err != nil {
			return "", err
		}
		return p, nil
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
