package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"interviewer/internal/errors"

	"github.com/fsnotify/fsnotify"
)

const certReloadDebounce = time.Second

// CertReloader serves the current key pair and reloads it when either file changes
type CertReloader struct {
	certFile string
	keyFile  string
	logger   *errors.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
}

// NewCertReloader loads the initial key pair
func NewCertReloader(certFile, keyFile string, logger *errors.Logger) (*CertReloader, error) {
	cr := &CertReloader{certFile: certFile, keyFile: keyFile, logger: logger}
	if err := cr.Reload(); err != nil {
		return nil, err
	}
	return cr, nil
}

// Reload reads the key pair from disk. The previous pair stays in use on failure.
func (cr *CertReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	cr.mu.Lock()
	cr.cert = &cert
	cr.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.cert, nil
}

// Watch reloads the pair on file changes until ctx is cancelled. The parent
// directories are watched so atomic renames are seen.
func (cr *CertReloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create certificate watcher: %w", err)
	}

	watched := map[string]struct{}{}
	for _, file := range []string{cr.certFile, cr.keyFile} {
		abs, err := filepath.Abs(file)
		if err != nil {
			abs = file
		}
		watched[abs] = struct{}{}
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
		}
	}

	go cr.run(ctx, watcher, watched)
	return nil
}

func (cr *CertReloader) run(ctx context.Context, watcher *fsnotify.Watcher, watched map[string]struct{}) {
	defer func() { _ = watcher.Close() }()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if _, hit := watched[filepath.Clean(event.Name)]; !hit {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce = time.After(certReloadDebounce)
			}
		case <-debounce:
			debounce = nil
			if err := cr.Reload(); err != nil {
				cr.logger.LogError(err, "Certificate reload failed, keeping previous certificate")
				continue
			}
			cr.logger.Info("TLS certificate reloaded", "cert_file", cr.certFile)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			cr.logger.Warn("Certificate watcher error", "error", err)
		}
	}
}

// buildTLSConfig returns the server TLS config backed by the reloader
func (s *Server) buildTLSConfig(reloader *CertReloader) *tls.Config {
	return &tls.Config{
		MinVersion:     s.TLSConfig.MinTLSVersion(),
		GetCertificate: reloader.GetCertificate,
	}
}
