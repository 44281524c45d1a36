package web

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const defaultCertCacheDir = "cert-cache"

// StartWithAutoTLS serves HTTPS on the configured address with Let's Encrypt
// certificates for cfg.TLSDomains. Port 80 answers ACME challenges and
// redirects everything else to HTTPS.
func (s *Server) StartWithAutoTLS(ctx context.Context) error {
	if len(s.cfg.TLSDomains) == 0 {
		return errors.New("auto TLS requires at least one domain")
	}
	cacheDir := s.cfg.TLSCacheDir
	if cacheDir == "" {
		cacheDir = defaultCertCacheDir
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(s.cfg.TLSDomains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := s.httpServer()
	httpsSrv.TLSConfig = tlsConfig

	stop := s.shutdownOnDone(ctx, httpSrv, httpsSrv)
	defer stop()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme http server error", zap.Error(err))
		}
	}()

	s.logger.Info("api server listening with auto TLS",
		zap.String("addr", httpsSrv.Addr),
		zap.Strings("domains", s.cfg.TLSDomains),
	)
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve api over TLS")
	}
	return nil
}
