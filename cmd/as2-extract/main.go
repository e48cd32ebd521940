// Command as2-extract recovers the EDI payloads of stored AS2 messages.
//
// Each argument is a file holding one received message: the HTTP or MIME
// header block, a blank line and the body. Signed, compressed and
// encrypted layers are removed; encrypted messages are opened with the key
// of the AS2-To identity taken from the configured keystore.
//
// Usage:
//
//	as2-extract [-config file] [-workers n] [-out dir] [-partner id] message...
//
// With a single message and no -out directory the payload is written to
// stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/gammazero/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirosfoundation/go-as2/internal/config"
	"github.com/sirosfoundation/go-as2/internal/keystore"
	"github.com/sirosfoundation/go-as2/pkg/as2"
	"github.com/sirosfoundation/go-as2/pkg/entity"
	"github.com/sirosfoundation/go-as2/pkg/mime"
	"github.com/sirosfoundation/go-as2/pkg/protocol"
	"github.com/sirosfoundation/go-as2/pkg/security"
)

var (
	configPath = flag.String("config", "", "Path to YAML configuration file")
	workers    = flag.Int("workers", runtime.NumCPU(), "Number of messages processed concurrently")
	outDir     = flag.String("out", "", "Directory to write extracted payloads to")
	partnerID  = flag.String("partner", "", "Local AS2 identity whose key opens encrypted messages (default: AS2-To header)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] message...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg.Logging)

	if err := run(cfg, logger, flag.Args()); err != nil {
		logger.Error("Extraction failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// extractor couples the extraction engine with key lookup for one run
type extractor struct {
	engine   *as2.Extractor
	keys     keystore.KeyProvider
	partner  string
	fallback string
	logger   *slog.Logger
}

func run(cfg *config.Config, logger *slog.Logger, paths []string) error {
	var reg *prometheus.Registry
	opts := []as2.Option{
		as2.WithLogger(logger),
		as2.WithMaxDecompressedSize(cfg.Extraction.MaxDecompressedSize),
	}
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		opts = append(opts, as2.WithMetrics(as2.NewMetrics(cfg.Metrics.Namespace, reg)))
	}

	keys, err := keystore.NewProvider(&cfg.Keystore)
	if err != nil {
		// Unencrypted messages do not need a key
		logger.Warn("Keystore unavailable", slog.String("mode", cfg.Keystore.Mode), slog.String("error", err.Error()))
		keys = nil
	} else {
		defer keys.Close()
	}

	x := &extractor{
		engine:   as2.NewExtractor(opts...),
		keys:     keys,
		partner:  *partnerID,
		fallback: cfg.Keystore.DefaultPartner,
		logger:   logger,
	}

	toStdout := len(paths) == 1 && *outDir == ""
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	var failed atomic.Int64
	wp := workerpool.New(max(*workers, 1))

	for _, path := range paths {
		path := path
		wp.Submit(func() {
			if err := x.process(path, toStdout); err != nil {
				failed.Add(1)
				logger.Error("Message rejected",
					slog.String("path", path),
					slog.String("kind", kindLabel(err)),
					slog.String("error", err.Error()))
			}
		})
	}
	wp.StopWait()

	if reg != nil {
		logMetrics(logger, reg)
	}

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d messages failed", n, len(paths))
	}
	return nil
}

func (x *extractor) process(path string, toStdout bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	msg, err := entity.ReadMessage(f)
	if err != nil {
		return err
	}

	key, err := x.decryptionKey(msg)
	if err != nil {
		return err
	}

	payload, err := x.engine.Extract(msg, key)
	if err != nil {
		return err
	}

	if toStdout {
		_, err = os.Stdout.Write(payload.Content())
		return err
	}

	target := filepath.Join(*outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".edi")
	if err := os.WriteFile(target, payload.Content(), 0o644); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}

	x.logger.Info("Payload extracted",
		slog.String("path", path),
		slog.String("output", target),
		slog.String("format", payload.Format().String()))
	return nil
}

// decryptionKey resolves the key for an encrypted message. Encryption is
// only allowed as the outermost layer, so the top-level smime-type decides.
func (x *extractor) decryptionKey(msg *entity.Message) (*security.DecryptionKey, error) {
	smimeType, _ := mime.GetParameter(msg, mime.HeaderContentType, mime.ParamSMIMEType)
	if !strings.EqualFold(smimeType, mime.SMIMETypeEnvelopedData) || x.keys == nil {
		return nil, nil
	}

	partner := x.identity(msg)
	key, err := x.keys.GetDecryptionKey(context.Background(), partner)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrMissingPrivateKey, err, "no decryption key for %q", partner)
	}
	return key, nil
}

// identity picks the local AS2 identity whose key decrypts msg
func (x *extractor) identity(msg *entity.Message) string {
	if x.partner != "" {
		return x.partner
	}
	if to, ok := mime.GetHeader(msg, "AS2-To"); ok {
		if id := keystore.NormalizePartnerID(to); id != "" {
			return id
		}
	}
	return x.fallback
}

func kindLabel(err error) string {
	if kind := protocol.KindOf(err); kind != nil {
		return kind.Error()
	}
	return "io"
}

func logMetrics(logger *slog.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("Failed to gather metrics", slog.String("error", err.Error()))
		return
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			attrs := []any{slog.String("metric", mf.GetName()), slog.Float64("value", m.GetCounter().GetValue())}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, slog.String(lp.GetName(), lp.GetValue()))
			}
			logger.Info("Metric", attrs...)
		}
	}
}
