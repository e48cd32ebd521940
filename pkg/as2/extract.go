package as2

import (
	"log/slog"
	"time"

	"github.com/sirosfoundation/go-as2/pkg/compression"
	"github.com/sirosfoundation/go-as2/pkg/entity"
	"github.com/sirosfoundation/go-as2/pkg/mime"
	"github.com/sirosfoundation/go-as2/pkg/protocol"
	"github.com/sirosfoundation/go-as2/pkg/security"
)

// Extractor unwraps the security layers of AS2 messages. It holds no
// per-message state and is safe for concurrent use.
type Extractor struct {
	decompressor compression.Decompressor
	metrics      *Metrics
	logger       *slog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger used for layer and failure events
func WithLogger(logger *slog.Logger) Option {
	return func(x *Extractor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithMetrics records extraction metrics in m
func WithMetrics(m *Metrics) Option {
	return func(x *Extractor) {
		x.metrics = m
	}
}

// WithDecompressor replaces the CMS CompressedData provider
func WithDecompressor(d compression.Decompressor) Option {
	return func(x *Extractor) {
		if d != nil {
			x.decompressor = d
		}
	}
}

// WithMaxDecompressedSize bounds the size of decompressed content
func WithMaxDecompressedSize(n int64) Option {
	return func(x *Extractor) {
		x.decompressor = compression.NewZlibProviderWithLimit(n)
	}
}

// NewExtractor creates an Extractor
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{
		decompressor: compression.NewZlibProvider(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

var defaultExtractor = NewExtractor()

// ExtractEDIPayload returns the EDI payload of msg using a default
// Extractor. key decrypts enveloped data and may be nil when the message
// is not encrypted.
func ExtractEDIPayload(msg *entity.Message, key *security.DecryptionKey) (*entity.EDIPayload, error) {
	return defaultExtractor.Extract(msg, key)
}

// Extract strips every signature, compression and encryption layer of msg
// and returns the innermost EDI payload. The message and its entities are
// not modified. Signatures are not verified.
func (x *Extractor) Extract(msg *entity.Message, key *security.DecryptionKey) (*entity.EDIPayload, error) {
	start := time.Now()

	payload, layers, err := x.extract(msg, key)
	x.metrics.recordExtraction(err, time.Since(start))

	if err != nil {
		x.logger.Warn("EDI payload extraction failed",
			slog.Any("layers", layers),
			slog.String("error", err.Error()))
		return nil, err
	}

	x.logger.Debug("Extracted EDI payload",
		slog.String("media_type", payload.MediaType()),
		slog.Any("layers", layers),
		slog.Int("size", len(payload.Content())))
	return payload, nil
}

func (x *Extractor) extract(msg *entity.Message, key *security.DecryptionKey) (*entity.EDIPayload, []string, error) {
	if msg == nil {
		return nil, nil, protocol.Errorf(protocol.ErrNullEntity, "message is nil")
	}

	contentType, ok := mime.GetHeader(msg, mime.HeaderContentType)
	if !ok {
		return nil, nil, protocol.Errorf(protocol.ErrMissingContentType, "message has no %s header", mime.HeaderContentType)
	}

	var (
		current  = msg.Entity()
		sc       = scopeMessage
		next     scope
		classify layer
		bySigned bool
		stripped []string
		err      error
	)

	for {
		if bySigned {
			classify, err = layerOfVariant(current)
		} else {
			classify, err = layerOfContentType(contentType)
		}
		if err != nil {
			return nil, stripped, err
		}

		if next, err = transition(sc, classify); err != nil {
			return nil, stripped, err
		}
		if classify != layerEDI && len(stripped) >= maxLayers {
			return nil, stripped, protocol.Errorf(protocol.ErrUnsupportedNestedType,
				"message has more than %d security layers", maxLayers)
		}

		switch classify {
		case layerEDI:
			payload, r := entity.As[*entity.EDIPayload](current)
			if r != entity.Found {
				return nil, stripped, nullEntity(r, "EDI payload", sc)
			}
			return payload, stripped, nil

		case layerSigned:
			signed, r := entity.As[*entity.MultipartSigned](current)
			if r != entity.Found {
				return nil, stripped, nullEntity(r, "multipart/signed entity", sc)
			}
			current = signed.SignedDataEntity()
			bySigned = true

		case layerCompressed:
			compressed, r := entity.As[*entity.CompressedData](current)
			if r != entity.Found {
				return nil, stripped, nullEntity(r, "compressed data entity", sc)
			}
			if current, err = compressed.Decompress(x.decompressor); err != nil {
				return nil, stripped, err
			}
			contentType = current.ContentType()
			bySigned = false

		case layerEnveloped:
			if key == nil {
				return nil, stripped, protocol.Errorf(protocol.ErrMissingPrivateKey, "message is encrypted")
			}
			enveloped, r := entity.As[*entity.EnvelopedData](current)
			if r != entity.Found {
				return nil, stripped, nullEntity(r, "enveloped data entity", sc)
			}
			if current, err = enveloped.Decrypt(key); err != nil {
				return nil, stripped, err
			}
			contentType = current.ContentType()
			bySigned = false
		}

		x.metrics.recordLayer(classify)
		x.logger.Debug("Stripped security layer",
			slog.String("layer", classify.String()),
			slog.String("scope", sc.String()))
		stripped = append(stripped, classify.String())
		sc = next
	}
}

// nullEntity reports a missing or mismatched entity where want was expected.
func nullEntity(r entity.Retrieval, want string, sc scope) error {
	if r == entity.WrongVariant {
		return protocol.Errorf(protocol.ErrNullEntity, "expected %s inside %s, found another entity type", want, sc)
	}
	return protocol.Errorf(protocol.ErrNullEntity, "expected %s inside %s, found none", want, sc)
}
