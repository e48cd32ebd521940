package as2

import (
	"strings"

	"github.com/sirosfoundation/go-as2/pkg/entity"
	"github.com/sirosfoundation/go-as2/pkg/mime"
	"github.com/sirosfoundation/go-as2/pkg/protocol"
)

// layer is one security layer of an AS2 message
type layer int

const (
	layerEDI layer = iota
	layerSigned
	layerCompressed
	layerEnveloped
)

func (l layer) String() string {
	switch l {
	case layerEDI:
		return "edi"
	case layerSigned:
		return "signed"
	case layerCompressed:
		return "compressed"
	case layerEnveloped:
		return "enveloped"
	default:
		return "unknown"
	}
}

// scope is the position in the layer stack that decides which layers may
// come next
type scope int

const (
	scopeMessage scope = iota
	scopeEnveloped
	scopeCompressed
	scopeSigned
	scopeSignedInCompressed
	scopeDone
)

func (s scope) String() string {
	switch s {
	case scopeMessage:
		return "message"
	case scopeEnveloped:
		return "enveloped data"
	case scopeCompressed:
		return "compressed data"
	case scopeSigned:
		return "signed data"
	case scopeSignedInCompressed:
		return "signed data inside compressed data"
	default:
		return "payload"
	}
}

// maxLayers bounds the number of layers stripped from one message, since
// signed and compressed layers may alternate.
const maxLayers = 16

// grammar lists, per scope, the layers allowed next and the scope each one
// leads to.
var grammar = map[scope]map[layer]scope{
	scopeMessage: {
		layerEDI:        scopeDone,
		layerSigned:     scopeSigned,
		layerCompressed: scopeCompressed,
		layerEnveloped:  scopeEnveloped,
	},
	scopeEnveloped: {
		layerEDI:        scopeDone,
		layerSigned:     scopeSigned,
		layerCompressed: scopeCompressed,
	},
	scopeCompressed: {
		layerEDI:    scopeDone,
		layerSigned: scopeSignedInCompressed,
	},
	scopeSigned: {
		layerEDI:        scopeDone,
		layerCompressed: scopeCompressed,
	},
	scopeSignedInCompressed: {
		layerEDI:        scopeDone,
		layerCompressed: scopeCompressed,
	},
}

// transition returns the scope reached by entering l from s.
func transition(s scope, l layer) (scope, error) {
	next, ok := grammar[s][l]
	if !ok {
		return 0, protocol.Errorf(protocol.ErrUnsupportedNestedType, "%s layer is not allowed inside %s", l, s)
	}
	return next, nil
}

// layerOfContentType classifies an entity by its Content-Type value.
func layerOfContentType(value string) (layer, error) {
	if strings.TrimSpace(value) == "" {
		return 0, protocol.Errorf(protocol.ErrMissingContentType, "entity has no %s header", mime.HeaderContentType)
	}

	ct, err := mime.ParseContentType(value)
	if err != nil {
		return 0, protocol.Wrap(protocol.ErrUnsupportedContentType, err, "%q", value)
	}

	switch {
	case mime.IsEDI(ct.MediaType):
		return layerEDI, nil
	case ct.MediaType == mime.MediaTypeMultipartSigned:
		return layerSigned, nil
	case mime.IsPKCS7Mime(ct.MediaType):
		switch ct.SMIMEType() {
		case mime.SMIMETypeCompressedData:
			return layerCompressed, nil
		case mime.SMIMETypeEnvelopedData:
			return layerEnveloped, nil
		case "":
			return 0, protocol.Errorf(protocol.ErrUnknownSmimeType, "%s without %s parameter", ct.MediaType, mime.ParamSMIMEType)
		default:
			return 0, protocol.Errorf(protocol.ErrUnknownSmimeType, "%q", ct.SMIMEType())
		}
	default:
		return 0, protocol.Errorf(protocol.ErrUnsupportedContentType, "%q", ct.MediaType)
	}
}

// layerOfVariant classifies the entity enclosed by a signed entity.
func layerOfVariant(e entity.Entity) (layer, error) {
	switch e.(type) {
	case nil:
		return 0, protocol.Errorf(protocol.ErrNullEntity, "signed data entity encloses no entity")
	case *entity.EDIPayload:
		return layerEDI, nil
	case *entity.MultipartSigned:
		return layerSigned, nil
	case *entity.CompressedData:
		return layerCompressed, nil
	case *entity.EnvelopedData:
		return layerEnveloped, nil
	default:
		return 0, protocol.Errorf(protocol.ErrUnsupportedNestedType,
			"signed data entity encloses unsupported content %q", e.ContentType())
	}
}
