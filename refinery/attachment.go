package refinery

import (
	"fmt"

	"github.com/vk/refinery/record"
)

// Extractor produces an attachment's source data from the raw item.
type Extractor func(item record.Item) (any, error)

// Filter narrows attachment source data before the nested refiner sees it.
// It receives whatever extraction produced, including nil.
type Filter func(source any) (any, error)

// RawFunc computes an attachment value directly; no nested refiner is
// involved.
type RawFunc func(item record.Item) (any, error)

// Attachment describes how to produce one attachment value. It is either
// raw (a RawFunc) or nested (a target definition with an optional
// callback extractor). Build one with Attach, Embed or Nest.
type Attachment struct {
	raw      RawFunc
	target   *Definition
	callback Extractor
}

// IsRaw reports whether the attachment bypasses nested refining.
func (a Attachment) IsRaw() bool { return a.raw != nil }

// Target returns the nested definition, or nil for raw attachments.
func (a Attachment) Target() *Definition { return a.target }

// Attach builds an attachment descriptor.
//
// target may be a *Definition, the name of a definition known to the
// resolver, or a function of the raw item (RawFunc, func(record.Item)
// (any, error) or func(record.Item) any), which makes a raw attachment.
// An optional callback replaces direct extraction of the source data.
func (r *Refiner) Attach(target any, callback ...Extractor) (Attachment, error) {
	if len(callback) > 1 {
		return Attachment{}, fmt.Errorf("%w: at most one callback, got %d", ErrInvalidRelation, len(callback))
	}
	var cb Extractor
	if len(callback) == 1 {
		cb = callback[0]
	}

	switch t := target.(type) {
	case RawFunc:
		return rawAttachment(t, cb)
	case func(record.Item) (any, error):
		return rawAttachment(t, cb)
	case func(record.Item) any:
		return rawAttachment(func(item record.Item) (any, error) { return t(item), nil }, cb)
	case *Definition:
		if t == nil {
			return Attachment{}, fmt.Errorf("%w: nil definition", ErrAttachmentTargetNotFound)
		}
		return Attachment{target: t, callback: cb}, nil
	case string:
		if r.def.resolver == nil {
			return Attachment{}, fmt.Errorf("%w: no refiner found with the name '%s'", ErrAttachmentTargetNotFound, t)
		}
		def, ok := r.def.resolver.Lookup(t)
		if !ok {
			return Attachment{}, fmt.Errorf("%w: no refiner found with the name '%s'", ErrAttachmentTargetNotFound, t)
		}
		return Attachment{target: def, callback: cb}, nil
	}
	return Attachment{}, fmt.Errorf("%w: unsupported target type %T", ErrAttachmentTargetNotFound, target)
}

// Embed is an alias for Attach.
func (r *Refiner) Embed(target any, callback ...Extractor) (Attachment, error) {
	return r.Attach(target, callback...)
}

// Nest is an alias for Attach.
func (r *Refiner) Nest(target any, callback ...Extractor) (Attachment, error) {
	return r.Attach(target, callback...)
}

func rawAttachment(fn RawFunc, cb Extractor) (Attachment, error) {
	if cb != nil {
		return Attachment{}, fmt.Errorf("%w: raw attachments take no callback", ErrInvalidRelation)
	}
	return Attachment{raw: fn}, nil
}
