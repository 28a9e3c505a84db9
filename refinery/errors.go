package refinery

import "errors"

var (
	// ErrAttachmentHandlerNotFound is returned by Bring when a requested
	// attachment has no handler registered on the definition.
	ErrAttachmentHandlerNotFound = errors.New("attachment handler not found")

	// ErrAttachmentTargetNotFound is returned when an attachment names a
	// nested refiner that cannot be resolved.
	ErrAttachmentTargetNotFound = errors.New("attachment target not found")

	// ErrTemplateNotConfigured is returned by Refine when the definition has
	// no template.
	ErrTemplateNotConfigured = errors.New("template not configured")

	// ErrInvalidRelation is returned by Bring for a relation the attachment
	// cannot honour, such as a filter on a raw attachment.
	ErrInvalidRelation = errors.New("invalid relation")

	// ErrUnmergeable is returned when attachments cannot be merged into the
	// template output.
	ErrUnmergeable = errors.New("refined value cannot be merged")

	// ErrDepthExceeded is returned when nested refining goes deeper than the
	// definition allows, which usually means an attachment cycle.
	ErrDepthExceeded = errors.New("maximum refine depth exceeded")
)
