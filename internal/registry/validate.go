package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/refinery/internal/ctxlog"
)

// ValidateRegistry checks that every attachment handler declares a target
// that exists and that every view opens cleanly. Handlers are run once on a
// throwaway refiner, which is how unresolved refiner names surface.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []error
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		def := r.definitions[name]
		for _, att := range def.Attachments() {
			probe := def.New()
			if err := probe.BringNames(att); err != nil {
				errs = append(errs, fmt.Errorf("- refiner '%s', attachment '%s': %w", name, att, err))
				continue
			}
			logger.Debug("Attachment validated.", "refiner", name, "attachment", att)
		}
	}

	for _, name := range r.ViewNames() {
		if _, err := r.Open(name); err != nil {
			errs = append(errs, fmt.Errorf("- view '%s': %w", name, err))
			continue
		}
		logger.Debug("View validated.", "view", name)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n%w", errors.Join(errs...))
	}
	return nil
}
