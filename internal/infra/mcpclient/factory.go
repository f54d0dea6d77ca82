package mcpclient

import (
	"fmt"

	"go.uber.org/zap"

	"toolgate/internal/domain"
)

// SpecFactory constructs clients from configured server specs. Server
// types are registered explicitly; there is no name-based dispatch.
type SpecFactory struct {
	specs  map[domain.ServerType]domain.ServerSpec
	logger *zap.Logger
}

func NewSpecFactory(specs []domain.ServerSpec, logger *zap.Logger) *SpecFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	byType := make(map[domain.ServerType]domain.ServerSpec, len(specs))
	for _, spec := range specs {
		byType[spec.Name] = spec
	}
	return &SpecFactory{
		specs:  byType,
		logger: logger,
	}
}

func (f *SpecFactory) New(serverType domain.ServerType) (domain.ToolClient, error) {
	spec, ok := f.specs[serverType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownServerType, serverType)
	}
	return New(spec, f.logger), nil
}

// Types lists the registered server types.
func (f *SpecFactory) Types() []domain.ServerType {
	out := make([]domain.ServerType, 0, len(f.specs))
	for serverType := range f.specs {
		out = append(out, serverType)
	}
	return out
}

var _ domain.ClientFactory = (*SpecFactory)(nil)
