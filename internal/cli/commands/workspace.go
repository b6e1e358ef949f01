package commands

import (
	"go.uber.org/zap"

	"github.com/packsmith-editor/packsmith/internal/cli/config"
	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
)

// workspace bundles the managers every command works against.
type workspace struct {
	cfg       *config.Config
	resources *resource.Manager
	packages  *pack.IndexManager
	logger    *zap.Logger
}

// openWorkspace loads the configuration and builds the resource and package
// managers over the configured directories.
func openWorkspace(verbose bool) (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}

	return &workspace{
		cfg:       cfg,
		resources: resource.NewManager(cfg.Workspace.Library, logger),
		packages:  pack.NewIndexManager(cfg.Workspace.Packages, logger),
		logger:    logger,
	}, nil
}
