package managers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	grpccontroller "github.com/chrissnell/radmon/internal/controllers/grpc"
	"github.com/chrissnell/radmon/internal/controllers/restserver"
	"github.com/chrissnell/radmon/internal/monitor"
	"github.com/chrissnell/radmon/pkg/config"
)

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// ControllerManager starts the configured transports
type ControllerManager struct {
	logger      *zap.SugaredLogger
	controllers []Controller
}

// NewControllerManager creates the REST and gRPC controllers that are configured
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, c config.ControllersData, mon *monitor.Monitor, sm *StorageManager, logger *zap.SugaredLogger) (*ControllerManager, error) {
	cm := &ControllerManager{logger: logger}

	if c.REST != nil {
		rest, err := restserver.NewController(ctx, wg, *c.REST, mon, sm.Health, logger.Named("rest"))
		if err != nil {
			return nil, fmt.Errorf("error creating REST controller: %w", err)
		}
		cm.controllers = append(cm.controllers, rest)
	}

	if c.GRPC != nil {
		g, err := grpccontroller.NewController(ctx, wg, *c.GRPC, mon, sm, logger.Named("grpc"))
		if err != nil {
			return nil, fmt.Errorf("error creating gRPC controller: %w", err)
		}
		cm.controllers = append(cm.controllers, g)
	}

	return cm, nil
}

// StartControllers starts every controller
func (cm *ControllerManager) StartControllers() error {
	cm.logger.Info("Starting controller manager...")

	for _, controller := range cm.controllers {
		if err := controller.StartController(); err != nil {
			return fmt.Errorf("error starting controller: %w", err)
		}
	}

	cm.logger.Infof("Started %d controllers successfully", len(cm.controllers))
	return nil
}

// Count returns the number of configured controllers
func (cm *ControllerManager) Count() int {
	return len(cm.controllers)
}
