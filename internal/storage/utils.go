package storage

import (
	"context"
	"time"

	"github.com/chrissnell/radmon/internal/log"
)

// StartHealthMonitor starts a generic health monitoring goroutine for any storage backend.
// Results are recorded in hm and status transitions are logged.
func StartHealthMonitor(ctx context.Context, hm *HealthManager, storageType string, checker HealthChecker, interval time.Duration) {
	go func() {
		updateHealth := func() {
			health := checker.CheckHealth(ctx)
			previous, seen := hm.GetHealth(storageType)
			hm.UpdateHealth(storageType, health)

			switch {
			case !seen || previous.Status != health.Status:
				if health.Status == StatusHealthy {
					log.Infof("%s storage is %s: %s", storageType, health.Status, health.Message)
				} else {
					log.Errorf("%s storage is %s: %s (%s)", storageType, health.Status, health.Message, health.Error)
				}
			default:
				log.Debugf("Updated %s health status: %s", storageType, health.Status)
			}
		}

		updateHealth()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				updateHealth()
			case <-ctx.Done():
				log.Infof("stopping %s health monitor", storageType)
				return
			}
		}
	}()
}

// CreateHealthData creates a basic health data structure
func CreateHealthData(status, message string, err error) *HealthData {
	health := &HealthData{
		LastCheck: time.Now(),
		Status:    status,
		Message:   message,
	}

	if err != nil {
		health.Error = err.Error()
	}

	return health
}
