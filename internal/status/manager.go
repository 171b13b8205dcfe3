package status

import (
	"log/slog"
	"sync"
)

var (
	globalMu      sync.RWMutex
	globalService Service
)

// InitManager installs service as the process-wide status service.
func InitManager(service Service) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalService = service
	slog.Debug("status manager initialized")
}

// GetService returns the process-wide status service, creating a default one
// on first use.
func GetService() Service {
	globalMu.RLock()
	s := globalService
	globalMu.RUnlock()
	if s != nil {
		return s
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalService == nil {
		globalService = NewService()
	}
	return globalService
}

func Info(message string)  { GetService().Info(message) }
func Warn(message string)  { GetService().Warn(message) }
func Error(message string) { GetService().Error(message) }
