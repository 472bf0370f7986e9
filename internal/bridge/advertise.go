package bridge

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/discovery"
	"github.com/jimm98y/EgonAPI/internal/logging"
	"github.com/jimm98y/EgonAPI/internal/version"
)

// Advertise registers the bridge over mDNS so "egon bridges" can find it.
// Call Shutdown on the returned server to withdraw the record.
func Advertise(desc *discovery.Descriptor, port int) (*zeroconf.Server, error) {
	instance := discovery.BridgeInstanceName(desc)
	txt := discovery.BridgeTXT(desc, version.Version)

	server, err := zeroconf.Register(instance, discovery.BridgeServiceType, discovery.BridgeServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising bridge over mDNS",
		zap.String("instance", instance),
		zap.String("service", discovery.BridgeServiceType),
		zap.Int("port", port),
		zap.Strings("txt", txt),
	)
	return server, nil
}
