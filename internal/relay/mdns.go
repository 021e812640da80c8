package relay

import (
	"fmt"
	"os"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service classroom peers browse for.
const ServiceType = "_lecnote._tcp"

// advertise announces the relay on port until the returned server is shut down.
func advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"lecnote translation relay"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Discover looks up relays on the local network and returns their
// host:port addresses.
func Discover() ([]string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	var found []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found = append(found, fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port))
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return nil, fmt.Errorf("mDNS lookup failed: %w", err)
	}
	return found, nil
}
