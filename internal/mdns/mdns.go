// Package mdns announces the control API's HTTP/websocket endpoint over
// DNS-SD, the same mechanism and library the teacher uses to announce
// its KISS-over-TCP service, adapted from "_kiss-tnc._tcp" to the
// instrument's own service type.
package mdns

import (
	"context"
	"os"
	"strings"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

// ServiceType is the DNS-SD service type advertised for the control API.
const ServiceType = "_mgurdy._tcp"

// Announcer advertises the control API and can be shut down cleanly.
type Announcer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Announce starts advertising the control API on port via DNS-SD. name
// defaults to "mGurdy on <hostname>" when empty, mirroring the
// teacher's own dns_sd_default_service_name.
func Announce(ctx context.Context, name string, port int, logger *log.Logger) (*Announcer, error) {
	if name == "" {
		name = defaultServiceName()
	}

	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, err
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, err
	}

	if _, err := rp.Add(sv); err != nil {
		return nil, err
	}

	announceCtx, cancel := context.WithCancel(ctx)
	a := &Announcer{cancel: cancel, done: make(chan struct{})}

	if logger != nil {
		logger.Info("mdns: announcing", "name", name, "type", ServiceType, "port", port)
	}

	go func() {
		defer close(a.done)
		if err := rp.Respond(announceCtx); err != nil && announceCtx.Err() == nil && logger != nil {
			logger.Warn("mdns: responder stopped", "err", err)
		}
	}()

	return a, nil
}

// Close stops the responder and waits for its goroutine to exit.
func (a *Announcer) Close() {
	a.cancel()
	<-a.done
}

func defaultServiceName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "mGurdy"
	}

	hostname, _, _ = strings.Cut(hostname, ".")

	return "mGurdy on " + hostname
}
