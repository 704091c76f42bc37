package network

import "context"

// Driver is the capability handle for one network interface. Every
// transport goes through the same sequence: Configure, Start, Connect,
// WaitLease, Lease, and finally Stop.
type Driver interface {
	Name() string
	Configure(ctx context.Context, cfg InterfaceConfig) error
	Start(ctx context.Context) error
	// Connect associates the link. Transports that come up on their own
	// once started treat this as a no-op.
	Connect(ctx context.Context) error
	// WaitLease blocks until the interface holds a DHCP lease or ctx ends.
	WaitLease(ctx context.Context) error
	Lease() (LeaseInfo, error)
	Stop(ctx context.Context) error
}

// Scanner is implemented by drivers that can list nearby access points.
type Scanner interface {
	Scan(ctx context.Context) ([]AccessPointInfo, error)
}

// NAPTRouter is implemented by drivers that can route SoftAP clients out
// through the station link. The driver's Stop undoes it.
type NAPTRouter interface {
	EnableNAPT(ctx context.Context) error
}

// Factory constructs the driver for a configuration.
type Factory func(cfg InterfaceConfig) (Driver, error)
