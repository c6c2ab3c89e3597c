package session

// State is an enum for the lifecycle position of a peripheral session
type State int

const (
	// Discovered indicates the peripheral was seen in a scan and picked as the target
	Discovered State = iota
	// Bonding indicates a bond was requested before connecting
	Bonding
	// Connecting indicates a connect request is outstanding
	Connecting
	// ServicesDiscovering indicates the link is up and the GATT profile is being discovered
	ServicesDiscovering
	// Configuring indicates device information reads and the time write are being issued
	Configuring
	// Subscribing indicates notification subscriptions are being applied
	Subscribing
	// Active indicates steady-state notification handling
	Active
	// Disconnected indicates the link dropped; a reconnect may be pending
	Disconnected
	// Terminal indicates the session was torn down on request
	Terminal
)

func (s State) String() string {
	return []string{
		"Discovered", "Bonding", "Connecting", "ServicesDiscovering", "Configuring",
		"Subscribing", "Active", "Disconnected", "Terminal",
	}[s]
}
