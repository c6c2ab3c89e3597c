package server

// Status is the lifecycle state of an Emulator
type Status int

const (
	// Idle indicates services are not registered yet
	Idle Status = iota
	// Running indicates the emulator is advertising and serving
	Running
	// Stopped indicates Serve returned after its context ended
	Stopped
	// Crashed indicates advertising failed
	Crashed
)

func (s Status) String() string {
	return []string{"Idle", "Running", "Stopped", "Crashed"}[s]
}
