package client

// Environment is the capability probe for the hosting runtime. Each
// accessor returns false when the host does not support the capability;
// the affected feature is then disabled and everything else keeps
// working.
type Environment interface {
	Memory() (MemoryProber, bool)
	Vitals() (VitalsSource, bool)
}

// MemoryProber reads the host's reported heap usage
type MemoryProber interface {
	HeapUsage() (used, total uint64, ok bool)
}

// VitalsSource is the host's push-based performance-entry notification
// mechanism. Subscribe registers a callback once and the returned cancel
// func stops further notifications; cancel must be safe to call more
// than once.
type VitalsSource interface {
	Subscribe(fn func(VitalEntry)) (cancel func())
}

// NoEnvironment is an Environment with no capabilities, for hosts that
// expose neither a memory API nor performance entries
type NoEnvironment struct{}

func (NoEnvironment) Memory() (MemoryProber, bool) { return nil, false }
func (NoEnvironment) Vitals() (VitalsSource, bool) { return nil, false }
