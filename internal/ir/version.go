package ir

// Version constants for the persisted layout and engine.
const (
	// LayoutVersion is the persisted state layout version.
	LayoutVersion = "1"

	// EngineVersion is the smartfin engine version.
	EngineVersion = "0.1.0"
)
