package types

// Version is the canonical project version.
// The CLI, the event envelope and the IPC framing share this version.
const Version = "0.2.0"

// ContractVersion is the version stamped on every published event.
// It moves in lockstep with Version.
const ContractVersion = Version
