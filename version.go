package fsm

// Version is the release of the fsm module and CLI.
const Version = "0.1.0"
