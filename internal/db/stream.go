package db

// ReadGroupRequest describes one XREADGROUP call.
type ReadGroupRequest struct {
	Stream   string
	Group    string
	Consumer string
	// ID is ">" for new entries or "0" for the consumer's pending entries.
	ID      string
	Count   int
	BlockMs int64
}

// StreamEntry is one stream record.
type StreamEntry struct {
	ID     string
	Fields map[string]string
}
