package observer

// ProtocolVersion is the version clients must send in their SUBSCRIBE message.
const ProtocolVersion = 1

// SubscribeMsg is the first message a client sends after connecting.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion int    `json:"protocol_version"`
	// Mesh requests the height and band of every vertex with each chunk.
	Mesh bool `json:"mesh,omitempty"`
}

// WelcomeMsg acknowledges a subscription. It is followed by one ChunkMsg for
// every chunk realised before the client subscribed.
type WelcomeMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Seed      int64  `json:"seed"`
	Tick      int64  `json:"tick"`
	Chunks    int    `json:"chunks"`
}

// ChunkMsg describes a realised chunk.
type ChunkMsg struct {
	Type      string    `json:"type"`
	X         int32     `json:"x"`
	Z         int32     `json:"z"`
	Tick      int64     `json:"tick"`
	Digest    string    `json:"digest"`
	Vertices  int       `json:"vertices"`
	Triangles int       `json:"triangles"`
	Trees     int       `json:"trees"`
	Rocks     int       `json:"rocks"`
	MinY      float64   `json:"min_y"`
	MaxY      float64   `json:"max_y"`
	Heights   []float64 `json:"heights,omitempty"`
	Bands     []int     `json:"bands,omitempty"`
}

// BootstrapResponse is served over plain HTTP so that clients can size their
// buffers before opening the stream.
type BootstrapResponse struct {
	ProtocolVersion int        `json:"protocol_version"`
	Seed            int64      `json:"seed"`
	Tick            int64      `json:"tick"`
	ChunkSize       [2]float64 `json:"chunk_size"`
	Subdivisions    int        `json:"subdivisions"`
	Chunks          int        `json:"chunks"`
}
