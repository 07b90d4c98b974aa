package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Patch colors are heavy; clients opt in and may thin them out.
	IncludePatches bool `json:"include_patches,omitempty"`
	PatchEvery     int  `json:"patch_every,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Step            uint64      `json:"step"`
	WorldParams     WorldParams `json:"world_params"`
	Breeds          []string    `json:"breeds"`
	LinkBreeds      []string    `json:"link_breeds"`
	Globals         []string    `json:"globals"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	Seed       int64  `json:"seed"`
	MinPxcor   int    `json:"min_pxcor"`
	MaxPxcor   int    `json:"max_pxcor"`
	MinPycor   int    `json:"min_pycor"`
	MaxPycor   int    `json:"max_pycor"`
	Topology   string `json:"topology"`
}

// Server -> Client. Sent every step.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Step            uint64 `json:"step"`
	// Ticks is null until the model resets its tick counter.
	Ticks  *float64 `json:"ticks"`
	Digest string   `json:"digest"`

	Globals map[string]string `json:"globals,omitempty"`
	Turtles []TurtleView      `json:"turtles"`
	Links   []LinkView        `json:"links"`

	// Row-major from (min_pxcor, min_pycor), colors quantized to tenths and
	// run-length encoded as base64(varint id, varint run) pairs. Present
	// only when subscribed.
	PatchColors string `json:"patch_colors_rle,omitempty"`
}

type TurtleView struct {
	Who     int64   `json:"who"`
	Breed   string  `json:"breed"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Color   float64 `json:"color"`
	Size    float64 `json:"size"`
	Shape   string  `json:"shape"`
	Label   string  `json:"label,omitempty"`
	Hidden  bool    `json:"hidden,omitempty"`
}

type LinkView struct {
	ID       int64   `json:"id"`
	End1     int64   `json:"end1"`
	End2     int64   `json:"end2"`
	Breed    string  `json:"breed"`
	Directed bool    `json:"directed,omitempty"`
	Color    float64 `json:"color"`
	TieMode  string  `json:"tie_mode,omitempty"`
	Hidden   bool    `json:"hidden,omitempty"`
}
