package model

// Waypoint is a treasure location as it travels over the wire and into the
// store. Coordinates are in-map units; MapID names the game map.
type Waypoint struct {
	ID      string  `json:"id"`
	MapID   int     `json:"mapId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Label   string  `json:"label,omitempty"`
	Found   bool    `json:"found"`
	FoundBy string  `json:"foundBy,omitempty"`
	FoundAt string  `json:"foundAt,omitempty"`
}

// WaypointIn is the creation payload for a waypoint.
type WaypointIn struct {
	MapID int     `json:"mapId"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// HuntIn creates a hunt, optionally seeded with waypoints.
type HuntIn struct {
	Name      string       `json:"name"`
	Waypoints []WaypointIn `json:"waypoints,omitempty"`
}

// Hunt is a shared treasure-hunt session. Route lists waypoint ids in
// visiting order once an optimize ran; Cursor is the index into Route of
// the next unfound stop, or -1 once everything is found (or no route yet).
type Hunt struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    string        `json:"status"` // planning | active | completed
	Waypoints []Waypoint    `json:"waypoints"`
	Route     []string      `json:"route,omitempty"`
	Summary   *RouteSummary `json:"summary,omitempty"`
	Cursor    int           `json:"cursor"`
	Version   int           `json:"version"`
	CreatedAt string        `json:"createdAt,omitempty"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
}

// RouteSummary mirrors the engine's route metrics on the wire.
type RouteSummary struct {
	TotalDistance float64 `json:"totalDistance"`
	MapCount      int     `json:"mapCount"`
	MapJumps      int     `json:"mapJumps"`
}

// OptimizeOptions select engine behavior for one optimize call. Pointer
// booleans distinguish "absent" from "false": map grouping defaults to on,
// 2-opt to off.
type OptimizeOptions struct {
	Policy          string `json:"policy,omitempty"` // regions | centroids
	UseMapGrouping  *bool  `json:"useMapGrouping,omitempty"`
	Use2Opt         *bool  `json:"use2opt,omitempty"`
	MaxIterations   int    `json:"maxIterations,omitempty"`
	StartWaypointID string `json:"startWaypointId,omitempty"`
}

// OptimizeRequest is the body of both optimize endpoints. Waypoints and
// Start are only read by the stateless call; hunt-scoped calls take the
// waypoints from the hunt and resolve StartWaypointID against it.
type OptimizeRequest struct {
	OptimizeOptions
	Waypoints []Waypoint `json:"waypoints,omitempty"`
	Start     *Waypoint  `json:"start,omitempty"`
}

// OptimizeResponse returns the ordered route plus its metrics.
type OptimizeResponse struct {
	HuntID     string       `json:"huntId,omitempty"`
	Route      []Waypoint   `json:"route"`
	Summary    RouteSummary `json:"summary"`
	Policy     string       `json:"policy"`
	DurationMs int64        `json:"durationMs"`
	Version    int          `json:"version,omitempty"`
}

// OptimizeRun records one engine invocation for a hunt.
type OptimizeRun struct {
	ID            string  `json:"id"`
	HuntID        string  `json:"huntId"`
	Policy        string  `json:"policy"`
	TwoOpt        bool    `json:"twoOpt"`
	Waypoints     int     `json:"waypoints"`
	TotalDistance float64 `json:"totalDistance"`
	MapJumps      int     `json:"mapJumps"`
	DurationMs    int64   `json:"durationMs"`
	TS            string  `json:"ts"`
}

// Member is a party member attached to a hunt.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt string `json:"joinedAt,omitempty"`
}

// ClaimRequest marks a waypoint as found.
type ClaimRequest struct {
	WaypointID string `json:"waypointId"`
}

// ClaimResult reports the state after a claim. AlreadyFound means someone
// got there first and nothing changed.
type ClaimResult struct {
	Hunt         Hunt     `json:"hunt"`
	Waypoint     Waypoint `json:"waypoint"`
	AlreadyFound bool     `json:"alreadyFound"`
	Completed    bool     `json:"completed"`
}

// HuntStats aggregates progress for one hunt.
type HuntStats struct {
	HuntID    string        `json:"huntId"`
	Waypoints int           `json:"waypoints"`
	Found     int           `json:"found"`
	Summary   *RouteSummary `json:"summary,omitempty"`
	PerMap    []MapStats    `json:"perMap"`
	Runs      []OptimizeRun `json:"runs,omitempty"`
}

// MapStats is the per-map slice of HuntStats.
type MapStats struct {
	MapID  int    `json:"mapId"`
	Region string `json:"region,omitempty"`
	Count  int    `json:"count"`
	Found  int    `json:"found"`
}

// SubscriptionRequest registers a webhook endpoint. HuntID narrows the
// subscription to one hunt; empty matches all hunts.
type SubscriptionRequest struct {
	URL       string `json:"url"`
	EventType string `json:"eventType"`
	HuntID    string `json:"huntId,omitempty"`
	Secret    string `json:"secret,omitempty"`
}

// Subscription is a stored webhook registration.
type Subscription struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	EventType string `json:"eventType"`
	HuntID    string `json:"huntId,omitempty"`
	Secret    string `json:"-"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// AnonSession is the response of the anonymous auth endpoint.
type AnonSession struct {
	Token    string `json:"token"`
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
}
