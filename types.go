package conout

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// Step identifies one stage of the five-stage matching workflow.
//
// Steps advance strictly forward: Registering → Verifying → SelectingEvent →
// Matching → Matched. StepMatchFailed is the recoverable failure parking of
// StepMatching; [Flow.Retry] moves it back into Matching.
type Step uint8

const (
	// StepRegistering is the initial step: account registration.
	StepRegistering Step = iota
	// StepVerifying awaits the emailed one-time code.
	StepVerifying
	// StepSelectingEvent collects event preferences.
	StepSelectingEvent
	// StepMatching is the match retrieval in progress.
	StepMatching
	// StepMatchFailed is a recoverable terminal: match retrieval failed and
	// can be retried without resubmitting preferences.
	StepMatchFailed
	// StepMatched is the only true terminal step.
	StepMatched
)

// String returns the step name used in events and logs.
func (s Step) String() string {
	switch s {
	case StepRegistering:
		return "registering"
	case StepVerifying:
		return "verifying"
	case StepSelectingEvent:
		return "selecting_event"
	case StepMatching:
		return "matching"
	case StepMatchFailed:
		return "match_failed"
	case StepMatched:
		return "matched"
	default:
		return "unknown"
	}
}

// Occasion is the wire value of an event category.
type Occasion string

const (
	// OccasionItalianDinner is the default occasion.
	OccasionItalianDinner Occasion = "italian_dinner"
	// OccasionCoffee is an exported occasion value.
	OccasionCoffee Occasion = "coffee"
	// OccasionTennis is an exported occasion value.
	OccasionTennis Occasion = "tennis"
	// OccasionHiking is an exported occasion value.
	OccasionHiking Occasion = "hiking"
	// OccasionMovie is an exported occasion value.
	OccasionMovie Occasion = "movie"
	// OccasionArtGallery is an exported occasion value.
	OccasionArtGallery Occasion = "art_gallery"
	// OccasionBowling is an exported occasion value.
	OccasionBowling Occasion = "bowling"
)

// occasionNames maps wire values to display names, in picker order.
var occasionNames = map[Occasion]string{
	OccasionItalianDinner: "Italian Dinner",
	OccasionCoffee:        "Coffee Date",
	OccasionTennis:        "Tennis",
	OccasionHiking:        "Hiking",
	OccasionMovie:         "Movie Night",
	OccasionArtGallery:    "Art Gallery",
	OccasionBowling:       "Bowling",
}

// Occasions returns every valid occasion in stable picker order.
func Occasions() []Occasion {
	return []Occasion{
		OccasionItalianDinner,
		OccasionCoffee,
		OccasionTennis,
		OccasionHiking,
		OccasionMovie,
		OccasionArtGallery,
		OccasionBowling,
	}
}

// Valid reports whether o is a known occasion.
func (o Occasion) Valid() bool {
	_, ok := occasionNames[o]
	return ok
}

// DisplayName returns the human-readable occasion label, or the raw wire
// value when the occasion is unknown.
func (o Occasion) DisplayName() string {
	if name, ok := occasionNames[o]; ok {
		return name
	}
	return string(o)
}

// Budget bounds for event preferences, in whole dollars.
const (
	MinBudget  = 10
	MaxBudget  = 200
	BudgetStep = 10
	// DefaultBudget is applied when the caller leaves the budget zero.
	DefaultBudget = 50
)

// Preferences is the statically typed event selection payload.
//
// Zero values for Occasion, Budget, and PreferredTime are replaced with safe
// defaults by [Flow.SubmitPreferences]; PreferredLocation has no default and
// must be non-empty.
type Preferences struct {
	Occasion          Occasion
	Budget            float64
	PreferredTime     time.Time
	PreferredLocation string
	Notes             string
}

// Coordinate is a geographic point derived from a match.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Match is the terminal result of the workflow: the selected event, venue,
// and time. A Match is immutable once received; its identity is ID.
// Description and VenueURL are optional and nil when the service omitted
// them. Derived values (formatted date, coordinate, parsed URL) are computed
// on demand and never stored.
type Match struct {
	ID          string
	EventName   string
	Location    string
	Date        time.Time
	Description *string
	Latitude    float64
	Longitude   float64
	VenueURL    *string
}

// matchWire is the JSON shape of a match on the service contract. Dates
// travel as unix seconds, like the preferredTime field of the selection
// payload.
type matchWire struct {
	ID          string  `json:"id"`
	EventName   string  `json:"eventName"`
	Location    string  `json:"location"`
	Date        int64   `json:"date"`
	Description *string `json:"description,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	VenueURL    *string `json:"venueUrl,omitempty"`
}

// MarshalJSON encodes the match in its wire shape.
func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(matchWire{
		ID:          m.ID,
		EventName:   m.EventName,
		Location:    m.Location,
		Date:        m.Date.Unix(),
		Description: m.Description,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		VenueURL:    m.VenueURL,
	})
}

// UnmarshalJSON decodes the match from its wire shape.
func (m *Match) UnmarshalJSON(data []byte) error {
	var w matchWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Match{
		ID:          w.ID,
		EventName:   w.EventName,
		Location:    w.Location,
		Date:        time.Unix(w.Date, 0).UTC(),
		Description: w.Description,
		Latitude:    w.Latitude,
		Longitude:   w.Longitude,
		VenueURL:    w.VenueURL,
	}
	return nil
}

// FormattedDate renders the match date for display (medium date, short time).
func (m Match) FormattedDate() string {
	return m.Date.Format("Jan 2, 2006 3:04 PM")
}

// Coordinate returns the match venue location as a map coordinate.
func (m Match) Coordinate() Coordinate {
	return Coordinate{Latitude: m.Latitude, Longitude: m.Longitude}
}

// VenueLink parses the optional venue URL. The second return is false when
// the service sent no URL or an unparseable one.
func (m Match) VenueLink() (*url.URL, bool) {
	if m.VenueURL == nil {
		return nil, false
	}
	u, err := url.Parse(*m.VenueURL)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	return u, true
}

// FlowState is the snapshot of workflow state returned by [Flow.Snapshot].
// It is a copy; mutating it has no effect on the flow.
type FlowState struct {
	// Step is the current workflow step.
	Step Step
	// Pending reports an in-flight request for the current step.
	Pending bool
	// ResendPending reports an in-flight resend, which may overlap a
	// pending verify.
	ResendPending bool
	// Email is the address carried forward from registration.
	Email string
	// Preferences holds the last submitted (or attempted) selection so a
	// failed submission can be corrected and resubmitted.
	Preferences *Preferences
	// LastError is the displayable failure of the current step, nil when
	// the step is clean. Validation failures and request failures both
	// land here; neither ever clears user-entered input.
	LastError error
	// Notice is a transient status line ("Verification code resent"),
	// cleared on the next transition.
	Notice string
	// Match is set once the flow reaches StepMatched.
	Match *Match
}

// APIClient is the contract of the remote matching service. It is the only
// component permitted to perform network I/O; the Flow depends on nothing
// but this interface.
//
// Every method returns nil on success or a *RequestError describing a
// displayable failure. Implementations must honor ctx cancellation.
//
// Note: the service contract carries no session credential. Registration
// and verification produce no token, and submitEventSelection/getMatch are
// unauthenticated. This mirrors the upstream service as it exists today.
type APIClient interface {
	Register(ctx context.Context, email, password string) error
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerificationCode(ctx context.Context, email string) error
	SubmitEventSelection(ctx context.Context, prefs Preferences) error
	GetMatch(ctx context.Context) (Match, error)
}
