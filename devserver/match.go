package devserver

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	conout "github.com/conout/conout-go"
)

type venue struct {
	event       string
	location    string
	description string
	latitude    float64
	longitude   float64
	url         string
}

// venuesByOccasion holds the canned venues the devserver matches against.
// One is picked at random per occasion; unknown occasions fall back to the
// default occasion's venues.
var venuesByOccasion = map[conout.Occasion][]venue{
	conout.OccasionItalianDinner: {
		{
			event:       "Dinner at Bella Notte",
			location:    "Bella Notte Trattoria",
			description: "Candlelit pasta dinner for two.",
			latitude:    37.7879,
			longitude:   -122.4074,
			url:         "https://example.com/venues/bella-notte",
		},
		{
			event:       "Dinner at Osteria Verde",
			location:    "Osteria Verde",
			description: "Northern Italian small plates and wine.",
			latitude:    37.7609,
			longitude:   -122.4350,
			url:         "https://example.com/venues/osteria-verde",
		},
	},
	conout.OccasionCoffee: {
		{
			event:       "Coffee at Driftwood Roasters",
			location:    "Driftwood Roasters",
			description: "Quiet corner table, excellent pour-overs.",
			latitude:    37.7762,
			longitude:   -122.4247,
			url:         "https://example.com/venues/driftwood",
		},
	},
	conout.OccasionTennis: {
		{
			event:       "Doubles at Riverside Courts",
			location:    "Riverside Courts",
			description: "Rackets available at the front desk.",
			latitude:    37.7694,
			longitude:   -122.4862,
			url:         "https://example.com/venues/riverside-courts",
		},
	},
	conout.OccasionHiking: {
		{
			event:       "Sunset Ridge Trail Hike",
			location:    "Sunset Ridge Trailhead",
			description: "Easy 4-mile loop with bay views.",
			latitude:    37.7339,
			longitude:   -122.4869,
			url:         "https://example.com/venues/sunset-ridge",
		},
	},
	conout.OccasionMovie: {
		{
			event:       "Movie Night at The Orpheum",
			location:    "The Orpheum Screening Room",
			description: "Classic double feature, popcorn included.",
			latitude:    37.7793,
			longitude:   -122.4177,
			url:         "https://example.com/venues/orpheum",
		},
	},
	conout.OccasionArtGallery: {
		{
			event:       "Opening at Mirror Lake Gallery",
			location:    "Mirror Lake Gallery",
			description: "Contemporary photography opening night.",
			latitude:    37.7857,
			longitude:   -122.4011,
			url:         "https://example.com/venues/mirror-lake",
		},
	},
	conout.OccasionBowling: {
		{
			event:       "Lanes at Kingpin Alley",
			location:    "Kingpin Alley",
			description: "Two lanes reserved, shoes included.",
			latitude:    37.7541,
			longitude:   -122.4188,
			url:         "https://example.com/venues/kingpin",
		},
	},
}

// generateMatch builds a match for the given selection. The match date is
// the preferred time when it lies in the future, otherwise tomorrow evening.
func generateMatch(selection *SelectionRecord, now time.Time) conout.Match {
	occasion := conout.Occasion(selection.Occasion)
	pool, ok := venuesByOccasion[occasion]
	if !ok || len(pool) == 0 {
		pool = venuesByOccasion[conout.OccasionItalianDinner]
	}
	v := pool[rand.Intn(len(pool))]

	date := time.Unix(selection.PreferredTime, 0).UTC()
	if !date.After(now) {
		tomorrow := now.AddDate(0, 0, 1)
		date = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 19, 0, 0, 0, time.UTC)
	}

	description := v.description
	url := v.url
	return conout.Match{
		ID:          uuid.NewString(),
		EventName:   v.event,
		Location:    v.location,
		Date:        date,
		Description: &description,
		Latitude:    v.latitude,
		Longitude:   v.longitude,
		VenueURL:    &url,
	}
}
