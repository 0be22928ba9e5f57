package config

const (
	// DefaultDatabasePath is the default path for the schools database
	DefaultDatabasePath = "./college_app.db"

	// DefaultScorecardBaseURL is the College Scorecard schools endpoint
	DefaultScorecardBaseURL = "https://api.data.gov/ed/collegescorecard/v1/schools"

	// DefaultCORSAllowedOrigins are the local frontend dev servers
	DefaultCORSAllowedOrigins = "http://localhost:4321,http://localhost:3000"
)
