// Package ranking answers leaderboard queries over the player registry.
//
// The registry is stored unsorted, in first-submission order. TopScores
// ranks a snapshot at read time with a bounded min-heap; PlayersPage is a
// LIMIT/OFFSET slice of the registry. Neither caps the limit; results are
// clipped to what the registry holds.
package ranking
