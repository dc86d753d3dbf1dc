// Package app contains the application services: marker-message intake,
// leaderboard queries, settings management, and the schedule dispatcher.
package app
