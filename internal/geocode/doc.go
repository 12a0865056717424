// Package geocode turns street names and landmarks into coordinates
// using the Google Maps Geocoding API, biased toward the borough the
// automation serves. It degrades to a no-op when unconfigured.
package geocode
