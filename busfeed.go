package busfeed

// BusfeedVersion is overridden at build time through -ldflags.
var BusfeedVersion = "0.0.0-dev"
