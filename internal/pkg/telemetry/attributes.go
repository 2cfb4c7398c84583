package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys used across the service.
const (
	// Map rendering
	AttrMapView      = attribute.Key("staymap.map.view")
	AttrMarkerCount  = attribute.Key("staymap.markers.count")
	AttrDisplaced    = attribute.Key("staymap.markers.displaced")
	AttrPassthrough  = attribute.Key("staymap.markers.passthrough")
	AttrFallbacks    = attribute.Key("staymap.markers.fallbacks")
	AttrSpreadGroups = attribute.Key("staymap.markers.spread_groups")

	// Catalog
	AttrWishlistID = attribute.Key("staymap.wishlist.id")
	AttrCity       = attribute.Key("staymap.city")
)
