package tour

import "errors"

// Sentinel errors for tour model operations. Handlers map these to the
// API error envelope: not-found errors to 404, the rest to 400.
var (
	// ErrTourNotFound indicates the tour id is absent from the repository.
	ErrTourNotFound = errors.New("tour not found")

	// ErrSceneNotFound indicates a scene id does not resolve within the tour.
	ErrSceneNotFound = errors.New("scene not found")

	// ErrHotspotNotFound indicates no explicit hotspot carries the id.
	ErrHotspotNotFound = errors.New("hotspot not found")

	// ErrAutoHotspot indicates a mutation targeted a derived navigation
	// hotspot. Derived hotspots exist only at render time.
	ErrAutoHotspot = errors.New("auto-navigation hotspots cannot be modified")

	// ErrInvalidHotspotType indicates a hotspot type outside info/scene.
	ErrInvalidHotspotType = errors.New("invalid hotspot type")

	// ErrInvalidStatus indicates an unknown tour lifecycle status.
	ErrInvalidStatus = errors.New("invalid tour status")

	// ErrTransitionDenied indicates the configured transition policy
	// forbids the requested status change.
	ErrTransitionDenied = errors.New("status transition denied by policy")
)

// IsNotFound reports whether err wraps any of the package's not-found
// sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTourNotFound) ||
		errors.Is(err, ErrSceneNotFound) ||
		errors.Is(err, ErrHotspotNotFound)
}
