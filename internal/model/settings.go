package model

// LightStatus is the traffic-light state shown for an equipment item.
type LightStatus string

const (
	LightCompleted   LightStatus = "COMPLETED"
	LightPending     LightStatus = "PENDING"
	LightCanInspect  LightStatus = "CAN_INSPECT"
	LightUnnecessary LightStatus = "UNNECESSARY"
)

const (
	DefaultRedThreshold    = 2
	DefaultYellowThreshold = 5
)

// LightSettings holds the per-deployment thresholds and colors for the traffic light.
type LightSettings struct {
	RedThreshold    int                    `json:"redThreshold"`
	YellowThreshold int                    `json:"yellowThreshold"`
	Colors          map[LightStatus]string `json:"colors,omitempty"`
}

// DefaultLightSettings returns the stock thresholds (2 / 5 days) and colors.
func DefaultLightSettings() LightSettings {
	return LightSettings{
		RedThreshold:    DefaultRedThreshold,
		YellowThreshold: DefaultYellowThreshold,
		Colors:          DefaultColors(),
	}
}

// DefaultColors returns the stock status colors.
func DefaultColors() map[LightStatus]string {
	return map[LightStatus]string{
		LightCompleted:   "#10b981",
		LightPending:     "#ef4444",
		LightCanInspect:  "#f59e0b",
		LightUnnecessary: "#9ca3af",
	}
}

// Color returns the configured color for s, falling back to the default palette.
func (l LightSettings) Color(s LightStatus) string {
	if c, ok := l.Colors[s]; ok && c != "" {
		return c
	}
	return DefaultColors()[s]
}
