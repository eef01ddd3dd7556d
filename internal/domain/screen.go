package domain

// ScreenID identifies one call screen, i.e. one client's active call.
type ScreenID string
