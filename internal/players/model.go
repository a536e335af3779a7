package players

import "time"

// Player maps an opaque numeric chat identity to a display name.
type Player struct {
    ID          int64
    DisplayName string
    CreatedAt   time.Time
    UpdatedAt   time.Time
}
