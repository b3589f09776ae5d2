package walk

import "pawmarket/internal/types"

// Role of the caller as resolved by the authorization gate.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleWalker Role = "walker"
	RoleAdmin  Role = "admin"
)

// ListQuery builds the "my walks" query for one caller role. Each role gets
// its own WHERE clause so the per-role logic stays independently testable
// instead of branching inside the store.
type ListQuery struct {
	Role         Role
	CallerID     types.ID
	StatusFilter Status // zero value means no filter
}

// Build returns the SQL and arguments for the query.
//
// Owners see their own bookings. Walkers see walks assigned to them; when
// they filter for pending they additionally see the open unassigned pool,
// since those are the walks they can claim. Admins see everything.
func (q ListQuery) Build() (string, []any) {
	base := `SELECT ` + walkColumns + ` FROM walks `
	order := ` ORDER BY scheduled_at DESC`

	switch q.Role {
	case RoleOwner:
		if q.StatusFilter != "" {
			return base + `WHERE owner_id = $1 AND status = $2` + order,
				[]any{string(q.CallerID), string(q.StatusFilter)}
		}
		return base + `WHERE owner_id = $1` + order, []any{string(q.CallerID)}

	case RoleWalker:
		if q.StatusFilter == StatusPending {
			return base + `WHERE (walker_id = $1 AND status = $2) OR status = 'unassigned'` + order,
				[]any{string(q.CallerID), string(StatusPending)}
		}
		if q.StatusFilter != "" {
			return base + `WHERE walker_id = $1 AND status = $2` + order,
				[]any{string(q.CallerID), string(q.StatusFilter)}
		}
		return base + `WHERE walker_id = $1` + order, []any{string(q.CallerID)}

	default: // RoleAdmin
		if q.StatusFilter != "" {
			return base + `WHERE status = $1` + order, []any{string(q.StatusFilter)}
		}
		return base + `WHERE TRUE` + order, nil
	}
}
