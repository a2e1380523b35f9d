package auth

import "github.com/frahmantamala/civic-report/internal/core/user"

type Capability string

const (
	CapSubmitIssue     Capability = "submit_issue"
	CapUpvote          Capability = "upvote"
	CapChangeStatus    Capability = "change_status"
	CapAssign          Capability = "assign"
	CapViewStats       Capability = "view_stats"
	CapViewFleetStats  Capability = "view_fleet_stats"
	CapViewAdminIssues Capability = "view_admin_issues"
	CapListAdmins      Capability = "list_admins"
	CapViewOwnReports  Capability = "view_own_reports"
)

var roleCapabilities = map[user.Role][]Capability{
	user.RoleCitizen: {
		CapSubmitIssue,
		CapUpvote,
		CapViewStats,
		CapViewOwnReports,
	},
	user.RoleAdmin: {
		CapUpvote,
		CapChangeStatus,
		CapViewStats,
		CapViewAdminIssues,
	},
	user.RoleSuperAdmin: {
		CapUpvote,
		CapChangeStatus,
		CapAssign,
		CapViewStats,
		CapViewFleetStats,
		CapViewAdminIssues,
		CapListAdmins,
	},
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func Can(role user.Role, capability Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// CapabilitySet is the per-role table exposed to clients.
type CapabilitySet struct {
	CanSubmit       bool `json:"canSubmit"`
	CanUpvote       bool `json:"canUpvote"`
	CanChangeStatus bool `json:"canChangeStatus"`
	CanAssign       bool `json:"canAssign"`
	CanViewStats    bool `json:"canViewStats"`
}

func CapabilitiesFor(role user.Role) CapabilitySet {
	return CapabilitySet{
		CanSubmit:       Can(role, CapSubmitIssue),
		CanUpvote:       Can(role, CapUpvote),
		CanChangeStatus: Can(role, CapChangeStatus),
		CanAssign:       Can(role, CapAssign),
		CanViewStats:    Can(role, CapViewStats),
	}
}
