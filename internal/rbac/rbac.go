package rbac

// Role constants
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleTechnician = "technician"
	RoleOperator   = "operator"
)

// Permission constants
const (
	PermManageEquipment     = "manage_equipment"
	PermScheduleMaintenance = "schedule_maintenance"
	PermCompleteMaintenance = "complete_maintenance"
	PermScheduleCalibration = "schedule_calibration"
	PermRaiseContingency    = "raise_contingency"
	PermResolveContingency  = "resolve_contingency"
	PermScheduleTraining    = "schedule_training"
	PermExportData          = "export_data"
	PermManageUsers         = "manage_users"
	PermViewAudit           = "view_audit"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermManageEquipment, PermScheduleMaintenance, PermCompleteMaintenance,
		PermScheduleCalibration, PermRaiseContingency, PermResolveContingency,
		PermScheduleTraining, PermExportData, PermManageUsers, PermViewAudit,
	},
	RoleSupervisor: {
		PermManageEquipment, PermScheduleMaintenance, PermCompleteMaintenance,
		PermScheduleCalibration, PermRaiseContingency, PermResolveContingency,
		PermScheduleTraining, PermExportData, PermViewAudit,
		// Supervisor CANNOT: PermManageUsers
	},
	RoleTechnician: {
		PermCompleteMaintenance, PermRaiseContingency,
	},
	RoleOperator: {
		PermRaiseContingency,
	},
}

// supervisoryRoles are the roles notified on critical events.
var supervisoryRoles = []string{RoleAdmin, RoleSupervisor}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsSupervisory reports whether a role is administrative or supervisory.
func IsSupervisory(role string) bool {
	for _, r := range supervisoryRoles {
		if r == role {
			return true
		}
	}
	return false
}

// SupervisoryRoles returns the roles targeted by critical-tier resolution.
func SupervisoryRoles() []string {
	out := make([]string, len(supervisoryRoles))
	copy(out, supervisoryRoles)
	return out
}
