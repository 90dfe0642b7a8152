package models

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Organization{},
		&Department{},
		&Position{},
		&Employee{},
		&Permission{},
		&PermissionGroup{},
		&PositionPermission{},
		&DepartmentPermission{},
		&EmployeePermissionGroup{},
		&AssetCategory{},
		&Asset{},
		&AssetLog{},
		&Incident{},
		&IncidentNote{},
		&IncidentLog{},
		&ISODomain{},
		&ISOObjective{},
		&ISORequirement{},
		&Document{},
		&DocumentVersion{},
		&DocumentLog{},
		&DocumentAccess{},
		&DocumentAcknowledgement{},
		&DocumentISOMapping{},
		&SoADeclaration{},
		&SoAEntry{},
		&SoALog{},
		&ActivityLog{},
		&Notification{},
		&NotificationProvider{},
	}
}
