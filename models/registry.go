package models

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&MasterRecord{},
		&NameRecord{},
		&DocumentReference{},
		&Address{},
		&IdentFlag{},
		&AltDOB{},
		&ScarMark{},
		&SSNRecord{},
		&MiscNumber{},
		&DriverLicense{},
		&HenryFingerprint{},
		&NCICFingerprint{},
		&ExpungementLogEntry{},
		&FbiDowngradeStagingEntry{},
		&FbiOwnershipIndex{},
		&ReferenceCode{},
		&AuditLog{},
		&OutboxMessage{},
	}
}
