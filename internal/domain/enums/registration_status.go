package enums

type RegistrationStatus string

const (
	RegistrationStatusNotStarted RegistrationStatus = "not_started"
	RegistrationStatusPending    RegistrationStatus = "pending"
	RegistrationStatusVerified   RegistrationStatus = "verified"
	RegistrationStatusRejected   RegistrationStatus = "rejected"
)
