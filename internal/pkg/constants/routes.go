package constants

// Static route constants
const (
	LoginRoute              = "/login"
	RegisterRoute           = "/register"
	MembershipSettingsRoute = "/user/settings/membership"
)
