package constants

const (
	ViewData          = "view_data"
	VerifyDonations   = "verify_donations"
	IssueCertificates = "issue_certificates"
	VoidCertificates  = "void_certificates"
	ManageDonors      = "manage_donors"
	UpdateSettings    = "update_settings"
)

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:          {Viewer, Manager, Admin, Superadmin},
	VerifyDonations:   {Manager, Admin, Superadmin},
	IssueCertificates: {Manager, Admin, Superadmin},
	VoidCertificates:  {Admin, Superadmin},
	ManageDonors:      {Manager, Admin, Superadmin},
	UpdateSettings:    {Admin, Superadmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
