package enums

// MemberRole is a user's role inside their organization.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
	MemberRoleViewer MemberRole = "viewer"
)

var memberRoles = []MemberRole{MemberRoleOwner, MemberRoleAdmin, MemberRoleMember, MemberRoleViewer}

// AdminRoles may manage inventory and decide transfers for their organization.
var AdminRoles = []MemberRole{MemberRoleOwner, MemberRoleAdmin}

func (m MemberRole) String() string { return string(m) }
func (m MemberRole) IsValid() bool  { return oneOf(m, memberRoles) }
func (m MemberRole) IsAdmin() bool  { return oneOf(m, AdminRoles) }

// PlatformRole separates platform operators from regular users.
type PlatformRole string

const (
	PlatformRoleUser       PlatformRole = "user"
	PlatformRoleSuperAdmin PlatformRole = "super_admin"
)

func (p PlatformRole) IsSuperAdmin() bool { return p == PlatformRoleSuperAdmin }

// OrganizationCategory scopes which organizations see each other's surplus.
type OrganizationCategory string

const (
	OrganizationCategoryManufacturing OrganizationCategory = "manufacturing"
	OrganizationCategoryEducation     OrganizationCategory = "education"
	OrganizationCategoryHealthcare    OrganizationCategory = "healthcare"
	OrganizationCategoryConstruction  OrganizationCategory = "construction"
	OrganizationCategoryAgriculture   OrganizationCategory = "agriculture"
	OrganizationCategoryRetail        OrganizationCategory = "retail"
	OrganizationCategoryNonprofit     OrganizationCategory = "nonprofit"
)

func (c OrganizationCategory) String() string { return string(c) }
