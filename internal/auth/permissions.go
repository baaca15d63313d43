package auth

// Role names seeded by the migrations. An account with no role links is a
// plain unprivileged user.
const (
	RoleAluno     = "ALUNO"
	RoleProfessor = "PROFESSOR"
	RoleAdmin     = "ADMIN"
)

// Permission names declared as endpoint scopes.
const (
	PermissionReadAllUsers = "READ_ALL_USERS"
)

// BuiltinRoles lists the roles the seed migrations create. The service checks
// for them at startup so a missing seed is noticed before the first request.
var BuiltinRoles = []Role{
	{Name: RoleAluno, Description: "User verified as a student"},
	{Name: RoleProfessor, Description: "User verified as a professor"},
	{Name: RoleAdmin, Description: "User with administrative access"},
}

// BuiltinPermissions lists the permissions the seed migrations create.
var BuiltinPermissions = []Permission{
	{Name: PermissionReadAllUsers, Description: "List every registered user"},
}
