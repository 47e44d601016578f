package scope

// Permission codes for the fitness-tracking domain.
const (
	AccountView   = "view_account"
	AccountEdit   = "change_account"
	AccountCreate = "create_account"
	AccountDelete = "delete_account"
	AccountManage = "manage_account"

	AuthView   = "view_auth"
	AuthEdit   = "change_auth"
	AuthCreate = "create_auth"
	AuthDelete = "delete_auth"

	ScopeView   = "view_scope"
	ScopeEdit   = "change_scope"
	ScopeCreate = "create_scope"
	ScopeDelete = "delete_scope"

	TripView   = "view_trip"
	TripEdit   = "change_trip"
	TripCreate = "create_trip"
	TripDelete = "delete_trip"
)

// Definition is one catalog entry: a permission code and the codes it
// directly implies.
type Definition struct {
	Code     string
	Name     string
	Includes []string
}

// builtin is the fixed permission catalog. It is data, not logic: loaded at
// provisioning time and immutable for the process lifetime. Mutating or
// deleting a scope-protected resource always implies viewing it, and a
// manage grant stands in for the bundle of fine-grained trip permissions.
var builtin = []Definition{
	{Code: AccountView, Name: "Can view account"},
	{Code: AccountCreate, Name: "Can create account"},
	{Code: AccountEdit, Name: "Can change account", Includes: []string{AccountView}},
	{Code: AccountDelete, Name: "Can delete account", Includes: []string{AccountView}},
	{Code: AccountManage, Name: "Can manage account", Includes: []string{
		AccountView, TripCreate, TripEdit, TripDelete,
	}},

	{Code: AuthView, Name: "Can view auth"},
	{Code: AuthCreate, Name: "Can create auth"},
	{Code: AuthEdit, Name: "Can change auth", Includes: []string{AuthView}},
	{Code: AuthDelete, Name: "Can delete auth", Includes: []string{AuthView}},

	{Code: ScopeView, Name: "Can view scope"},
	{Code: ScopeCreate, Name: "Can create scope"},
	{Code: ScopeEdit, Name: "Can change scope", Includes: []string{ScopeView}},
	{Code: ScopeDelete, Name: "Can delete scope", Includes: []string{ScopeView}},

	{Code: TripView, Name: "Can view trip"},
	{Code: TripCreate, Name: "Can create trip"},
	{Code: TripEdit, Name: "Can change trip", Includes: []string{TripView}},
	{Code: TripDelete, Name: "Can delete trip", Includes: []string{TripView}},
}

// Catalog returns the builtin permission catalog. Callers receive a copy so
// the catalog itself stays immutable.
func Catalog() []Definition {
	out := make([]Definition, len(builtin))
	copy(out, builtin)
	for i := range out {
		if len(out[i].Includes) > 0 {
			inc := make([]string, len(out[i].Includes))
			copy(inc, out[i].Includes)
			out[i].Includes = inc
		}
	}
	return out
}
