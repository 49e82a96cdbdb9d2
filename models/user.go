package models

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Subject is the authenticated principal for one request.
type Subject struct {
	ID          string         `json:"id"`
	Email       string         `json:"email,omitempty"`
	IsStaff     bool           `json:"is_staff"`
	IsSuperuser bool           `json:"is_superuser"`
	Claims      map[string]any `json:"claims,omitempty"`
}

// User is the identity document backing a subject. It is created the first
// time a credential for the subject is verified.
type User struct {
	ID           string `json:"id" bson:"id"`
	Email        string `json:"email" bson:"email"`
	Username     string `json:"username" bson:"username"`
	Name         string `json:"name,omitempty" bson:"name,omitempty"`
	PasswordHash string `json:"-" bson:"password_hash,omitempty"`
	IsStaff      bool   `json:"is_staff" bson:"is_staff"`
	IsSuperuser  bool   `json:"is_superuser" bson:"is_superuser"`
	IsActive     bool   `json:"is_active" bson:"is_active"`
	CreatedAt    string `json:"created_at" bson:"created_at"`
	LastLogin    string `json:"last_login,omitempty" bson:"last_login,omitempty"`
}

type RoleRecord struct {
	SubjectID string `json:"subject_id" bson:"id"`
	Role      string `json:"role" bson:"role"`
	UpdatedAt string `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type Profile struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
	Address   string `json:"address,omitempty" bson:"address,omitempty"`
	Email     string `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// AdminUser is one row of the admin user listing.
type AdminUser struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Address   string   `json:"address,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
	Roles     []string `json:"roles"`
}
