package dto

// CreateUserRequest carries the fields for provisioning a user and its
// subtype. Dates use the YYYY-MM-DD layout.
type CreateUserRequest struct {
	FullName      string  `json:"full_name" yaml:"full_name"`
	NationalID    string  `json:"national_id" yaml:"national_id"`
	Email         string  `json:"email" yaml:"email"`
	BirthDate     string  `json:"birth_date" yaml:"birth_date"`
	Phone         *string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Password      string  `json:"password" yaml:"password"`
	Role          string  `json:"role" yaml:"role"`
	LicenseNumber string  `json:"license_number,omitempty" yaml:"license_number,omitempty"`
	Specialty     string  `json:"specialty,omitempty" yaml:"specialty,omitempty"`
	Address       *string `json:"address,omitempty" yaml:"address,omitempty"`
	BloodType     *string `json:"blood_type,omitempty" yaml:"blood_type,omitempty"`
}

// UpdateUserRequest replaces the base and subtype fields of an existing user.
// An empty Password leaves the stored hash untouched. Role, when present, must
// match the stored role.
type UpdateUserRequest struct {
	ID            int64   `json:"id"`
	FullName      string  `json:"full_name"`
	NationalID    string  `json:"national_id"`
	Email         string  `json:"email"`
	BirthDate     string  `json:"birth_date"`
	Phone         *string `json:"phone,omitempty"`
	Password      string  `json:"password,omitempty"`
	Role          string  `json:"role,omitempty"`
	LicenseNumber string  `json:"license_number,omitempty"`
	Specialty     string  `json:"specialty,omitempty"`
	Address       *string `json:"address,omitempty"`
	BloodType     *string `json:"blood_type,omitempty"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

type ToggleStatusResponse struct {
	NewStatus string `json:"new_status"`
}
