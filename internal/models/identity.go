package models

// Identity is a User together with its role-specific subtype. Exactly one of
// AdminIdentity, ClinicianIdentity or PatientIdentity exists per user.
type Identity interface {
	Core() User
	Detail() UserDetail
	identity()
}

type AdminIdentity struct {
	User User
}

type ClinicianIdentity struct {
	User    User
	Profile ClinicianProfile
}

type PatientIdentity struct {
	User    User
	Profile PatientProfile
}

func (a AdminIdentity) Core() User     { return a.User }
func (c ClinicianIdentity) Core() User { return c.User }
func (p PatientIdentity) Core() User   { return p.User }

func (AdminIdentity) identity()     {}
func (ClinicianIdentity) identity() {}
func (PatientIdentity) identity()   {}

// UserDetail is the merged base + subtype record returned to administrators.
type UserDetail struct {
	User
	Status        UserStatus `json:"status"`
	LicenseNumber string     `json:"license_number,omitempty"`
	Specialty     string     `json:"specialty,omitempty"`
	Address       *string    `json:"address,omitempty"`
	BloodType     *string    `json:"blood_type,omitempty"`
}

func (a AdminIdentity) Detail() UserDetail {
	return UserDetail{User: a.User, Status: StatusOf(a.User.Active)}
}

func (c ClinicianIdentity) Detail() UserDetail {
	return UserDetail{
		User:          c.User,
		Status:        StatusOf(c.User.Active),
		LicenseNumber: c.Profile.LicenseNumber,
		Specialty:     c.Profile.Specialty,
	}
}

func (p PatientIdentity) Detail() UserDetail {
	return UserDetail{
		User:      p.User,
		Status:    StatusOf(p.User.Active),
		Address:   p.Profile.Address,
		BloodType: p.Profile.BloodType,
	}
}
