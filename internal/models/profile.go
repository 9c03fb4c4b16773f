package models

import "time"

// TeacherProfile holds extended personal data for a teacher account.
type TeacherProfile struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	FullName    string     `db:"full_name" json:"full_name"`
	Email       string     `db:"email" json:"email,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	Position    *string    `db:"position" json:"position,omitempty"`
	Department  *string    `db:"department" json:"department,omitempty"`
	Bio         *string    `db:"bio" json:"bio,omitempty"`
	Subjects    *string    `db:"subjects" json:"subjects,omitempty"`
	Skills      *string    `db:"skills" json:"skills,omitempty"`
	Hobbies     *string    `db:"hobbies" json:"hobbies,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Educations     []Education         `db:"-" json:"educations"`
	Experiences    []Experience        `db:"-" json:"experiences"`
	Certifications []Certification     `db:"-" json:"certifications"`
	TimeSlots      []AvailableTimeSlot `db:"-" json:"available_time_slots"`
}

// UpdateProfileRequest replaces a profile's scalar fields and child
// collections. Collections are replaced wholesale, not merged.
type UpdateProfileRequest struct {
	Phone       *string             `json:"phone"`
	Address     *string             `json:"address"`
	DateOfBirth *string             `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string             `json:"gender"`
	Position    *string             `json:"position"`
	Department  *string             `json:"department"`
	Bio         *string             `json:"bio"`
	Subjects    *string             `json:"subjects"`
	Skills      *string             `json:"skills"`
	Hobbies     *string             `json:"hobbies"`
	Educations  []Education         `json:"educations" validate:"dive"`
	Experiences []Experience        `json:"experiences" validate:"dive"`
	TimeSlots   []AvailableTimeSlot `json:"available_time_slots" validate:"dive"`
}

// AddCertificationRequest is the payload for adding a credential.
type AddCertificationRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Issuer    *string `json:"issuer"`
	IssueDate *string `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
}

// Education is one study record on a teacher profile.
type Education struct {
	ID          int64   `db:"id" json:"id"`
	ProfileID   int64   `db:"profile_id" json:"-"`
	Degree      string  `db:"degree" json:"degree"`
	Institution string  `db:"institution" json:"institution"`
	StartYear   int     `db:"start_year" json:"start_year"`
	EndYear     *int    `db:"end_year" json:"end_year,omitempty"`
	Description *string `db:"description" json:"description,omitempty"`
}

// Experience is one employment record on a teacher profile.
type Experience struct {
	ID          int64      `db:"id" json:"id"`
	ProfileID   int64      `db:"profile_id" json:"-"`
	Title       string     `db:"title" json:"title"`
	Company     string     `db:"company" json:"company"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	Description *string    `db:"description" json:"description,omitempty"`
}

// Certification is one credential on a teacher profile, optionally backed by
// an uploaded image.
type Certification struct {
	ID        int64      `db:"id" json:"id"`
	ProfileID int64      `db:"profile_id" json:"-"`
	Name      string     `db:"name" json:"name"`
	Issuer    *string    `db:"issuer" json:"issuer,omitempty"`
	IssueDate *time.Time `db:"issue_date" json:"issue_date,omitempty"`
	ImagePath *string    `db:"image_path" json:"image_path,omitempty"`
}

// AvailableTimeSlot marks a weekly window when a teacher can take classes.
type AvailableTimeSlot struct {
	ID        int64  `db:"id" json:"id"`
	ProfileID int64  `db:"profile_id" json:"-"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}
