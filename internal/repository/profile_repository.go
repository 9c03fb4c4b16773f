package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

const profileColumns = `p.id, p.user_id, u.full_name, u.email, p.phone, p.address,
	p.date_of_birth, p.gender, p.position, p.department, p.bio, p.subjects, p.skills,
	p.hobbies, p.created_at, p.updated_at`

const profileJoins = `FROM teacher_profiles p
	JOIN users u ON u.id = p.user_id`

// ProfileRepository manages persistence for teacher profiles and their child
// collections.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID fetches a profile with all child collections loaded.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID int64) (*models.TeacherProfile, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE p.user_id = $1", profileColumns, profileJoins)
	var profile models.TeacherProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create inserts an empty profile shell for a user.
func (r *ProfileRepository) Create(ctx context.Context, p *models.TeacherProfile) error {
	const query = `
		INSERT INTO teacher_profiles (user_id, phone, address, date_of_birth, gender, position,
			department, bio, subjects, skills, hobbies, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		p.UserID, p.Phone, p.Address, p.DateOfBirth, p.Gender, p.Position,
		p.Department, p.Bio, p.Subjects, p.Skills, p.Hobbies)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Update replaces the scalar fields and every child collection of a profile in
// one transaction. Child rows are deleted and reinserted rather than diffed.
func (r *ProfileRepository) Update(ctx context.Context, p *models.TeacherProfile) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile tx: %w", err)
	}
	defer tx.Rollback()

	const updateProfile = `
		UPDATE teacher_profiles
		SET phone = $2, address = $3, date_of_birth = $4, gender = $5, position = $6,
			department = $7, bio = $8, subjects = $9, skills = $10, hobbies = $11, updated_at = NOW()
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateProfile,
		p.ID, p.Phone, p.Address, p.DateOfBirth, p.Gender, p.Position,
		p.Department, p.Bio, p.Subjects, p.Skills, p.Hobbies); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if err := r.replaceEducations(ctx, tx, p.ID, p.Educations); err != nil {
		return err
	}
	if err := r.replaceExperiences(ctx, tx, p.ID, p.Experiences); err != nil {
		return err
	}
	if err := r.replaceTimeSlots(ctx, tx, p.ID, p.TimeSlots); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile tx: %w", err)
	}
	return nil
}

func (r *ProfileRepository) replaceEducations(ctx context.Context, tx *sqlx.Tx, profileID int64, educations []models.Education) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM profile_educations WHERE profile_id = $1", profileID); err != nil {
		return fmt.Errorf("replace educations: %w", err)
	}
	const query = `
		INSERT INTO profile_educations (profile_id, degree, institution, start_year, end_year, description)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, e := range educations {
		if _, err := tx.ExecContext(ctx, query, profileID, e.Degree, e.Institution, e.StartYear, e.EndYear, e.Description); err != nil {
			return fmt.Errorf("replace educations: %w", err)
		}
	}
	return nil
}

func (r *ProfileRepository) replaceExperiences(ctx context.Context, tx *sqlx.Tx, profileID int64, experiences []models.Experience) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM profile_experiences WHERE profile_id = $1", profileID); err != nil {
		return fmt.Errorf("replace experiences: %w", err)
	}
	const query = `
		INSERT INTO profile_experiences (profile_id, title, company, start_date, end_date, description)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, e := range experiences {
		if _, err := tx.ExecContext(ctx, query, profileID, e.Title, e.Company, e.StartDate, e.EndDate, e.Description); err != nil {
			return fmt.Errorf("replace experiences: %w", err)
		}
	}
	return nil
}

func (r *ProfileRepository) replaceTimeSlots(ctx context.Context, tx *sqlx.Tx, profileID int64, slots []models.AvailableTimeSlot) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM profile_time_slots WHERE profile_id = $1", profileID); err != nil {
		return fmt.Errorf("replace time slots: %w", err)
	}
	const query = `
		INSERT INTO profile_time_slots (profile_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4)`
	for _, s := range slots {
		if _, err := tx.ExecContext(ctx, query, profileID, s.DayOfWeek, s.StartTime, s.EndTime); err != nil {
			return fmt.Errorf("replace time slots: %w", err)
		}
	}
	return nil
}

// AddCertification inserts one credential row.
func (r *ProfileRepository) AddCertification(ctx context.Context, c *models.Certification) error {
	const query = `
		INSERT INTO profile_certifications (profile_id, name, issuer, issue_date, image_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	row := r.db.QueryRowxContext(ctx, query, c.ProfileID, c.Name, c.Issuer, c.IssueDate, c.ImagePath)
	if err := row.Scan(&c.ID); err != nil {
		return fmt.Errorf("add certification: %w", err)
	}
	return nil
}

// FindCertification fetches one credential row.
func (r *ProfileRepository) FindCertification(ctx context.Context, id int64) (*models.Certification, error) {
	const query = `
		SELECT id, profile_id, name, issuer, issue_date, image_path
		FROM profile_certifications WHERE id = $1`
	var cert models.Certification
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		return nil, err
	}
	return &cert, nil
}

// DeleteCertification removes one credential row.
func (r *ProfileRepository) DeleteCertification(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM profile_certifications WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete certification: %w", err)
	}
	return nil
}

// SetCertificationImage stores the uploaded image path on a credential.
func (r *ProfileRepository) SetCertificationImage(ctx context.Context, id int64, imagePath *string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE profile_certifications SET image_path = $2 WHERE id = $1", id, imagePath); err != nil {
		return fmt.Errorf("set certification image: %w", err)
	}
	return nil
}

func (r *ProfileRepository) loadChildren(ctx context.Context, p *models.TeacherProfile) error {
	const educations = `
		SELECT id, profile_id, degree, institution, start_year, end_year, description
		FROM profile_educations WHERE profile_id = $1 ORDER BY start_year DESC, id ASC`
	if err := r.db.SelectContext(ctx, &p.Educations, educations, p.ID); err != nil {
		return fmt.Errorf("load educations: %w", err)
	}

	const experiences = `
		SELECT id, profile_id, title, company, start_date, end_date, description
		FROM profile_experiences WHERE profile_id = $1 ORDER BY start_date DESC, id ASC`
	if err := r.db.SelectContext(ctx, &p.Experiences, experiences, p.ID); err != nil {
		return fmt.Errorf("load experiences: %w", err)
	}

	const certifications = `
		SELECT id, profile_id, name, issuer, issue_date, image_path
		FROM profile_certifications WHERE profile_id = $1 ORDER BY issue_date DESC NULLS LAST, id ASC`
	if err := r.db.SelectContext(ctx, &p.Certifications, certifications, p.ID); err != nil {
		return fmt.Errorf("load certifications: %w", err)
	}

	const slots = `
		SELECT id, profile_id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time,
			to_char(end_time, 'HH24:MI') AS end_time
		FROM profile_time_slots WHERE profile_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	if err := r.db.SelectContext(ctx, &p.TimeSlots, slots, p.ID); err != nil {
		return fmt.Errorf("load time slots: %w", err)
	}
	return nil
}
