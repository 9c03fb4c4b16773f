package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
	"github.com/minhvh/teacher-hub-api/pkg/storage"
)

const certificationDir = "certifications"

type profileRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*models.TeacherProfile, error)
	Create(ctx context.Context, p *models.TeacherProfile) error
	Update(ctx context.Context, p *models.TeacherProfile) error
	AddCertification(ctx context.Context, c *models.Certification) error
	FindCertification(ctx context.Context, id int64) (*models.Certification, error)
	DeleteCertification(ctx context.Context, id int64) error
	SetCertificationImage(ctx context.Context, id int64, imagePath *string) error
}

type profileUserLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// ProfileService provides teacher-profile use cases, including certification
// image uploads.
type ProfileService struct {
	repo      profileRepository
	users     profileUserLookup
	uploads   *storage.UploadStorage
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(repo profileRepository, users profileUserLookup, uploads *storage.UploadStorage, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{repo: repo, users: users, uploads: uploads, validator: validate, logger: logger}
}

// Get returns a user's profile, creating an empty shell on first access.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*models.TeacherProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	shell := &models.TeacherProfile{UserID: user.ID, FullName: user.FullName, Email: user.Email}
	if err := s.repo.Create(ctx, shell); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create profile")
	}
	return shell, nil
}

// Update replaces the scalar fields and child collections of a profile.
func (s *ProfileService) Update(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.TeacherProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Phone = req.Phone
	profile.Address = req.Address
	profile.Gender = req.Gender
	profile.Position = req.Position
	profile.Department = req.Department
	profile.Bio = req.Bio
	profile.Subjects = req.Subjects
	profile.Skills = req.Skills
	profile.Hobbies = req.Hobbies
	if req.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date of birth")
		}
		profile.DateOfBirth = &dob
	} else {
		profile.DateOfBirth = nil
	}

	for _, slot := range req.TimeSlots {
		if slot.DayOfWeek < 1 || slot.DayOfWeek > 7 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "day of week must be between 1 and 7")
		}
		if slot.EndTime <= slot.StartTime {
			return nil, appErrors.Clone(appErrors.ErrValidation, "time slot end must be after start")
		}
	}

	profile.Educations = req.Educations
	profile.Experiences = req.Experiences
	profile.TimeSlots = req.TimeSlots

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return s.Get(ctx, userID)
}

// AddCertification records a credential on a user's profile.
func (s *ProfileService) AddCertification(ctx context.Context, userID int64, req models.AddCertificationRequest) (*models.Certification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certification payload")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	cert := &models.Certification{ProfileID: profile.ID, Name: req.Name, Issuer: req.Issuer}
	if req.IssueDate != nil {
		issued, err := time.Parse(dateLayout, *req.IssueDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid issue date")
		}
		cert.IssueDate = &issued
	}

	if err := s.repo.AddCertification(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add certification")
	}
	return cert, nil
}

// UploadCertificationImage validates and stores a credential image, replacing
// any previous one.
func (s *ProfileService) UploadCertificationImage(ctx context.Context, userID, certID int64, filename string, size int64, r io.Reader) (*models.Certification, error) {
	cert, err := s.ownedCertification(ctx, userID, certID)
	if err != nil {
		return nil, err
	}

	if err := s.uploads.ValidateImage(filename, size); err != nil {
		return nil, err
	}

	path, err := s.uploads.SaveStream(certificationDir, filename, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
	}

	if cert.ImagePath != nil {
		if err := s.uploads.Delete(*cert.ImagePath); err != nil {
			s.logger.Warn("failed to remove replaced certification image", zap.Error(err))
		}
	}

	if err := s.repo.SetCertificationImage(ctx, certID, &path); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save image path")
	}
	cert.ImagePath = &path
	return cert, nil
}

// OpenCertificationImage returns a stored credential image for download.
func (s *ProfileService) OpenCertificationImage(ctx context.Context, userID, certID int64) (io.ReadCloser, string, error) {
	cert, err := s.ownedCertification(ctx, userID, certID)
	if err != nil {
		return nil, "", err
	}
	if cert.ImagePath == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "certification has no image")
	}
	file, err := s.uploads.Open(*cert.ImagePath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open image")
	}
	return file, storage.ContentType(*cert.ImagePath), nil
}

// DeleteCertification removes a credential and its stored image.
func (s *ProfileService) DeleteCertification(ctx context.Context, userID, certID int64) error {
	cert, err := s.ownedCertification(ctx, userID, certID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteCertification(ctx, certID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete certification")
	}
	if cert.ImagePath != nil {
		if err := s.uploads.Delete(*cert.ImagePath); err != nil {
			s.logger.Warn("failed to remove certification image", zap.Error(err))
		}
	}
	return nil
}

// ownedCertification loads a certification and checks it belongs to the
// user's profile.
func (s *ProfileService) ownedCertification(ctx context.Context, userID, certID int64) (*models.Certification, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cert, err := s.repo.FindCertification(ctx, certID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certification")
	}
	if cert.ProfileID != profile.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "certification belongs to another profile")
	}
	return cert, nil
}
