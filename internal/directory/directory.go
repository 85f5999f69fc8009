package directory

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloop/platform_be/internal/models"
)

var ErrOwnerNotFound = errors.New("owner not found")

// OwnerLookup answers "does this owner id exist" for one owner kind.
// One implementation per kind replaces the source system's dynamic
// collection reference with a closed dispatch table.
type OwnerLookup interface {
	Exists(ownerID uuid.UUID) (bool, error)
}

// InstructorDirectory additionally exposes the current payout destination,
// which the withdrawal engine snapshots at request time.
type InstructorDirectory interface {
	OwnerLookup
	BankAccount(instructorID uuid.UUID) (models.BankAccountSnapshot, error)
}

// Resolver maps a business-level login identifier (an email) to the
// canonical owner id, for system-initiated credits where the caller never
// sees storage ids.
type Resolver interface {
	ResolveAdmin(email string) (uuid.UUID, error)
}

// Directory bundles one lookup per owner kind.
type Directory struct {
	DB *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{DB: db}
}

func (d *Directory) Lookup(kind models.OwnerKind) OwnerLookup {
	switch kind {
	case models.OwnerStudent:
		return studentLookup{d.DB}
	case models.OwnerInstructor:
		return Instructors{d.DB}
	case models.OwnerAdmin:
		return adminLookup{d.DB}
	}
	return nil
}

// Instructors implements InstructorDirectory against the instructors table.
type Instructors struct {
	DB *gorm.DB
}

func (l Instructors) Exists(ownerID uuid.UUID) (bool, error) {
	return exists(l.DB, &models.Instructor{}, ownerID)
}

func (l Instructors) BankAccount(instructorID uuid.UUID) (models.BankAccountSnapshot, error) {
	var ins models.Instructor
	err := l.DB.First(&ins, "id = ?", instructorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.BankAccountSnapshot{}, ErrOwnerNotFound
	}
	if err != nil {
		return models.BankAccountSnapshot{}, err
	}
	return ins.BankAccount, nil
}

type studentLookup struct{ db *gorm.DB }

func (l studentLookup) Exists(ownerID uuid.UUID) (bool, error) {
	return exists(l.db, &models.Student{}, ownerID)
}

type adminLookup struct{ db *gorm.DB }

func (l adminLookup) Exists(ownerID uuid.UUID) (bool, error) {
	return exists(l.db, &models.Admin{}, ownerID)
}

// ResolveAdmin implements Resolver.
func (d *Directory) ResolveAdmin(email string) (uuid.UUID, error) {
	var admin models.Admin
	err := d.DB.First(&admin, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrOwnerNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return admin.ID, nil
}

func exists(db *gorm.DB, model interface{}, id uuid.UUID) (bool, error) {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
