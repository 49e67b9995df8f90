package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/tuition-lms/core/claims"
	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/irsalhamdi/tuition-lms/sequence"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrAuthentication = errors.New("authentication failed")
)

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users
		(user_id, student_id, name, email, role, password_hash, active, created_at, updated_at)
	VALUES
		(:user_id, :student_id, :name, :email, :role, :password_hash, :active, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, usr); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	if err := validate.CheckID(id); err != nil {
		return User{}, ErrNotFound
	}

	in := struct {
		ID string `db:"user_id"`
	}{id}

	const q = `
	SELECT *
	FROM users
	WHERE user_id = :user_id`

	var usr User
	if err := database.NamedQueryStruct(ctx, db, q, in, &usr); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}
	return usr, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	in := struct {
		Email string `db:"email"`
	}{strings.ToLower(email)}

	const q = `
	SELECT *
	FROM users
	WHERE email = :email`

	var usr User
	if err := database.NamedQueryStruct(ctx, db, q, in, &usr); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}
	return usr, nil
}

// Register creates an active account. The student id comes from the issuer;
// when it cannot be issued nothing is written.
func Register(ctx context.Context, db sqlx.ExtContext, iss *sequence.Issuer, su UserSignup, role string) (User, error) {
	studentID, err := iss.Next(ctx, sequence.StudentID)
	if err != nil {
		return User{}, fmt.Errorf("issuing student id: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	usr := User{
		ID:           validate.GenerateID(),
		StudentID:    studentID,
		Name:         su.Name,
		Email:        strings.ToLower(su.Email),
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	if err := Create(ctx, db, usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// Authenticate returns the active user owning the credentials.
func Authenticate(ctx context.Context, db sqlx.ExtContext, email, password string) (User, error) {
	usr, err := FetchByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrAuthentication
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrAuthentication
	}
	if !usr.Active {
		return User{}, ErrAuthentication
	}
	return usr, nil
}

// EnsureAdmin registers the bootstrap administrator unless the email is
// already taken.
func EnsureAdmin(ctx context.Context, db sqlx.ExtContext, iss *sequence.Issuer, email, password string) error {
	_, err := FetchByEmail(ctx, db, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	su := UserSignup{Name: "Administrator", Email: email, Password: password, PasswordConfirm: password}
	if _, err := Register(ctx, db, iss, su, claims.RoleAdmin); err != nil && !errors.Is(err, ErrEmailTaken) {
		return fmt.Errorf("registering admin: %w", err)
	}
	return nil
}
