// Package guard implements the signup guard: the validation and
// rate-limiting logic that runs before a create-account request is forwarded
// to the identity provider.
package guard

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field length and strength bounds enforced on signup.
const (
	NameMinLen     = 2
	NameMaxLen     = 50
	EmailMaxLen    = 255
	PasswordMinLen = 8
	PasswordMaxLen = 128
)

// Roles accepted on signup. An empty role defaults to RoleStudent.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
)

// emailPattern is a permissive format check: one @ separating non-empty
// local and domain parts, with a dot in the domain. The provider performs
// its own stricter verification.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Fields holds the candidate account fields submitted from the signup form.
type Fields struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
}

// Violation describes a single failed constraint with its user-facing message.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateSignup checks the candidate fields against the signup constraints
// and returns every violation found, in the order the constraints are
// defined: name length, email format and length, password length,
// password/confirmation equality, minimum strength, and finally the role.
// The first violation is the message shown to the user. The check is pure:
// identical fields always produce the identical violation list.
func ValidateSignup(f Fields, minStrength int) []Violation {
	var violations []Violation

	nameLen := utf8.RuneCountInString(strings.TrimSpace(f.Name))
	if nameLen < NameMinLen || nameLen > NameMaxLen {
		violations = append(violations, Violation{
			Field:   "name",
			Message: "Name must be between 2 and 50 characters",
		})
	}

	email := strings.TrimSpace(f.Email)
	if !emailPattern.MatchString(email) {
		violations = append(violations, Violation{
			Field:   "email",
			Message: "Please enter a valid email address",
		})
	} else if len(email) > EmailMaxLen {
		violations = append(violations, Violation{
			Field:   "email",
			Message: "Email must be at most 255 characters",
		})
	}

	passLen := utf8.RuneCountInString(f.Password)
	if passLen < PasswordMinLen || passLen > PasswordMaxLen {
		violations = append(violations, Violation{
			Field:   "password",
			Message: "Password must be between 8 and 128 characters",
		})
	}

	if f.Password != f.ConfirmPassword {
		violations = append(violations, Violation{
			Field:   "confirm_password",
			Message: "Passwords do not match",
		})
	}

	if ComputeStrength(f.Password) < minStrength {
		violations = append(violations, Violation{
			Field:   "password",
			Message: "Password is too weak. Use a mix of uppercase letters, numbers, and symbols",
		})
	}

	if role := NormalizeRole(f.Role); role != RoleStudent && role != RoleInstructor {
		violations = append(violations, Violation{
			Field:   "role",
			Message: "Role must be student or instructor",
		})
	}

	return violations
}

// NormalizeEmail lowercases and trims an email so rate-limit keys and
// existence checks treat case variants as the same address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRole trims a role and applies the student default for empty input.
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return RoleStudent
	}
	return role
}
