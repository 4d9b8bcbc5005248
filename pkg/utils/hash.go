package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares plain password with hashed password.
func CheckPassword(plain, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}

// AttendanceHash returns the lowercase hex SHA-256 of firstName, rollNumber,
// lastName and email concatenated in that order with no separator.
// Inputs must already be sanitized. The result is printed on tickets and
// encoded into the QR code, so it identifies an attendee but is not a secret.
func AttendanceHash(firstName, rollNumber, lastName, email string) string {
	sum := sha256.Sum256([]byte(firstName + rollNumber + lastName + email))
	return hex.EncodeToString(sum[:])
}
