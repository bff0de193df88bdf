// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSaltRounds is the bcrypt work factor used when none is configured.
const DefaultSaltRounds = 10

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// rounds is the bcrypt cost (work factor); values below bcrypt.MinCost fall
// back to [DefaultSaltRounds].
func HashPassword(plainTextPassword string, rounds int) (string, error) {
	if rounds < bcrypt.MinCost {
		rounds = DefaultSaltRounds
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), rounds)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
//
// bcrypt's comparison is constant-time, so the check does not leak how close
// the candidate password was.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
