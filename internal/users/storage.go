// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package users

import (
	"github.com/taibuivan/crudkit/internal/crudl/pgstore"
)

// RedisKeyPrefix namespaces the account keys in the Redis backend.
const RedisKeyPrefix = "crudkit:users"

// UniqueFields lists the account fields under a unique constraint.
func UniqueFields() []string {
	return []string{"username"}
}

// PostgresSchema maps the account resource onto its table.
//
// The table is created by the 0001_create_users migration.
func PostgresSchema() pgstore.Schema {
	return pgstore.Schema{
		Table:    "users",
		IDColumn: "id",
		Columns: map[string]string{
			"username":      "username",
			"password":      "password_hash",
			"role":          "role",
			"enabled":       "enabled",
			"refreshTokens": "refresh_tokens",
		},
	}
}
