// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package utils provides small filesystem helpers.
package utils

import (
	"errors"
	"os"
)

// Exists reports whether the file f exists.
func Exists(f string) bool {
	_, err := os.Stat(f)
	if err == nil {
		return true
	}
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	panic(err)
}

// IsExecutable reports whether f exists and has at least one execute bit
// set.
func IsExecutable(f string) bool {
	fi, err := os.Stat(f)
	if err != nil {
		return false
	}
	return fi.Mode().Perm()&0111 != 0
}
