// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

//go:build windows

package config

// WarnInsecurePermissions is a no-op on Windows, where POSIX permission
// bits do not map to the ACL model.
func WarnInsecurePermissions(path string) {}
