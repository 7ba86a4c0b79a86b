// Package testutil holds the assertions shared by the package tests. Each
// helper stops the test on failure and takes the value under test first.
package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireNoError fails the test immediately if err is non-nil.
func RequireNoError(testingHandle *testing.T, err error, message string) {
	testingHandle.Helper()
	require.NoError(testingHandle, err, message)
}

// RequireError fails the test immediately if err is nil.
func RequireError(testingHandle *testing.T, err error, message string) {
	testingHandle.Helper()
	require.Error(testingHandle, err, message)
}

// RequireErrorIs fails the test immediately unless err wraps target.
func RequireErrorIs(testingHandle *testing.T, err error, target error, message string) {
	testingHandle.Helper()
	require.ErrorIs(testingHandle, err, target, message)
}

// RequireEqual fails the test immediately when values are not equal.
func RequireEqual(testingHandle *testing.T, gotValue any, wantValue any, message string) {
	testingHandle.Helper()
	require.Equal(testingHandle, wantValue, gotValue, message)
}

// RequireInDelta fails the test immediately when gotValue is farther than delta from wantValue.
func RequireInDelta(testingHandle *testing.T, gotValue float64, wantValue float64, delta float64, message string) {
	testingHandle.Helper()
	require.InDelta(testingHandle, wantValue, gotValue, delta, message)
}

// RequireTrue fails the test immediately if condition is false.
func RequireTrue(testingHandle *testing.T, condition bool, message string) {
	testingHandle.Helper()
	require.True(testingHandle, condition, message)
}

// RequireStringContains fails the test immediately if substring is missing.
func RequireStringContains(testingHandle *testing.T, haystack string, needle string, message string) {
	testingHandle.Helper()
	require.Contains(testingHandle, haystack, needle, message)
}

// RequireStringNotContains fails the test immediately if substring is present.
func RequireStringNotContains(testingHandle *testing.T, haystack string, needle string, message string) {
	testingHandle.Helper()
	require.NotContains(testingHandle, haystack, needle, message)
}

// RequireErrorAs fails the test unless err unwraps to a T, which it returns.
func RequireErrorAs[T error](testingHandle *testing.T, err error, message string) T {
	testingHandle.Helper()
	var target T
	if !errors.As(err, &target) {
		require.Failf(testingHandle, message, "expected error of type %T, got %v", target, err)
	}
	return target
}
