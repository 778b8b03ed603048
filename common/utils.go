package common

import (
	uuid "github.com/satori/go.uuid"
)

// GetUUID returns a random v4 uuid.
func GetUUID() string {
	return uuid.NewV4().String()
}
