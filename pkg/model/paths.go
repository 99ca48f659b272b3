package model

import (
	"fmt"
	"strings"
)

const (
	baselineArchivePath = "baseline/roads.geojson"
	changePathPrefix    = "changes/"
	userPathPrefix      = "users/"
)

// GetArchivePathToBaseline yields the key of the baseline snapshot object
func GetArchivePathToBaseline() string {
	return baselineArchivePath
}

// GetArchivePathPrefixToChanges yields the key prefix of change log entries
func GetArchivePathPrefixToChanges() string {
	return changePathPrefix
}

// GetArchivePathToChange yields the key of one change entry given its token
func GetArchivePathToChange(token string) string {
	return fmt.Sprint(changePathPrefix, token)
}

// GetTokenFromArchivePath recovers the token of a change entry key
func GetTokenFromArchivePath(archivePath string) string {
	return strings.TrimPrefix(archivePath, changePathPrefix)
}

// GetArchivePathPrefixToUsers yields the key prefix of user records
func GetArchivePathPrefixToUsers() string {
	return userPathPrefix
}

// GetArchivePathToUser yields the key of one user record
func GetArchivePathToUser(username string) string {
	return fmt.Sprint(userPathPrefix, username)
}

// GetUsernameFromArchivePath recovers the username of a user record key
func GetUsernameFromArchivePath(archivePath string) string {
	return strings.TrimPrefix(archivePath, userPathPrefix)
}
