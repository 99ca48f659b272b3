package model

import (
	"fmt"

	yaml "gopkg.in/yaml.v2"
)

// UserRecord tracks per-user aggregates derived from the change log.
//
// SaveCount is a best-effort convenience counter: it is incremented after a
// successful append and may drift when the counter store is unavailable. It
// is reset to zero at checkpoint.
type UserRecord struct {
	Username  string `json:"username" yaml:"username"`
	SaveCount int    `json:"saveCount" yaml:"saveCount"`
	_         struct{}
}

func (u *UserRecord) String() string {
	return fmt.Sprintf("%s (%d saves)", u.Username, u.SaveCount)
}

// MarshalUserRecord serializes a user record for storage
func MarshalUserRecord(u *UserRecord) ([]byte, error) {
	if u == nil {
		return nil, fmt.Errorf("received nil user record to marshal")
	}
	return yaml.Marshal(u)
}

// UnmarshalUserRecord deserializes a stored user record
func UnmarshalUserRecord(b []byte) (*UserRecord, error) {
	var u UserRecord
	if err := yaml.Unmarshal(b, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
