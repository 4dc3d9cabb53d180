package session

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/chatgate/cryptox"
)

// CurrentSchemaVersion is written by Encode. Decode rejects anything newer.
const CurrentSchemaVersion = 1

// ErrCorrupt is returned for records that fail to authenticate or decode.
var ErrCorrupt = errors.New("session record corrupt")

// Encode seals s under key.
func Encode(s *Session, key []byte) ([]byte, error) {
	if s == nil || s.Identity == "" {
		return nil, errors.New("session identity required")
	}
	out := *s
	out.SchemaVersion = CurrentSchemaVersion
	return cryptox.SealBytes(&out, key)
}

// Decode opens a record written by Encode.
func Decode(data []byte, key []byte) (*Session, error) {
	var s Session
	if err := cryptox.OpenBytes(data, key, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.SchemaVersion == 0 || s.SchemaVersion > CurrentSchemaVersion || s.Identity == "" {
		return nil, fmt.Errorf("%w: schema version %d", ErrCorrupt, s.SchemaVersion)
	}
	return &s, nil
}
