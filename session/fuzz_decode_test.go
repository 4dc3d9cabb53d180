package session

import (
	"bytes"
	"testing"
	"time"
)

// FuzzSessionDecode feeds arbitrary bytes to Decode. It must never panic and
// must never accept input that was not sealed under the key.
func FuzzSessionDecode(f *testing.F) {
	key := bytes.Repeat([]byte{0x42}, 32)
	encoded, err := Encode(&Session{
		Identity:      "fuzz@example.com",
		CreatedAt:     time.Unix(1_700_000_000, 0),
		LastActivity:  time.Unix(1_700_000_100, 0),
		Authenticated: true,
	}, key)
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:len(encoded)/2])
	}

	f.Add([]byte{})
	f.Add([]byte("{}"))
	f.Add([]byte(`{"v":1,"n":"","c":"","t":""}`))
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data, key)
		if err != nil {
			return
		}
		if !bytes.Equal(data, encoded) && s.Identity != "fuzz@example.com" {
			t.Fatalf("decoded unexpected identity %q", s.Identity)
		}
	})
}
