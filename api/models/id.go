package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sync"

	"github.com/speps/go-hashids/v2"
)

// ID is a numeric row id that is rendered as an opaque hashid in JSON.
type ID int64

const idMinLength = 12

var (
	idMu   sync.RWMutex
	dbHash = mustHashID("")
)

func mustHashID(salt string) *hashids.HashID {
	h, err := newHashID(salt)
	if err != nil {
		panic(err)
	}
	return h
}

func newHashID(salt string) (*hashids.HashID, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = idMinLength
	return hashids.NewWithData(hd)
}

// ConfigureIDs sets the salt used to encode ids. Call once at startup.
func ConfigureIDs(salt string) error {
	h, err := newHashID(salt)
	if err != nil {
		return err
	}
	idMu.Lock()
	dbHash = h
	idMu.Unlock()
	return nil
}

func hasher() *hashids.HashID {
	idMu.RLock()
	defer idMu.RUnlock()
	return dbHash
}

func (id ID) String() string {
	if id == 0 {
		return ""
	}
	s, err := hasher().EncodeInt64([]int64{int64(id)})
	if err != nil {
		return ""
	}
	return s
}

// MarshalJSON implements the encoding json interface.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == 0 {
		return json.Marshal(nil)
	}
	result, err := hasher().EncodeInt64([]int64{int64(id)})
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// UnmarshalJSON implements the encoding json interface.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*id = 0
		return nil
	}
	result, err := hasher().DecodeInt64WithError(s)
	if err != nil {
		return err
	}
	if len(result) == 0 {
		return errors.New("invalid ID")
	}
	*id = ID(result[0])
	return nil
}

// Scan implements the Scanner interface.
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = 0
		return nil
	}

	switch v := value.(type) {
	case int64:
		*id = ID(v)
	case []byte:
		return id.UnmarshalJSON(v)
	default:
		return errors.New("unexpected type for ID")
	}
	return nil
}

// Value implements the driver Valuer interface.
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}
