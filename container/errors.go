package container

import "errors"

var ErrBadMagic = errors.New("not an avro object container file")

var ErrNoWriterSchema = errors.New("container file has no writer schema")

var ErrSyncMismatch = errors.New("sync marker mismatch")

type UnknownCodecError struct {
	Name string
}

func (e UnknownCodecError) Error() string {
	return "unknown codec " + e.Name
}

func (e UnknownCodecError) Is(err error) bool {
	_, ok := err.(UnknownCodecError)
	return ok
}
