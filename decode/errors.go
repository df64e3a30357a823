package decode

import "strconv"

type ShortReadError struct {
	typeName string
}

func (e ShortReadError) Error() string {
	return "short read on " + e.typeName
}

func (e ShortReadError) Is(err error) bool {
	_, ok := err.(ShortReadError)
	return ok
}

type VarintOverflowError struct {
	typeName string
}

func (e VarintOverflowError) Error() string {
	return "varint overflows " + e.typeName
}

func (e VarintOverflowError) Is(err error) bool {
	_, ok := err.(VarintOverflowError)
	return ok
}

type NegativeLengthError struct {
	typeName string
	length   int64
}

func (e NegativeLengthError) Error() string {
	return "negative " + e.typeName + " length " + strconv.FormatInt(e.length, 10)
}

func (e NegativeLengthError) Is(err error) bool {
	_, ok := err.(NegativeLengthError)
	return ok
}
